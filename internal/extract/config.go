package extract

import "time"

// Config carries the externally loaded settings the services need.
type Config struct {
	DownloadRoot string
	MaxFileSize  int64

	YtdlpPath     string
	GalleryDlPath string
	FfmpegPath    string

	// TiktokProxy is passed to yt-dlp for the short-video platform when set.
	TiktokProxy string

	// InstagramCookies is the cookies file gallery-dl needs for the
	// photo/carousel platform.
	InstagramCookies string

	// Timeout bounds each tool invocation; zero falls back to the runner
	// default.
	Timeout time.Duration
}
