package extract

import "github.com/yuklab/yuklab-bot/internal/model"

// FormatOption is one selectable video quality.
type FormatOption struct {
	Label    string // e.g. "1080p"
	Height   int
	FileSize int64 // bytes, 0 if the tool gave no hint
}

// VideoMetadata is the normalized yt-dlp info for a video-hosting URL.
type VideoMetadata struct {
	ID        string
	Title     string
	Duration  string
	Thumbnail string
	Formats   []FormatOption
}

// ShortVideoMetadata is the normalized yt-dlp info for a short-video URL.
type ShortVideoMetadata struct {
	ID       string
	Title    string
	Duration float64
	FileSize int64
}

// CarouselEntry is one media item of a multi-item post, in source order.
type CarouselEntry struct {
	ID        string
	MediaType model.MediaType // video or image
	VideoURL  string
	ImageURL  string
	Thumbnail string
}

// PostMetadata is the normalized gallery-dl info for a photo/carousel URL.
// MediaType is one of video, image or post; stories and reels are collapsed
// to video or image before this struct is built and never carry Carousel.
type PostMetadata struct {
	ID        string
	Shortcode string
	Title     string
	MediaType model.MediaType
	VideoURL  string
	ImageURL  string
	Thumbnail string
	Carousel  []CarouselEntry
}

// SourceID returns the stable id used for working folder names.
func (m *PostMetadata) SourceID() string {
	if m.Shortcode != "" {
		return m.Shortcode
	}
	return m.ID
}
