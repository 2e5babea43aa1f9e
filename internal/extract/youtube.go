package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/procrun"
)

// ytdlpVideoInfo mirrors the subset of yt-dlp -j output the bot reads.
type ytdlpVideoInfo struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	DurationString string        `json:"duration_string"`
	Thumbnail      string        `json:"thumbnail"`
	Filesize       int64         `json:"filesize"`
	FilesizeApprox int64         `json:"filesize_approx"`
	Duration       float64       `json:"duration"`
	Formats        []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	FormatID       string `json:"format_id"`
	Ext            string `json:"ext"`
	Height         int    `json:"height"`
	Vcodec         string `json:"vcodec"`
	Acodec         string `json:"acodec"`
	Filesize       int64  `json:"filesize"`
	FilesizeApprox int64  `json:"filesize_approx"`
	FormatNote     string `json:"format_note"`
}

// sizeHint returns the best available file size estimate.
func (f ytdlpFormat) sizeHint() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}

// YouTube is the extraction service for the video-hosting platform.
type YouTube struct {
	runner Runner
	cfg    Config
	log    *zap.Logger
}

// NewYouTube creates the video-hosting extraction service.
func NewYouTube(runner Runner, cfg Config, log *zap.Logger) *YouTube {
	return &YouTube{runner: runner, cfg: cfg, log: log}
}

// FetchMetadata runs an info-only yt-dlp invocation and normalizes the
// result. Offered formats are filtered to the delivery size ceiling and
// duplicate quality labels collapse first-seen wins.
func (y *YouTube) FetchMetadata(ctx context.Context, url string) (*VideoMetadata, error) {
	args := append([]string{url}, ytdlpSafeArgs...)
	args = append(args, ytdlpInfoArgs...)

	var info ytdlpVideoInfo
	err := y.runner.RunJSON(ctx, procrun.Spec{
		Command: y.cfg.YtdlpPath,
		Args:    args,
		Timeout: y.cfg.Timeout,
	}, &info)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataFetch, err)
	}

	return &VideoMetadata{
		ID:        info.ID,
		Title:     info.Title,
		Duration:  info.DurationString,
		Thumbnail: info.Thumbnail,
		Formats:   y.selectFormats(info.Formats),
	}, nil
}

// selectFormats keeps playable formats under the size ceiling, one per
// quality label.
func (y *YouTube) selectFormats(formats []ytdlpFormat) []FormatOption {
	seen := make(map[string]struct{})
	options := make([]FormatOption, 0, len(formats))

	for _, f := range formats {
		if f.Vcodec == "none" || f.Acodec == "none" || f.Height <= 0 {
			continue
		}
		if size := f.sizeHint(); size > 0 && size > y.cfg.MaxFileSize {
			continue
		}

		label := f.FormatNote
		if label == "" {
			label = fmt.Sprintf("%dp", f.Height)
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}

		options = append(options, FormatOption{
			Label:    label,
			Height:   f.Height,
			FileSize: f.sizeHint(),
		})
	}
	return options
}

// Download fetches the chosen variant into a fresh working folder. On any
// failure the folder is removed before the error propagates.
func (y *YouTube) Download(ctx context.Context, url, sourceID string, variant model.Variant) (*Workdir, error) {
	wd, err := NewWorkdir(y.cfg.DownloadRoot, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}

	args := append([]string{url}, ytdlpSafeArgs...)
	switch variant.MediaType {
	case model.MediaTypeAudio:
		args = append(args,
			"--embed-metadata",
			"-f", "ba/best",
			"-x", "--audio-format", "mp3",
		)
	default:
		args = append(args, "-f", videoFormatSelector(variant.Height))
	}
	args = append(args, "-P", wd.Path(), "-o", outputTemplate)

	result, err := y.runner.Run(ctx, procrun.Spec{
		Command: y.cfg.YtdlpPath,
		Args:    args,
		Timeout: y.cfg.Timeout,
	})
	if err != nil {
		wd.Remove(y.log)
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if result.ExitCode != 0 {
		wd.Remove(y.log)
		return nil, fmt.Errorf("%w: yt-dlp exited with code %d: %s",
			ErrDownload, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return wd, nil
}

// ExtractAudio transcodes a downloaded video file into a sibling mp3.
func (y *YouTube) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	return extractAudio(ctx, y.runner, y.cfg.FfmpegPath, y.cfg.Timeout, videoPath)
}

// videoFormatSelector builds a yt-dlp format expression bounded to the
// selected height, preferring mp4 renditions.
func videoFormatSelector(height int) string {
	if height <= 0 {
		return "best[ext=mp4]/best"
	}
	return fmt.Sprintf(
		"bestvideo[height<=%d][ext=mp4]+bestaudio[ext=m4a]/best[height<=%d][ext=mp4]/best[height<=%d]",
		height, height, height)
}
