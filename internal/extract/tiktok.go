package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/procrun"
)

// TikTok is the extraction service for the short-video platform.
type TikTok struct {
	runner Runner
	cfg    Config
	log    *zap.Logger
}

// NewTikTok creates the short-video extraction service.
func NewTikTok(runner Runner, cfg Config, log *zap.Logger) *TikTok {
	return &TikTok{runner: runner, cfg: cfg, log: log}
}

// baseArgs are appended to every invocation: pacing args plus the optional
// proxy and the watermark-free extractor host.
func (t *TikTok) baseArgs() []string {
	args := append([]string{}, ytdlpSafeArgs...)
	if t.cfg.TiktokProxy != "" {
		args = append(args, "--proxy", t.cfg.TiktokProxy)
	}
	args = append(args, tiktokNoWatermarkArgs...)
	return args
}

// FetchMetadata runs an info-only yt-dlp invocation.
func (t *TikTok) FetchMetadata(ctx context.Context, url string) (*ShortVideoMetadata, error) {
	args := append([]string{url}, t.baseArgs()...)
	args = append(args, ytdlpInfoArgs...)

	var info ytdlpVideoInfo
	err := t.runner.RunJSON(ctx, procrun.Spec{
		Command: t.cfg.YtdlpPath,
		Args:    args,
		Timeout: t.cfg.Timeout,
	}, &info)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataFetch, err)
	}

	size := info.Filesize
	if size == 0 {
		size = info.FilesizeApprox
	}
	return &ShortVideoMetadata{
		ID:       info.ID,
		Title:    info.Title,
		Duration: info.Duration,
		FileSize: size,
	}, nil
}

// FitsSizeLimit reports whether the clip is within the delivery ceiling.
// Unknown sizes pass; the limit is re-checked after download.
func (t *TikTok) FitsSizeLimit(meta *ShortVideoMetadata) bool {
	return meta.FileSize <= t.cfg.MaxFileSize
}

// Download fetches the chosen variant into a fresh working folder. Audio is
// extracted by yt-dlp itself (-x) rather than a separate transcode pass. On
// any failure the folder is removed before the error propagates.
func (t *TikTok) Download(ctx context.Context, url, sourceID string, variant model.Variant) (*Workdir, error) {
	if variant.MediaType == model.MediaTypeAudio {
		sourceID += "_audio"
	}
	wd, err := NewWorkdir(t.cfg.DownloadRoot, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}

	args := append([]string{url}, t.baseArgs()...)
	switch variant.MediaType {
	case model.MediaTypeAudio:
		args = append(args,
			"--embed-metadata",
			"-f", "ba/best",
			"-x", "--audio-format", "mp3",
		)
	default:
		args = append(args, "-f", "best[ext=mp4]/best")
	}
	args = append(args, "-P", wd.Path(), "-o", outputTemplate)

	result, err := t.runner.Run(ctx, procrun.Spec{
		Command: t.cfg.YtdlpPath,
		Args:    args,
		Timeout: t.cfg.Timeout,
	})
	if err != nil {
		wd.Remove(t.log)
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if result.ExitCode != 0 {
		wd.Remove(t.log)
		return nil, fmt.Errorf("%w: yt-dlp exited with code %d: %s",
			ErrDownload, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return wd, nil
}
