package workflow

import (
	"context"

	"github.com/yuklab/yuklab-bot/internal/cache"
	"github.com/yuklab/yuklab-bot/internal/extract"
	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/transport"
)

// VideoService fetches metadata and downloads variants of a video-hosting
// URL.
type VideoService interface {
	FetchMetadata(ctx context.Context, url string) (*extract.VideoMetadata, error)
	Download(ctx context.Context, url, sourceID string, variant model.Variant) (*extract.Workdir, error)
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
}

// PostService fetches metadata and downloads media of a photo/carousel URL.
type PostService interface {
	FetchMetadata(ctx context.Context, url string) (*extract.PostMetadata, error)
	Download(ctx context.Context, url, sourceID string) (*extract.Workdir, error)
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
}

// ShortVideoService fetches metadata and downloads variants of a short-video
// URL.
type ShortVideoService interface {
	FetchMetadata(ctx context.Context, url string) (*extract.ShortVideoMetadata, error)
	FitsSizeLimit(meta *extract.ShortVideoMetadata) bool
	Download(ctx context.Context, url, sourceID string, variant model.Variant) (*extract.Workdir, error)
}

// Replayer is the dedup layer consulted before any extraction.
type Replayer interface {
	FindAndReplay(ctx context.Context, key cache.Key, destChatID int64) (*cache.Replay, error)
	RecordNew(ctx context.Context, rec *model.DownloadRecord) error
}

// Heartbeats keeps the transport liveness signal running around blocking
// phases.
type Heartbeats interface {
	Start(chatID int64, action transport.ChatAction) func()
	Stop(chatID int64)
}
