package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/cache"
	"github.com/yuklab/yuklab-bot/internal/extract"
	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/transport"
)

// startInstagram checks the cache for non-interactive kinds, fetches
// metadata and either delivers immediately (post, image) or asks for a
// media type (video, reel).
func (m *Manager) startInstagram(ctx context.Context, wf *Workflow) error {
	// Posts and single images need no variant choice, so a previous
	// delivery can be replayed before any subprocess runs.
	hit, err := m.replayFromCache(ctx, wf, cache.Key{
		UserID:     wf.state.UserID,
		URL:        wf.state.URL,
		Platform:   wf.state.Platform,
		MediaTypes: []model.MediaType{model.MediaTypePost, model.MediaTypeImage},
	})
	if err != nil {
		return err
	}
	if hit {
		m.finish(ctx, wf)
		return nil
	}

	m.setStatus(ctx, wf, msgAnalyzing)
	stop := m.deps.Heartbeats.Start(wf.state.ChatID, transport.ActionTyping)
	meta, err := m.deps.Instagram.FetchMetadata(ctx, wf.state.URL)
	stop()
	if err != nil {
		return err
	}
	wf.state.Post = meta

	switch meta.MediaType {
	case model.MediaTypePost:
		return m.deliverCarousel(ctx, wf, meta)
	case model.MediaTypeImage:
		return m.deliverInstagramImage(ctx, wf, meta)
	default:
		return m.promptInstagramChoice(ctx, wf, meta)
	}
}

// promptInstagramChoice asks video or audio for a single-video post.
func (m *Manager) promptInstagramChoice(ctx context.Context, wf *Workflow, meta *extract.PostMetadata) error {
	buttons := [][]transport.Button{
		{{Text: btnVideo, Data: cbVideo}},
		{{Text: btnAudio, Data: cbAudio}},
		{{Text: btnCancel, Data: cbCancel}},
	}
	prompt, err := m.deps.Client.SendButtons(ctx, wf.state.ChatID, meta.Title, meta.Thumbnail, buttons)
	if err != nil {
		return fmt.Errorf("present choices: %w", err)
	}
	m.clearMessages(ctx, wf)
	wf.state.PromptMessageID = prompt.MessageID
	wf.state.Phase = PhaseVariantSelection
	return nil
}

// chooseInstagram handles the video/audio selection for a single-video post.
func (m *Manager) chooseInstagram(ctx context.Context, wf *Workflow, data string) error {
	switch data {
	case cbVideo:
		return m.deliverInstagramVideo(ctx, wf)
	case cbAudio:
		return m.deliverInstagramAudio(ctx, wf)
	default:
		m.log.Debug("unknown selection", zap.String("data", data))
		return nil
	}
}

// deliverInstagramImage sends the single image by URL and records it.
func (m *Manager) deliverInstagramImage(ctx context.Context, wf *Workflow, meta *extract.PostMetadata) error {
	wf.state.Phase = PhaseDelivering
	sent, err := m.deps.Client.SendPhotoURL(ctx, wf.state.ChatID, meta.ImageURL)
	if err != nil {
		return fmt.Errorf("deliver image: %w", err)
	}
	m.persist(ctx, wf, &model.DownloadRecord{
		UserID:    wf.state.UserID,
		ChatID:    sent.ChatID,
		MessageID: sent.MessageID,
		URL:       wf.state.URL,
		Platform:  wf.state.Platform,
		MediaType: model.MediaTypeImage,
		FileName:  meta.Title,
	})
	m.finish(ctx, wf)
	return nil
}

// deliverInstagramVideo sends the video by direct URL; the transport fetches
// it, so no subprocess or working folder is involved.
func (m *Manager) deliverInstagramVideo(ctx context.Context, wf *Workflow) error {
	meta := wf.state.Post
	wf.state.Variant = model.VideoVariant(0)
	m.clearMessages(ctx, wf)

	hit, err := m.replayFromCache(ctx, wf, cache.Key{
		UserID:     wf.state.UserID,
		URL:        wf.state.URL,
		Platform:   wf.state.Platform,
		MediaTypes: []model.MediaType{model.MediaTypeVideo, model.MediaTypeReel},
	})
	if err != nil {
		return err
	}
	if hit {
		m.finish(ctx, wf)
		return nil
	}

	wf.state.Phase = PhaseDelivering
	stop := m.deps.Heartbeats.Start(wf.state.ChatID, transport.ActionUploadVideo)
	sent, err := m.deps.Client.SendVideoURL(ctx, wf.state.ChatID, meta.VideoURL)
	stop()
	if err != nil {
		return fmt.Errorf("deliver video: %w", err)
	}

	m.persist(ctx, wf, &model.DownloadRecord{
		UserID:    wf.state.UserID,
		ChatID:    sent.ChatID,
		MessageID: sent.MessageID,
		URL:       wf.state.URL,
		Platform:  wf.state.Platform,
		MediaType: meta.MediaType, // video or reel
		FileName:  meta.Title,
	})
	m.finish(ctx, wf)
	return nil
}

// deliverInstagramAudio downloads the video into a working folder, extracts
// the soundtrack and sends the resulting file.
func (m *Manager) deliverInstagramAudio(ctx context.Context, wf *Workflow) error {
	meta := wf.state.Post
	wf.state.Variant = model.AudioVariant()
	m.clearMessages(ctx, wf)

	hit, err := m.replayFromCache(ctx, wf, cache.Key{
		UserID:     wf.state.UserID,
		URL:        wf.state.URL,
		Platform:   wf.state.Platform,
		MediaTypes: []model.MediaType{model.MediaTypeAudio},
	})
	if err != nil {
		return err
	}
	if hit {
		m.finish(ctx, wf)
		return nil
	}

	m.setStatus(ctx, wf, msgDownloading)
	wf.state.Phase = PhaseExtracting
	stop := m.deps.Heartbeats.Start(wf.state.ChatID, transport.ActionUploadAudio)
	wd, err := m.deps.Instagram.Download(ctx, wf.state.URL, meta.SourceID())
	if err != nil {
		stop()
		return err
	}
	defer wd.Remove(m.log)

	videoPath, err := wd.FirstFile()
	if err != nil {
		stop()
		return err
	}
	audioPath, err := m.deps.Instagram.ExtractAudio(ctx, videoPath)
	stop()
	if err != nil {
		return err
	}

	wf.state.Phase = PhaseDelivering
	stop = m.deps.Heartbeats.Start(wf.state.ChatID, transport.ActionUploadAudio)
	sent, name, size, err := m.deliverFile(ctx, wf, audioPath, model.MediaTypeAudio)
	stop()
	if err != nil {
		return err
	}

	m.persist(ctx, wf, &model.DownloadRecord{
		UserID:    wf.state.UserID,
		ChatID:    sent.ChatID,
		MessageID: sent.MessageID,
		URL:       wf.state.URL,
		Platform:  wf.state.Platform,
		MediaType: model.MediaTypeAudio,
		FileName:  name,
		FileSize:  size,
	})
	m.finish(ctx, wf)
	return nil
}

// deliverCarousel sends every item sequentially in source order. The
// transport does not guarantee ordering for concurrent sends, so sequential
// delivery here is a correctness choice. A failed item is logged and
// skipped; the record is persisted only when at least one item made it.
func (m *Manager) deliverCarousel(ctx context.Context, wf *Workflow, meta *extract.PostMetadata) error {
	wf.state.Phase = PhaseDelivering
	stop := m.deps.Heartbeats.Start(wf.state.ChatID, transport.ActionUploadPhoto)
	defer stop()

	delivered := make([]model.CarouselItem, 0, len(meta.Carousel))
	for _, item := range meta.Carousel {
		if item.MediaType == model.MediaTypeVideo {
			sent, err := m.deps.Client.SendVideoURL(ctx, wf.state.ChatID, item.VideoURL)
			if err != nil {
				m.log.Warn("carousel item skipped",
					zap.String("item_id", item.ID), zap.Error(err))
				continue
			}
			delivered = append(delivered, model.CarouselItem{
				MessageID: sent.MessageID,
				ItemID:    item.ID,
				MediaType: model.MediaTypeVideo,
			})
			if item.Thumbnail != "" {
				tsent, err := m.deps.Client.SendPhotoURL(ctx, wf.state.ChatID, item.Thumbnail)
				if err != nil {
					m.log.Warn("carousel thumbnail skipped",
						zap.String("item_id", item.ID), zap.Error(err))
					continue
				}
				delivered = append(delivered, model.CarouselItem{
					MessageID: tsent.MessageID,
					ItemID:    item.ID + "_thumbnail",
					MediaType: model.MediaTypeImage,
				})
			}
			continue
		}

		sent, err := m.deps.Client.SendPhotoURL(ctx, wf.state.ChatID, item.ImageURL)
		if err != nil {
			m.log.Warn("carousel item skipped",
				zap.String("item_id", item.ID), zap.Error(err))
			continue
		}
		delivered = append(delivered, model.CarouselItem{
			MessageID: sent.MessageID,
			ItemID:    item.ID,
			MediaType: model.MediaTypeImage,
		})
	}

	if len(delivered) == 0 {
		return fmt.Errorf("carousel delivery: all %d items failed", len(meta.Carousel))
	}

	m.persist(ctx, wf, &model.DownloadRecord{
		UserID:    wf.state.UserID,
		ChatID:    wf.state.ChatID,
		MessageID: delivered[0].MessageID,
		URL:       wf.state.URL,
		Platform:  wf.state.Platform,
		MediaType: model.MediaTypePost,
		FileName:  meta.Title,
		Carousel:  delivered,
	})
	m.finish(ctx, wf)
	return nil
}
