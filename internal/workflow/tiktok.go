package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/cache"
	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/transport"
)

// startTikTok fetches metadata, enforces the size ceiling and asks for the
// media type. TikTok offers no quality ladder, so the choice is binary.
func (m *Manager) startTikTok(ctx context.Context, wf *Workflow) error {
	m.setStatus(ctx, wf, msgAnalyzing)

	stop := m.deps.Heartbeats.Start(wf.state.ChatID, transport.ActionTyping)
	meta, err := m.deps.TikTok.FetchMetadata(ctx, wf.state.URL)
	stop()
	if err != nil {
		return err
	}
	if !m.deps.TikTok.FitsSizeLimit(meta) {
		return fmt.Errorf("%w: %d bytes", errTooBig, meta.FileSize)
	}
	wf.state.Short = meta

	buttons := [][]transport.Button{
		{{Text: btnVideo, Data: cbVideo}},
		{{Text: btnAudio, Data: cbAudio}},
		{{Text: btnCancel, Data: cbCancel}},
	}
	prompt, err := m.deps.Client.SendButtons(ctx, wf.state.ChatID, meta.Title, "", buttons)
	if err != nil {
		return fmt.Errorf("present choices: %w", err)
	}
	m.clearMessages(ctx, wf)
	wf.state.PromptMessageID = prompt.MessageID
	wf.state.Phase = PhaseVariantSelection
	return nil
}

// chooseTikTok handles the video/audio selection.
func (m *Manager) chooseTikTok(ctx context.Context, wf *Workflow, data string) error {
	switch data {
	case cbVideo:
		return m.downloadTikTok(ctx, wf, model.Variant{MediaType: model.MediaTypeVideo})
	case cbAudio:
		return m.downloadTikTok(ctx, wf, model.AudioVariant())
	default:
		m.log.Debug("unknown selection", zap.String("data", data))
		return nil
	}
}

// downloadTikTok runs cache check, extraction, delivery and persistence for
// the chosen variant.
func (m *Manager) downloadTikTok(ctx context.Context, wf *Workflow, variant model.Variant) error {
	wf.state.Variant = variant
	m.clearMessages(ctx, wf)

	hit, err := m.replayFromCache(ctx, wf, cache.Key{
		UserID:     wf.state.UserID,
		URL:        wf.state.URL,
		Platform:   wf.state.Platform,
		MediaTypes: []model.MediaType{variant.MediaType},
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
	stop := m.deps.Heartbeats.Start(wf.state.ChatID, actionFor(variant.MediaType))
	wd, err := m.deps.TikTok.Download(ctx, wf.state.URL, wf.state.Short.ID, variant)
	stop()
	if err != nil {
		return err
	}
	defer wd.Remove(m.log)

	path, err := wd.FirstFile()
	if err != nil {
		return err
	}
	wf.state.Phase = PhaseDelivering
	stop = m.deps.Heartbeats.Start(wf.state.ChatID, actionFor(variant.MediaType))
	sent, name, size, err := m.deliverFile(ctx, wf, path, variant.MediaType)
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
		MediaType: variant.MediaType,
		FileName:  name,
		FileSize:  size,
	})
	m.finish(ctx, wf)
	return nil
}
