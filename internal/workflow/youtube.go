package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/cache"
	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/transport"
)

// startYouTube fetches metadata and asks for the media type.
func (m *Manager) startYouTube(ctx context.Context, wf *Workflow) error {
	m.setStatus(ctx, wf, msgAnalyzing)

	stop := m.deps.Heartbeats.Start(wf.state.ChatID, transport.ActionTyping)
	meta, err := m.deps.YouTube.FetchMetadata(ctx, wf.state.URL)
	stop()
	if err != nil {
		return err
	}
	wf.state.Video = meta

	text := meta.Title
	if meta.Duration != "" {
		text = fmt.Sprintf("%s\n⏱ %s", meta.Title, meta.Duration)
	}
	buttons := [][]transport.Button{
		{{Text: btnVideo, Data: cbVideo}},
		{{Text: btnAudio, Data: cbAudio}},
		{{Text: btnCancel, Data: cbCancel}},
	}
	prompt, err := m.deps.Client.SendButtons(ctx, wf.state.ChatID, text, meta.Thumbnail, buttons)
	if err != nil {
		return fmt.Errorf("present choices: %w", err)
	}
	m.clearMessages(ctx, wf)
	wf.state.PromptMessageID = prompt.MessageID
	wf.state.Phase = PhaseVariantSelection
	return nil
}

// chooseYouTube handles the media-type and quality selections.
func (m *Manager) chooseYouTube(ctx context.Context, wf *Workflow, data string) error {
	switch {
	case data == cbAudio:
		return m.downloadYouTube(ctx, wf, model.AudioVariant())
	case data == cbVideo:
		return m.promptYouTubeQuality(ctx, wf)
	default:
		h, ok := qualityHeight(data)
		if !ok {
			m.log.Debug("unknown selection", zap.String("data", data))
			return nil
		}
		return m.downloadYouTube(ctx, wf, model.VideoVariant(h))
	}
}

// promptYouTubeQuality replaces the media-type prompt with quality buttons,
// one per offered format.
func (m *Manager) promptYouTubeQuality(ctx context.Context, wf *Workflow) error {
	formats := wf.state.Video.Formats
	if len(formats) == 0 {
		return fmt.Errorf("no deliverable formats for %s", wf.state.URL)
	}

	buttons := make([][]transport.Button, 0, len(formats)+1)
	for _, f := range formats {
		label := f.Label
		if f.FileSize > 0 {
			label = fmt.Sprintf("%s (~%d MB)", f.Label, f.FileSize/(1<<20))
		}
		buttons = append(buttons, []transport.Button{{
			Text: label,
			Data: fmt.Sprintf("%s%d", cbQualityPref, f.Height),
		}})
	}
	buttons = append(buttons, []transport.Button{{Text: btnCancel, Data: cbCancel}})

	prompt, err := m.deps.Client.SendButtons(ctx, wf.state.ChatID, "Choose quality:", "", buttons)
	if err != nil {
		return fmt.Errorf("present qualities: %w", err)
	}
	m.clearMessages(ctx, wf)
	wf.state.PromptMessageID = prompt.MessageID
	// still awaiting a choice
	wf.state.Phase = PhaseVariantSelection
	return nil
}

// downloadYouTube runs cache check, extraction, delivery and persistence for
// the chosen variant.
func (m *Manager) downloadYouTube(ctx context.Context, wf *Workflow, variant model.Variant) error {
	wf.state.Variant = variant
	m.clearMessages(ctx, wf)

	key := cache.Key{
		UserID:     wf.state.UserID,
		URL:        wf.state.URL,
		Platform:   wf.state.Platform,
		MediaTypes: []model.MediaType{variant.MediaType},
	}
	if variant.MediaType == model.MediaTypeVideo {
		key = key.WithHeight(variant.Height)
	}
	hit, err := m.replayFromCache(ctx, wf, key)
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
	wd, err := m.deps.YouTube.Download(ctx, wf.state.URL, wf.state.Video.ID, variant)
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

	rec := &model.DownloadRecord{
		UserID:    wf.state.UserID,
		ChatID:    sent.ChatID,
		MessageID: sent.MessageID,
		URL:       wf.state.URL,
		Platform:  wf.state.Platform,
		MediaType: variant.MediaType,
		FileName:  name,
		FileSize:  size,
	}
	if variant.MediaType == model.MediaTypeVideo {
		rec.Height = variant.Height
	}
	m.persist(ctx, wf, rec)
	m.finish(ctx, wf)
	return nil
}
