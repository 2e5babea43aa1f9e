package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/procrun"
)

// galleryDlEntry mirrors the subset of gallery-dl metadata the bot reads.
type galleryDlEntry struct {
	ID          json.Number `json:"id"`
	MediaID     json.Number `json:"media_id"`
	Shortcode   string      `json:"shortcode"`
	Title       string      `json:"title"`
	Caption     string      `json:"description"`
	Type        string      `json:"type"`
	Subcategory string      `json:"subcategory"`
	VideoURL    string      `json:"video_url"`
	DisplayURL  string      `json:"display_url"`
	URL         string      `json:"url"`
	Thumbnail   string      `json:"thumbnail"`
	IsVideo     bool        `json:"is_video"`
}

// isVideoEntry reports whether the entry carries a playable video.
func (e *galleryDlEntry) isVideoEntry() bool {
	return e.IsVideo || e.VideoURL != ""
}

// imageURL returns the best available still-image URL.
func (e *galleryDlEntry) imageURL() string {
	if e.DisplayURL != "" {
		return e.DisplayURL
	}
	return e.URL
}

// Instagram is the extraction service for the photo/carousel platform.
type Instagram struct {
	runner Runner
	cfg    Config
	log    *zap.Logger
}

// NewInstagram creates the photo/carousel extraction service.
func NewInstagram(runner Runner, cfg Config, log *zap.Logger) *Instagram {
	return &Instagram{runner: runner, cfg: cfg, log: log}
}

// FetchMetadata runs gallery-dl in dump-json mode and normalizes the output.
// gallery-dl emits an array of arrays: length-2 entries are post metadata,
// length>=3 entries are individual media items in source order.
func (i *Instagram) FetchMetadata(ctx context.Context, url string) (*PostMetadata, error) {
	if i.cfg.InstagramCookies == "" {
		return nil, fmt.Errorf("%w: no cookies configured", ErrMetadataFetch)
	}

	args := []string{url, "--dump-json", "--cookies", i.cfg.InstagramCookies}

	var raw []json.RawMessage
	err := i.runner.RunJSON(ctx, procrun.Spec{
		Command: i.cfg.GalleryDlPath,
		Args:    args,
		Timeout: i.cfg.Timeout,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataFetch, err)
	}

	postMeta, items := splitEntries(raw)
	meta, err := normalizePost(postMeta, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataFetch, err)
	}
	return meta, nil
}

// splitEntries separates post metadata from media items.
func splitEntries(raw []json.RawMessage) (*galleryDlEntry, []*galleryDlEntry) {
	var postMeta *galleryDlEntry
	var items []*galleryDlEntry

	for _, entry := range raw {
		var parts []json.RawMessage
		if json.Unmarshal(entry, &parts) != nil {
			continue
		}
		switch {
		case len(parts) >= 3:
			var item galleryDlEntry
			if json.Unmarshal(parts[2], &item) == nil && (item.VideoURL != "" || item.DisplayURL != "") {
				items = append(items, &item)
			}
		case len(parts) == 2:
			var meta galleryDlEntry
			if json.Unmarshal(parts[1], &meta) == nil {
				postMeta = &meta
			}
		}
	}
	return postMeta, items
}

// normalizePost builds the normalized metadata. Stories and reels use only
// the first relevant entry and never carry a carousel, even when the tool
// returned several raw entries.
func normalizePost(postMeta *galleryDlEntry, items []*galleryDlEntry) (*PostMetadata, error) {
	primary := postMeta
	if len(items) > 0 {
		primary = items[0]
	}
	if primary == nil {
		return nil, fmt.Errorf("no usable entries in gallery-dl output")
	}

	meta := &PostMetadata{
		ID:        primary.ID.String(),
		Shortcode: primary.Shortcode,
		Title:     entryTitle(primary),
		Thumbnail: primary.Thumbnail,
	}
	if postMeta != nil {
		if meta.Shortcode == "" {
			meta.Shortcode = postMeta.Shortcode
		}
		if meta.Title == "" {
			meta.Title = entryTitle(postMeta)
		}
	}

	switch {
	case isKind(postMeta, items, "story"):
		if primary.isVideoEntry() {
			meta.MediaType = model.MediaTypeVideo
			meta.VideoURL = primary.VideoURL
			meta.ImageURL = primary.imageURL()
		} else {
			meta.MediaType = model.MediaTypeImage
			meta.ImageURL = primary.imageURL()
		}
	case isKind(postMeta, items, "reel"):
		meta.MediaType = model.MediaTypeReel
		meta.VideoURL = primary.VideoURL
		meta.ImageURL = primary.imageURL()
	case len(items) > 0:
		meta.MediaType = model.MediaTypePost
		meta.Carousel = make([]CarouselEntry, 0, len(items))
		for _, item := range items {
			meta.Carousel = append(meta.Carousel, normalizeItem(item))
		}
	default:
		meta.MediaType = model.MediaTypeImage
		meta.ImageURL = primary.imageURL()
	}

	return meta, nil
}

// normalizeItem classifies one carousel item as video or image.
func normalizeItem(item *galleryDlEntry) CarouselEntry {
	entry := CarouselEntry{
		ID:        itemID(item),
		ImageURL:  item.imageURL(),
		Thumbnail: item.Thumbnail,
	}
	if entry.Thumbnail == "" {
		entry.Thumbnail = item.DisplayURL
	}
	if item.isVideoEntry() {
		entry.MediaType = model.MediaTypeVideo
		entry.VideoURL = item.VideoURL
	} else {
		entry.MediaType = model.MediaTypeImage
	}
	return entry
}

// itemID prefers the media id over the post id.
func itemID(item *galleryDlEntry) string {
	if item.MediaID.String() != "" {
		return item.MediaID.String()
	}
	return item.ID.String()
}

// entryTitle falls back to a caption prefix when there is no title.
func entryTitle(e *galleryDlEntry) string {
	if e.Title != "" {
		return e.Title
	}
	if len(e.Caption) > 100 {
		return e.Caption[:100]
	}
	return e.Caption
}

// isKind checks the post type/subcategory markers across metadata and items.
func isKind(postMeta *galleryDlEntry, items []*galleryDlEntry, kind string) bool {
	if postMeta != nil && (postMeta.Type == kind || postMeta.Subcategory == kind) {
		return true
	}
	if len(items) > 0 && (items[0].Type == kind || items[0].Subcategory == kind) {
		return true
	}
	return false
}

// Download fetches the post's raw files into a fresh working folder. On any
// failure the folder is removed before the error propagates.
func (i *Instagram) Download(ctx context.Context, url, sourceID string) (*Workdir, error) {
	wd, err := NewWorkdir(i.cfg.DownloadRoot, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}

	args := []string{
		url,
		"--destination", wd.Path(),
		"--directory", "",
		"--no-part",
	}
	if i.cfg.InstagramCookies != "" {
		args = append(args, "--cookies", i.cfg.InstagramCookies)
	}

	result, err := i.runner.Run(ctx, procrun.Spec{
		Command: i.cfg.GalleryDlPath,
		Args:    args,
		Timeout: i.cfg.Timeout,
	})
	if err != nil {
		wd.Remove(i.log)
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if result.ExitCode != 0 {
		wd.Remove(i.log)
		return nil, fmt.Errorf("%w: gallery-dl exited with code %d: %s",
			ErrDownload, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return wd, nil
}

// ExtractAudio transcodes a downloaded video file into a sibling mp3.
func (i *Instagram) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	return extractAudio(ctx, i.runner, i.cfg.FfmpegPath, i.cfg.Timeout, videoPath)
}
