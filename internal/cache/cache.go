package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/transport"
)

// Lookup and replay errors.
var (
	// ErrNotFound means no record matches the dedup key; the caller must
	// perform a fresh extraction and delivery.
	ErrNotFound = errors.New("download not found")

	// ErrReplay means the record lookup succeeded but copying the stored
	// artifact failed.
	ErrReplay = errors.New("cache replay failed")
)

// Key identifies a previously delivered variant. MediaTypes with more than
// one element match as an OR-set. Height nil omits the quality attribute
// from the lookup entirely (quality-less variants never store it).
type Key struct {
	UserID     int64
	URL        string
	Platform   model.Platform
	MediaTypes []model.MediaType
	Height     *int
}

// WithHeight returns a copy of the key constrained to the given height.
func (k Key) WithHeight(height int) Key {
	k.Height = &height
	return k
}

// Store is the persistence capability the cache depends on.
type Store interface {
	// FindDownload returns the record matching the key or ErrNotFound.
	FindDownload(ctx context.Context, key Key) (*model.DownloadRecord, error)

	// CreateDownload persists the record with find-or-create semantics:
	// a concurrent insert of the same dedup key must not produce an error.
	CreateDownload(ctx context.Context, rec *model.DownloadRecord) error

	CreateForward(ctx context.Context, fwd *model.ForwardRecord) error
	CreateForwards(ctx context.Context, fwds []model.ForwardRecord) error
}

// Replay reports a successful cache hit delivery.
type Replay struct {
	Record *model.DownloadRecord

	// FromCarousel distinguishes a batch carousel replay from a
	// single-artifact copy so callers can short-circuit variant selection.
	FromCarousel bool

	Messages []transport.SentMessage
}

// Cache replays previously delivered artifacts instead of re-downloading
// them. The persisted store is the only resource shared across
// conversations; duplicate concurrent first-time downloads of one key are
// accepted, the cache only prevents redundant future ones.
type Cache struct {
	store  Store
	client transport.Client
	log    *zap.Logger
}

// New creates a Cache.
func New(store Store, client transport.Client, log *zap.Logger) *Cache {
	return &Cache{store: store, client: client, log: log}
}

// FindAndReplay looks the key up and, on a hit, copies the stored artifact
// to destChatID. Carousel hits replay every stored item in persisted order.
// ForwardRecord persistence after a successful copy is best-effort: the user
// already has the content, a missing audit row is logged only.
func (c *Cache) FindAndReplay(ctx context.Context, key Key, destChatID int64) (*Replay, error) {
	rec, err := c.store.FindDownload(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cache lookup: %w", err)
	}

	if rec.HasCarousel() {
		return c.replayCarousel(ctx, rec, key.UserID, destChatID)
	}

	sent, err := c.client.CopyMessage(ctx, destChatID, rec.ChatID, rec.MessageID, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReplay, err)
	}

	c.saveForward(ctx, rec, key.UserID, sent)

	c.log.Info("artifact replayed from cache",
		zap.Stringer("platform", rec.Platform),
		zap.String("url", rec.URL),
		zap.Int("message_id", sent.MessageID))
	return &Replay{Record: rec, Messages: []transport.SentMessage{sent}}, nil
}

// replayCarousel copies the stored items sequentially, in persisted order,
// then batch-inserts the forward records. Items whose copy fails are skipped
// so one broken stored message does not withhold the rest, and the caller
// never falls back to a full re-delivery that would duplicate the items
// already copied. Only a fully failed replay is reported as ErrReplay.
func (c *Cache) replayCarousel(ctx context.Context, rec *model.DownloadRecord, userID, destChatID int64) (*Replay, error) {
	sent := make([]transport.SentMessage, 0, len(rec.Carousel))
	forwards := make([]model.ForwardRecord, 0, len(rec.Carousel))

	for _, item := range rec.Carousel {
		msg, err := c.client.CopyMessage(ctx, destChatID, rec.ChatID, item.MessageID, "")
		if err != nil {
			c.log.Warn("carousel item not replayable, skipping",
				zap.String("item_id", item.ItemID),
				zap.Error(err))
			continue
		}
		sent = append(sent, msg)
		forwards = append(forwards, model.ForwardRecord{
			UserID:     userID,
			ChatID:     destChatID,
			MessageID:  msg.MessageID,
			DownloadID: rec.ID,
			CreatedAt:  time.Now(),
		})
	}

	if len(sent) == 0 {
		return nil, fmt.Errorf("%w: no carousel item could be copied", ErrReplay)
	}

	if err := c.store.CreateForwards(ctx, forwards); err != nil {
		c.log.Error("failed to save forward records",
			zap.Int("count", len(forwards)), zap.Error(err))
	}

	c.log.Info("carousel replayed from cache",
		zap.String("url", rec.URL),
		zap.Int("item_count", len(sent)))
	return &Replay{Record: rec, FromCarousel: true, Messages: sent}, nil
}

// saveForward persists one audit row, logging failures only.
func (c *Cache) saveForward(ctx context.Context, rec *model.DownloadRecord, userID int64, sent transport.SentMessage) {
	fwd := &model.ForwardRecord{
		UserID:     userID,
		ChatID:     sent.ChatID,
		MessageID:  sent.MessageID,
		DownloadID: rec.ID,
		CreatedAt:  time.Now(),
	}
	if err := c.store.CreateForward(ctx, fwd); err != nil {
		c.log.Error("failed to save forward record",
			zap.Int("message_id", sent.MessageID), zap.Error(err))
	}
}

// RecordNew persists a freshly delivered artifact. Timestamps are stamped
// here so callers only fill domain fields.
func (c *Cache) RecordNew(ctx context.Context, rec *model.DownloadRecord) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := c.store.CreateDownload(ctx, rec); err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	return nil
}
