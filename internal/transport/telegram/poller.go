package telegram

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/transport"
)

const (
	// pollTimeout is the long-poll hold time requested from the API.
	pollTimeout = 30 * time.Second

	// pollRetryDelay spaces out retries after a failed getUpdates call so a
	// dead network does not turn into a hot loop.
	pollRetryDelay = 3 * time.Second
)

type apiUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
}

type apiInboundMessage struct {
	MessageID int     `json:"message_id"`
	From      apiUser `json:"from"`
	Chat      apiChat `json:"chat"`
	Text      string  `json:"text"`
}

type apiCallbackQuery struct {
	ID      string             `json:"id"`
	From    apiUser            `json:"from"`
	Message *apiInboundMessage `json:"message"`
	Data    string             `json:"data"`
}

type apiUpdate struct {
	UpdateID int64              `json:"update_id"`
	Message  *apiInboundMessage `json:"message"`
	Callback *apiCallbackQuery  `json:"callback_query"`
}

// Poller is a long-poll transport.UpdateSource on top of getUpdates.
type Poller struct {
	client *Client
	log    *zap.Logger
}

// NewPoller creates a Poller for the client.
func NewPoller(client *Client, log *zap.Logger) *Poller {
	return &Poller{client: client, log: log}
}

// Updates polls until ctx is cancelled, yielding normalized updates. The
// returned channel is closed on shutdown.
func (p *Poller) Updates(ctx context.Context) <-chan transport.Update {
	out := make(chan transport.Update)
	go p.loop(ctx, out)
	return out
}

func (p *Poller) loop(ctx context.Context, out chan<- transport.Update) {
	defer close(out)
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := p.fetch(ctx, offset)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			p.log.Warn("getUpdates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			normalized, ok := normalize(u)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- normalized:
			}
		}
	}
}

func (p *Poller) fetch(ctx context.Context, offset int64) ([]apiUpdate, error) {
	params := map[string]any{
		"timeout":         int(pollTimeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	if offset > 0 {
		params["offset"] = offset
	}
	var updates []apiUpdate
	if err := p.client.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// normalize maps an API update onto the transport type; updates carrying
// neither a text message nor a callback are dropped.
func normalize(u apiUpdate) (transport.Update, bool) {
	switch {
	case u.Message != nil:
		return transport.Update{Message: &transport.Message{
			ChatID:    u.Message.Chat.ID,
			MessageID: u.Message.MessageID,
			UserID:    u.Message.From.ID,
			FirstName: u.Message.From.FirstName,
			IsBot:     u.Message.From.IsBot,
			Text:      u.Message.Text,
		}}, true
	case u.Callback != nil && u.Callback.Message != nil:
		return transport.Update{Callback: &transport.Callback{
			ID:        u.Callback.ID,
			ChatID:    u.Callback.Message.Chat.ID,
			MessageID: u.Callback.Message.MessageID,
			UserID:    u.Callback.From.ID,
			Data:      u.Callback.Data,
		}}, true
	default:
		return transport.Update{}, false
	}
}
