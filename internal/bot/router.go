package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/platform"
	"github.com/yuklab/yuklab-bot/internal/ratelimit"
	"github.com/yuklab/yuklab-bot/internal/transport"
	"github.com/yuklab/yuklab-bot/internal/workflow"
)

const (
	ackReaction = "👀"

	msgRateLimited = "Too many requests. Give it a minute and try again."
	msgSendLink    = "Send me a YouTube, Instagram or TikTok link and I'll fetch the media."
	msgHelp        = "Paste a YouTube, Instagram or TikTok link and I'll download the media for you. Pick video or audio when asked."

	persistTimeout = 5 * time.Second
)

// UserStore persists per-user interaction records.
type UserStore interface {
	RecordActivity(ctx context.Context, act model.UserActivity) error
}

// Deps carries the router's collaborators.
type Deps struct {
	Client   transport.Client
	Flows    *workflow.Manager
	Limiter  *ratelimit.Limiter
	WarnOnce *ratelimit.ActivityThrottle
	Activity *ratelimit.ActivityThrottle
	Users    UserStore
	Log      *zap.Logger
}

// Router turns inbound transport updates into workflow actions: rate
// limiting, command replies, URL intake with a reaction acknowledgement,
// and callback dispatch.
type Router struct {
	client   transport.Client
	flows    *workflow.Manager
	limiter  *ratelimit.Limiter
	warnOnce *ratelimit.ActivityThrottle
	activity *ratelimit.ActivityThrottle
	users    UserStore
	log      *zap.Logger
}

// New creates a Router. Users may be nil, in which case activity is not
// persisted.
func New(d Deps) *Router {
	return &Router{
		client:   d.Client,
		flows:    d.Flows,
		limiter:  d.Limiter,
		warnOnce: d.WarnOnce,
		activity: d.Activity,
		users:    d.Users,
		log:      d.Log,
	}
}

// Run consumes updates until the context is cancelled. Each update is
// handled on its own goroutine; ordering within one conversation is enforced
// by the workflow manager, not here.
func (r *Router) Run(ctx context.Context, src transport.UpdateSource) error {
	updates := src.Updates(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			go r.dispatch(ctx, u)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, u transport.Update) {
	switch {
	case u.Callback != nil:
		r.flows.HandleCallback(ctx, *u.Callback)
	case u.Message != nil:
		r.handleMessage(ctx, *u.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg transport.Message) {
	if msg.IsBot {
		return
	}

	if cmd, ok := command(msg.Text); ok {
		r.recordActivity(msg, cmd)
		r.handleCommand(ctx, msg, cmd)
		return
	}
	// Plain messages only refresh the user row every so often.
	if r.activity == nil || r.activity.ShouldUpdate(msg.UserID) {
		r.recordActivity(msg, "")
	}

	if !r.limiter.Allow(msg.UserID) {
		// warn at most once per throttle window, otherwise stay silent
		if r.warnOnce.ShouldUpdate(msg.UserID) {
			if _, err := r.client.SendText(ctx, msg.ChatID, msgRateLimited); err != nil {
				r.log.Warn("rate limit notice not delivered", zap.Error(err))
			}
		}
		r.log.Info("rate limited", zap.Int64("user_id", msg.UserID))
		return
	}

	rawURL, ok := firstURL(msg.Text)
	if !ok {
		if _, err := r.client.SendText(ctx, msg.ChatID, msgSendLink); err != nil {
			r.log.Warn("hint not delivered", zap.Error(err))
		}
		return
	}
	// normalized form is what reaches the workflow and, later, the tools
	if clean, err := platform.Sanitize(rawURL); err == nil {
		rawURL = clean
	}

	// Acknowledge receipt without blocking the workflow start.
	go func() {
		if err := r.client.React(ctx, msg.ChatID, msg.MessageID, ackReaction); err != nil {
			r.log.Debug("reaction not delivered", zap.Error(err))
		}
	}()

	r.flows.HandleURL(ctx, msg, rawURL)
}

func (r *Router) handleCommand(ctx context.Context, msg transport.Message, cmd string) {
	var text string
	switch cmd {
	case "/start":
		text = welcomeText(msg.FirstName)
	case "/help":
		text = msgHelp
	default:
		text = msgSendLink
	}
	if err := r.client.SendChatAction(ctx, msg.ChatID, transport.ActionTyping); err != nil {
		r.log.Debug("chat action not delivered", zap.Error(err))
	}
	if _, err := r.client.SendText(ctx, msg.ChatID, text); err != nil {
		r.log.Warn("command reply not delivered", zap.String("command", cmd), zap.Error(err))
	}
}

// recordActivity upserts the user row in the background. Persistence
// failures are logged and never reach the user.
func (r *Router) recordActivity(msg transport.Message, cmd string) {
	if r.users == nil {
		return
	}
	act := model.UserActivity{
		UserID:    msg.UserID,
		ChatID:    msg.ChatID,
		FirstName: msg.FirstName,
		Command:   cmd,
		At:        time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := r.users.RecordActivity(ctx, act); err != nil {
			r.log.Warn("user activity not persisted", zap.Int64("user_id", act.UserID), zap.Error(err))
		}
	}()
}

func welcomeText(firstName string) string {
	greeting := "Hi"
	if firstName != "" {
		greeting = "Hi, " + firstName
	}
	return fmt.Sprintf("%s! Send me a YouTube, Instagram or TikTok link and I'll fetch the media. Type /help for details.", greeting)
}

// command extracts a leading slash command from the message, stripping any
// @botname suffix. Returns false for non-command text.
func command(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}
	cmd := fields[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), true
}

// firstURL returns the first whitespace-separated token that looks like a
// web link.
func firstURL(text string) (string, bool) {
	for _, token := range strings.Fields(text) {
		if strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://") {
			return token, true
		}
	}
	return "", false
}
