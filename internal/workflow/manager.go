package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/cache"
	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/platform"
	"github.com/yuklab/yuklab-bot/internal/transport"
)

// errTooBig aborts a workflow whose artifact exceeds the delivery ceiling.
var errTooBig = errors.New("artifact exceeds size limit")

// Deps are the collaborators a Manager drives.
type Deps struct {
	Client     transport.Client
	Cache      Replayer
	Heartbeats Heartbeats
	YouTube    VideoService
	Instagram  PostService
	TikTok     ShortVideoService

	// MaxFileSize is the delivery ceiling in bytes; 0 disables the check.
	MaxFileSize int64
}

// Workflow is one in-flight wizard instance. Its mutex serializes all steps
// of one conversation; long phases hold it, which is how interactive input
// during extraction is rejected instead of interleaved.
type Workflow struct {
	mu    sync.Mutex
	state State
}

// Manager owns at most one Workflow per chat and routes transport updates
// into it.
type Manager struct {
	deps Deps
	log  *zap.Logger

	mu     sync.Mutex
	active map[int64]*Workflow
}

// NewManager creates a Manager.
func NewManager(deps Deps, log *zap.Logger) *Manager {
	return &Manager{
		deps:   deps,
		log:    log,
		active: make(map[int64]*Workflow),
	}
}

// Active reports whether the chat has an in-flight workflow.
func (m *Manager) Active(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[chatID]
	return ok
}

// HandleURL starts a workflow for an inbound URL. A chat with an in-flight
// workflow gets an in-progress notice; the running workflow is never
// interrupted.
func (m *Manager) HandleURL(ctx context.Context, msg transport.Message, rawURL string) {
	p, err := platform.Resolve(rawURL)
	if err != nil {
		m.log.Info("rejected url",
			zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		m.notify(ctx, msg.ChatID, urlErrorText(err))
		return
	}

	wf := &Workflow{state: State{
		Phase:     PhaseResolving,
		ChatID:    msg.ChatID,
		UserID:    msg.UserID,
		MessageID: msg.MessageID,
		URL:       rawURL,
		Platform:  p,
	}}
	if !m.register(wf) {
		m.notify(ctx, msg.ChatID, msgInProgress)
		return
	}

	wf.mu.Lock()
	defer wf.mu.Unlock()
	m.log.Info("workflow started",
		zap.Int64("chat_id", msg.ChatID),
		zap.Stringer("platform", p),
		zap.String("url", rawURL))
	if err := m.start(ctx, wf); err != nil {
		m.fail(ctx, wf, err)
	}
}

// HandleCallback routes an inline-button selection into the chat's workflow.
// Selections are only honored at interactive checkpoints; taps landing
// during a blocking phase, or on stale buttons of a finished workflow, are
// acknowledged and dropped.
func (m *Manager) HandleCallback(ctx context.Context, cb transport.Callback) {
	if err := m.deps.Client.AnswerCallback(ctx, cb.ID); err != nil {
		m.log.Warn("answer callback failed", zap.Error(err))
	}

	wf := m.lookup(cb.ChatID)
	if wf == nil {
		return
	}
	if !wf.mu.TryLock() {
		// A blocking phase holds the workflow; input waits for no one.
		return
	}
	defer wf.mu.Unlock()
	if wf.state.Phase != PhaseVariantSelection {
		return
	}

	if cb.Data == cbCancel {
		m.cancel(ctx, wf)
		return
	}
	if err := m.choose(ctx, wf, cb.Data); err != nil {
		m.fail(ctx, wf, err)
	}
}

// start runs the platform flow up to its first interactive checkpoint or,
// for flows with nothing to ask, all the way to completion.
func (m *Manager) start(ctx context.Context, wf *Workflow) error {
	switch wf.state.Platform {
	case model.PlatformYouTube:
		return m.startYouTube(ctx, wf)
	case model.PlatformInstagram:
		return m.startInstagram(ctx, wf)
	case model.PlatformTikTok:
		return m.startTikTok(ctx, wf)
	default:
		return fmt.Errorf("no flow for platform %s", wf.state.Platform)
	}
}

// choose resumes a workflow with the user's variant selection.
func (m *Manager) choose(ctx context.Context, wf *Workflow, data string) error {
	switch wf.state.Platform {
	case model.PlatformYouTube:
		return m.chooseYouTube(ctx, wf, data)
	case model.PlatformInstagram:
		return m.chooseInstagram(ctx, wf, data)
	case model.PlatformTikTok:
		return m.chooseTikTok(ctx, wf, data)
	default:
		return fmt.Errorf("no flow for platform %s", wf.state.Platform)
	}
}

func (m *Manager) register(wf *Workflow) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.active[wf.state.ChatID]; busy {
		return false
	}
	m.active[wf.state.ChatID] = wf
	return true
}

func (m *Manager) lookup(chatID int64) *Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[chatID]
}

func (m *Manager) unregister(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, chatID)
}

// finish completes a workflow successfully and returns the chat to idle.
func (m *Manager) finish(ctx context.Context, wf *Workflow) {
	m.clearMessages(ctx, wf)
	m.unregister(wf.state.ChatID)
	m.log.Info("workflow finished",
		zap.Int64("chat_id", wf.state.ChatID),
		zap.Stringer("platform", wf.state.Platform))
}

// cancel terminates a workflow on explicit user request. Nothing has been
// downloaded at any interactive checkpoint, so there is nothing to clean up
// beyond the chat messages.
func (m *Manager) cancel(ctx context.Context, wf *Workflow) {
	m.deps.Heartbeats.Stop(wf.state.ChatID)
	m.clearMessages(ctx, wf)
	m.notify(ctx, wf.state.ChatID, msgCancelled)
	m.unregister(wf.state.ChatID)
	m.log.Info("workflow cancelled", zap.Int64("chat_id", wf.state.ChatID))
}

// fail terminates a workflow on error. The heartbeat is torn down before the
// error notice goes out so the transport stops expecting liveness first.
func (m *Manager) fail(ctx context.Context, wf *Workflow, err error) {
	m.deps.Heartbeats.Stop(wf.state.ChatID)
	m.clearMessages(ctx, wf)
	m.notify(ctx, wf.state.ChatID, failureText(err))
	m.unregister(wf.state.ChatID)
	m.log.Error("workflow failed",
		zap.Int64("chat_id", wf.state.ChatID),
		zap.Stringer("platform", wf.state.Platform),
		zap.Stringer("phase", wf.state.Phase),
		zap.String("url", wf.state.URL),
		zap.Error(err))
}

// notify sends a plain notice, logging delivery failures only.
func (m *Manager) notify(ctx context.Context, chatID int64, text string) {
	if _, err := m.deps.Client.SendText(ctx, chatID, text); err != nil {
		m.log.Warn("notice not delivered",
			zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// clearMessages removes the workflow's prompt and status messages,
// best-effort.
func (m *Manager) clearMessages(ctx context.Context, wf *Workflow) {
	for _, id := range []int{wf.state.PromptMessageID, wf.state.StatusMessageID} {
		if id == 0 {
			continue
		}
		if err := m.deps.Client.DeleteMessage(ctx, wf.state.ChatID, id); err != nil {
			m.log.Debug("message cleanup failed",
				zap.Int("message_id", id), zap.Error(err))
		}
	}
	wf.state.PromptMessageID = 0
	wf.state.StatusMessageID = 0
}

// setStatus replaces the workflow's progress notice.
func (m *Manager) setStatus(ctx context.Context, wf *Workflow, text string) {
	if wf.state.StatusMessageID != 0 {
		if err := m.deps.Client.EditText(ctx, wf.state.ChatID, wf.state.StatusMessageID, text); err == nil {
			return
		}
		// fall through to a fresh message when the edit is rejected
	}
	sent, err := m.deps.Client.SendText(ctx, wf.state.ChatID, text)
	if err != nil {
		m.log.Warn("status not delivered", zap.Error(err))
		return
	}
	wf.state.StatusMessageID = sent.MessageID
}

// replayFromCache checks the dedup layer and reports whether the artifact
// was replayed. A broken replay (stored message gone) is treated as a miss
// so the workflow falls back to a fresh extraction.
func (m *Manager) replayFromCache(ctx context.Context, wf *Workflow, key cache.Key) (bool, error) {
	wf.state.Phase = PhaseCacheCheck
	_, err := m.deps.Cache.FindAndReplay(ctx, key, wf.state.ChatID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cache.ErrNotFound):
		return false, nil
	case errors.Is(err, cache.ErrReplay):
		m.log.Warn("cache replay broken, re-downloading",
			zap.String("url", key.URL), zap.Error(err))
		return false, nil
	default:
		return false, err
	}
}

// persist records a successful delivery. Failures are logged and swallowed:
// the user already has the content, a missing record is not their problem.
func (m *Manager) persist(ctx context.Context, wf *Workflow, rec *model.DownloadRecord) {
	wf.state.Phase = PhasePersisting
	if err := m.deps.Cache.RecordNew(ctx, rec); err != nil {
		m.log.Error("delivery not recorded",
			zap.String("url", rec.URL), zap.Error(err))
	}
}

// urlErrorText maps resolver errors to their user-actionable notices.
func urlErrorText(err error) string {
	if errors.Is(err, platform.ErrUnsupportedPlatform) {
		return msgUnsupported
	}
	return msgInvalidURL
}

// failureText maps a workflow failure to its user notice. Only size-limit
// violations carry detail; everything else is a generic retry prompt.
func failureText(err error) string {
	switch {
	case errors.Is(err, errTooBig):
		return msgTooBig
	case errors.Is(err, platform.ErrInvalidURL):
		return msgInvalidURL
	case errors.Is(err, platform.ErrUnsupportedPlatform):
		return msgUnsupported
	default:
		return msgFailed
	}
}

// qualityHeight parses a "q:<height>" callback payload.
func qualityHeight(data string) (int, bool) {
	raw, ok := strings.CutPrefix(data, cbQualityPref)
	if !ok {
		return 0, false
	}
	var h int
	if _, err := fmt.Sscanf(raw, "%d", &h); err != nil || h <= 0 {
		return 0, false
	}
	return h, true
}
