package heartbeat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/transport"
)

// DefaultInterval stays under the transport's five second liveness window.
const DefaultInterval = 5 * time.Second

// maxConsecutiveFailures is the auto-stop threshold: a dead conversation
// must not produce an error storm.
const maxConsecutiveFailures = 2

// Sender sends one liveness signal.
type Sender interface {
	SendChatAction(ctx context.Context, chatID int64, action transport.ChatAction) error
}

// Manager keeps at most one repeating chat-action sender per chat. Heartbeats
// are advisory: their failure never aborts the workflow they decorate.
type Manager struct {
	mu       sync.Mutex
	active   map[int64]chan struct{}
	sender   Sender
	interval time.Duration
	log      *zap.Logger
}

// New creates a Manager with the given send interval; zero means
// DefaultInterval.
func New(sender Sender, interval time.Duration, log *zap.Logger) *Manager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Manager{
		active:   make(map[int64]chan struct{}),
		sender:   sender,
		interval: interval,
		log:      log,
	}
}

// Start sends the action immediately and then repeats it until the returned
// stop function is called. Starting a second heartbeat for the same chat
// replaces the first.
func (m *Manager) Start(chatID int64, action transport.ChatAction) func() {
	m.mu.Lock()
	if prev, ok := m.active[chatID]; ok {
		close(prev)
	}
	done := make(chan struct{})
	m.active[chatID] = done
	m.mu.Unlock()

	if err := m.sender.SendChatAction(context.Background(), chatID, action); err != nil {
		m.log.Warn("initial chat action failed",
			zap.Int64("chat_id", chatID), zap.Error(err))
	}

	go m.loop(chatID, action, done)

	return func() { m.stopChan(chatID, done) }
}

// loop repeats the action until done closes or sends fail twice in a row.
func (m *Manager) loop(chatID int64, action transport.ChatAction, done chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := m.sender.SendChatAction(context.Background(), chatID, action); err != nil {
				failures++
				m.log.Warn("chat action failed",
					zap.Int64("chat_id", chatID),
					zap.Int("consecutive_failures", failures),
					zap.Error(err))
				if failures >= maxConsecutiveFailures {
					m.stopChan(chatID, done)
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// Stop stops the heartbeat for a chat if one is running.
func (m *Manager) Stop(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if done, ok := m.active[chatID]; ok {
		close(done)
		delete(m.active, chatID)
	}
}

// stopChan stops the heartbeat for chatID only if it still owns done. This
// keeps a stale stop function from killing a replacement heartbeat.
func (m *Manager) stopChan(chatID int64, done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.active[chatID]; ok && current == done {
		close(current)
		delete(m.active, chatID)
	}
}

// StopAll stops every active heartbeat; used on process shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for chatID, done := range m.active {
		close(done)
		delete(m.active, chatID)
	}
}

// IsRunning reports whether a heartbeat is active for the chat.
func (m *Manager) IsRunning(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[chatID]
	return ok
}

// Size returns the number of active heartbeats.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
