package heartbeat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/transport"
)

type fakeSender struct {
	mu    sync.Mutex
	calls []transport.ChatAction
	err   error
}

func (f *fakeSender) SendChatAction(_ context.Context, _ int64, action transport.ChatAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, action)
	return f.err
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSender) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func TestStartSendsImmediatelyAndRepeats(t *testing.T) {
	sender := &fakeSender{}
	m := New(sender, 10*time.Millisecond, zap.NewNop())

	stop := m.Start(1, transport.ActionUploadVideo)
	defer stop()

	require.GreaterOrEqual(t, sender.callCount(), 1, "first signal must be sent synchronously")

	require.Eventually(t, func() bool {
		return sender.callCount() >= 3
	}, time.Second, 5*time.Millisecond)

	stop()
	assert.False(t, m.IsRunning(1))
}

func TestStartReplacesExistingHeartbeat(t *testing.T) {
	sender := &fakeSender{}
	m := New(sender, 10*time.Millisecond, zap.NewNop())
	defer m.StopAll()

	m.Start(7, transport.ActionTyping)
	m.Start(7, transport.ActionUploadAudio)

	assert.Equal(t, 1, m.Size(), "second start for the same chat must replace, not stack")
}

func TestStaleStopDoesNotKillReplacement(t *testing.T) {
	sender := &fakeSender{}
	m := New(sender, 10*time.Millisecond, zap.NewNop())
	defer m.StopAll()

	stopFirst := m.Start(7, transport.ActionTyping)
	m.Start(7, transport.ActionUploadVideo)

	stopFirst()
	assert.True(t, m.IsRunning(7), "stale stop handle must not stop the replacement")
}

func TestAutoStopAfterConsecutiveFailures(t *testing.T) {
	sender := &fakeSender{}
	m := New(sender, 5*time.Millisecond, zap.NewNop())

	m.Start(3, transport.ActionTyping)
	sender.setErr(errors.New("dead chat"))

	require.Eventually(t, func() bool {
		return !m.IsRunning(3)
	}, time.Second, 5*time.Millisecond, "heartbeat should stop itself after repeated send failures")
}

func TestStopAll(t *testing.T) {
	sender := &fakeSender{}
	m := New(sender, 10*time.Millisecond, zap.NewNop())

	m.Start(1, transport.ActionTyping)
	m.Start(2, transport.ActionTyping)
	m.Start(3, transport.ActionTyping)
	require.Equal(t, 3, m.Size())

	m.StopAll()
	assert.Equal(t, 0, m.Size())
}
