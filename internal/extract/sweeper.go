package extract

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSweepInterval is how often the download root is scanned for
	// leftovers.
	DefaultSweepInterval = time.Hour

	// DefaultMaxFolderAge is how old a working folder may get before it is
	// considered abandoned. Downloads that outlive this were orphaned by a
	// crash or kill, not by normal cleanup.
	DefaultMaxFolderAge = 24 * time.Hour
)

// Sweeper periodically removes abandoned working folders from the download
// root. Normal downloads remove their own folder; the sweeper only catches
// what a crashed or killed process left behind.
type Sweeper struct {
	root     string
	maxAge   time.Duration
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewSweeper creates a sweeper over root. Non-positive durations fall back
// to the defaults.
func NewSweeper(root string, maxAge, interval time.Duration, log *zap.Logger) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultMaxFolderAge
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		root:     root,
		maxAge:   maxAge,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Run sweeps immediately, then on every interval tick until the context is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.Sweep()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes every directory under the root older than the maximum age
// and returns how many were removed. A missing root is not an error; nothing
// has been downloaded yet.
func (s *Sweeper) Sweep() int {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("download root not readable", zap.String("root", s.root), zap.Error(err))
		}
		return 0
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.log.Error("failed to remove stale folder", zap.String("folder", path), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("removed stale download folders", zap.Int("count", removed))
	}
	return removed
}
