package extract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSweepRemovesStaleFolders(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, "2026-08-28_10-00-00_abc")
	fresh := filepath.Join(root, "2026-08-30_09-00-00_def")
	for _, dir := range []string{stale, fresh} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	s := NewSweeper(root, DefaultMaxFolderAge, DefaultSweepInterval, zap.NewNop())
	if got := s.Sweep(); got != 1 {
		t.Errorf("Sweep removed %d folders, want 1", got)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale folder should be gone")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh folder should survive: %v", err)
	}
}

func TestSweepSkipsPlainFiles(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "leftover.mp4")
	if err := os.WriteFile(file, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(file, old, old); err != nil {
		t.Fatal(err)
	}

	s := NewSweeper(root, DefaultMaxFolderAge, DefaultSweepInterval, zap.NewNop())
	if got := s.Sweep(); got != 0 {
		t.Errorf("Sweep removed %d entries, want 0", got)
	}
	if _, err := os.Stat(file); err != nil {
		t.Errorf("plain file should be untouched: %v", err)
	}
}

func TestSweepMissingRootIsNoOp(t *testing.T) {
	s := NewSweeper(filepath.Join(t.TempDir(), "never-created"), 0, 0, zap.NewNop())
	if got := s.Sweep(); got != 0 {
		t.Errorf("Sweep on missing root removed %d, want 0", got)
	}
}
