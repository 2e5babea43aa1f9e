package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewWorkdirNaming(t *testing.T) {
	root := t.TempDir()

	wd, err := NewWorkdir(root, "abc123")
	if err != nil {
		t.Fatalf("NewWorkdir returned error: %v", err)
	}
	if !strings.HasSuffix(wd.Name, "_abc123") {
		t.Errorf("folder name = %q, want timestamp + source id", wd.Name)
	}
	if _, err := os.Stat(wd.Path()); err != nil {
		t.Errorf("folder should exist: %v", err)
	}
}

func TestNewWorkdirEmptySourceID(t *testing.T) {
	wd, err := NewWorkdir(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewWorkdir returned error: %v", err)
	}
	parts := strings.Split(wd.Name, "_")
	if parts[len(parts)-1] == "" {
		t.Errorf("folder name %q needs a fallback suffix", wd.Name)
	}
}

func TestFirstFile(t *testing.T) {
	wd, err := NewWorkdir(t.TempDir(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wd.FirstFile(); err == nil {
		t.Error("FirstFile on empty folder should fail")
	}

	path := filepath.Join(wd.Path(), "clip.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := wd.FirstFile()
	if err != nil {
		t.Fatalf("FirstFile returned error: %v", err)
	}
	if got != path {
		t.Errorf("FirstFile = %q, want %q", got, path)
	}
	if FileSize(got) != 4 {
		t.Errorf("FileSize = %d, want 4", FileSize(got))
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	wd, err := NewWorkdir(t.TempDir(), "x")
	if err != nil {
		t.Fatal(err)
	}

	log := zap.NewNop()
	wd.Remove(log)
	if _, err := os.Stat(wd.Path()); !os.IsNotExist(err) {
		t.Error("folder should be gone after Remove")
	}

	// second call must not panic or error
	wd.Remove(log)

	var nilWd *Workdir
	nilWd.Remove(log)
}
