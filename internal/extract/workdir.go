package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// folderTimeFormat gives working folders a sortable, filesystem-safe prefix.
const folderTimeFormat = "2006-01-02_15-04-05"

// Workdir is a uniquely named directory holding one in-progress download.
// It is owned exclusively by the download call that created it and must be
// removed by the same owner on every exit path.
type Workdir struct {
	Root string
	Name string
}

// NewWorkdir creates a fresh working folder under root named from the
// current time and the stable source id, so concurrent downloads never
// collide. An empty sourceID falls back to a random suffix.
func NewWorkdir(root, sourceID string) (*Workdir, error) {
	if sourceID == "" {
		sourceID = uuid.NewString()[:8]
	}
	name := fmt.Sprintf("%s_%s", time.Now().Format(folderTimeFormat), sourceID)

	if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
		return nil, fmt.Errorf("create working folder: %w", err)
	}
	return &Workdir{Root: root, Name: name}, nil
}

// Path returns the absolute folder path.
func (w *Workdir) Path() string {
	return filepath.Join(w.Root, w.Name)
}

// FirstFile returns the path of the first regular file in the folder.
func (w *Workdir) FirstFile() (string, error) {
	entries, err := os.ReadDir(w.Path())
	if err != nil {
		return "", fmt.Errorf("list working folder: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return filepath.Join(w.Path(), entry.Name()), nil
		}
	}
	return "", fmt.Errorf("working folder %s is empty", w.Name)
}

// FileSize returns the size of the named file inside the folder tree.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Remove deletes the folder tree. It is idempotent and best-effort: removal
// errors are logged, never propagated, so cleanup cannot mask the original
// failure reason.
func (w *Workdir) Remove(log *zap.Logger) {
	if w == nil {
		return
	}
	if err := os.RemoveAll(w.Path()); err != nil {
		log.Error("failed to remove working folder",
			zap.String("folder", w.Path()), zap.Error(err))
	}
}
