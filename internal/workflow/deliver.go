package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuklab/yuklab-bot/internal/extract"
	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/transport"
)

// deliverFile streams a downloaded artifact to the chat and returns the sent
// message plus the artifact's name and size for the persisted record.
func (m *Manager) deliverFile(ctx context.Context, wf *Workflow, path string, mt model.MediaType) (transport.SentMessage, string, int64, error) {
	size := extract.FileSize(path)
	if m.deps.MaxFileSize > 0 && size > m.deps.MaxFileSize {
		return transport.SentMessage{}, "", 0, fmt.Errorf("%w: %d bytes", errTooBig, size)
	}

	f, err := os.Open(path)
	if err != nil {
		return transport.SentMessage{}, "", 0, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	var sent transport.SentMessage
	if mt == model.MediaTypeAudio {
		sent, err = m.deps.Client.SendAudioFile(ctx, wf.state.ChatID, name, f)
	} else {
		sent, err = m.deps.Client.SendVideoFile(ctx, wf.state.ChatID, name, f)
	}
	if err != nil {
		return transport.SentMessage{}, "", 0, fmt.Errorf("deliver artifact: %w", err)
	}
	return sent, name, size, nil
}

// actionFor picks the liveness signal matching what is being produced.
func actionFor(mt model.MediaType) transport.ChatAction {
	switch mt {
	case model.MediaTypeAudio:
		return transport.ActionUploadAudio
	case model.MediaTypeImage, model.MediaTypePost:
		return transport.ActionUploadPhoto
	default:
		return transport.ActionUploadVideo
	}
}
