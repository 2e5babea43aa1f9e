package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yuklab/yuklab-bot/internal/procrun"
)

// extractAudio runs ffmpeg to produce an mp3 sibling of videoPath, using
// high-quality VBR and a normalized sample rate.
func extractAudio(ctx context.Context, runner Runner, ffmpegPath string, timeout time.Duration, videoPath string) (string, error) {
	audioPath := replaceExt(videoPath, ".mp3")

	result, err := runner.Run(ctx, procrun.Spec{
		Command: ffmpegPath,
		Args: []string{
			"-i", videoPath,
			"-vn",
			"-c:a", "libmp3lame",
			"-q:a", "0",
			"-ar", "48000",
			"-y",
			audioPath,
		},
		Timeout: timeout,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscode, err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: ffmpeg exited with code %d: %s",
			ErrTranscode, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return audioPath, nil
}

// replaceExt swaps the file extension, appending when there is none.
func replaceExt(path, ext string) string {
	if idx := strings.LastIndex(path, "."); idx > strings.LastIndex(path, "/") {
		return path[:idx] + ext
	}
	return path + ext
}
