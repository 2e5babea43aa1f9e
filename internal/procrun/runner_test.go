package procrun

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestRunner() *Runner {
	return New(zap.NewNop())
}

func TestRunCapturesOutput(t *testing.T) {
	result, err := newTestRunner().Run(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if strings.TrimSpace(result.Stdout) != "out" {
		t.Errorf("stdout = %q, want %q", result.Stdout, "out")
	}
	if strings.TrimSpace(result.Stderr) != "err" {
		t.Errorf("stderr = %q, want %q", result.Stderr, "err")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	result, err := newTestRunner().Run(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestRunTimeout(t *testing.T) {
	_, err := newTestRunner().Run(context.Background(), Spec{
		Command: "sleep",
		Args:    []string{"5"},
		Timeout: 100 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestRunBufferExceeded(t *testing.T) {
	_, err := newTestRunner().Run(context.Background(), Spec{
		Command:        "sh",
		Args:           []string{"-c", "head -c 65536 /dev/zero"},
		MaxOutputBytes: 1024,
	})
	if !errors.Is(err, ErrBufferExceeded) {
		t.Errorf("error = %v, want ErrBufferExceeded", err)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	_, err := newTestRunner().Run(context.Background(), Spec{
		Command: "definitely-not-a-real-binary-yuklab",
	})
	if !errors.Is(err, ErrSpawn) {
		t.Errorf("error = %v, want ErrSpawn", err)
	}
}

func TestRunJSON(t *testing.T) {
	tests := []struct {
		name      string
		script    string
		wantErr   error
		wantTitle string
	}{
		{
			name:      "valid json",
			script:    `echo '{"title":"clip"}'`,
			wantTitle: "clip",
		},
		{
			name:    "malformed json",
			script:  "echo not-json",
			wantErr: ErrMalformedOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				Title string `json:"title"`
			}
			err := newTestRunner().RunJSON(context.Background(), Spec{
				Command: "sh",
				Args:    []string{"-c", tt.script},
			}, &payload)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RunJSON returned error: %v", err)
			}
			if payload.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", payload.Title, tt.wantTitle)
			}
		})
	}
}

func TestRunJSONNonZeroExitSurfacesStderr(t *testing.T) {
	var payload map[string]any
	err := newTestRunner().RunJSON(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo boom >&2; exit 1"},
	}, &payload)
	if err == nil {
		t.Fatal("RunJSON should fail on nonzero exit")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q should carry stderr diagnostics", err)
	}
}
