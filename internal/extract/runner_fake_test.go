package extract

import (
	"context"
	"encoding/json"

	"github.com/yuklab/yuklab-bot/internal/procrun"
)

// fakeRunner records invocations and plays back canned results.
type fakeRunner struct {
	runResult *procrun.Result
	runErr    error

	jsonPayload string
	jsonErr     error

	calls []procrun.Spec
}

func (f *fakeRunner) Run(_ context.Context, spec procrun.Spec) (*procrun.Result, error) {
	f.calls = append(f.calls, spec)
	if f.runErr != nil {
		return nil, f.runErr
	}
	if f.runResult != nil {
		return f.runResult, nil
	}
	return &procrun.Result{}, nil
}

func (f *fakeRunner) RunJSON(_ context.Context, spec procrun.Spec, v any) error {
	f.calls = append(f.calls, spec)
	if f.jsonErr != nil {
		return f.jsonErr
	}
	return json.Unmarshal([]byte(f.jsonPayload), v)
}
