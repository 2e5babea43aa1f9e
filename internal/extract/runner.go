package extract

import (
	"context"

	"github.com/yuklab/yuklab-bot/internal/procrun"
)

// Runner is the subprocess execution capability the services depend on.
// *procrun.Runner satisfies it; tests inject fakes.
type Runner interface {
	Run(ctx context.Context, spec procrun.Spec) (*procrun.Result, error)
	RunJSON(ctx context.Context, spec procrun.Spec, v any) error
}
