package order

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// compensations is a stack of undo steps for writes that already succeeded.
type compensations []compensation

func (c *compensations) add(name string, fn func(ctx context.Context) error) {
	*c = append(*c, compensation{name: name, fn: fn})
}

func (c compensations) pending() bool {
	return len(c) > 0
}

// run executes the steps in reverse order. A failing step is logged and the
// remaining steps still run. Cancellation of ctx does not abort the rollback.
func (c compensations) run(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	lg := zctx.From(ctx)
	for i := len(c) - 1; i >= 0; i-- {
		step := c[i]
		if err := step.fn(ctx); err != nil {
			lg.Error("Compensation failed", zap.String("step", step.name), zap.Error(err))
			continue
		}
		lg.Warn("Compensated", zap.String("step", step.name))
	}
}
