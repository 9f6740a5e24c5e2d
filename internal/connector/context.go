package connector

import (
	"context"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// ErrNoController indicates code that needs the wallet controller ran outside
// a context carrying one. This is a programming error, not a runtime condition.
var ErrNoController = &linkerr.LinkError{
	Code:     "NO_CONTROLLER",
	Message:  "no wallet controller in context",
	ExitCode: linkerr.ExitGeneral,
}

type controllerKey struct{}

// WithController returns a copy of ctx carrying c.
func WithController(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, controllerKey{}, c)
}

// FromContext returns the controller stored by WithController.
func FromContext(ctx context.Context) (*Controller, error) {
	c, ok := ctx.Value(controllerKey{}).(*Controller)
	if !ok || c == nil {
		return nil, ErrNoController
	}
	return c, nil
}
