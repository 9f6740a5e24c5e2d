package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// contextWithTimeout returns a timeout context rooted in the command context.
// A non-positive d only adds cancellation.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, d)
}
