package output

import (
	"fmt"
	"io"
	"os"
)

// Status lines go to stderr so stdout stays machine readable.
//
//nolint:gochecknoglobals // swapped in tests
var statusWriter io.Writer = os.Stderr

// Infof prints an informational status line.
func Infof(format string, args ...any) {
	_, _ = fmt.Fprintf(statusWriter, "info: "+format+"\n", args...)
}

// Warnf prints a warning status line.
func Warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(statusWriter, "warning: "+format+"\n", args...)
}

// Successf prints a success status line.
func Successf(format string, args ...any) {
	_, _ = fmt.Fprintf(statusWriter, "ok: "+format+"\n", args...)
}
