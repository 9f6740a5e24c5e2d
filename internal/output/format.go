// Package output renders command results and errors as text or JSON and
// formats Bitcoin amounts.
package output

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format selects how command results are written.
type Format string

// Output formats. FormatAuto picks text on a terminal and JSON otherwise.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter writes command results in a single resolved Format.
type Formatter struct {
	format Format
	w      io.Writer
}

// NewFormatter returns a formatter writing to w. FormatAuto is resolved
// against w once, here.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: DetectFormat(w, format), w: w}
}

// Format returns the resolved format.
func (f *Formatter) Format() Format { return f.format }

// Writer returns the destination of results.
func (f *Formatter) Writer() io.Writer { return f.w }

// IsJSON reports whether results are written as JSON.
func (f *Formatter) IsJSON() bool { return f.format == FormatJSON }

// Render writes v as indented JSON, or hands the writer to text.
func (f *Formatter) Render(v any, text func(w io.Writer) error) error {
	if f.IsJSON() || text == nil {
		return encodeJSON(f.w, v, "  ")
	}
	return text(f.w)
}

// Stream is Render for long-running commands: JSON output is one compact
// object per line so each event can be parsed as it arrives.
func (f *Formatter) Stream(v any, text func(w io.Writer) error) error {
	if f.IsJSON() || text == nil {
		return encodeJSON(f.w, v, "")
	}
	return text(f.w)
}

func encodeJSON(w io.Writer, v any, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	return enc.Encode(v)
}

// DetectFormat resolves FormatAuto: text when w is a terminal, JSON for
// pipes, files and buffers. Explicit formats are returned unchanged.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if isTerminal(w) {
		return FormatText
	}
	return FormatJSON
}

// ParseFormat maps a flag or config value to a Format. Unknown values mean auto.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON
	case FormatText:
		return FormatText
	default:
		return FormatAuto
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
}
