package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// NewErrorDetail flattens err into its structured form.
func NewErrorDetail(err error) ErrorDetail {
	var le *linkerr.LinkError
	if errors.As(err, &le) {
		d := ErrorDetail{
			Code:       le.Code,
			Message:    le.Message,
			Details:    le.Details,
			Suggestion: le.Suggestion,
			ExitCode:   le.ExitCode,
		}
		if le.Cause != nil {
			d.Cause = le.Cause.Error()
		}
		return d
	}

	return ErrorDetail{
		Code:     linkerr.ErrGeneral.Code,
		Message:  err.Error(),
		ExitCode: linkerr.ExitGeneral,
	}
}

// FormatError formats an error for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	if format == FormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(ErrorOutput{Error: NewErrorDetail(err)})
	}
	return formatErrorText(w, NewErrorDetail(err))
}

// formatErrorText outputs error in text format, details sorted by key.
func formatErrorText(w io.Writer, d ErrorDetail) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Error: %s\n", d.Message)
	if d.Cause != "" {
		fmt.Fprintf(&sb, "Cause: %s\n", d.Cause)
	}

	if len(d.Details) > 0 {
		keys := make([]string, 0, len(d.Details))
		for k := range d.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, d.Details[k])
		}
	}

	if d.Suggestion != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", d.Suggestion)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]string{"status": "success", "message": message})
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
