package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/btclink/internal/output"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed") //nolint:err113 // test
}

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()

	for _, format := range []output.Format{output.FormatJSON, output.FormatText} {
		var buf bytes.Buffer
		require.NoError(t, output.FormatError(&buf, nil, format))
		assert.Empty(t, buf.String())
	}
}

func TestFormatError_GenericJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, errors.New("boom"), output.FormatJSON)) //nolint:err113 // test

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "GENERAL_ERROR", result.Error.Code)
	assert.Equal(t, "boom", result.Error.Message)
	assert.Equal(t, linkerr.ExitGeneral, result.Error.ExitCode)
}

func TestFormatError_LinkErrorJSON(t *testing.T) {
	t.Parallel()

	err := linkerr.WithDetails(linkerr.ErrWalletNotInstalled, map[string]string{"wallet": "xverse"})
	err = linkerr.WithSuggestion(err, "install Xverse and reload the relay page")

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, linkerr.ErrWalletNotInstalled.Code, result.Error.Code)
	assert.Equal(t, "xverse", result.Error.Details["wallet"])
	assert.Equal(t, "install Xverse and reload the relay page", result.Error.Suggestion)
	assert.Equal(t, linkerr.ErrWalletNotInstalled.ExitCode, result.Error.ExitCode)
}

func TestFormatError_TextSortedDetails(t *testing.T) {
	t.Parallel()

	err := linkerr.WithDetails(linkerr.WithCause(linkerr.ErrProviderError, errors.New("rpc down")), //nolint:err113 // test
		map[string]string{"wallet": "okx", "code": "-32603", "message": "internal"})
	err = linkerr.WithSuggestion(err, "retry")

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Error: "+linkerr.ErrProviderError.Message+"\n"))
	assert.Contains(t, out, "Cause: rpc down\n")
	assert.Contains(t, out, "\nSuggestion: retry\n")
	assert.Less(t, strings.Index(out, "code:"), strings.Index(out, "message:"))
	assert.Less(t, strings.Index(out, "message:"), strings.Index(out, "wallet:"))
}

func TestFormatError_WriteFailure(t *testing.T) {
	t.Parallel()
	require.Error(t, output.FormatError(failingWriter{}, linkerr.ErrNotConnected, output.FormatText))
	require.Error(t, output.FormatError(failingWriter{}, linkerr.ErrNotConnected, output.FormatJSON))
}

func TestFormatSuccess(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	require.NoError(t, output.FormatSuccess(&text, "disconnected", output.FormatText))
	require.NoError(t, output.FormatSuccess(&js, "disconnected", output.FormatJSON))

	assert.Equal(t, "disconnected\n", text.String())
	assert.JSONEq(t, `{"status":"success","message":"disconnected"}`, js.String())
}
