package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

var errInner = errors.New("inner")

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, linkerr.ExitSuccess},
		{"general error", linkerr.ErrGeneral, linkerr.ExitGeneral},
		{"input error", linkerr.ErrInvalidInput, linkerr.ExitInput},
		{"rejected", linkerr.ErrUserRejected, linkerr.ExitRejected},
		{"device missing", linkerr.ErrDeviceNotFound, linkerr.ExitNotFound},
		{"not installed", linkerr.ErrWalletNotInstalled, linkerr.ExitUnavailable},
		{"not connected", linkerr.ErrNotConnected, linkerr.ExitUnavailable},
		{"plain error", errInner, linkerr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, linkerr.ExitCode(tt.err))
		})
	}
}

func TestWrapKeepsIdentity(t *testing.T) {
	t.Parallel()

	wrapped := linkerr.Wrap(linkerr.ErrUnknownWallet, "wallet %q", "unisatt")
	require.ErrorIs(t, wrapped, linkerr.ErrUnknownWallet)
	assert.Contains(t, wrapped.Error(), `wallet "unisatt"`)
	assert.Equal(t, linkerr.ExitInput, linkerr.ExitCode(wrapped))

	plain := linkerr.Wrap(errInner, "fetching")
	require.ErrorIs(t, plain, errInner)
	assert.Equal(t, "GENERAL_ERROR", linkerr.Code(plain))

	assert.NoError(t, linkerr.Wrap(nil, "nothing"))
}

func TestWithCause(t *testing.T) {
	t.Parallel()

	err := linkerr.WithCause(linkerr.ErrProviderError, errInner)
	require.ErrorIs(t, err, linkerr.ErrProviderError)
	require.ErrorIs(t, err, errInner)
	assert.Equal(t, "wallet provider returned an error: inner", err.Error())
}

func TestWithDetailsAndSuggestion(t *testing.T) {
	t.Parallel()

	err := linkerr.WithDetails(linkerr.ErrInvalidPath, map[string]string{"path": "m/x"})
	err = linkerr.WithSuggestion(err, "use m/84'/0'/0'/0/0")

	var le *linkerr.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, map[string]string{"path": "m/x"}, le.Details)
	assert.Equal(t, "use m/84'/0'/0'/0/0", le.Suggestion)
	assert.Equal(t, "invalid derivation path (path: m/x)", le.Error())
}

func TestLinkError_Error(t *testing.T) {
	t.Parallel()

	t.Run("details sorted", func(t *testing.T) {
		t.Parallel()
		err := &linkerr.LinkError{
			Code:    "TEST",
			Message: "failed",
			Details: map[string]string{"beta": "2", "alpha": "1"},
		}
		assert.Equal(t, "failed (alpha: 1) (beta: 2)", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		t.Parallel()
		err := &linkerr.LinkError{Code: "TEST", Message: "outer", Cause: errInner}
		assert.Equal(t, "outer: inner", err.Error())
	})
}

func TestNewAndCode(t *testing.T) {
	t.Parallel()

	err := linkerr.New("CUSTOM", "custom message")
	assert.Equal(t, "custom message", err.Error())
	assert.Equal(t, "CUSTOM", linkerr.Code(err))
	assert.Equal(t, "GENERAL_ERROR", linkerr.Code(errInner))
}
