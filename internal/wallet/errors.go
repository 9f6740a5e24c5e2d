package wallet

import (
	"errors"
	"strconv"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// RejectedCode is the provider error code for a request the user declined.
const RejectedCode = 4001

// CodedError is implemented by transport errors that carry a provider code.
type CodedError interface {
	error
	ErrorCode() int
	ErrorMessage() string
}

// ProviderError builds the error for a failure reported by a wallet.
func ProviderError(t Type, code int, message string) error {
	base := linkerr.ErrProviderError
	if code == RejectedCode {
		base = linkerr.ErrUserRejected
	}

	details := map[string]string{"wallet": t.String()}
	if message != "" {
		details["message"] = message
	}
	if code != 0 {
		details["code"] = strconv.Itoa(code)
	}
	return linkerr.WithDetails(base, details)
}

// WrapError converts an adapter error into a LinkError, keeping errors that
// already carry a code.
func WrapError(t Type, err error) error {
	if err == nil {
		return nil
	}

	var le *linkerr.LinkError
	if errors.As(err, &le) {
		return err
	}

	var coded CodedError
	if errors.As(err, &coded) {
		return ProviderError(t, coded.ErrorCode(), coded.ErrorMessage())
	}

	return linkerr.WithDetails(linkerr.WithCause(linkerr.ErrProviderError, err), map[string]string{
		"wallet":  t.String(),
		"message": err.Error(),
	})
}
