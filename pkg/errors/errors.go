// Package errors provides structured error handling for btclink.
// It defines sentinel errors, exit codes, and helpers for attaching
// details and suggestions to errors surfaced by wallets and the CLI.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess     = 0 // Successful execution
	ExitGeneral     = 1 // General/unknown error
	ExitInput       = 2 // Invalid input
	ExitRejected    = 3 // User rejected the request in the wallet
	ExitNotFound    = 4 // Wallet, device or resource not found
	ExitUnavailable = 5 // Wallet not installed or not connected
)

// LinkError is the structured error type used across btclink.
type LinkError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for the user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *LinkError) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *LinkError) Unwrap() error {
	return e.Cause
}

// Is matches on the error code so wrapped copies compare equal to their sentinel.
func (e *LinkError) Is(target error) bool {
	var t *LinkError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &LinkError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &LinkError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &LinkError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	// Wallet errors.
	ErrUnknownWallet = &LinkError{
		Code:     "UNKNOWN_WALLET",
		Message:  "unknown wallet type",
		ExitCode: ExitInput,
	}

	ErrWalletNotInstalled = &LinkError{
		Code:     "WALLET_NOT_INSTALLED",
		Message:  "wallet extension is not installed",
		ExitCode: ExitUnavailable,
	}

	ErrNotConnected = &LinkError{
		Code:     "NOT_CONNECTED",
		Message:  "no wallet is connected",
		ExitCode: ExitUnavailable,
	}

	ErrUserRejected = &LinkError{
		Code:     "USER_REJECTED",
		Message:  "request rejected in wallet",
		ExitCode: ExitRejected,
	}

	ErrProviderError = &LinkError{
		Code:     "PROVIDER_ERROR",
		Message:  "wallet provider returned an error",
		ExitCode: ExitGeneral,
	}

	ErrNoAddress = &LinkError{
		Code:     "NO_ADDRESS",
		Message:  "wallet returned no payment address",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInfo = &LinkError{
		Code:     "INVALID_WALLET_INFO",
		Message:  "connected wallet info requires address, public key and wallet type",
		ExitCode: ExitGeneral,
	}

	ErrNotSupported = &LinkError{
		Code:     "NOT_SUPPORTED",
		Message:  "operation not supported by this wallet",
		ExitCode: ExitInput,
	}

	// Hardware wallet errors.
	ErrDeviceNotFound = &LinkError{
		Code:     "DEVICE_NOT_FOUND",
		Message:  "no hardware wallet found",
		ExitCode: ExitNotFound,
	}

	ErrInvalidPath = &LinkError{
		Code:     "INVALID_DERIVATION_PATH",
		Message:  "invalid derivation path",
		ExitCode: ExitInput,
	}

	ErrTimeout = &LinkError{
		Code:     "TIMEOUT",
		Message:  "operation timed out",
		ExitCode: ExitGeneral,
	}

	// Transfer errors.
	ErrInvalidAmount = &LinkError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount",
		ExitCode: ExitInput,
	}

	ErrInvalidAddress = &LinkError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrNetworkError = &LinkError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	// Config errors.
	ErrConfigInvalid = &LinkError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new LinkError with the given code and message.
func New(code, message string) *LinkError {
	return &LinkError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped LinkError.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var le *LinkError
	if errors.As(err, &le) {
		return &LinkError{
			Code:       le.Code,
			Message:    fmt.Sprintf("%s: %s", msg, le.Message),
			Details:    le.Details,
			Suggestion: le.Suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &LinkError{
		Code:     ErrGeneral.Code,
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of a LinkError sentinel carrying cause.
func WithCause(sentinel *LinkError, cause error) error {
	return &LinkError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var le *LinkError
	if errors.As(err, &le) {
		return &LinkError{
			Code:       le.Code,
			Message:    le.Message,
			Details:    details,
			Suggestion: le.Suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &LinkError{
		Code:     ErrGeneral.Code,
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var le *LinkError
	if errors.As(err, &le) {
		return &LinkError{
			Code:       le.Code,
			Message:    le.Message,
			Details:    le.Details,
			Suggestion: suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &LinkError{
		Code:       ErrGeneral.Code,
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the CLI exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var le *LinkError
	if errors.As(err, &le) {
		return le.ExitCode
	}

	return ExitGeneral
}

// Code returns the machine-readable code for an error.
func Code(err error) string {
	var le *LinkError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrGeneral.Code
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
