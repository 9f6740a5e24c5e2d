// Package bridge connects btclink to wallet extensions living in a browser.
//
// A small relay page opens a WebSocket to the Hub, announces which wallet
// globals it can see, executes calls against them and pushes wallet events
// back. Messages are JSON objects discriminated by "type":
//
//	relay -> hub  {"type":"hello","globals":["unisat","okxwallet.bitcoin"]}
//	hub -> relay  {"type":"call","id":"<uuid>","method":"unisat.getNetwork","params":[]}
//	relay -> hub  {"type":"result","id":"<uuid>","result":"livenet"}
//	relay -> hub  {"type":"result","id":"<uuid>","error":{"code":4001,"message":"User rejected"}}
//	relay -> hub  {"type":"event","event":"unisat.accountsChanged","data":["bc1q..."]}
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types.
const (
	TypeHello  = "hello"
	TypeCall   = "call"
	TypeResult = "result"
	TypeEvent  = "event"
)

// CodeUserRejected is the conventional provider error code for a rejected request.
const CodeUserRejected = 4001

// Bridge errors.
var (
	// ErrPeerClosed indicates the relay connection went away.
	ErrPeerClosed = errors.New("bridge: relay connection closed")

	// ErrPeerBusy indicates a second relay tried to attach.
	ErrPeerBusy = errors.New("bridge: a relay is already attached")

	// ErrHubClosed indicates the hub was shut down.
	ErrHubClosed = errors.New("bridge: hub closed")
)

// RPCError is an error reported by the wallet extension behind the relay.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("bridge: %s (code %d)", e.Message, e.Code)
}

// ErrorCode returns the provider code.
func (e *RPCError) ErrorCode() int { return e.Code }

// ErrorMessage returns the provider message.
func (e *RPCError) ErrorMessage() string { return e.Message }

// IsUserRejected reports whether err is an RPC error for a request the user declined.
func IsUserRejected(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == CodeUserRejected
}

// Logger is the logging surface the bridge needs. *config.Logger satisfies it.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Message is the wire envelope in both directions.
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Globals []string        `json:"globals,omitempty"`
}
