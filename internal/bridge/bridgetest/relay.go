// Package bridgetest provides a scripted relay page for exercising bridge.Hub
// and the wallet adapters built on it.
package bridgetest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/mrz1836/btclink/internal/bridge"
)

// Handler answers one relayed call. Returning a non-nil RPCError sends an
// error reply instead of the result.
type Handler func(params []json.RawMessage) (any, *bridge.RPCError)

// Relay stands in for the browser page.
type Relay struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []string

	done chan struct{}
}

// Serve mounts h on an httptest server and returns its WebSocket URL.
func Serve(tb testing.TB, h http.Handler) string {
	tb.Helper()

	srv := httptest.NewServer(h)
	tb.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// Dial connects to the hub at url and announces globals.
func Dial(ctx context.Context, url string, globals []string) (*Relay, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	r := &Relay{
		conn:     conn,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
	if err := r.send(bridge.Message{Type: bridge.TypeHello, Globals: globals}); err != nil {
		_ = conn.Close()
		return nil, err
	}
	go r.loop()
	return r, nil
}

// MustDial is Dial for tests; the relay is closed on cleanup.
func MustDial(tb testing.TB, url string, globals ...string) *Relay {
	tb.Helper()

	r, err := Dial(context.Background(), url, globals)
	if err != nil {
		tb.Fatalf("dial relay: %v", err)
	}
	tb.Cleanup(func() { _ = r.Close() })
	return r
}

// Handle installs h for method, replacing any previous handler.
func (r *Relay) Handle(method string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = h
}

// Result installs a handler that always answers with v.
func (r *Relay) Result(method string, v any) {
	r.Handle(method, func([]json.RawMessage) (any, *bridge.RPCError) { return v, nil })
}

// Fail installs a handler that always answers with an error.
func (r *Relay) Fail(method string, code int, message string) {
	r.Handle(method, func([]json.RawMessage) (any, *bridge.RPCError) {
		return nil, &bridge.RPCError{Code: code, Message: message}
	})
}

// Calls returns the methods invoked so far, in order.
func (r *Relay) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// CallCount returns how many times method was invoked.
func (r *Relay) CallCount(method string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

// Emit pushes a wallet event to the hub.
func (r *Relay) Emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return r.send(bridge.Message{Type: bridge.TypeEvent, Event: event, Data: raw})
}

// Close drops the connection.
func (r *Relay) Close() error {
	err := r.conn.Close()
	<-r.done
	return err
}

func (r *Relay) send(msg bridge.Message) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteJSON(msg)
}

func (r *Relay) loop() {
	defer close(r.done)

	for {
		var msg bridge.Message
		if err := r.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != bridge.TypeCall {
			continue
		}

		r.mu.Lock()
		r.calls = append(r.calls, msg.Method)
		h := r.handlers[msg.Method]
		r.mu.Unlock()

		reply := bridge.Message{Type: bridge.TypeResult, ID: msg.ID}
		if h == nil {
			reply.Error = &bridge.RPCError{Code: -32601, Message: "method not found: " + msg.Method}
		} else {
			var params []json.RawMessage
			_ = json.Unmarshal(msg.Params, &params)
			result, rpcErr := h(params)
			if rpcErr != nil {
				reply.Error = rpcErr
			} else {
				raw, err := json.Marshal(result)
				if err != nil {
					reply.Error = &bridge.RPCError{Code: -32603, Message: err.Error()}
				} else {
					reply.Result = raw
				}
			}
		}
		if err := r.send(reply); err != nil {
			return
		}
	}
}
