package bridge

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the call surface wallet adapters are written against. Both *Hub
// and *Peer satisfy it.
type Conn interface {
	Installed(global string) bool
	Call(ctx context.Context, method string, params []any, out any) error
	Subscribe(event string, fn EventHandler) *Subscription
}

// HubOptions configures a Hub.
type HubOptions struct {
	// Logger receives debug and error output. Defaults to a no-op logger.
	Logger Logger

	// CheckOrigin overrides the upgrader origin check. The default accepts
	// every origin because the hub listens on loopback.
	CheckOrigin func(r *http.Request) bool
}

// Hub accepts a single relay connection at a time and routes calls to it.
// Event subscriptions made on the hub survive relay reconnects.
type Hub struct {
	upgrader websocket.Upgrader
	logger   Logger
	handlers *registry

	mu      sync.Mutex
	peer    *Peer
	changed chan struct{}
	closed  bool
	done    chan struct{}
}

// NewHub creates a hub ready to be mounted on an HTTP server.
func NewHub(opts *HubOptions) *Hub {
	if opts == nil {
		opts = &HubOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger:   logger,
		handlers: newRegistry(),
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ServeHTTP upgrades the request and serves the relay until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	switch {
	case h.closed:
		h.mu.Unlock()
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	case h.peer != nil:
		h.mu.Unlock()
		http.Error(w, ErrPeerBusy.Error(), http.StatusConflict)
		return
	}
	h.mu.Unlock()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("bridge upgrade: %v", err)
		return
	}

	peer := newPeer(conn, h.logger)
	peer.forward = h.handlers.emit
	peer.onHello = func(*Peer) { h.notify() }

	h.mu.Lock()
	if h.closed || h.peer != nil {
		h.mu.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ErrPeerBusy.Error()))
		_ = conn.Close()
		return
	}
	h.peer = peer
	h.mu.Unlock()

	h.logger.Debug("bridge relay attached from %s", r.RemoteAddr)
	peer.readLoop()

	h.mu.Lock()
	if h.peer == peer {
		h.peer = nil
	}
	h.mu.Unlock()
	h.notify()
	h.logger.Debug("bridge relay detached")
}

// notify wakes every goroutine waiting in Peer.
func (h *Hub) notify() {
	h.mu.Lock()
	close(h.changed)
	h.changed = make(chan struct{})
	h.mu.Unlock()
}

// Current returns the attached relay that has said hello, or nil.
func (h *Hub) Current() *Peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.readyPeer()
}

func (h *Hub) readyPeer() *Peer {
	if h.peer == nil {
		return nil
	}
	select {
	case <-h.peer.Ready():
		return h.peer
	default:
		return nil
	}
}

// Peer blocks until a relay is attached and has announced its globals.
func (h *Hub) Peer(ctx context.Context) (*Peer, error) {
	for {
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return nil, ErrHubClosed
		}
		if p := h.readyPeer(); p != nil {
			h.mu.Unlock()
			return p, nil
		}
		changed := h.changed
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-h.done:
			return nil, ErrHubClosed
		case <-changed:
		}
	}
}

// Installed reports whether the current relay announced global. It never blocks.
func (h *Hub) Installed(global string) bool {
	p := h.Current()
	return p != nil && p.Installed(global)
}

// Call waits for a relay and forwards the call to it.
func (h *Hub) Call(ctx context.Context, method string, params []any, out any) error {
	p, err := h.Peer(ctx)
	if err != nil {
		return err
	}
	return p.Call(ctx, method, params, out)
}

// Subscribe registers fn for event on whichever relay is attached now or later.
func (h *Hub) Subscribe(event string, fn EventHandler) *Subscription {
	return h.handlers.add(event, fn)
}

// HandlerCount returns the number of hub-level handlers for event.
func (h *Hub) HandlerCount(event string) int {
	return h.handlers.count(event)
}

// OpenURL asks the attached browser to open url.
func (h *Hub) OpenURL(ctx context.Context, url string) error {
	p, err := h.Peer(ctx)
	if err != nil {
		return err
	}
	return p.OpenURL(ctx, url)
}

// Close detaches the relay and rejects further connections.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.done)
	peer := h.peer
	h.mu.Unlock()

	if peer != nil {
		return peer.Close()
	}
	return nil
}
