package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mrz1836/btclink/internal/metrics"
)

const writeTimeout = 10 * time.Second

// EventHandler receives the raw data of a relayed wallet event.
type EventHandler func(data json.RawMessage)

// Subscription removes an event handler when released.
type Subscription struct {
	once   sync.Once
	remove func()
}

// Unsubscribe removes the handler. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.remove != nil {
			s.remove()
		}
	})
}

// Peer is one attached relay page.
type Peer struct {
	conn   *websocket.Conn
	logger Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]chan Message
	handlers *registry
	globals  map[string]bool

	// events queues relayed events for eventLoop, in arrival order.
	events      []Message
	eventSignal chan struct{}

	// forward receives every event after local handlers ran.
	forward func(event string, data json.RawMessage)
	onHello func(*Peer)

	hello     chan struct{}
	helloOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

func newPeer(conn *websocket.Conn, logger Logger) *Peer {
	return &Peer{
		conn:        conn,
		logger:      logger,
		pending:     make(map[string]chan Message),
		handlers:    newRegistry(),
		globals:     make(map[string]bool),
		eventSignal: make(chan struct{}, 1),
		hello:       make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Installed reports whether the relay announced the given wallet global.
func (p *Peer) Installed(global string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.globals[global]
}

// Globals returns the announced wallet globals.
func (p *Peer) Globals() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.globals))
	for g := range p.globals {
		out = append(out, g)
	}
	return out
}

// Done is closed when the relay connection ends.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Call invokes method in the browser with positional params and decodes the
// result into out. A JSON null result leaves pointer targets nil.
func (p *Peer) Call(ctx context.Context, method string, params []any, out any) (err error) {
	defer func() { metrics.Global.RecordBridgeCall(err) }()

	if params == nil {
		params = []any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding params for %s: %w", method, err)
	}

	id := uuid.NewString()
	ch := make(chan Message, 1)

	p.mu.Lock()
	select {
	case <-p.done:
		p.mu.Unlock()
		return ErrPeerClosed
	default:
	}
	p.pending[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	p.logger.Debug("bridge call %s id=%s", method, id)
	if err := p.write(Message{Type: TypeCall, ID: id, Method: method, Params: raw}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPeerClosed
	case msg := <-ch:
		if msg.Error != nil {
			return msg.Error
		}
		if out == nil || len(msg.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(msg.Result, out); err != nil {
			return fmt.Errorf("decoding result of %s: %w", method, err)
		}
		return nil
	}
}

// Subscribe registers fn for a relayed event such as "unisat.accountsChanged".
func (p *Peer) Subscribe(event string, fn EventHandler) *Subscription {
	return p.handlers.add(event, fn)
}

// HandlerCount returns the number of handlers registered for event.
func (p *Peer) HandlerCount(event string) int {
	return p.handlers.count(event)
}

// OpenURL asks the browser to open url in a new tab.
func (p *Peer) OpenURL(ctx context.Context, url string) error {
	return p.Call(ctx, "window.open", []any{url, "_blank"}, nil)
}

// Close terminates the relay connection and fails pending calls.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
	})
	return err
}

func (p *Peer) write(msg Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := p.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("bridge write: %w", err)
	}
	return nil
}

// Ready is closed once the relay has announced its globals.
func (p *Peer) Ready() <-chan struct{} {
	return p.hello
}

// readLoop dispatches inbound messages until the connection fails. Events are
// handed to eventLoop so handlers can issue calls whose results arrive here.
func (p *Peer) readLoop() {
	defer func() { _ = p.Close() }()
	go p.eventLoop()

	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Debug("bridge read: %v", err)
			}
			return
		}
		p.dispatch(msg)
	}
}

func (p *Peer) dispatch(msg Message) {
	switch msg.Type {
	case TypeHello:
		p.mu.Lock()
		p.globals = make(map[string]bool, len(msg.Globals))
		for _, g := range msg.Globals {
			p.globals[g] = true
		}
		p.mu.Unlock()
		p.helloOnce.Do(func() { close(p.hello) })
		if p.onHello != nil {
			p.onHello(p)
		}

	case TypeResult:
		p.mu.Lock()
		ch, ok := p.pending[msg.ID]
		p.mu.Unlock()
		if !ok {
			p.logger.Debug("bridge result for unknown call %s", msg.ID)
			return
		}
		select {
		case ch <- msg:
		default:
			p.logger.Error("bridge: duplicate result for call %s dropped", msg.ID)
		}

	case TypeEvent:
		p.mu.Lock()
		p.events = append(p.events, msg)
		p.mu.Unlock()
		select {
		case p.eventSignal <- struct{}{}:
		default:
		}

	default:
		p.logger.Error("bridge: unexpected message type %q", msg.Type)
	}
}

// eventLoop runs event handlers one at a time in arrival order until the
// connection ends. Events still queued at that point are dropped.
func (p *Peer) eventLoop() {
	for {
		select {
		case <-p.done:
			return
		case <-p.eventSignal:
		}

		for {
			p.mu.Lock()
			if len(p.events) == 0 {
				p.events = nil
				p.mu.Unlock()
				break
			}
			msg := p.events[0]
			p.events = p.events[1:]
			p.mu.Unlock()

			p.handlers.emit(msg.Event, msg.Data)
			if p.forward != nil {
				p.forward(msg.Event, msg.Data)
			}
		}
	}
}
