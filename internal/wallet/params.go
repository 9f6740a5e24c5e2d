package wallet

import (
	"context"
	"sync"
)

// Logger is the logging surface providers need. *config.Logger satisfies it.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Store is the persisted key-value sink providers write the last wallet type to.
type Store interface {
	Set(key, value string) error
	Remove(key string) error
}

// Opener opens a URL for the user, typically a wallet install page.
type Opener interface {
	OpenURL(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

// OpenURL calls f.
func (f OpenerFunc) OpenURL(ctx context.Context, url string) error {
	return f(ctx, url)
}

// Params is what the controller injects into every provider factory. Providers
// never hold a reference to the controller itself.
type Params struct {
	State  *State
	Store  Store
	Opener Opener
	Logger Logger
}

// WithDefaults fills unset dependencies with no-op implementations.
func (p Params) WithDefaults() Params {
	if p.State == nil {
		p.State = NewState()
	}
	if p.Store == nil {
		p.Store = nopStore{}
	}
	if p.Opener == nil {
		p.Opener = OpenerFunc(func(context.Context, string) error { return nil })
	}
	if p.Logger == nil {
		p.Logger = nopLogger{}
	}
	return p
}

// BeginConnect runs the connect preamble shared by every provider. It returns
// false when the caller must return immediately: a connect is already in
// flight, or the wallet is not installed (the install page is opened instead).
func (p Params) BeginConnect(ctx context.Context, w Wallet, installURL string) bool {
	if t, busy := p.State.Connecting(); busy {
		p.Logger.Debug("connect %s ignored: %s connect in flight", w.Type(), t)
		return false
	}

	if !w.IsInstalled() {
		if installURL != "" {
			if err := p.Opener.OpenURL(ctx, installURL); err != nil {
				p.Logger.Error("open install page for %s: %v", w.Type(), err)
			}
		}
		return false
	}

	return p.State.BeginConnect(w.Type())
}

// Forget removes the persisted wallet type.
func (p Params) Forget() {
	if err := p.Store.Remove(PersistKey); err != nil {
		p.Logger.Error("remove %s: %v", PersistKey, err)
	}
}

type nopStore struct{}

func (nopStore) Set(string, string) error { return nil }
func (nopStore) Remove(string) error      { return nil }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Listeners tracks the event subscriptions of one connected session. Each
// session gets a generation; callbacks from an older generation are stale and
// must not touch shared state.
type Listeners struct {
	mu   sync.Mutex
	gen  uint64
	subs []Subscription
}

// Begin drops any previous subscriptions and starts a new generation.
func (l *Listeners) Begin() uint64 {
	l.mu.Lock()
	old := l.subs
	l.subs = nil
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	for _, sub := range old {
		sub.Unsubscribe()
	}
	return gen
}

// Add records a subscription for the generation gen. Subscriptions for a
// generation that already ended are released immediately.
func (l *Listeners) Add(gen uint64, sub Subscription) {
	if sub == nil {
		return
	}

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	l.subs = append(l.subs, sub)
	l.mu.Unlock()
}

// Current reports whether gen is still the live generation.
func (l *Listeners) Current(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return gen == l.gen && gen != 0
}

// Clear releases every subscription and ends the current generation.
func (l *Listeners) Clear() {
	l.mu.Lock()
	old := l.subs
	l.subs = nil
	l.gen++
	l.mu.Unlock()

	for _, sub := range old {
		sub.Unsubscribe()
	}
}

// Len returns the number of live subscriptions.
func (l *Listeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}
