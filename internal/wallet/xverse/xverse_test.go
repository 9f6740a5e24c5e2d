package xverse_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/btclink/internal/store"
	"github.com/mrz1836/btclink/internal/wallet"
	"github.com/mrz1836/btclink/internal/wallet/xverse"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

type handler func(params any) (*xverse.Response, error)

type fakeAPI struct {
	mu        sync.Mutex
	installed bool
	handlers  map[string]handler
	calls     []string
	nextID    int
	listeners map[string]map[int]func(json.RawMessage)
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{
		installed: true,
		handlers:  make(map[string]handler),
		listeners: make(map[string]map[int]func(json.RawMessage)),
	}
	f.result(xverse.MethodRequestPermissions, true)
	f.addresses("bc1qpayment", "02abc")
	f.result(xverse.MethodRenouncePermissions, true)
	return f
}

func (f *fakeAPI) result(method string, v any) {
	raw, _ := json.Marshal(v)
	f.handle(method, func(any) (*xverse.Response, error) {
		return &xverse.Response{Result: raw}, nil
	})
}

func (f *fakeAPI) fail(method string, code int, msg string) {
	f.handle(method, func(any) (*xverse.Response, error) {
		return &xverse.Response{Error: &xverse.ResponseError{Code: code, Message: msg}}, nil
	})
}

func (f *fakeAPI) addresses(addr, pub string) {
	f.result(xverse.MethodGetAddresses, map[string]any{
		"addresses": []xverse.Address{
			{Address: "bc1pordinals", PublicKey: "03ord", Purpose: "ordinals"},
			{Address: addr, PublicKey: pub, Purpose: xverse.PurposePayment},
		},
	})
}

func (f *fakeAPI) handle(method string, h handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeAPI) Installed() bool { return f.installed }

func (f *fakeAPI) Request(_ context.Context, method string, params any) (*xverse.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	h := f.handlers[method]
	f.mu.Unlock()
	return h(params)
}

func (f *fakeAPI) AddListener(event string, fn func(json.RawMessage)) wallet.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	if f.listeners[event] == nil {
		f.listeners[event] = make(map[int]func(json.RawMessage))
	}
	f.listeners[event][id] = fn
	return wallet.SubscriptionFunc(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners[event], id)
	})
}

func (f *fakeAPI) emit(event string) {
	f.mu.Lock()
	fns := make([]func(json.RawMessage), 0)
	for _, fn := range f.listeners[event] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(json.RawMessage(`null`))
	}
}

func (f *fakeAPI) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.listeners {
		n += len(m)
	}
	return n
}

func (f *fakeAPI) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

type fixture struct {
	api    *fakeAPI
	state  *wallet.State
	store  *store.MemoryStore
	opened []string
	w      wallet.Wallet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{api: newFakeAPI(), state: wallet.NewState(), store: store.NewMemoryStore()}
	f.w = xverse.New(wallet.Params{
		State: f.state,
		Store: f.store,
		Opener: wallet.OpenerFunc(func(_ context.Context, url string) error {
			f.opened = append(f.opened, url)
			return nil
		}),
	}, f.api)
	return f
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	assert.Equal(t, xverse.Name, f.w.Name())
	assert.Equal(t, wallet.Xverse, f.w.Type())
	assert.NotEmpty(t, f.w.Logo())
	assert.True(t, f.w.IsInstalled())
}

func TestConnect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.w.Connect(context.Background()))

	assert.Equal(t, wallet.Connected(wallet.Xverse, "bc1qpayment", "02abc"), f.state.Info())
	_, busy := f.state.Connecting()
	assert.False(t, busy)
	assert.Equal(t, []string{xverse.MethodRequestPermissions, xverse.MethodGetAddresses}, f.api.calls)
	assert.Equal(t, 2, f.api.listenerCount())
}

func TestConnectNoopWhileBusy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.True(t, f.state.BeginConnect(wallet.Unisat))

	require.NoError(t, f.w.Connect(context.Background()))
	assert.Empty(t, f.api.calls)
	assert.Equal(t, wallet.DefaultInfo(), f.state.Info())
	typ, busy := f.state.Connecting()
	assert.True(t, busy)
	assert.Equal(t, wallet.Unisat, typ)
}

func TestConnectNotInstalledOpensInstallPage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.api.installed = false

	require.NoError(t, f.w.Connect(context.Background()))
	assert.Equal(t, []string{xverse.InstallURL}, f.opened)
	assert.Empty(t, f.api.calls)
	_, busy := f.state.Connecting()
	assert.False(t, busy)
}

func TestConnectErrorsPropagate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		code   int
		want   error
	}{
		{"address error", xverse.MethodGetAddresses, -32000, linkerr.ErrProviderError},
		{"address rejected", xverse.MethodGetAddresses, wallet.RejectedCode, linkerr.ErrUserRejected},
		{"permission rejected", xverse.MethodRequestPermissions, wallet.RejectedCode, linkerr.ErrUserRejected},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			require.NoError(t, f.state.SetInfo(wallet.Connected(wallet.OKX, "old", "oldpub")))
			f.api.fail(tc.method, tc.code, "nope")

			err := f.w.Connect(context.Background())
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, wallet.DefaultInfo(), f.state.Info())
			_, busy := f.state.Connecting()
			assert.False(t, busy)
			assert.Zero(t, f.api.listenerCount())
		})
	}
}

func TestConnectWithoutPaymentAddress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.api.result(xverse.MethodGetAddresses, map[string]any{"addresses": []xverse.Address{}})

	require.ErrorIs(t, f.w.Connect(context.Background()), linkerr.ErrNoAddress)
	assert.Equal(t, wallet.DefaultInfo(), f.state.Info())
}

func TestAccountChange(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.w.Connect(context.Background()))

	f.api.addresses("bc1qsecond", "02def")
	f.api.emit(xverse.EventAccountChange)
	assert.Equal(t, wallet.Connected(wallet.Xverse, "bc1qsecond", "02def"), f.state.Info())

	f.api.fail(xverse.MethodGetAddresses, -1, "locked")
	f.api.emit(xverse.EventAccountChange)
	assert.Equal(t, wallet.DefaultInfo(), f.state.Info())
}

func TestAccountDisconnected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.Set(wallet.PersistKey, "xverse"))
	require.NoError(t, f.w.Connect(context.Background()))

	f.api.emit(xverse.EventAccountDisconnected)
	assert.Equal(t, wallet.DefaultInfo(), f.state.Info())
	_, ok, _ := f.store.Get(wallet.PersistKey)
	assert.False(t, ok)
	assert.Zero(t, f.api.listenerCount())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.w.Connect(context.Background()))

	require.NoError(t, f.w.Disconnect(context.Background()))
	assert.Equal(t, wallet.DefaultInfo(), f.state.Info())
	require.NoError(t, f.w.Disconnect(context.Background()))
	assert.Equal(t, wallet.DefaultInfo(), f.state.Info())

	assert.Equal(t, 2, f.api.callCount(xverse.MethodRenouncePermissions))
	assert.Zero(t, f.api.listenerCount())
}

func TestStaleListenerCannotResurrect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.w.Connect(context.Background()))

	// capture the handler before disconnect removes it
	f.api.mu.Lock()
	var stale func(json.RawMessage)
	for _, fn := range f.api.listeners[xverse.EventAccountChange] {
		stale = fn
	}
	f.api.mu.Unlock()
	require.NotNil(t, stale)

	require.NoError(t, f.w.Disconnect(context.Background()))
	stale(nil)
	assert.Equal(t, wallet.DefaultInfo(), f.state.Info())
}

func TestSendBitcoin(t *testing.T) {
	t.Parallel()

	t.Run("returns txid", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		var got any
		f.api.handle(xverse.MethodSendTransfer, func(params any) (*xverse.Response, error) {
			got = params
			return &xverse.Response{Result: json.RawMessage(`{"txid":"abc123"}`)}, nil
		})

		txid, err := f.w.SendBitcoin(context.Background(), wallet.SendRequest{Recipient: "bc1qdest", Amount: 1500})
		require.NoError(t, err)
		assert.Equal(t, "abc123", txid)

		raw, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, `{"recipients":[{"address":"bc1qdest","amount":1500}]}`, string(raw))
	})

	t.Run("surfaces provider message", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.api.fail(xverse.MethodSendTransfer, -32603, "insufficient funds")

		_, err := f.w.SendBitcoin(context.Background(), wallet.SendRequest{Recipient: "bc1q", Amount: 1})
		require.ErrorIs(t, err, linkerr.ErrProviderError)
		assert.Contains(t, err.Error(), "insufficient funds")
	})

	t.Run("reports undecodable result", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.api.result(xverse.MethodSendTransfer, "not an object")

		_, err := f.w.SendBitcoin(context.Background(), wallet.SendRequest{Recipient: "bc1q", Amount: 1})
		require.ErrorIs(t, err, linkerr.ErrProviderError)
		assert.Contains(t, err.Error(), "no transaction id")
		assert.Contains(t, err.Error(), "cannot unmarshal")
	})

	t.Run("fails when not installed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.api.installed = false

		_, err := f.w.SendBitcoin(context.Background(), wallet.SendRequest{Recipient: "bc1q", Amount: 1})
		require.ErrorIs(t, err, linkerr.ErrWalletNotInstalled)
	})
}
