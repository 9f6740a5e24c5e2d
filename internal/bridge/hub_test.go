package bridge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/btclink/internal/bridge"
	"github.com/mrz1836/btclink/internal/bridge/bridgetest"
)

func newHub(t *testing.T) (*bridge.Hub, string) {
	t.Helper()

	hub := bridge.NewHub(nil)
	url := bridgetest.Serve(t, hub)
	t.Cleanup(func() { _ = hub.Close() })
	return hub, url
}

func waitPeer(t *testing.T, hub *bridge.Hub) *bridge.Peer {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p, err := hub.Peer(ctx)
	require.NoError(t, err)
	return p
}

func TestHubCallRoundTrip(t *testing.T) {
	t.Parallel()

	hub, url := newHub(t)
	relay := bridgetest.MustDial(t, url, "unisat", "okxwallet.bitcoin")
	relay.Handle("unisat.getBalance", func(params []json.RawMessage) (any, *bridge.RPCError) {
		return map[string]int{"total": len(params)}, nil
	})

	waitPeer(t, hub)
	assert.True(t, hub.Installed("unisat"))
	assert.True(t, hub.Installed("okxwallet.bitcoin"))
	assert.False(t, hub.Installed("XverseProviders.BitcoinProvider"))

	var out struct {
		Total int `json:"total"`
	}
	err := hub.Call(context.Background(), "unisat.getBalance", []any{"a", 2}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, []string{"unisat.getBalance"}, relay.Calls())
}

func TestHubCallError(t *testing.T) {
	t.Parallel()

	hub, url := newHub(t)
	relay := bridgetest.MustDial(t, url)
	relay.Fail("unisat.requestAccounts", bridge.CodeUserRejected, "User rejected the request")
	waitPeer(t, hub)

	err := hub.Call(context.Background(), "unisat.requestAccounts", nil, nil)
	require.Error(t, err)

	var rpcErr *bridge.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "User rejected the request", rpcErr.Message)
	assert.True(t, bridge.IsUserRejected(err))

	err = hub.Call(context.Background(), "missing.method", nil, nil)
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
	assert.False(t, bridge.IsUserRejected(err))
}

func TestHubNullResultLeavesPointerNil(t *testing.T) {
	t.Parallel()

	hub, url := newHub(t)
	relay := bridgetest.MustDial(t, url)
	relay.Result("okxwallet.bitcoin.connect", nil)
	waitPeer(t, hub)

	type account struct{ Address string }
	out := &account{Address: "stale"}
	require.NoError(t, hub.Call(context.Background(), "okxwallet.bitcoin.connect", nil, &out))
	assert.Nil(t, out)
}

func TestHubEventsReachSubscribers(t *testing.T) {
	t.Parallel()

	hub, url := newHub(t)
	relay := bridgetest.MustDial(t, url)
	waitPeer(t, hub)

	var got atomic.Value
	sub := hub.Subscribe("unisat.accountsChanged", func(data json.RawMessage) {
		var accounts []string
		_ = json.Unmarshal(data, &accounts)
		got.Store(accounts)
	})
	assert.Equal(t, 1, hub.HandlerCount("unisat.accountsChanged"))

	require.NoError(t, relay.Emit("unisat.accountsChanged", []string{"bc1qnew"}))
	require.Eventually(t, func() bool {
		v, _ := got.Load().([]string)
		return len(v) == 1 && v[0] == "bc1qnew"
	}, 2*time.Second, 10*time.Millisecond)

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Zero(t, hub.HandlerCount("unisat.accountsChanged"))
}

func TestHubEventHandlerCanCall(t *testing.T) {
	t.Parallel()

	hub, url := newHub(t)
	relay := bridgetest.MustDial(t, url, "unisat_wallet")
	relay.Result("unisat_wallet.getPublicKey", "02second")
	waitPeer(t, hub)

	got := make(chan string, 1)
	sub := hub.Subscribe("unisat_wallet.accountsChanged", func(json.RawMessage) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		var pub string
		if err := hub.Call(ctx, "unisat_wallet.getPublicKey", nil, &pub); err != nil {
			pub = err.Error()
		}
		got <- pub
	})
	defer sub.Unsubscribe()

	require.NoError(t, relay.Emit("unisat_wallet.accountsChanged", []string{"bc1qsecond"}))
	select {
	case pub := <-got:
		assert.Equal(t, "02second", pub)
	case <-time.After(3 * time.Second):
		t.Fatal("handler call never completed")
	}
}

func TestHubEventsKeepOrder(t *testing.T) {
	t.Parallel()

	hub, url := newHub(t)
	relay := bridgetest.MustDial(t, url)
	waitPeer(t, hub)

	var (
		mu  sync.Mutex
		seq []int
	)
	sub := hub.Subscribe("tick", func(data json.RawMessage) {
		var n int
		_ = json.Unmarshal(data, &n)
		mu.Lock()
		seq = append(seq, n)
		mu.Unlock()
	})
	defer sub.Unsubscribe()

	want := make([]int, 0, 50)
	for i := range 50 {
		want = append(want, i)
		require.NoError(t, relay.Emit("tick", i))
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seq) == len(want)
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, seq)
}

func TestPeerIgnoresDuplicateResults(t *testing.T) {
	t.Parallel()

	hub, url := newHub(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.WriteJSON(bridge.Message{Type: bridge.TypeHello}))

	go func() {
		for {
			var msg bridge.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			reply := bridge.Message{Type: bridge.TypeResult, ID: msg.ID, Result: json.RawMessage(`"ok"`)}
			for range 3 {
				if err := conn.WriteJSON(reply); err != nil {
					return
				}
			}
		}
	}()

	peer := waitPeer(t, hub)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for range 5 {
		var out string
		require.NoError(t, peer.Call(ctx, "unisat_wallet.getNetwork", nil, &out))
		assert.Equal(t, "ok", out)
	}
}

func TestHubRejectsSecondRelay(t *testing.T) {
	t.Parallel()

	hub, url := newHub(t)
	bridgetest.MustDial(t, url)
	waitPeer(t, hub)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestHubPeerWaitsForRelay(t *testing.T) {
	t.Parallel()

	hub, url := newHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := hub.Peer(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, hub.Installed("unisat"))
	assert.Nil(t, hub.Current())

	bridgetest.MustDial(t, url, "unisat")
	p := waitPeer(t, hub)
	assert.Equal(t, []string{"unisat"}, p.Globals())
}

func TestHubDetachFailsPendingCalls(t *testing.T) {
	t.Parallel()

	hub, url := newHub(t)
	relay := bridgetest.MustDial(t, url)
	block := make(chan struct{})
	relay.Handle("xverse.request", func([]json.RawMessage) (any, *bridge.RPCError) {
		<-block
		return nil, nil
	})
	peer := waitPeer(t, hub)

	errCh := make(chan error, 1)
	go func() {
		errCh <- peer.Call(context.Background(), "xverse.request", nil, nil)
	}()

	require.Eventually(t, func() bool { return relay.CallCount("xverse.request") == 1 },
		2*time.Second, 10*time.Millisecond)
	require.NoError(t, peer.Close())
	close(block)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, bridge.ErrPeerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("pending call was not released")
	}

	require.ErrorIs(t, peer.Call(context.Background(), "x", nil, nil), bridge.ErrPeerClosed)
}

func TestHubClose(t *testing.T) {
	t.Parallel()

	hub, _ := newHub(t)
	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())

	_, err := hub.Peer(context.Background())
	require.ErrorIs(t, err, bridge.ErrHubClosed)
}

func TestRPCErrorMessage(t *testing.T) {
	t.Parallel()

	err := &bridge.RPCError{Code: 4001, Message: "denied"}
	assert.True(t, strings.Contains(err.Error(), "denied"))
	assert.Contains(t, err.Error(), "4001")
}
