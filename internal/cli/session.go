package cli

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/mrz1836/btclink/internal/bridge"
	"github.com/mrz1836/btclink/internal/config"
	"github.com/mrz1836/btclink/internal/connector"
	"github.com/mrz1836/btclink/internal/explorer"
	"github.com/mrz1836/btclink/internal/metrics"
	"github.com/mrz1836/btclink/internal/output"
	"github.com/mrz1836/btclink/internal/store"
	"github.com/mrz1836/btclink/internal/wallet/ledger"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// sessionOptions selects what a wallet command needs.
type sessionOptions struct {
	// relay starts the HTTP server the browser relay page connects to.
	relay bool
	// reconnect is passed to the controller as ShouldReconnect.
	reconnect func() bool
	// balance enables balance polling.
	balance connector.BalanceFetcher
}

// session bundles the relay server, the hub and the wallet controller.
type session struct {
	hub    *bridge.Hub
	server *http.Server
	addr   string
	store  store.Store
	ctrl   *connector.Controller
}

// openStore opens the configured persisted-state backend.
func openStore() (store.Store, error) {
	return store.Open(cfg.Wallet.Store, cfg.StatePath())
}

// newExplorer builds the balance client from config.
func newExplorer() *explorer.Client {
	return explorer.NewClient(&explorer.ClientOptions{
		BaseURL:     cfg.Explorer.URL,
		HTTPClient:  &http.Client{Timeout: cfg.Explorer.Timeout},
		RateLimiter: explorer.NewRateLimiter(cfg.Explorer.RatePerSecond, cfg.Explorer.Burst),
	})
}

// startSession wires the controller over a fresh hub. The controller is not
// started: callers wait for the relay first so installation probes are accurate.
func startSession(opts sessionOptions) (*session, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}

	hub := bridge.NewHub(&bridge.HubOptions{Logger: logger})
	s := &session{hub: hub, store: st}

	if opts.relay {
		ln, err := net.Listen("tcp", cfg.Bridge.Addr)
		if err != nil {
			_ = hub.Close()
			return nil, linkerr.WithSuggestion(
				linkerr.WithDetails(linkerr.WithCause(linkerr.ErrNetworkError, err), map[string]string{"addr": cfg.Bridge.Addr}),
				"choose another relay address with --bridge host:port",
			)
		}
		s.addr = ln.Addr().String()
		s.server = &http.Server{
			Handler:           bridge.NewMux(hub),
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          log.New(logger.Writer(config.LogLevelError), "relay: ", 0),
		}
		go func() {
			if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("relay server: %v", err)
			}
		}()
		logger.Info("relay listening on %s", s.addr)
	}

	s.ctrl = connector.New(connector.Config{
		Factories:       connector.DefaultFactories(hub, nil, ledger.WithPath(cfg.Wallet.LedgerPath)),
		Store:           st,
		Balance:         opts.balance,
		ShouldReconnect: opts.reconnect,
		PollInterval:    cfg.Wallet.PollInterval,
		Opener:          hub,
		Logger:          logger,
		Metrics:         metrics.Global,
	})
	return s, nil
}

// relayURL is the page the user opens in the browser holding the extensions.
func (s *session) relayURL() string {
	return "http://" + s.addr + bridge.PagePath
}

// waitRelay blocks until the relay page attaches or timeout passes.
func (s *session) waitRelay(ctx context.Context, timeout time.Duration) error {
	output.Infof("open %s in the browser that has your wallet extensions", s.relayURL())

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := s.hub.Peer(ctx); err != nil {
		return linkerr.WithSuggestion(
			linkerr.WithCause(linkerr.ErrTimeout, err),
			"open "+s.relayURL()+" and keep the tab open",
		)
	}
	logger.Debug("relay attached")
	return nil
}

// Close stops the controller, the hub and the relay server.
func (s *session) Close() {
	_ = s.ctrl.Close()
	_ = s.hub.Close()
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
}
