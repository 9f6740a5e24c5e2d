package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/btclink/internal/connector"
	"github.com/mrz1836/btclink/internal/metrics"
	"github.com/mrz1836/btclink/internal/output"
	"github.com/mrz1836/btclink/internal/wallet"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a wallet session open and print changes",
	Long: `Serve the relay page, restore the last connected wallet and print session
and balance changes until interrupted.

The last wallet is restored silently only when reconnecting is enabled and
--route matches wallet.reconnect_route. With --metrics-addr, Prometheus
metrics are served on /metrics and a liveness probe on /healthz.`,
	Example: `  btclink watch
  btclink watch --connect okx --metrics-addr 127.0.0.1:9108 -o json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	watchRoute       string
	watchMetricsAddr string
	watchConnect     string
)

// balanceCheckInterval is how often the printed balance is compared with the
// controller's.
const balanceCheckInterval = time.Second

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.GroupID = groupWallet
	watchCmd.Flags().StringVar(&watchRoute, "route", connector.DefaultRoute, "route the session is considered to be on")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	watchCmd.Flags().StringVar(&watchConnect, "connect", "", "connect this wallet after the relay attaches")
	_ = watchCmd.RegisterFlagCompletionFunc("connect", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return walletCompletions(), cobra.ShellCompDirectiveNoFileComp
	})
}

// watchEvent is one printed session change.
type watchEvent struct {
	Time    time.Time    `json:"time"`
	Kind    string       `json:"kind"`
	Info    *wallet.Info `json:"info,omitempty"`
	Balance *int64       `json:"balance_sats,omitempty"`
}

// eventPrinter serializes event output from the controller's goroutines.
type eventPrinter struct {
	mu  sync.Mutex
	out *output.Formatter
}

func (p *eventPrinter) print(ev watchEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.out.Stream(ev, func(w io.Writer) error {
		ts := ev.Time.Format(time.TimeOnly)
		var err error
		switch {
		case ev.Info != nil && ev.Info.IsConnected:
			_, err = fmt.Fprintf(w, "%s  %-12s %s %s\n", ts, ev.Kind, ev.Info.WalletType, ev.Info.Address)
		case ev.Balance != nil:
			_, err = fmt.Fprintf(w, "%s  %-12s %s BTC\n", ts, ev.Kind, output.FormatBTC(*ev.Balance))
		default:
			_, err = fmt.Fprintf(w, "%s  %s\n", ts, ev.Kind)
		}
		return err
	})
}

func runWatch(cmd *cobra.Command, _ []string) error {
	var connectType wallet.Type
	if watchConnect != "" {
		t, err := parseWallet(watchConnect)
		if err != nil {
			return err
		}
		connectType = t
	}

	route := watchRoute
	reconnectOn := connector.OnRoute(cfg.Wallet.ReconnectRoute, func() string { return route })
	s, err := startSession(sessionOptions{
		relay:     true,
		balance:   newExplorer(),
		reconnect: func() bool { return cfg.Wallet.Reconnect && reconnectOn() },
	})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := connector.WithController(cmd.Context(), s.ctrl)

	if watchMetricsAddr != "" {
		_, stop, err := serveMetrics(watchMetricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	printer := &eventPrinter{out: formatter}
	unsubscribe := s.ctrl.OnChange(func(_, updated wallet.Info) {
		kind := "disconnected"
		if updated.IsConnected {
			kind = "connected"
		}
		printer.print(watchEvent{Time: time.Now(), Kind: kind, Info: &updated})
	})
	defer unsubscribe()

	relayLate := s.waitRelay(ctx, cfg.Bridge.WaitTimeout) != nil
	if relayLate {
		output.Warnf("relay page not attached yet; browser wallets will show as not installed")
	}
	s.ctrl.Start(ctx)
	if relayLate {
		go func() {
			if _, err := s.hub.Peer(ctx); err != nil || ctx.Err() != nil {
				return
			}
			logger.Debug("relay attached late; retrying reconnect")
			s.ctrl.RefreshWallets()
			s.ctrl.Reconnect(ctx)
		}()
	}

	if connectType != "" {
		if err := s.ctrl.Connect(ctx, connectType); err != nil {
			output.Warnf("connect %s: %v", connectType, err)
		}
	}

	return watchBalance(ctx, printer)
}

// watchBalance prints balance changes of the controller in ctx until ctx ends.
func watchBalance(ctx context.Context, printer *eventPrinter) error {
	ctrl, err := connector.FromContext(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(balanceCheckInterval)
	defer ticker.Stop()

	last := ctrl.Balance()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if bal := ctrl.Balance(); bal != last {
				last = bal
				printer.print(watchEvent{Time: time.Now(), Kind: "balance", Balance: &bal})
			}
		}
	}
}

// serveMetrics exposes the global metrics and a health probe on addr.
func serveMetrics(addr string) (net.Addr, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, linkerr.WithDetails(linkerr.WithCause(linkerr.ErrNetworkError, err), map[string]string{"addr": addr})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(metrics.Global))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	output.Infof("metrics on http://%s/metrics", ln.Addr())

	return ln.Addr(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
