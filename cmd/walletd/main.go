package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dgraph-io/badger/v4"
	walletd "github.com/oxeth/walletd"
	"golang.org/x/sync/errgroup"
)

var cfg struct {
	dbPath      string
	port        int
	ledgerURL   string
	exchangeURL string
	issuer      string
	secret      string
	pushToken   string
	refresh     time.Duration
	probe       time.Duration
}

func init() {
	flag.StringVar(&cfg.dbPath, "db", "walletd.db", "database path")
	flag.IntVar(&cfg.port, "port", 8080, "http port")
	flag.StringVar(&cfg.ledgerURL, "ledger", "", "ledger service base url (default: selected network)")
	flag.StringVar(&cfg.exchangeURL, "exchange", "https://exchange.oxeth.dev", "exchange-rate service base url")
	flag.StringVar(&cfg.issuer, "issuer", "", "jwt issuer for api auth (empty disables auth)")
	flag.StringVar(&cfg.secret, "secret", "", "hmac secret for api token signatures")
	flag.StringVar(&cfg.pushToken, "push-token", "", "device push token")
	flag.DurationVar(&cfg.refresh, "refresh", time.Minute, "balance refresh interval")
	flag.DurationVar(&cfg.probe, "probe", 30*time.Second, "connectivity probe interval")

	flag.Parse()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	db, err := badger.Open(badger.DefaultOptions(cfg.dbPath))
	if err != nil {
		slog.Error("open db failed", slog.Any("err", err))
		return
	}

	networks := walletd.MainNetworks()

	ledgerURL := cfg.ledgerURL
	if ledgerURL == "" {
		selected, err := walletd.ReadNetwork(db, networks)
		if err != nil {
			slog.Error("read network selection failed", slog.Any("err", err))
			return
		}

		ledgerURL = selected.URL
	}

	ledger := walletd.NewLedgerClient(ledgerURL)
	exchange := walletd.NewExchangeClient(cfg.exchangeURL)

	tokens := func(ctx context.Context) (string, error) {
		if cfg.pushToken == "" {
			return "", fmt.Errorf("no push token configured")
		}

		return cfg.pushToken, nil
	}

	session := walletd.NewSession(db, ledger, exchange, tokens, networks)

	svr := walletd.NewServer(db, session, walletd.Config{
		Issuer:          cfg.issuer,
		Secret:          cfg.secret,
		RefreshInterval: cfg.refresh,
		ProbeInterval:   cfg.probe,
	})

	slog.Info("walletd launch", "ledger", ledgerURL)

	s := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.port),
		Handler: svr.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http listen", slog.String("addr", s.Addr))
		return s.ListenAndServe()
	})

	g.Go(func() error {
		<-ctx.Done()

		return s.Shutdown(ctx)
	})

	g.Go(func() error {
		return runGC(ctx, db, time.Minute)
	})

	g.Go(func() error {
		return svr.Run(ctx)
	})

	_ = g.Wait()
}

func runGC(ctx context.Context, db *badger.DB, dur time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			_ = db.RunValueLogGC(0.7)
		}
	}
}
