package walletd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Issuer          string
	Secret          string
	RefreshInterval time.Duration
	ProbeInterval   time.Duration
}

// Server bundles the session with its background loops and HTTP surface.
type Server struct {
	db      *badger.DB
	session *Session
	conn    *Connectivity
	cfg     Config
}

func NewServer(db *badger.DB, session *Session, cfg Config) *Server {
	return &Server{
		db:      db,
		session: session,
		conn:    NewConnectivity(),
		cfg:     cfg,
	}
}

func (s *Server) Session() *Session {
	return s.session
}

func (s *Server) Run(ctx context.Context) error {
	// silent attach to an existing wallet; absence is not an error here
	if err := s.session.TryInit(ctx); err != nil {
		if errors.Is(err, ErrNoWallet) {
			slog.Info("no existing wallet, waiting for init")
		} else {
			slog.Error("early init failed", slog.Any("err", err))
		}
	}

	monitor := NewConnectivityMonitor(s.session.Ledger(), s.conn, s.cfg.ProbeInterval)

	var g errgroup.Group

	g.Go(func() error {
		return monitor.Run(ctx)
	})

	g.Go(func() error {
		return s.runRefreshLoop(ctx)
	})

	return g.Wait()
}
