package walletd

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// runRefreshLoop drives balance refreshes: one pass whenever connectivity
// is (re)established plus a steady ticker. Failed refreshes change nothing
// and wait for the next trigger.
func (s *Server) runRefreshLoop(ctx context.Context) error {
	connected, cancel := s.conn.Subscribe()
	defer cancel()

	interval := s.cfg.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case online := <-connected:
			if !online {
				continue
			}

			s.refreshOnce(ctx)

		case <-time.After(interval):
			if !s.conn.Online() {
				continue
			}

			s.refreshOnce(ctx)
		}
	}
}

func (s *Server) refreshOnce(ctx context.Context) {
	err := s.session.Balances().Refresh(ctx)
	if err == nil {
		return
	}

	if errors.Is(err, ErrBalanceNotInitialized) {
		// no wallet attached yet; the next trigger after init will land
		return
	}

	slog.Error("scheduled balance refresh failed", slog.Any("err", err))
}
