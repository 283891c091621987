package walletd

import (
	"context"
	"log/slog"
	"time"
)

// Connectivity is a latest-value stream of online state. Transitions only:
// repeated identical probes publish nothing, so a (re)connect delivers
// exactly one trigger.
type Connectivity struct {
	feed *Feed[bool]
}

func NewConnectivity() *Connectivity {
	return &Connectivity{feed: NewFeed[bool]()}
}

func (c *Connectivity) Set(online bool) {
	if last, ok := c.feed.Last(); ok && last == online {
		return
	}

	c.feed.Publish(online)
}

func (c *Connectivity) Online() bool {
	online, ok := c.feed.Last()
	return ok && online
}

func (c *Connectivity) Subscribe() (<-chan bool, func()) {
	return c.feed.Subscribe()
}

// ConnectivityMonitor probes the ledger timestamp endpoint so the signal
// tracks the one service the wallet actually depends on.
type ConnectivityMonitor struct {
	ledger   LedgerService
	signal   *Connectivity
	interval time.Duration
}

func NewConnectivityMonitor(ledger LedgerService, signal *Connectivity, interval time.Duration) *ConnectivityMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &ConnectivityMonitor{
		ledger:   ledger,
		signal:   signal,
		interval: interval,
	}
}

func (m *ConnectivityMonitor) Run(ctx context.Context) error {
	m.probe(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.interval):
			m.probe(ctx)
		}
	}
}

func (m *ConnectivityMonitor) probe(ctx context.Context) {
	_, err := m.ledger.GetTimestamp(ctx)
	if err != nil {
		slog.Debug("connectivity probe failed", slog.Any("err", err))
	}

	m.signal.Set(err == nil)
}
