package walletd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

var ErrBalanceNotInitialized = errors.New("balance cache not initialized")

// BalanceCache owns the last-known balance for the active wallet address.
// Every refreshed value is persisted before it is published, so the feed
// never runs ahead of durable storage.
type BalanceCache struct {
	db     *badger.DB
	ledger LedgerService
	feed   *Feed[*Balance]

	mu          sync.Mutex
	address     string
	initialized bool
}

func NewBalanceCache(db *badger.DB, ledger LedgerService) *BalanceCache {
	return &BalanceCache{
		db:     db,
		ledger: ledger,
		feed:   NewFeed[*Balance](),
	}
}

// Init loads the persisted balance for the wallet (zero when none has been
// stored) and publishes it immediately. Idempotent until Clear.
func (c *BalanceCache) Init(wallet *WalletIdentity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	address := wallet.PaymentAddress()

	cached, err := ReadBalance(c.db, address)
	if err != nil {
		return fmt.Errorf("load cached balance: %w", err)
	}

	c.address = address
	c.initialized = true
	c.feed.Publish(cached)

	return nil
}

// Refresh queries the ledger for the current balance, persists it and then
// publishes it. A fetch failure changes nothing; retry policy belongs to
// the connectivity trigger.
func (c *BalanceCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	address, initialized := c.address, c.initialized
	c.mu.Unlock()

	if !initialized {
		return ErrBalanceNotInitialized
	}

	balance, err := c.ledger.GetBalance(ctx, address)
	if err != nil {
		slog.Error("refresh balance failed", slog.Any("err", err))
		return err
	}

	if err := SaveBalance(c.db, address, balance); err != nil {
		return fmt.Errorf("persist balance: %w", err)
	}

	c.feed.Publish(balance)
	return nil
}

// Subscribe returns a stream primed with the most recent balance.
func (c *BalanceCache) Subscribe() (<-chan *Balance, func()) {
	return c.feed.Subscribe()
}

// Current returns the most recently published balance, if any.
func (c *BalanceCache) Current() (*Balance, bool) {
	return c.feed.Last()
}

// Clear erases persisted balance storage and detaches the wallet. Values
// already delivered to subscribers are unaffected.
func (c *BalanceCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.DropPrefix(balancePrefix); err != nil {
		return err
	}

	c.address = ""
	c.initialized = false

	return nil
}
