package walletd

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func testTokens(token string) TokenSource {
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
		panic("unreachable")
	}
}

type stubLedger struct {
	mu      sync.Mutex
	baseURL string
	calls   []string

	balance       *Balance
	balanceErr    error
	timestampErr  error
	registerErr   error
	unregisterErr error
	payment       *Payment

	registerEntered chan struct{}
	registerRelease chan struct{}
}

func (l *stubLedger) record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, name)
}

func (l *stubLedger) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.calls...)
}

func (l *stubLedger) GetBalance(ctx context.Context, address string) (*Balance, error) {
	l.record("balance")

	if l.balanceErr != nil {
		return nil, l.balanceErr
	}

	if l.balance == nil {
		return BalanceFromHex(zeroBalanceHex)
	}

	return l.balance, nil
}

func (l *stubLedger) GetTimestamp(ctx context.Context) (*ServerTime, error) {
	l.record("timestamp")

	if l.timestampErr != nil {
		return nil, l.timestampErr
	}

	return &ServerTime{Timestamp: 1700000000}, nil
}

func (l *stubLedger) RegisterPush(ctx context.Context, st *ServerTime, reg *PushRegistration) error {
	l.record("register")

	if l.registerEntered != nil {
		l.registerEntered <- struct{}{}
		<-l.registerRelease
	}

	return l.registerErr
}

func (l *stubLedger) UnregisterPush(ctx context.Context, st *ServerTime, reg *PushRegistration) error {
	l.record("unregister")
	return l.unregisterErr
}

func (l *stubLedger) GetTransactionStatus(ctx context.Context, hash string) (*Payment, error) {
	l.record("tx")
	return l.payment, nil
}

func (l *stubLedger) BaseURL() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.baseURL
}

func (l *stubLedger) SetBaseURL(url string) {
	l.record("set_base_url")

	l.mu.Lock()
	l.baseURL = url
	l.mu.Unlock()
}

type stubExchange struct {
	mu            sync.Mutex
	rates         MarketRates
	ratesErr      error
	currencies    []string
	currenciesErr error
	currencyCalls int
}

func (e *stubExchange) GetRates(ctx context.Context, base string) (MarketRates, error) {
	if e.ratesErr != nil {
		return nil, e.ratesErr
	}

	return e.rates, nil
}

func (e *stubExchange) GetCurrencies(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	e.currencyCalls++
	e.mu.Unlock()

	if e.currenciesErr != nil {
		return nil, e.currenciesErr
	}

	return e.currencies, nil
}
