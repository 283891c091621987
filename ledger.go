package walletd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// LedgerService is the remote ledger the session depends on: balances,
// server time, push registration and transaction status. The base URL is
// swappable so a network switch can repoint the same client.
type LedgerService interface {
	GetBalance(ctx context.Context, address string) (*Balance, error)
	GetTimestamp(ctx context.Context) (*ServerTime, error)
	RegisterPush(ctx context.Context, st *ServerTime, reg *PushRegistration) error
	UnregisterPush(ctx context.Context, st *ServerTime, reg *PushRegistration) error
	GetTransactionStatus(ctx context.Context, hash string) (*Payment, error)
	BaseURL() string
	SetBaseURL(url string)
}

type ledgerClient struct {
	mu sync.RWMutex
	c  *resty.Client
}

func newRestyClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second)
}

func NewLedgerClient(baseURL string) LedgerService {
	return &ledgerClient{c: newRestyClient(baseURL)}
}

func (l *ledgerClient) BaseURL() string {
	return l.client().BaseURL
}

// SetBaseURL swaps in a fresh client instead of mutating the old one, so
// requests already holding the previous client finish against the previous
// endpoint and never race the switch.
func (l *ledgerClient) SetBaseURL(url string) {
	c := newRestyClient(url)

	l.mu.Lock()
	l.c = c
	l.mu.Unlock()
}

func (l *ledgerClient) client() *resty.Client {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.c
}

func (l *ledgerClient) GetBalance(ctx context.Context, address string) (*Balance, error) {
	var balance Balance

	resp, err := l.client().R().
		SetContext(ctx).
		SetResult(&balance).
		Get("/v1/balance/" + address)

	if err != nil {
		return nil, fmt.Errorf("ledger: get balance: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("ledger: get balance: %s", resp.Status())
	}

	return &balance, nil
}

func (l *ledgerClient) GetTimestamp(ctx context.Context) (*ServerTime, error) {
	var st ServerTime

	resp, err := l.client().R().
		SetContext(ctx).
		SetResult(&st).
		Get("/v1/timestamp")

	if err != nil {
		return nil, fmt.Errorf("ledger: get timestamp: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("ledger: get timestamp: %s", resp.Status())
	}

	return &st, nil
}

func (l *ledgerClient) RegisterPush(ctx context.Context, st *ServerTime, reg *PushRegistration) error {
	return l.postPush(ctx, st, reg, "/v1/push/register")
}

func (l *ledgerClient) UnregisterPush(ctx context.Context, st *ServerTime, reg *PushRegistration) error {
	return l.postPush(ctx, st, reg, "/v1/push/deregister")
}

func (l *ledgerClient) postPush(ctx context.Context, st *ServerTime, reg *PushRegistration, path string) error {
	resp, err := l.client().R().
		SetContext(ctx).
		SetHeader("X-Request-Id", uuid.NewString()).
		SetHeader("X-Timestamp", cast.ToString(st.Get())).
		SetBody(reg).
		Post(path)

	if err != nil {
		return fmt.Errorf("ledger: %s: %w", path, err)
	}

	if resp.IsError() {
		return fmt.Errorf("ledger: %s: %s", path, resp.Status())
	}

	return nil
}

func (l *ledgerClient) GetTransactionStatus(ctx context.Context, hash string) (*Payment, error) {
	var payment Payment

	resp, err := l.client().R().
		SetContext(ctx).
		SetResult(&payment).
		Get("/v1/tx/" + hash)

	if err != nil {
		return nil, fmt.Errorf("ledger: tx status: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("ledger: tx status: %s", resp.Status())
	}

	return &payment, nil
}
