package walletd

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Session owns the wallet lifecycle: at most one active identity, the
// balance cache and the managers hanging off it. Initialization is
// serialized so concurrent calls can neither create two identities nor
// double-initialize the managers.
type Session struct {
	db       *badger.DB
	ledger   LedgerService
	exchange ExchangeService
	tokens   TokenSource
	networks *Networks

	wallets   *WalletStore
	balances  *BalanceCache
	rates     *RateFetcher
	registrar *PushRegistrar
	switcher  *Switcher

	walletFeed *Feed[*WalletIdentity]

	mu          sync.Mutex
	sf          singleflight.Group
	wallet      *WalletIdentity
	initialized bool
}

func NewSession(
	db *badger.DB,
	ledger LedgerService,
	exchange ExchangeService,
	tokens TokenSource,
	networks *Networks,
) *Session {
	s := &Session{
		db:         db,
		ledger:     ledger,
		exchange:   exchange,
		tokens:     tokens,
		networks:   networks,
		wallets:    NewWalletStore(db),
		balances:   NewBalanceCache(db, ledger),
		rates:      NewRateFetcher(exchange),
		walletFeed: NewFeed[*WalletIdentity](),
	}

	s.registrar = NewPushRegistrar(db, ledger, PushServiceLedger)
	s.switcher = NewSwitcher(db, ledger, s.registrar, networks, tokens, s.paymentAddress)

	// no wallet yet: subscribers see none until init lands
	s.walletFeed.Publish(nil)

	return s
}

// Init attaches to the active wallet identity, creating one if none exists,
// and initializes the dependent managers exactly once. Safe to call
// concurrently and repeatedly.
func (s *Session) Init(ctx context.Context) error {
	return s.initWallet(ctx, true)
}

// TryInit is Init without the create: when no identity exists it returns
// ErrNoWallet instead of making one. Used for silent app-start attempts.
func (s *Session) TryInit(ctx context.Context) error {
	return s.initWallet(ctx, false)
}

func (s *Session) initWallet(ctx context.Context, create bool) error {
	_, err, _ := s.sf.Do("init", func() (interface{}, error) {
		s.mu.Lock()
		done := s.wallet != nil && s.initialized
		s.mu.Unlock()

		if done {
			return nil, nil
		}

		var (
			wallet *WalletIdentity
			err    error
		)

		if create {
			wallet, err = s.wallets.GetOrCreate()
		} else {
			wallet, err = s.wallets.Existing()
		}

		if err != nil {
			return nil, err
		}

		s.setWallet(wallet)
		return nil, s.initManagers()
	})

	return err
}

func (s *Session) setWallet(wallet *WalletIdentity) {
	s.mu.Lock()
	s.wallet = wallet
	s.mu.Unlock()

	s.walletFeed.Publish(wallet)
}

func (s *Session) initManagers() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if err := s.balances.Init(s.wallet); err != nil {
		return err
	}

	s.initialized = true
	return nil
}

// Wallet returns a stream of the active identity: nil while none is
// attached, then the identity. Errors never cross this boundary.
func (s *Session) Wallet() (<-chan *WalletIdentity, func()) {
	return s.walletFeed.Subscribe()
}

func (s *Session) CurrentWallet() *WalletIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wallet
}

func (s *Session) Ledger() LedgerService     { return s.ledger }
func (s *Session) Balances() *BalanceCache   { return s.balances }
func (s *Session) Rates() *RateFetcher       { return s.rates }
func (s *Session) Switcher() *Switcher       { return s.switcher }
func (s *Session) Networks() *Networks       { return s.networks }
func (s *Session) Registrar() *PushRegistrar { return s.registrar }

func (s *Session) paymentAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wallet == nil {
		return ""
	}

	return s.wallet.PaymentAddress()
}

// RegisterPushToken sends the device token to the ledger unless the
// per-service sent flag already says so; force bypasses the guard.
func (s *Session) RegisterPushToken(ctx context.Context, force bool) error {
	sent, err := s.registrar.Sent()
	if err != nil {
		return err
	}

	if sent && !force {
		return nil
	}

	token, err := s.tokens(ctx)
	if err != nil {
		return err
	}

	return s.registrar.Register(ctx, token, s.paymentAddress())
}

// SelectedCurrency is the persisted local currency used as the default
// conversion target.
func (s *Session) SelectedCurrency() (string, error) {
	return ReadCurrency(s.db)
}

func (s *Session) SelectCurrency(code string) error {
	if _, err := CurrencySymbol(code); err != nil {
		return err
	}

	return SaveCurrency(s.db, code)
}

// ConvertToLocal converts a crypto amount to the selected currency at a
// freshly fetched rate.
func (s *Session) ConvertToLocal(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	code, err := s.SelectedCurrency()
	if err != nil {
		return decimal.Zero, err
	}

	return CryptoToLocal(amount, s.rates.Rates(ctx), code), nil
}

func (s *Session) ConvertToCrypto(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	code, err := s.SelectedCurrency()
	if err != nil {
		return decimal.Zero, err
	}

	return LocalToCrypto(amount, s.rates.Rates(ctx), code), nil
}

func (s *Session) ConvertToLocalString(ctx context.Context, amount decimal.Decimal) (string, error) {
	code, err := s.SelectedCurrency()
	if err != nil {
		return "", err
	}

	return CryptoToLocalString(amount, s.rates.Rates(ctx), code)
}

// TransactionStatus fetches the ledger's view of a transaction.
func (s *Session) TransactionStatus(ctx context.Context, hash string) (*Payment, error) {
	return s.ledger.GetTransactionStatus(ctx, hash)
}

// ClearUserData tears the session down for sign-out: wipes the balance
// store, push flags, preferences and document prefixes, destroys the
// identity and resets the init flag. The session is ready for a fresh Init
// afterwards.
func (s *Session) ClearUserData() error {
	if err := s.balances.Clear(); err != nil {
		return err
	}

	if err := wipePrefixes(s.db,
		pushPrefix,
		prefPrefix,
		userPrefix,
		messagePrefix,
		recipientPrefix,
		paymentPrefix,
	); err != nil {
		return err
	}

	if err := s.wallets.Clear(); err != nil {
		return err
	}

	s.mu.Lock()
	s.wallet = nil
	s.initialized = false
	s.mu.Unlock()

	s.walletFeed.Publish(nil)
	slog.Info("user data cleared")

	return nil
}
