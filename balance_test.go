package walletd

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBalanceCacheInitPublishesPersisted(t *testing.T) {
	db := testDB(t)
	ledger := &stubLedger{}
	cache := NewBalanceCache(db, ledger)

	wallet, err := NewWalletStore(db).GetOrCreate()
	require.NoError(t, err)

	require.NoError(t, cache.Init(wallet))

	ch, cancel := cache.Subscribe()
	defer cancel()

	got := recv(t, ch)
	require.Equal(t, "0x0", got.UnconfirmedHex())

	current, ok := cache.Current()
	require.True(t, ok)
	require.True(t, got.Equal(current))

	// nothing hit the ledger yet
	require.Empty(t, ledger.Calls())
}

func TestBalanceCacheRefreshPersistsThenPublishes(t *testing.T) {
	db := testDB(t)

	eth := new(big.Int)
	eth.SetString("1000000000000000000", 10)

	ledger := &stubLedger{balance: NewBalance(eth)}
	cache := NewBalanceCache(db, ledger)

	wallet, err := NewWalletStore(db).GetOrCreate()
	require.NoError(t, err)
	require.NoError(t, cache.Init(wallet))

	ch, cancel := cache.Subscribe()
	defer cancel()
	require.Equal(t, "0x0", recv(t, ch).UnconfirmedHex())

	require.NoError(t, cache.Refresh(context.Background()))

	got := recv(t, ch)
	require.Equal(t, "0xde0b6b3a7640000", got.UnconfirmedHex())

	persisted, err := ReadBalance(db, wallet.PaymentAddress())
	require.NoError(t, err)
	require.True(t, got.Equal(persisted))
}

func TestBalanceCacheSubscribersDoNotInterfere(t *testing.T) {
	db := testDB(t)

	eth := new(big.Int)
	eth.SetString("5", 10)

	ledger := &stubLedger{balance: NewBalance(eth)}
	cache := NewBalanceCache(db, ledger)

	wallet, err := NewWalletStore(db).GetOrCreate()
	require.NoError(t, err)
	require.NoError(t, cache.Init(wallet))

	a, cancelA := cache.Subscribe()
	b, cancelB := cache.Subscribe()
	defer cancelB()

	require.Equal(t, "0x0", recv(t, a).UnconfirmedHex())
	require.Equal(t, "0x0", recv(t, b).UnconfirmedHex())

	cancelA()

	require.NoError(t, cache.Refresh(context.Background()))
	require.Equal(t, "0x5", recv(t, b).UnconfirmedHex())
}

func TestBalanceCacheRefreshFailureLeavesState(t *testing.T) {
	db := testDB(t)
	ledger := &stubLedger{balanceErr: errors.New("ledger down")}
	cache := NewBalanceCache(db, ledger)

	wallet, err := NewWalletStore(db).GetOrCreate()
	require.NoError(t, err)
	require.NoError(t, cache.Init(wallet))

	require.Error(t, cache.Refresh(context.Background()))

	current, ok := cache.Current()
	require.True(t, ok)
	require.Equal(t, "0x0", current.UnconfirmedHex())

	persisted, err := ReadBalance(db, wallet.PaymentAddress())
	require.NoError(t, err)
	require.Equal(t, "0x0", persisted.UnconfirmedHex())
}

func TestBalanceCacheLateSubscriberGetsLatest(t *testing.T) {
	db := testDB(t)
	ledger := &stubLedger{balance: NewBalance(big.NewInt(7))}
	cache := NewBalanceCache(db, ledger)

	wallet, err := NewWalletStore(db).GetOrCreate()
	require.NoError(t, err)
	require.NoError(t, cache.Init(wallet))
	require.NoError(t, cache.Refresh(context.Background()))

	ch, cancel := cache.Subscribe()
	defer cancel()

	require.Equal(t, "0x7", recv(t, ch).UnconfirmedHex())
}

func TestBalanceCacheInitIdempotent(t *testing.T) {
	db := testDB(t)
	cache := NewBalanceCache(db, &stubLedger{})

	wallet, err := NewWalletStore(db).GetOrCreate()
	require.NoError(t, err)

	require.NoError(t, cache.Init(wallet))
	require.NoError(t, cache.Init(wallet))

	ch, cancel := cache.Subscribe()
	defer cancel()

	recv(t, ch)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected duplicate publish: %s", extra.UnconfirmedHex())
	default:
	}
}

func TestBalanceCacheRefreshBeforeInit(t *testing.T) {
	cache := NewBalanceCache(testDB(t), &stubLedger{})

	err := cache.Refresh(context.Background())
	require.ErrorIs(t, err, ErrBalanceNotInitialized)
}

func TestBalanceCacheClear(t *testing.T) {
	db := testDB(t)
	ledger := &stubLedger{balance: NewBalance(big.NewInt(9))}
	cache := NewBalanceCache(db, ledger)

	wallet, err := NewWalletStore(db).GetOrCreate()
	require.NoError(t, err)
	require.NoError(t, cache.Init(wallet))
	require.NoError(t, cache.Refresh(context.Background()))

	require.NoError(t, cache.Clear())

	persisted, err := ReadBalance(db, wallet.PaymentAddress())
	require.NoError(t, err)
	require.Equal(t, "0x0", persisted.UnconfirmedHex())

	// cleared cache accepts a fresh init
	require.NoError(t, cache.Init(wallet))
}
