package walletd

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	g "github.com/pandodao/generic"
)

var ErrNoWallet = errors.New("no wallet")

const databaseKeySize = 64

// WalletIdentity is the active wallet identity: a payment address plus the
// capability to derive the local database encryption key. Key-derivation
// internals stay behind this boundary.
type WalletIdentity struct {
	id      uuid.UUID
	address common.Address
	dbKey   []byte
}

func (w *WalletIdentity) ID() uuid.UUID {
	return w.id
}

func (w *WalletIdentity) PaymentAddress() string {
	return w.address.Hex()
}

// DatabaseKey returns the encryption key for the local document store.
func (w *WalletIdentity) DatabaseKey() []byte {
	key := make([]byte, len(w.dbKey))
	copy(key, w.dbKey)
	return key
}

type walletRecord struct {
	ID          uuid.UUID      `json:"id"`
	Address     common.Address `json:"address"`
	DatabaseKey hexutil.Bytes  `json:"database_key"`
}

// WalletStore keeps the single active identity record. At most one identity
// exists at a time.
type WalletStore struct {
	db *badger.DB
}

func NewWalletStore(db *badger.DB) *WalletStore {
	return &WalletStore{db: db}
}

// GetOrCreate returns the active identity, creating one if none exists.
func (s *WalletStore) GetOrCreate() (*WalletIdentity, error) {
	if wallet, err := s.Existing(); err == nil {
		return wallet, nil
	} else if !errors.Is(err, ErrNoWallet) {
		return nil, err
	}

	rec := walletRecord{
		ID:          uuid.New(),
		DatabaseKey: make(hexutil.Bytes, databaseKeySize),
	}

	if _, err := rand.Read(rec.Address[:]); err != nil {
		return nil, fmt.Errorf("generate address: %w", err)
	}

	if _, err := rand.Read(rec.DatabaseKey); err != nil {
		return nil, fmt.Errorf("generate database key: %w", err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(activeWalletKey(), g.Must(json.Marshal(rec)))
		return txn.SetEntry(e)
	}); err != nil {
		return nil, err
	}

	return rec.identity(), nil
}

// Existing returns the active identity, or ErrNoWallet when none exists.
// It never creates one.
func (s *WalletStore) Existing() (*WalletIdentity, error) {
	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(activeWalletKey())
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNoWallet
		}

		return nil, err
	}

	var rec walletRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, err
	}

	return rec.identity(), nil
}

// Clear destroys the active identity record.
func (s *WalletStore) Clear() error {
	return s.db.DropPrefix(walletPrefix)
}

func (r walletRecord) identity() *WalletIdentity {
	return &WalletIdentity{
		id:      r.ID,
		address: r.Address,
		dbKey:   r.DatabaseKey,
	}
}

func activeWalletKey() []byte {
	return buildIndexKey(walletPrefix, "active")
}
