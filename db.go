package walletd

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
	g "github.com/pandodao/generic"
)

var (
	balancePrefix = []byte("b:")
	pushPrefix    = []byte("g:")
	prefPrefix    = []byte("s:")
	walletPrefix  = []byte("w:")

	// opaque document prefixes wiped on sign-out
	userPrefix      = []byte("d:u:")
	messagePrefix   = []byte("d:m:")
	recipientPrefix = []byte("d:r:")
	paymentPrefix   = []byte("d:t:")
)

const (
	currencyPref = "currency"
	networkPref  = "network"

	defaultCurrencyCode = "USD"
)

func saveBalance(txn *badger.Txn, address string, balance *Balance) error {
	pk := buildIndexKey(balancePrefix, address)
	return txn.Set(pk, []byte(balance.UnconfirmedHex()))
}

func readBalance(txn *badger.Txn, address string) (*Balance, error) {
	pk := buildIndexKey(balancePrefix, address)

	item, err := txn.Get(pk)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return BalanceFromHex(zeroBalanceHex)
		}

		return nil, err
	}

	var balance *Balance
	if err := item.Value(func(val []byte) error {
		b, err := BalanceFromHex(string(val))
		if err != nil {
			return err
		}

		balance = b
		return nil
	}); err != nil {
		return nil, err
	}

	return balance, nil
}

func SaveBalance(db *badger.DB, address string, balance *Balance) error {
	return db.Update(func(txn *badger.Txn) error {
		return saveBalance(txn, address, balance)
	})
}

func ReadBalance(db *badger.DB, address string) (*Balance, error) {
	txn := db.NewTransaction(false)
	defer txn.Discard()

	return readBalance(txn, address)
}

// SavePushSent records whether the push token has been sent to the server
// for the named service.
func SavePushSent(db *badger.DB, service string, sent bool) error {
	pk := buildIndexKey(pushPrefix, service)

	val := []byte("0")
	if sent {
		val = []byte("1")
	}

	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(pk, val)
	})
}

func ReadPushSent(db *badger.DB, service string) (bool, error) {
	pk := buildIndexKey(pushPrefix, service)

	txn := db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(pk)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}

		return false, err
	}

	var sent bool
	if err := item.Value(func(val []byte) error {
		sent = string(val) == "1"
		return nil
	}); err != nil {
		return false, err
	}

	return sent, nil
}

func savePref(txn *badger.Txn, name string, v any) error {
	pk := buildIndexKey(prefPrefix, name)
	e := badger.NewEntry(pk, g.Must(json.Marshal(v)))
	return txn.SetEntry(e)
}

func readPref(txn *badger.Txn, name string, v any) (bool, error) {
	pk := buildIndexKey(prefPrefix, name)

	item, err := txn.Get(pk)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}

		return false, err
	}

	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	}); err != nil {
		return false, err
	}

	return true, nil
}

// SaveCurrency persists the selected local currency code.
func SaveCurrency(db *badger.DB, code string) error {
	return db.Update(func(txn *badger.Txn) error {
		return savePref(txn, currencyPref, code)
	})
}

func ReadCurrency(db *badger.DB) (string, error) {
	txn := db.NewTransaction(false)
	defer txn.Discard()

	var code string
	ok, err := readPref(txn, currencyPref, &code)
	if err != nil {
		return "", err
	}

	if !ok {
		return defaultCurrencyCode, nil
	}

	return code, nil
}

// SaveNetwork persists the selected network. Only a fully completed switch
// may call this; it is what moves the process-wide current network.
func SaveNetwork(db *badger.DB, network Network) error {
	return db.Update(func(txn *badger.Txn) error {
		return savePref(txn, networkPref, network)
	})
}

// ReadNetwork returns the persisted selection, or the default when none has
// been persisted yet.
func ReadNetwork(db *badger.DB, networks *Networks) (Network, error) {
	txn := db.NewTransaction(false)
	defer txn.Discard()

	var network Network
	ok, err := readPref(txn, networkPref, &network)
	if err != nil {
		return Network{}, err
	}

	if !ok {
		return networks.Default(), nil
	}

	return network, nil
}

func wipePrefixes(db *badger.DB, prefixes ...[]byte) error {
	for _, prefix := range prefixes {
		if err := db.DropPrefix(prefix); err != nil {
			return err
		}
	}

	return nil
}
