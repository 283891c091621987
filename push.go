package walletd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

var ErrTimestampUnavailable = errors.New("server timestamp unavailable")

// PushServiceLedger names the ledger push registration in the per-service
// sent-flag storage.
const PushServiceLedger = "ledger"

// TokenSource yields the device push token. Token acquisition is an
// external collaborator.
type TokenSource func(ctx context.Context) (string, error)

// PushRegistrar registers and unregisters a device token against the
// ledger service. Every call requires a freshly fetched server timestamp.
type PushRegistrar struct {
	db      *badger.DB
	ledger  LedgerService
	service string
}

func NewPushRegistrar(db *badger.DB, ledger LedgerService, service string) *PushRegistrar {
	return &PushRegistrar{
		db:      db,
		ledger:  ledger,
		service: service,
	}
}

// Register sends the token and wallet address to the ledger. On success the
// per-service sent flag goes true; on failure it goes false.
func (r *PushRegistrar) Register(ctx context.Context, token, address string) error {
	st, err := r.timestamp(ctx)
	if err != nil {
		return err
	}

	reg := &PushRegistration{
		Registration: token,
		Address:      address,
	}

	if err := r.ledger.RegisterPush(ctx, st, reg); err != nil {
		slog.Error("push register failed", slog.Any("err", err))

		if ferr := SavePushSent(r.db, r.service, false); ferr != nil {
			return errors.Join(err, fmt.Errorf("record push flag: %w", ferr))
		}

		return err
	}

	return SavePushSent(r.db, r.service, true)
}

// Unregister sends a deregistration for the token. It does not touch the
// sent flag: the next register call re-evaluates it anyway.
func (r *PushRegistrar) Unregister(ctx context.Context, token string) error {
	st, err := r.timestamp(ctx)
	if err != nil {
		return err
	}

	reg := &PushRegistration{Registration: token}

	if err := r.ledger.UnregisterPush(ctx, st, reg); err != nil {
		slog.Error("push unregister failed", slog.Any("err", err))
		return err
	}

	return nil
}

// Sent reports whether the token is already recorded as sent for this
// service.
func (r *PushRegistrar) Sent() (bool, error) {
	return ReadPushSent(r.db, r.service)
}

func (r *PushRegistrar) timestamp(ctx context.Context) (*ServerTime, error) {
	st, err := r.ledger.GetTimestamp(ctx)
	if err != nil {
		slog.Error("fetch server timestamp failed", slog.Any("err", err))
		return nil, ErrTimestampUnavailable
	}

	if st == nil {
		return nil, ErrTimestampUnavailable
	}

	return st, nil
}
