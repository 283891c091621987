package walletd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// SwitchState is a step of the network-switch transition.
type SwitchState int

const (
	SwitchIdle SwitchState = iota
	SwitchUnregisteringOld
	SwitchChangingEndpoint
	SwitchRegisteringNew
	SwitchPersistingSelection
	SwitchComplete
	SwitchFailed
)

func (s SwitchState) String() string {
	switch s {
	case SwitchIdle:
		return "idle"
	case SwitchUnregisteringOld:
		return "unregistering_old"
	case SwitchChangingEndpoint:
		return "changing_endpoint"
	case SwitchRegisteringNew:
		return "registering_new"
	case SwitchPersistingSelection:
		return "persisting_selection"
	case SwitchComplete:
		return "complete"
	case SwitchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var ErrSwitchInFlight = errors.New("network switch already in flight")

// Switcher drives the ordered network transition: unregister the old
// network's push registration, repoint the ledger endpoint, register on the
// new network, then persist the selection. Persisting last keeps the prior
// selection authoritative whenever an earlier step fails.
//
// The default network's push registration is shared and never torn down, so
// when the CURRENT selection is the default the unregister step is skipped.
//
// A switch request while another is in flight is rejected with
// ErrSwitchInFlight rather than queued. On a mid-sequence failure no
// compensating rollback runs: the endpoint may already point at the new
// network while the persisted selection still names the old one, until a
// full retry or a restart (which re-reads the selection) converges.
type Switcher struct {
	db        *badger.DB
	ledger    LedgerService
	registrar *PushRegistrar
	networks  *Networks
	tokens    TokenSource
	address   func() string

	mu    sync.Mutex
	busy  bool
	state SwitchState

	// observe, when set, sees every state transition in order.
	observe func(SwitchState)
}

func NewSwitcher(
	db *badger.DB,
	ledger LedgerService,
	registrar *PushRegistrar,
	networks *Networks,
	tokens TokenSource,
	address func() string,
) *Switcher {
	return &Switcher{
		db:        db,
		ledger:    ledger,
		registrar: registrar,
		networks:  networks,
		tokens:    tokens,
		address:   address,
		state:     SwitchIdle,
	}
}

func (w *Switcher) State() SwitchState {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// Observe installs a hook called on every state transition. Install before
// the first Switch call.
func (w *Switcher) Observe(fn func(SwitchState)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.observe = fn
}

// Switch runs the full transition to target. Each step must complete before
// the next begins; only PersistingSelection succeeding moves the persisted
// current-network pointer.
func (w *Switcher) Switch(ctx context.Context, target Network) error {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return ErrSwitchInFlight
	}
	w.busy = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.busy = false
		w.mu.Unlock()
	}()

	current, err := ReadNetwork(w.db, w.networks)
	if err != nil {
		return w.fail(fmt.Errorf("read current network: %w", err))
	}

	slog.Info("network switch started",
		slog.String("from", current.ID),
		slog.String("to", target.ID),
	)

	token, err := w.tokens(ctx)
	if err != nil {
		return w.fail(fmt.Errorf("obtain push token: %w", err))
	}

	if !w.networks.IsDefault(current) {
		w.setState(SwitchUnregisteringOld)

		if err := w.registrar.Unregister(ctx, token); err != nil {
			return w.fail(fmt.Errorf("unregister old network: %w", err))
		}
	}

	w.setState(SwitchChangingEndpoint)
	w.ledger.SetBaseURL(target.URL)

	w.setState(SwitchRegisteringNew)
	if err := w.registrar.Register(ctx, token, w.address()); err != nil {
		return w.fail(fmt.Errorf("register new network: %w", err))
	}

	w.setState(SwitchPersistingSelection)
	if err := SaveNetwork(w.db, target); err != nil {
		return w.fail(fmt.Errorf("persist selection: %w", err))
	}

	w.setState(SwitchComplete)
	slog.Info("network switch complete", slog.String("network", target.ID))

	return nil
}

func (w *Switcher) setState(state SwitchState) {
	w.mu.Lock()
	w.state = state
	observe := w.observe
	w.mu.Unlock()

	slog.Info("network switch step", slog.String("state", state.String()))

	if observe != nil {
		observe(state)
	}
}

func (w *Switcher) fail(err error) error {
	w.setState(SwitchFailed)
	slog.Error("network switch failed", slog.Any("err", err))
	return err
}
