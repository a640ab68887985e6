package transfer

import (
	"context"
	"errors"
	"slices"
	"sync"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/refresh"
)

// AccountsView is the balance list plus the transfer form's account picks.
type AccountsView struct {
	boot    *Bootstrapper
	refresh *refresh.Coordinator
	logger  *log.Logger
	unsub   func()

	mu       sync.Mutex
	accounts []core.Account
	from, to string
	loaded   bool
}

type AccountsState struct {
	Accounts []core.Account
	From, To string
}

func NewAccountsView(store ledger.AccountStore, rc *refresh.Coordinator, logger *log.Logger) *AccountsView {
	logger = log.OrDiscard(logger)
	v := &AccountsView{
		boot:     NewBootstrapper(store, logger),
		refresh:  rc,
		logger:   logger.WithComponent(log.ComponentAccounts),
		accounts: []core.Account{},
	}
	v.unsub = rc.Subscribe(log.ComponentAccounts, func(ctx context.Context, _ uint64) error {
		return v.Reload(ctx)
	})
	return v
}

// Load fetches once; later changes arrive through the refresh token.
func (v *AccountsView) Load(ctx context.Context) error {
	v.mu.Lock()
	loaded := v.loaded
	v.mu.Unlock()
	if loaded {
		return nil
	}
	return v.Reload(ctx)
}

// Reload re-lists accounts, seeding defaults when the list is empty. A read
// failure shows an empty list and leaves the view unloaded so the next Load
// retries; only ErrUnauthorized is returned.
func (v *AccountsView) Reload(ctx context.Context) error {
	accounts, err := v.boot.EnsureDefaults(ctx)
	if err != nil {
		v.logger.WarnContext(ctx, "Account list unavailable", log.FieldError, err)
		accounts = []core.Account{}
	}

	v.mu.Lock()
	v.accounts, v.loaded = accounts, err == nil
	names := core.Names(accounts)
	if !slices.Contains(names, v.from) {
		v.from = ""
		if len(names) > 0 {
			v.from = names[0]
		}
	}
	if !slices.Contains(names, v.to) {
		v.to = ""
		if len(names) > 1 {
			v.to = names[1]
		}
	}
	v.mu.Unlock()

	if errors.Is(err, ledger.ErrUnauthorized) {
		return err
	}
	return nil
}

// Pick remembers the form's current from/to choice.
func (v *AccountsView) Pick(from, to string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.from, v.to = normalizeName(from), normalizeName(to)
}

func (v *AccountsView) Snapshot() AccountsState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return AccountsState{
		Accounts: append([]core.Account{}, v.accounts...),
		From:     v.from,
		To:       v.to,
	}
}

func (v *AccountsView) Close() { v.unsub() }

