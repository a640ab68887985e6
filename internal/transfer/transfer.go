// Package transfer moves funds between two named accounts and keeps the
// account list of the dashboard, seeding defaults for new users.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/refresh"
)

const (
	ReasonInvalidAmount = "Enter a valid amount"
	ReasonSameAccount   = "Source and destination must be different"
)

// RejectedError is a transfer refused before any request is sent.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return e.Reason }

// Rejected reports whether err is a local rejection.
func Rejected(err error) (*RejectedError, bool) {
	var re *RejectedError
	ok := errors.As(err, &re)
	return re, ok
}

// Validate checks a transfer in order: the amount, then the accounts.
func Validate(from, to, amountText string) (core.Money, error) {
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return core.Money{}, &RejectedError{Reason: ReasonInvalidAmount}
	}
	if from == to {
		return core.Money{}, &RejectedError{Reason: ReasonSameAccount}
	}
	return amount, nil
}

type Service struct {
	store   ledger.AccountStore
	refresh *refresh.Coordinator
	logger  *log.Logger
}

func NewService(store ledger.AccountStore, rc *refresh.Coordinator, logger *log.Logger) *Service {
	return &Service{
		store:   store,
		refresh: rc,
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentTransfer),
	}
}

// Transfer validates and sends. On success the refresh token is bumped
// exactly once, which also reloads the account balances. Server rejections
// are returned unchanged so their message reaches the user verbatim.
func (s *Service) Transfer(ctx context.Context, from, to, amountText string) (core.TransferResult, error) {
	amount, err := Validate(from, to, amountText)
	if err != nil {
		return core.TransferResult{}, err
	}

	res, err := s.store.Transfer(ctx, core.TransferRequest{FromAccount: from, ToAccount: to, Amount: amount})
	if err != nil {
		s.logger.WarnContext(ctx, "Transfer failed",
			log.NewFields().WithTransfer(from, to, amount.String()).WithError(err).ToSlice()...)
		return core.TransferResult{}, err
	}

	s.logger.InfoContext(ctx, "Transfer completed",
		log.NewFields().WithTransfer(from, to, amount.String()).WithOperation(log.OpTransfer).ToSlice()...)
	s.refresh.Bump(ctx)
	return res, nil
}

// Bootstrapper gives a new user the default accounts.
type Bootstrapper struct {
	store    ledger.AccountStore
	defaults []string
	logger   *log.Logger
}

func NewBootstrapper(store ledger.AccountStore, logger *log.Logger) *Bootstrapper {
	return &Bootstrapper{
		store:    store,
		defaults: core.DefaultAccounts,
		logger:   log.OrDiscard(logger).WithComponent(log.ComponentAccounts),
	}
}

// EnsureDefaults lists accounts and, when there are none, creates the
// defaults one by one before listing again. A failed creation is logged and
// skipped; running it again creates only what is still missing.
func (b *Bootstrapper) EnsureDefaults(ctx context.Context) ([]core.Account, error) {
	accounts, err := b.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) > 0 {
		return accounts, nil
	}

	created := 0
	for _, name := range b.defaults {
		if _, err := b.store.CreateAccount(ctx, name); err != nil {
			if errors.Is(err, ledger.ErrUnauthorized) {
				return nil, err
			}
			b.logger.WarnContext(ctx, "Default account not created",
				log.FieldAccount, name, log.FieldError, err)
			continue
		}
		created++
	}
	b.logger.InfoContext(ctx, "Seeded default accounts",
		log.FieldOperation, log.OpSeed, "created", created, "wanted", len(b.defaults))

	accounts, err = b.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts after seeding: %w", err)
	}
	return accounts, nil
}

// normalizeName trims what the user typed or picked.
func normalizeName(s string) string {
	return strings.TrimSpace(s)
}
