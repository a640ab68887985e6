// Package ledger declares the ports through which the BFF talks to the
// finance API. The remote implementation lives in internal/api; an
// in-process one lives in internal/ledger/memory.
package ledger

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"moneymanager/internal/core"
)

// ErrUnauthorized means the held token is missing, expired or rejected.
// Callers treat the user as logged out.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-success answer from the ledger. Message is shown to the
// user verbatim on mutation paths.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is makes 401 answers match ErrUnauthorized.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Ports for outbound adapters.
type (
	Authenticator interface {
		Login(ctx context.Context, email, password string) (core.AuthResult, error)
		Register(ctx context.Context, name, email, password string) (core.AuthResult, error)
	}

	ReportReader interface {
		Monthly(ctx context.Context, year, month int) (core.Report, error)
		Weekly(ctx context.Context, year, week int) (core.Report, error)
		Yearly(ctx context.Context, year int) (core.Report, error)
		// Filter takes the query produced by filter.Build.
		Filter(ctx context.Context, q url.Values) (core.Report, error)
		CategorySummary(ctx context.Context, q url.Values) ([]core.CategoryTotal, error)
	}

	TransactionStore interface {
		Constants(ctx context.Context) (core.Constants, error)
		AddTransaction(ctx context.Context, tx core.NewTransaction) (core.Transaction, error)
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		// CanEdit asks the ledger whether id is still inside the edit window.
		CanEdit(ctx context.Context, id string) (bool, error)
		EditTransaction(ctx context.Context, id string, edit core.TransactionEdit) (core.Transaction, error)
	}

	AccountStore interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		CreateAccount(ctx context.Context, name string) (core.Account, error)
		Transfer(ctx context.Context, req core.TransferRequest) (core.TransferResult, error)
	}

	// Ledger is everything one authenticated session can do.
	Ledger interface {
		Me(ctx context.Context) (core.User, error)
		ReportReader
		TransactionStore
		AccountStore
	}

	// Backend binds sessions to a ledger.
	Backend interface {
		Authenticator
		ForToken(token string) Ledger
	}
)

// UserMessage returns the text to show for a failed mutation.
func UserMessage(err error, fallback string) string {
	var le *Error
	if errors.As(err, &le) && le.Message != "" {
		return le.Message
	}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return fallback
}
