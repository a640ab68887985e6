package core

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultAccounts are seeded the first time a user's account list is empty.
var DefaultAccounts = []string{"Cash", "Bank", "Wallet"}

type (
	TransactionType string

	Transaction struct {
		ID          string          `json:"_id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Category    string          `json:"category"`
		Division    string          `json:"division"`
		Description string          `json:"description,omitempty"`
		DateTime    time.Time       `json:"dateTime"`
		Account     string          `json:"account"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// NewTransaction is the body of an add-transaction request.
	NewTransaction struct {
		Type        TransactionType `json:"type" validate:"oneof=income expense"`
		Amount      Money           `json:"amount"`
		Category    string          `json:"category" validate:"required"`
		Division    string          `json:"division" validate:"required"`
		Description string          `json:"description"`
		DateTime    time.Time       `json:"dateTime" validate:"required"`
		Account     string          `json:"account" validate:"required"`
	}

	// TransactionEdit carries the editable fields of an existing transaction.
	// Type is deliberately absent: it never changes after creation.
	TransactionEdit struct {
		Amount      Money     `json:"amount"`
		Category    string    `json:"category" validate:"required"`
		Division    string    `json:"division" validate:"required"`
		Description string    `json:"description"`
		DateTime    time.Time `json:"dateTime" validate:"required"`
		Account     string    `json:"account" validate:"required"`
	}

	Account struct {
		ID          string `json:"_id"`
		AccountName string `json:"accountName"`
		Balance     Money  `json:"balance"`
	}

	TransferRequest struct {
		FromAccount string `json:"fromAccount"`
		ToAccount   string `json:"toAccount"`
		Amount      Money  `json:"amount"`
	}

	TransferResult struct {
		Message string    `json:"message,omitempty"`
		From    *Account  `json:"from,omitempty"`
		To      *Account  `json:"to,omitempty"`
		At      time.Time `json:"at"`
	}

	// Constants is the server-declared reference data for pickers.
	Constants struct {
		Categories []string `json:"categories"`
		Divisions  []string `json:"divisions"`
	}

	User struct {
		ID    string `json:"_id,omitempty"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	AuthResult struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
)

// ValidationError is a user-facing message raised before any request is sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrInvalidAmount         = &ValidationError{Message: "Enter a valid amount"}
	ErrMissingClassification = &ValidationError{Message: "Select category and division"}
	ErrMissingAccount        = &ValidationError{Message: "Select an account"}
	ErrInvalidType           = &ValidationError{Message: "Choose income or expense"}
	ErrMissingDate           = &ValidationError{Message: "Enter a date and time"}
	ErrMissingCredentials    = &ValidationError{Message: "Email and password are required"}
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Validate checks the add-transaction form in the order the user sees it:
// amount first, then classification, then the remaining fields.
func (n NewTransaction) Validate() error {
	if err := n.Amount.Validate(); err != nil {
		return err
	}
	return translate(validate.Struct(n))
}

func (e TransactionEdit) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return translate(validate.Struct(e))
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	// Report the most relevant field first, matching the form layout.
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field()] = true
	}
	switch {
	case fields["Category"] || fields["Division"]:
		return ErrMissingClassification
	case fields["Type"]:
		return ErrInvalidType
	case fields["DateTime"]:
		return ErrMissingDate
	case fields["Account"]:
		return ErrMissingAccount
	}
	return err
}

// Trimmed returns a copy with surrounding whitespace removed from free-text fields.
func (n NewTransaction) Trimmed() NewTransaction {
	n.Category = strings.TrimSpace(n.Category)
	n.Division = strings.TrimSpace(n.Division)
	n.Description = strings.TrimSpace(n.Description)
	n.Account = strings.TrimSpace(n.Account)
	return n
}

// EditFrom returns the editable fields of t.
func EditFrom(t Transaction) TransactionEdit {
	return TransactionEdit{
		Amount:      t.Amount,
		Category:    t.Category,
		Division:    t.Division,
		Description: t.Description,
		DateTime:    t.DateTime,
		Account:     t.Account,
	}
}

// Names returns the account names in server order.
func Names(accounts []Account) []string {
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.AccountName)
	}
	return out
}
