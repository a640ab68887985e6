// Package page assembles the dashboard of one session: the report, filter,
// summary and account views, the edit slot, and the refresh token that
// ties them together.
package page

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"moneymanager/internal/core"
	"moneymanager/internal/edit"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/refresh"
	"moneymanager/internal/report"
	"moneymanager/internal/transfer"
)

// DefaultAccount is preselected in the add form.
const DefaultAccount = "Cash"

type Options struct {
	SessionID string
	UserID    string
	Location  *time.Location
	Now       func() time.Time
	Publisher refresh.Publisher
	Logger    *log.Logger
}

type Page struct {
	SessionID string
	UserID    string

	Refresh   *refresh.Coordinator
	Report    *report.Coordinator
	Filter    *report.FilterView
	Summary   *report.SummaryView
	Accounts  *transfer.AccountsView
	Edit      *edit.Manager
	Transfers *transfer.Service

	ledger ledger.Ledger
	loc    *time.Location
	now    func() time.Time
	logger *log.Logger
	unsub  func()
}

func New(l ledger.Ledger, opts Options) *Page {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := log.OrDiscard(opts.Logger).With(log.FieldSessionID, opts.SessionID)

	rcOpts := []refresh.Option{refresh.WithLogger(logger)}
	if opts.Publisher != nil {
		rcOpts = append(rcOpts, refresh.WithPublisher(opts.Publisher))
	}
	rc := refresh.New(rcOpts...)

	rep := report.New(l, rc, report.DefaultSelection(opts.Now().In(opts.Location)), logger)
	p := &Page{
		SessionID: opts.SessionID,
		UserID:    opts.UserID,
		Refresh:   rc,
		Report:    rep,
		Filter:    report.NewFilterView(l, rc, logger),
		Summary:   report.NewSummaryView(l, rc, logger),
		Accounts:  transfer.NewAccountsView(l, rc, logger),
		Edit:      edit.NewManager(l, rep, opts.Location, logger),
		Transfers: transfer.NewService(l, rc, logger),
		ledger:    l,
		loc:       opts.Location,
		now:       opts.Now,
		logger:    logger.WithComponent(log.ComponentPage),
	}
	// Rows may have moved or changed; an open draft would be stale.
	p.unsub = rc.Subscribe("edit", func(context.Context, uint64) error {
		p.Edit.Cancel()
		return nil
	})
	return p
}

// Location is the zone used for pickers and draft times.
func (p *Page) Location() *time.Location { return p.loc }

// Load fetches every view that has not been fetched yet, concurrently.
// Each view degrades on its own; only ErrUnauthorized is returned.
func (p *Page) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Report.Load(ctx) })
	g.Go(func() error { return p.Summary.Load(ctx) })
	g.Go(func() error { return p.Accounts.Load(ctx) })
	return g.Wait()
}

// Constants fetches the pickers' reference data. It is not cached, so every
// form that mounts sees the ledger's current lists.
func (p *Page) Constants(ctx context.Context) (core.Constants, error) {
	c, err := p.ledger.Constants(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "Constants unavailable", log.FieldError, err)
		if errors.Is(err, ledger.ErrUnauthorized) {
			return core.Constants{}, err
		}
		return core.Constants{Categories: []string{}, Divisions: []string{}}, nil
	}
	return c, nil
}

// Transactions lists every transaction of the user. A failed read shows an
// empty list.
func (p *Page) Transactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := p.ledger.ListTransactions(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "Transaction list unavailable", log.FieldError, err)
		if errors.Is(err, ledger.ErrUnauthorized) {
			return nil, err
		}
		return []core.Transaction{}, nil
	}
	return txs, nil
}

// Me refreshes the signed-in user.
func (p *Page) Me(ctx context.Context) (core.User, error) {
	return p.ledger.Me(ctx)
}

// AddForm is the add-transaction form as typed.
type AddForm struct {
	Type        core.TransactionType
	Amount      string
	Category    string
	Division    string
	Description string
	DateTime    string // edit.DraftLayout
	Account     string
}

// NewAddForm returns the form's initial values: income, now, the first
// category and division, and the default account.
func (p *Page) NewAddForm(c core.Constants) AddForm {
	f := AddForm{
		Type:     core.Income,
		DateTime: p.now().In(p.loc).Format(edit.DraftLayout),
		Account:  DefaultAccount,
	}
	if len(c.Categories) > 0 {
		f.Category = c.Categories[0]
	}
	if len(c.Divisions) > 0 {
		f.Division = c.Divisions[0]
	}
	return f
}

// Transaction validates the form: amount first, then classification.
func (f AddForm) Transaction(loc *time.Location) (core.NewTransaction, error) {
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.NewTransaction{}, err
	}
	if strings.TrimSpace(f.Category) == "" || strings.TrimSpace(f.Division) == "" {
		return core.NewTransaction{}, core.ErrMissingClassification
	}
	at, err := time.ParseInLocation(edit.DraftLayout, strings.TrimSpace(f.DateTime), loc)
	if err != nil {
		return core.NewTransaction{}, core.ErrMissingDate
	}
	account := f.Account
	if strings.TrimSpace(account) == "" {
		account = DefaultAccount
	}
	tx := core.NewTransaction{
		Type:        f.Type,
		Amount:      amount,
		Category:    f.Category,
		Division:    f.Division,
		Description: f.Description,
		DateTime:    at,
		Account:     account,
	}.Trimmed()
	if err := tx.Validate(); err != nil {
		return core.NewTransaction{}, err
	}
	return tx, nil
}

// AddTransaction sends the form and bumps the refresh token exactly once
// on success. Validation failures send nothing.
func (p *Page) AddTransaction(ctx context.Context, f AddForm) (core.Transaction, error) {
	tx, err := f.Transaction(p.loc)
	if err != nil {
		return core.Transaction{}, err
	}
	created, err := p.ledger.AddTransaction(ctx, tx)
	if err != nil {
		p.logger.WarnContext(ctx, "Add transaction failed", log.FieldError, err)
		return core.Transaction{}, err
	}
	p.logger.InfoContext(ctx, "Transaction added",
		log.FieldTxID, created.ID, log.FieldOperation, log.OpCreate, log.FieldAccount, tx.Account)
	p.Refresh.Bump(ctx)
	return created, nil
}

// AccountChoices lists the accounts the add form offers.
func (p *Page) AccountChoices() []string {
	names := core.Names(p.Accounts.Snapshot().Accounts)
	if len(names) == 0 {
		return append([]string(nil), core.DefaultAccounts...)
	}
	return names
}

// Close detaches every view from the refresh token.
func (p *Page) Close() {
	p.unsub()
	p.Report.Close()
	p.Filter.Close()
	p.Summary.Close()
	p.Accounts.Close()
	p.Edit.Cancel()
}
