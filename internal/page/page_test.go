package page

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"moneymanager/internal/core"
	"moneymanager/internal/edit"
	"moneymanager/internal/ledger"
	"moneymanager/internal/ledger/memory"
	"moneymanager/internal/report"
	"moneymanager/internal/transfer"
)

var testNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

// countingLedger records transfer calls so tests can assert none was sent.
type countingLedger struct {
	ledger.Ledger
	transfers int
}

func (c *countingLedger) Transfer(ctx context.Context, req core.TransferRequest) (core.TransferResult, error) {
	c.transfers++
	return c.Ledger.Transfer(ctx, req)
}

func newBackend() *memory.Store {
	now := func() time.Time { return testNow }
	return memory.New(
		[]string{"Food", "Salary", "Other"}, []string{"Personal", "Office"},
		memory.WithClock(now), memory.WithLocation(time.UTC), memory.WithHashCost(bcrypt.MinCost))
}

func newPage(t *testing.T) (*Page, *countingLedger) {
	t.Helper()
	store := newBackend()
	auth, err := store.Register(context.Background(), "Ravi", "ravi@example.com", "pw")
	require.NoError(t, err)
	l := &countingLedger{Ledger: store.ForToken(auth.Token)}
	p := New(l, Options{
		SessionID: "s1",
		UserID:    auth.User.ID,
		Location:  time.UTC,
		Now:       func() time.Time { return testNow },
	})
	t.Cleanup(p.Close)
	return p, l
}

func TestLoadSeedsDefaultAccounts(t *testing.T) {
	p, _ := newPage(t)
	require.NoError(t, p.Load(context.Background()))

	accts := p.Accounts.Snapshot()
	require.Len(t, accts.Accounts, 3)
	assert.Equal(t, core.DefaultAccounts, core.Names(accts.Accounts))
	for _, a := range accts.Accounts {
		assert.True(t, a.Balance.IsZero())
	}
	assert.Equal(t, "Cash", accts.From)
	assert.Equal(t, "Bank", accts.To)

	state := p.Report.Snapshot()
	assert.Equal(t, report.Monthly, state.Selection.Kind)
	assert.Equal(t, 2024, state.Selection.Year)
	assert.Equal(t, 3, state.Selection.Month)
	assert.True(t, state.Report.IsEmpty())
}

func TestAddIncomeShowsInMonthlyReport(t *testing.T) {
	p, _ := newPage(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	consts, err := p.Constants(ctx)
	require.NoError(t, err)
	form := p.NewAddForm(consts)
	assert.Equal(t, core.Income, form.Type)
	assert.Equal(t, "Food", form.Category)
	assert.Equal(t, "Personal", form.Division)
	assert.Equal(t, DefaultAccount, form.Account)
	assert.Equal(t, "2024-03-10T09:30", form.DateTime)

	form.Amount = "5000"
	form.Category = "Salary"
	_, err = p.AddTransaction(ctx, form)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), p.Refresh.Token())
	rep := p.Report.Snapshot().Report
	require.Len(t, rep.List, 1)
	assert.Equal(t, "Salary", rep.List[0].Category)
	assert.True(t, rep.TotalIncome.Equal(core.MoneyFromInt(5000).Decimal))
	assert.True(t, rep.Balance.Equal(core.MoneyFromInt(5000).Decimal))

	cash := p.Accounts.Snapshot().Accounts[0]
	assert.Equal(t, "Cash", cash.AccountName)
	assert.True(t, cash.Balance.Equal(core.MoneyFromInt(5000).Decimal))
}

func TestAddTransactionValidationSendsNothing(t *testing.T) {
	p, _ := newPage(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	tests := []struct {
		name string
		form AddForm
		want error
	}{
		{"amount checked first", AddForm{Type: core.Expense, Amount: "abc", DateTime: "bad"}, core.ErrInvalidAmount},
		{"zero amount", AddForm{Type: core.Expense, Amount: "0", Category: "Food", Division: "Personal"}, core.ErrInvalidAmount},
		{"missing division", AddForm{Type: core.Expense, Amount: "10", Category: "Food"}, core.ErrMissingClassification},
		{"bad date", AddForm{Type: core.Expense, Amount: "10", Category: "Food", Division: "Personal", DateTime: "x"}, core.ErrMissingDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.AddTransaction(ctx, tt.form)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, uint64(0), p.Refresh.Token())
}

func TestTransferScenario(t *testing.T) {
	p, l := newPage(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	_, err := p.Transfers.Transfer(ctx, "Cash", "Cash", "10")
	rej, ok := transfer.Rejected(err)
	require.True(t, ok)
	assert.Equal(t, transfer.ReasonSameAccount, rej.Reason)
	assert.Zero(t, l.transfers)
	assert.Equal(t, uint64(0), p.Refresh.Token())

	_, err = p.Transfers.Transfer(ctx, "Cash", "Bank", "250")
	require.NoError(t, err)
	assert.Equal(t, 1, l.transfers)
	assert.Equal(t, uint64(1), p.Refresh.Token())

	accts := p.Accounts.Snapshot().Accounts
	require.Len(t, accts, 3)
	assert.True(t, accts[0].Balance.Equal(core.MoneyFromInt(-250).Decimal))
	assert.True(t, accts[1].Balance.Equal(core.MoneyFromInt(250).Decimal))
}

func TestRefreshCancelsOpenEdit(t *testing.T) {
	p, _ := newPage(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	form := p.NewAddForm(core.Constants{Categories: []string{"Food"}, Divisions: []string{"Personal"}})
	form.Amount = "40"
	tx, err := p.AddTransaction(ctx, form)
	require.NoError(t, err)

	require.NoError(t, p.Edit.RequestEdit(ctx, tx))
	_, editing := p.Edit.State().(edit.Editing)
	require.True(t, editing)

	p.Refresh.Bump(ctx)
	assert.Equal(t, edit.Idle{}, p.Edit.State())
}

func TestEditCommitReloadsWithoutBump(t *testing.T) {
	p, _ := newPage(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	form := p.NewAddForm(core.Constants{Categories: []string{"Food"}, Divisions: []string{"Personal"}})
	form.Amount = "40"
	tx, err := p.AddTransaction(ctx, form)
	require.NoError(t, err)

	require.NoError(t, p.Edit.RequestEdit(ctx, tx))
	require.NoError(t, p.Edit.UpdateDraft(func(d *edit.Draft) { d.Amount = "55" }))
	require.NoError(t, p.Edit.Commit(ctx))

	assert.Equal(t, uint64(1), p.Refresh.Token())
	rep := p.Report.Snapshot().Report
	require.Len(t, rep.List, 1)
	assert.True(t, rep.List[0].Amount.Equal(core.MoneyFromInt(55).Decimal))
}

func TestConstantsFailureDegrades(t *testing.T) {
	store := newBackend()
	p := New(store.ForToken("garbage"), Options{Location: time.UTC})
	defer p.Close()

	_, err := p.Constants(context.Background())
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.ErrorIs(t, p.Load(context.Background()), ledger.ErrUnauthorized)
}

func TestAccountChoicesFallBackToDefaults(t *testing.T) {
	store := newBackend()
	p := New(store.ForToken("garbage"), Options{Location: time.UTC})
	defer p.Close()
	assert.Equal(t, core.DefaultAccounts, p.AccountChoices())
}
