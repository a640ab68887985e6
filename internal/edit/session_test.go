package edit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
)

type fakeStore struct {
	ledger.TransactionStore
	canEdit bool
	canErr  error
	editErr error
	checked []string
	sent    []core.TransactionEdit
	sentIDs []string
	during  func()
}

func (f *fakeStore) CanEdit(_ context.Context, id string) (bool, error) {
	f.checked = append(f.checked, id)
	if f.during != nil {
		f.during()
	}
	return f.canEdit, f.canErr
}

func (f *fakeStore) EditTransaction(_ context.Context, id string, e core.TransactionEdit) (core.Transaction, error) {
	f.sentIDs = append(f.sentIDs, id)
	f.sent = append(f.sent, e)
	if f.editErr != nil {
		return core.Transaction{}, f.editErr
	}
	return core.Transaction{ID: id}, nil
}

type countingReloader struct{ n int }

func (r *countingReloader) Reload(context.Context) error {
	r.n++
	return nil
}

var row = core.Transaction{
	ID:          "t1",
	Type:        core.Expense,
	Amount:      core.MoneyFromInt(250),
	Category:    "Food",
	Division:    "Office",
	Description: "lunch",
	DateTime:    time.Date(2024, 3, 10, 3, 30, 0, 0, time.UTC),
	Account:     "Cash",
}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	return time.FixedZone("IST", 5*3600+1800)
}

func TestRequestEditOpensDraftInLocalTime(t *testing.T) {
	store := &fakeStore{canEdit: true}
	m := NewManager(store, nil, kolkata(t), nil)

	require.NoError(t, m.RequestEdit(context.Background(), row))

	st, ok := m.State().(Editing)
	require.True(t, ok)
	assert.Equal(t, "t1", st.ID)
	assert.Equal(t, Draft{
		Amount: "250", Category: "Food", Division: "Office",
		Description: "lunch", DateTime: "2024-03-10T09:00", Account: "Cash",
	}, st.Draft)
}

func TestRequestEditIneligibleStaysIdle(t *testing.T) {
	m := NewManager(&fakeStore{canEdit: false}, nil, time.UTC, nil)

	err := m.RequestEdit(context.Background(), row)
	assert.Same(t, ErrEditWindowClosed, err)
	assert.Equal(t, "Editing allowed only within 12 hours of creation.", err.Error())
	assert.IsType(t, Idle{}, m.State())
}

func TestRequestEditCheckFailureStaysIdle(t *testing.T) {
	m := NewManager(&fakeStore{canErr: &ledger.Error{Status: 401}}, nil, time.UTC, nil)
	err := m.RequestEdit(context.Background(), row)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.IsType(t, Idle{}, m.State())
}

func TestSecondRequestReplacesFirst(t *testing.T) {
	m := NewManager(&fakeStore{canEdit: true}, nil, time.UTC, nil)
	ctx := context.Background()
	require.NoError(t, m.RequestEdit(ctx, row))

	other := row
	other.ID = "t2"
	require.NoError(t, m.RequestEdit(ctx, other))

	id, ok := m.EditingID()
	assert.True(t, ok)
	assert.Equal(t, "t2", id)
}

func TestCommitFromIdleIsRejected(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(store, nil, time.UTC, nil)
	assert.ErrorIs(t, m.Commit(context.Background()), ErrNotEditing)
	assert.ErrorIs(t, m.UpdateDraft(func(*Draft) {}), ErrNotEditing)
	assert.Empty(t, store.sent)
}

func TestCommitSendsDraftAndReloads(t *testing.T) {
	store := &fakeStore{canEdit: true}
	reloader := &countingReloader{}
	m := NewManager(store, reloader, kolkata(t), nil)
	ctx := context.Background()

	require.NoError(t, m.RequestEdit(ctx, row))
	require.NoError(t, m.UpdateDraft(func(d *Draft) {
		d.Amount = "300.50"
		d.Description = "  team lunch "
	}))
	require.NoError(t, m.Commit(ctx))

	assert.IsType(t, Idle{}, m.State())
	assert.Equal(t, 1, reloader.n)
	require.Len(t, store.sent, 1)
	sent := store.sent[0]
	assert.Equal(t, "t1", store.sentIDs[0])
	assert.Equal(t, "300.5", sent.Amount.String())
	assert.Equal(t, "team lunch", sent.Description)
	assert.True(t, sent.DateTime.Equal(row.DateTime))
}

func TestCommitFailureKeepsEditing(t *testing.T) {
	store := &fakeStore{canEdit: true, editErr: &ledger.Error{Status: 400, Message: "Invalid category"}}
	reloader := &countingReloader{}
	m := NewManager(store, reloader, time.UTC, nil)
	ctx := context.Background()
	require.NoError(t, m.RequestEdit(ctx, row))

	err := m.Commit(ctx)
	assert.Equal(t, "Invalid category", ledger.UserMessage(err, ""))
	assert.IsType(t, Editing{}, m.State())
	assert.Zero(t, reloader.n)

	store.editErr = nil
	require.NoError(t, m.Commit(ctx))
	assert.IsType(t, Idle{}, m.State())
}

func TestCommitValidatesDraftLocally(t *testing.T) {
	store := &fakeStore{canEdit: true}
	m := NewManager(store, nil, time.UTC, nil)
	ctx := context.Background()
	require.NoError(t, m.RequestEdit(ctx, row))

	require.NoError(t, m.UpdateDraft(func(d *Draft) { d.Amount = "-5" }))
	assert.ErrorIs(t, m.Commit(ctx), core.ErrInvalidAmount)

	require.NoError(t, m.UpdateDraft(func(d *Draft) { d.Amount = "5"; d.DateTime = "yesterday" }))
	assert.ErrorIs(t, m.Commit(ctx), ErrInvalidDateTime)

	require.NoError(t, m.UpdateDraft(func(d *Draft) { d.DateTime = "2024-03-10T10:00"; d.Category = "" }))
	assert.ErrorIs(t, m.Commit(ctx), core.ErrMissingClassification)

	assert.Empty(t, store.sent)
	assert.IsType(t, Editing{}, m.State())
}

func TestCancelIsIdempotent(t *testing.T) {
	m := NewManager(&fakeStore{canEdit: true}, nil, time.UTC, nil)
	m.Cancel()
	assert.IsType(t, Idle{}, m.State())

	require.NoError(t, m.RequestEdit(context.Background(), row))
	m.Cancel()
	m.Cancel()
	assert.IsType(t, Idle{}, m.State())
	_, ok := m.EditingID()
	assert.False(t, ok)
}

func TestCancelDuringEligibilityCheckStaysIdle(t *testing.T) {
	store := &fakeStore{canEdit: true}
	m := NewManager(store, nil, time.UTC, nil)
	store.during = m.Cancel

	require.NoError(t, m.RequestEdit(context.Background(), row))
	assert.Equal(t, []string{"t1"}, store.checked)
	assert.IsType(t, Idle{}, m.State())
	_, ok := m.EditingID()
	assert.False(t, ok)
}

func TestRequestDuringEligibilityCheckWins(t *testing.T) {
	store := &fakeStore{canEdit: true}
	m := NewManager(store, nil, time.UTC, nil)
	other := row
	other.ID = "t2"
	store.during = func() {
		store.during = nil
		require.NoError(t, m.RequestEdit(context.Background(), other))
	}

	require.NoError(t, m.RequestEdit(context.Background(), row))
	id, ok := m.EditingID()
	require.True(t, ok)
	assert.Equal(t, "t2", id)
}

func TestDraftNeverCarriesType(t *testing.T) {
	e, err := DraftFrom(row, time.UTC).Edit(time.UTC)
	require.NoError(t, err)
	want := core.EditFrom(row)
	assert.True(t, want.Amount.Equal(e.Amount.Decimal))
	assert.True(t, want.DateTime.Equal(e.DateTime))
	assert.Equal(t, want.Category, e.Category)
	assert.Equal(t, want.Division, e.Division)
	assert.Equal(t, want.Account, e.Account)
	assert.Equal(t, want.Description, e.Description)
}
