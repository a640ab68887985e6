// Package edit holds the single in-place edit session of a report view.
package edit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
)

// DraftLayout is the local, minute-precision form used by datetime-local inputs.
const DraftLayout = "2006-01-02T15:04"

var (
	ErrEditWindowClosed = &core.ValidationError{Message: "Editing allowed only within 12 hours of creation."}
	ErrInvalidDateTime  = &core.ValidationError{Message: "Enter a valid date and time"}
	ErrNotEditing       = errors.New("no transaction is being edited")
)

// State is one of Idle, Eligible or Editing.
type State interface {
	isState()
}

type (
	Idle struct{}

	// Eligible means the ledger confirmed the edit window; the draft is not
	// open yet.
	Eligible struct {
		ID string
	}

	Editing struct {
		ID    string
		Draft Draft
	}
)

func (Idle) isState()     {}
func (Eligible) isState() {}
func (Editing) isState()  {}

// Draft holds the editable fields as the form shows them. Type is not
// editable and so not present.
type Draft struct {
	Amount      string
	Category    string
	Division    string
	Description string
	DateTime    string
	Account     string
}

// DraftFrom copies tx into a draft, rendering its time in loc.
func DraftFrom(tx core.Transaction, loc *time.Location) Draft {
	return Draft{
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		Division:    tx.Division,
		Description: tx.Description,
		DateTime:    tx.DateTime.In(loc).Format(DraftLayout),
		Account:     tx.Account,
	}
}

// Edit converts the draft into the request body. Amount is checked first.
func (d Draft) Edit(loc *time.Location) (core.TransactionEdit, error) {
	amount, err := core.ParseAmount(d.Amount)
	if err != nil {
		return core.TransactionEdit{}, err
	}
	at, err := time.ParseInLocation(DraftLayout, strings.TrimSpace(d.DateTime), loc)
	if err != nil {
		return core.TransactionEdit{}, ErrInvalidDateTime
	}
	e := core.TransactionEdit{
		Amount:      amount,
		Category:    strings.TrimSpace(d.Category),
		Division:    strings.TrimSpace(d.Division),
		Description: strings.TrimSpace(d.Description),
		DateTime:    at,
		Account:     strings.TrimSpace(d.Account),
	}
	if err := e.Validate(); err != nil {
		return core.TransactionEdit{}, err
	}
	return e, nil
}

// Reloader re-fetches the view that owns the edited row.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Manager is the only edit slot of a view, so two rows can never be in
// edit mode at once.
type Manager struct {
	store    ledger.TransactionStore
	reloader Reloader
	loc      *time.Location
	logger   *log.Logger

	mu    sync.Mutex
	state State
	seq   uint64
}

func NewManager(store ledger.TransactionStore, reloader Reloader, loc *time.Location, logger *log.Logger) *Manager {
	if loc == nil {
		loc = time.Local
	}
	return &Manager{
		store:    store,
		reloader: reloader,
		loc:      loc,
		logger:   log.OrDiscard(logger).WithComponent(log.ComponentEdit),
		state:    Idle{},
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// EditingID returns the row in edit mode, if any.
func (m *Manager) EditingID() (string, bool) {
	if e, ok := m.State().(Editing); ok {
		return e.ID, true
	}
	return "", false
}

func (m *Manager) set(s State) {
	m.seq++
	m.state = s
}

// RequestEdit closes any open session and asks the ledger whether tx may
// still be edited. Ineligible rows leave the manager Idle and return
// ErrEditWindowClosed. A Cancel or another request arriving before the draft
// opens wins.
func (m *Manager) RequestEdit(ctx context.Context, tx core.Transaction) error {
	m.mu.Lock()
	m.set(Idle{})
	seq := m.seq
	m.mu.Unlock()

	ok, err := m.store.CanEdit(ctx, tx.ID)
	if err != nil {
		m.logger.WarnContext(ctx, "Eligibility check failed", log.FieldTxID, tx.ID, log.FieldError, err)
		return fmt.Errorf("check edit eligibility: %w", err)
	}
	if !ok {
		return ErrEditWindowClosed
	}

	seq, ok = m.advance(seq, Eligible{ID: tx.ID})
	if !ok {
		return nil
	}
	if _, ok := m.advance(seq, Editing{ID: tx.ID, Draft: DraftFrom(tx, m.loc)}); ok {
		m.logger.DebugContext(ctx, "Edit session opened", log.FieldTxID, tx.ID)
	}
	return nil
}

// advance moves to next unless something changed the state since seq.
func (m *Manager) advance(seq uint64, next State) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq != seq {
		return m.seq, false
	}
	m.set(next)
	return m.seq, true
}

// UpdateDraft applies fn to the open draft.
func (m *Manager) UpdateDraft(fn func(*Draft)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.state.(Editing)
	if !ok {
		return ErrNotEditing
	}
	fn(&e.Draft)
	m.state = e
	return nil
}

// Commit sends the draft. On success the session closes and the owning view
// reloads; on failure the session stays open so the user can retry or cancel.
func (m *Manager) Commit(ctx context.Context) error {
	m.mu.Lock()
	e, ok := m.state.(Editing)
	seq := m.seq
	m.mu.Unlock()
	if !ok {
		return ErrNotEditing
	}

	body, err := e.Draft.Edit(m.loc)
	if err != nil {
		return err
	}
	if _, err := m.store.EditTransaction(ctx, e.ID, body); err != nil {
		m.logger.WarnContext(ctx, "Edit rejected", log.FieldTxID, e.ID, log.FieldError, err)
		return err
	}

	m.mu.Lock()
	if m.seq == seq {
		m.set(Idle{})
	}
	m.mu.Unlock()
	m.logger.InfoContext(ctx, "Transaction edited", log.FieldTxID, e.ID, log.FieldOperation, log.OpUpdate)

	if m.reloader != nil {
		if err := m.reloader.Reload(ctx); err != nil && errors.Is(err, ledger.ErrUnauthorized) {
			return err
		}
	}
	return nil
}

// Cancel discards any session, including one whose eligibility check is
// still running. The state stays Idle when already Idle.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(Idle{})
}
