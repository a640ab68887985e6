package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"moneymanager/internal/edit"
	"moneymanager/internal/log"
)

// handleAddTransaction validates and sends the add form. A rejected form is
// re-rendered with what the user typed; success resets it and tells every
// panel the ledger changed.
func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := pageFrom(ctx)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	f := ParseAddForm(r.PostForm)

	if _, err := p.AddTransaction(ctx, f); err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		status, msg := problem(err, "Failed to add transaction")
		c, cerr := p.Constants(ctx)
		if cerr != nil {
			s.fail(w, r, cerr, "Could not load the form")
			return
		}
		v := addFormView(p, c, f)
		v.Error = msg
		s.render(w, r, "add-form-fields", v, NewHTMXResponse().Status(status).TriggerErrorNotification(msg))
		return
	}

	c, err := p.Constants(ctx)
	if err != nil {
		s.fail(w, r, err, "Could not load the form")
		return
	}
	s.render(w, r, "add-form-fields", addFormView(p, c, p.NewAddForm(c)), NewHTMXResponse().
		TriggerLedgerChanged(p.Refresh.Token()).
		TriggerFormReset().
		TriggerSuccessNotification("Transaction saved"))
}

// handleRequestEdit opens the edit row for a transaction of the current
// report, after the ledger confirms the edit window.
func (s *Server) handleRequestEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := pageFrom(ctx)
	id := chi.URLParam(r, "id")

	tx, ok := p.Report.Snapshot().Report.Find(id)
	if !ok {
		s.renderReport(w, r, http.StatusNotFound, "Transaction not found")
		return
	}
	if err := p.Edit.RequestEdit(ctx, tx); err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		status, msg := problem(err, "Could not check whether this transaction can be edited")
		s.renderReport(w, r, status, msg)
		return
	}
	s.renderReport(w, r, http.StatusOK, "")
}

// handleCommitEdit copies the posted fields onto the draft and sends it. On
// failure the row stays in edit mode with the message shown.
func (s *Server) handleCommitEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := pageFrom(ctx)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}

	err := p.Edit.UpdateDraft(func(d *edit.Draft) { ApplyDraft(r.PostForm, d) })
	if err == nil {
		err = p.Edit.Commit(ctx)
	}
	switch {
	case err == nil:
		v, verr := s.reportView(ctx, p)
		if verr != nil {
			s.fail(w, r, verr, "Could not load the report")
			return
		}
		s.render(w, r, "report", v, NewHTMXResponse().TriggerSuccessNotification("Transaction updated"))
	case errors.Is(err, edit.ErrNotEditing):
		s.renderReport(w, r, http.StatusConflict, "No transaction is being edited")
	case s.unauthorized(w, r, err):
	default:
		status, msg := problem(err, "Failed to edit transaction")
		log.FromContext(ctx).InfoContext(ctx, "Edit not saved", log.FieldError, err, log.FieldStatusCode, status)
		s.renderReport(w, r, status, msg)
	}
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	pageFrom(r.Context()).Edit.Cancel()
	s.renderReport(w, r, http.StatusOK, "")
}

// handleTransfer validates and sends a transfer. The chosen accounts are
// kept either way; the amount only survives a failure.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := pageFrom(ctx)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	f := ParseTransferForm(r.PostForm)
	p.Accounts.Pick(f.From, f.To)

	res, err := p.Transfers.Transfer(ctx, f.From, f.To, f.Amount)
	if err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		status, msg := problem(err, "Transfer failed")
		v := accountsView(p)
		v.Amount, v.Error = f.Amount, msg
		s.render(w, r, "transfer-fields", v, NewHTMXResponse().Status(status).TriggerErrorNotification(msg))
		return
	}

	msg := res.Message
	if msg == "" {
		msg = "Transfer completed"
	}
	s.render(w, r, "transfer-fields", accountsView(p), NewHTMXResponse().
		TriggerLedgerChanged(p.Refresh.Token()).
		TriggerSuccessNotification(msg))
}
