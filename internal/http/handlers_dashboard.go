package http

import (
	"errors"
	"net/http"

	"moneymanager/internal/core"
	"moneymanager/internal/log"
	"moneymanager/internal/report"
)

// handleDashboard renders the full page. Every panel is loaded up front so
// the first paint needs no follow-up requests.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := pageFrom(ctx)
	sess := sessionFrom(ctx)

	if err := p.Load(ctx); err != nil {
		s.fail(w, r, err, "Could not load the dashboard")
		return
	}

	user := sess.User
	if u, err := p.Me(ctx); err == nil {
		user = u
		if err := s.sessions.RememberUser(ctx, sess.ID, u); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Failed to remember user", log.FieldError, err)
		}
	} else if s.unauthorized(w, r, err) {
		return
	}

	rep, err := s.reportView(ctx, p)
	if err != nil {
		s.fail(w, r, err, "Could not load the report")
		return
	}
	flt, err := s.filterView(ctx, p)
	if err != nil {
		s.fail(w, r, err, "Could not load the filter")
		return
	}
	c, err := p.Constants(ctx)
	if err != nil {
		s.fail(w, r, err, "Could not load the form")
		return
	}

	s.render(w, r, "dashboard", DashboardView{
		Title:    "Money Manager",
		User:     user,
		Report:   rep,
		Filter:   flt,
		Summary:  summaryView(p),
		Accounts: accountsView(p),
		Add:      addFormView(p, c, p.NewAddForm(c)),
	}, nil)
}

// handleReport switches the report when picker values are present and
// otherwise re-renders the current one. Refresh-triggered requests carry no
// picker values, so the selection survives a refresh.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := pageFrom(ctx)
	q := r.URL.Query()

	var err error
	if hasAny(q, "kind", "year", "month", "week") {
		sel := ParseSelection(q, p.Report.Snapshot().Selection)
		err = p.Report.Select(ctx, sel)
	} else {
		err = p.Report.Load(ctx)
	}
	if errors.Is(err, report.ErrInvalidSelection) {
		s.renderReport(w, r, http.StatusUnprocessableEntity, "Choose a valid period")
		return
	}
	if err != nil {
		s.fail(w, r, err, "Could not load the report")
		return
	}
	s.renderReport(w, r, http.StatusOK, "")
}

func (s *Server) renderReport(w http.ResponseWriter, r *http.Request, status int, msg string) {
	v, err := s.reportView(r.Context(), pageFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err, "Could not load the report")
		return
	}
	v.Error = msg
	b := NewHTMXResponse().Status(status)
	if msg != "" {
		b.TriggerErrorNotification(msg)
	}
	s.render(w, r, "report", v, b)
}

// handleFilter applies the posted criteria when the form was submitted and
// otherwise re-renders the last applied result.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := pageFrom(ctx)
	q := r.URL.Query()
	if q.Has("apply") {
		if err := p.Filter.Apply(ctx, ParseCriteria(q)); err != nil {
			s.fail(w, r, err, "Could not apply the filter")
			return
		}
	}
	s.renderFilter(w, r)
}

func (s *Server) handleFilterClear(w http.ResponseWriter, r *http.Request) {
	pageFrom(r.Context()).Filter.Clear()
	s.renderFilter(w, r)
}

func (s *Server) renderFilter(w http.ResponseWriter, r *http.Request) {
	v, err := s.filterView(r.Context(), pageFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err, "Could not load the filter")
		return
	}
	s.render(w, r, "filter", v, nil)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := pageFrom(ctx)
	q := r.URL.Query()

	var err error
	if q.Has("apply") {
		c := ParseCriteria(q)
		err = p.Summary.SetRange(ctx, c.From, c.To)
	} else {
		err = p.Summary.Load(ctx)
	}
	if err != nil {
		s.fail(w, r, err, "Could not load the summary")
		return
	}
	s.render(w, r, "summary", summaryView(p), nil)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := pageFrom(ctx)
	if err := p.Accounts.Load(ctx); err != nil {
		s.fail(w, r, err, "Could not load accounts")
		return
	}
	s.render(w, r, "balances", accountsView(p), nil)
}

// handleAddForm mounts a fresh form. Constants are fetched on every mount.
func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := pageFrom(ctx)
	c, err := p.Constants(ctx)
	if err != nil {
		s.fail(w, r, err, "Could not load the form")
		return
	}
	f := p.NewAddForm(c)
	if t := core.TransactionType(r.URL.Query().Get("type")); t.Valid() {
		f.Type = t
	}
	s.render(w, r, "add-form", addFormView(p, c, f), nil)
}

func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txs, err := pageFrom(ctx).Transactions(ctx)
	if err != nil {
		s.fail(w, r, err, "Could not load transactions")
		return
	}
	s.render(w, r, "transactions", TransactionsView{List: txs}, nil)
}

func hasAny(q map[string][]string, keys ...string) bool {
	for _, k := range keys {
		if _, ok := q[k]; ok {
			return true
		}
	}
	return false
}
