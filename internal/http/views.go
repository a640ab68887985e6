package http

import (
	"context"
	"strconv"

	"moneymanager/internal/core"
	"moneymanager/internal/edit"
	"moneymanager/internal/filter"
	"moneymanager/internal/page"
	"moneymanager/internal/period"
	"moneymanager/internal/report"
)

type (
	// Option is one entry of a picker.
	Option struct {
		Value    string
		Label    string
		Selected bool
	}

	AuthView struct {
		Title    string
		Register bool
		Error    string
		Form     Credentials
	}

	DashboardView struct {
		Title    string
		User     core.User
		Report   ReportView
		Filter   FilterView
		Summary  SummaryView
		Accounts AccountsView
		Add      AddFormView
	}

	ReportView struct {
		Kinds     []Option
		Years     []Option
		Months    []Option
		Weeks     []Option
		ShowMonth bool
		ShowWeek  bool
		Report    core.Report
		Loading   bool
		EditingID string
		Draft     edit.Draft
		Edit      pickers
		Error     string
	}

	FilterView struct {
		Criteria   filter.Criteria
		Categories []Option
		Divisions  []Option
		Applied    bool
		Report     core.Report
	}

	SummaryView struct {
		From, To string
		Totals   []core.CategoryTotal
	}

	AccountsView struct {
		Accounts    []core.Account
		From        []Option
		To          []Option
		Amount      string
		CanTransfer bool
		Error       string
	}

	AddFormView struct {
		Form       page.AddForm
		Income     bool
		Categories []Option
		Divisions  []Option
		Accounts   []Option
		Error      string
	}

	TransactionsView struct {
		List []core.Transaction
	}
)

// pickers are the select options of the edit row.
type pickers struct {
	Categories []Option
	Divisions  []Option
	Accounts   []Option
}

func options(values []string, selected string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: v, Selected: v == selected})
	}
	return out
}

// withAll prepends the "All" choice, which posts an empty value.
func withAll(values []string, selected string) []Option {
	return append([]Option{{Value: "", Label: "All", Selected: selected == ""}}, options(values, selected)...)
}

// withCurrent keeps a value the ledger no longer lists selectable.
func withCurrent(values []string, current string) []string {
	if current == "" {
		return values
	}
	for _, v := range values {
		if v == current {
			return values
		}
	}
	return append([]string{current}, values...)
}

func intOptions(values []int, selected int, label func(int) string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: strconv.Itoa(v), Label: label(v), Selected: v == selected})
	}
	return out
}

func (s *Server) reportView(ctx context.Context, p *page.Page) (ReportView, error) {
	st := p.Report.Snapshot()
	sel := st.Selection

	kinds := make([]Option, 0, len(report.Kinds))
	for _, k := range report.Kinds {
		kinds = append(kinds, Option{Value: string(k), Label: k.Label(), Selected: k == sel.Kind})
	}
	v := ReportView{
		Kinds:     kinds,
		Years:     intOptions(period.SelectableYears(sel.Year), sel.Year, strconv.Itoa),
		Months:    intOptions(period.SelectableMonths(), sel.Month, period.MonthName),
		Weeks:     intOptions(period.SelectableWeeks(), sel.Week, func(w int) string { return "Week " + strconv.Itoa(w) }),
		ShowMonth: sel.Kind == report.Monthly,
		ShowWeek:  sel.Kind == report.Weekly,
		Report:    st.Report,
		Loading:   st.Loading,
	}

	if e, ok := p.Edit.State().(edit.Editing); ok {
		c, err := p.Constants(ctx)
		if err != nil {
			return ReportView{}, err
		}
		v.EditingID, v.Draft = e.ID, e.Draft
		v.Edit = pickers{
			Categories: options(withCurrent(c.Categories, e.Draft.Category), e.Draft.Category),
			Divisions:  options(withCurrent(c.Divisions, e.Draft.Division), e.Draft.Division),
			Accounts:   options(withCurrent(p.AccountChoices(), e.Draft.Account), e.Draft.Account),
		}
	}
	return v, nil
}

func (s *Server) filterView(ctx context.Context, p *page.Page) (FilterView, error) {
	c, err := p.Constants(ctx)
	if err != nil {
		return FilterView{}, err
	}
	st := p.Filter.Snapshot()
	return FilterView{
		Criteria:   st.Criteria,
		Categories: withAll(c.Categories, st.Criteria.Category),
		Divisions:  withAll(c.Divisions, st.Criteria.Division),
		Applied:    st.Applied,
		Report:     st.Report,
	}, nil
}

func summaryView(p *page.Page) SummaryView {
	st := p.Summary.Snapshot()
	return SummaryView{From: st.From, To: st.To, Totals: st.Totals}
}

func accountsView(p *page.Page) AccountsView {
	st := p.Accounts.Snapshot()
	names := core.Names(st.Accounts)
	return AccountsView{
		Accounts:    st.Accounts,
		From:        options(names, st.From),
		To:          options(names, st.To),
		CanTransfer: len(names) >= 2,
	}
}

func addFormView(p *page.Page, c core.Constants, f page.AddForm) AddFormView {
	return AddFormView{
		Form:       f,
		Income:     f.Type != core.Expense,
		Categories: options(c.Categories, f.Category),
		Divisions:  options(c.Divisions, f.Division),
		Accounts:   options(withCurrent(p.AccountChoices(), f.Account), f.Account),
	}
}
