// This file turns query strings and forms into the values the page
// coordinators take.
package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"moneymanager/internal/core"
	"moneymanager/internal/edit"
	"moneymanager/internal/filter"
	"moneymanager/internal/page"
	"moneymanager/internal/report"
)

// ParseSelection overlays the kind/year/month/week parameters present in
// q onto current. Malformed numbers are ignored so a stray value never
// blanks the picker.
func ParseSelection(q url.Values, current report.Selection) report.Selection {
	sel := current
	if v := strings.TrimSpace(q.Get("kind")); v != "" {
		sel.Kind = report.Kind(v)
	}
	setInt(q, "year", &sel.Year)
	setInt(q, "month", &sel.Month)
	setInt(q, "week", &sel.Week)
	return sel
}

func setInt(q url.Values, key string, dst *int) {
	if v := strings.TrimSpace(q.Get(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// ParseCriteria reads the filter form. "All" options post an empty value.
func ParseCriteria(q url.Values) filter.Criteria {
	return filter.FromQuery(sanitizeValues(q))
}

// ParseAddForm reads the add-transaction form.
func ParseAddForm(form url.Values) page.AddForm {
	return page.AddForm{
		Type:        core.TransactionType(strings.TrimSpace(form.Get("type"))),
		Amount:      strings.TrimSpace(form.Get("amount")),
		Category:    sanitizeInput(form.Get("category")),
		Division:    sanitizeInput(form.Get("division")),
		Description: sanitizeInput(form.Get("description")),
		DateTime:    strings.TrimSpace(form.Get("dateTime")),
		Account:     sanitizeInput(form.Get("account")),
	}
}

// ApplyDraft copies the posted edit fields onto d. Fields missing from the
// form keep their draft value.
func ApplyDraft(form url.Values, d *edit.Draft) {
	fields := []struct {
		key string
		dst *string
	}{
		{"amount", &d.Amount},
		{"category", &d.Category},
		{"division", &d.Division},
		{"description", &d.Description},
		{"dateTime", &d.DateTime},
		{"account", &d.Account},
	}
	for _, f := range fields {
		if vs, ok := form[f.key]; ok && len(vs) > 0 {
			*f.dst = sanitizeInput(vs[0])
		}
	}
}

// TransferForm is the transfer form as posted.
type TransferForm struct {
	From, To, Amount string
}

func ParseTransferForm(form url.Values) TransferForm {
	return TransferForm{
		From:   sanitizeInput(form.Get("fromAccount")),
		To:     sanitizeInput(form.Get("toAccount")),
		Amount: strings.TrimSpace(form.Get("amount")),
	}
}

// Credentials is the login or register form.
type Credentials struct {
	Name, Email, Password string
}

func ParseCredentials(form url.Values) Credentials {
	return Credentials{
		Name:     sanitizeInput(form.Get("name")),
		Email:    strings.ToLower(sanitizeInput(form.Get("email"))),
		Password: form.Get("password"),
	}
}

// isHTMX reports whether r was issued by htmx rather than a full navigation.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func sanitizeValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, vs := range q {
		for _, v := range vs {
			out.Add(k, sanitizeInput(v))
		}
	}
	return out
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
