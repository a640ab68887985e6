// Package filter assembles optional query constraints for the filter and
// category-summary endpoints.
package filter

import (
	"net/url"
	"strings"
)

// Query parameter names understood by the ledger API.
const (
	ParamCategory = "category"
	ParamDivision = "division"
	ParamFrom     = "from"
	ParamTo       = "to"
)

// Criteria is what the user picked in the filter panel. An empty field means
// "All" and never becomes a constraint.
type Criteria struct {
	Category string
	Division string
	From     string // YYYY-MM-DD
	To       string // YYYY-MM-DD
}

// Normalize trims every field.
func (c Criteria) Normalize() Criteria {
	return Criteria{
		Category: strings.TrimSpace(c.Category),
		Division: strings.TrimSpace(c.Division),
		From:     strings.TrimSpace(c.From),
		To:       strings.TrimSpace(c.To),
	}
}

// IsZero reports whether no constraint is set.
func (c Criteria) IsZero() bool {
	return c.Normalize() == Criteria{}
}

// Build returns the query parameters for c, omitting empty fields.
// url.Values encodes keys in sorted order, so the output is stable.
func Build(c Criteria) url.Values {
	c = c.Normalize()
	q := url.Values{}
	set(q, ParamCategory, c.Category)
	set(q, ParamDivision, c.Division)
	set(q, ParamFrom, c.From)
	set(q, ParamTo, c.To)
	return q
}

// Range builds the date-only query used by the category summary.
func Range(from, to string) url.Values {
	return Build(Criteria{From: from, To: to})
}

// FromQuery reads criteria back from request parameters.
func FromQuery(q url.Values) Criteria {
	return Criteria{
		Category: q.Get(ParamCategory),
		Division: q.Get(ParamDivision),
		From:     q.Get(ParamFrom),
		To:       q.Get(ParamTo),
	}.Normalize()
}

// Key is a stable identity for c, used to fence stale filter responses.
func (c Criteria) Key() string {
	return Build(c).Encode()
}

func set(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
