package core

// Report is the aggregate plus transaction list returned for a period or filter.
// Totals are computed by the ledger; clients never derive them.
type Report struct {
	TotalIncome  Money         `json:"totalIncome"`
	TotalExpense Money         `json:"totalExpense"`
	Balance      Money         `json:"balance"`
	List         []Transaction `json:"list"`
}

// EmptyReport is the zeroed default shown before a fetch succeeds or after it fails.
func EmptyReport() Report {
	return Report{List: []Transaction{}}
}

// IsEmpty reports whether the report has no rows and zero totals.
func (r Report) IsEmpty() bool {
	return len(r.List) == 0 && r.TotalIncome.IsZero() && r.TotalExpense.IsZero() && r.Balance.IsZero()
}

// Find returns the row with the given id.
func (r Report) Find(id string) (Transaction, bool) {
	for _, t := range r.List {
		if t.ID == id {
			return t, true
		}
	}
	return Transaction{}, false
}

// CategoryTotal is one row of the category summary.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    Money  `json:"total"`
}
