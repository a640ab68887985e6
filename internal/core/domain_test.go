package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNewTransaction() NewTransaction {
	return NewTransaction{
		Type:     Income,
		Amount:   MoneyFromInt(5000),
		Category: "Salary",
		Division: "Personal",
		DateTime: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Account:  "Cash",
	}
}

func TestNewTransactionValidate(t *testing.T) {
	require.NoError(t, validNewTransaction().Validate())

	tests := []struct {
		name   string
		mutate func(*NewTransaction)
		want   error
	}{
		{"zero amount", func(n *NewTransaction) { n.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(n *NewTransaction) { n.Amount = MoneyFromInt(-5) }, ErrInvalidAmount},
		{"missing category", func(n *NewTransaction) { n.Category = "" }, ErrMissingClassification},
		{"missing division", func(n *NewTransaction) { n.Division = "" }, ErrMissingClassification},
		{"bad type", func(n *NewTransaction) { n.Type = "transfer" }, ErrInvalidType},
		{"missing date", func(n *NewTransaction) { n.DateTime = time.Time{} }, ErrMissingDate},
		{"missing account", func(n *NewTransaction) { n.Account = "" }, ErrMissingAccount},
		{"amount checked before category", func(n *NewTransaction) {
			n.Amount = Money{}
			n.Category = ""
		}, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := validNewTransaction()
			tt.mutate(&n)
			err := n.Validate()
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestTrimmedAndEditFrom(t *testing.T) {
	n := validNewTransaction()
	n.Description = "  office fuel  "
	assert.Equal(t, "office fuel", n.Trimmed().Description)

	tx := Transaction{ID: "t1", Type: Expense, Amount: MoneyFromInt(20), Category: "Fuel", Division: "Office", Account: "Bank"}
	e := EditFrom(tx)
	assert.Equal(t, "Fuel", e.Category)
	assert.Equal(t, "Bank", e.Account)
	assert.True(t, e.Amount.Equal(tx.Amount.Decimal))
}

func TestReportHelpers(t *testing.T) {
	r := EmptyReport()
	assert.True(t, r.IsEmpty())
	assert.NotNil(t, r.List)

	r.List = append(r.List, Transaction{ID: "a"}, Transaction{ID: "b"})
	got, ok := r.Find("b")
	assert.True(t, ok)
	assert.Equal(t, "b", got.ID)
	_, ok = r.Find("z")
	assert.False(t, ok)
}

func TestServerTimestampsDecode(t *testing.T) {
	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"t1","amount":10,"createdAt":"2024-03-10T09:00:00Z"}`), &tx))
	assert.Equal(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), tx.CreatedAt)

	var res TransferResult
	require.NoError(t, json.Unmarshal([]byte(`{"message":"ok","at":"2024-03-10T09:05:00Z"}`), &res))
	assert.Equal(t, time.Date(2024, 3, 10, 9, 5, 0, 0, time.UTC), res.At)

	b, err := json.Marshal(TransferResult{Message: "ok", At: res.At})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"at":"2024-03-10T09:05:00Z"`)
}
