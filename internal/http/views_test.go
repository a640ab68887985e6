package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithAllPostsEmptyValue(t *testing.T) {
	got := withAll([]string{"Food", "Rent"}, "")
	assert.Equal(t, []Option{
		{Value: "", Label: "All", Selected: true},
		{Value: "Food", Label: "Food"},
		{Value: "Rent", Label: "Rent"},
	}, got)

	got = withAll([]string{"Food", "Rent"}, "Rent")
	assert.False(t, got[0].Selected)
	assert.True(t, got[2].Selected)
}

func TestWithCurrentKeepsRetiredValue(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		current string
		want    []string
	}{
		{"listed", []string{"Cash", "Bank"}, "Bank", []string{"Cash", "Bank"}},
		{"retired", []string{"Cash", "Bank"}, "Wallet", []string{"Wallet", "Cash", "Bank"}},
		{"empty", []string{"Cash"}, "", []string{"Cash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withCurrent(tt.values, tt.current))
		})
	}
}

func TestIntOptionsMarksSelection(t *testing.T) {
	got := intOptions([]int{2023, 2024, 2025}, 2024, func(y int) string { return "Y" })
	assert.Len(t, got, 3)
	assert.Equal(t, Option{Value: "2024", Label: "Y", Selected: true}, got[1])
	assert.False(t, got[0].Selected)
}
