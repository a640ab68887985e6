package http

import (
	"strings"
	"time"

	"moneymanager/internal/core"
)

// formatINR renders whole rupees with Indian digit grouping, e.g.
// "₹1,23,457". Fractions are rounded half away from zero.
func formatINR(m core.Money) string {
	d := m.Round(0)
	neg := d.Sign() < 0
	digits := d.Abs().StringFixed(0)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	b.WriteString(groupIndian(digits))
	return b.String()
}

// groupIndian places a comma before the last three digits and then every
// two digits.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(append(parts, tail), ",")
}

// signedINR prefixes income with + and expense with -.
func signedINR(t core.Transaction) string {
	if t.Type == core.Income {
		return "+" + formatINR(t.Amount)
	}
	return "-" + formatINR(t.Amount)
}

// formatWhen renders a short date and time in loc.
func formatWhen(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	s := t.In(loc).Format("02/01/06, 3:04 PM")
	return strings.Replace(strings.Replace(s, "AM", "am", 1), "PM", "pm", 1)
}
