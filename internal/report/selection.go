package report

import (
	"errors"
	"fmt"
	"time"

	"moneymanager/internal/period"
)

type Kind string

const (
	Monthly Kind = "monthly"
	Weekly  Kind = "weekly"
	Yearly  Kind = "yearly"
)

// Kinds lists report kinds in picker order.
var Kinds = []Kind{Monthly, Weekly, Yearly}

var ErrInvalidSelection = errors.New("invalid report selection")

func (k Kind) Valid() bool {
	return k == Monthly || k == Weekly || k == Yearly
}

func (k Kind) Label() string {
	switch k {
	case Monthly:
		return "Monthly"
	case Weekly:
		return "Weekly"
	case Yearly:
		return "Yearly"
	}
	return string(k)
}

// Period keeps every picker value, including the ones the current kind
// ignores, so switching kinds back and forth keeps the user's choices.
type Period struct {
	Year  int
	Month int
	Week  int
}

type Selection struct {
	Kind Kind
	Period
}

// DefaultSelection is the monthly report of now's month. Week comes from
// the ISO algorithm while Year is the calendar year, as the pickers show.
func DefaultSelection(now time.Time) Selection {
	return Selection{
		Kind: Monthly,
		Period: Period{
			Year:  now.Year(),
			Month: int(now.Month()),
			Week:  period.ISOWeek(now),
		},
	}
}

func (s Selection) Validate() error {
	switch {
	case !s.Kind.Valid():
		return fmt.Errorf("%w: kind %q", ErrInvalidSelection, s.Kind)
	case s.Year <= 0:
		return fmt.Errorf("%w: year %d", ErrInvalidSelection, s.Year)
	case s.Kind == Monthly && !period.ValidMonth(s.Month):
		return fmt.Errorf("%w: month %d", ErrInvalidSelection, s.Month)
	case s.Kind == Weekly && !period.ValidWeek(s.Week):
		return fmt.Errorf("%w: week %d", ErrInvalidSelection, s.Week)
	}
	return nil
}

// FetchKey identifies one read. Fields the kind does not use are zero, so
// changing the week while on a monthly report does not trigger a fetch.
type FetchKey struct {
	Kind  Kind
	Year  int
	Month int
	Week  int
	Token uint64
}

func (s Selection) Key(token uint64) FetchKey {
	k := FetchKey{Kind: s.Kind, Year: s.Year, Token: token}
	switch s.Kind {
	case Monthly:
		k.Month = s.Month
	case Weekly:
		k.Week = s.Week
	}
	return k
}

func (k FetchKey) String() string {
	return fmt.Sprintf("%s|%d|%d|%d|%d", k.Kind, k.Year, k.Month, k.Week, k.Token)
}

func tokenString(token uint64) string {
	return fmt.Sprintf("t%d", token)
}
