package report

import (
	"context"
	"sync"

	"moneymanager/internal/core"
	"moneymanager/internal/filter"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/refresh"
)

// FilterView runs ad hoc filtered reports. Nothing is fetched until the
// user applies criteria; a refresh re-runs the applied criteria.
type FilterView struct {
	reader  ledger.ReportReader
	refresh *refresh.Coordinator
	loader  *loader[core.Report]
	unsub   func()

	mu       sync.Mutex
	criteria filter.Criteria
	applied  bool
}

type FilterState struct {
	Criteria filter.Criteria
	Applied  bool
	Report   core.Report
	Loading  bool
}

func NewFilterView(reader ledger.ReportReader, rc *refresh.Coordinator, logger *log.Logger) *FilterView {
	v := &FilterView{
		reader:  reader,
		refresh: rc,
		loader:  newLoader(core.EmptyReport, log.OrDiscard(logger).WithComponent(log.ComponentFilter)),
	}
	v.unsub = rc.Subscribe(log.ComponentFilter, func(ctx context.Context, token uint64) error {
		v.mu.Lock()
		applied, c := v.applied, v.criteria
		v.mu.Unlock()
		if !applied {
			return nil
		}
		return v.run(ctx, c, token, false)
	})
	return v
}

// Apply runs c. Applying the same criteria again re-fetches, like pressing
// the button twice.
func (v *FilterView) Apply(ctx context.Context, c filter.Criteria) error {
	c = c.Normalize()
	v.mu.Lock()
	v.criteria, v.applied = c, true
	v.mu.Unlock()
	return v.run(ctx, c, v.refresh.Token(), true)
}

func (v *FilterView) run(ctx context.Context, c filter.Criteria, token uint64, force bool) error {
	key := c.Key() + "|" + tokenString(token)
	return v.loader.load(ctx, key, force, func(ctx context.Context) (core.Report, error) {
		return v.reader.Filter(ctx, filter.Build(c))
	})
}

// Clear empties the criteria and the result.
func (v *FilterView) Clear() {
	v.mu.Lock()
	v.criteria, v.applied = filter.Criteria{}, false
	v.mu.Unlock()
	v.loader.reset()
}

func (v *FilterView) Snapshot() FilterState {
	report, loading, _ := v.loader.snapshot()
	v.mu.Lock()
	defer v.mu.Unlock()
	return FilterState{Criteria: v.criteria, Applied: v.applied, Report: report, Loading: loading}
}

func (v *FilterView) Close() { v.unsub() }

// SummaryView holds the expense totals per category for an optional range.
type SummaryView struct {
	reader  ledger.ReportReader
	refresh *refresh.Coordinator
	loader  *loader[[]core.CategoryTotal]
	unsub   func()

	mu       sync.Mutex
	from, to string
}

type SummaryState struct {
	From, To string
	Totals   []core.CategoryTotal
	Loading  bool
}

func emptyTotals() []core.CategoryTotal { return []core.CategoryTotal{} }

func NewSummaryView(reader ledger.ReportReader, rc *refresh.Coordinator, logger *log.Logger) *SummaryView {
	v := &SummaryView{
		reader:  reader,
		refresh: rc,
		loader:  newLoader(emptyTotals, log.OrDiscard(logger).WithComponent(log.ComponentSummary)),
	}
	v.unsub = rc.Subscribe(log.ComponentSummary, func(ctx context.Context, token uint64) error {
		return v.run(ctx, token, false)
	})
	return v
}

// Load fetches the summary for the current range if not fetched yet.
func (v *SummaryView) Load(ctx context.Context) error {
	return v.run(ctx, v.refresh.Token(), false)
}

// SetRange changes the range and fetches.
func (v *SummaryView) SetRange(ctx context.Context, from, to string) error {
	c := filter.Criteria{From: from, To: to}.Normalize()
	v.mu.Lock()
	v.from, v.to = c.From, c.To
	v.mu.Unlock()
	return v.run(ctx, v.refresh.Token(), true)
}

func (v *SummaryView) run(ctx context.Context, token uint64, force bool) error {
	v.mu.Lock()
	q := filter.Range(v.from, v.to)
	v.mu.Unlock()
	key := q.Encode() + "|" + tokenString(token)
	return v.loader.load(ctx, key, force, func(ctx context.Context) ([]core.CategoryTotal, error) {
		return v.reader.CategorySummary(ctx, q)
	})
}

func (v *SummaryView) Snapshot() SummaryState {
	totals, loading, _ := v.loader.snapshot()
	v.mu.Lock()
	defer v.mu.Unlock()
	return SummaryState{From: v.from, To: v.to, Totals: totals, Loading: loading}
}

func (v *SummaryView) Close() { v.unsub() }
