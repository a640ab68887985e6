// Package report coordinates the period report, the filter view and the
// category summary of one dashboard. Each is a reducer over its inputs
// plus the session's refresh token.
package report

import (
	"context"
	"sync"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/refresh"
)

// State is what the dashboard renders.
type State struct {
	Selection Selection
	Report    core.Report
	Loading   bool
	Key       string
}

type Coordinator struct {
	reader  ledger.ReportReader
	refresh *refresh.Coordinator
	loader  *loader[core.Report]
	unsub   func()

	mu  sync.Mutex
	sel Selection
}

func New(reader ledger.ReportReader, rc *refresh.Coordinator, initial Selection, logger *log.Logger) *Coordinator {
	c := &Coordinator{
		reader:  reader,
		refresh: rc,
		loader:  newLoader(core.EmptyReport, log.OrDiscard(logger).WithComponent(log.ComponentReport)),
		sel:     initial,
	}
	c.unsub = rc.Subscribe(log.ComponentReport, func(ctx context.Context, token uint64) error {
		return c.run(ctx, token, false)
	})
	return c
}

// Select switches the report. An unchanged fetch key issues no request.
func (c *Coordinator) Select(ctx context.Context, sel Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sel = sel
	c.mu.Unlock()
	return c.run(ctx, c.refresh.Token(), false)
}

// Load fetches the current selection if it has not been fetched yet.
func (c *Coordinator) Load(ctx context.Context) error {
	return c.run(ctx, c.refresh.Token(), false)
}

// Reload re-fetches the current selection even though its key is unchanged.
// Used after an edit, which changes one row without bumping the token.
func (c *Coordinator) Reload(ctx context.Context) error {
	return c.run(ctx, c.refresh.Token(), true)
}

func (c *Coordinator) run(ctx context.Context, token uint64, force bool) error {
	c.mu.Lock()
	sel := c.sel
	c.mu.Unlock()

	key := sel.Key(token)
	return c.loader.load(ctx, key.String(), force, func(ctx context.Context) (core.Report, error) {
		return c.fetch(ctx, key)
	})
}

// fetch issues exactly one request matching the kind.
func (c *Coordinator) fetch(ctx context.Context, k FetchKey) (core.Report, error) {
	switch k.Kind {
	case Weekly:
		return c.reader.Weekly(ctx, k.Year, k.Week)
	case Yearly:
		return c.reader.Yearly(ctx, k.Year)
	default:
		return c.reader.Monthly(ctx, k.Year, k.Month)
	}
}

func (c *Coordinator) Snapshot() State {
	report, loading, key := c.loader.snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Selection: c.sel, Report: report, Loading: loading, Key: key}
}

// Close detaches the coordinator from the refresh token.
func (c *Coordinator) Close() {
	c.unsub()
}
