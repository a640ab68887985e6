package report

import (
	"context"
	"errors"
	"sync"

	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
)

// loader runs fenced reads. Each read is tagged with its key and a
// generation; only the completion of the most recently issued read is kept.
// A read is issued only when the key changes, unless forced.
type loader[T any] struct {
	mu      sync.Mutex
	key     string
	issued  bool
	gen     uint64
	loading bool
	value   T
	empty   func() T
	logger  *log.Logger
}

func newLoader[T any](empty func() T, logger *log.Logger) *loader[T] {
	return &loader[T]{value: empty(), empty: empty, logger: logger}
}

// load fetches under key. Read failures are logged and replaced by the
// empty value, and the key is not remembered so the next load retries. Only
// ErrUnauthorized is returned so the caller can end the session.
func (l *loader[T]) load(ctx context.Context, key string, force bool, fetch func(context.Context) (T, error)) error {
	l.mu.Lock()
	if !force && l.issued && key == l.key {
		l.mu.Unlock()
		return nil
	}
	l.gen++
	gen := l.gen
	l.key, l.issued, l.loading = key, true, true
	l.mu.Unlock()

	v, err := fetch(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "Read failed, showing empty result",
			log.NewFields().WithFetch(key, gen).WithError(err).ToSlice()...)
		v = l.empty()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.logger.DebugContext(ctx, "Discarding stale completion",
			log.NewFields().WithFetch(key, gen).ToSlice()...)
	} else {
		l.value, l.loading = v, false
		l.issued = err == nil
	}

	if errors.Is(err, ledger.ErrUnauthorized) {
		return err
	}
	return nil
}

// reset drops the current value and fences any read in flight.
func (l *loader[T]) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.key, l.issued, l.loading = "", false, false
	l.value = l.empty()
}

func (l *loader[T]) snapshot() (value T, loading bool, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.loading, l.key
}
