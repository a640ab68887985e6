package page

import (
	"time"

	"moneymanager/internal/cache"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/refresh"
)

var _ refresh.Lookup = (*Registry)(nil)

// Registry keeps the live page of every session. Pages idle for longer than
// the TTL, or pushed out by newer sessions, are closed.
type Registry struct {
	backend ledger.Backend
	pages   *cache.LRUCache[*Page]
	relay   *refresh.Relay
	base    Options
	logger  *log.Logger
}

func NewRegistry(backend ledger.Backend, size int, ttl time.Duration, base Options) *Registry {
	logger := log.OrDiscard(base.Logger).WithComponent(log.ComponentPage)
	r := &Registry{
		backend: backend,
		base:    base,
		logger:  logger,
	}
	r.pages = cache.NewLRUCache[*Page](size, ttl).OnEvict(func(id string, p *Page) {
		p.Close()
		logger.Debug("Page closed", log.FieldSessionID, id)
	})
	return r
}

// UseRelay makes new pages publish their bumps to other instances.
func (r *Registry) UseRelay(relay *refresh.Relay) {
	r.relay = relay
}

// Cache exposes the page cache for cleanup registration.
func (r *Registry) Cache() *cache.LRUCache[*Page] { return r.pages }

// Page returns the session's page, creating it on first use. Concurrent
// first requests of a session share one page.
func (r *Registry) Page(sessionID, userID, token string) *Page {
	p, _ := r.pages.GetOrSet(sessionID, func() *Page {
		opts := r.base
		opts.SessionID, opts.UserID = sessionID, userID
		if r.relay != nil && userID != "" {
			opts.Publisher = r.relay.ForUser(userID)
		}
		return New(r.backend.ForToken(token), opts)
	})
	return p
}

// Drop closes the session's page, e.g. on logout.
func (r *Registry) Drop(sessionID string) {
	r.pages.Delete(sessionID)
}

// CoordinatorsFor returns the refresh tokens of every page of userID.
func (r *Registry) CoordinatorsFor(userID string) []*refresh.Coordinator {
	var out []*refresh.Coordinator
	for _, p := range r.pages.Values() {
		if p.UserID == userID {
			out = append(out, p.Refresh)
		}
	}
	return out
}
