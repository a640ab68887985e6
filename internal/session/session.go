// Package session binds a browser cookie to the bearer token and user
// returned by the ledger at login.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"moneymanager/internal/core"
	"moneymanager/internal/log"
	"moneymanager/internal/storage"
)

const CookieName = "mm_session"

// ErrNoSession means the request carries no live session.
var ErrNoSession = errors.New("no session")

type Session struct {
	ID        string
	Token     string
	User      core.User
	ExpiresAt time.Time
}

// Repository is the persistence the manager needs.
type Repository interface {
	SaveSession(ctx context.Context, s storage.SessionRecord) error
	GetSession(ctx context.Context, id string) (storage.SessionRecord, error)
	UpdateUser(ctx context.Context, id string, u core.User) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Manager struct {
	repo   Repository
	ttl    time.Duration
	secure bool
	now    func() time.Time
	logger *log.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSecureCookies marks cookies Secure, for deployments behind TLS.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

func NewManager(repo Repository, ttl time.Duration, logger *log.Logger, opts ...Option) *Manager {
	m := &Manager{
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentSession),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TokenExpiry reads the exp claim without verifying the signature. The BFF
// cannot verify ledger tokens; it only uses exp to avoid holding sessions
// the ledger will reject anyway.
func TokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Start stores a new session for a successful login or registration. It
// expires after the TTL or with the token, whichever comes first.
func (m *Manager) Start(ctx context.Context, auth core.AuthResult) (Session, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	if exp, ok := TokenExpiry(auth.Token); ok && exp.Before(expires) {
		expires = exp
	}
	rec := storage.SessionRecord{
		ID:        uuid.NewString(),
		Token:     auth.Token,
		User:      auth.User,
		CreatedAt: now,
		ExpiresAt: expires,
	}
	if err := m.repo.SaveSession(ctx, rec); err != nil {
		return Session{}, fmt.Errorf("start session: %w", err)
	}
	m.logger.InfoContext(ctx, "Session started", log.FieldSessionID, rec.ID, "user_id", auth.User.ID)
	return fromRecord(rec), nil
}

// Get returns the live session id, dropping it when expired.
func (m *Manager) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNoSession
	}
	rec, err := m.repo.GetSession(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}
	if !m.now().Before(rec.ExpiresAt) {
		_ = m.repo.DeleteSession(ctx, id)
		return Session{}, ErrNoSession
	}
	return fromRecord(rec), nil
}

// RememberUser refreshes the last-known user, e.g. after /auth/me.
func (m *Manager) RememberUser(ctx context.Context, id string, u core.User) error {
	return m.repo.UpdateUser(ctx, id, u)
}

func (m *Manager) End(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	m.logger.InfoContext(ctx, "Session ended", log.FieldSessionID, id)
	return m.repo.DeleteSession(ctx, id)
}

// Sweep deletes expired sessions.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.now())
}

// RunSweeper sweeps every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				m.logger.WarnContext(ctx, "Session sweep failed", log.FieldError, err)
				continue
			}
			if n > 0 {
				m.logger.DebugContext(ctx, "Expired sessions removed", "count", n)
			}
		}
	}
}

func (m *Manager) SetCookie(w http.ResponseWriter, s Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// IDFromRequest returns the session id cookie value, or "".
func IDFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func fromRecord(r storage.SessionRecord) Session {
	return Session{ID: r.ID, Token: r.Token, User: r.User, ExpiresAt: r.ExpiresAt}
}
