package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/middleware/ratelimit"
	"moneymanager/internal/middleware/security"
	"moneymanager/internal/middleware/trace"
	"moneymanager/internal/page"
	"moneymanager/internal/session"
	"moneymanager/internal/transfer"
	appweb "moneymanager/web"
)

// Deps are the collaborators the server needs.
type Deps struct {
	Auth     ledger.Authenticator
	Sessions *session.Manager
	Pages    *page.Registry
	Limiter  *ratelimit.Limiter
	Location *time.Location
	Logger   *log.Logger
	Now      func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	auth      ledger.Authenticator
	sessions  *session.Manager
	pages     *page.Registry
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	loc       *time.Location
	now       func() time.Time
	logger    *log.Logger
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	logger := log.OrDiscard(deps.Logger)
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Server{
		auth:      deps.Auth,
		sessions:  deps.Sessions,
		pages:     deps.Pages,
		limiter:   deps.Limiter,
		detector:  security.NewDetector(logger),
		loc:       deps.Location,
		now:       deps.Now,
		logger:    logger.WithComponent(log.ComponentHTTP),
		startedAt: deps.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	t, err := parseTemplates(s.funcs())
	if err != nil {
		return nil, err
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func parseTemplates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"inr":       formatINR,
		"signedINR": signedINR,
		"when":      func(t time.Time) string { return formatWhen(t, s.loc) },
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.StaticAssetMiddleware(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited, http.MethodPost))
		}

		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Get("/register", s.handleRegisterPage)
		r.Post("/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/logout", s.handleLogout)
			r.Get("/", s.handleDashboard)

			r.Route("/ui", func(r chi.Router) {
				r.Get("/report", s.handleReport)
				r.Get("/filter", s.handleFilter)
				r.Post("/filter/clear", s.handleFilterClear)
				r.Get("/summary", s.handleSummary)
				r.Get("/accounts", s.handleAccounts)
				r.Get("/add-form", s.handleAddForm)
				r.Get("/transactions", s.handleTransactionList)
			})

			r.Post("/transactions", s.handleAddTransaction)
			r.Post("/transactions/{id}/edit", s.handleRequestEdit)
			r.Post("/edit/commit", s.handleCommitEdit)
			r.Post("/edit/cancel", s.handleCancelEdit)
			r.Post("/transfers", s.handleTransfer)
		})
	})
	return r
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

type ctxKey int

const (
	pageKey ctxKey = iota
	sessionKey
)

// requireSession resolves the session cookie to its page. Without a live
// session the browser is sent to the login page.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(r.Context(), session.IDFromRequest(r))
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Session lookup failed", log.FieldError, err)
			}
			s.sessions.ClearCookie(w)
			s.redirect(w, r, "/login")
			return
		}
		p := s.pages.Page(sess.ID, sess.User.ID, sess.Token)
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		ctx = context.WithValue(ctx, pageKey, p)
		ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldSessionID, sess.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pageFrom(ctx context.Context) *page.Page {
	p, _ := ctx.Value(pageKey).(*page.Page)
	return p
}

func sessionFrom(ctx context.Context) session.Session {
	sess, _ := ctx.Value(sessionKey).(session.Session)
	return sess
}

// redirect navigates the browser, through HX-Redirect for htmx requests.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, to string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(to).Write(w)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// endSession forgets the session everywhere: store, page cache and cookie.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess.ID != "" {
		if err := s.sessions.End(r.Context(), sess.ID); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to delete session", log.FieldError, err)
		}
		s.pages.Drop(sess.ID)
	}
	s.sessions.ClearCookie(w)
}

// unauthorized ends the session when err means the token was rejected and
// reports whether it did.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, ledger.ErrUnauthorized) {
		return false
	}
	ctx := r.Context()
	log.FromContext(ctx).InfoContext(ctx, "Token rejected, ending session")
	s.endSession(w, r)
	s.redirect(w, r, "/login")
	return true
}

// problem maps a failed operation onto a status and the text shown to the
// user. Local validation is 422; ledger rejections keep their message.
func problem(err error, fallback string) (int, string) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, verr.Message
	}
	if rej, ok := transfer.Rejected(err); ok {
		return http.StatusUnprocessableEntity, rej.Reason
	}
	var lerr *ledger.Error
	if errors.As(err, &lerr) && lerr.Status >= 400 && lerr.Status < 500 {
		return http.StatusUnprocessableEntity, ledger.UserMessage(err, fallback)
	}
	return http.StatusBadGateway, ledger.UserMessage(err, fallback)
}

// fail answers with an error fragment.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if s.unauthorized(w, r, err) {
		return
	}
	status, msg := problem(err, fallback)
	log.FromContext(r.Context()).WarnContext(r.Context(), "Request failed", log.FieldError, err, log.FieldStatusCode, status)
	ErrorResponse(status, msg).Write(w)
}

// render executes name into a buffer first so a template error never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any, b *HTMXResponseBuilder) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(),
			"Template execution failed", log.FieldError, err, log.FieldTemplate, name, log.FieldOperation, log.OpRender)
		InternalServerError("Something went wrong").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.BodyHTML(buf.String()).Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.templates == nil || s.sessions == nil || s.pages == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes the request, security and page counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	tm := s.tracer.GetMetrics()
	fmt.Fprintf(w, "# TYPE http_requests_total counter\nhttp_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\nhttp_server_errors_total %d\n", tm.ServerErrorRequests)
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\nsuspicious_requests_total %d\n",
		s.detector.GetMetrics().SuspiciousRequests)
	if s.limiter != nil {
		fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\nrate_limit_hits_total %d\n", s.limiter.GetMetrics().TotalHits)
	}
	if s.pages != nil {
		fmt.Fprintf(w, "# TYPE live_pages gauge\nlive_pages %d\n", s.pages.Cache().Size())
	}
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\nuptime_seconds %.0f\n", s.now().Sub(s.startedAt).Seconds())
}
