package http

import (
	"errors"
	"net/http"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/session"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderAuth(w, r, AuthView{Title: "Sign in"}, http.StatusOK)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderAuth(w, r, AuthView{Title: "Create account", Register: true}, http.StatusOK)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	creds := ParseCredentials(r.PostForm)
	view := AuthView{Title: "Sign in", Form: Credentials{Email: creds.Email}}
	if creds.Email == "" || creds.Password == "" {
		view.Error = core.ErrMissingCredentials.Message
		s.renderAuth(w, r, view, http.StatusUnprocessableEntity)
		return
	}

	res, err := s.auth.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		s.authFailed(w, r, view, err, "Login failed")
		return
	}
	s.startSession(w, r, view, res)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	creds := ParseCredentials(r.PostForm)
	view := AuthView{Title: "Create account", Register: true, Form: Credentials{Name: creds.Name, Email: creds.Email}}
	if creds.Email == "" || creds.Password == "" {
		view.Error = core.ErrMissingCredentials.Message
		s.renderAuth(w, r, view, http.StatusUnprocessableEntity)
		return
	}

	res, err := s.auth.Register(r.Context(), creds.Name, creds.Email, creds.Password)
	if err != nil {
		s.authFailed(w, r, view, err, "Registration failed")
		return
	}
	s.startSession(w, r, view, res)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.endSession(w, r)
	log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).InfoContext(r.Context(),
		"User signed out", log.FieldUserID, sess.User.ID)
	s.redirect(w, r, "/login")
}

// signedIn reports whether r already carries a live session.
func (s *Server) signedIn(r *http.Request) bool {
	_, err := s.sessions.Get(r.Context(), session.IDFromRequest(r))
	return err == nil
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, view AuthView, res core.AuthResult) {
	ctx := r.Context()
	sess, err := s.sessions.Start(ctx, res)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to store session", log.FieldError, err)
		view.Error = "Could not sign you in. Please try again."
		s.renderAuth(w, r, view, http.StatusInternalServerError)
		return
	}
	s.sessions.SetCookie(w, sess)
	log.FromContext(ctx).WithComponent(log.ComponentSecurity).InfoContext(ctx,
		"User signed in", log.FieldUserID, res.User.ID, log.FieldSessionID, sess.ID)
	s.redirect(w, r, "/")
}

// authFailed shows the ledger's message on the form. A 401 here is a wrong
// password, not an expired session.
func (s *Server) authFailed(w http.ResponseWriter, r *http.Request, view AuthView, err error, fallback string) {
	status := http.StatusBadGateway
	var lerr *ledger.Error
	if errors.As(err, &lerr) && lerr.Status >= 400 && lerr.Status < 500 {
		status = lerr.Status
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(),
		"Authentication failed", log.FieldError, err, log.FieldStatusCode, status)
	view.Error = ledger.UserMessage(err, fallback)
	s.renderAuth(w, r, view, status)
}

func (s *Server) renderAuth(w http.ResponseWriter, r *http.Request, view AuthView, status int) {
	s.render(w, r, "auth", view, NewHTMXResponse().Status(status))
}
