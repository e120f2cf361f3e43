package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/medix-console/access"
	"github.com/jrsteele09/medix-console/auth"
	"github.com/jrsteele09/medix-console/gateway"
	"github.com/jrsteele09/medix-console/internal/errors"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName       string
	Error         string
	Email         string // Preserve email on error
	Notifications []auth.Notification
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())
		switch s.decide(r.Context(), session, nil) {
		case access.DecisionAllow:
			redirectSuccess(w, r, RouteDashboard)
			return
		case access.DecisionWait:
			s.renderWaiting(w, r)
			return
		}

		query := r.URL.Query()
		s.render(w, s.pages.login, LoginPageData{
			AppName:       s.config.GetAppName(),
			Error:         query.Get("error"),
			Email:         query.Get("email"),
			Notifications: session.TakeNotifications(),
		})
	}
}

// LoginSubmissionHandler processes the login form submission (POST /login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		if err := auth.ValidateCredentials(email, password); err != nil {
			var loginErr *auth.LoginError
			errors.As(err, &loginErr)
			s.renderLoginError(w, r, loginErr.Message, email)
			return
		}

		session := auth.FromContext(r.Context())
		next, err := s.sessions.Login(r.Context(), session, email, password)
		if err != nil {
			var loginErr *auth.LoginError
			if errors.As(err, &loginErr) {
				// the message is carried by the redirect instead of the toast queue
				session.TakeNotifications()
				s.renderLoginError(w, r, loginErr.Message, email)
				return
			}
			log.Err(err).Msg("Login aborted")
			s.renderLoginError(w, r, "Login failed", email)
			return
		}

		s.SetSessionCookie(w, r, next.ID())
		redirectSuccess(w, r, RouteDashboard)
	}
}

// LogoutHandler clears the session and returns to the login page (GET or POST /logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())
		if err := session.Logout(r.Context()); err != nil {
			log.Err(err).Str("session", session.ID()).Msg("Logout: failed to clear credentials")
		}
		redirectSuccess(w, r, RouteLogin)
	}
}

// renderLoginError redirects to login page with an error message
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, errorMsg, email string) {
	var extra url.Values
	if email != "" {
		extra = url.Values{"email": {email}}
	}
	redirectWithError(w, r, RouteLogin, errorMsg, extra)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// APILoginHandler is the JSON login (POST /api/login); it answers with the profile
func (s *Server) APILoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeJSONDetail(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if err := auth.ValidateCredentials(req.Email, req.Password); err != nil {
			var loginErr *auth.LoginError
			errors.As(err, &loginErr)
			writeJSONDetail(w, http.StatusBadRequest, loginErr.Message)
			return
		}

		session := auth.FromContext(r.Context())
		next, err := s.sessions.Login(r.Context(), session, req.Email, req.Password)
		if err != nil {
			session.TakeNotifications()
			var loginErr *auth.LoginError
			switch {
			case errors.As(err, &loginErr) && gateway.StatusCode(err) != 0:
				writeJSONDetail(w, http.StatusUnauthorized, loginErr.Message)
			case errors.As(err, &loginErr):
				writeJSONDetail(w, http.StatusBadGateway, loginErr.Message)
			default:
				writeJSONDetail(w, http.StatusServiceUnavailable, "Login failed")
			}
			return
		}
		next.TakeNotifications()
		s.SetSessionCookie(w, r, next.ID())
		writeJSON(w, http.StatusOK, next.User())
	}
}

// APILogoutHandler is the JSON logout (POST /api/logout)
func (s *Server) APILogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())
		if err := session.Logout(r.Context()); err != nil {
			log.Err(err).Str("session", session.ID()).Msg("Logout: failed to clear credentials")
		}
		session.TakeNotifications()
		w.WriteHeader(http.StatusNoContent)
	}
}
