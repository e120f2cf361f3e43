package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/medix-console/access"
	"github.com/jrsteele09/medix-console/api"
	"github.com/jrsteele09/medix-console/auth"
	"github.com/jrsteele09/medix-console/internal/errors"
	"github.com/jrsteele09/medix-console/users"
)

// dashboardView is the content of the dashboard page. Exactly one of the role flags is set;
// a receptionist gets only the header.
type dashboardView struct {
	User    *users.User
	Summary *api.DashboardSummary
	Staff   bool // ADMIN and PHARMACIST
	Doctor  bool
	Patient bool
	Error   string
}

// DashboardHandler renders the role-branched summary (GET /dashboard)
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())
		view := dashboardView{
			User:    session.User(),
			Staff:   session.IsAdmin() || session.IsPharmacist(),
			Doctor:  session.IsDoctor(),
			Patient: session.IsPatient(),
		}

		if view.Staff || view.Doctor || view.Patient {
			summary, err := session.API().Reports.Dashboard(r.Context())
			switch {
			case errors.Is(err, errors.ErrSessionExpired):
				redirectSuccess(w, r, RouteLogin)
				return
			case err != nil:
				log.Err(err).Str("session", session.ID()).Msg("Failed to load dashboard summary")
				view.Error = "Dashboard data is unavailable right now"
			default:
				view.Summary = summary
			}
		}

		s.renderPage(w, r, s.pages.dashboard, access.PageDashboard, view)
	}
}

type placeholderView struct {
	Page access.Page
}

// PlaceholderPageHandler renders a page whose management UI is not part of the console yet
func (s *Server) PlaceholderPageHandler(page access.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, s.pages.placeholder, page.Name, placeholderView{Page: page})
	}
}

// HealthHandler reports liveness and, when configured, the session store status
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.healthCheck != nil {
			if err := s.healthCheck(r.Context()); err != nil {
				log.Err(err).Msg("Health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "detail": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
	}
}
