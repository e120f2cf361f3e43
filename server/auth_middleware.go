package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/medix-console/access"
	"github.com/jrsteele09/medix-console/auth"
	"github.com/jrsteele09/medix-console/users"
)

// RequirePage is middleware for HTML routes. It evaluates the page's route roles against the
// session: waiting renders the spinner page, login and landing redirect.
// Must be chained after SessionMiddleware.
func (s *Server) RequirePage(name string) func(http.HandlerFunc) http.HandlerFunc {
	allowed := s.routeRoles(name)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session := auth.FromContext(r.Context())
			switch decision := s.decide(r.Context(), session, allowed); decision {
			case access.DecisionAllow:
				next(w, r)
			case access.DecisionWait:
				s.renderWaiting(w, r)
			default:
				log.Debug().Str("path", r.URL.Path).Str("decision", decision.String()).Msg("Page access redirected")
				redirectSuccess(w, r, decision.Redirect())
			}
		}
	}
}

// RequireAPIPage is the JSON counterpart of RequirePage: wait is 503 with Retry-After,
// login is 401 and landing is 403. An empty name admits any authenticated user.
func (s *Server) RequireAPIPage(name string) func(http.HandlerFunc) http.HandlerFunc {
	allowed := s.routeRoles(name)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session := auth.FromContext(r.Context())
			switch s.decide(r.Context(), session, allowed) {
			case access.DecisionAllow:
				next(w, r)
			case access.DecisionWait:
				w.Header().Set("Retry-After", "1")
				writeJSONDetail(w, http.StatusServiceUnavailable, "Session check in progress")
			case access.DecisionLogin:
				w.Header().Set("HX-Redirect", RouteLogin)
				writeJSONDetail(w, http.StatusUnauthorized, "Authentication required")
			default:
				writeJSONDetail(w, http.StatusForbidden, "You do not have access to this resource")
			}
		}
	}
}

func (s *Server) routeRoles(name string) []users.Role {
	if name == "" {
		return nil
	}
	page, ok := s.policy.Page(name)
	if !ok {
		panic("server: no page policy named " + name)
	}
	return page.RouteRoles
}

// decide gives a running session check up to checkWait to finish before evaluating
func (s *Server) decide(ctx context.Context, session *auth.Session, allowed []users.Role) access.Decision {
	if session.Loading() && s.checkWait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, s.checkWait)
		defer cancel()
		_ = session.Wait(waitCtx)
	}
	return access.Evaluate(session.Snapshot(), allowed)
}
