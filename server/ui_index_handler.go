package server

import (
	"net/http"
)

// IndexHandler sends the browser to the landing page; the dashboard guard decides from there
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectSuccess(w, r, RouteDashboard)
	}
}
