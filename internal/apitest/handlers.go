package apitest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/medix-console/users"
)

type userKey struct{}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login/{$}", s.login)
	mux.HandleFunc("POST /api/auth/refresh/{$}", s.refresh)
	mux.HandleFunc("GET /api/users/profile/{$}", s.authenticated(s.profile))
	mux.HandleFunc("PATCH /api/users/profile/{$}", s.authenticated(s.updateProfile))
	mux.HandleFunc("GET /api/reports/dashboard/{$}", s.authenticated(s.reportDashboard))
	mux.HandleFunc("GET /api/{resource}/{$}", s.authenticated(s.list))
	mux.HandleFunc("POST /api/{resource}/{$}", s.authenticated(s.create))
	mux.HandleFunc("GET /api/{resource}/{id}/{$}", s.authenticated(s.get))
	mux.HandleFunc("POST /api/{resource}/{id}/{$}", s.authenticated(s.action))
	mux.HandleFunc("PATCH /api/{resource}/{id}/{$}", s.authenticated(s.update))
	mux.HandleFunc("DELETE /api/{resource}/{id}/{$}", s.authenticated(s.remove))
	mux.HandleFunc("POST /api/{resource}/{id}/{action}/{$}", s.authenticated(s.action))
	return s.faults(mux)
}

// faults applies the configured delay and one-shot failures before routing
func (s *Server) faults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		delay := s.delay
		status, fail := s.failNext[r.URL.Path]
		delete(s.failNext, r.URL.Path)
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if fail {
			detail(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			detail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		id, valid := s.verify(raw, "access")
		if !valid {
			detail(w, http.StatusUnauthorized, invalidToken)
			return
		}
		acc, found := s.userByID(id)
		if !found {
			detail(w, http.StatusUnauthorized, "User not found")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, acc.user)))
	}
}

func currentUser(r *http.Request) users.User {
	u, _ := r.Context().Value(userKey{}).(users.User)
	return u
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.LoginCalls.Add(1)
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		detail(w, http.StatusBadRequest, "Malformed request")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[creds.Email]
	s.mu.Unlock()
	if !ok || acc.password != creds.Password {
		detail(w, http.StatusUnauthorized, invalidCredentials)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access":  s.MintAccess(acc.user.ID, s.AccessTTL),
		"refresh": s.MintRefresh(acc.user.ID),
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.RefreshCalls.Add(1)
	s.mu.Lock()
	gate := s.holdGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}
	id, ok := s.verify(body.Refresh, "refresh")
	if !ok {
		detail(w, http.StatusUnauthorized, invalidRefresh)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": s.MintAccess(id, s.AccessTTL)})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	s.ProfileCalls.Add(1)
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	var patch struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		detail(w, http.StatusBadRequest, "Malformed request")
		return
	}

	s.mu.Lock()
	acc := s.accounts[u.Email]
	if patch.FirstName != nil {
		acc.user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		acc.user.LastName = *patch.LastName
	}
	acc.user.FullName = strings.TrimSpace(acc.user.FirstName + " " + acc.user.LastName)
	updated := acc.user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) reportDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	payload, ok := s.dashboard[currentUser(r).Role]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid role"})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	s.mu.Lock()
	records := s.records[resource]
	ids := make([]int64, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, records[id])
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	fields, ok := decodeObject(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	s.nextID++
	fields["id"] = s.nextID
	record, _ := json.Marshal(fields)
	if s.records[resource] == nil {
		s.records[resource] = make(map[int64]json.RawMessage)
	}
	s.records[resource][s.nextID] = record
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, json.RawMessage(record))
}

// get also serves list actions such as /drugs/low_stock/ which answer with an empty list
func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	record, found := s.record(r.PathValue("resource"), id)
	if !found {
		detail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		detail(w, http.StatusNotFound, "Not found.")
		return
	}
	patch, ok := decodeObject(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, found := s.records[resource][id]
	if !found {
		detail(w, http.StatusNotFound, "Not found.")
		return
	}
	fields := map[string]any{}
	_ = json.Unmarshal(existing, &fields)
	for k, v := range patch {
		fields[k] = v
	}
	fields["id"] = id
	record, _ := json.Marshal(fields)
	s.records[resource][id] = record
	writeJSON(w, http.StatusOK, json.RawMessage(record))
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	id, _ := parseID(r.PathValue("id"))

	s.mu.Lock()
	_, found := s.records[resource][id]
	delete(s.records[resource], id)
	s.mu.Unlock()

	if !found {
		detail(w, http.StatusNotFound, "Not found.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// action acknowledges POST actions such as /prescriptions/{id}/fill/ or /users/change_password/
func (s *Server) action(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	name := r.PathValue("action")
	if name == "" {
		name = r.PathValue("id")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": name})
}

func (s *Server) record(resource string, id int64) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[resource][id]
	return record, ok
}

// Seed stores a record under resource and returns its ID
func (s *Server) Seed(resource string, fields map[string]any) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	copied := map[string]any{"id": s.nextID}
	for k, v := range fields {
		copied[k] = v
	}
	record, _ := json.Marshal(copied)
	if s.records[resource] == nil {
		s.records[resource] = make(map[int64]json.RawMessage)
	}
	s.records[resource][s.nextID] = record
	return s.nextID
}

func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	fields := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		detail(w, http.StatusBadRequest, "Malformed request")
		return nil, false
	}
	return fields, true
}

func defaultDashboards() map[users.Role]any {
	staff := map[string]any{
		"inventory":     map[string]any{"total_drugs": 42, "low_stock": 3, "out_of_stock": 1, "total_value": "15230.50"},
		"sales":         map[string]any{"today": 7, "today_revenue": 412.75, "last_30_days": 180, "last_30_days_revenue": "9850.00"},
		"prescriptions": map[string]any{"pending": 4, "filled_today": 2, "total_active": 6},
		"users":         map[string]any{"total": 25, "patients": 18, "doctors": 3, "pharmacists": 2},
		"alerts":        map[string]any{"low_stock_drugs": 3, "expiring_drugs": 2, "pending_prescriptions": 4},
	}
	return map[users.Role]any{
		users.RoleAdmin:      staff,
		users.RolePharmacist: staff,
		users.RoleDoctor: map[string]any{
			"prescriptions": map[string]any{"total_issued": 12, "pending": 3, "filled": 9, "recent": []any{}},
			"patients":      map[string]any{"total": 8},
		},
		users.RolePatient: map[string]any{
			"prescriptions": map[string]any{"total": 2, "pending": 1, "filled": 1, "recent": []any{}},
			"purchases":     map[string]any{"total": 3, "total_spent": "64.20"},
		},
	}
}
