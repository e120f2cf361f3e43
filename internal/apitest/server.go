// Package apitest runs an in-process stand-in for the remote pharmacy API
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jrsteele09/medix-console/users"
)

const (
	DefaultAccessTTL = 5 * time.Minute

	invalidCredentials = "No active account found with the given credentials"
	invalidToken       = "Given token not valid for any token type"
	invalidRefresh     = "Token is invalid or expired"
)

type account struct {
	user     users.User
	password string
}

// Server is a fake remote API. It issues HS256 tokens, serves profile and dashboard data
// and keeps any other resource as opaque JSON records.
type Server struct {
	*httptest.Server

	Now       func() time.Time
	AccessTTL time.Duration

	LoginCalls   atomic.Int32
	RefreshCalls atomic.Int32
	ProfileCalls atomic.Int32

	mu        sync.Mutex
	secret    []byte
	accounts  map[string]*account // email -> account
	revoked   map[string]bool     // refresh tokens and access token IDs
	records   map[string]map[int64]json.RawMessage
	nextID    int64
	failNext  map[string]int // path -> status of the next response
	delay     time.Duration
	holdGate  chan struct{} // refresh requests wait on it while set
	dashboard map[users.Role]any
}

// New starts a fake API closed at the end of the test
func New(t testing.TB) *Server {
	s := &Server{
		Now:       time.Now,
		AccessTTL: DefaultAccessTTL,
		secret:    []byte(uuid.NewString()),
		accounts:  make(map[string]*account),
		revoked:   make(map[string]bool),
		records:   make(map[string]map[int64]json.RawMessage),
		failNext:  make(map[string]int),
		dashboard: defaultDashboards(),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root the console points at
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// AddUser registers an account and returns it with its assigned ID
func (s *Server) AddUser(email, password string, role users.Role) users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	first, last, _ := strings.Cut(strings.Split(email, "@")[0], ".")
	u := users.User{
		ID:        s.nextID,
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      role,
		FullName:  strings.TrimSpace(first + " " + last),
	}
	s.accounts[email] = &account{user: u, password: password}
	return u
}

// MintAccess signs an access token for userID expiring after ttl (negative ttl gives an expired token)
func (s *Server) MintAccess(userID int64, ttl time.Duration) string {
	return s.sign(jwtlib.MapClaims{
		"token_type": "access",
		"user_id":    userID,
		"iat":        s.Now().Unix(),
		"exp":        s.Now().Add(ttl).Unix(),
		"jti":        uuid.NewString(),
	})
}

func (s *Server) MintRefresh(userID int64) string {
	return s.sign(jwtlib.MapClaims{
		"token_type": "refresh",
		"user_id":    userID,
		"iat":        s.Now().Unix(),
		"exp":        s.Now().Add(24 * time.Hour).Unix(),
		"jti":        uuid.NewString(),
	})
}

// Revoke makes the server reject token from now on, whatever its expiry
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// FailNext answers the next request to path (relative to the API root) with status
func (s *Server) FailNext(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext["/api"+path] = status
}

// SetDelay slows every response down, for exercising in-flight states
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// HoldRefresh parks every refresh request after it has been counted until the returned
// release func is called
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.holdGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.holdGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// SetDashboard replaces the dashboard payload served to role
func (s *Server) SetDashboard(role users.Role, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashboard[role] = payload
}

func (s *Server) sign(claims jwtlib.MapClaims) string {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return signed
}

// verify checks signature, expiry, type and revocation and returns the user_id claim
func (s *Server) verify(raw, tokenType string) (int64, bool) {
	s.mu.Lock()
	revoked := s.revoked[raw]
	s.mu.Unlock()
	if revoked {
		return 0, false
	}

	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (interface{}, error) {
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(s.Now), jwtlib.WithExpirationRequired())
	if err != nil || claims["token_type"] != tokenType {
		return 0, false
	}
	id, ok := claims["user_id"].(float64)
	return int64(id), ok
}

func (s *Server) userByID(id int64) (*account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc, true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func detail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil
}
