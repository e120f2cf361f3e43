package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/medix-console/access"
	"github.com/jrsteele09/medix-console/api"
	"github.com/jrsteele09/medix-console/gateway"
	"github.com/jrsteele09/medix-console/internal/errors"
	"github.com/jrsteele09/medix-console/sessions"
	"github.com/jrsteele09/medix-console/token"
	"github.com/jrsteele09/medix-console/users"
)

// Session is the authentication state of one console session. It owns the User and
// decides when the stored credentials are trusted.
type Session struct {
	id           string
	store        sessions.TokenStore
	api          *api.Client
	nowTime      func() time.Time
	checkTimeout time.Duration

	mu         sync.RWMutex
	state      State
	user       *users.User
	generation uint64        // bumped by login and logout; stale check results are dropped
	checkDone  chan struct{} // closed when the latest check has finished
	notes      []Notification
	lastSeen   time.Time
}

// newSession returns an unauthenticated session with no check pending
func newSession(id string, store sessions.TokenStore, client *gateway.Client, nowTime func() time.Time, checkTimeout time.Duration) *Session {
	done := make(chan struct{})
	close(done)
	s := &Session{
		id:           id,
		store:        store,
		nowTime:      nowTime,
		checkTimeout: checkTimeout,
		state:        StateUnauthenticated,
		checkDone:    done,
		lastSeen:     nowTime(),
	}
	s.api = api.New(client.Bind(store, s.expired))
	return s
}

func (s *Session) ID() string {
	return s.id
}

// API returns the facades bound to this session's credentials
func (s *Session) API() *api.Client {
	return s.api
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns a copy of the authenticated user, nil when not authenticated
func (s *Session) User() *users.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Loading() bool {
	return s.State() == StateChecking
}

func (s *Session) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

func (s *Session) IsAdmin() bool        { return s.User().IsAdmin() }
func (s *Session) IsPharmacist() bool   { return s.User().IsPharmacist() }
func (s *Session) IsDoctor() bool       { return s.User().IsDoctor() }
func (s *Session) IsReceptionist() bool { return s.User().IsReceptionist() }
func (s *Session) IsPatient() bool      { return s.User().IsPatient() }

// Snapshot returns the guard view of the session
func (s *Session) Snapshot() access.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := access.Snapshot{
		Loading:       s.state == StateChecking,
		Authenticated: s.state == StateAuthenticated && s.user != nil,
	}
	if s.user != nil {
		snap.Role = s.user.Role
	}
	return snap
}

// Wait blocks until the running check has finished or ctx is done
func (s *Session) Wait(ctx context.Context) error {
	s.mu.RLock()
	done := s.checkDone
	s.mu.RUnlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) startCheck() {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	done := make(chan struct{})
	s.state = StateChecking
	s.user = nil
	s.checkDone = done
	s.mu.Unlock()

	go s.check(gen, done)
}

func (s *Session) check(gen uint64, done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), s.checkTimeout)
	defer cancel()

	user, err := s.verifyStoredCredentials(ctx, gen)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		log.Debug().Str("session", s.id).Msg("Discarding superseded session check")
		return
	}
	if err != nil {
		s.state = StateUnauthenticated
		s.user = nil
		return
	}
	s.user = user
	s.state = StateAuthenticated
}

// verifyStoredCredentials trusts the stored access token only after the profile endpoint accepted it
func (s *Session) verifyStoredCredentials(ctx context.Context, gen uint64) (*users.User, error) {
	accessToken := s.store.ReadAccess(ctx)
	if accessToken == "" {
		return nil, errors.ErrNotAuthenticated
	}

	if err := token.CheckExpiry(accessToken, s.nowTime()); err != nil {
		log.Debug().Err(err).Str("session", s.id).Msg("Stored access token rejected without a network call")
		s.clearIfCurrent(ctx, gen)
		return nil, err
	}

	user, err := s.api.Auth.Profile(ctx)
	if err != nil {
		log.Err(err).Str("session", s.id).Msg("Profile fetch failed during session check")
		s.clearIfCurrent(ctx, gen)
		return nil, err
	}
	return user, nil
}

func (s *Session) clearIfCurrent(ctx context.Context, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Err(err).Str("session", s.id).Msg("Failed to clear session store")
	}
}

// Login exchanges credentials for a token pair, stores it and loads the profile.
// On failure the state is unchanged, no tokens are left stored and a *LoginError is returned.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if err := s.Wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()

	pair, err := s.api.Auth.Login(ctx, email, password)
	if err != nil {
		return s.loginFailed(email, err)
	}
	if err := s.store.Save(ctx, pair.Pair()); err != nil {
		return s.loginFailed(email, errors.Wrapf(err, "store credentials"))
	}

	user, err := s.api.Auth.Profile(ctx)
	if err != nil {
		if clearErr := s.store.Clear(context.WithoutCancel(ctx)); clearErr != nil {
			log.Err(clearErr).Str("session", s.id).Msg("Failed to clear session store")
		}
		s.mu.Lock()
		s.generation++
		s.user = nil
		if s.state == StateAuthenticated {
			s.state = StateUnauthenticated
		}
		s.mu.Unlock()
		return s.loginFailed(email, err)
	}

	s.mu.Lock()
	s.generation++
	s.user = user
	s.state = StateAuthenticated
	s.mu.Unlock()

	log.Info().Str("session", s.id).Str("email", email).Str("role", user.Role.String()).Msg("User logged in")
	s.Notify(LevelSuccess, msgLoginSucceeded)
	return nil
}

func (s *Session) loginFailed(email string, err error) error {
	msg := loginMessage(err)
	log.Warn().Err(err).Str("session", s.id).Str("email", email).Msg("Login failed")
	s.Notify(LevelError, msg)
	return &LoginError{Message: msg, Err: err}
}

// abandon retires a session whose credentials moved to a new ID
func (s *Session) abandon(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	s.user = nil
	s.state = StateUnauthenticated
	s.mu.Unlock()

	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Err(err).Str("session", s.id).Msg("Failed to clear abandoned session store")
	}
}

// Logout forgets the credentials and the user. Calling it again is harmless.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	wasAuthenticated := s.state == StateAuthenticated
	s.user = nil
	s.state = StateUnauthenticated
	s.mu.Unlock()

	err := s.store.Clear(ctx)
	if err != nil {
		log.Err(err).Str("session", s.id).Msg("Failed to clear session store on logout")
		err = errors.Wrapf(err, "logout")
	}
	if wasAuthenticated {
		log.Info().Str("session", s.id).Msg("User logged out")
	}
	s.Notify(LevelSuccess, msgLoggedOut)
	return err
}

// ReloadProfile refreshes the in-memory user, typically after a profile update
func (s *Session) ReloadProfile(ctx context.Context) error {
	user, err := s.api.Auth.Profile(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return errors.ErrNotAuthenticated
	}
	s.user = user
	return nil
}

// expired is called by the gateway after a failed refresh has cleared the store
func (s *Session) expired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateChecking {
		return
	}
	if s.state == StateAuthenticated {
		s.notifyLocked(LevelInfo, msgSessionExpired)
	}
	s.user = nil
	s.state = StateUnauthenticated
	log.Info().Str("session", s.id).Msg("Session expired")
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}
