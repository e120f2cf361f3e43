package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/medix-console/gateway"
	"github.com/jrsteele09/medix-console/sessions"
)

const (
	defaultCheckTimeout = 10 * time.Second
	defaultIdleTimeout  = 30 * time.Minute
)

// Manager owns the Session of every console session seen by the server
type Manager struct {
	repo         sessions.Repo
	client       *gateway.Client
	nowTime      func() time.Time
	checkTimeout time.Duration
	idleTimeout  time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// ManagerOption defines a function type to modify the Manager instance
type ManagerOption func(*Manager)

// WithNowTime sets the clock used for token expiry and idle eviction
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func WithCheckTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.checkTimeout = d
		}
	}
}

func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

func New(repo sessions.Repo, client *gateway.Client, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:         repo,
		client:       client,
		nowTime:      time.Now,
		checkTimeout: defaultCheckTimeout,
		idleTimeout:  defaultIdleTimeout,
		sessions:     make(map[string]*Session),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Session returns the session for id. An id the manager does not hold gets a session only
// when credentials are stored under it; that session starts its check and is kept. Any other
// id gets a detached unauthenticated session that is not kept, so anonymous traffic holds no state.
func (m *Manager) Session(ctx context.Context, id string) *Session {
	if s := m.lookup(id); s != nil {
		return s
	}

	store := sessions.Scoped(m.repo, id)
	if store.ReadAccess(ctx) == "" && store.ReadRefresh(ctx) == "" {
		return newSession(id, store, m.client, m.nowTime, m.checkTimeout)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.touch(m.nowTime())
		return s
	}
	s := newSession(id, store, m.client, m.nowTime, m.checkTimeout)
	s.startCheck()
	m.sessions[id] = s
	return s
}

func (m *Manager) lookup(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	s.touch(m.nowTime())
	return s
}

// Login signs in under a freshly issued session ID and retires current, so an ID known
// before login never carries the new credentials. The caller must hand the returned
// session's ID to the browser. On failure current keeps its ID and receives the error toast.
func (m *Manager) Login(ctx context.Context, current *Session, email, password string) (*Session, error) {
	if err := current.Wait(ctx); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	next := newSession(id, sessions.Scoped(m.repo, id), m.client, m.nowTime, m.checkTimeout)
	if err := next.Login(ctx, email, password); err != nil {
		for _, n := range next.TakeNotifications() {
			current.Notify(n.Level, n.Message)
		}
		return nil, err
	}

	m.mu.Lock()
	delete(m.sessions, current.ID())
	m.sessions[id] = next
	m.mu.Unlock()

	current.abandon(ctx)
	log.Debug().Str("previous", current.ID()).Str("session", id).Msg("Session ID rotated on login")
	return next, nil
}

// Len returns the number of sessions held in memory
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle drops sessions unused for longer than the idle timeout. Stored credentials are kept,
// so a returning browser gets a fresh check.
func (m *Manager) EvictIdle() int {
	cutoff := m.nowTime().Add(-m.idleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run evicts idle sessions until ctx is done
func (m *Manager) Run(ctx context.Context) {
	interval := m.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictIdle(); n > 0 {
				log.Debug().Int("evicted", n).Int("remaining", m.Len()).Msg("Evicted idle console sessions")
			}
		}
	}
}
