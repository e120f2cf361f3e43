package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/medix-console/access"
	"github.com/jrsteele09/medix-console/auth"
	"github.com/jrsteele09/medix-console/gateway"
	"github.com/jrsteele09/medix-console/internal/apitest"
	"github.com/jrsteele09/medix-console/internal/errors"
	"github.com/jrsteele09/medix-console/sessions"
	"github.com/jrsteele09/medix-console/users"
)

const (
	testSessionID = "b6b7e7a4-9c1e-4a4a-9f0b-3c8f8d0e2a11"
	adminEmail    = "ada.admin@medix.test"
	adminPassword = "correct-horse"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testFixture struct {
	api     *apitest.Server
	repo    *sessions.InMemoryRepo
	manager *auth.Manager
	clock   *clock
	admin   users.User
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		api:   apitest.New(t),
		repo:  sessions.NewInMemoryRepo(),
		clock: &clock{now: time.Now()},
	}
	f.admin = f.api.AddUser(adminEmail, adminPassword, users.RoleAdmin)
	f.manager = auth.New(f.repo, gateway.New(f.api.BaseURL()),
		auth.WithNowTime(f.clock.Now),
		auth.WithCheckTimeout(5*time.Second),
		auth.WithIdleTimeout(time.Minute),
	)
	return f
}

func (f *testFixture) storeTokens(t *testing.T, access, refresh string) {
	t.Helper()
	require.NoError(t, f.repo.Save(context.Background(), testSessionID, sessions.Pair{AccessToken: access, RefreshToken: refresh}))
}

func (f *testFixture) stored() sessions.TokenStore {
	return sessions.Scoped(f.repo, testSessionID)
}

// checkedSession returns the session once its initial check has finished
func (f *testFixture) checkedSession(t *testing.T) *auth.Session {
	t.Helper()
	s := f.manager.Session(context.Background(), testSessionID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	return s
}

func TestCheck_NoStoredToken(t *testing.T) {
	f := newFixture(t)
	s := f.checkedSession(t)

	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Nil(t, s.User())
	require.Zero(t, f.api.ProfileCalls.Load())
}

func TestCheck_ValidStoredToken(t *testing.T) {
	f := newFixture(t)
	f.storeTokens(t, f.api.MintAccess(f.admin.ID, time.Minute), f.api.MintRefresh(f.admin.ID))

	s := f.checkedSession(t)
	require.Equal(t, auth.StateAuthenticated, s.State())
	require.True(t, s.IsAuthenticated())
	require.Equal(t, adminEmail, s.User().Email)
	require.True(t, s.IsAdmin())
	require.Equal(t, access.Snapshot{Authenticated: true, Role: users.RoleAdmin}, s.Snapshot())
}

func TestCheck_ExpiredTokenSkipsNetwork(t *testing.T) {
	f := newFixture(t)
	f.storeTokens(t, f.api.MintAccess(f.admin.ID, -time.Second), f.api.MintRefresh(f.admin.ID))

	s := f.checkedSession(t)
	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Zero(t, f.api.ProfileCalls.Load())
	require.Zero(t, f.api.RefreshCalls.Load())
	require.Empty(t, f.stored().ReadAccess(context.Background()))
	require.Empty(t, f.stored().ReadRefresh(context.Background()))
}

func TestCheck_UndecodableToken(t *testing.T) {
	f := newFixture(t)
	f.storeTokens(t, "not-a-jwt", "also-not")

	s := f.checkedSession(t)
	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Zero(t, f.api.ProfileCalls.Load())
	require.Empty(t, f.stored().ReadAccess(context.Background()))
}

func TestCheck_ProfileRejected(t *testing.T) {
	f := newFixture(t)
	accessToken, refreshToken := f.api.MintAccess(f.admin.ID, time.Minute), f.api.MintRefresh(f.admin.ID)
	f.api.Revoke(accessToken)
	f.api.Revoke(refreshToken)
	f.storeTokens(t, accessToken, refreshToken)

	s := f.checkedSession(t)
	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Equal(t, int32(1), f.api.RefreshCalls.Load())
	require.Empty(t, f.stored().ReadAccess(context.Background()))
	require.Empty(t, f.stored().ReadRefresh(context.Background()))
}

func TestCheck_ProfileRecoversThroughRefresh(t *testing.T) {
	f := newFixture(t)
	accessToken := f.api.MintAccess(f.admin.ID, time.Minute)
	f.api.Revoke(accessToken)
	f.storeTokens(t, accessToken, f.api.MintRefresh(f.admin.ID))

	s := f.checkedSession(t)
	require.Equal(t, auth.StateAuthenticated, s.State())
	require.Equal(t, int32(1), f.api.RefreshCalls.Load())
	require.NotEqual(t, accessToken, f.stored().ReadAccess(context.Background()))
}

func TestCheck_LoadingWaitsInsteadOfRedirecting(t *testing.T) {
	f := newFixture(t)
	f.api.SetDelay(200 * time.Millisecond)
	f.storeTokens(t, f.api.MintAccess(f.admin.ID, time.Minute), f.api.MintRefresh(f.admin.ID))

	s := f.manager.Session(context.Background(), testSessionID)
	require.True(t, s.Loading())
	require.Equal(t, access.DecisionWait, access.Evaluate(s.Snapshot(), []users.Role{users.RoleAdmin}))
	require.Equal(t, access.DecisionWait, access.Evaluate(s.Snapshot(), nil))

	require.NoError(t, s.Wait(context.Background()))
	require.False(t, s.Loading())
	require.Equal(t, access.DecisionAllow, access.Evaluate(s.Snapshot(), []users.Role{users.RoleAdmin}))
}

func TestCheck_DiscardedByLogout(t *testing.T) {
	f := newFixture(t)
	f.api.SetDelay(200 * time.Millisecond)
	f.storeTokens(t, f.api.MintAccess(f.admin.ID, time.Minute), f.api.MintRefresh(f.admin.ID))

	s := f.manager.Session(context.Background(), testSessionID)
	require.True(t, s.Loading())
	require.NoError(t, s.Logout(context.Background()))

	require.NoError(t, s.Wait(context.Background()))
	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Nil(t, s.User())
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		f := newFixture(t)
		s := f.checkedSession(t)

		require.NoError(t, s.Login(context.Background(), adminEmail, adminPassword))
		require.Equal(t, auth.StateAuthenticated, s.State())
		require.Equal(t, f.admin.ID, s.User().ID)
		require.NotEmpty(t, f.stored().ReadAccess(context.Background()))
		require.NotEmpty(t, f.stored().ReadRefresh(context.Background()))
		require.Equal(t, []auth.Notification{{Level: auth.LevelSuccess, Message: "Login successful!"}}, s.TakeNotifications())
		require.Empty(t, s.TakeNotifications())
	})

	t.Run("bad credentials", func(t *testing.T) {
		f := newFixture(t)
		s := f.checkedSession(t)

		err := s.Login(context.Background(), "bad@x.com", "wrong")
		var loginErr *auth.LoginError
		require.True(t, errors.As(err, &loginErr))
		require.Equal(t, "No active account found with the given credentials", loginErr.Message)
		require.Equal(t, http.StatusUnauthorized, gateway.StatusCode(err))

		require.Equal(t, auth.StateUnauthenticated, s.State())
		require.Nil(t, s.User())
		require.Empty(t, f.stored().ReadAccess(context.Background()))
		require.Empty(t, f.stored().ReadRefresh(context.Background()))
		require.Zero(t, f.api.RefreshCalls.Load())

		notes := s.TakeNotifications()
		require.Len(t, notes, 1)
		require.Equal(t, auth.LevelError, notes[0].Level)
		require.Equal(t, loginErr.Message, notes[0].Message)
	})

	t.Run("profile failure leaves no tokens", func(t *testing.T) {
		f := newFixture(t)
		s := f.checkedSession(t)
		f.api.FailNext("/users/profile/", http.StatusInternalServerError)

		err := s.Login(context.Background(), adminEmail, adminPassword)
		var loginErr *auth.LoginError
		require.True(t, errors.As(err, &loginErr))
		require.Equal(t, auth.StateUnauthenticated, s.State())
		require.Empty(t, f.stored().ReadAccess(context.Background()))
		require.Empty(t, f.stored().ReadRefresh(context.Background()))
	})

	t.Run("unknown role is a profile failure", func(t *testing.T) {
		f := newFixture(t)
		f.api.AddUser("nell.nurse@medix.test", "pw", users.Role("NURSE"))
		s := f.checkedSession(t)

		err := s.Login(context.Background(), "nell.nurse@medix.test", "pw")
		var loginErr *auth.LoginError
		require.True(t, errors.As(err, &loginErr))
		require.Equal(t, "Login failed", loginErr.Message)
		require.Equal(t, auth.StateUnauthenticated, s.State())
		require.Nil(t, s.User())
		require.Empty(t, f.stored().ReadAccess(context.Background()))
	})

	t.Run("transport failure uses generic message", func(t *testing.T) {
		f := newFixture(t)
		s := f.checkedSession(t)
		f.api.Close()

		err := s.Login(context.Background(), adminEmail, adminPassword)
		var loginErr *auth.LoginError
		require.True(t, errors.As(err, &loginErr))
		require.Equal(t, "Login failed", loginErr.Message)
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	s := f.checkedSession(t)
	require.NoError(t, s.Login(context.Background(), adminEmail, adminPassword))
	s.TakeNotifications()

	require.NoError(t, s.Logout(context.Background()))
	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Nil(t, s.User())
	require.False(t, s.IsAdmin())
	require.Empty(t, f.stored().ReadAccess(context.Background()))
	require.Empty(t, f.stored().ReadRefresh(context.Background()))

	require.NoError(t, s.Logout(context.Background()))
	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Equal(t, []auth.Notification{
		{Level: auth.LevelSuccess, Message: "Logged out successfully"},
		{Level: auth.LevelSuccess, Message: "Logged out successfully"},
	}, s.TakeNotifications())
}

func TestRefreshFailureDropsUser(t *testing.T) {
	f := newFixture(t)
	s := f.checkedSession(t)
	require.NoError(t, s.Login(context.Background(), adminEmail, adminPassword))

	f.api.Revoke(f.stored().ReadAccess(context.Background()))
	f.api.Revoke(f.stored().ReadRefresh(context.Background()))

	_, err := s.API().Drugs.List(context.Background(), nil)
	require.True(t, errors.Is(err, errors.ErrSessionExpired))
	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Nil(t, s.User())
	require.Empty(t, f.stored().ReadAccess(context.Background()))
	require.Equal(t, access.DecisionLogin, access.Evaluate(s.Snapshot(), nil))
}

func TestReloadProfile(t *testing.T) {
	f := newFixture(t)
	s := f.checkedSession(t)
	require.ErrorIs(t, s.ReloadProfile(context.Background()), errors.ErrNotAuthenticated)

	require.NoError(t, s.Login(context.Background(), adminEmail, adminPassword))
	_, err := s.API().Auth.UpdateProfile(context.Background(), map[string]string{"first_name": "Augusta"})
	require.NoError(t, err)

	require.NoError(t, s.ReloadProfile(context.Background()))
	require.Equal(t, "Augusta", s.User().FirstName)
}

func TestRolePredicates(t *testing.T) {
	for _, role := range users.AllRoles {
		t.Run(role.String(), func(t *testing.T) {
			f := newFixture(t)
			email := "someone@medix.test"
			f.api.AddUser(email, "pw", role)
			s := f.checkedSession(t)
			require.False(t, s.IsAdmin() || s.IsPharmacist() || s.IsDoctor() || s.IsReceptionist() || s.IsPatient())

			require.NoError(t, s.Login(context.Background(), email, "pw"))
			require.Equal(t, role == users.RoleAdmin, s.IsAdmin())
			require.Equal(t, role == users.RolePharmacist, s.IsPharmacist())
			require.Equal(t, role == users.RoleDoctor, s.IsDoctor())
			require.Equal(t, role == users.RoleReceptionist, s.IsReceptionist())
			require.Equal(t, role == users.RolePatient, s.IsPatient())
		})
	}
}

func TestContext(t *testing.T) {
	require.Panics(t, func() { auth.FromContext(context.Background()) })

	f := newFixture(t)
	s := f.checkedSession(t)
	ctx := auth.WithSession(context.Background(), s)
	require.Same(t, s, auth.FromContext(ctx))
}

func TestManager_SessionsAndEviction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		pair := sessions.Pair{AccessToken: f.api.MintAccess(f.admin.ID, time.Hour), RefreshToken: f.api.MintRefresh(f.admin.ID)}
		require.NoError(t, f.repo.Save(ctx, id, pair))
	}

	a := f.manager.Session(ctx, "a")
	require.Same(t, a, f.manager.Session(ctx, "a"))
	f.manager.Session(ctx, "b")
	require.Equal(t, 2, f.manager.Len())

	f.clock.Advance(45 * time.Second)
	f.manager.Session(ctx, "b")
	f.clock.Advance(30 * time.Second)

	require.Equal(t, 1, f.manager.EvictIdle())
	require.Equal(t, 1, f.manager.Len())
	require.NotSame(t, a, f.manager.Session(ctx, "a"))
}

func TestManager_UnknownSessionsAreNotKept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		s := f.manager.Session(ctx, fmt.Sprintf("anonymous-%d", i))
		require.Equal(t, auth.StateUnauthenticated, s.State())
		require.NoError(t, s.Wait(ctx))
	}
	require.Zero(t, f.manager.Len())
	require.Zero(t, f.api.ProfileCalls.Load())
}

func TestManager_LoginRotatesSessionID(t *testing.T) {
	t.Run("anonymous session", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		before := f.checkedSession(t)

		next, err := f.manager.Login(ctx, before, adminEmail, adminPassword)
		require.NoError(t, err)
		require.NotEqual(t, testSessionID, next.ID())
		require.Equal(t, auth.StateAuthenticated, next.State())
		require.Equal(t, f.admin.ID, next.User().ID)
		require.Equal(t, []auth.Notification{{Level: auth.LevelSuccess, Message: "Login successful!"}}, next.TakeNotifications())

		require.Equal(t, 1, f.manager.Len())
		require.Same(t, next, f.manager.Session(ctx, next.ID()))
		require.NotEmpty(t, sessions.Scoped(f.repo, next.ID()).ReadRefresh(ctx))

		// the pre-login id carries nothing
		require.Equal(t, auth.StateUnauthenticated, before.State())
		require.Empty(t, f.stored().ReadAccess(ctx))
		stale := f.manager.Session(ctx, testSessionID)
		require.False(t, stale.IsAuthenticated())
		require.Equal(t, 1, f.manager.Len())
	})

	t.Run("authenticated session is retired", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.storeTokens(t, f.api.MintAccess(f.admin.ID, time.Minute), f.api.MintRefresh(f.admin.ID))
		before := f.checkedSession(t)
		require.True(t, before.IsAuthenticated())

		other := f.api.AddUser("doc.tor@medix.test", "pw", users.RoleDoctor)
		next, err := f.manager.Login(ctx, before, "doc.tor@medix.test", "pw")
		require.NoError(t, err)
		require.Equal(t, other.ID, next.User().ID)

		require.Nil(t, before.User())
		require.Equal(t, auth.StateUnauthenticated, before.State())
		require.Empty(t, f.stored().ReadAccess(ctx))
		require.Empty(t, f.stored().ReadRefresh(ctx))
		require.Equal(t, 1, f.manager.Len())
		require.NotSame(t, before, f.manager.Session(ctx, testSessionID))
	})

	t.Run("failure keeps the current id", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		before := f.checkedSession(t)

		next, err := f.manager.Login(ctx, before, adminEmail, "wrong")
		var loginErr *auth.LoginError
		require.True(t, errors.As(err, &loginErr))
		require.Nil(t, next)
		require.Zero(t, f.manager.Len())

		notes := before.TakeNotifications()
		require.Len(t, notes, 1)
		require.Equal(t, auth.LevelError, notes[0].Level)
	})
}

func TestRefreshFailureNotifiesExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.manager.Login(ctx, f.checkedSession(t), adminEmail, adminPassword)
	require.NoError(t, err)
	s.TakeNotifications()

	store := sessions.Scoped(f.repo, s.ID())
	f.api.Revoke(store.ReadAccess(ctx))
	f.api.Revoke(store.ReadRefresh(ctx))

	_, err = s.API().Drugs.List(ctx, nil)
	require.True(t, errors.Is(err, errors.ErrSessionExpired))
	require.Equal(t, []auth.Notification{{Level: auth.LevelInfo, Message: "Your session has expired. Please log in again."}}, s.TakeNotifications())
}

func TestLogoutDuringRefreshStaysLoggedOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.manager.Login(ctx, f.checkedSession(t), adminEmail, adminPassword)
	require.NoError(t, err)

	store := sessions.Scoped(f.repo, s.ID())
	f.api.Revoke(store.ReadAccess(ctx))
	release := f.api.HoldRefresh()
	t.Cleanup(release)

	done := make(chan error, 1)
	go func() {
		_, err := s.API().Drugs.List(ctx, nil)
		done <- err
	}()

	require.Eventually(t, func() bool { return f.api.RefreshCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Logout(ctx))
	release()

	err = <-done
	require.True(t, errors.Is(err, errors.ErrSessionExpired))
	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Empty(t, store.ReadAccess(ctx))
	require.Empty(t, store.ReadRefresh(ctx))
}
