package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/profilehub/internal/client/models"
	"github.com/dmitrijs2005/profilehub/internal/client/remote"
)

// fakeAuth implements remote.Auth with scripted results and a test-driven
// event stream.
type fakeAuth struct {
	mu sync.Mutex

	events chan remote.AuthEvent

	session    *remote.Session
	sessionErr error

	signInSession *remote.Session
	signInErr     error
	lastEmail     string

	signUpSession *remote.Session
	signUpErr     error
	lastSignUp    remote.SignUpInput

	signOutErr   error
	signOutCalls int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{events: make(chan remote.AuthEvent, 8)}
}

func (f *fakeAuth) GetSession(ctx context.Context) (*remote.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.sessionErr
}

func (f *fakeAuth) Events() <-chan remote.AuthEvent { return f.events }

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*remote.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastEmail = email
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.signInSession, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, in remote.SignUpInput) (*remote.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSignUp = in
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return f.signUpSession, nil
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	return f.signOutErr
}

func (f *fakeAuth) numSignOutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}

func profileRow(id string) remote.Row {
	return remote.Row{
		"id": id, "name": "Alice", "tier": "free",
		"account_type": "creator", "role": "creator",
	}
}

func newTestManager(t *testing.T, auth *fakeAuth, store *fakeStore) *SessionManager {
	t.Helper()
	m := NewSessionManager(auth, store, testLogger(), nil)
	m.ProfilePollAttempts = 3
	m.ProfilePollInterval = 10 * time.Millisecond
	t.Cleanup(m.Close)
	return m
}

func TestSessionManager_Restore_NoSession_Anonymous(t *testing.T) {
	m := newTestManager(t, newFakeAuth(), &fakeStore{})
	require.Equal(t, StateInitializing, m.State())
	require.True(t, m.Loading())

	m.Start(context.Background())

	waitFor(t, func() bool { return m.State() == StateAnonymous })
	require.Nil(t, m.CurrentUser())
	require.False(t, m.Loading())
}

func TestSessionManager_Restore_WithSession_Authenticated(t *testing.T) {
	fa := newFakeAuth()
	fa.session = &remote.Session{UserID: "u1", Email: "a@b.c"}
	m := newTestManager(t, fa, &fakeStore{selectRows: []remote.Row{profileRow("u1")}})

	m.Start(context.Background())

	waitFor(t, func() bool { return m.State() == StateAuthenticated })
	u := m.CurrentUser()
	require.NotNil(t, u)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, "a@b.c", u.Email)
	require.Equal(t, models.AccountTypeCreator, u.AccountType)
}

func TestSessionManager_Restore_Error_Anonymous(t *testing.T) {
	fa := newFakeAuth()
	fa.sessionErr = remote.ErrUnavailable
	m := newTestManager(t, fa, &fakeStore{})

	m.Start(context.Background())

	waitFor(t, func() bool { return m.State() == StateAnonymous })
	require.Nil(t, m.CurrentUser())
}

func TestSessionManager_Restore_NoProfileRow_Anonymous(t *testing.T) {
	fa := newFakeAuth()
	fa.session = &remote.Session{UserID: "ghost", Email: "g@b.c"}
	m := newTestManager(t, fa, &fakeStore{})

	m.Start(context.Background())

	waitFor(t, func() bool { return m.State() == StateAnonymous })
	require.Nil(t, m.CurrentUser())
}

func TestSessionManager_SignedInEvent_ResolvesProfile(t *testing.T) {
	fa := newFakeAuth()
	m := newTestManager(t, fa, &fakeStore{selectRows: []remote.Row{profileRow("u1")}})
	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAnonymous })

	fa.events <- remote.AuthEvent{
		Type:    remote.AuthSignedIn,
		Session: &remote.Session{UserID: "u1", Email: "a@b.c"},
	}

	waitFor(t, func() bool { return m.State() == StateAuthenticated })
	require.Equal(t, "u1", m.CurrentUser().ID)
}

func TestSessionManager_SignedOutEvent_ClearsIdentity(t *testing.T) {
	fa := newFakeAuth()
	fa.session = &remote.Session{UserID: "u1", Email: "a@b.c"}
	m := newTestManager(t, fa, &fakeStore{selectRows: []remote.Row{profileRow("u1")}})
	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAuthenticated })

	fa.events <- remote.AuthEvent{Type: remote.AuthSignedOut}

	waitFor(t, func() bool { return m.State() == StateAnonymous })
	require.Nil(t, m.CurrentUser())
}

func TestSessionManager_RefreshFailed_ForcesSignOut(t *testing.T) {
	fa := newFakeAuth()
	fa.session = &remote.Session{UserID: "u1", Email: "a@b.c"}
	m := newTestManager(t, fa, &fakeStore{selectRows: []remote.Row{profileRow("u1")}})
	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAuthenticated })

	fa.events <- remote.AuthEvent{Type: remote.AuthRefreshFailed}

	waitFor(t, func() bool { return m.State() == StateAnonymous })
	require.Equal(t, 1, fa.numSignOutCalls())
	require.Nil(t, m.CurrentUser())
}

func TestSessionManager_SignIn_ErrorSurfaced(t *testing.T) {
	fa := newFakeAuth()
	fa.signInErr = errors.New("invalid login credentials")
	m := newTestManager(t, fa, &fakeStore{})
	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAnonymous })

	err := m.SignIn(context.Background(), "a@b.c", "wrong")
	require.ErrorContains(t, err, "invalid login credentials")
	require.Equal(t, StateAnonymous, m.State())
	require.False(t, m.Loading())
}

func TestSessionManager_SignOut_RemoteError_StillClears(t *testing.T) {
	fa := newFakeAuth()
	fa.session = &remote.Session{UserID: "u1", Email: "a@b.c"}
	fa.signOutErr = remote.ErrUnavailable
	m := newTestManager(t, fa, &fakeStore{selectRows: []remote.Row{profileRow("u1")}})
	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAuthenticated })

	err := m.SignOut(context.Background())
	require.ErrorIs(t, err, remote.ErrUnavailable)
	require.Equal(t, StateAnonymous, m.State())
	require.Nil(t, m.CurrentUser())
}

func TestSessionManager_SignUp_WaitsForProfileRow(t *testing.T) {
	fa := newFakeAuth()
	fa.signUpSession = &remote.Session{UserID: "u1", Email: "new@b.c"}
	// The trigger-created row only becomes visible on the second poll.
	fs := &fakeStore{selectRows: []remote.Row{profileRow("u1")}, selectEmptyFirst: 1}
	m := newTestManager(t, fa, fs)

	err := m.SignUp(context.Background(), remote.SignUpInput{
		Email: "new@b.c", Password: "pw", Name: "Alice", AccountType: "creator",
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, fs.numSelectCalls(), 2)
	require.Equal(t, "new@b.c", fa.lastSignUp.Email)
}

func TestSessionManager_SignUp_ProfileNeverAppears_StillSucceeds(t *testing.T) {
	fa := newFakeAuth()
	fa.signUpSession = &remote.Session{UserID: "u1", Email: "new@b.c"}
	fs := &fakeStore{selectEmptyFirst: 1 << 30}
	m := newTestManager(t, fa, fs)

	err := m.SignUp(context.Background(), remote.SignUpInput{Email: "new@b.c", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, m.ProfilePollAttempts, fs.numSelectCalls())
}

func TestSessionManager_UpdateUser_NoIdentity_NoOp(t *testing.T) {
	fs := &fakeStore{}
	m := newTestManager(t, newFakeAuth(), fs)
	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAnonymous })

	name := "Bob"
	require.NoError(t, m.UpdateUser(context.Background(), models.ProfilePatch{Name: &name}))
	require.Zero(t, fs.updateCalls)
}

func TestSessionManager_UpdateUser_EmptyPatch_NoOp(t *testing.T) {
	fa := newFakeAuth()
	fa.session = &remote.Session{UserID: "u1", Email: "a@b.c"}
	fs := &fakeStore{selectRows: []remote.Row{profileRow("u1")}}
	m := newTestManager(t, fa, fs)
	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAuthenticated })

	require.NoError(t, m.UpdateUser(context.Background(), models.ProfilePatch{}))
	require.Zero(t, fs.updateCalls)
}

func TestSessionManager_UpdateUser_RefetchesFromStore(t *testing.T) {
	fa := newFakeAuth()
	fa.session = &remote.Session{UserID: "u1", Email: "a@b.c"}
	fs := &fakeStore{selectRows: []remote.Row{profileRow("u1")}}
	m := newTestManager(t, fa, fs)
	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAuthenticated })

	// The store is the truth: the re-fetched row, not the submitted patch,
	// becomes the new identity.
	fs.mu.Lock()
	fresh := profileRow("u1")
	fresh["name"] = "Renamed By Server"
	fs.selectRows = []remote.Row{fresh}
	fs.mu.Unlock()

	name := "Bob"
	require.NoError(t, m.UpdateUser(context.Background(), models.ProfilePatch{Name: &name}))

	fs.mu.Lock()
	require.Equal(t, remote.Row{"name": "Bob"}, fs.lastUpdateSet)
	require.Equal(t, []remote.Filter{{Column: "id", Value: "u1"}}, fs.lastUpdateFilters)
	fs.mu.Unlock()
	require.Equal(t, "Renamed By Server", m.CurrentUser().Name)
}

func TestSessionManager_SwitchRole_TogglesPair(t *testing.T) {
	fa := newFakeAuth()
	fa.session = &remote.Session{UserID: "u1", Email: "a@b.c"}
	fs := &fakeStore{selectRows: []remote.Row{profileRow("u1")}}
	m := newTestManager(t, fa, fs)
	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAuthenticated })

	require.NoError(t, m.SwitchRole(context.Background()))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Equal(t, remote.Row{"account_type": "member", "role": "member"}, fs.lastUpdateSet)
}

func TestSessionManager_Watch_DeliversTransitions(t *testing.T) {
	fa := newFakeAuth()
	m := newTestManager(t, fa, &fakeStore{selectRows: []remote.Row{profileRow("u1")}})

	ch, cancel := m.Watch()
	defer cancel()

	// Initial snapshot: nobody signed in yet.
	first := <-ch
	require.Nil(t, first)

	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAnonymous })
	u := <-ch
	require.Nil(t, u)

	fa.events <- remote.AuthEvent{
		Type:    remote.AuthSignedIn,
		Session: &remote.Session{UserID: "u1", Email: "a@b.c"},
	}
	u = <-ch
	require.NotNil(t, u)
	require.Equal(t, "u1", u.ID)
}

func TestSessionManager_Watch_CancelStopsDelivery(t *testing.T) {
	fa := newFakeAuth()
	m := newTestManager(t, fa, &fakeStore{})

	ch, cancel := m.Watch()
	<-ch
	cancel()

	_, open := <-ch
	require.False(t, open)
}

func TestSessionManager_CloseStopsAsyncCompletions(t *testing.T) {
	fa := newFakeAuth()
	fa.session = &remote.Session{UserID: "u1", Email: "a@b.c"}
	m := NewSessionManager(fa, &fakeStore{selectRows: []remote.Row{profileRow("u1")}}, testLogger(), nil)
	m.Close()
	m.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, StateInitializing, m.State())
	require.Nil(t, m.CurrentUser())
}

func TestSessionManager_EndToEnd_InMemory(t *testing.T) {
	r := remote.NewInMemoryRemote()
	r.SeedUser("a@b.c", "pw", "Alice", "creator")

	m := NewSessionManager(r, r, testLogger(), nil)
	m.ProfilePollInterval = 10 * time.Millisecond
	t.Cleanup(m.Close)
	m.Start(context.Background())
	waitFor(t, func() bool { return m.State() == StateAnonymous })

	require.NoError(t, m.SignIn(context.Background(), "a@b.c", "pw"))
	waitFor(t, func() bool { return m.State() == StateAuthenticated })
	require.Equal(t, "a@b.c", m.CurrentUser().Email)

	require.NoError(t, m.SignOut(context.Background()))
	waitFor(t, func() bool { return m.CurrentUser() == nil })
	require.Equal(t, StateAnonymous, m.State())
}
