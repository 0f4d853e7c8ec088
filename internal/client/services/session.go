package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/profilehub/internal/client/metrics"
	"github.com/dmitrijs2005/profilehub/internal/client/models"
	"github.com/dmitrijs2005/profilehub/internal/client/remote"
	"github.com/dmitrijs2005/profilehub/internal/logging"
)

// SessionState is the session manager's position in its lifecycle.
type SessionState int

const (
	StateInitializing SessionState = iota
	StateAnonymous
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// SessionManager owns the current identity: it is the single source of truth
// for "who is logged in".
//
// State machine: Initializing → {Authenticated, Anonymous}.
//   - Start launches the session restore and the auth-event consumer. Both
//     race; each checks the liveness flag before applying state and the last
//     completion wins. That is a deliberate best-effort reconciliation.
//   - Sign-in completions and token refreshes resolve the profile and move
//     to Authenticated. Any profile resolution failure moves to Anonymous —
//     a stale Authenticated identity is never left behind.
//   - Sign-out and refresh failure force-clear the remote session (best
//     effort, errors swallowed) and move to Anonymous.
type SessionManager struct {
	auth  remote.Auth
	store remote.Store
	log   logging.Logger
	met   *metrics.Collector

	// ProfilePollAttempts and ProfilePollInterval bound how long SignUp
	// waits for the server-side trigger to materialize the profile row.
	ProfilePollAttempts int
	ProfilePollInterval time.Duration

	mu        sync.RWMutex
	state     SessionState
	user      *models.AppUser
	loading   bool
	alive     bool
	watchers  map[int]chan *models.AppUser
	nextWatch int
}

func NewSessionManager(auth remote.Auth, store remote.Store, log logging.Logger, met *metrics.Collector) *SessionManager {
	return &SessionManager{
		auth:                auth,
		store:               store,
		log:                 log,
		met:                 met,
		ProfilePollAttempts: 10,
		ProfilePollInterval: 200 * time.Millisecond,
		state:               StateInitializing,
		loading:             true,
		alive:               true,
		watchers:            make(map[int]chan *models.AppUser),
	}
}

// Start launches the restore routine and the auth-event consumer.
func (m *SessionManager) Start(ctx context.Context) {
	go m.consumeEvents(ctx)
	go m.restore(ctx)
}

// Close marks the manager dead: no asynchronous completion mutates state
// afterwards, and all watcher channels are closed.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.alive {
		return
	}
	m.alive = false
	for id, ch := range m.watchers {
		close(ch)
		delete(m.watchers, id)
	}
}

// CurrentUser returns the current identity, or nil when anonymous or still
// initializing.
func (m *SessionManager) CurrentUser() *models.AppUser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *SessionManager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Watch registers an identity watcher. The channel immediately carries the
// current identity snapshot, then one entry per transition; when the
// consumer lags only the most recent snapshot is kept. The returned func
// cancels the watch.
func (m *SessionManager) Watch() (<-chan *models.AppUser, func()) {
	m.mu.Lock()
	id := m.nextWatch
	m.nextWatch++
	ch := make(chan *models.AppUser, 1)
	ch <- m.user
	m.watchers[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(c)
		}
	}
	return ch, cancel
}

// SignIn delegates to the remote auth endpoint. Failures are returned to the
// caller and change no local state; a remotely successful sign-in reaches
// the manager through the auth event stream.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) error {
	m.setLoading(true)
	defer m.setLoading(false)

	if _, err := m.auth.SignInWithPassword(ctx, email, password); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	return nil
}

// SignUp creates the account and then waits, bounded, for the server-side
// trigger to materialize the profile row. The wait is a weak guarantee: when
// the row never shows up a warning is logged and SignUp still succeeds,
// since the account itself exists.
func (m *SessionManager) SignUp(ctx context.Context, in remote.SignUpInput) error {
	m.setLoading(true)
	defer m.setLoading(false)

	sess, err := m.auth.SignUp(ctx, in)
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}

	m.waitForProfile(ctx, sess.UserID)
	return nil
}

func (m *SessionManager) waitForProfile(ctx context.Context, userID string) {
	for i := 0; i < m.ProfilePollAttempts; i++ {
		rows, err := m.store.Select(ctx, tableProfiles, remote.Query{
			Filters: []remote.Filter{{Column: "id", Value: userID}},
			Limit:   1,
		})
		if err == nil && len(rows) > 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.ProfilePollInterval):
		}
	}
	m.log.Warn(ctx, "profile row not visible after sign-up", "user_id", userID)
}

// SignOut delegates to the remote auth endpoint and unconditionally clears
// the local identity, whatever the remote outcome.
func (m *SessionManager) SignOut(ctx context.Context) error {
	err := m.auth.SignOut(ctx)
	if err != nil {
		m.log.Warn(ctx, "remote sign-out failed", "error", err)
	}
	m.apply(StateAnonymous, nil)
	return err
}

// UpdateUser applies a partial profile update scoped to the current
// identity, then re-resolves the profile from the store — the submitted
// patch is never trusted as the new truth. No-op without an identity.
func (m *SessionManager) UpdateUser(ctx context.Context, patch models.ProfilePatch) error {
	m.mu.RLock()
	user := m.user
	m.mu.RUnlock()
	if user == nil {
		return nil
	}

	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}

	if _, err := m.store.Update(ctx, tableProfiles, fields,
		[]remote.Filter{{Column: "id", Value: user.ID}}); err != nil {
		return fmt.Errorf("profile update: %w", err)
	}

	sess := &remote.Session{UserID: user.ID, Email: user.Email}
	if fresh := m.resolveProfile(ctx, sess); fresh != nil {
		m.apply(StateAuthenticated, fresh)
	}
	return nil
}

// SwitchRole toggles role and account_type between creator and member as a
// coupled pair.
func (m *SessionManager) SwitchRole(ctx context.Context) error {
	m.mu.RLock()
	user := m.user
	m.mu.RUnlock()
	if user == nil {
		return nil
	}

	at, role := models.AccountTypeCreator, models.RoleCreator
	if user.AccountType == models.AccountTypeCreator {
		at, role = models.AccountTypeMember, models.RoleMember
	}
	return m.UpdateUser(ctx, models.ProfilePatch{AccountType: &at, Role: &role})
}

func (m *SessionManager) restore(ctx context.Context) {
	sess, err := m.auth.GetSession(ctx)
	if err != nil {
		m.log.Warn(ctx, "session restore failed", "error", err)
		m.apply(StateAnonymous, nil)
		return
	}
	if sess == nil {
		m.apply(StateAnonymous, nil)
		return
	}
	if user := m.resolveProfile(ctx, sess); user != nil {
		m.apply(StateAuthenticated, user)
		return
	}
	m.apply(StateAnonymous, nil)
}

func (m *SessionManager) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-m.auth.Events():
			if !ok {
				return
			}
			switch ev.Type {
			case remote.AuthSignedIn, remote.AuthTokenRefreshed:
				if user := m.resolveProfile(ctx, ev.Session); user != nil {
					m.apply(StateAuthenticated, user)
				} else {
					m.apply(StateAnonymous, nil)
				}
			case remote.AuthSignedOut:
				m.apply(StateAnonymous, nil)
			case remote.AuthRefreshFailed:
				// Force-clear the remote session; failures here are
				// swallowed, the user just returns to anonymous.
				if err := m.auth.SignOut(ctx); err != nil {
					m.log.Debug(ctx, "forced sign-out failed", "error", err)
				}
				m.apply(StateAnonymous, nil)
			}
		}
	}
}

// resolveProfile loads the profile row for the session identity. Any error,
// including an absent row, resolves to nil: the caller falls back to
// Anonymous rather than keeping a stale identity.
func (m *SessionManager) resolveProfile(ctx context.Context, sess *remote.Session) *models.AppUser {
	if sess == nil {
		return nil
	}
	rows, err := m.store.Select(ctx, tableProfiles, remote.Query{
		Filters: []remote.Filter{{Column: "id", Value: sess.UserID}},
		Limit:   1,
	})
	if err != nil {
		m.log.Warn(ctx, "profile resolution failed", "user_id", sess.UserID, "error", err)
		return nil
	}
	if len(rows) == 0 {
		m.log.Warn(ctx, "no profile row for session", "user_id", sess.UserID)
		return nil
	}
	return &models.AppUser{Profile: models.ProfileFromRow(rows[0]), Email: sess.Email}
}

// apply commits a state transition if the manager is still alive and fans
// the new identity out to watchers.
func (m *SessionManager) apply(state SessionState, user *models.AppUser) {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	m.state = state
	m.user = user
	m.loading = false
	for _, ch := range m.watchers {
		// Keep only the latest snapshot for lagging watchers.
		select {
		case ch <- user:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- user:
			default:
			}
		}
	}
	m.mu.Unlock()

	m.met.RecordSessionTransition(state.String())
}

func (m *SessionManager) setLoading(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alive {
		m.loading = v
	}
}
