package remote

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRemote is a Store+Auth implementation backed by in-process maps.
// It powers the CLI's demo mode and the service-layer tests, including the
// server-side behaviors this client depends on but does not own: the
// sign-up trigger that materializes the profile and stats rows, and change
// events fanned out to matching subscriptions.
type InMemoryRemote struct {
	mu      sync.Mutex
	users   map[string]*memUser
	tables  map[string][]Row
	subs    map[int]*memSub
	nextSub int
	session *Session
	closed  bool

	events chan AuthEvent

	// TriggerDelay postpones the sign-up trigger, reproducing the window in
	// which a fresh account has no profile row yet.
	TriggerDelay time.Duration
	// Restored, if set, is returned by the first GetSession call.
	Restored *Session
	// RestoreErr makes GetSession fail.
	RestoreErr error
	// SignOutErr is returned by SignOut after local state is cleared.
	SignOutErr error
}

type memUser struct {
	ID          string
	Email       string
	Password    string
	Name        string
	AccountType string
}

var (
	_ Store = (*InMemoryRemote)(nil)
	_ Auth  = (*InMemoryRemote)(nil)
)

func NewInMemoryRemote() *InMemoryRemote {
	return &InMemoryRemote{
		users:  make(map[string]*memUser),
		tables: make(map[string][]Row),
		subs:   make(map[int]*memSub),
		events: make(chan AuthEvent, 16),
	}
}

// --- Store ---

func (r *InMemoryRemote) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Row
	for _, row := range r.tables[table] {
		if rowMatches(row, q.Filters) {
			out = append(out, copyRow(row))
		}
	}

	if q.Order != nil {
		col, desc := q.Order.Column, q.Order.Descending
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return lessVal(out[j][col], out[i][col])
			}
			return lessVal(out[i][col], out[j][col])
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *InMemoryRemote) Update(ctx context.Context, table string, set Row, filters []Filter) (Row, error) {
	r.mu.Lock()

	var updated Row
	for _, row := range r.tables[table] {
		if rowMatches(row, filters) {
			for k, v := range set {
				row[k] = v
			}
			updated = copyRow(row)
			break
		}
	}
	r.mu.Unlock()

	if updated == nil {
		return nil, ErrNoRow
	}
	r.PublishChange(table, EventUpdate, updated)
	return updated, nil
}

func (r *InMemoryRemote) Subscribe(table string, filter Filter, types []EventType, fn func(ChangeEvent)) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++

	s := &memSub{
		table:  table,
		filter: filter,
		types:  types,
		ch:     make(chan ChangeEvent, 64),
	}
	s.remove = func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(s.ch)
		}
	}
	r.subs[id] = s

	go func() {
		for ev := range s.ch {
			func() {
				defer func() { _ = recover() }()
				fn(ev)
			}()
		}
	}()

	return s, nil
}

// PublishChange delivers a change event to every matching subscription.
// Exported so tests can simulate changes made by other clients or by
// server-side recomputation.
func (r *InMemoryRemote) PublishChange(table string, et EventType, row Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.table != table {
			continue
		}
		if !eventWanted(s.types, et) {
			continue
		}
		if !rowMatches(row, []Filter{s.filter}) {
			continue
		}
		select {
		case s.ch <- ChangeEvent{Type: et, Row: copyRow(row)}:
		default:
		}
	}
}

// Insert appends a row (generating an id when absent) and publishes an
// insert event.
func (r *InMemoryRemote) Insert(table string, row Row) Row {
	r.mu.Lock()
	stored := copyRow(row)
	if _, ok := stored["id"]; !ok {
		stored["id"] = uuid.NewString()
	}
	r.tables[table] = append(r.tables[table], stored)
	out := copyRow(stored)
	r.mu.Unlock()

	r.PublishChange(table, EventInsert, out)
	return out
}

// --- Auth ---

func (r *InMemoryRemote) Events() <-chan AuthEvent {
	return r.events
}

// EmitAuthEvent injects an event into the auth stream, e.g. a refresh
// failure that would normally come from the refresh timer.
func (r *InMemoryRemote) EmitAuthEvent(ev AuthEvent) {
	r.emit(ev)
}

func (r *InMemoryRemote) emit(ev AuthEvent) {
	select {
	case r.events <- ev:
	default:
	}
}

func (r *InMemoryRemote) GetSession(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RestoreErr != nil {
		return nil, r.RestoreErr
	}
	if r.session == nil && r.Restored != nil {
		r.session = r.Restored
	}
	if r.session == nil {
		return nil, nil
	}
	sess := *r.session
	return &sess, nil
}

func (r *InMemoryRemote) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	r.mu.Lock()
	u, ok := r.users[email]
	if !ok || u.Password != password {
		r.mu.Unlock()
		return nil, &RemoteError{Message: "invalid login credentials"}
	}
	sess := r.newSessionLocked(u)
	r.mu.Unlock()

	r.emit(AuthEvent{Type: AuthSignedIn, Session: sess})
	out := *sess
	return &out, nil
}

func (r *InMemoryRemote) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	r.mu.Lock()
	if _, ok := r.users[in.Email]; ok {
		r.mu.Unlock()
		return nil, &RemoteError{Message: "user already registered"}
	}
	u := &memUser{
		ID:          uuid.NewString(),
		Email:       in.Email,
		Password:    in.Password,
		Name:        in.Name,
		AccountType: in.AccountType,
	}
	r.users[in.Email] = u
	sess := r.newSessionLocked(u)
	delay := r.TriggerDelay
	r.mu.Unlock()

	// The profile/stats rows are created by a server-side trigger, not by
	// the sign-up call itself.
	if delay > 0 {
		time.AfterFunc(delay, func() { r.runProvisionTrigger(u) })
	} else {
		r.runProvisionTrigger(u)
	}

	r.emit(AuthEvent{Type: AuthSignedIn, Session: sess})
	out := *sess
	return &out, nil
}

func (r *InMemoryRemote) SignOut(ctx context.Context) error {
	r.mu.Lock()
	r.session = nil
	r.Restored = nil
	err := r.SignOutErr
	r.mu.Unlock()

	r.emit(AuthEvent{Type: AuthSignedOut})
	return err
}

// SeedUser registers a fully provisioned account and returns its id.
func (r *InMemoryRemote) SeedUser(email, password, name, accountType string) string {
	r.mu.Lock()
	u := &memUser{
		ID:          uuid.NewString(),
		Email:       email,
		Password:    password,
		Name:        name,
		AccountType: accountType,
	}
	r.users[email] = u
	r.mu.Unlock()

	r.runProvisionTrigger(u)
	return u.ID
}

func (r *InMemoryRemote) newSessionLocked(u *memUser) *Session {
	sess := &Session{
		UserID:       u.ID,
		Email:        u.Email,
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	r.session = sess
	return sess
}

func (r *InMemoryRemote) runProvisionTrigger(u *memUser) {
	accountType := u.AccountType
	if accountType == "" {
		accountType = "creator"
	}
	r.Insert("profiles", Row{
		"id":             u.ID,
		"name":           u.Name,
		"tier":           "free",
		"loyalty_points": 0,
		"account_type":   accountType,
		"role":           accountType,
		"is_verified":    false,
		"joined_date":    time.Now().UTC().Format(time.RFC3339),
	})
	r.Insert("user_stats", Row{
		"user_id":            u.ID,
		"portfolio_views":    0,
		"followers":          0,
		"rating":             0.0,
		"loyalty_points":     0,
		"projects_completed": 0,
	})
}

// --- helpers ---

type memSub struct {
	table  string
	filter Filter
	types  []EventType
	ch     chan ChangeEvent
	remove func()
}

func (s *memSub) Unsubscribe() error {
	s.remove()
	return nil
}

func rowMatches(row Row, filters []Filter) bool {
	for _, f := range filters {
		if !valEqual(row[f.Column], f.Value) {
			return false
		}
	}
	return true
}

func valEqual(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func lessVal(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, _ := toFloat(b)
		return af < bf
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return as < bs
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
