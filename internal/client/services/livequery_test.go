package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/profilehub/internal/client/models"
	"github.com/dmitrijs2005/profilehub/internal/client/remote"
	"github.com/dmitrijs2005/profilehub/internal/logging"
)

// ---- helpers ----

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

// ---- fake store ----

// fakeStore implements remote.Store for unit tests, recording the last call
// arguments so assertions can inspect them.
type fakeStore struct {
	mu sync.Mutex

	selectRows []remote.Row
	selectErr  error
	// selectEmptyFirst makes the first N Select calls return no rows,
	// regardless of selectRows.
	selectEmptyFirst int
	selectCalls      int
	lastSelectTable  string
	lastQuery        remote.Query

	updateRow         remote.Row
	updateErr         error
	updateCalls       int
	lastUpdateTable   string
	lastUpdateSet     remote.Row
	lastUpdateFilters []remote.Filter

	subscribeErr error
	subs         []*fakeSub
}

type fakeSub struct {
	table        string
	filter       remote.Filter
	types        []remote.EventType
	fn           func(remote.ChangeEvent)
	unsubscribed bool
}

func (s *fakeSub) Unsubscribe() error {
	s.unsubscribed = true
	return nil
}

func (f *fakeStore) Select(ctx context.Context, table string, q remote.Query) ([]remote.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectCalls++
	f.lastSelectTable = table
	f.lastQuery = q
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	if f.selectCalls <= f.selectEmptyFirst {
		return nil, nil
	}
	rows := make([]remote.Row, len(f.selectRows))
	copy(rows, f.selectRows)
	return rows, nil
}

func (f *fakeStore) Update(ctx context.Context, table string, set remote.Row, filters []remote.Filter) (remote.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.lastUpdateTable = table
	f.lastUpdateSet = set
	f.lastUpdateFilters = filters
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateRow, nil
}

func (f *fakeStore) Subscribe(table string, filter remote.Filter, types []remote.EventType, fn func(remote.ChangeEvent)) (remote.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	sub := &fakeSub{table: table, filter: filter, types: types, fn: fn}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeStore) numSelectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selectCalls
}

// ---- TESTS ----

func TestLiveQuery_NoIdentity_DefaultAndNoSubscription(t *testing.T) {
	fs := &fakeStore{}
	q := NewStatsQuery(fs, testLogger(), nil)

	q.Bind(context.Background(), "")

	data, loading, err := q.Snapshot()
	require.Equal(t, models.UserStats{}, data)
	require.False(t, loading)
	require.NoError(t, err)
	require.Zero(t, fs.numSelectCalls())
	require.Empty(t, fs.subs)
}

func TestLiveQuery_Stats_FetchError_FallsBackToZeros(t *testing.T) {
	fs := &fakeStore{selectErr: remote.ErrUnavailable}
	q := NewStatsQuery(fs, testLogger(), nil)

	q.Bind(context.Background(), "u1")

	data, loading, err := q.Snapshot()
	require.Equal(t, models.UserStats{
		PortfolioViews: 0, Followers: 0, Rating: 0, LoyaltyPoints: 0, ProjectsCompleted: 0,
	}, data)
	require.False(t, loading)
	require.NoError(t, err, "read-path errors are swallowed by design")
}

func TestLiveQuery_Stats_EventReplacesWholesale(t *testing.T) {
	fs := &fakeStore{selectRows: []remote.Row{{"user_id": "u1", "followers": 1, "rating": 3.5}}}
	q := NewStatsQuery(fs, testLogger(), nil)

	q.Bind(context.Background(), "u1")
	require.Len(t, fs.subs, 1)
	require.Equal(t, "user_stats", fs.subs[0].table)
	require.Equal(t, remote.Filter{Column: "user_id", Value: "u1"}, fs.subs[0].filter)

	// The event row carries only some fields; the rest fill with zero,
	// same as the initial fetch.
	fs.subs[0].fn(remote.ChangeEvent{Type: remote.EventUpdate, Row: remote.Row{"followers": 42}})

	data, _, _ := q.Snapshot()
	require.Equal(t, 42, data.Followers)
	require.Equal(t, float64(0), data.Rating)
}

func TestLiveQuery_Activity_InsertPrependsAndEvicts(t *testing.T) {
	// 10 existing items, newest first.
	rows := make([]remote.Row, 0, 10)
	for i := 9; i >= 0; i-- {
		rows = append(rows, remote.Row{
			"id":      string(rune('a' + i)),
			"user_id": "u1",
			"action":  "existing",
		})
	}
	fs := &fakeStore{selectRows: rows}
	q := NewActivityQuery(fs, testLogger(), nil, 10)

	q.Bind(context.Background(), "u1")
	data, _, _ := q.Snapshot()
	require.Len(t, data, 10)

	require.Len(t, fs.subs, 1)
	require.Equal(t, []remote.EventType{remote.EventInsert}, fs.subs[0].types)

	fs.subs[0].fn(remote.ChangeEvent{Type: remote.EventInsert, Row: remote.Row{
		"id": "new", "user_id": "u1", "action": "fresh",
	}})

	data, _, _ = q.Snapshot()
	require.Len(t, data, 10)
	require.Equal(t, "new", data[0].ID)
	for _, a := range data {
		require.NotEqual(t, "a", a.ID, "oldest item must be evicted")
	}
}

func TestLiveQuery_Challenges_AnyEventTriggersOneRefetch(t *testing.T) {
	fs := &fakeStore{selectRows: []remote.Row{
		{"id": "c1", "user_id": "u1", "status": "active"},
	}}
	q := NewChallengesQuery(fs, testLogger(), nil, 3)

	q.Bind(context.Background(), "u1")
	require.Equal(t, 1, fs.numSelectCalls())

	// The query carries the secondary filter and the cap.
	fs.mu.Lock()
	require.Equal(t, 3, fs.lastQuery.Limit)
	require.Contains(t, fs.lastQuery.Filters, remote.Filter{Column: "status", Value: "active"})
	fs.mu.Unlock()

	fs.subs[0].fn(remote.ChangeEvent{Type: remote.EventDelete, Row: remote.Row{"id": "c1"}})
	require.Equal(t, 2, fs.numSelectCalls())

	fs.subs[0].fn(remote.ChangeEvent{Type: remote.EventInsert, Row: remote.Row{"id": "c2"}})
	require.Equal(t, 3, fs.numSelectCalls())
}

func TestLiveQuery_Rebind_TearsDownOldSubscription(t *testing.T) {
	fs := &fakeStore{selectRows: []remote.Row{{"followers": 1}}}
	q := NewStatsQuery(fs, testLogger(), nil)

	q.Bind(context.Background(), "u1")
	old := fs.subs[0]

	q.Bind(context.Background(), "u2")
	require.True(t, old.unsubscribed)

	// A straggler event from the old subscription must not mutate state.
	old.fn(remote.ChangeEvent{Type: remote.EventUpdate, Row: remote.Row{"followers": 99}})
	data, _, _ := q.Snapshot()
	require.Equal(t, 1, data.Followers)
}

func TestLiveQuery_RebindToAnonymous_StopsStaleEvents(t *testing.T) {
	fs := &fakeStore{selectRows: []remote.Row{{"id": "x", "user_id": "u1"}}}
	q := NewActivityQuery(fs, testLogger(), nil, 10)

	q.Bind(context.Background(), "u1")
	old := fs.subs[0]

	q.Bind(context.Background(), "")
	require.True(t, old.unsubscribed)

	old.fn(remote.ChangeEvent{Type: remote.EventInsert, Row: remote.Row{"id": "late"}})
	data, loading, _ := q.Snapshot()
	require.Empty(t, data)
	require.False(t, loading)
}

func TestLiveQuery_Close_StopsUpdates(t *testing.T) {
	fs := &fakeStore{selectRows: []remote.Row{{"followers": 1}}}
	q := NewStatsQuery(fs, testLogger(), nil)

	q.Bind(context.Background(), "u1")
	sub := fs.subs[0]
	q.Close()
	require.True(t, sub.unsubscribed)

	sub.fn(remote.ChangeEvent{Type: remote.EventUpdate, Row: remote.Row{"followers": 99}})
	data, _, _ := q.Snapshot()
	require.Equal(t, 1, data.Followers)
}

func TestLiveQuery_SubscribeError_Swallowed(t *testing.T) {
	fs := &fakeStore{
		selectRows:   []remote.Row{{"followers": 7}},
		subscribeErr: remote.ErrUnavailable,
	}
	q := NewStatsQuery(fs, testLogger(), nil)

	q.Bind(context.Background(), "u1")

	data, loading, err := q.Snapshot()
	require.Equal(t, 7, data.Followers)
	require.False(t, loading)
	require.NoError(t, err)
}

type fakeUsers struct {
	u *models.AppUser
}

func (f *fakeUsers) CurrentUser() *models.AppUser { return f.u }

func TestLiveQuery_RoundTrip_WriteThenEvent(t *testing.T) {
	r := remote.NewInMemoryRemote()
	id := r.SeedUser("a@b.c", "pw", "Alice", "creator")

	q := NewStatsQuery(r, testLogger(), nil)
	q.Bind(context.Background(), id)
	defer q.Close()

	users := &fakeUsers{u: &models.AppUser{Profile: models.Profile{ID: id}}}
	w := NewStatsWriter(r, users, testLogger(), nil)

	f := 42
	confirmed, err := w.Update(context.Background(), models.UserStatsPatch{Followers: &f})
	require.NoError(t, err)
	require.Equal(t, 42, confirmed.Followers)

	// The change event must leave the mirror at the confirmed value,
	// never the pre-update one.
	waitFor(t, func() bool {
		data, _, _ := q.Snapshot()
		return data.Followers == 42
	})
}
