// Package services contains the session and live-state synchronization layer:
// the session manager, the generic live query used for stats, activity, and
// challenges, and the stats writer.
package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/profilehub/internal/client/metrics"
	"github.com/dmitrijs2005/profilehub/internal/client/remote"
	"github.com/dmitrijs2005/profilehub/internal/logging"
)

// Remote table names.
const (
	tableProfiles   = "profiles"
	tableUserStats  = "user_stats"
	tableActivity   = "activity"
	tableChallenges = "challenges"
)

// reconcileFunc folds one change event into the current mirror value. When
// refetch is true the whole snapshot is re-fetched instead.
type reconcileFunc[T any] func(current T, ev remote.ChangeEvent) (next T, refetch bool)

// LiveQuery keeps a local mirror of a filtered remote table for one
// identity: one initial fetch, then a change subscription reconciled into
// the mirror. The mirror is never authoritative.
//
// Read-path failures are swallowed on purpose: a fetch or subscribe error
// logs a warning and leaves the mirror at its fallback value with a nil
// error, so consumers always have something to render.
//
// Bind re-activates the query for a new identity; the previous subscription
// is torn down first and completions belonging to it are discarded by a
// generation check, so no stale event can mutate state after teardown.
type LiveQuery[T any] struct {
	store remote.Store
	log   logging.Logger
	met   *metrics.Collector

	table      string
	idColumn   string
	extra      []remote.Filter
	order      *remote.Order
	limit      int
	eventTypes []remote.EventType

	snapshot  func([]remote.Row) T
	fallback  func() T
	reconcile reconcileFunc[T]

	mu       sync.Mutex
	gen      int
	identity string
	bindCtx  context.Context
	data     T
	loading  bool
	err      error
	sub      remote.Subscription
	closed   bool
}

// Snapshot returns the current mirror value, whether the initial fetch for
// the current binding is still in flight, and the (by design always nil on
// the read path) error.
func (q *LiveQuery[T]) Snapshot() (data T, loading bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.data, q.loading, q.err
}

// Bind re-activates the query for the given identity. An empty identity
// resets the mirror to its fallback value and establishes no subscription.
func (q *LiveQuery[T]) Bind(ctx context.Context, identity string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.gen++
	gen := q.gen
	if q.sub != nil {
		_ = q.sub.Unsubscribe()
		q.sub = nil
	}
	q.identity = identity
	q.bindCtx = ctx
	q.err = nil
	if identity == "" {
		q.data = q.fallback()
		q.loading = false
		q.mu.Unlock()
		return
	}
	q.loading = true
	q.mu.Unlock()

	data := q.fetch(ctx, identity)

	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		return
	}
	q.data = data
	q.loading = false
	q.mu.Unlock()

	sub, err := q.store.Subscribe(q.table,
		remote.Filter{Column: q.idColumn, Value: identity},
		q.eventTypes,
		func(ev remote.ChangeEvent) { q.handle(gen, ev) },
	)
	if err != nil {
		q.log.Warn(ctx, "live subscription not established", "table", q.table, "error", err)
		q.met.RecordReadErrorDropped(q.table)
		return
	}

	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		_ = sub.Unsubscribe()
		return
	}
	q.sub = sub
	q.mu.Unlock()
}

// Close tears the query down; no state updates happen afterwards.
func (q *LiveQuery[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if q.sub != nil {
		_ = q.sub.Unsubscribe()
		q.sub = nil
	}
}

func (q *LiveQuery[T]) fetch(ctx context.Context, identity string) T {
	filters := make([]remote.Filter, 0, len(q.extra)+1)
	filters = append(filters, remote.Filter{Column: q.idColumn, Value: identity})
	filters = append(filters, q.extra...)

	rows, err := q.store.Select(ctx, q.table, remote.Query{
		Filters: filters,
		Order:   q.order,
		Limit:   q.limit,
	})
	if err != nil {
		q.log.Warn(ctx, "query failed, falling back to default",
			"table", q.table, "error", err)
		q.met.RecordReadErrorDropped(q.table)
		return q.fallback()
	}
	return q.snapshot(rows)
}

func (q *LiveQuery[T]) handle(gen int, ev remote.ChangeEvent) {
	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		return
	}
	next, refetch := q.reconcile(q.data, ev)
	q.data = next
	ctx := q.bindCtx
	identity := q.identity
	q.mu.Unlock()

	q.met.RecordLiveEvent(q.table, string(ev.Type))

	if !refetch {
		return
	}
	q.met.RecordRefetch(q.table)
	data := q.fetch(ctx, identity)

	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		return
	}
	q.data = data
	q.mu.Unlock()
}
