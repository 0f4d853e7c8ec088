package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/profilehub/internal/client/metrics"
	"github.com/dmitrijs2005/profilehub/internal/client/models"
	"github.com/dmitrijs2005/profilehub/internal/client/remote"
	"github.com/dmitrijs2005/profilehub/internal/common"
	"github.com/dmitrijs2005/profilehub/internal/logging"
)

// NewStatsQuery mirrors the current identity's user_stats row. Every change
// event carries the full new row, so reconciliation replaces the mirror
// wholesale through the same zero-fill decoding as the initial fetch.
func NewStatsQuery(store remote.Store, log logging.Logger, met *metrics.Collector) *LiveQuery[models.UserStats] {
	return &LiveQuery[models.UserStats]{
		store:      store,
		log:        log,
		met:        met,
		table:      tableUserStats,
		idColumn:   "user_id",
		limit:      1,
		eventTypes: remote.AllEvents,
		snapshot: func(rows []remote.Row) models.UserStats {
			if len(rows) == 0 {
				return models.UserStats{}
			}
			return models.UserStatsFromRow(rows[0])
		},
		fallback: func() models.UserStats { return models.UserStats{} },
		reconcile: func(_ models.UserStats, ev remote.ChangeEvent) (models.UserStats, bool) {
			return models.UserStatsFromRow(ev.Row), false
		},
	}
}

// CurrentUserSource supplies the identity write operations are scoped to.
// *SessionManager satisfies it.
type CurrentUserSource interface {
	CurrentUser() *models.AppUser
}

// StatsWriter applies partial updates to the current identity's stats row.
//
// Unlike the read paths, write failures are always surfaced: a remote-
// reported rejection carries the remote message, anything else is wrapped
// with a best-effort description. On success the confirmed server row is
// returned; callers must treat it, not their input, as the new truth. The
// writer performs no range validation — that belongs to the consumer.
type StatsWriter struct {
	store remote.Store
	users CurrentUserSource
	log   logging.Logger
	met   *metrics.Collector
}

func NewStatsWriter(store remote.Store, users CurrentUserSource, log logging.Logger, met *metrics.Collector) *StatsWriter {
	return &StatsWriter{store: store, users: users, log: log, met: met}
}

// Update writes the set fields of patch and returns the confirmed row.
// Fails with common.ErrorUnauthorized when nobody is signed in.
func (w *StatsWriter) Update(ctx context.Context, patch models.UserStatsPatch) (models.UserStats, error) {
	u := w.users.CurrentUser()
	if u == nil {
		w.met.RecordStatsWrite("unauthenticated")
		return models.UserStats{}, common.ErrorUnauthorized
	}

	row, err := w.store.Update(ctx, tableUserStats, patch.Fields(),
		[]remote.Filter{{Column: "user_id", Value: u.ID}})
	if err != nil {
		var re *remote.RemoteError
		if errors.As(err, &re) {
			w.met.RecordStatsWrite("rejected")
			return models.UserStats{}, fmt.Errorf("stats update rejected: %w", re)
		}
		w.met.RecordStatsWrite("error")
		return models.UserStats{}, fmt.Errorf("stats update: %w", err)
	}

	w.met.RecordStatsWrite("ok")
	return models.UserStatsFromRow(row), nil
}
