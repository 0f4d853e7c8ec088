package services

import (
	"github.com/dmitrijs2005/profilehub/internal/client/metrics"
	"github.com/dmitrijs2005/profilehub/internal/client/models"
	"github.com/dmitrijs2005/profilehub/internal/client/remote"
	"github.com/dmitrijs2005/profilehub/internal/logging"
)

// DefaultActivityLimit caps the activity feed mirror.
const DefaultActivityLimit = 10

// NewActivityQuery mirrors the identity's recent activity, newest first.
// The feed is append-only from this client's point of view: only insert
// events are handled, each prepended with the oldest item evicted past the
// cap. Updates and deletes to old items are intentionally ignored.
func NewActivityQuery(store remote.Store, log logging.Logger, met *metrics.Collector, limit int) *LiveQuery[[]models.Activity] {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	return &LiveQuery[[]models.Activity]{
		store:      store,
		log:        log,
		met:        met,
		table:      tableActivity,
		idColumn:   "user_id",
		order:      &remote.Order{Column: "created_at", Descending: true},
		limit:      limit,
		eventTypes: []remote.EventType{remote.EventInsert},
		snapshot: func(rows []remote.Row) []models.Activity {
			out := make([]models.Activity, 0, len(rows))
			for _, row := range rows {
				out = append(out, models.ActivityFromRow(row))
			}
			return out
		},
		fallback: func() []models.Activity { return []models.Activity{} },
		reconcile: func(cur []models.Activity, ev remote.ChangeEvent) ([]models.Activity, bool) {
			next := make([]models.Activity, 0, len(cur)+1)
			next = append(next, models.ActivityFromRow(ev.Row))
			next = append(next, cur...)
			if len(next) > limit {
				next = next[:limit]
			}
			return next, false
		},
	}
}
