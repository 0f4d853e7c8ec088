package services

import (
	"github.com/dmitrijs2005/profilehub/internal/client/metrics"
	"github.com/dmitrijs2005/profilehub/internal/client/models"
	"github.com/dmitrijs2005/profilehub/internal/client/remote"
	"github.com/dmitrijs2005/profilehub/internal/logging"
)

// DefaultChallengesLimit caps the active-challenges mirror.
const DefaultChallengesLimit = 3

// NewChallengesQuery mirrors the identity's active challenges. The result
// set is small and capped, so any change event simply triggers one full
// re-fetch — the simplest policy that keeps the status filter and cap
// correct without replaying per-event logic.
func NewChallengesQuery(store remote.Store, log logging.Logger, met *metrics.Collector, limit int) *LiveQuery[[]models.Challenge] {
	if limit <= 0 {
		limit = DefaultChallengesLimit
	}
	return &LiveQuery[[]models.Challenge]{
		store:    store,
		log:      log,
		met:      met,
		table:    tableChallenges,
		idColumn: "user_id",
		extra: []remote.Filter{
			{Column: "status", Value: string(models.ChallengeStatusActive)},
		},
		limit:      limit,
		eventTypes: remote.AllEvents,
		snapshot: func(rows []remote.Row) []models.Challenge {
			out := make([]models.Challenge, 0, len(rows))
			for _, row := range rows {
				out = append(out, models.ChallengeFromRow(row))
			}
			return out
		},
		fallback: func() []models.Challenge { return []models.Challenge{} },
		reconcile: func(cur []models.Challenge, _ remote.ChangeEvent) ([]models.Challenge, bool) {
			return cur, true
		},
	}
}
