package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/profilehub/internal/client/remote"
)

// seedDemoData fills the in-memory backend with enough rows for every REPL
// command to show something.
func seedDemoData(r *remote.InMemoryRemote, userID string) {
	now := time.Now().UTC()

	r.Insert("activity", remote.Row{
		"user_id":     userID,
		"action":      "Gained a new follower",
		"action_type": "follower",
		"created_at":  now.Add(-2 * time.Hour).Format(time.RFC3339),
	})
	r.Insert("activity", remote.Row{
		"user_id":     userID,
		"action":      "Portfolio approved",
		"action_type": "approval",
		"created_at":  now.Add(-26 * time.Hour).Format(time.RFC3339),
	})
	r.Insert("activity", remote.Row{
		"user_id":     userID,
		"action":      "Reached 100 portfolio views",
		"action_type": "achievement",
		"created_at":  now.Add(-50 * time.Hour).Format(time.RFC3339),
	})

	r.Insert("challenges", remote.Row{
		"user_id":  userID,
		"title":    "Complete 5 projects",
		"progress": 60,
		"reward":   500,
		"status":   "active",
	})
	r.Insert("challenges", remote.Row{
		"user_id":  userID,
		"title":    "Reach 50 followers",
		"progress": 20,
		"reward":   250,
		"status":   "active",
	})
	r.Insert("challenges", remote.Row{
		"user_id":  userID,
		"title":    "First portfolio upload",
		"progress": 100,
		"reward":   100,
		"status":   "completed",
	})

	_, _ = r.Update(context.Background(), "user_stats",
		remote.Row{"portfolio_views": 128, "followers": 10, "rating": 4.5, "projects_completed": 3},
		[]remote.Filter{{Column: "user_id", Value: userID}})
}
