package models

import "time"

// ActionType classifies an activity feed item.
type ActionType string

const (
	ActionTypeUpdate      ActionType = "update"
	ActionTypeFollower    ActionType = "follower"
	ActionTypeApproval    ActionType = "approval"
	ActionTypeAchievement ActionType = "achievement"
)

// Activity is one item of the recency-ordered activity feed. The feed is
// append-only from this client's point of view and capped to the most
// recent N items.
type Activity struct {
	ID         string     `json:"id"`
	Action     string     `json:"action"`
	ActionType ActionType `json:"action_type"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ActivityFromRow decodes an activity row.
func ActivityFromRow(row map[string]any) Activity {
	return Activity{
		ID:         stringVal(row, "id"),
		Action:     stringVal(row, "action"),
		ActionType: ActionType(stringVal(row, "action_type")),
		CreatedAt:  timeVal(row, "created_at"),
	}
}
