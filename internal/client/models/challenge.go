package models

// ChallengeStatus is the lifecycle state of a challenge.
type ChallengeStatus string

const (
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusCompleted ChallengeStatus = "completed"
	ChallengeStatusExpired   ChallengeStatus = "expired"
)

// Challenge is a capped, status-filtered collection: this client only ever
// queries active challenges.
type Challenge struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Progress    int             `json:"progress"`
	Reward      int             `json:"reward"`
	Status      ChallengeStatus `json:"status"`
}

// ChallengeFromRow decodes a challenges row.
func ChallengeFromRow(row map[string]any) Challenge {
	return Challenge{
		ID:          stringVal(row, "id"),
		Title:       stringVal(row, "title"),
		Description: stringVal(row, "description"),
		Progress:    intVal(row, "progress"),
		Reward:      intVal(row, "reward"),
		Status:      ChallengeStatus(stringVal(row, "status")),
	}
}
