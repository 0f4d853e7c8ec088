package remote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubjects(t *testing.T) {
	require.Equal(t, "store.query.user_stats", querySubject("user_stats"))
	require.Equal(t, "store.update.user_stats", updateSubject("user_stats"))
	require.Equal(t, "store.changes.activity.u1", changesSubject("activity", "u1"))
}

func TestFiltersToMap(t *testing.T) {
	m := filtersToMap([]Filter{
		{Column: "user_id", Value: "u1"},
		{Column: "status", Value: "active"},
	})
	require.Equal(t, map[string]any{"user_id": "u1", "status": "active"}, m)
}

func TestEventWanted(t *testing.T) {
	require.True(t, eventWanted(nil, EventInsert))
	require.True(t, eventWanted([]EventType{EventInsert}, EventInsert))
	require.False(t, eventWanted([]EventType{EventInsert}, EventDelete))
	require.True(t, eventWanted(AllEvents, EventDelete))
}
