package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/profilehub/internal/client/models"
	"github.com/dmitrijs2005/profilehub/internal/client/services"
	"github.com/dmitrijs2005/profilehub/internal/common"
)

func TestBuildStatsPatch(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		wantErr bool
	}{
		{name: "followers", field: "followers", value: "42"},
		{name: "rating float", field: "rating", value: "4.5"},
		{name: "views", field: "portfolio_views", value: "100"},
		{name: "rating not a number", field: "rating", value: "high", wantErr: true},
		{name: "count not an integer", field: "followers", value: "4.5", wantErr: true},
		{name: "unknown field", field: "popularity", value: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := buildStatsPatch(tt.field, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, p.Fields(), 1)
		})
	}
}

func TestValidateStatsPatch(t *testing.T) {
	ok := func(f, v string) {
		t.Helper()
		p, err := buildStatsPatch(f, v)
		require.NoError(t, err)
		assert.NoError(t, validateStatsPatch(p))
	}
	bad := func(f, v string) {
		t.Helper()
		p, err := buildStatsPatch(f, v)
		require.NoError(t, err)
		assert.Error(t, validateStatsPatch(p))
	}

	ok("rating", "0")
	ok("rating", "5")
	ok("rating", "4.5")
	ok("followers", "0")
	bad("rating", "5.7")
	bad("rating", "-0.1")
	bad("followers", "-1")
	bad("loyalty_points", "-10")
}

func TestSetStats_RequiresLogin(t *testing.T) {
	a := newDemoApp(t)
	require.ErrorIs(t, a.SetStats(context.Background()), common.ErrorUnauthorized)
}

func TestSetStats_RejectsOutOfRangeRating(t *testing.T) {
	a := newDemoApp(t)
	stubInputs(t, []string{DemoEmail}, []byte(DemoPassword))
	require.NoError(t, a.Login(context.Background()))
	waitForState(t, a, services.StateAuthenticated)

	// The writer itself would persist 5.7; the interactive path refuses it
	// before the write happens.
	stubInputs(t, []string{"rating", "5.7"}, nil)
	require.ErrorContains(t, a.SetStats(context.Background()), "between 0 and 5")
}

func TestSetStats_WritesAndConfirms(t *testing.T) {
	a := newDemoApp(t)
	stubInputs(t, []string{DemoEmail}, []byte(DemoPassword))
	require.NoError(t, a.Login(context.Background()))
	waitForState(t, a, services.StateAuthenticated)

	stubInputs(t, []string{"followers", "42"}, nil)
	require.NoError(t, a.SetStats(context.Background()))

	// An empty follow-up patch echoes the confirmed current row.
	stats, err := a.writer.Update(context.Background(), models.UserStatsPatch{})
	require.NoError(t, err)
	require.Equal(t, 42, stats.Followers)
}
