package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionTransition("authenticated")
	c.RecordReadErrorDropped("user_stats")
	c.RecordReadErrorDropped("user_stats")
	c.RecordLiveEvent("activity", "insert")
	c.RecordRefetch("challenges")
	c.RecordStatsWrite("ok")

	require.Equal(t, float64(1),
		testutil.ToFloat64(c.sessionTransitions.WithLabelValues("authenticated")))
	require.Equal(t, float64(2),
		testutil.ToFloat64(c.readErrorsDropped.WithLabelValues("user_stats")))
	require.Equal(t, float64(1),
		testutil.ToFloat64(c.liveEventsApplied.WithLabelValues("activity", "insert")))
	require.Equal(t, float64(1),
		testutil.ToFloat64(c.refetches.WithLabelValues("challenges")))
	require.Equal(t, float64(1),
		testutil.ToFloat64(c.statsWrites.WithLabelValues("ok")))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.RecordSessionTransition("anonymous")
	c.RecordReadErrorDropped("activity")
	c.RecordLiveEvent("user_stats", "update")
	c.RecordRefetch("challenges")
	c.RecordStatsWrite("error")
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordStatsWrite("ok")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
}
