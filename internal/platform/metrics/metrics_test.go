package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordActionSplitsByResult(t *testing.T) {
	okBefore := testutil.ToFloat64(metricActions.WithLabelValues("like", "ok"))
	failedBefore := testutil.ToFloat64(metricActions.WithLabelValues("like", "failed"))

	RecordAction("like", true)
	RecordAction("like", true)
	RecordAction("like", false)

	require.Equal(t, okBefore+2, testutil.ToFloat64(metricActions.WithLabelValues("like", "ok")))
	require.Equal(t, failedBefore+1, testutil.ToFloat64(metricActions.WithLabelValues("like", "failed")))
}

func TestSessionGaugeReturnsToBaseline(t *testing.T) {
	active := testutil.ToFloat64(metricSessionsActive)
	stopped := testutil.ToFloat64(metricSessionsFinished.WithLabelValues("stopped"))

	RecordSessionStart()
	require.Equal(t, active+1, testutil.ToFloat64(metricSessionsActive))

	RecordSessionFinish("stopped")
	require.Equal(t, active, testutil.ToFloat64(metricSessionsActive))
	require.Equal(t, stopped+1, testutil.ToFloat64(metricSessionsFinished.WithLabelValues("stopped")))
}

func TestHandlerExposesCounters(t *testing.T) {
	RecordSkip()
	RecordSinkDrop()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	require.True(t, strings.Contains(text, "engagectl_ticks_skipped_total"))
	require.True(t, strings.Contains(text, "engagectl_log_events_dropped_total"))
}
