package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordNotification()
	m.RecordDuplicate()
	m.RecordClassified("Jupiter", "Buy", nil)
	m.RecordClassified("Raydium", "", errors.New("no pool"))
	m.RecordTrade("buy", "success", time.Second)
	m.RecordSkip("below_minimum")
	m.SetOpenPositions(3)
	m.ObserveRPC("getTransaction", 10*time.Millisecond, errors.New("timeout"))
	m.RecordAuditWrite("csv", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicateSignatures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SwapEventsClassified.WithLabelValues("Jupiter", "Buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassificationErrors.WithLabelValues("Raydium")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MirroredTrades.WithLabelValues("buy", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedTrades.WithLabelValues("below_minimum")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OpenPositions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCallErrors.WithLabelValues("getTransaction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWrites.WithLabelValues("csv", "ok")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordNotification()
		m.RecordTrade("sell", "failed", 0)
		m.ObserveRPC("x", 0, nil)
		m.SetOpenPositions(1)
		m.RecordExitCycle(time.Second)
	})
}

func TestMetrics_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordExitSell()

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	n, err := testutil.GatherAndCount(reg, "test_exit_sells_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
