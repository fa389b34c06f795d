package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordPush(t *testing.T) {
	before := testutil.ToFloat64(SyncPushRecords.WithLabelValues("rejected"))

	RecordPush(10*time.Millisecond, 2, 1, 0, 3)

	after := testutil.ToFloat64(SyncPushRecords.WithLabelValues("rejected"))
	assert.InDelta(t, 3, after-before, 0.001)
}

func TestRecordEnrichment(t *testing.T) {
	ok := func() float64 { return testutil.ToFloat64(EnrichmentRequests.WithLabelValues("tmdb", "search", "ok")) }
	failed := func() float64 { return testutil.ToFloat64(EnrichmentRequests.WithLabelValues("tmdb", "search", "error")) }
	cached := func() float64 { return testutil.ToFloat64(EnrichmentRequests.WithLabelValues("tmdb", "search", "cached")) }

	okBefore, failedBefore, cachedBefore := ok(), failed(), cached()

	RecordEnrichment("tmdb", "search", time.Millisecond, false, nil)
	RecordEnrichment("tmdb", "search", time.Millisecond, false, errors.New("boom"))
	RecordEnrichment("tmdb", "search", 0, true, nil)

	assert.InDelta(t, 1, ok()-okBefore, 0.001)
	assert.InDelta(t, 1, failed()-failedBefore, 0.001)
	assert.InDelta(t, 1, cached()-cachedBefore, 0.001)
}

func TestRecordPull(t *testing.T) {
	before := testutil.ToFloat64(SyncPullsTotal)
	RecordPull(5)
	assert.InDelta(t, 1, testutil.ToFloat64(SyncPullsTotal)-before, 0.001)
}
