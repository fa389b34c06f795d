package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, "1 category enrichable", health.Components["enrichment"].Message)
}

func TestHealthCheck_EnrichmentDisabled(t *testing.T) {
	ts := setupTestServer(t, withoutEnrichment())
	defer ts.cleanup()

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "degraded", health.Components["enrichment"].Status)
}

func TestHealthCheck_DatabaseClosed(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	require.NoError(t, ts.store.Close())

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body)
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "database unreachable", health.Components["database"].Message)
}
