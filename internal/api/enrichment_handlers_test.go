package api

import (
	"net/http"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listoapp/listo/internal/domain"
)

func TestEnrichmentSearch(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/api/enrichment/search?query=Dune&category=book", ts.tokenFor(t, "alice"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	out := decode[SearchEnrichmentResponse](t, resp.Body)
	require.Len(t, out.Suggestions, 1)
	assert.Equal(t, "vol-1", out.Suggestions[0].ID)
	assert.Equal(t, "Dune", out.Suggestions[0].Title)
}

func TestEnrichmentSearch_CategoryWithoutPlugin(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/api/enrichment/search?query=Catan&category=board-game", ts.tokenFor(t, "alice"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"suggestions":[]}`, resp.Body.String())
}

func TestEnrichmentSearch_UnknownCategory(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/api/enrichment/search?query=x&category=podcasts", ts.tokenFor(t, "alice"))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decode[APIError](t, resp.Body).Code)
}

func TestEnrichmentEnrich(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/api/enrichment/enrich?id=vol-1&category=book", ts.tokenFor(t, "alice"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	out := decode[EnrichItemResponse](t, resp.Body)
	require.True(t, out.Success)

	var meta domain.Metadata
	require.NoError(t, json.Unmarshal(out.Metadata, &meta))
	book, ok := meta.Value().(*domain.BookMetadata)
	require.True(t, ok)
	assert.Equal(t, "9780000000001", book.ISBN)
}

func TestEnrichmentEnrich_FailureInBody(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	auth := ts.tokenFor(t, "alice")

	resp := ts.api.Get("/api/enrichment/enrich?id=missing&category=book", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	out := decode[EnrichItemResponse](t, resp.Body)
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
	assert.Empty(t, out.Metadata)

	resp = ts.api.Get("/api/enrichment/enrich?id=x&category=movie", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	out = decode[EnrichItemResponse](t, resp.Body)
	assert.False(t, out.Success)
	assert.Equal(t, "no enrichment plugin available for category: movie", out.Error)
}

func TestEnrichmentCategories(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/api/enrichment/categories")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"categories":["book"]}`, resp.Body.String())
}

func TestEnrichmentRoutes_RequireAuth(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/api/enrichment/search?query=Dune&category=book")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestEnrichmentRoutes_Disabled(t *testing.T) {
	ts := setupTestServer(t, withoutEnrichment())
	defer ts.cleanup()

	resp := ts.api.Get("/api/enrichment/search?query=Dune&category=book", ts.tokenFor(t, "alice"))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
