package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Token: "tok", Timeout: 5 * time.Second}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	_, err := New(Config{}, logger)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = New(Config{BaseURL: "not a url"}, logger)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	c, err := New(Config{BaseURL: "https://listo.example/"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "https://listo.example", c.BaseURL())
}

func TestPull(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/recommendations", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("since"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		_, _ = io.WriteString(w, `{"recommendations":[
			{"id":"rec-1","user_id":"alice","category":"movie","title":"Heat","created_at":10,"updated_at":50,
			 "metadata":{"type":"movie","tmdb_id":949}},
			{"id":"rec-2","user_id":"alice","category":"book","title":"Dune","created_at":10,"updated_at":45,"deleted_at":45}
		]}`)
	})

	recs, err := c.Pull(context.Background(), "alice", 42)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "alice", recs[0].OwnerID)
	assert.Equal(t, int64(50), recs[0].UpdatedAt)
	screen, ok := recs[0].Metadata.Value().(*domain.ScreenMetadata)
	require.True(t, ok)
	assert.Equal(t, 949, screen.TMDBID)
	assert.True(t, recs[1].IsDeleted())
}

func TestPush(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/recommendations/sync", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Recommendations []map[string]any `json:"recommendations"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Recommendations, 2)
		assert.Equal(t, "rec-1", body.Recommendations[0]["id"])
		assert.Equal(t, false, body.Recommendations[0]["synced"])

		_, _ = io.WriteString(w, `{"synced":["rec-1"],"errors":[{"id":"rec-2","message":"title is required"}]}`)
	})

	recs := []*domain.LocalRecommendation{
		{Recommendation: domain.Recommendation{Syncable: domain.Syncable{ID: "rec-1", UpdatedAt: 5}, Category: domain.CategoryMovie, Title: "Heat"}},
		{Recommendation: domain.Recommendation{Syncable: domain.Syncable{ID: "rec-2", UpdatedAt: 5}, Category: domain.CategoryMovie}},
	}
	res, err := c.Push(context.Background(), "alice", recs)
	require.NoError(t, err)
	assert.Equal(t, []string{"rec-1"}, res.Synced)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "rec-2", res.Errors[0].ID)
	assert.Equal(t, "title is required", res.Errors[0].Message)
}

func TestErrorsAreTransport(t *testing.T) {
	t.Run("4xx keeps server code", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":"TOKEN_EXPIRED","message":"token expired"}`)
		})

		_, err := c.Pull(context.Background(), "alice", 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, domainerrors.ErrTransport)
		assert.Contains(t, err.Error(), "token expired")
		assert.True(t, IsAuthFailure(err))

		status, code, ok := StatusOf(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "TOKEN_EXPIRED", code)
	})

	t.Run("5xx", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := c.Push(context.Background(), "alice", nil)
		assert.ErrorIs(t, err, domainerrors.ErrTransport)
		assert.False(t, IsAuthFailure(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"recommendations":`)
		})

		_, err := c.Pull(context.Background(), "alice", 0)
		assert.ErrorIs(t, err, domainerrors.ErrTransport)
	})

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		c, err := New(Config{BaseURL: srv.URL}, slog.New(slog.DiscardHandler))
		require.NoError(t, err)

		_, err = c.Pull(context.Background(), "alice", 0)
		assert.ErrorIs(t, err, domainerrors.ErrTransport)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		t.Cleanup(srv.Close)

		c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, slog.New(slog.DiscardHandler))
		require.NoError(t, err)

		_, err = c.Pull(context.Background(), "alice", 0)
		assert.ErrorIs(t, err, domainerrors.ErrTransport)
	})
}

func TestCircuitBreakerOpensOnServerFailures(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for range 3 {
		_, err := c.Pull(context.Background(), "alice", 0)
		require.ErrorIs(t, err, domainerrors.ErrTransport)
	}
	require.Equal(t, int32(3), hits.Load())

	_, err := c.Pull(context.Background(), "alice", 0)
	assert.ErrorIs(t, err, domainerrors.ErrTransport)
	assert.Contains(t, err.Error(), "server unavailable")
	assert.Equal(t, int32(3), hits.Load(), "open breaker fails fast")
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	for range 5 {
		_, err := c.Pull(context.Background(), "alice", 0)
		require.Error(t, err)
	}
	assert.Equal(t, int32(5), hits.Load())
}

func TestEnrichmentCalls(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/enrichment/search":
			assert.Equal(t, "dune", r.URL.Query().Get("query"))
			assert.Equal(t, "book", r.URL.Query().Get("category"))
			_, _ = io.WriteString(w, `{"suggestions":[{"id":"v1","title":"Dune","year":1965}]}`)
		case "/api/enrichment/enrich":
			assert.Equal(t, "v1", r.URL.Query().Get("id"))
			_, _ = io.WriteString(w, `{"success":true,"metadata":{"type":"book","author":"Frank Herbert"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	sugg, err := c.Search(context.Background(), "dune", domain.CategoryBook)
	require.NoError(t, err)
	require.Len(t, sugg, 1)
	assert.Equal(t, 1965, sugg[0].Year)

	res, err := c.Enrich(context.Background(), "v1", domain.CategoryBook)
	require.NoError(t, err)
	require.True(t, res.Success)
	book, ok := res.Metadata.Value().(*domain.BookMetadata)
	require.True(t, ok)
	assert.Equal(t, "Frank Herbert", book.Author)
}

func TestAuthCalls(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/me":
			assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"owner_id":"alice","token_id":"jti","expires_at":99,"recommendations":3}`)
		case "/api/auth/token":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alice", body["owner_id"])
			assert.Equal(t, "s3cret", body["secret"])
			_, _ = io.WriteString(w, `{"access_token":"fresh","token_type":"Bearer","expires_at":99,"owner_id":"alice"}`)
		}
	})

	tok, err := c.IssueToken(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)

	c.SetToken(tok.AccessToken)
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", me.OwnerID)
	assert.Equal(t, int64(99), me.ExpiresAt)
	assert.Equal(t, 3, me.Recommendations)
}
