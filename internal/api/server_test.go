package api

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/listoapp/listo/internal/auth"
	"github.com/listoapp/listo/internal/domain"
	"github.com/listoapp/listo/internal/enrichment"
	"github.com/listoapp/listo/internal/service"
	"github.com/listoapp/listo/internal/store/sqlite"
	"github.com/listoapp/listo/internal/validation"
)

const testBootstrapSecret = "let-me-in"

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api     humatest.TestAPI
	key     []byte
	tokens  *auth.TokenService
	cleanup func()
}

// bookPlugin answers book searches from memory.
type bookPlugin struct {
	calls int
}

func (p *bookPlugin) Name() string { return "fakebooks" }

func (p *bookPlugin) Categories() []domain.Category {
	return []domain.Category{domain.CategoryBook}
}

func (p *bookPlugin) Search(_ context.Context, query string, _ domain.Category) ([]enrichment.SearchSuggestion, error) {
	p.calls++
	return []enrichment.SearchSuggestion{
		{ID: "vol-1", Title: query, Subtitle: "Some Author", Year: 1999},
	}, nil
}

func (p *bookPlugin) Enrich(_ context.Context, id string, _ domain.Category) (*domain.Metadata, error) {
	p.calls++
	if id == "missing" {
		return nil, enrichment.ErrNotFound
	}
	return domain.NewMetadata(&domain.BookMetadata{
		BaseMetadata: domain.BaseMetadata{Year: 1999},
		ISBN:         "9780000000001",
		Author:       "Some Author",
	}), nil
}

type testServerOption func(*Options, *Services)

func withRateLimit(rps float64, burst int) testServerOption {
	return func(o *Options, _ *Services) {
		o.RateLimitRPS = rps
		o.RateLimitBurst = burst
	}
}

func withoutEnrichment() testServerOption {
	return func(_ *Options, s *Services) {
		s.Enrichment = nil
	}
}

// setupTestServer creates a test server backed by a temp SQLite database.
func setupTestServer(t *testing.T, opts ...testServerOption) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(tmpDir, "listo.db"), logger)
	require.NoError(t, err)

	key, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(key, time.Hour, testBootstrapSecret)
	require.NoError(t, err)

	services := &Services{
		Tokens:     tokens,
		Sync:       service.NewRemoteSyncService(st, validation.New(), logger),
		Enrichment: enrichment.NewRegistry(st, time.Hour, logger, &bookPlugin{}),
	}
	options := Options{Version: "test", RateLimitRPS: 1000, RateLimitBurst: 1000}
	for _, opt := range opts {
		opt(&options, services)
	}

	s := NewServer(st, services, options, logger)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
		key:    key,
		tokens: tokens,
		cleanup: func() {
			s.Close()
			_ = st.Close()
		},
	}
}

// tokenFor issues a bearer header for owner.
func (ts *testServer) tokenFor(t *testing.T, owner string) string {
	t.Helper()
	token, _, err := ts.tokens.IssueToken(owner)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

// decode unmarshals a response body.
func decode[T any](t *testing.T, body *bytes.Buffer) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body.Bytes(), &out), "body: %s", body.String())
	return out
}
