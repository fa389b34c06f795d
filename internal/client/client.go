// Package client talks to the sync server over HTTP. It implements the sync
// engine's RemoteStore and exposes the enrichment and auth endpoints the CLI
// uses. Every failure surfaces as a TRANSPORT error.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/listoapp/listo/internal/domain"
	"github.com/listoapp/listo/internal/enrichment"
	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/service"
)

const (
	// DefaultTimeout bounds a single request, body included.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 32 << 20
	breakerName      = "listo-server"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// HTTPClient overrides the default client. Its timeout wins over Timeout.
	HTTPClient *http.Client
}

// Client is the HTTP client for the sync server.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*rawResponse]
	logger  *slog.Logger
}

// rawResponse is a fully read response. Only network failures and 5xx
// answers count against the breaker.
type rawResponse struct {
	status int
	body   []byte
}

// New creates a client for the server at cfg.BaseURL.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, domainerrors.Validation("server URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, domainerrors.Validationf("invalid server URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    httpClient,
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type pullResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
}

type pushRequest struct {
	Recommendations []*domain.LocalRecommendation `json:"recommendations"`
}

var _ service.RemoteStore = (*Client)(nil)

// Pull implements service.RemoteStore. The server derives the owner from
// the token; owner is only logged.
func (c *Client) Pull(ctx context.Context, owner string, since int64) ([]domain.Recommendation, error) {
	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))

	var out pullResponse
	if err := c.do(ctx, http.MethodGet, "/api/recommendations", q, nil, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("pulled recommendations", "owner", owner, "since", since, "count", len(out.Recommendations))
	return out.Recommendations, nil
}

// Push implements service.RemoteStore.
func (c *Client) Push(ctx context.Context, owner string, recs []*domain.LocalRecommendation) (*service.PushResult, error) {
	var out service.PushResult
	if err := c.do(ctx, http.MethodPost, "/api/recommendations/sync", nil, pushRequest{Recommendations: recs}, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("pushed recommendations", "owner", owner, "sent", len(recs), "synced", len(out.Synced), "errors", len(out.Errors))
	return &out, nil
}

// Search asks the server for metadata suggestions.
func (c *Client) Search(ctx context.Context, query string, category domain.Category) ([]enrichment.SearchSuggestion, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("category", string(category))

	var out struct {
		Suggestions []enrichment.SearchSuggestion `json:"suggestions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/enrichment/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// Enrich fetches full metadata for a suggestion.
func (c *Client) Enrich(ctx context.Context, id string, category domain.Category) (*enrichment.Result, error) {
	q := url.Values{}
	q.Set("id", id)
	q.Set("category", string(category))

	var out enrichment.Result
	if err := c.do(ctx, http.MethodGet, "/api/enrichment/enrich", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Identity is who the server thinks the token belongs to.
type Identity struct {
	OwnerID         string `json:"owner_id"`
	TokenID         string `json:"token_id,omitempty"`
	ExpiresAt       int64  `json:"expires_at,omitempty"`
	Recommendations int    `json:"recommendations"`
}

// Me returns the identity behind the current token.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssuedToken is a token obtained with the server's bootstrap secret.
type IssuedToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	OwnerID     string `json:"owner_id"`
}

// IssueToken exchanges the bootstrap secret for a token naming owner.
func (c *Client) IssueToken(ctx context.Context, owner, secret string) (*IssuedToken, error) {
	body := map[string]string{"owner_id": owner, "secret": secret}
	var out IssuedToken
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends a request through the breaker and decodes a 2xx JSON answer
// into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	op := method + " " + path

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeTransport, "%s: encode request", op)
		}
	}

	resp, err := c.breaker.Execute(func() (*rawResponse, error) {
		return c.roundTrip(ctx, method, target.String(), payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domainerrors.Wrapf(err, domainerrors.CodeTransport, "%s: server unavailable, retry later", op)
		}
		var se *statusError
		if errors.As(err, &se) {
			return se.toDomain(op)
		}
		return domainerrors.Wrapf(err, domainerrors.CodeTransport, "%s failed", op)
	}

	if resp.status < 200 || resp.status > 299 {
		return (&statusError{status: resp.status, body: resp.body}).toDomain(op)
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return domainerrors.Wrapf(err, domainerrors.CodeTransport, "%s: decode response", op)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte) (*rawResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &statusError{status: resp.StatusCode, body: data}
	}
	return &rawResponse{status: resp.StatusCode, body: data}, nil
}
