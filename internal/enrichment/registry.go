package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/listoapp/listo/internal/domain"
	"github.com/listoapp/listo/internal/metrics"
)

// DefaultCacheTTL is how long plugin answers are reused.
const DefaultCacheTTL = 24 * time.Hour

// Registry dispatches enrichment calls to the plugin registered for a
// category. Categories without a plugin get empty results, never errors.
type Registry struct {
	plugins map[domain.Category]Plugin
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewRegistry registers plugins by the categories they claim. When two
// plugins claim the same category the later one wins. cache may be nil.
func NewRegistry(cache Cache, ttl time.Duration, logger *slog.Logger, plugins ...Plugin) *Registry {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	r := &Registry{
		plugins: make(map[domain.Category]Plugin),
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
	for _, p := range plugins {
		if p == nil {
			continue
		}
		for _, c := range p.Categories() {
			if prev, ok := r.plugins[c]; ok {
				logger.Warn("enrichment plugin replaced", "category", c, "previous", prev.Name(), "plugin", p.Name())
			}
			r.plugins[c] = p
		}
		logger.Debug("enrichment plugin registered", "plugin", p.Name(), "categories", p.Categories())
	}
	return r
}

// Has reports whether category has a plugin.
func (r *Registry) Has(category domain.Category) bool {
	_, ok := r.plugins[category]
	return ok
}

// Categories returns the categories that have a plugin, in display order.
func (r *Registry) Categories() []domain.Category {
	var out []domain.Category
	for _, c := range domain.Categories() {
		if r.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Search returns up to five suggestions for query. Plugin failures are
// logged and yield an empty list.
func (r *Registry) Search(ctx context.Context, query string, category domain.Category) []SearchSuggestion {
	query = strings.TrimSpace(query)
	p, ok := r.plugins[category]
	if !ok || query == "" {
		return []SearchSuggestion{}
	}

	key := fmt.Sprintf("search:%s:%s:%s", p.Name(), category, strings.ToLower(query))
	var cached []SearchSuggestion
	if r.fromCache(ctx, key, &cached) {
		metrics.RecordEnrichment(p.Name(), "search", 0, true, nil)
		return cached
	}

	start := time.Now()
	suggestions, err := p.Search(ctx, query, category)
	metrics.RecordEnrichment(p.Name(), "search", time.Since(start), false, err)
	if err != nil {
		r.logger.Warn("enrichment search failed", "plugin", p.Name(), "category", category, "error", err)
		return []SearchSuggestion{}
	}
	if suggestions == nil {
		suggestions = []SearchSuggestion{}
	}
	if len(suggestions) > suggestionLimit {
		suggestions = suggestions[:suggestionLimit]
	}

	r.toCache(ctx, key, suggestions)
	return suggestions
}

// Enrich fetches full metadata for an item id returned by Search.
func (r *Registry) Enrich(ctx context.Context, id string, category domain.Category) *Result {
	p, ok := r.plugins[category]
	if !ok {
		return &Result{Error: fmt.Sprintf("no enrichment plugin available for category: %s", category)}
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return &Result{Error: "id is required"}
	}

	key := fmt.Sprintf("enrich:%s:%s:%s", p.Name(), category, id)
	var cached Result
	if r.fromCache(ctx, key, &cached) {
		metrics.RecordEnrichment(p.Name(), "enrich", 0, true, nil)
		return &cached
	}

	start := time.Now()
	md, err := p.Enrich(ctx, id, category)
	metrics.RecordEnrichment(p.Name(), "enrich", time.Since(start), false, err)
	if err != nil {
		r.logger.Warn("enrichment failed", "plugin", p.Name(), "category", category, "id", id, "error", err)
		return &Result{Error: err.Error()}
	}

	res := &Result{Success: true, Metadata: md}
	r.toCache(ctx, key, res)
	return res
}

func (r *Registry) fromCache(ctx context.Context, key string, out any) bool {
	if r.cache == nil {
		return false
	}
	payload, err := r.cache.GetCachedEnrichment(ctx, key, r.ttl)
	if err != nil {
		r.logger.Warn("enrichment cache read failed", "error", err)
		return false
	}
	if payload == nil {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		r.logger.Debug("discarding unreadable cache entry", "error", err)
		return false
	}
	return true
}

func (r *Registry) toCache(ctx context.Context, key string, v any) {
	if r.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.SetCachedEnrichment(ctx, key, payload); err != nil {
		r.logger.Warn("enrichment cache write failed", "error", err)
	}
}
