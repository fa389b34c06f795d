package providers

import (
	"github.com/samber/do/v2"

	"github.com/listoapp/listo/internal/config"
	"github.com/listoapp/listo/internal/enrichment"
	"github.com/listoapp/listo/internal/logger"
)

// EnrichmentHandle holds the plugin registry. Registry is nil when
// enrichment is disabled.
type EnrichmentHandle struct {
	Registry *enrichment.Registry
}

// ProvideEnrichment builds the registry from the plugins whose credentials
// are configured. Google Books and iTunes need none.
func ProvideEnrichment(i do.Injector) (*EnrichmentHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	if !cfg.Enrichment.Enabled {
		log.Info("Enrichment disabled by configuration")
		return &EnrichmentHandle{}, nil
	}

	httpClient := enrichment.NewHTTPClient()
	var plugins []enrichment.Plugin

	if cfg.Enrichment.TMDBAPIKey != "" {
		plugins = append(plugins, enrichment.NewTMDB(cfg.Enrichment.TMDBAPIKey, cfg.Enrichment.OMDBAPIKey, httpClient, log.Logger))
	} else {
		log.Info("TMDB API key not set, movie and show enrichment unavailable")
	}
	if cfg.Enrichment.YouTubeAPIKey != "" {
		plugins = append(plugins, enrichment.NewYouTube(cfg.Enrichment.YouTubeAPIKey, httpClient, log.Logger))
	} else {
		log.Info("YouTube API key not set, YouTube enrichment unavailable")
	}
	plugins = append(plugins,
		enrichment.NewGoogleBooks(httpClient, log.Logger),
		enrichment.NewITunes(httpClient, log.Logger),
	)

	registry := enrichment.NewRegistry(storeHandle.Store, cfg.Enrichment.CacheTTL, log.Logger, plugins...)

	log.Info("Enrichment ready",
		"plugins", len(plugins),
		"categories", len(registry.Categories()),
		"cache_ttl", cfg.Enrichment.CacheTTL,
	)

	return &EnrichmentHandle{Registry: registry}, nil
}
