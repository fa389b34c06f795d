package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// cachePruneInterval is how often expired enrichment responses are removed.
	cachePruneInterval = time.Hour
)

// Version is reported by /health and the OpenAPI document. Set at build time
// with -ldflags "-X github.com/listoapp/listo/internal/di/providers.Version=...".
var Version = "dev"
