package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/listoapp/listo/internal/config"
	"github.com/listoapp/listo/internal/logger"
)

// CachePruneJob periodically removes expired enrichment cache entries.
type CachePruneJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *CachePruneJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideCachePruneJob provides the periodic enrichment cache cleanup job.
func ProvideCachePruneJob(i do.Injector) (*CachePruneJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	if !cfg.Enrichment.Enabled {
		return &CachePruneJob{cancel: cancel}, nil
	}

	ttl := cfg.Enrichment.CacheTTL
	prune := func(phase string) {
		if count, err := storeHandle.PruneEnrichmentCache(ctx, ttl); err != nil {
			log.Warn(phase+" failed", "error", err)
		} else if count > 0 {
			log.Info(phase+" completed", "deleted", count)
		}
	}

	go func() {
		ticker := time.NewTicker(cachePruneInterval)
		defer ticker.Stop()

		prune("Initial enrichment cache prune")

		for {
			select {
			case <-ticker.C:
				prune("Enrichment cache prune")
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Enrichment cache prune job started", "interval", cachePruneInterval)

	return &CachePruneJob{cancel: cancel}, nil
}
