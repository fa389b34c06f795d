// Package di provides dependency injection configuration for the listo server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listoapp/listo/internal/auth"
	"github.com/listoapp/listo/internal/config"
	"github.com/listoapp/listo/internal/di/providers"
	"github.com/listoapp/listo/internal/logger"
	"github.com/listoapp/listo/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideRemoteSyncService)
	do.Provide(injector, providers.ProvideEnrichment)

	// Workers
	do.Provide(injector, providers.ProvideCachePruneJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[providers.AuthKey](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*service.RemoteSyncService](injector)
	_ = do.MustInvoke[*providers.EnrichmentHandle](injector)

	// Workers
	_ = do.MustInvoke[*providers.CachePruneJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
