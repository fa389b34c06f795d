// Command api runs the listo sync server: the remote store that devices
// pull from and push to, plus the enrichment proxy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/listoapp/listo/internal/di"
	"github.com/listoapp/listo/internal/di/providers"
	"github.com/listoapp/listo/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := di.NewContainer()
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "listo server: %v\n", err)
		os.Exit(1)
	}
	log := do.MustInvoke[*logger.Logger](injector)

	<-ctx.Done()
	log.Info("Shutting down", "version", providers.Version)

	// Reverse dependency order: the HTTP server drains before the store closes.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}
