package api

import (
	"github.com/listoapp/listo/internal/auth"
	"github.com/listoapp/listo/internal/enrichment"
	"github.com/listoapp/listo/internal/service"
)

// Services groups what the API handlers call into.
type Services struct {
	Tokens     *auth.TokenService
	Sync       *service.RemoteSyncService
	Enrichment *enrichment.Registry // nil disables the enrichment routes
}
