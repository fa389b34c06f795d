package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/listoapp/listo/internal/service"
	"github.com/listoapp/listo/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideRemoteSyncService provides the server side of sync.
func ProvideRemoteSyncService(i do.Injector) (*service.RemoteSyncService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*slog.Logger](i)

	return service.NewRemoteSyncService(storeHandle.Store, validator, log), nil
}
