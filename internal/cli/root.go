// Package cli implements the listo command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/listoapp/listo/internal/client"
	"github.com/listoapp/listo/internal/config"
	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/logger"
	"github.com/listoapp/listo/internal/service"
	"github.com/listoapp/listo/internal/store"
	"github.com/listoapp/listo/internal/store/sqlite"
	"github.com/listoapp/listo/internal/validation"
)

// app carries the state shared by every command of one invocation. Stores
// and the HTTP client are opened on first use so commands that need none of
// them stay fast.
type app struct {
	flags  config.ClientFlags
	asJSON bool

	cfg     *config.ClientConfig
	logger  *slog.Logger
	logFile io.Closer
	out     io.Writer

	records *store.Store
	meta    *sqlite.Store
	cursor  *service.SyncCursor
	recs    *service.RecommendationService
	remote  *client.Client
	engine  *service.SyncEngine
}

// NewRootCommand builds the listo command tree.
func NewRootCommand() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "listo",
		Short: "Keep track of recommendations, online or off",
		Long: `listo records the movies, books, restaurants and other things people
recommend to you. Everything is stored locally first and synchronized
with a listo server when you run "listo sync".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.ServerURL, "server", "", "server URL (env LISTO_SERVER_URL)")
	pf.StringVar(&a.flags.Token, "token", "", "access token (env LISTO_TOKEN)")
	pf.StringVar(&a.flags.Owner, "owner", "", "owner id (env LISTO_OWNER)")
	pf.StringVar(&a.flags.DataPath, "data-path", "", "local data directory (env LISTO_DATA_PATH)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.HTTPTimeout, "http-timeout", "", "timeout for server requests, e.g. 30s")
	pf.StringVar(&a.flags.EnvFile, "env-file", "", "path to a .env file")
	pf.BoolVar(&a.asJSON, "json", false, "print machine readable JSON")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newShowCmd(a),
		newEditCmd(a),
		newDoneCmd(a),
		newRemoveCmd(a),
		newSyncCmd(a),
		newStatusCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newSuggestCmd(a),
		newCategoriesCmd(a),
	)

	return root, a
}

// Execute runs the CLI with the given arguments.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", describe(err))
	}
	return err
}

// setup resolves configuration and routes logs to the rotating log file.
func (a *app) setup() error {
	cfg, err := config.LoadClientConfig(a.flags)
	if err != nil {
		return err
	}
	a.cfg = cfg

	w, err := logger.NewFileWriter(logger.FileConfig{Path: cfg.LogFile})
	if err != nil {
		return err
	}
	a.logFile = w
	a.logger = logger.New(logger.Config{
		Writer:  w,
		Format:  "json",
		Level:   logger.ParseLevel(cfg.LogLevel),
		NoColor: true,
	}).Logger

	a.logger.Debug("cli started", "server", cfg.ServerURL, "data_path", cfg.DataPath)
	return nil
}

// owner returns the configured owner or explains how to set one.
func (a *app) owner() (string, error) {
	if a.cfg.Owner == "" {
		return "", domainerrors.Unauthorized("no owner configured: run 'listo login' or pass --owner")
	}
	return a.cfg.Owner, nil
}

// openLocal opens the record store and cursor database.
func (a *app) openLocal() error {
	if a.recs != nil {
		return nil
	}

	records, err := store.New(a.cfg.RecordsPath(), a.logger)
	if err != nil {
		return fmt.Errorf("open local records: %w", err)
	}
	meta, err := sqlite.OpenKV(a.cfg.CursorPath(), a.logger)
	if err != nil {
		_ = records.Close()
		return fmt.Errorf("open sync metadata: %w", err)
	}

	a.records = records
	a.meta = meta
	a.cursor = service.NewSyncCursor(meta)
	a.recs = service.NewRecommendationService(records, a.cursor, validation.New(), a.logger)
	return nil
}

// client returns the HTTP client for the configured server.
func (a *app) client() (*client.Client, error) {
	if a.remote != nil {
		return a.remote, nil
	}
	c, err := client.New(client.Config{
		BaseURL: a.cfg.ServerURL,
		Token:   a.cfg.Token,
		Timeout: a.cfg.HTTPTimeout,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.remote = c
	return c, nil
}

// syncEngine wires the local stores to the server.
func (a *app) syncEngine() (*service.SyncEngine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	if err := a.openLocal(); err != nil {
		return nil, err
	}
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	a.engine = service.NewSyncEngine(a.records, a.cursor, c, a.logger)
	return a.engine, nil
}

// close releases everything opened during the invocation. It is safe to
// call more than once.
func (a *app) close() error {
	var errs []error
	if a.records != nil {
		errs = append(errs, a.records.Close())
		a.records = nil
	}
	if a.meta != nil {
		errs = append(errs, a.meta.Close())
		a.meta = nil
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
		a.logFile = nil
	}
	a.recs = nil
	a.engine = nil
	return errors.Join(errs...)
}

// describe adds a hint to errors the user can act on.
func describe(err error) string {
	if client.IsAuthFailure(err) {
		return err.Error() + " (run 'listo login')"
	}
	if errors.Is(err, domainerrors.ErrSyncInProgress) {
		return "another sync is already running"
	}
	return err.Error()
}
