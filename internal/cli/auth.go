package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/listoapp/listo/internal/config"
	domainerrors "github.com/listoapp/listo/internal/errors"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		secret string
		stored = -1
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a listo server",
		Long: `Sign in and remember the server, owner and token for later commands.

Pass an existing token with --token, or ask the server for one with
--owner and --secret when the server has a bootstrap secret configured.`,
		Example: `  listo login --server https://listo.example.com --token v4.local.AAAA...
  listo login --owner alice --secret "$LISTO_BOOTSTRAP_SECRET"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("LISTO_BOOTSTRAP_SECRET")
			}

			c, err := a.client()
			if err != nil {
				return err
			}

			creds := &config.Credentials{ServerURL: c.BaseURL()}
			switch {
			case secret != "":
				if a.cfg.Owner == "" {
					return domainerrors.Validation("--owner is required with --secret")
				}
				issued, err := c.IssueToken(cmd.Context(), a.cfg.Owner, secret)
				if err != nil {
					return err
				}
				creds.Token = issued.AccessToken
				creds.Owner = issued.OwnerID
				creds.ExpiresAt = issued.ExpiresAt
			case a.cfg.Token != "":
				c.SetToken(a.cfg.Token)
				ident, err := c.Me(cmd.Context())
				if err != nil {
					return err
				}
				creds.Token = a.cfg.Token
				creds.Owner = ident.OwnerID
				creds.ExpiresAt = ident.ExpiresAt
				stored = ident.Recommendations
			default:
				return domainerrors.Validation("pass --token, or --owner with --secret")
			}

			if err := config.SaveCredentials(a.cfg.CredentialsPath, creds); err != nil {
				return err
			}
			a.logger.Info("logged in", "owner", creds.Owner, "server", creds.ServerURL)

			_, err = fmt.Fprintf(a.out, "Logged in to %s as %s\n", creds.ServerURL, creds.Owner)
			if err == nil && creds.ExpiresAt > 0 {
				_, err = fmt.Fprintf(a.out, "Token expires %s\n", formatTime(creds.ExpiresAt))
			}
			if err == nil && stored >= 0 {
				_, err = fmt.Fprintf(a.out, "The server holds %d recommendation(s) for you; run 'listo sync' to fetch them\n", stored)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "server bootstrap secret (env LISTO_BOOTSTRAP_SECRET)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and erase local data",
		Long: `Forget the saved token and erase every locally stored recommendation
along with every sync cursor. The data directory is shared by all owners
who log in on this device, so all of their records go. Unsynced changes
are lost, so logout refuses to run while any owner has some unless
--force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.openLocal(); err != nil {
				return err
			}
			dirty, err := a.recs.Unsynced(cmd.Context())
			if err != nil {
				return err
			}
			if dirty > 0 && !force {
				return domainerrors.Conflict(fmt.Sprintf(
					"%d unsynced change(s) would be lost: run 'listo sync' first or pass --force", dirty))
			}
			if err := a.recs.Reset(cmd.Context()); err != nil {
				return err
			}

			if err := config.ClearCredentials(a.cfg.CredentialsPath); err != nil {
				return err
			}
			a.logger.Info("logged out", "owner", a.cfg.Owner)

			_, err = fmt.Fprintln(a.out, "Logged out. Local data erased.")
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "discard unsynced changes")
	return cmd
}
