package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/listoapp/listo/internal/service"
	"github.com/listoapp/listo/internal/store"
)

func newSyncCmd(a *app) *cobra.Command {
	var (
		full     bool
		pullOnly bool
		pushOnly bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize with the server",
		Long: `Pull changes from the server since the last sync, merge them by
last-write-wins, then push local changes. Records the server rejects keep
their changes and show the reason in "listo show".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := a.owner()
			if err != nil {
				return err
			}
			engine, err := a.syncEngine()
			if err != nil {
				return err
			}

			var report *service.SyncReport
			switch {
			case pullOnly:
				report, err = engine.Pull(cmd.Context(), owner, full)
			case pushOnly:
				report, err = engine.Push(cmd.Context(), owner)
			default:
				report, err = engine.FullSync(cmd.Context(), owner, full)
			}
			if report != nil && (err == nil || a.asJSON) {
				if perr := a.printReport(report); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.BoolVar(&full, "full", false, "ignore the sync cursor and pull everything")
	f.BoolVar(&pullOnly, "pull", false, "only pull")
	f.BoolVar(&pushOnly, "push", false, "only push")
	cmd.MarkFlagsMutuallyExclusive("pull", "push")
	cmd.MarkFlagsMutuallyExclusive("full", "push")
	return cmd
}

func (a *app) printReport(r *service.SyncReport) error {
	if a.asJSON {
		return printJSON(a.out, r)
	}
	fmt.Fprintf(a.out, "Pulled %d (%d new, %d updated, %d unchanged)\n", r.Pulled, r.Inserted, r.Updated, r.Skipped)
	fmt.Fprintf(a.out, "Pushed %d (%d accepted, %d rejected)\n", r.Pushed, r.Accepted, r.Rejected)
	if r.Rejected > 0 {
		fmt.Fprintln(a.out, `Run "listo list" to find records marked "sync failed".`)
	}
	return nil
}

type statusReport struct {
	Server     string      `json:"server"`
	Owner      string      `json:"owner"`
	DataPath   string      `json:"data_path"`
	LastPulled int64       `json:"last_pulled_at"`
	Records    store.Stats `json:"records"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := a.owner()
			if err != nil {
				return err
			}
			if err := a.openLocal(); err != nil {
				return err
			}

			st := statusReport{
				Server:   a.cfg.ServerURL,
				Owner:    owner,
				DataPath: a.cfg.DataPath,
			}
			if st.LastPulled, err = a.cursor.Get(cmd.Context(), owner); err != nil {
				return err
			}
			if st.Records, err = a.recs.Stats(cmd.Context(), owner); err != nil {
				return err
			}

			if a.asJSON {
				return printJSON(a.out, st)
			}

			last := "never"
			if st.LastPulled > 0 {
				last = formatTime(st.LastPulled)
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Server:\t%s\n", st.Server)
			fmt.Fprintf(tw, "Owner:\t%s\n", st.Owner)
			fmt.Fprintf(tw, "Data:\t%s\n", st.DataPath)
			fmt.Fprintf(tw, "Last pulled:\t%s\n", last)
			fmt.Fprintf(tw, "Active:\t%d\n", st.Records.Active)
			fmt.Fprintf(tw, "Deleted:\t%d\n", st.Records.Deleted)
			fmt.Fprintf(tw, "Unsynced:\t%d\n", st.Records.Dirty)
			fmt.Fprintf(tw, "Sync failed:\t%d\n", st.Records.Errored)
			return tw.Flush()
		},
	}
}
