package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/service"
)

func newSuggestCmd(a *app) *cobra.Command {
	var (
		pick   int
		attach string
		source string
	)

	cmd := &cobra.Command{
		Use:   "suggest <category> <query...>",
		Short: "Look up metadata suggestions on the server",
		Long: `Search the server's metadata sources (TMDB, Google Books, YouTube,
iTunes) for the query. With --pick, the chosen suggestion is enriched and
either added as a new recommendation or attached to the record given by
--attach.`,
		Example: `  listo suggest movie arrival
  listo suggest movie arrival --pick 1 --source "Sam"
  listo suggest book dune --pick 2 --attach rec-V1StG`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			category, err := domain.ParseCategory(args[0])
			if err != nil {
				return domainerrors.Validation(err.Error())
			}
			query := strings.Join(args[1:], " ")

			c, err := a.client()
			if err != nil {
				return err
			}
			suggestions, err := c.Search(ctx, query, category)
			if err != nil {
				return err
			}

			if pick == 0 {
				if a.asJSON {
					return printJSON(a.out, suggestions)
				}
				if len(suggestions) == 0 {
					_, err := fmt.Fprintf(a.out, "No suggestions for %q in %s.\n", query, category)
					return err
				}
				tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				for i, s := range suggestions {
					year := ""
					if s.Year > 0 {
						year = fmt.Sprintf("(%d)", s.Year)
					}
					fmt.Fprintf(tw, "%d.\t%s\t%s\t%s\n", i+1, s.Title, year, s.Subtitle)
				}
				return tw.Flush()
			}

			if pick < 1 || pick > len(suggestions) {
				return domainerrors.Validationf("--pick must be between 1 and %d", len(suggestions))
			}
			chosen := suggestions[pick-1]

			result, err := c.Enrich(ctx, chosen.ID, category)
			if err != nil {
				return err
			}
			if !result.Success {
				return domainerrors.Transportf("enrich %q: %s", chosen.Title, result.Error)
			}

			if attach != "" {
				rec, err := a.lookup(ctx, attach)
				if err != nil {
					return err
				}
				rec, err = a.recs.Update(ctx, rec.OwnerID, rec.ID, &service.UpdateRecommendationRequest{Metadata: result.Metadata})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.out, "Attached %s metadata to %q\n", result.Metadata.Type(), rec.Title)
				return err
			}

			owner, err := a.owner()
			if err != nil {
				return err
			}
			if err := a.openLocal(); err != nil {
				return err
			}
			req := &service.CreateRecommendationRequest{
				Category: string(category),
				Title:    chosen.Title,
				Source:   source,
				Metadata: result.Metadata,
			}
			if base := result.Metadata.Base(); base != nil {
				req.Description = firstNonEmpty(base.Overview, base.Description)
			}
			rec, err := a.recs.Create(ctx, owner, req)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(a.out, rec)
			}
			_, err = fmt.Fprintf(a.out, "Added %s %q (%s)\n", rec.Category, rec.Title, rec.ID)
			return err
		},
	}

	f := cmd.Flags()
	f.IntVarP(&pick, "pick", "p", 0, "number of the suggestion to use")
	f.StringVar(&attach, "attach", "", "attach the metadata to this record instead of adding a new one")
	f.StringVarP(&source, "source", "s", "", "who recommended it, for new records")
	cmd.MarkFlagsMutuallyExclusive("attach", "source")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
