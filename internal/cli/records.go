package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/service"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		req    service.CreateRecommendationRequest
		rating int
	)

	cmd := &cobra.Command{
		Use:   "add <category> <title...>",
		Short: "Record a new recommendation",
		Long: `Record a new recommendation. The change is stored locally and pushed
on the next sync. Run "listo categories" for the list of categories.`,
		Example: `  listo add movie Arrival --source "Sam" --tags sci-fi
  listo add book "The Left Hand of Darkness" -r 5`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := a.owner()
			if err != nil {
				return err
			}
			if err := a.openLocal(); err != nil {
				return err
			}

			req.Category = args[0]
			req.Title = strings.Join(args[1:], " ")
			if cmd.Flags().Changed("rating") {
				req.Rating = &rating
			}

			rec, err := a.recs.Create(cmd.Context(), owner, &req)
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
	f.StringVarP(&req.Description, "description", "d", "", "longer description")
	f.StringVarP(&req.Tags, "tags", "t", "", "comma separated tags")
	f.StringVarP(&req.Source, "source", "s", "", "who recommended it")
	f.StringVar(&req.Review, "review", "", "your review")
	f.IntVarP(&rating, "rating", "r", 0, "rating from 1 to 5")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recommendations",
		Long:    `List recommendations, most recently updated first. Deleted records are hidden.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := a.owner()
			if err != nil {
				return err
			}
			if err := a.openLocal(); err != nil {
				return err
			}

			var recs []*domain.LocalRecommendation
			if category != "" {
				recs, err = a.recs.ListByCategory(cmd.Context(), owner, category)
			} else {
				recs, err = a.recs.ListActive(cmd.Context(), owner)
			}
			if err != nil {
				return err
			}
			return a.printList(recs)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only list this category")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Search titles, descriptions and tags",
		Long:  `Search local recommendations. Matching ignores case, so "dune" finds "Dune".`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := a.owner()
			if err != nil {
				return err
			}
			if err := a.openLocal(); err != nil {
				return err
			}

			recs, err := a.recs.Search(cmd.Context(), owner, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.printList(recs)
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recommendation",
		Long:  `Show every field of a recommendation. A unique id prefix is enough.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(a.out, rec)
			}
			return printRecord(a.out, rec)
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var (
		category, title, description string
		tags, source, review         string
		rating                       int
		clearRating, clearMetadata   bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a recommendation",
		Long:  `Change the fields given as flags. Fields without a flag are left alone.`,
		Example: `  listo edit rec-V1StG --title "Arrival (2016)"
  listo edit rec-V1StG --clear-rating`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			f := cmd.Flags()
			req := &service.UpdateRecommendationRequest{
				ClearRating:   clearRating,
				ClearMetadata: clearMetadata,
			}
			changed := func(name string, dst **string, v *string) {
				if f.Changed(name) {
					*dst = v
				}
			}
			changed("category", &req.Category, &category)
			changed("title", &req.Title, &title)
			changed("description", &req.Description, &description)
			changed("tags", &req.Tags, &tags)
			changed("source", &req.Source, &source)
			changed("review", &req.Review, &review)
			if f.Changed("rating") {
				req.Rating = &rating
			}

			updated, err := a.recs.Update(cmd.Context(), rec.OwnerID, rec.ID, req)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(a.out, updated)
			}
			_, err = fmt.Fprintf(a.out, "Updated %q (%s)\n", updated.Title, updated.ID)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&category, "category", "c", "", "new category")
	f.StringVar(&title, "title", "", "new title")
	f.StringVarP(&description, "description", "d", "", "new description")
	f.StringVarP(&tags, "tags", "t", "", "new comma separated tags")
	f.StringVarP(&source, "source", "s", "", "who recommended it")
	f.StringVar(&review, "review", "", "your review")
	f.IntVarP(&rating, "rating", "r", 0, "rating from 1 to 5")
	f.BoolVar(&clearRating, "clear-rating", false, "remove the rating")
	f.BoolVar(&clearMetadata, "clear-metadata", false, "remove attached metadata")
	cmd.MarkFlagsMutuallyExclusive("rating", "clear-rating")
	return cmd
}

func newDoneCmd(a *app) *cobra.Command {
	var (
		review string
		rating int
		undo   bool
	)

	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a recommendation as done",
		Long:  `Mark a recommendation as watched, read, visited or otherwise done, optionally with a review.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if undo {
				rec, err = a.recs.Reopen(cmd.Context(), rec.OwnerID, rec.ID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.out, "Reopened %q\n", rec.Title)
				return err
			}

			req := &service.CompleteRecommendationRequest{Review: review}
			if cmd.Flags().Changed("rating") {
				req.Rating = &rating
			}
			rec, err = a.recs.Complete(cmd.Context(), rec.OwnerID, rec.ID, req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "Done: %q\n", rec.Title)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&review, "review", "", "your review")
	f.IntVarP(&rating, "rating", "r", 0, "rating from 1 to 5")
	f.BoolVar(&undo, "undo", false, "mark as not done again")
	cmd.MarkFlagsMutuallyExclusive("undo", "review")
	cmd.MarkFlagsMutuallyExclusive("undo", "rating")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a recommendation",
		Long:    `Delete a recommendation. The deletion reaches other devices on the next sync.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec.IsDeleted() {
				return domainerrors.NotFoundf("recommendation %s not found", rec.ID)
			}
			if err := a.recs.Delete(cmd.Context(), rec.OwnerID, rec.ID); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "Deleted %q\n", rec.Title)
			return err
		},
	}
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the recommendation categories",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			names := domain.CategoryNames()
			if a.asJSON {
				return printJSON(a.out, names)
			}
			_, err := fmt.Fprintln(a.out, strings.Join(names, "\n"))
			return err
		},
	}
}

func (a *app) printList(recs []*domain.LocalRecommendation) error {
	if a.asJSON {
		if recs == nil {
			recs = []*domain.LocalRecommendation{}
		}
		return printJSON(a.out, recs)
	}
	return printTable(a.out, recs)
}

// lookup finds the owner's record by full id or unique id prefix.
func (a *app) lookup(ctx context.Context, ref string) (*domain.LocalRecommendation, error) {
	owner, err := a.owner()
	if err != nil {
		return nil, err
	}
	if err := a.openLocal(); err != nil {
		return nil, err
	}

	rec, err := a.recs.Get(ctx, owner, ref)
	if err == nil {
		return rec, nil
	}
	if domainerrors.CodeOf(err) != domainerrors.CodeNotFound {
		return nil, err
	}

	all, lerr := a.records.ListAllForSync(ctx, owner)
	if lerr != nil {
		return nil, lerr
	}
	var matches []*domain.LocalRecommendation
	for _, r := range all {
		if strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return nil, err
	case 1:
		return matches[0], nil
	default:
		return nil, domainerrors.Validationf("id prefix %q matches %d recommendations", ref, len(matches))
	}
}
