package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"github.com/listoapp/listo/internal/domain"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable lists records one per row.
func printTable(w io.Writer, recs []*domain.LocalRecommendation) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No recommendations.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tTITLE\tRATING\tSTATE")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Category, truncate(r.Title, 48), stars(r.Rating), recordState(r))
	}
	return tw.Flush()
}

// printRecord shows every field of one record.
func printRecord(w io.Writer, r *domain.LocalRecommendation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", label, value)
		}
	}

	row("ID", r.ID)
	row("Category", string(r.Category))
	row("Title", r.Title)
	row("Description", r.Description)
	row("Tags", r.Tags)
	row("Source", r.Source)
	row("Rating", stars(r.Rating))
	row("Review", r.Review)
	row("State", recordState(r))
	row("Created", formatTime(r.CreatedAt))
	row("Updated", formatTime(r.UpdatedAt))
	if r.CompletedAt != nil {
		row("Completed", formatTime(*r.CompletedAt))
	}
	if r.DeletedAt != nil {
		row("Deleted", formatTime(*r.DeletedAt))
	}
	row("Sync error", r.SyncError)
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Metadata != nil {
		data, err := json.MarshalIndent(r.Metadata, "", "  ")
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		fmt.Fprintf(w, "Metadata:\n%s\n", data)
	}
	return nil
}

// recordState is "done" or "open", with "unsynced" or "sync failed" when
// the record has local changes the server has not accepted.
func recordState(r *domain.LocalRecommendation) string {
	var parts []string
	switch {
	case r.IsDeleted():
		parts = append(parts, "deleted")
	case r.IsCompleted():
		parts = append(parts, "done")
	default:
		parts = append(parts, "open")
	}
	switch {
	case r.SyncError != "":
		parts = append(parts, "sync failed")
	case !r.Synced:
		parts = append(parts, "unsynced")
	}
	return strings.Join(parts, ", ")
}

func stars(rating *int) string {
	if rating == nil {
		return ""
	}
	return strings.Repeat("*", *rating) + " (" + strconv.Itoa(*rating) + "/5)"
}

func formatTime(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).Local().Format(time.DateTime)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
