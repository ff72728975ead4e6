package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/export"
)

var journalFormats = []string{"table", "csv", "xlsx", "json"}

func newJournalCommand(ctx context.Context, a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print or export the journal, most recent check-out first.",
		Long: "journal renders every recorded event. --format xlsx writes a workbook to --output, " +
			"or to events_DD-MM-YYYY_HH-MM-SS.xlsx in the current directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(journalFormats, format) {
				return fmt.Errorf("invalid format: %s (valid values: %s)", format, strings.Join(journalFormats, ", "))
			}
			if format == "xlsx" && output == "" {
				output = export.Filename(a.opts.Now())
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			t, err := svc.Journal(ctx)
			if err != nil {
				return err
			}
			if len(t.Rows) == 0 && (format == "table" || format == "xlsx") {
				fmt.Fprintln(cmd.OutOrStdout(), "Journal is empty")
				return nil
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			if err := writeJournal(w, t, format); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d event(s) to %s\n", len(t.Rows), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, csv, xlsx or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}

func writeJournal(w io.Writer, t domain.JournalTable, format string) error {
	switch format {
	case "table":
		export.WriteTable(w, t)
		return nil
	case "csv":
		return export.WriteCSV(w, t)
	case "xlsx":
		return export.WriteXLSX(w, t)
	case "json":
		return writeJournalJSON(w, t)
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, csv, xlsx, json)", format)
	}
}

// writeJournalJSON writes one object per event keyed by column title.
func writeJournalJSON(w io.Writer, t domain.JournalTable) error {
	records := export.Records(t)
	header := records[0]
	out := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		item := make(map[string]string, len(header))
		for i, col := range header {
			item[col] = rec[i]
		}
		out = append(out, item)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func newClearCommand(ctx context.Context, a *app) *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the journal.",
		Long: "clear drops recorded events. With --policy keep-open vehicles that are away stay away; " +
			"with --policy all every event is dropped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var p domain.ClearPolicy
			if policy != "" {
				parsed, err := domain.ParseClearPolicy(policy)
				if err != nil {
					return err
				}
				p = parsed
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			if err := svc.Clear(ctx, p); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Journal cleared")
			return nil
		},
	}

	cmd.Flags().StringVar(&policy, "policy", "", "keep-open or all (default: CLEAR_POLICY)")

	return cmd
}

func newClearCheckedInCommand(ctx context.Context, a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-checked-in",
		Short: "Drop completed trips, keeping vehicles that are away.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			if err := svc.ClearCheckedIn(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Checked-in events cleared")
			return nil
		},
	}
}

func newSummaryCommand(ctx context.Context, a *app) *cobra.Command {
	var total int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Count vehicles by presence.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			s, err := svc.Summary(ctx, total)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nChecked out: %d\nPresent: %d\n", s.Total, s.CheckedOut, s.Present)
			return nil
		},
	}

	cmd.Flags().IntVar(&total, "total", 0, "Fleet size (default: from the roster)")

	return cmd
}
