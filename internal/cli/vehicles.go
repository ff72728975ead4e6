package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/service"
)

func newStatusCommand(ctx context.Context, a *app) *cobra.Command {
	var total int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether each vehicle is present or away.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			d, err := svc.Dashboard(ctx, total)
			if err != nil {
				return err
			}
			writeDashboard(cmd.OutOrStdout(), d, a.keyColumn)
			return nil
		},
	}

	cmd.Flags().IntVar(&total, "total", 0, "Fleet size used by the summary (default: from the roster)")

	return cmd
}

func newCheckOutCommand(ctx context.Context, a *app) *cobra.Command {
	return newRecordCommand(ctx, a, "check-out", "Record that a vehicle left.",
		(*service.JournalService).CheckOut)
}

func newCheckInCommand(ctx context.Context, a *app) *cobra.Command {
	return newRecordCommand(ctx, a, "check-in", "Record that a vehicle came back.",
		(*service.JournalService).CheckIn)
}

type recordFunc func(s *service.JournalService, ctx context.Context, id domain.VehicleID, at *time.Time) (service.VehicleStatus, error)

func newRecordCommand(ctx context.Context, a *app, use, short string, action recordFunc) *cobra.Command {
	var atFlag string

	cmd := &cobra.Command{
		Use:   use + " <vehicle-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := domain.ParseTimestamp(atFlag, a.location())
			if err != nil {
				return fmt.Errorf("parse --at: %w", err)
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			st, err := action(svc, ctx, domain.VehicleID(args[0]), at)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", st.Vehicle.ID, describeStatus(st))
			return nil
		},
	}

	cmd.Flags().StringVar(&atFlag, "at", "", `Time as "HH:MM:SS DD.MM.YYYY" (default: now)`)

	return cmd
}

func describeStatus(st service.VehicleStatus) string {
	if st.Status.Present {
		if st.LastCheckInAt == nil {
			return "present"
		}
		return "present since " + domain.DisplayTimestamp(st.LastCheckInAt)
	}
	return "away since " + domain.DisplayTimestamp(st.Status.Since)
}

func writeDashboard(w io.Writer, d service.Dashboard, keyColumn string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Footer = text.FormatDefault
	if d.Title != "" {
		tw.SetTitle(d.Title)
	}

	header := table.Row{}
	for _, col := range d.Columns {
		header = append(header, col)
	}
	header = append(header, "Status", domain.ColumnCheckOut, domain.ColumnCheckIn)
	tw.AppendHeader(header)

	for _, v := range d.Vehicles {
		row := table.Row{}
		for _, col := range d.Columns {
			row = append(row, v.Vehicle.Field(col))
		}
		status := text.Colors{text.FgGreen}.Sprint("present")
		if !v.Status.Present {
			status = text.Colors{text.FgRed}.Sprint("away")
		}
		row = append(row, status,
			domain.DisplayTimestamp(v.LastCheckOutAt),
			domain.DisplayTimestamp(v.LastCheckInAt),
		)
		tw.AppendRow(row)
	}

	s := d.Summary
	tw.AppendFooter(table.Row{fmt.Sprintf("Total %d, checked out %d, present %d", s.Total, s.CheckedOut, s.Present)})
	tw.Render()

	if len(d.Orphans) > 0 {
		fmt.Fprintf(w, "Not on the roster (%s): %d vehicle(s) with history\n", keyColumn, len(d.Orphans))
	}
}
