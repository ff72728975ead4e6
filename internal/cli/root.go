// Package cli implements fleetctl, the terminal front end of the fleet journal.
// Every command works on the same journal file as the API server.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkordes/fleet-journal/internal/config"
	"github.com/pkordes/fleet-journal/internal/repo"
	"github.com/pkordes/fleet-journal/internal/service"
)

// Options carries the dependencies of the command tree.
type Options struct {
	Config config.Config
	Logger *slog.Logger
	Now    func() time.Time
}

// app holds the values of the persistent flags.
type app struct {
	opts        Options
	rosterPath  string
	journalPath string
	keyColumn   string
}

// NewRootCommand creates the top-level Cobra command hosting every subcommand.
func NewRootCommand(ctx context.Context, opts Options) *cobra.Command {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &app{opts: opts}

	cmd := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Record vehicle check-outs and check-ins from your terminal.",
		Long:          "fleetctl keeps a journal of departures and returns for every vehicle of a roster.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cfg := opts.Config
	cmd.PersistentFlags().StringVar(&a.rosterPath, "roster", cfg.RosterPath, "Roster file (.csv or .xlsx)")
	cmd.PersistentFlags().StringVar(&a.journalPath, "journal", cfg.JournalPath, "Journal CSV file")
	cmd.PersistentFlags().StringVar(&a.keyColumn, "key-column", cfg.KeyColumn, "Roster column identifying vehicles")

	cmd.AddCommand(
		newStatusCommand(ctx, a),
		newCheckOutCommand(ctx, a),
		newCheckInCommand(ctx, a),
		newClearCommand(ctx, a),
		newClearCheckedInCommand(ctx, a),
		newJournalCommand(ctx, a),
		newSummaryCommand(ctx, a),
	)

	return cmd
}

// service opens the journal and, when a roster file is configured, loads it.
// Commands that act on vehicles fail later with domain.ErrNoRoster without one.
func (a *app) service(ctx context.Context) (*service.JournalService, error) {
	if a.journalPath == "" {
		return nil, fmt.Errorf("journal path is required (--journal or JOURNAL_PATH)")
	}
	opts := repo.Options{KeyColumn: a.keyColumn, Location: a.opts.Config.Location, Logger: a.opts.Logger}
	svc := service.NewJournalService(repo.NewFileJournalRepo(a.journalPath, opts), service.Options{
		KeyColumn:   a.keyColumn,
		ClearPolicy: a.opts.Config.ClearPolicy,
		Location:    a.opts.Config.Location,
		Now:         a.opts.Now,
		Logger:      a.opts.Logger,
	})
	if a.rosterPath != "" {
		if _, err := svc.LoadRosterFile(ctx, a.rosterPath); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func (a *app) location() *time.Location {
	if a.opts.Config.Location != nil {
		return a.opts.Config.Location
	}
	return time.Local
}

// ExecuteCommand loads the configuration and executes the root command.
func ExecuteCommand(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	// Warnings and above only, unless LOG_LEVEL=debug.
	level = max(level, slog.LevelWarn)
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return NewRootCommand(ctx, Options{Config: cfg, Logger: logger}).Execute()
}

// Main is used by cmd/fleetctl/main.go to keep wiring contained in one package.
func Main(ctx context.Context) {
	if err := ExecuteCommand(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
