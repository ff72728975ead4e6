// Package repo is the persistence boundary of the fleet journal.
// A JournalRepo loads the whole flat journal and saves it back in full;
// there is no partial update. Two backends exist: a CSV file and Postgres.
package repo

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkordes/fleet-journal/internal/domain"
)

// JournalRepo loads and saves the flat journal.
// The service layer depends on this interface, not on a backend, which
// allows the service to be unit-tested with a mock.
type JournalRepo interface {
	// Load returns every stored event as one row. A missing or empty store
	// yields an empty table, not an error. Unparseable timestamps are loaded
	// as unset.
	Load(ctx context.Context) (domain.JournalTable, error)

	// Save replaces the stored journal with t. Either all of t is stored or
	// the previous content is left untouched.
	Save(ctx context.Context, t domain.JournalTable) error
}

// Options configures how stored rows map onto domain values.
type Options struct {
	// KeyColumn is the column holding the vehicle identifier.
	KeyColumn string

	// Location is the zone timestamps are read and written in. Defaults to time.Local.
	Location *time.Location

	// Logger receives warnings about recovered data problems. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
