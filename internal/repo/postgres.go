package repo

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/fleet-journal/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
// On a pgx.Tx, Begin opens a savepoint.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// pgJournalRepo is the Postgres implementation of JournalRepo.
// Column order lives in journal_columns; each event is one journal_events row
// with its descriptive columns as a jsonb object.
type pgJournalRepo struct {
	db   db
	opts Options
}

// NewPostgresJournalRepo constructs a JournalRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPostgresJournalRepo(db db, opts Options) JournalRepo {
	return &pgJournalRepo{db: db, opts: opts.withDefaults()}
}

// Load reads the column list and every event in stored order.
func (r *pgJournalRepo) Load(ctx context.Context) (domain.JournalTable, error) {
	t := domain.JournalTable{KeyColumn: r.opts.KeyColumn}

	cols, err := r.loadColumns(ctx)
	if err != nil {
		return domain.JournalTable{}, fmt.Errorf("repo.PostgresJournalRepo.Load: %w", err)
	}
	t.Columns = cols

	const q = `
		SELECT id, vehicle_id, fields, check_out_at, check_in_at
		FROM journal_events
		ORDER BY position`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return domain.JournalTable{}, fmt.Errorf("repo.PostgresJournalRepo.Load: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		row, err := r.scanRow(rows)
		if err != nil {
			return domain.JournalTable{}, fmt.Errorf("repo.PostgresJournalRepo.Load: scan: %w", err)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return domain.JournalTable{}, fmt.Errorf("repo.PostgresJournalRepo.Load: rows: %w", err)
	}
	if len(t.Rows) > 0 && !slices.Contains(t.Columns, t.KeyColumn) {
		t.Columns = append([]string{t.KeyColumn}, t.Columns...)
	}
	return t, nil
}

// Save replaces both tables inside one transaction. COPY is used for the
// events because a full rewrite happens after every action.
func (r *pgJournalRepo) Save(ctx context.Context, t domain.JournalTable) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.PostgresJournalRepo.Save: begin: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM journal_events`); err != nil {
		return fmt.Errorf("repo.PostgresJournalRepo.Save: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM journal_columns`); err != nil {
		return fmt.Errorf("repo.PostgresJournalRepo.Save: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"journal_columns"},
		[]string{"position", "name"},
		pgx.CopyFromSlice(len(t.Columns), func(i int) ([]any, error) {
			return []any{i, t.Columns[i]}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("repo.PostgresJournalRepo.Save: columns: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"journal_events"},
		[]string{"id", "position", "vehicle_id", "fields", "check_out_at", "check_in_at"},
		pgx.CopyFromSlice(len(t.Rows), func(i int) ([]any, error) {
			row := t.Rows[i]
			id := row.Event.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			fields := row.Vehicle.Fields
			if fields == nil {
				fields = map[string]string{}
			}
			return []any{
				id,
				i,
				string(row.Vehicle.ID),
				fields,
				row.Event.CheckOutAt, // nil becomes NULL
				row.Event.CheckInAt,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("repo.PostgresJournalRepo.Save: events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.PostgresJournalRepo.Save: commit: %w", err)
	}
	return nil
}

func (r *pgJournalRepo) loadColumns(ctx context.Context) ([]string, error) {
	const q = `SELECT name FROM journal_columns ORDER BY position`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	cols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	return cols, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRow maps one journal_events row into a domain.JournalRow, converting
// the nullable timestamps into the configured location.
func (r *pgJournalRepo) scanRow(s scanner) (domain.JournalRow, error) {
	var (
		id        pgtype.UUID
		vehicleID string
		fields    map[string]string
		checkOut  pgtype.Timestamptz
		checkIn   pgtype.Timestamptz
	)
	if err := s.Scan(&id, &vehicleID, &fields, &checkOut, &checkIn); err != nil {
		return domain.JournalRow{}, err
	}
	if fields == nil {
		fields = map[string]string{}
	}
	if _, ok := fields[r.opts.KeyColumn]; !ok {
		fields[r.opts.KeyColumn] = vehicleID
	}

	row := domain.JournalRow{
		Vehicle: domain.Vehicle{ID: domain.VehicleID(vehicleID), Fields: fields},
		Event:   domain.Event{ID: uuid.UUID(id.Bytes)},
	}
	if checkOut.Valid {
		t := checkOut.Time.In(r.opts.Location)
		row.Event.CheckOutAt = &t
	}
	if checkIn.Valid {
		t := checkIn.Time.In(r.opts.Location)
		row.Event.CheckInAt = &t
	}
	return row, nil
}
