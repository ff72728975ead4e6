// Package service contains the business logic of the fleet journal.
// Each exported method is one user action. Actions are serialized: each
// loads the persisted journal, applies its change and persists the result
// before the next action starts.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/repo"
	"github.com/pkordes/fleet-journal/internal/roster"
)

// Options configures a JournalService. Zero values select the defaults.
type Options struct {
	// KeyColumn is the roster column identifying vehicles. Defaults to "Plate".
	KeyColumn string

	// ClearPolicy is used by Clear when the caller passes no policy.
	// Defaults to domain.ClearKeepOpen.
	ClearPolicy domain.ClearPolicy

	// Location is the zone of recorded timestamps. Defaults to time.Local.
	Location *time.Location

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultKeyColumn identifies vehicles by licence plate.
const DefaultKeyColumn = "Plate"

// VehicleStatus is the dashboard line of one roster vehicle.
type VehicleStatus struct {
	Vehicle        domain.Vehicle
	Status         domain.Status
	State          domain.EventState
	LastCheckOutAt *time.Time
	LastCheckInAt  *time.Time
	Events         int
}

// Dashboard is the status of every roster vehicle, in roster order.
type Dashboard struct {
	Title    string
	Columns  []string
	Vehicles []VehicleStatus
	Orphans  []domain.VehicleID
	Summary  domain.Summary
}

// RosterView describes the loaded roster.
type RosterView struct {
	Roster  *domain.Roster
	Orphans []domain.VehicleID
}

// JournalService implements the check-out/check-in workflow.
// It is safe for concurrent use; actions run one at a time.
type JournalService struct {
	mu     sync.Mutex
	repo   repo.JournalRepo
	reader *roster.Reader
	roster *domain.Roster

	policy domain.ClearPolicy
	loc    *time.Location
	now    func() time.Time
	log    *slog.Logger
}

// NewJournalService constructs a JournalService persisting through r.
func NewJournalService(r repo.JournalRepo, opts Options) *JournalService {
	if opts.KeyColumn == "" {
		opts.KeyColumn = DefaultKeyColumn
	}
	if opts.ClearPolicy == "" {
		opts.ClearPolicy = domain.ClearKeepOpen
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &JournalService{
		repo:   r,
		reader: roster.NewReader(opts.KeyColumn),
		policy: opts.ClearPolicy,
		loc:    opts.Location,
		now:    opts.Now,
		log:    opts.Logger,
	}
}

// LoadRoster parses src and makes it the current roster. On error the
// previous roster stays in place.
func (s *JournalService) LoadRoster(ctx context.Context, src io.Reader, format roster.Format) (RosterView, error) {
	r, err := s.reader.Read(src, format)
	if err != nil {
		return RosterView{}, fmt.Errorf("service.JournalService.LoadRoster: %w", err)
	}
	return s.setRoster(ctx, r)
}

// LoadRosterFile is LoadRoster for a .csv or .xlsx file on disk.
func (s *JournalService) LoadRosterFile(ctx context.Context, path string) (RosterView, error) {
	r, err := s.reader.ReadFile(path)
	if err != nil {
		return RosterView{}, fmt.Errorf("service.JournalService.LoadRosterFile: %w", err)
	}
	return s.setRoster(ctx, r)
}

func (s *JournalService) setRoster(ctx context.Context, r *domain.Roster) (RosterView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.load(ctx)
	if err != nil {
		return RosterView{}, fmt.Errorf("service.JournalService.LoadRoster: %w", err)
	}
	j.Reconcile(r)
	s.roster = r

	orphans := j.Orphans()
	s.log.InfoContext(ctx, "roster loaded",
		"title", r.Title, "vehicles", len(r.Vehicles), "orphans", len(orphans))
	return RosterView{Roster: r, Orphans: orphans}, nil
}

// Roster returns the current roster and the vehicles only known from history.
// Returns domain.ErrNoRoster before a roster is loaded.
func (s *JournalService) Roster(ctx context.Context) (RosterView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.loadWithRoster(ctx)
	if err != nil {
		return RosterView{}, fmt.Errorf("service.JournalService.Roster: %w", err)
	}
	return RosterView{Roster: s.roster, Orphans: j.Orphans()}, nil
}

// Dashboard returns the status of every roster vehicle and the summary.
// totalOverride replaces the fleet size when positive.
func (s *JournalService) Dashboard(ctx context.Context, totalOverride int) (Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.loadWithRoster(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("service.JournalService.Dashboard: %w", err)
	}

	d := Dashboard{
		Title:    s.roster.Title,
		Columns:  s.roster.Columns,
		Vehicles: make([]VehicleStatus, 0, len(s.roster.Vehicles)),
		Orphans:  j.Orphans(),
		Summary:  j.Summary(totalOverride),
	}
	for _, v := range s.roster.Vehicles {
		seq, ok := j.Lookup(v.ID)
		if !ok {
			seq = &domain.LogSequence{}
		}
		d.Vehicles = append(d.Vehicles, statusOf(v, seq))
	}
	return d, nil
}

// CheckOut records a departure of id at at, or now when at is nil.
// Returns domain.ErrNotFound when id is not on the roster.
func (s *JournalService) CheckOut(ctx context.Context, id domain.VehicleID, at *time.Time) (VehicleStatus, error) {
	st, err := s.record(ctx, id, eventCheckOut, at)
	if err != nil {
		return VehicleStatus{}, fmt.Errorf("service.JournalService.CheckOut: %w", err)
	}
	return st, nil
}

// CheckIn records a return of id at at, or now when at is nil. Checking in
// a vehicle that is not away changes nothing.
// Returns domain.ErrNotFound when id is not on the roster.
func (s *JournalService) CheckIn(ctx context.Context, id domain.VehicleID, at *time.Time) (VehicleStatus, error) {
	st, err := s.record(ctx, id, eventCheckIn, at)
	if err != nil {
		return VehicleStatus{}, fmt.Errorf("service.JournalService.CheckIn: %w", err)
	}
	return st, nil
}

func (s *JournalService) record(ctx context.Context, id domain.VehicleID, event string, at *time.Time) (VehicleStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.loadWithRoster(ctx)
	if err != nil {
		return VehicleStatus{}, err
	}
	v, ok := s.roster.Lookup(id)
	if !ok {
		return VehicleStatus{}, fmt.Errorf("%w: vehicle %q is not on the roster", domain.ErrNotFound, id)
	}

	seq := j.Sequence(id)
	applied, err := fire(ctx, newEventMachine(seq.State(), s.log, id), event)
	if err != nil {
		return VehicleStatus{}, err
	}
	if !applied {
		s.log.InfoContext(ctx, "check-in ignored, vehicle is present", "vehicle_id", id)
		return statusOf(v, seq), nil
	}

	t := s.stamp(at)
	switch event {
	case eventCheckOut:
		seq.CheckOut(t)
	case eventCheckIn:
		seq.CheckIn(t)
	}

	if err := s.save(ctx, j); err != nil {
		return VehicleStatus{}, err
	}
	s.log.InfoContext(ctx, "vehicle "+event, "vehicle_id", id, "at", domain.FormatTimestamp(&t))
	return statusOf(v, seq), nil
}

// Clear drops the history of every vehicle according to policy; an empty
// policy selects the configured default.
func (s *JournalService) Clear(ctx context.Context, policy domain.ClearPolicy) error {
	if policy == "" {
		policy = s.policy
	}
	err := s.mutate(ctx, func(j *domain.Journal) { j.ClearAll(policy) })
	if err != nil {
		return fmt.Errorf("service.JournalService.Clear: %w", err)
	}
	s.log.InfoContext(ctx, "journal cleared", "policy", policy)
	return nil
}

// ClearCheckedIn drops every completed event, keeping vehicles that are away.
func (s *JournalService) ClearCheckedIn(ctx context.Context) error {
	if err := s.mutate(ctx, (*domain.Journal).ClearCheckedIn); err != nil {
		return fmt.Errorf("service.JournalService.ClearCheckedIn: %w", err)
	}
	s.log.InfoContext(ctx, "checked-in events cleared")
	return nil
}

// Journal returns the flat journal, most recent check-out first. It does
// not need a roster: without one every vehicle is described by its history.
func (s *JournalService) Journal(ctx context.Context) (domain.JournalTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.load(ctx)
	if err != nil {
		return domain.JournalTable{}, fmt.Errorf("service.JournalService.Journal: %w", err)
	}
	return j.Export(), nil
}

// Summary counts vehicles by presence. totalOverride replaces the fleet
// size when positive.
func (s *JournalService) Summary(ctx context.Context, totalOverride int) (domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.loadWithRoster(ctx)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("service.JournalService.Summary: %w", err)
	}
	return j.Summary(totalOverride), nil
}

func (s *JournalService) mutate(ctx context.Context, change func(*domain.Journal)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.load(ctx)
	if err != nil {
		return err
	}
	change(j)
	return s.save(ctx, j)
}

// load reads the persisted journal and reconciles it with the roster, if any.
func (s *JournalService) load(ctx context.Context) (*domain.Journal, error) {
	t, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	j := domain.ReplayJournal(t)
	if s.roster != nil {
		j.Reconcile(s.roster)
	}
	return j, nil
}

func (s *JournalService) loadWithRoster(ctx context.Context) (*domain.Journal, error) {
	if s.roster == nil {
		return nil, domain.ErrNoRoster
	}
	return s.load(ctx)
}

func (s *JournalService) save(ctx context.Context, j *domain.Journal) error {
	return s.repo.Save(ctx, j.Export())
}

// stamp resolves the time of an action: at when given, otherwise now,
// in the journal's zone and at the one-second resolution of the journal.
func (s *JournalService) stamp(at *time.Time) time.Time {
	t := s.now()
	if at != nil {
		t = *at
	}
	return t.In(s.loc).Truncate(time.Second)
}

func statusOf(v domain.Vehicle, seq *domain.LogSequence) VehicleStatus {
	return VehicleStatus{
		Vehicle:        v,
		Status:         seq.Status(),
		State:          seq.State(),
		LastCheckOutAt: seq.LastCheckOutAt(),
		LastCheckInAt:  seq.LastCheckInAt(),
		Events:         seq.Len(),
	}
}
