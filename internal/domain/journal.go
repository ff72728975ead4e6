package domain

import (
	"slices"
	"time"
)

// Column names of the two timestamp columns appended to the vehicle columns
// in every flat journal.
const (
	ColumnCheckOut = "Check-out time"
	ColumnCheckIn  = "Check-in time"
)

// JournalRow is one event of one vehicle in flat form.
type JournalRow struct {
	Vehicle Vehicle
	Event   Event
}

// JournalTable is the flat journal: descriptive Columns (the two timestamp
// columns are implied and not listed), the key column among them, and rows.
type JournalTable struct {
	KeyColumn string
	Columns   []string
	Rows      []JournalRow
}

// Summary counts vehicles by presence.
type Summary struct {
	Total      int
	CheckedOut int
	Present    int
}

// Journal owns the LogSequence of every known vehicle. History rows whose
// vehicle is no longer in the roster are kept as orphans and still exported.
// A Journal is not safe for concurrent use.
type Journal struct {
	keyColumn      string
	sequences      map[VehicleID]*LogSequence
	order          []VehicleID
	history        map[VehicleID]Vehicle
	historyColumns []string
	roster         *Roster
	rosterIndex    map[VehicleID]Vehicle
}

// NewJournal returns an empty journal keyed by keyColumn.
func NewJournal(keyColumn string) *Journal {
	return &Journal{
		keyColumn: keyColumn,
		sequences: make(map[VehicleID]*LogSequence),
		history:   make(map[VehicleID]Vehicle),
	}
}

// ReplayJournal rebuilds a journal from a flat table. Rows are stably sorted
// by check-out time ascending, rows without a check-out first, and replayed
// per vehicle in that order so every sequence ends with at most one open event.
// The last row seen for a vehicle provides its history columns.
func ReplayJournal(t JournalTable) *Journal {
	j := NewJournal(t.KeyColumn)
	j.historyColumns = slices.Clone(t.Columns)

	rows := slices.Clone(t.Rows)
	slices.SortStableFunc(rows, func(a, b JournalRow) int {
		return compareCheckOut(a.Event.CheckOutAt, b.Event.CheckOutAt)
	})
	for _, r := range rows {
		j.Sequence(r.Vehicle.ID).replay(r.Event)
		j.history[r.Vehicle.ID] = r.Vehicle
	}
	return j
}

// Sequence returns the sequence for id, creating an empty one on first use.
func (j *Journal) Sequence(id VehicleID) *LogSequence {
	if s, ok := j.sequences[id]; ok {
		return s
	}
	s := &LogSequence{vehicle: id}
	j.sequences[id] = s
	j.order = append(j.order, id)
	return s
}

// Lookup returns the sequence for id without creating one.
func (j *Journal) Lookup(id VehicleID) (*LogSequence, bool) {
	s, ok := j.sequences[id]
	return s, ok
}

// Reconcile attaches the current roster. No sequence is created for roster
// vehicles; vehicles only present in history become orphans.
func (j *Journal) Reconcile(r *Roster) {
	j.roster = r
	if r == nil {
		j.rosterIndex = nil
		return
	}
	j.rosterIndex = make(map[VehicleID]Vehicle, len(r.Vehicles))
	for _, v := range r.Vehicles {
		j.rosterIndex[v.ID] = v
	}
	if r.KeyColumn != "" {
		j.keyColumn = r.KeyColumn
	}
}

// Roster returns the attached roster, or nil.
func (j *Journal) Roster() *Roster { return j.roster }

// Vehicle returns the descriptive row for id: the roster row when the vehicle
// is on the roster, otherwise the last history row.
func (j *Journal) Vehicle(id VehicleID) (Vehicle, bool) {
	if v, ok := j.rosterIndex[id]; ok {
		return v, true
	}
	v, ok := j.history[id]
	return v, ok
}

// Orphans lists vehicles with history that are absent from the attached
// roster, in first-seen order. It is empty until a roster is attached.
func (j *Journal) Orphans() []VehicleID {
	if j.roster == nil {
		return nil
	}
	var out []VehicleID
	for _, id := range j.order {
		if _, onRoster := j.rosterIndex[id]; onRoster {
			continue
		}
		if _, known := j.history[id]; known {
			out = append(out, id)
		}
	}
	return out
}

// ClearAll applies Clear(policy) to every sequence.
func (j *Journal) ClearAll(policy ClearPolicy) {
	for _, s := range j.sequences {
		s.Clear(policy)
	}
}

// ClearCheckedIn applies ClearCheckedIn to every sequence.
func (j *Journal) ClearCheckedIn() {
	for _, s := range j.sequences {
		s.ClearCheckedIn()
	}
}

// Export flattens every sequence into one row per event, most recent
// check-out first; rows without a check-out go last. Roster vehicles come
// before orphans among rows with equal check-out times.
func (j *Journal) Export() JournalTable {
	t := JournalTable{KeyColumn: j.keyColumn, Columns: j.columns()}

	for _, id := range j.exportOrder() {
		s := j.sequences[id]
		v, ok := j.Vehicle(id)
		if !ok {
			v = Vehicle{ID: id, Fields: map[string]string{j.keyColumn: string(id)}}
		}
		for e := range s.All() {
			t.Rows = append(t.Rows, JournalRow{Vehicle: v, Event: e})
		}
	}

	slices.SortStableFunc(t.Rows, func(a, b JournalRow) int {
		ao, bo := a.Event.CheckOutAt, b.Event.CheckOutAt
		switch {
		case ao == nil && bo == nil:
			return 0
		case ao == nil:
			return 1
		case bo == nil:
			return -1
		}
		return bo.Compare(*ao)
	})
	return t
}

// Summary counts vehicles by presence. Total is totalOverride when positive,
// else the roster's declared total when positive, else the roster size.
// CheckedOut counts every sequence whose last event is open.
func (j *Journal) Summary(totalOverride int) Summary {
	total := totalOverride
	if total <= 0 && j.roster != nil {
		total = j.roster.TotalVehicles
		if total <= 0 {
			total = len(j.roster.Vehicles)
		}
	}

	var out int
	for _, s := range j.sequences {
		if !s.Present() {
			out++
		}
	}
	return Summary{Total: total, CheckedOut: out, Present: total - out}
}

// exportOrder lists roster vehicles in roster order, then every other
// sequence in first-seen order.
func (j *Journal) exportOrder() []VehicleID {
	ids := make([]VehicleID, 0, len(j.sequences))
	seen := make(map[VehicleID]bool, len(j.sequences))
	if j.roster != nil {
		for _, v := range j.roster.Vehicles {
			if _, ok := j.sequences[v.ID]; ok && !seen[v.ID] {
				ids = append(ids, v.ID)
				seen[v.ID] = true
			}
		}
	}
	for _, id := range j.order {
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	return ids
}

// columns merges roster columns with history-only columns, roster first.
func (j *Journal) columns() []string {
	var cols []string
	if j.roster != nil {
		cols = slices.Clone(j.roster.Columns)
	}
	for _, c := range j.historyColumns {
		if !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}
	if j.keyColumn != "" && !slices.Contains(cols, j.keyColumn) {
		cols = append([]string{j.keyColumn}, cols...)
	}
	return cols
}

func compareCheckOut(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
