// Package domain contains the core data types of the fleet journal: vehicle
// event histories, the journal that owns them, and the roster they are
// reconciled against. It performs no I/O.
package domain

// VehicleID identifies a vehicle. It is opaque: a numeric roster number and a
// licence plate are both carried as text and compared verbatim.
type VehicleID string

// Vehicle is one roster (or history) row: the identifier plus its descriptive
// columns keyed by header name. Fields includes the key column itself.
type Vehicle struct {
	ID     VehicleID
	Fields map[string]string
}

// Field returns the value of the named column, or "" when absent.
func (v Vehicle) Field(column string) string {
	return v.Fields[column]
}

// Roster is the set of vehicles currently on the books.
// Columns preserves the source header order; KeyColumn is one of them.
// TotalVehicles is the manifest-declared fleet size, 0 when not declared.
type Roster struct {
	Title         string
	TotalVehicles int
	KeyColumn     string
	Columns       []string
	Vehicles      []Vehicle
}

// Lookup returns the roster vehicle with the given id.
func (r *Roster) Lookup(id VehicleID) (Vehicle, bool) {
	if r == nil {
		return Vehicle{}, false
	}
	for _, v := range r.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}
