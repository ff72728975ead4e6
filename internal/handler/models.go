package handler

import (
	"time"

	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/service"
)

// VehicleStatusResponse is one vehicle on the dashboard.
type VehicleStatusResponse struct {
	ID             string            `json:"id"`
	Fields         map[string]string `json:"fields"`
	Present        bool              `json:"present"`
	State          string            `json:"state"`
	Since          *time.Time        `json:"since,omitempty"`
	LastCheckOutAt *time.Time        `json:"last_check_out_at,omitempty"`
	LastCheckInAt  *time.Time        `json:"last_check_in_at,omitempty"`
	Events         int               `json:"events"`
}

// SummaryResponse counts vehicles by presence.
type SummaryResponse struct {
	Total      int `json:"total"`
	CheckedOut int `json:"checked_out"`
	Present    int `json:"present"`
}

// DashboardResponse is the body of GET /vehicles.
type DashboardResponse struct {
	Title    string                  `json:"title,omitempty"`
	Vehicles []VehicleStatusResponse `json:"vehicles"`
	Orphans  []string                `json:"orphans"`
	Summary  SummaryResponse         `json:"summary"`
}

// RosterResponse is the body of GET and PUT /roster.
type RosterResponse struct {
	Title         string   `json:"title,omitempty"`
	TotalVehicles int      `json:"total_vehicles,omitempty"`
	KeyColumn     string   `json:"key_column"`
	Columns       []string `json:"columns"`
	Vehicles      int      `json:"vehicles"`
	Orphans       []string `json:"orphans"`
}

// JournalRowResponse is one event of the flat journal.
type JournalRowResponse struct {
	EventID    string            `json:"event_id"`
	VehicleID  string            `json:"vehicle_id"`
	Fields     map[string]string `json:"fields"`
	CheckOutAt *time.Time        `json:"check_out_at"`
	CheckInAt  *time.Time        `json:"check_in_at"`
}

// JournalResponse is the JSON form of GET /journal.
type JournalResponse struct {
	KeyColumn string               `json:"key_column"`
	Columns   []string             `json:"columns"`
	Rows      []JournalRowResponse `json:"rows"`
}

func vehicleStatusToResponse(v service.VehicleStatus) VehicleStatusResponse {
	return VehicleStatusResponse{
		ID:             string(v.Vehicle.ID),
		Fields:         v.Vehicle.Fields,
		Present:        v.Status.Present,
		State:          string(v.State),
		Since:          v.Status.Since,
		LastCheckOutAt: v.LastCheckOutAt,
		LastCheckInAt:  v.LastCheckInAt,
		Events:         v.Events,
	}
}

func summaryToResponse(s domain.Summary) SummaryResponse {
	return SummaryResponse{Total: s.Total, CheckedOut: s.CheckedOut, Present: s.Present}
}

func dashboardToResponse(d service.Dashboard) DashboardResponse {
	out := DashboardResponse{
		Title:    d.Title,
		Vehicles: make([]VehicleStatusResponse, len(d.Vehicles)),
		Orphans:  idsToStrings(d.Orphans),
		Summary:  summaryToResponse(d.Summary),
	}
	for i, v := range d.Vehicles {
		out.Vehicles[i] = vehicleStatusToResponse(v)
	}
	return out
}

func rosterToResponse(v service.RosterView) RosterResponse {
	r := v.Roster
	return RosterResponse{
		Title:         r.Title,
		TotalVehicles: r.TotalVehicles,
		KeyColumn:     r.KeyColumn,
		Columns:       r.Columns,
		Vehicles:      len(r.Vehicles),
		Orphans:       idsToStrings(v.Orphans),
	}
}

func journalToResponse(t domain.JournalTable) JournalResponse {
	out := JournalResponse{
		KeyColumn: t.KeyColumn,
		Columns:   t.Columns,
		Rows:      make([]JournalRowResponse, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = JournalRowResponse{
			EventID:    r.Event.ID.String(),
			VehicleID:  string(r.Vehicle.ID),
			Fields:     r.Vehicle.Fields,
			CheckOutAt: r.Event.CheckOutAt,
			CheckInAt:  r.Event.CheckInAt,
		}
	}
	return out
}

func idsToStrings(ids []domain.VehicleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
