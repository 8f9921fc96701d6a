package domain

import (
	"fmt"
	"time"
)

type AircraftStatus string

const (
	AircraftStatusActive      AircraftStatus = "ACTIVE"
	AircraftStatusMaintenance AircraftStatus = "MAINTENANCE"
	AircraftStatusRetired     AircraftStatus = "RETIRED"
	AircraftStatusGrounded    AircraftStatus = "GROUNDED"
)

type Aircraft struct {
	ID              int64          `json:"id"`
	Registration    string         `json:"registration"`
	Model           string         `json:"model"`
	TotalSeats      int            `json:"total_seats"`
	Status          AircraftStatus `json:"status"`
	NextMaintenance *time.Time     `json:"next_maintenance,omitempty"`
}

func (a *Aircraft) IsActive() bool {
	return a.Status == AircraftStatusActive
}

func (a *Aircraft) NeedsMaintenance(now time.Time) bool {
	return a.NextMaintenance != nil && now.After(*a.NextMaintenance)
}

// CheckAvailable rejects aircraft that are out of service or overdue for maintenance.
func (a *Aircraft) CheckAvailable(now time.Time) error {
	if !a.IsActive() {
		return fmt.Errorf("aircraft %s is %s: %w", a.Registration, a.Status, ErrAircraftNotAvailable)
	}
	if a.NeedsMaintenance(now) {
		return fmt.Errorf("aircraft %s needs maintenance: %w", a.Registration, ErrAircraftNotAvailable)
	}
	return nil
}
