package models

import "time"

// Dancer is a club member. Dancers are soft-deactivated so attendance history stays resolvable.
type Dancer struct {
	ID          string    `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	Notes       string    `db:"notes" json:"notes"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DancerFilter scopes dancer listings.
type DancerFilter struct {
	BatchID    string
	BatchIDs   []string
	Search     string
	OnlyActive bool
}

// DancerAttendanceTotals counts a dancer's marks across all sessions.
type DancerAttendanceTotals struct {
	TotalSessions int `db:"total_sessions" json:"total_sessions"`
	PresentCount  int `db:"present_count" json:"present_count"`
}
