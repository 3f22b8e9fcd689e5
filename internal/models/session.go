package models

import "time"

// Session is one dated occurrence of a batch, unique per (batch_id, date).
type Session struct {
	ID        string    `db:"id" json:"id"`
	BatchID   string    `db:"batch_id" json:"batch_id"`
	Date      time.Time `db:"date" json:"date"`
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionSummary is a session with its attendance counts.
type SessionSummary struct {
	Session
	BatchName    string `db:"batch_name" json:"batch_name"`
	PresentCount int    `db:"present_count" json:"present_count"`
	AbsentCount  int    `db:"absent_count" json:"absent_count"`
	Total        int    `db:"total" json:"total"`
}

// SessionFilter scopes session listings and reports.
type SessionFilter struct {
	BatchID  string
	DateFrom *time.Time
	DateTo   *time.Time
}
