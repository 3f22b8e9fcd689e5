package models

import "time"

// SessionCount holds per-session present/absent totals. Sessions with no marks report zeros.
type SessionCount struct {
	BatchID   string    `db:"batch_id" json:"-"`
	BatchName string    `db:"batch_name" json:"-"`
	SessionID string    `db:"session_id" json:"session_id"`
	Date      time.Time `db:"date" json:"date"`
	Present   int       `db:"present" json:"present"`
	Absent    int       `db:"absent" json:"absent"`
	Total     int       `db:"total" json:"total"`
}

// BatchAttendanceReport aggregates attendance for one batch.
type BatchAttendanceReport struct {
	BatchID       string         `json:"batch_id"`
	BatchName     string         `json:"batch_name"`
	TotalSessions int            `json:"total_sessions"`
	Sessions      []SessionCount `json:"sessions"`
	TotalPresent  int            `json:"total_present"`
	TotalAbsent   int            `json:"total_absent"`
}

// AttendanceReportFilter scopes the attendance report. Dates are inclusive.
type AttendanceReportFilter struct {
	BatchID   string
	BatchIDs  []string
	StartDate *time.Time
	EndDate   *time.Time
}

// ExpiringReport splits attention-needing passes by status.
type ExpiringReport struct {
	Expiring []Notification `json:"expiring"`
	Expired  []Notification `json:"expired"`
}
