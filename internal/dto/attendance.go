package dto

import "github.com/noah-isme/regulars-api/internal/models"

// AttendanceMark is one dancer's status in a bulk save.
type AttendanceMark struct {
	DancerID string `json:"dancer_id" validate:"required"`
	Status   string `json:"status" validate:"required,attendance_status"`
}

// BulkMarkRequest describes POST /attendance/bulk.
type BulkMarkRequest struct {
	SessionID string           `json:"session_id" validate:"required"`
	BatchID   string           `json:"batch_id" validate:"required"`
	Records   []AttendanceMark `json:"records" validate:"required,min=1,dive"`
}

// BulkMarkResult summarises a committed save.
type BulkMarkResult struct {
	SessionID  string                     `json:"session_id"`
	SavedCount int                        `json:"saved_count"`
	Warnings   []models.AttendanceWarning `json:"warnings"`
}

// WalkInRequest describes POST /attendance/walk-in.
type WalkInRequest struct {
	SessionID   string `json:"session_id" validate:"required"`
	BatchID     string `json:"batch_id" validate:"required"`
	FullName    string `json:"full_name" validate:"required,max=120"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=32"`
	Notes       string `json:"notes" validate:"omitempty,max=500"`
}

// WalkInResult returns every row the walk-in created.
type WalkInResult struct {
	Dancer     models.Dancer     `json:"dancer"`
	Enrollment models.Enrollment `json:"enrollment"`
	Pass       models.Pass       `json:"pass"`
	Attendance BulkMarkResult    `json:"attendance"`
}

// SessionRequest describes POST /sessions. Date defaults to the club-local today.
type SessionRequest struct {
	BatchID string `json:"batch_id" validate:"required"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// SessionQuery filters GET /sessions.
type SessionQuery struct {
	BatchID  string `form:"batch_id"`
	DateFrom string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"date_to" validate:"omitempty,datetime=2006-01-02"`
}

// SessionAttendance is a session with its recorded marks.
type SessionAttendance struct {
	Session models.Session            `json:"session"`
	Records []models.AttendanceRecord `json:"records"`
}
