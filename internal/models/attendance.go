package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// AttendanceRecord is a dancer's mark for one session, unique per (session_id, dancer_id).
// PassID references the pass charged by this session's present mark, if any.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	DancerID  string           `db:"dancer_id" json:"dancer_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	PassID    *string          `db:"pass_id" json:"pass_id,omitempty"`
	MarkedBy  *string          `db:"marked_by" json:"marked_by,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceWarning is returned to the instructor after a save.
type AttendanceWarning struct {
	DancerID   string     `json:"dancer_id"`
	DancerName string     `json:"dancer_name"`
	BatchID    string     `json:"batch_id"`
	PassID     string     `json:"pass_id,omitempty"`
	PassType   PassType   `json:"pass_type,omitempty"`
	Status     PassStatus `json:"status"`
	Kind       string     `json:"kind"`
	Message    string     `json:"message"`
}

// Warning kinds.
const (
	WarningKindExpiringSoon = "expiring_soon"
	WarningKindExpired      = "expired"
	WarningKindExhausted    = "exhausted"
	WarningKindNoPass       = "no_pass"
	WarningKindOtherSession = "drop_in_other_session"
)
