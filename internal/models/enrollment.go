package models

import "time"

// Enrollment joins a dancer to a batch. Removing a dancer deactivates the row.
type Enrollment struct {
	ID       string     `db:"id" json:"id"`
	DancerID string     `db:"dancer_id" json:"dancer_id"`
	BatchID  string     `db:"batch_id" json:"batch_id"`
	Active   bool       `db:"active" json:"active"`
	JoinedAt time.Time  `db:"joined_at" json:"joined_at"`
	LeftAt   *time.Time `db:"left_at" json:"left_at,omitempty"`
}

// EnrolledDancer is an active enrollment joined with the dancer and batch names.
type EnrolledDancer struct {
	DancerID   string `db:"dancer_id" json:"dancer_id"`
	DancerName string `db:"dancer_name" json:"dancer_name"`
	BatchID    string `db:"batch_id" json:"batch_id"`
	BatchName  string `db:"batch_name" json:"batch_name"`
}
