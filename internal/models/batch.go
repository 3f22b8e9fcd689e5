package models

import (
	"time"

	"github.com/lib/pq"
)

// Batch is a recurring class run by one or more instructors.
type Batch struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"batch_name"`
	StudioName    string         `db:"studio_name" json:"studio_name"`
	ScheduleDays  string         `db:"schedule_days" json:"schedule_days"`
	TimeSlot      string         `db:"time_slot" json:"time_slot"`
	InstructorIDs pq.StringArray `db:"instructor_ids" json:"assigned_instructor_ids"`
	Active        bool           `db:"active" json:"active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// HasInstructor reports whether the user is assigned to the batch.
func (b Batch) HasInstructor(userID string) bool {
	for _, id := range b.InstructorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// BatchFilter scopes batch listings.
type BatchFilter struct {
	InstructorID string
	OnlyActive   bool
}
