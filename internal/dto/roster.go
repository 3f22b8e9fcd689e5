package dto

import "github.com/noah-isme/regulars-api/internal/models"

// CreateDancerRequest describes POST /dancers. BatchID optionally enrolls the new dancer.
type CreateDancerRequest struct {
	FullName    string `json:"full_name" validate:"required,max=120"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=32"`
	Notes       string `json:"notes" validate:"omitempty,max=500"`
	BatchID     string `json:"batch_id"`
}

// UpdateDancerRequest describes PUT /dancers/:id.
type UpdateDancerRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=1,max=120"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=32"`
	Notes       *string `json:"notes" validate:"omitempty,max=500"`
}

// DancerQuery filters GET /dancers.
type DancerQuery struct {
	BatchID    string `form:"batch_id"`
	Search     string `form:"search"`
	OnlyActive bool   `form:"active"`
}

// DancerListItem is a dancer with the lookup pass status for the filtered batch.
type DancerListItem struct {
	models.Dancer
	PassStatus models.PassStatus `json:"pass_status,omitempty"`
	Pass       *models.Pass      `json:"pass,omitempty"`
}

// DancerDetail is the dancer profile with memberships, passes and totals.
type DancerDetail struct {
	Dancer      models.Dancer                 `json:"dancer"`
	Enrollments []models.Enrollment           `json:"enrollments"`
	Passes      []models.PassWithStatus       `json:"passes"`
	Attendance  models.DancerAttendanceTotals `json:"attendance"`
}

// BatchRequest describes POST /batches and PUT /batches/:id.
type BatchRequest struct {
	Name          string   `json:"batch_name" validate:"required,max=120"`
	StudioName    string   `json:"studio_name" validate:"omitempty,max=120"`
	ScheduleDays  string   `json:"schedule_days" validate:"omitempty,max=120"`
	TimeSlot      string   `json:"time_slot" validate:"omitempty,max=60"`
	InstructorIDs []string `json:"assigned_instructor_ids" validate:"omitempty,dive,required"`
}

// BatchSummary is a batch with dancer and attention counts.
type BatchSummary struct {
	models.Batch
	DancerCount   int `json:"dancer_count"`
	ExpiringCount int `json:"expiring_count"`
	ExpiredCount  int `json:"expired_count"`
}

// EnrollmentRequest describes POST /enrollments.
type EnrollmentRequest struct {
	DancerID string `json:"dancer_id" validate:"required"`
	BatchID  string `json:"batch_id" validate:"required"`
}

// CreateUserRequest describes POST /users.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Role     string `json:"role" validate:"omitempty,oneof=admin instructor"`
}

// UpdateUserRequest describes PUT /users/:id.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=120"`
}

// UserQuery filters GET /users.
type UserQuery struct {
	Role   string `form:"role" validate:"omitempty,oneof=admin instructor"`
	Search string `form:"search"`
}
