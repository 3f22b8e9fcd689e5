package dto

import "github.com/noah-isme/regulars-api/internal/models"

// AssignPassRequest describes POST /passes.
type AssignPassRequest struct {
	DancerID     string  `json:"dancer_id" validate:"required"`
	BatchID      string  `json:"batch_id" validate:"required"`
	Type         string  `json:"type" validate:"required,pass_type"`
	TotalClasses *int    `json:"total_classes" validate:"omitempty,min=1"`
	StartDate    string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	SessionID    *string `json:"session_id"`
}

// RenewPassRequest describes PUT /passes/:id/renew.
type RenewPassRequest struct {
	TotalClasses *int `json:"total_classes" validate:"omitempty,min=1"`
}

// PassQuery filters GET /passes.
type PassQuery struct {
	DancerID string `form:"dancer_id"`
	BatchID  string `form:"batch_id"`
}

// PassStatusResponse is returned by GET /passes/:id/status.
type PassStatusResponse struct {
	PassID  string            `json:"pass_id"`
	Status  models.PassStatus `json:"status"`
	Message string            `json:"message"`
}
