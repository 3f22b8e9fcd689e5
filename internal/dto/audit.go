package dto

import "github.com/noah-isme/regulars-api/internal/models"

// AuditLogQuery filters GET /audit-log.
type AuditLogQuery struct {
	ActionType string `form:"action_type" validate:"omitempty,audit_action"`
	ActorID    string `form:"actor_id"`
	EntityType string `form:"entity_type"`
	StartDate  string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string `form:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	Limit      int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// AuditLogPage is one page of audit entries with the total matching count.
type AuditLogPage struct {
	Logs  []models.AuditLogEntry `json:"logs"`
	Total int                    `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}
