package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AuditAction is the closed set of actions recorded in the audit log.
type AuditAction string

const (
	AuditActionCreateDancer          AuditAction = "create_dancer"
	AuditActionUpdateDancer          AuditAction = "update_dancer"
	AuditActionDeactivateDancer      AuditAction = "deactivate_dancer"
	AuditActionCreateEnrollment      AuditAction = "create_enrollment"
	AuditActionRemoveDancerFromBatch AuditAction = "remove_dancer_from_batch"
	AuditActionCreatePass            AuditAction = "create_pass"
	AuditActionRenewPass             AuditAction = "renew_pass"
	AuditActionMarkAttendance        AuditAction = "mark_attendance"
	AuditActionCreateBatch           AuditAction = "create_batch"
	AuditActionUpdateBatch           AuditAction = "update_batch"
	AuditActionDeactivateBatch       AuditAction = "deactivate_batch"
	AuditActionCreateInstructor      AuditAction = "create_instructor"
	AuditActionUpdateInstructor      AuditAction = "update_instructor"
	AuditActionDeactivateInstructor  AuditAction = "deactivate_instructor"
	AuditActionUpdateSettings        AuditAction = "update_settings"
)

var auditActions = map[AuditAction]struct{}{
	AuditActionCreateDancer:          {},
	AuditActionUpdateDancer:          {},
	AuditActionDeactivateDancer:      {},
	AuditActionCreateEnrollment:      {},
	AuditActionRemoveDancerFromBatch: {},
	AuditActionCreatePass:            {},
	AuditActionRenewPass:             {},
	AuditActionMarkAttendance:        {},
	AuditActionCreateBatch:           {},
	AuditActionUpdateBatch:           {},
	AuditActionDeactivateBatch:       {},
	AuditActionCreateInstructor:      {},
	AuditActionUpdateInstructor:      {},
	AuditActionDeactivateInstructor:  {},
	AuditActionUpdateSettings:        {},
}

// Valid reports whether the action belongs to the closed enum.
func (a AuditAction) Valid() bool {
	_, ok := auditActions[a]
	return ok
}

// Audit entity types.
const (
	EntityDancer     = "dancer"
	EntityEnrollment = "enrollment"
	EntityPass       = "pass"
	EntitySession    = "session"
	EntityBatch      = "batch"
	EntityUser       = "user"
	EntitySettings   = "settings"
)

// AuditLogEntry is an immutable, append-only audit record.
type AuditLogEntry struct {
	ID         string         `db:"id" json:"id"`
	ActorID    string         `db:"actor_id" json:"actor_id"`
	ActorName  string         `db:"actor_name" json:"actor_name"`
	ActionType AuditAction    `db:"action_type" json:"action_type"`
	EntityType string         `db:"entity_type" json:"entity_type"`
	EntityID   string         `db:"entity_id" json:"entity_id"`
	Metadata   types.JSONText `db:"metadata" json:"metadata"`
	Timestamp  time.Time      `db:"timestamp" json:"timestamp"`
}

// AuditLogFilter holds conjunctive filters for audit queries. Date bounds are inclusive.
type AuditLogFilter struct {
	ActionType *AuditAction
	ActorID    string
	EntityType string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	Limit      int
}
