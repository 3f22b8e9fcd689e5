package models

import "time"

// PassType enumerates the entitlement kinds a dancer can hold.
type PassType string

const (
	PassTypeMonthly   PassType = "monthly"
	PassTypeClassPack PassType = "class_pack"
	PassTypeDropIn    PassType = "drop_in"
)

// Valid returns true when the type is supported.
func (t PassType) Valid() bool {
	switch t {
	case PassTypeMonthly, PassTypeClassPack, PassTypeDropIn:
		return true
	default:
		return false
	}
}

// PassStatus is derived on every read and never stored.
type PassStatus string

const (
	PassStatusActive       PassStatus = "active"
	PassStatusExpiringSoon PassStatus = "expiring_soon"
	PassStatusExpired      PassStatus = "expired"
	// PassStatusNone marks a (dancer, batch) pair that never held a pass.
	PassStatusNone PassStatus = "none"
)

// NeedsAttention reports whether the status should surface as a notification.
func (s PassStatus) NeedsAttention() bool {
	return s == PassStatusExpiringSoon || s == PassStatusExpired
}

// Pass is a dancer's entitlement for one batch.
type Pass struct {
	ID               string     `db:"id" json:"id"`
	DancerID         string     `db:"dancer_id" json:"dancer_id"`
	BatchID          string     `db:"batch_id" json:"batch_id"`
	Type             PassType   `db:"type" json:"type"`
	StartDate        time.Time  `db:"start_date" json:"start_date"`
	EndDate          *time.Time `db:"end_date" json:"end_date,omitempty"`
	TotalClasses     *int       `db:"total_classes" json:"total_classes,omitempty"`
	RemainingClasses *int       `db:"remaining_classes" json:"remaining_classes,omitempty"`
	SessionID        *string    `db:"session_id" json:"session_id,omitempty"`
	CreatedBy        *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Remaining returns the remaining class count, zero when unset.
func (p Pass) Remaining() int {
	if p.RemainingClasses == nil {
		return 0
	}
	return *p.RemainingClasses
}

// Total returns the total class count, zero when unset.
func (p Pass) Total() int {
	if p.TotalClasses == nil {
		return 0
	}
	return *p.TotalClasses
}

// PassWithStatus decorates a pass with its computed status.
type PassWithStatus struct {
	Pass
	ComputedStatus PassStatus `json:"computed_status"`
}

// PassFilter scopes pass listings.
type PassFilter struct {
	DancerID string
	BatchID  string
	BatchIDs []string
}
