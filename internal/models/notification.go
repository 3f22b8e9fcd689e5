package models

import "time"

// Notification flags a (dancer, batch) pair whose lookup pass needs renewal.
type Notification struct {
	DancerID         string     `json:"dancer_id"`
	DancerName       string     `json:"dancer_name"`
	BatchID          string     `json:"batch_id"`
	BatchName        string     `json:"batch_name"`
	PassID           string     `json:"pass_id"`
	PassType         PassType   `json:"pass_type"`
	Status           PassStatus `json:"status"`
	Message          string     `json:"message"`
	RemainingClasses *int       `json:"remaining_classes,omitempty"`
	TotalClasses     *int       `json:"total_classes,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
}

// DashboardStats summarises the club for the dashboard landing page.
type DashboardStats struct {
	ActiveBatches int `json:"active_batches"`
	ActiveDancers int `json:"active_dancers"`
	ExpiringSoon  int `json:"expiring_soon"`
	Expired       int `json:"expired"`
	TodaySessions int `json:"today_sessions"`
	TodayPresent  int `json:"today_present"`
}
