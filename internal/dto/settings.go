package dto

// UpdateSettingsRequest describes PUT /settings. At least one field is required.
type UpdateSettingsRequest struct {
	MonthlyExpiryWarningDays        *int `json:"monthly_expiry_warning_days" validate:"omitempty,min=1"`
	ClassPackExpiryWarningRemaining *int `json:"class_pack_expiry_warning_remaining" validate:"omitempty,min=1"`
}
