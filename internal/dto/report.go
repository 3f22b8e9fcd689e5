package dto

// AttendanceReportQuery filters GET /reports/attendance.
type AttendanceReportQuery struct {
	BatchID   string `form:"batch_id"`
	StartDate string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" validate:"omitempty,datetime=2006-01-02"`
}
