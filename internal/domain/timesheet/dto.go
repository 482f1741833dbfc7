package timesheet

import (
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

var maxDailyHours = decimal.NewFromInt(24)

// ========================================
// TIMESHEET DTOs
// ========================================

type CreateTimesheetRequest struct {
	// EmployeeID defaults to the caller's employee
	EmployeeID     *string         `json:"employee_id" validate:"omitempty,uuid7"`
	ProjectID      *string         `json:"project_id" validate:"omitempty,uuid7"`
	GeofenceZoneID *string         `json:"geofence_zone_id" validate:"omitempty,uuid7"`
	Date           string          `json:"date" validate:"required"`
	StartTime      *time.Time      `json:"start_time"`
	EndTime        *time.Time      `json:"end_time"`
	RegularHours   decimal.Decimal `json:"regular_hours"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours"`
	Description    *string         `json:"description" validate:"omitempty,max=1000"`
}

func (r *CreateTimesheetRequest) Validate() error {
	errs := validator.Struct(r)
	if r.Date != "" {
		if _, ok := validator.IsValidDate(r.Date); !ok {
			errs.Add("date", "date must use YYYY-MM-DD format")
		}
	}
	validateHours(&errs, r.RegularHours, r.OvertimeHours, r.StartTime, r.EndTime)
	return errs.OrNil()
}

type UpdateTimesheetRequest struct {
	ID             string          `json:"-"`
	ProjectID      *string         `json:"project_id" validate:"omitempty,uuid7"`
	GeofenceZoneID *string         `json:"geofence_zone_id" validate:"omitempty,uuid7"`
	Date           string          `json:"date" validate:"required"`
	StartTime      *time.Time      `json:"start_time"`
	EndTime        *time.Time      `json:"end_time"`
	RegularHours   decimal.Decimal `json:"regular_hours"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours"`
	Description    *string         `json:"description" validate:"omitempty,max=1000"`
}

func (r *UpdateTimesheetRequest) Validate() error {
	errs := validator.Struct(r)
	if !validator.IsValidUUID(r.ID) {
		errs.Add("id", "id must be a valid UUID")
	}
	if r.Date != "" {
		if _, ok := validator.IsValidDate(r.Date); !ok {
			errs.Add("date", "date must use YYYY-MM-DD format")
		}
	}
	validateHours(&errs, r.RegularHours, r.OvertimeHours, r.StartTime, r.EndTime)
	return errs.OrNil()
}

func validateHours(errs *validator.ValidationErrors, regular, overtime decimal.Decimal, start, end *time.Time) {
	if regular.IsNegative() {
		errs.Add("regular_hours", "regular_hours must not be negative")
	}
	if overtime.IsNegative() {
		errs.Add("overtime_hours", "overtime_hours must not be negative")
	}
	if regular.Add(overtime).GreaterThan(maxDailyHours) {
		errs.Add("overtime_hours", "regular_hours plus overtime_hours must not exceed 24")
	}
	if start != nil && end != nil && end.Before(*start) {
		errs.Add("end_time", "end_time must be after start_time")
	}
}

type RecordLocationRequest struct {
	TimesheetID        string     `json:"-"`
	Kind               string     `json:"kind" validate:"required,oneof=start end"`
	Latitude           float64    `json:"latitude" validate:"lat"`
	Longitude          float64    `json:"longitude" validate:"lng"`
	AccuracyMeters     *float64   `json:"accuracy_meters" validate:"omitempty,gte=0"`
	VerificationMethod string     `json:"verification_method" validate:"omitempty,oneof=gps network wifi manual"`
	RecordedAt         *time.Time `json:"recorded_at"`
}

func (r *RecordLocationRequest) Validate() error {
	errs := validator.Struct(r)
	if !validator.IsValidUUID(r.TimesheetID) {
		errs.Add("id", "id must be a valid UUID")
	}
	return errs.OrNil()
}

type SubmitTimesheetRequest struct {
	TimesheetID string `json:"-"`
}

func (r *SubmitTimesheetRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsValidUUID(r.TimesheetID) {
		errs.Add("id", "id must be a valid UUID")
	}
	return errs.OrNil()
}

type ApproveTimesheetRequest struct {
	TimesheetID string  `json:"-"`
	Stage       string  `json:"-"`
	Notes       *string `json:"notes" validate:"omitempty,max=1000"`
}

func (r *ApproveTimesheetRequest) Validate() error {
	errs := validator.Struct(r)
	if !validator.IsValidUUID(r.TimesheetID) {
		errs.Add("id", "id must be a valid UUID")
	}
	if !Stage(r.Stage).IsValid() {
		errs.Add("stage", ErrInvalidStage.Error())
	}
	return errs.OrNil()
}

type RejectTimesheetRequest struct {
	TimesheetID string `json:"-"`
	Stage       string `json:"stage" validate:"required,oneof=foreman incharge checking manager"`
	Reason      string `json:"reason" validate:"required,max=1000"`
}

func (r *RejectTimesheetRequest) Validate() error {
	errs := validator.Struct(r)
	if !validator.IsValidUUID(r.TimesheetID) {
		errs.Add("id", "id must be a valid UUID")
	}
	if r.Reason != "" && validator.IsEmpty(r.Reason) {
		errs.Add("reason", "reason is required")
	}
	return errs.OrNil()
}

type CancelTimesheetRequest struct {
	TimesheetID string  `json:"-"`
	Reason      *string `json:"reason" validate:"omitempty,max=1000"`
}

func (r *CancelTimesheetRequest) Validate() error {
	errs := validator.Struct(r)
	if !validator.IsValidUUID(r.TimesheetID) {
		errs.Add("id", "id must be a valid UUID")
	}
	return errs.OrNil()
}

type TimesheetFilter struct {
	EmployeeID *string
	ProjectID  *string
	Status     *string
	StartDate  *string
	EndDate    *string
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
}

func (f *TimesheetFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs.Add("limit", "limit must not exceed 100")
	}
	if f.Status != nil && !Status(*f.Status).IsValid() {
		errs.Add("status", "status is not a valid timesheet status")
	}
	var start, end time.Time
	var okStart, okEnd bool
	if f.StartDate != nil {
		if start, okStart = validator.IsValidDate(*f.StartDate); !okStart {
			errs.Add("start_date", "start_date must use YYYY-MM-DD format")
		}
	}
	if f.EndDate != nil {
		if end, okEnd = validator.IsValidDate(*f.EndDate); !okEnd {
			errs.Add("end_date", "end_date must use YYYY-MM-DD format")
		}
	}
	if okStart && okEnd && end.Before(start) {
		errs.Add("end_date", "end_date must not be before start_date")
	}
	if f.SortBy != "" && !validator.IsInSlice(f.SortBy, []string{"date", "status", "total_hours", "created_at"}) {
		errs.Add("sort_by", "sort_by must be one of: date, status, total_hours, created_at")
	}
	if f.SortOrder != "" && f.SortOrder != "asc" && f.SortOrder != "desc" {
		errs.Add("sort_order", "sort_order must be asc or desc")
	}

	return errs.OrNil()
}

type StageApprovalResponse struct {
	ApprovedBy *string `json:"approved_by"`
	ApprovedAt *string `json:"approved_at"`
	Notes      *string `json:"notes"`
}

type RejectionResponse struct {
	RejectedBy *string `json:"rejected_by"`
	RejectedAt *string `json:"rejected_at"`
	Reason     *string `json:"reason"`
	Stage      *string `json:"stage"`
}

type TimesheetResponse struct {
	ID             string  `json:"id"`
	EmployeeID     string  `json:"employee_id"`
	ProjectID      *string `json:"project_id"`
	GeofenceZoneID *string `json:"geofence_zone_id"`
	Date           string  `json:"date"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	Description    *string `json:"description"`

	RegularHours  decimal.Decimal `json:"regular_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
	TotalHours    decimal.Decimal `json:"total_hours"`

	StartLatitude      *float64            `json:"start_latitude"`
	StartLongitude     *float64            `json:"start_longitude"`
	EndLatitude        *float64            `json:"end_latitude"`
	EndLongitude       *float64            `json:"end_longitude"`
	IsWithinGeofence   *bool               `json:"is_within_geofence"`
	DistanceFromSite   *float64            `json:"distance_from_site"`
	GeofenceViolations []GeofenceViolation `json:"geofence_violations"`
	AccuracyMeters     *float64            `json:"accuracy_meters"`
	LocationVerified   bool                `json:"location_verified"`
	VerificationMethod *string             `json:"verification_method"`

	Status                     string                           `json:"status"`
	CurrentApprovalStep        int                              `json:"current_approval_step"`
	ApprovalProgressPercentage int                              `json:"approval_progress_percentage"`
	CanBeEdited                bool                             `json:"can_be_edited"`
	CanBeSubmitted             bool                             `json:"can_be_submitted"`
	NextStage                  *string                          `json:"next_stage"`
	SubmittedAt                *string                          `json:"submitted_at"`
	Approvals                  map[Stage]*StageApprovalResponse `json:"approvals"`
	Rejection                  *RejectionResponse               `json:"rejection,omitempty"`

	Version   int64  `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ListTimesheetResponse struct {
	TotalCount int64               `json:"total_count"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
	Showing    string              `json:"showing"`
	Timesheets []TimesheetResponse `json:"timesheets"`
}

type RecordLocationResponse struct {
	Timesheet        TimesheetResponse  `json:"timesheet"`
	IsWithinGeofence *bool              `json:"is_within_geofence"`
	DistanceMeters   *float64           `json:"distance_meters"`
	ZoneID           *string            `json:"zone_id"`
	Violation        *GeofenceViolation `json:"violation,omitempty"`
}

type ApprovalEventResponse struct {
	ID         string  `json:"id"`
	Action     string  `json:"action"`
	Stage      *string `json:"stage"`
	ActorID    string  `json:"actor_id"`
	Notes      *string `json:"notes"`
	FromStatus string  `json:"from_status"`
	ToStatus   string  `json:"to_status"`
	OccurredAt string  `json:"occurred_at"`
}
