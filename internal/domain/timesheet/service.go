package timesheet

import (
	"context"
	"time"
)

// TimesheetService defines business logic for timesheets and their approval workflow
type TimesheetService interface {
	// Create records a draft timesheet after the overlap and hour-limit rules pass
	Create(ctx context.Context, req CreateTimesheetRequest) (TimesheetResponse, error)

	// Update changes a draft or rejected timesheet
	Update(ctx context.Context, req UpdateTimesheetRequest) (TimesheetResponse, error)

	// Get retrieves a single timesheet
	Get(ctx context.Context, id string) (TimesheetResponse, error)

	// List retrieves timesheets with filters
	List(ctx context.Context, filter TimesheetFilter) (ListTimesheetResponse, error)

	// Delete soft deletes a draft or rejected timesheet
	Delete(ctx context.Context, id string) error

	// RecordLocation stores a clock-in/clock-out fix and re-evaluates the geofence
	RecordLocation(ctx context.Context, req RecordLocationRequest) (RecordLocationResponse, error)

	// Submit sends a draft or rejected timesheet into review
	Submit(ctx context.Context, req SubmitTimesheetRequest) (TimesheetResponse, error)

	// Approve approves the timesheet at the requested stage
	Approve(ctx context.Context, req ApproveTimesheetRequest) (TimesheetResponse, error)

	// Reject rejects the timesheet at the requested stage
	Reject(ctx context.Context, req RejectTimesheetRequest) (TimesheetResponse, error)

	// Cancel withdraws a timesheet that is not in review
	Cancel(ctx context.Context, req CancelTimesheetRequest) (TimesheetResponse, error)

	// ListApprovalEvents returns the audit trail of a timesheet
	ListApprovalEvents(ctx context.Context, id string) ([]ApprovalEventResponse, error)
}

// ViolationAlert is published when a location report breaks a zone that asks for alerts.
type ViolationAlert struct {
	TimesheetID    string       `json:"timesheet_id"`
	CompanyID      string       `json:"company_id"`
	EmployeeID     string       `json:"employee_id"`
	ZoneID         string       `json:"zone_id"`
	ZoneName       string       `json:"zone_name"`
	Kind           LocationKind `json:"kind"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	DistanceMeters float64      `json:"distance_meters"`
	Strict         bool         `json:"strict"`
	RecordedAt     time.Time    `json:"recorded_at"`
}

// ViolationAlerter hands alerts to an asynchronous consumer.
type ViolationAlerter interface {
	EnqueueViolationAlert(ctx context.Context, alert ViolationAlert) error
}
