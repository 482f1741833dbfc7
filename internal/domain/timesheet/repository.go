package timesheet

import (
	"context"
	"time"
)

// TimesheetRepository defines data access methods for timesheets.
// All methods include companyID (directly or on the entity) to prevent cross-company access.
type TimesheetRepository interface {
	// Create inserts a timesheet at version 1
	Create(ctx context.Context, ts Timesheet) (Timesheet, error)

	// GetByID retrieves a non-deleted timesheet
	GetByID(ctx context.Context, id string, companyID string) (Timesheet, error)

	// Update writes hours, description and location fields.
	// The write only applies when the stored version equals ts.Version;
	// otherwise ErrConcurrentModification is returned.
	Update(ctx context.Context, ts Timesheet) (Timesheet, error)

	// UpdateStatus writes status and approval audit columns with the same
	// version check as Update.
	UpdateStatus(ctx context.Context, ts Timesheet) (Timesheet, error)

	// SoftDelete sets deleted_at when the stored version equals version
	SoftDelete(ctx context.Context, id string, companyID string, version int64) error

	// List retrieves timesheets with filters and pagination
	List(ctx context.Context, filter TimesheetFilter, companyID string) ([]Timesheet, int64, error)

	// ListByEmployeeBetween returns live timesheets of an employee with from <= date < to.
	// Used by the overlap and hour-limit rules.
	ListByEmployeeBetween(ctx context.Context, employeeID string, companyID string, from time.Time, to time.Time) ([]Timesheet, error)
}

// ApprovalEventRepository stores the append-only approval audit log.
type ApprovalEventRepository interface {
	// Append inserts events in order
	Append(ctx context.Context, events []ApprovalEvent) error

	// ListByTimesheet returns events oldest first
	ListByTimesheet(ctx context.Context, timesheetID string, companyID string) ([]ApprovalEvent, error)
}
