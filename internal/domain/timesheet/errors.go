package timesheet

import "errors"

// Timesheet domain errors
var (
	ErrTimesheetNotFound      = errors.New("timesheet not found")
	ErrTimesheetNotEditable   = errors.New("timesheet can only be changed while draft or rejected")
	ErrInvalidTransition      = errors.New("timesheet status does not allow this action")
	ErrInvalidStage           = errors.New("stage must be one of: foreman, incharge, checking, manager")
	ErrConcurrentModification = errors.New("timesheet was modified by another request, reload and retry")
	ErrUnauthorized           = errors.New("unauthorized to access this timesheet")
	ErrEmployeeIDRequired     = errors.New("employee_id is required")

	// Business rule errors
	ErrTimesheetOverlap        = errors.New("a timesheet already exists for this employee on this date")
	ErrWeeklyHoursExceeded     = errors.New("weekly working hours limit exceeded")
	ErrMonthlyOvertimeExceeded = errors.New("monthly overtime limit exceeded")

	// Location errors
	ErrOutsideGeofence = errors.New("location is outside the worksite geofence")
)
