package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Malformed request bodies
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		BadRequest(w, "Invalid request body", nil)
		return
	}

	switch {
	// Identity and permissions
	case errors.Is(err, user.ErrInvalidToken),
		errors.Is(err, user.ErrInvalidClaims),
		errors.Is(err, user.ErrCompanyIDRequired):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrInsufficientPermissions),
		errors.Is(err, timesheet.ErrUnauthorized):
		Forbidden(w, err.Error())

	// Geofence domain errors
	case errors.Is(err, geofence.ErrZoneNotFound):
		NotFound(w, "Geofence zone not found")
	case errors.Is(err, geofence.ErrZoneNameExists):
		Conflict(w, err.Error())

	// Timesheet domain errors
	case errors.Is(err, timesheet.ErrTimesheetNotFound):
		NotFound(w, "Timesheet not found")
	case errors.Is(err, timesheet.ErrInvalidTransition),
		errors.Is(err, timesheet.ErrConcurrentModification),
		errors.Is(err, timesheet.ErrTimesheetOverlap),
		errors.Is(err, timesheet.ErrTimesheetNotEditable):
		Conflict(w, err.Error())
	case errors.Is(err, timesheet.ErrWeeklyHoursExceeded),
		errors.Is(err, timesheet.ErrMonthlyOvertimeExceeded),
		errors.Is(err, timesheet.ErrOutsideGeofence):
		UnprocessableEntity(w, err.Error())
	case errors.Is(err, timesheet.ErrInvalidStage),
		errors.Is(err, timesheet.ErrEmployeeIDRequired):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("unhandled error", slog.Any("error", err))
		InternalServerError(w, "An unexpected error occurred")
	}
}
