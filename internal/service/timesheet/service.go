package timesheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5/pgconn"
)

// Transactor runs fn in one database transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ZoneResolver returns the candidate zones of a timesheet.
type ZoneResolver interface {
	ResolveZones(ctx context.Context, companyID string, zoneID *string, projectID *string) ([]geofence.Zone, error)
}

type TimesheetServiceImpl struct {
	tx      Transactor
	repo    timesheet.TimesheetRepository
	events  timesheet.ApprovalEventRepository
	zones   ZoneResolver
	alerter timesheet.ViolationAlerter
	limits  timesheet.Limits
	metrics *metrics.Metrics
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewTimesheetService(
	tx Transactor,
	repo timesheet.TimesheetRepository,
	events timesheet.ApprovalEventRepository,
	zones ZoneResolver,
	alerter timesheet.ViolationAlerter,
	limits timesheet.Limits,
	m *metrics.Metrics,
	logger *slog.Logger,
	loc *time.Location,
) timesheet.TimesheetService {
	if loc == nil {
		loc = time.UTC
	}
	return &TimesheetServiceImpl{
		tx:      tx,
		repo:    repo,
		events:  events,
		zones:   zones,
		alerter: alerter,
		limits:  limits,
		metrics: m,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

// Create implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Create(ctx context.Context, req timesheet.CreateTimesheetRequest) (timesheet.TimesheetResponse, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	if !actor.Can(user.PermissionTimesheetCreate) {
		return timesheet.TimesheetResponse{}, user.ErrInsufficientPermissions
	}

	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	employeeID, err := targetEmployee(actor, req.EmployeeID)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	date, _ := validator.IsValidDate(req.Date)
	ts := timesheet.New(actor.CompanyID, employeeID, date, req.RegularHours, req.OvertimeHours)
	ts.ProjectID = req.ProjectID
	ts.GeofenceZoneID = req.GeofenceZoneID
	ts.StartTime = req.StartTime
	ts.EndTime = req.EndTime
	ts.Description = req.Description

	if err := s.checkZone(ctx, ts); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	var created timesheet.Timesheet
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkRules(ctx, ts); err != nil {
			return err
		}
		created, err = s.repo.Create(ctx, ts)
		if err != nil {
			// a concurrent create for the same day won the insert
			if isUniqueViolation(err) {
				return timesheet.ErrTimesheetOverlap
			}
			return fmt.Errorf("failed to create timesheet: %w", err)
		}
		return nil
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	s.logger.InfoContext(ctx, "timesheet created",
		slog.String("timesheet_id", created.ID),
		slog.String("employee_id", created.EmployeeID),
		slog.String("date", created.Date.Format("2006-01-02")),
	)
	return mapTimesheetToResponse(created), nil
}

// Update implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Update(ctx context.Context, req timesheet.UpdateTimesheetRequest) (timesheet.TimesheetResponse, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	var updated timesheet.Timesheet
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ts, err := s.loadOwned(ctx, actor, req.ID)
		if err != nil {
			return err
		}
		if !ts.CanBeEdited() {
			return timesheet.ErrTimesheetNotEditable
		}

		date, _ := validator.IsValidDate(req.Date)
		ts.Date = timesheet.DateOnly(date)
		ts.ProjectID = req.ProjectID
		ts.GeofenceZoneID = req.GeofenceZoneID
		ts.StartTime = req.StartTime
		ts.EndTime = req.EndTime
		ts.RegularHours = req.RegularHours
		ts.OvertimeHours = req.OvertimeHours
		ts.Description = req.Description
		ts = ts.Recalculate()

		if err := s.checkZone(ctx, ts); err != nil {
			return err
		}
		if err := s.checkRules(ctx, ts); err != nil {
			return err
		}

		updated, err = s.repo.Update(ctx, ts)
		if isUniqueViolation(err) {
			return timesheet.ErrTimesheetOverlap
		}
		return err
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	return mapTimesheetToResponse(updated), nil
}

// Get implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Get(ctx context.Context, id string) (timesheet.TimesheetResponse, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	ts, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	return mapTimesheetToResponse(ts), nil
}

// List implements timesheet.TimesheetService. Callers without view_all only
// see their own entries.
func (s *TimesheetServiceImpl) List(ctx context.Context, filter timesheet.TimesheetFilter) (timesheet.ListTimesheetResponse, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return timesheet.ListTimesheetResponse{}, err
	}

	if !actor.Can(user.PermissionTimesheetViewAll) {
		if !actor.Can(user.PermissionTimesheetViewOwn) {
			return timesheet.ListTimesheetResponse{}, user.ErrInsufficientPermissions
		}
		if actor.EmployeeID == nil {
			return timesheet.ListTimesheetResponse{}, timesheet.ErrEmployeeIDRequired
		}
		filter.EmployeeID = actor.EmployeeID
	}

	if err := filter.Validate(); err != nil {
		return timesheet.ListTimesheetResponse{}, err
	}

	timesheets, total, err := s.repo.List(ctx, filter, actor.CompanyID)
	if err != nil {
		return timesheet.ListTimesheetResponse{}, fmt.Errorf("failed to list timesheets: %w", err)
	}

	responses := make([]timesheet.TimesheetResponse, 0, len(timesheets))
	for _, ts := range timesheets {
		responses = append(responses, mapTimesheetToResponse(ts))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return timesheet.ListTimesheetResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Timesheets: responses,
	}, nil
}

// Delete implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Delete(ctx context.Context, id string) error {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return err
	}

	ts, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if !ts.CanBeEdited() {
		return timesheet.ErrTimesheetNotEditable
	}

	if err := s.repo.SoftDelete(ctx, ts.ID, ts.CompanyID, ts.Version); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "timesheet deleted",
		slog.String("timesheet_id", ts.ID),
		slog.String("actor_id", actor.UserID),
	)
	return nil
}

// RecordLocation implements timesheet.TimesheetService.
//
// A strict violation refuses the report and nothing is stored, but the alert
// still goes out when the zone asks for one.
func (s *TimesheetServiceImpl) RecordLocation(ctx context.Context, req timesheet.RecordLocationRequest) (timesheet.RecordLocationResponse, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return timesheet.RecordLocationResponse{}, err
	}

	if err := req.Validate(); err != nil {
		return timesheet.RecordLocationResponse{}, err
	}

	ts, err := s.loadOwned(ctx, actor, req.TimesheetID)
	if err != nil {
		return timesheet.RecordLocationResponse{}, err
	}
	if !ts.CanBeEdited() {
		return timesheet.RecordLocationResponse{}, timesheet.ErrTimesheetNotEditable
	}

	zones, err := s.zones.ResolveZones(ctx, ts.CompanyID, ts.GeofenceZoneID, ts.ProjectID)
	if err != nil {
		// the explicit zone was removed after the timesheet was filed
		if !errors.Is(err, geofence.ErrZoneNotFound) {
			return timesheet.RecordLocationResponse{}, fmt.Errorf("failed to resolve geofence zones: %w", err)
		}
		zones = nil
	}

	recordedAt := s.now()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}
	reading := timesheet.LocationReading{
		Kind:               timesheet.LocationKind(req.Kind),
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		AccuracyMeters:     req.AccuracyMeters,
		VerificationMethod: req.VerificationMethod,
		RecordedAt:         recordedAt.UTC(),
	}

	eval := timesheet.EvaluateLocation(zones, reading, recordedAt.In(s.loc))
	switch {
	case !eval.Evaluated:
		s.metrics.ObserveGeofenceCheck("unevaluated")
	case eval.IsWithin:
		s.metrics.ObserveGeofenceCheck("within")
	default:
		s.metrics.ObserveGeofenceCheck("outside")
	}

	if eval.Violation != nil {
		s.metrics.ObserveViolation(eval.Violation.Strict)
		s.logger.WarnContext(ctx, "geofence violation",
			slog.String("timesheet_id", ts.ID),
			slog.String("zone_id", eval.Violation.ZoneID),
			slog.Float64("distance_meters", eval.Violation.DistanceMeters),
			slog.Bool("strict", eval.Violation.Strict),
		)
		if eval.Violation.Strict {
			s.alert(ctx, ts, eval)
			return timesheet.RecordLocationResponse{}, timesheet.ErrOutsideGeofence
		}
	}

	saved, err := s.repo.Update(ctx, ts.WithLocation(reading, eval))
	if err != nil {
		return timesheet.RecordLocationResponse{}, err
	}
	s.alert(ctx, saved, eval)

	resp := timesheet.RecordLocationResponse{
		Timesheet:        mapTimesheetToResponse(saved),
		IsWithinGeofence: saved.IsWithinGeofence,
		DistanceMeters:   saved.DistanceFromSite,
		Violation:        eval.Violation,
	}
	if eval.Zone != nil {
		zoneID := eval.Zone.ID
		resp.ZoneID = &zoneID
	}
	return resp, nil
}

// alert publishes the violation when the zone asks for it. Delivery is best
// effort; a failed enqueue never fails the location report.
func (s *TimesheetServiceImpl) alert(ctx context.Context, ts timesheet.Timesheet, eval timesheet.GeofenceEvaluation) {
	if eval.AlertZone == nil || eval.Violation == nil || s.alerter == nil {
		return
	}
	v := eval.Violation
	err := s.alerter.EnqueueViolationAlert(ctx, timesheet.ViolationAlert{
		TimesheetID:    ts.ID,
		CompanyID:      ts.CompanyID,
		EmployeeID:     ts.EmployeeID,
		ZoneID:         eval.AlertZone.ID,
		ZoneName:       eval.AlertZone.Name,
		Kind:           v.Kind,
		Latitude:       v.Latitude,
		Longitude:      v.Longitude,
		DistanceMeters: v.DistanceMeters,
		Strict:         v.Strict,
		RecordedAt:     v.RecordedAt,
	})
	s.metrics.ObserveAlert(err)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue geofence violation alert",
			slog.String("timesheet_id", ts.ID),
			slog.String("zone_id", eval.AlertZone.ID),
			slog.Any("error", err),
		)
	}
}

// Submit implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Submit(ctx context.Context, req timesheet.SubmitTimesheetRequest) (timesheet.TimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	return s.transition(ctx, req.TimesheetID, timesheet.ActionSubmit, s.ownerOrManager,
		func(ts timesheet.Timesheet, actor user.Actor, at time.Time) (timesheet.Timesheet, bool) {
			return ts.Submit(actor.UserID, at)
		})
}

// Approve implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Approve(ctx context.Context, req timesheet.ApproveTimesheetRequest) (timesheet.TimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	stage := timesheet.Stage(req.Stage)
	action, _ := timesheet.ApproveAction(stage)

	return s.transition(ctx, req.TimesheetID, action, stageGuard(stage),
		func(ts timesheet.Timesheet, actor user.Actor, at time.Time) (timesheet.Timesheet, bool) {
			return ts.Approve(stage, actor.UserID, req.Notes, at)
		})
}

// Reject implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Reject(ctx context.Context, req timesheet.RejectTimesheetRequest) (timesheet.TimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	stage := timesheet.Stage(req.Stage)

	return s.transition(ctx, req.TimesheetID, timesheet.ActionReject, stageGuard(stage),
		func(ts timesheet.Timesheet, actor user.Actor, at time.Time) (timesheet.Timesheet, bool) {
			return ts.Reject(actor.UserID, req.Reason, stage, at)
		})
}

// Cancel implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Cancel(ctx context.Context, req timesheet.CancelTimesheetRequest) (timesheet.TimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	return s.transition(ctx, req.TimesheetID, timesheet.ActionCancel, s.ownerOrManager,
		func(ts timesheet.Timesheet, actor user.Actor, at time.Time) (timesheet.Timesheet, bool) {
			return ts.Cancel(actor.UserID, req.Reason, at)
		})
}

type accessGuard func(actor user.Actor, ts timesheet.Timesheet) error

type transitionFunc func(ts timesheet.Timesheet, actor user.Actor, at time.Time) (timesheet.Timesheet, bool)

// transition loads the timesheet, applies a workflow step and stores the new
// status together with its approval events in one transaction.
func (s *TimesheetServiceImpl) transition(ctx context.Context, id string, action timesheet.Action, guard accessGuard, apply transitionFunc) (timesheet.TimesheetResponse, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	var saved timesheet.Timesheet
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ts, err := s.repo.GetByID(ctx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		if err := guard(actor, ts); err != nil {
			return err
		}

		next, ok := apply(ts, actor, s.now().UTC())
		s.metrics.ObserveTransition(string(action), ok)
		if !ok {
			return fmt.Errorf("cannot %s a %s timesheet: %w", action, ts.Status, timesheet.ErrInvalidTransition)
		}

		saved, err = s.repo.UpdateStatus(ctx, next)
		if err != nil {
			return err
		}
		if err := s.events.Append(ctx, next.ApprovalEvents); err != nil {
			return fmt.Errorf("failed to record approval event: %w", err)
		}
		return nil
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	saved.ApprovalEvents = nil

	s.logger.InfoContext(ctx, "timesheet status changed",
		slog.String("timesheet_id", saved.ID),
		slog.String("action", string(action)),
		slog.String("status", string(saved.Status)),
		slog.String("actor_id", actor.UserID),
	)
	return mapTimesheetToResponse(saved), nil
}

// ListApprovalEvents implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) ListApprovalEvents(ctx context.Context, id string) ([]timesheet.ApprovalEventResponse, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.loadVisible(ctx, actor, id); err != nil {
		return nil, err
	}

	events, err := s.events.ListByTimesheet(ctx, id, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval events: %w", err)
	}

	responses := make([]timesheet.ApprovalEventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, mapEventToResponse(e))
	}
	return responses, nil
}

func (s *TimesheetServiceImpl) checkZone(ctx context.Context, ts timesheet.Timesheet) error {
	if ts.GeofenceZoneID == nil {
		return nil
	}
	_, err := s.zones.ResolveZones(ctx, ts.CompanyID, ts.GeofenceZoneID, nil)
	return err
}

func (s *TimesheetServiceImpl) checkRules(ctx context.Context, ts timesheet.Timesheet) error {
	from, to := timesheet.RuleWindow(ts.Date)
	existing, err := s.repo.ListByEmployeeBetween(ctx, ts.EmployeeID, ts.CompanyID, from, to)
	if err != nil {
		return fmt.Errorf("failed to load existing timesheets: %w", err)
	}

	if timesheet.HasOverlap(existing, ts) {
		return timesheet.ErrTimesheetOverlap
	}
	if timesheet.HasExceededWeeklyLimit(existing, ts, s.limits.WeeklyHours) {
		return timesheet.ErrWeeklyHoursExceeded
	}
	if timesheet.HasExceededMonthlyOvertimeLimit(existing, ts, s.limits.MonthlyOvertime) {
		return timesheet.ErrMonthlyOvertimeExceeded
	}
	return nil
}

func (s *TimesheetServiceImpl) loadVisible(ctx context.Context, actor user.Actor, id string) (timesheet.Timesheet, error) {
	ts, err := s.repo.GetByID(ctx, id, actor.CompanyID)
	if err != nil {
		return timesheet.Timesheet{}, err
	}
	if actor.Can(user.PermissionTimesheetViewAll) || (actor.Can(user.PermissionTimesheetViewOwn) && isOwner(actor, ts)) {
		return ts, nil
	}
	return timesheet.Timesheet{}, timesheet.ErrUnauthorized
}

func (s *TimesheetServiceImpl) loadOwned(ctx context.Context, actor user.Actor, id string) (timesheet.Timesheet, error) {
	ts, err := s.repo.GetByID(ctx, id, actor.CompanyID)
	if err != nil {
		return timesheet.Timesheet{}, err
	}
	if err := s.ownerOrManager(actor, ts); err != nil {
		return timesheet.Timesheet{}, err
	}
	return ts, nil
}

func (s *TimesheetServiceImpl) ownerOrManager(actor user.Actor, ts timesheet.Timesheet) error {
	if isOwner(actor, ts) || actor.Can(user.PermissionTimesheetManage) {
		return nil
	}
	return timesheet.ErrUnauthorized
}

func stageGuard(stage timesheet.Stage) accessGuard {
	return func(actor user.Actor, ts timesheet.Timesheet) error {
		permission, ok := user.StagePermission(string(stage))
		if !ok {
			return timesheet.ErrInvalidStage
		}
		if !actor.Can(permission) {
			return user.ErrInsufficientPermissions
		}
		return nil
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return true
		}
	}
	return false
}

func isOwner(actor user.Actor, ts timesheet.Timesheet) bool {
	return actor.EmployeeID != nil && *actor.EmployeeID == ts.EmployeeID
}

// targetEmployee picks the employee a new timesheet is filed for. Filing for
// someone else needs the manage permission.
func targetEmployee(actor user.Actor, requested *string) (string, error) {
	if requested == nil || *requested == "" {
		if actor.EmployeeID == nil {
			return "", timesheet.ErrEmployeeIDRequired
		}
		return *actor.EmployeeID, nil
	}
	if actor.EmployeeID != nil && *actor.EmployeeID == *requested {
		return *requested, nil
	}
	if !actor.Can(user.PermissionTimesheetManage) {
		return "", timesheet.ErrUnauthorized
	}
	return *requested, nil
}
