package timesheet

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testCompanyID = "company-1"

// ===== FAKES =====

type fakeTimesheetRepo struct {
	rows map[string]timesheet.Timesheet
	// staleReads makes GetByID hand out an outdated version, as if another
	// request committed in between.
	staleReads bool
	// writeErr fails the next Create or Update, as the database would.
	writeErr error
}

func newFakeTimesheetRepo() *fakeTimesheetRepo {
	return &fakeTimesheetRepo{rows: make(map[string]timesheet.Timesheet)}
}

func (r *fakeTimesheetRepo) takeWriteErr() error {
	err := r.writeErr
	r.writeErr = nil
	return err
}

func (r *fakeTimesheetRepo) Create(ctx context.Context, ts timesheet.Timesheet) (timesheet.Timesheet, error) {
	if err := r.takeWriteErr(); err != nil {
		return timesheet.Timesheet{}, fmt.Errorf("failed to create timesheet: %w", err)
	}
	ts.ID = newID()
	ts.Version = 1
	ts.CreatedAt = time.Now()
	ts.UpdatedAt = ts.CreatedAt
	r.rows[ts.ID] = ts
	return ts, nil
}

func (r *fakeTimesheetRepo) GetByID(ctx context.Context, id string, companyID string) (timesheet.Timesheet, error) {
	ts, ok := r.rows[id]
	if !ok || ts.CompanyID != companyID || ts.DeletedAt != nil {
		return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
	}
	if r.staleReads {
		ts.Version--
	}
	return ts, nil
}

func (r *fakeTimesheetRepo) cas(ts timesheet.Timesheet) (timesheet.Timesheet, error) {
	current, ok := r.rows[ts.ID]
	if !ok || current.CompanyID != ts.CompanyID || current.DeletedAt != nil {
		return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
	}
	if current.Version != ts.Version {
		return timesheet.Timesheet{}, timesheet.ErrConcurrentModification
	}
	ts.Version++
	ts.UpdatedAt = time.Now()
	stored := ts
	stored.ApprovalEvents = nil
	r.rows[ts.ID] = stored
	return ts, nil
}

func (r *fakeTimesheetRepo) Update(ctx context.Context, ts timesheet.Timesheet) (timesheet.Timesheet, error) {
	if err := r.takeWriteErr(); err != nil {
		return timesheet.Timesheet{}, fmt.Errorf("failed to update timesheet: %w", err)
	}
	return r.cas(ts)
}

func (r *fakeTimesheetRepo) UpdateStatus(ctx context.Context, ts timesheet.Timesheet) (timesheet.Timesheet, error) {
	return r.cas(ts)
}

func (r *fakeTimesheetRepo) SoftDelete(ctx context.Context, id string, companyID string, version int64) error {
	ts, err := r.GetByID(ctx, id, companyID)
	if err != nil {
		return err
	}
	if ts.Version != version {
		return timesheet.ErrConcurrentModification
	}
	now := time.Now()
	ts.DeletedAt = &now
	r.rows[id] = ts
	return nil
}

func (r *fakeTimesheetRepo) List(ctx context.Context, filter timesheet.TimesheetFilter, companyID string) ([]timesheet.Timesheet, int64, error) {
	var out []timesheet.Timesheet
	for _, ts := range r.rows {
		if ts.CompanyID != companyID || ts.DeletedAt != nil {
			continue
		}
		if filter.EmployeeID != nil && ts.EmployeeID != *filter.EmployeeID {
			continue
		}
		out = append(out, ts)
	}
	slices.SortFunc(out, func(a, b timesheet.Timesheet) int { return a.Date.Compare(b.Date) })
	return out, int64(len(out)), nil
}

func (r *fakeTimesheetRepo) ListByEmployeeBetween(ctx context.Context, employeeID string, companyID string, from time.Time, to time.Time) ([]timesheet.Timesheet, error) {
	var out []timesheet.Timesheet
	for _, ts := range r.rows {
		if ts.EmployeeID == employeeID && ts.CompanyID == companyID && ts.DeletedAt == nil &&
			!ts.Date.Before(from) && ts.Date.Before(to) {
			out = append(out, ts)
		}
	}
	return out, nil
}

type fakeEventRepo struct {
	events []timesheet.ApprovalEvent
}

func (r *fakeEventRepo) Append(ctx context.Context, events []timesheet.ApprovalEvent) error {
	for _, e := range events {
		e.ID = newID()
		r.events = append(r.events, e)
	}
	return nil
}

func (r *fakeEventRepo) ListByTimesheet(ctx context.Context, timesheetID string, companyID string) ([]timesheet.ApprovalEvent, error) {
	var out []timesheet.ApprovalEvent
	for _, e := range r.events {
		if e.TimesheetID == timesheetID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b timesheet.ApprovalEvent) int { return cmp.Compare(a.OccurredAt.UnixNano(), b.OccurredAt.UnixNano()) })
	return out, nil
}

type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeZones struct {
	zones []geofence.Zone
	err   error
}

func (f *fakeZones) ResolveZones(ctx context.Context, companyID string, zoneID *string, projectID *string) ([]geofence.Zone, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.zones, nil
}

type mockAlerter struct {
	mock.Mock
}

func (m *mockAlerter) EnqueueViolationAlert(ctx context.Context, alert timesheet.ViolationAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

// ===== HELPERS =====

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func ptr[T any](v T) *T {
	return &v
}

type testEnv struct {
	svc     *TimesheetServiceImpl
	repo    *fakeTimesheetRepo
	events  *fakeEventRepo
	tx      *fakeTransactor
	zones   *fakeZones
	alerter *mockAlerter
	jwt     jwt.Service

	employeeID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:       newFakeTimesheetRepo(),
		events:     &fakeEventRepo{},
		tx:         &fakeTransactor{},
		zones:      &fakeZones{},
		alerter:    &mockAlerter{},
		jwt:        jwt.NewJWTService("test-secret", time.Hour),
		employeeID: newID(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.svc = NewTimesheetService(env.tx, env.repo, env.events, env.zones, env.alerter,
		timesheet.DefaultLimits(), metrics.NewMetrics(), logger, time.UTC).(*TimesheetServiceImpl)
	env.svc.now = func() time.Time { return time.Date(2024, 3, 13, 8, 0, 0, 0, time.UTC) }
	return env
}

func (e *testEnv) as(t *testing.T, role user.Role, employeeID *string) context.Context {
	t.Helper()
	ctx, err := jwt.WithActor(context.Background(), e.jwt, user.Actor{
		UserID:     "user-" + string(role),
		CompanyID:  testCompanyID,
		EmployeeID: employeeID,
		Role:       role,
	})
	require.NoError(t, err)
	return ctx
}

func (e *testEnv) employee(t *testing.T) context.Context {
	return e.as(t, user.RoleEmployee, &e.employeeID)
}

func hours(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func (e *testEnv) create(t *testing.T, date string, regular, overtime int64) timesheet.TimesheetResponse {
	t.Helper()
	resp, err := e.svc.Create(e.employee(t), timesheet.CreateTimesheetRequest{
		Date:          date,
		RegularHours:  hours(regular),
		OvertimeHours: hours(overtime),
	})
	require.NoError(t, err)
	return resp
}

// ===== CREATE / UPDATE =====

func TestTimesheetService_Create(t *testing.T) {
	env := newTestEnv(t)

	resp := env.create(t, "2024-03-13", 8, 2)
	assert.Equal(t, "draft", resp.Status)
	assert.Equal(t, env.employeeID, resp.EmployeeID)
	assert.Equal(t, "2024-03-13", resp.Date)
	assert.True(t, resp.TotalHours.Equal(hours(10)))
	assert.Equal(t, int64(1), resp.Version)
	assert.True(t, resp.CanBeSubmitted)
	assert.Nil(t, resp.NextStage)
	assert.Empty(t, resp.GeofenceViolations)

	t.Run("same day twice", func(t *testing.T) {
		_, err := env.svc.Create(env.employee(t), timesheet.CreateTimesheetRequest{Date: "2024-03-13", RegularHours: hours(1)})
		assert.ErrorIs(t, err, timesheet.ErrTimesheetOverlap)
	})

	t.Run("filing for someone else needs manage", func(t *testing.T) {
		other := newID()
		_, err := env.svc.Create(env.employee(t), timesheet.CreateTimesheetRequest{EmployeeID: &other, Date: "2024-03-14", RegularHours: hours(8)})
		assert.ErrorIs(t, err, timesheet.ErrUnauthorized)

		resp, err := env.svc.Create(env.as(t, user.RoleManager, nil), timesheet.CreateTimesheetRequest{EmployeeID: &other, Date: "2024-03-14", RegularHours: hours(8)})
		require.NoError(t, err)
		assert.Equal(t, other, resp.EmployeeID)
	})

	t.Run("caller without employee record", func(t *testing.T) {
		_, err := env.svc.Create(env.as(t, user.RoleManager, nil), timesheet.CreateTimesheetRequest{Date: "2024-03-15", RegularHours: hours(8)})
		assert.ErrorIs(t, err, timesheet.ErrEmployeeIDRequired)
	})

	t.Run("checker cannot file timesheets", func(t *testing.T) {
		_, err := env.svc.Create(env.as(t, user.RoleChecker, ptr(newID())), timesheet.CreateTimesheetRequest{Date: "2024-03-15", RegularHours: hours(8)})
		assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
	})

	t.Run("unknown zone", func(t *testing.T) {
		env.zones.err = geofence.ErrZoneNotFound
		defer func() { env.zones.err = nil }()
		_, err := env.svc.Create(env.employee(t), timesheet.CreateTimesheetRequest{Date: "2024-03-20", GeofenceZoneID: ptr(newID()), RegularHours: hours(8)})
		assert.ErrorIs(t, err, geofence.ErrZoneNotFound)
	})
}

func TestTimesheetService_ConcurrentCreateSameDay(t *testing.T) {
	env := newTestEnv(t)

	// both requests passed the overlap read; the unique index rejects the loser
	env.repo.writeErr = &pgconn.PgError{Code: "23505", ConstraintName: "uq_timesheets_employee_date"}
	_, err := env.svc.Create(env.employee(t), timesheet.CreateTimesheetRequest{Date: "2024-03-13", RegularHours: hours(8)})
	assert.ErrorIs(t, err, timesheet.ErrTimesheetOverlap)

	created := env.create(t, "2024-03-14", 8, 0)
	env.repo.writeErr = &pgconn.PgError{Code: "23505", ConstraintName: "uq_timesheets_employee_date"}
	_, err = env.svc.Update(env.employee(t), timesheet.UpdateTimesheetRequest{
		ID:           created.ID,
		Date:         "2024-03-15",
		RegularHours: hours(8),
	})
	assert.ErrorIs(t, err, timesheet.ErrTimesheetOverlap)

	env.repo.writeErr = errors.New("connection reset")
	_, err = env.svc.Create(env.employee(t), timesheet.CreateTimesheetRequest{Date: "2024-03-16", RegularHours: hours(8)})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, timesheet.ErrTimesheetOverlap)
}

func TestTimesheetService_WeeklyLimit(t *testing.T) {
	env := newTestEnv(t)

	for _, day := range []string{"2024-03-11", "2024-03-12", "2024-03-13", "2024-03-14", "2024-03-15"} {
		env.create(t, day, 11, 0)
	}

	_, err := env.svc.Create(env.employee(t), timesheet.CreateTimesheetRequest{Date: "2024-03-16", RegularHours: hours(6)})
	assert.ErrorIs(t, err, timesheet.ErrWeeklyHoursExceeded)

	// exactly on the limit is allowed
	env.create(t, "2024-03-16", 5, 0)
	// next Monday starts a new week
	env.create(t, "2024-03-18", 11, 0)
}

func TestTimesheetService_MonthlyOvertimeLimit(t *testing.T) {
	env := newTestEnv(t)

	for _, day := range []string{"2024-03-04", "2024-03-11", "2024-03-18", "2024-03-25"} {
		env.create(t, day, 0, 10)
	}

	_, err := env.svc.Create(env.employee(t), timesheet.CreateTimesheetRequest{Date: "2024-03-26", OvertimeHours: hours(1)})
	assert.ErrorIs(t, err, timesheet.ErrMonthlyOvertimeExceeded)

	env.create(t, "2024-04-01", 0, 10)
}

func TestTimesheetService_Update(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "2024-03-13", 8, 0)

	updated, err := env.svc.Update(env.employee(t), timesheet.UpdateTimesheetRequest{
		ID:            created.ID,
		Date:          "2024-03-13",
		RegularHours:  hours(7),
		OvertimeHours: hours(3),
		Description:   ptr("poured slab"),
	})
	require.NoError(t, err)
	assert.True(t, updated.TotalHours.Equal(hours(10)))
	assert.Equal(t, int64(2), updated.Version)

	t.Run("other employees cannot edit", func(t *testing.T) {
		_, err := env.svc.Update(env.as(t, user.RoleEmployee, ptr(newID())), timesheet.UpdateTimesheetRequest{ID: created.ID, Date: "2024-03-13"})
		assert.ErrorIs(t, err, timesheet.ErrUnauthorized)
	})

	t.Run("submitted timesheets are frozen", func(t *testing.T) {
		_, err := env.svc.Submit(env.employee(t), timesheet.SubmitTimesheetRequest{TimesheetID: created.ID})
		require.NoError(t, err)

		_, err = env.svc.Update(env.employee(t), timesheet.UpdateTimesheetRequest{ID: created.ID, Date: "2024-03-13", RegularHours: hours(1)})
		assert.ErrorIs(t, err, timesheet.ErrTimesheetNotEditable)
		assert.ErrorIs(t, env.svc.Delete(env.employee(t), created.ID), timesheet.ErrTimesheetNotEditable)
	})
}

func TestTimesheetService_GetAndDelete(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "2024-03-13", 8, 0)

	_, err := env.svc.Get(env.as(t, user.RoleForeman, ptr(newID())), created.ID)
	require.NoError(t, err, "view_all sees every timesheet")

	_, err = env.svc.Get(env.as(t, user.RoleEmployee, ptr(newID())), created.ID)
	assert.ErrorIs(t, err, timesheet.ErrUnauthorized)

	require.NoError(t, env.svc.Delete(env.employee(t), created.ID))
	_, err = env.svc.Get(env.employee(t), created.ID)
	assert.ErrorIs(t, err, timesheet.ErrTimesheetNotFound)
}

func TestTimesheetService_List(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "2024-03-12", 8, 0)
	env.create(t, "2024-03-13", 8, 0)

	other := newID()
	_, err := env.svc.Create(env.as(t, user.RoleManager, nil), timesheet.CreateTimesheetRequest{EmployeeID: &other, Date: "2024-03-13", RegularHours: hours(8)})
	require.NoError(t, err)

	own, err := env.svc.List(env.employee(t), timesheet.TimesheetFilter{EmployeeID: &other})
	require.NoError(t, err)
	assert.Equal(t, int64(2), own.TotalCount, "employees only ever see their own entries")
	assert.Equal(t, "1-2 of 2", own.Showing)
	assert.Equal(t, "2024-03-12", own.Timesheets[0].Date)

	all, err := env.svc.List(env.as(t, user.RoleManager, nil), timesheet.TimesheetFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalCount)
	assert.Equal(t, 1, all.TotalPages)
}

// ===== WORKFLOW =====

func TestTimesheetService_ApprovalPipeline(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "2024-03-13", 8, 1)

	submitted, err := env.svc.Submit(env.employee(t), timesheet.SubmitTimesheetRequest{TimesheetID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "submitted", submitted.Status)
	assert.Equal(t, 10, submitted.ApprovalProgressPercentage)
	require.NotNil(t, submitted.NextStage)
	assert.Equal(t, "foreman", *submitted.NextStage)

	steps := []struct {
		stage    string
		role     user.Role
		status   string
		step     int
		progress int
	}{
		{"foreman", user.RoleForeman, "foreman_approved", 1, 40},
		{"incharge", user.RoleIncharge, "incharge_approved", 2, 60},
		{"checking", user.RoleChecker, "checking_approved", 3, 80},
		{"manager", user.RoleManager, "manager_approved", 4, 100},
	}
	for _, step := range steps {
		resp, err := env.svc.Approve(env.as(t, step.role, nil), timesheet.ApproveTimesheetRequest{
			TimesheetID: created.ID,
			Stage:       step.stage,
			Notes:       ptr("ok"),
		})
		require.NoError(t, err, step.stage)
		assert.Equal(t, step.status, resp.Status)
		assert.Equal(t, step.step, resp.CurrentApprovalStep)
		assert.Equal(t, step.progress, resp.ApprovalProgressPercentage)
		approval := resp.Approvals[timesheet.Stage(step.stage)]
		require.NotNil(t, approval, step.stage)
		assert.Equal(t, "user-"+string(step.role), *approval.ApprovedBy)
	}

	events, err := env.svc.ListApprovalEvents(env.employee(t), created.ID)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, "submit", events[0].Action)
	assert.Equal(t, "draft", events[0].FromStatus)
	assert.Equal(t, "approve_manager", events[4].Action)
	assert.Equal(t, "manager_approved", events[4].ToStatus)
	require.NotNil(t, events[4].Stage)
	assert.Equal(t, "manager", *events[4].Stage)
	assert.Equal(t, 5, env.tx.calls-1, "create plus one transaction per transition")

	_, err = env.svc.Reject(env.as(t, user.RoleManager, nil), timesheet.RejectTimesheetRequest{TimesheetID: created.ID, Stage: "manager", Reason: "late"})
	assert.ErrorIs(t, err, timesheet.ErrInvalidTransition, "manager_approved is terminal")
}

func TestTimesheetService_TransitionGuards(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "2024-03-13", 8, 0)

	t.Run("approval before submission", func(t *testing.T) {
		_, err := env.svc.Approve(env.as(t, user.RoleForeman, nil), timesheet.ApproveTimesheetRequest{TimesheetID: created.ID, Stage: "foreman"})
		assert.ErrorIs(t, err, timesheet.ErrInvalidTransition)
		assert.Empty(t, env.events.events)
		assert.Equal(t, "draft", string(env.repo.rows[created.ID].Status))
	})

	_, err := env.svc.Submit(env.employee(t), timesheet.SubmitTimesheetRequest{TimesheetID: created.ID})
	require.NoError(t, err)

	t.Run("stage out of order", func(t *testing.T) {
		_, err := env.svc.Approve(env.as(t, user.RoleManager, nil), timesheet.ApproveTimesheetRequest{TimesheetID: created.ID, Stage: "manager"})
		assert.ErrorIs(t, err, timesheet.ErrInvalidTransition)
	})

	t.Run("role lacks stage permission", func(t *testing.T) {
		_, err := env.svc.Approve(env.as(t, user.RoleForeman, nil), timesheet.ApproveTimesheetRequest{TimesheetID: created.ID, Stage: "incharge"})
		assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
		_, err = env.svc.Reject(env.employee(t), timesheet.RejectTimesheetRequest{TimesheetID: created.ID, Stage: "foreman", Reason: "no"})
		assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
	})

	t.Run("unknown stage", func(t *testing.T) {
		_, err := env.svc.Approve(env.as(t, user.RoleOwner, nil), timesheet.ApproveTimesheetRequest{TimesheetID: created.ID, Stage: "director"})
		assert.Error(t, err)
	})

	t.Run("cancel while in review", func(t *testing.T) {
		_, err := env.svc.Cancel(env.employee(t), timesheet.CancelTimesheetRequest{TimesheetID: created.ID})
		assert.ErrorIs(t, err, timesheet.ErrInvalidTransition)
	})
}

func TestTimesheetService_RejectAndResubmit(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "2024-03-13", 8, 0)

	_, err := env.svc.Submit(env.employee(t), timesheet.SubmitTimesheetRequest{TimesheetID: created.ID})
	require.NoError(t, err)
	_, err = env.svc.Approve(env.as(t, user.RoleForeman, nil), timesheet.ApproveTimesheetRequest{TimesheetID: created.ID, Stage: "foreman"})
	require.NoError(t, err)

	rejected, err := env.svc.Reject(env.as(t, user.RoleIncharge, nil), timesheet.RejectTimesheetRequest{
		TimesheetID: created.ID,
		Stage:       "incharge",
		Reason:      "hours do not match the site log",
	})
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, -1, rejected.CurrentApprovalStep)
	assert.True(t, rejected.CanBeEdited)
	require.NotNil(t, rejected.Rejection)
	assert.Equal(t, "incharge", *rejected.Rejection.Stage)
	assert.Equal(t, "hours do not match the site log", *rejected.Rejection.Reason)

	_, err = env.svc.Update(env.employee(t), timesheet.UpdateTimesheetRequest{ID: created.ID, Date: "2024-03-13", RegularHours: hours(7)})
	require.NoError(t, err)

	resubmitted, err := env.svc.Submit(env.employee(t), timesheet.SubmitTimesheetRequest{TimesheetID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "submitted", resubmitted.Status)
	assert.Nil(t, resubmitted.Rejection)
	assert.Nil(t, env.repo.rows[created.ID].RejectionStage)

	events, err := env.svc.ListApprovalEvents(env.as(t, user.RoleManager, nil), created.ID)
	require.NoError(t, err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"submit", "approve_foreman", "reject", "submit"}, actions)
}

func TestTimesheetService_Cancel(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "2024-03-13", 8, 0)

	cancelled, err := env.svc.Cancel(env.employee(t), timesheet.CancelTimesheetRequest{TimesheetID: created.ID, Reason: ptr("duplicate")})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	_, err = env.svc.Submit(env.employee(t), timesheet.SubmitTimesheetRequest{TimesheetID: created.ID})
	assert.ErrorIs(t, err, timesheet.ErrInvalidTransition)

	// a cancelled entry no longer blocks the day
	env.create(t, "2024-03-13", 8, 0)
}

func TestTimesheetService_ConcurrentModification(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "2024-03-13", 8, 0)

	env.repo.staleReads = true
	_, err := env.svc.Submit(env.employee(t), timesheet.SubmitTimesheetRequest{TimesheetID: created.ID})
	assert.ErrorIs(t, err, timesheet.ErrConcurrentModification)
	assert.Empty(t, env.events.events)
	assert.Equal(t, timesheet.StatusDraft, env.repo.rows[created.ID].Status)

	env.repo.staleReads = false
	_, err = env.svc.Submit(env.employee(t), timesheet.SubmitTimesheetRequest{TimesheetID: created.ID})
	require.NoError(t, err)

	_, err = env.svc.Submit(env.employee(t), timesheet.SubmitTimesheetRequest{TimesheetID: newID()})
	assert.ErrorIs(t, err, timesheet.ErrTimesheetNotFound)
}

// ===== LOCATION =====

func siteZone(strict bool) geofence.Zone {
	return geofence.Zone{
		ID:                newID(),
		CompanyID:         testCompanyID,
		Name:              "Main yard",
		ZoneType:          geofence.ZoneTypeCircular,
		CenterLatitude:    ptr(-6.2),
		CenterLongitude:   ptr(106.8),
		RadiusMeters:      100,
		IsActive:          true,
		StrictEnforcement: strict,
		MonitoringEnabled: true,
		AlertOnViolation:  true,
	}
}

func TestTimesheetService_RecordLocation(t *testing.T) {
	t.Run("inside the zone", func(t *testing.T) {
		env := newTestEnv(t)
		zone := siteZone(false)
		env.zones.zones = []geofence.Zone{zone}
		created := env.create(t, "2024-03-13", 8, 0)

		resp, err := env.svc.RecordLocation(env.employee(t), timesheet.RecordLocationRequest{
			TimesheetID: created.ID,
			Kind:        "start",
			Latitude:    -6.2001,
			Longitude:   106.8,
		})
		require.NoError(t, err)
		require.NotNil(t, resp.IsWithinGeofence)
		assert.True(t, *resp.IsWithinGeofence)
		assert.True(t, resp.Timesheet.LocationVerified)
		assert.Equal(t, zone.ID, *resp.ZoneID)
		assert.Nil(t, resp.Violation)
		assert.Equal(t, -6.2001, *resp.Timesheet.StartLatitude)
		env.alerter.AssertNotCalled(t, "EnqueueViolationAlert", mock.Anything, mock.Anything)
	})

	t.Run("outside a monitored zone raises an alert", func(t *testing.T) {
		env := newTestEnv(t)
		zone := siteZone(false)
		env.zones.zones = []geofence.Zone{zone}
		created := env.create(t, "2024-03-13", 8, 0)

		env.alerter.On("EnqueueViolationAlert", mock.Anything, mock.MatchedBy(func(a timesheet.ViolationAlert) bool {
			return a.ZoneID == zone.ID && a.TimesheetID == created.ID && a.Kind == timesheet.LocationEnd && !a.Strict
		})).Return(nil).Once()

		resp, err := env.svc.RecordLocation(env.employee(t), timesheet.RecordLocationRequest{
			TimesheetID: created.ID,
			Kind:        "end",
			Latitude:    -6.21,
			Longitude:   106.8,
		})
		require.NoError(t, err)
		assert.False(t, *resp.IsWithinGeofence)
		require.NotNil(t, resp.Violation)
		assert.InDelta(t, 1112, resp.Violation.DistanceMeters, 5)
		require.Len(t, resp.Timesheet.GeofenceViolations, 1)
		assert.Len(t, env.repo.rows[created.ID].GeofenceViolations, 1)
		env.alerter.AssertExpectations(t)
	})

	t.Run("strict zone refuses the report", func(t *testing.T) {
		env := newTestEnv(t)
		env.zones.zones = []geofence.Zone{siteZone(true)}
		created := env.create(t, "2024-03-13", 8, 0)
		env.alerter.On("EnqueueViolationAlert", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := env.svc.RecordLocation(env.employee(t), timesheet.RecordLocationRequest{
			TimesheetID: created.ID,
			Kind:        "start",
			Latitude:    -6.21,
			Longitude:   106.8,
		})
		assert.ErrorIs(t, err, timesheet.ErrOutsideGeofence)
		stored := env.repo.rows[created.ID]
		assert.Nil(t, stored.StartLatitude)
		assert.Empty(t, stored.GeofenceViolations)
		assert.Equal(t, int64(1), stored.Version)
		env.alerter.AssertExpectations(t)
	})

	t.Run("failed alert does not fail the report", func(t *testing.T) {
		env := newTestEnv(t)
		env.zones.zones = []geofence.Zone{siteZone(false)}
		created := env.create(t, "2024-03-13", 8, 0)
		env.alerter.On("EnqueueViolationAlert", mock.Anything, mock.Anything).Return(errors.New("redis down"))

		_, err := env.svc.RecordLocation(env.employee(t), timesheet.RecordLocationRequest{TimesheetID: created.ID, Kind: "start", Latitude: -6.21, Longitude: 106.8})
		require.NoError(t, err)
	})

	t.Run("no zones leaves the reading unevaluated", func(t *testing.T) {
		env := newTestEnv(t)
		created := env.create(t, "2024-03-13", 8, 0)

		resp, err := env.svc.RecordLocation(env.employee(t), timesheet.RecordLocationRequest{TimesheetID: created.ID, Kind: "start", Latitude: 1, Longitude: 1})
		require.NoError(t, err)
		assert.Nil(t, resp.IsWithinGeofence)
		assert.Nil(t, resp.ZoneID)
		assert.False(t, resp.Timesheet.LocationVerified)
	})

	t.Run("deleted zone is treated as no zone", func(t *testing.T) {
		env := newTestEnv(t)
		created := env.create(t, "2024-03-13", 8, 0)
		env.zones.err = geofence.ErrZoneNotFound

		resp, err := env.svc.RecordLocation(env.employee(t), timesheet.RecordLocationRequest{TimesheetID: created.ID, Kind: "start", Latitude: 1, Longitude: 1})
		require.NoError(t, err)
		assert.Nil(t, resp.IsWithinGeofence)
	})

	t.Run("only while editable", func(t *testing.T) {
		env := newTestEnv(t)
		created := env.create(t, "2024-03-13", 8, 0)
		_, err := env.svc.Submit(env.employee(t), timesheet.SubmitTimesheetRequest{TimesheetID: created.ID})
		require.NoError(t, err)

		_, err = env.svc.RecordLocation(env.employee(t), timesheet.RecordLocationRequest{TimesheetID: created.ID, Kind: "start", Latitude: 1, Longitude: 1})
		assert.ErrorIs(t, err, timesheet.ErrTimesheetNotEditable)
	})
}
