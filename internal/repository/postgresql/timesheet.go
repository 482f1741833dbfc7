package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const timesheetColumns = `
	t.id, t.company_id, t.employee_id, t.project_id, t.geofence_zone_id, t.date,
	t.start_time, t.end_time, t.description,
	t.regular_hours, t.overtime_hours, t.total_hours,
	t.start_latitude, t.start_longitude, t.end_latitude, t.end_longitude,
	t.is_within_geofence, t.distance_from_site, t.geofence_violations,
	t.accuracy_meters, t.location_verified, t.verification_method,
	t.status, t.submitted_at,
	t.foreman_approval_by, t.foreman_approval_at, t.foreman_approval_notes,
	t.incharge_approval_by, t.incharge_approval_at, t.incharge_approval_notes,
	t.checking_approval_by, t.checking_approval_at, t.checking_approval_notes,
	t.manager_approval_by, t.manager_approval_at, t.manager_approval_notes,
	t.rejected_by, t.rejected_at, t.rejection_reason, t.rejection_stage,
	t.version, t.created_at, t.updated_at, t.deleted_at`

type timesheetRepository struct {
	db *database.DB
}

func NewTimesheetRepository(db *database.DB) timesheet.TimesheetRepository {
	return &timesheetRepository{db: db}
}

func scanTimesheet(row pgx.Row) (timesheet.Timesheet, error) {
	var ts timesheet.Timesheet
	err := row.Scan(
		&ts.ID, &ts.CompanyID, &ts.EmployeeID, &ts.ProjectID, &ts.GeofenceZoneID, &ts.Date,
		&ts.StartTime, &ts.EndTime, &ts.Description,
		&ts.RegularHours, &ts.OvertimeHours, &ts.TotalHours,
		&ts.StartLatitude, &ts.StartLongitude, &ts.EndLatitude, &ts.EndLongitude,
		&ts.IsWithinGeofence, &ts.DistanceFromSite, &ts.GeofenceViolations,
		&ts.AccuracyMeters, &ts.LocationVerified, &ts.VerificationMethod,
		&ts.Status, &ts.SubmittedAt,
		&ts.ForemanApprovalBy, &ts.ForemanApprovalAt, &ts.ForemanApprovalNotes,
		&ts.InchargeApprovalBy, &ts.InchargeApprovalAt, &ts.InchargeApprovalNotes,
		&ts.CheckingApprovalBy, &ts.CheckingApprovalAt, &ts.CheckingApprovalNotes,
		&ts.ManagerApprovalBy, &ts.ManagerApprovalAt, &ts.ManagerApprovalNotes,
		&ts.RejectedBy, &ts.RejectedAt, &ts.RejectionReason, &ts.RejectionStage,
		&ts.Version, &ts.CreatedAt, &ts.UpdatedAt, &ts.DeletedAt,
	)
	if err != nil {
		return timesheet.Timesheet{}, err
	}
	return ts, nil
}

func violationsOrEmpty(v []timesheet.GeofenceViolation) []timesheet.GeofenceViolation {
	if v == nil {
		return []timesheet.GeofenceViolation{}
	}
	return v
}

// Create implements timesheet.TimesheetRepository.
func (r *timesheetRepository) Create(ctx context.Context, ts timesheet.Timesheet) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	if ts.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return timesheet.Timesheet{}, fmt.Errorf("failed to generate timesheet id: %w", err)
		}
		ts.ID = id.String()
	}

	query := `
		INSERT INTO timesheets (
			id, company_id, employee_id, project_id, geofence_zone_id, date,
			start_time, end_time, description,
			regular_hours, overtime_hours, total_hours,
			geofence_violations, status, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1
		) RETURNING version, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		ts.ID,
		ts.CompanyID,
		ts.EmployeeID,
		ts.ProjectID,
		ts.GeofenceZoneID,
		ts.Date,
		ts.StartTime,
		ts.EndTime,
		ts.Description,
		ts.RegularHours,
		ts.OvertimeHours,
		ts.TotalHours,
		violationsOrEmpty(ts.GeofenceViolations),
		ts.Status,
	).Scan(&ts.Version, &ts.CreatedAt, &ts.UpdatedAt)
	if err != nil {
		return timesheet.Timesheet{}, fmt.Errorf("failed to create timesheet: %w", err)
	}

	return ts, nil
}

// GetByID implements timesheet.TimesheetRepository.
func (r *timesheetRepository) GetByID(ctx context.Context, id string, companyID string) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timesheetColumns + `
		FROM timesheets t
		WHERE t.id = $1 AND t.company_id = $2 AND t.deleted_at IS NULL
	`

	ts, err := scanTimesheet(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
		}
		return timesheet.Timesheet{}, fmt.Errorf("failed to get timesheet by ID: %w", err)
	}

	return ts, nil
}

// Update implements timesheet.TimesheetRepository.
func (r *timesheetRepository) Update(ctx context.Context, ts timesheet.Timesheet) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE timesheets SET
			project_id = $4,
			geofence_zone_id = $5,
			date = $6,
			start_time = $7,
			end_time = $8,
			description = $9,
			regular_hours = $10,
			overtime_hours = $11,
			total_hours = $12,
			start_latitude = $13,
			start_longitude = $14,
			end_latitude = $15,
			end_longitude = $16,
			is_within_geofence = $17,
			distance_from_site = $18,
			geofence_violations = $19,
			accuracy_meters = $20,
			location_verified = $21,
			verification_method = $22,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND version = $3 AND deleted_at IS NULL
		RETURNING version, updated_at
	`

	err := q.QueryRow(ctx, query,
		ts.ID,
		ts.CompanyID,
		ts.Version,
		ts.ProjectID,
		ts.GeofenceZoneID,
		ts.Date,
		ts.StartTime,
		ts.EndTime,
		ts.Description,
		ts.RegularHours,
		ts.OvertimeHours,
		ts.TotalHours,
		ts.StartLatitude,
		ts.StartLongitude,
		ts.EndLatitude,
		ts.EndLongitude,
		ts.IsWithinGeofence,
		ts.DistanceFromSite,
		violationsOrEmpty(ts.GeofenceViolations),
		ts.AccuracyMeters,
		ts.LocationVerified,
		ts.VerificationMethod,
	).Scan(&ts.Version, &ts.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Timesheet{}, r.missReason(ctx, ts.ID, ts.CompanyID)
		}
		return timesheet.Timesheet{}, fmt.Errorf("failed to update timesheet: %w", err)
	}

	return ts, nil
}

// UpdateStatus implements timesheet.TimesheetRepository.
func (r *timesheetRepository) UpdateStatus(ctx context.Context, ts timesheet.Timesheet) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE timesheets SET
			status = $4,
			submitted_at = $5,
			foreman_approval_by = $6,
			foreman_approval_at = $7,
			foreman_approval_notes = $8,
			incharge_approval_by = $9,
			incharge_approval_at = $10,
			incharge_approval_notes = $11,
			checking_approval_by = $12,
			checking_approval_at = $13,
			checking_approval_notes = $14,
			manager_approval_by = $15,
			manager_approval_at = $16,
			manager_approval_notes = $17,
			rejected_by = $18,
			rejected_at = $19,
			rejection_reason = $20,
			rejection_stage = $21,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND version = $3 AND deleted_at IS NULL
		RETURNING version, updated_at
	`

	err := q.QueryRow(ctx, query,
		ts.ID,
		ts.CompanyID,
		ts.Version,
		ts.Status,
		ts.SubmittedAt,
		ts.ForemanApprovalBy,
		ts.ForemanApprovalAt,
		ts.ForemanApprovalNotes,
		ts.InchargeApprovalBy,
		ts.InchargeApprovalAt,
		ts.InchargeApprovalNotes,
		ts.CheckingApprovalBy,
		ts.CheckingApprovalAt,
		ts.CheckingApprovalNotes,
		ts.ManagerApprovalBy,
		ts.ManagerApprovalAt,
		ts.ManagerApprovalNotes,
		ts.RejectedBy,
		ts.RejectedAt,
		ts.RejectionReason,
		ts.RejectionStage,
	).Scan(&ts.Version, &ts.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Timesheet{}, r.missReason(ctx, ts.ID, ts.CompanyID)
		}
		return timesheet.Timesheet{}, fmt.Errorf("failed to update timesheet status: %w", err)
	}

	return ts, nil
}

// SoftDelete implements timesheet.TimesheetRepository.
func (r *timesheetRepository) SoftDelete(ctx context.Context, id string, companyID string, version int64) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE timesheets
		SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
		WHERE id = $1 AND company_id = $2 AND version = $3 AND deleted_at IS NULL
	`

	cmdTag, err := q.Exec(ctx, query, id, companyID, version)
	if err != nil {
		return fmt.Errorf("failed to delete timesheet: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.missReason(ctx, id, companyID)
	}

	return nil
}

// missReason tells a version conflict apart from a missing row after a
// compare-and-swap write matched nothing.
func (r *timesheetRepository) missReason(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM timesheets WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL)`,
		id, companyID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check timesheet existence: %w", err)
	}
	if !exists {
		return timesheet.ErrTimesheetNotFound
	}
	return timesheet.ErrConcurrentModification
}

// List implements timesheet.TimesheetRepository.
func (r *timesheetRepository) List(ctx context.Context, filter timesheet.TimesheetFilter, companyID string) ([]timesheet.Timesheet, int64, error) {
	q := GetQuerier(ctx, r.db)

	// Build WHERE clause
	baseWhere := "t.company_id = $1 AND t.deleted_at IS NULL"
	args := []interface{}{companyID}
	argIdx := 2

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND t.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.ProjectID != nil && *filter.ProjectID != "" {
		baseWhere += fmt.Sprintf(" AND t.project_id = $%d", argIdx)
		args = append(args, *filter.ProjectID)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND t.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	// Date range filters
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND t.date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND t.date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	// Count total
	countQuery := "SELECT COUNT(*) FROM timesheets t WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count timesheets: %w", err)
	}

	// Build ORDER BY
	orderByField := "t.date"
	switch filter.SortBy {
	case "status":
		orderByField = "t.status"
	case "total_hours":
		orderByField = "t.total_hours"
	case "created_at":
		orderByField = "t.created_at"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM timesheets t
		WHERE %s
		ORDER BY %s %s, t.id
		LIMIT $%d OFFSET $%d
	`, timesheetColumns, baseWhere, orderByField, sortOrder, argIdx, argIdx+1)

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page == 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query timesheets: %w", err)
	}
	defer rows.Close()

	var timesheets []timesheet.Timesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan timesheet: %w", err)
		}
		timesheets = append(timesheets, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate timesheets: %w", err)
	}

	return timesheets, total, nil
}

// ListByEmployeeBetween implements timesheet.TimesheetRepository.
func (r *timesheetRepository) ListByEmployeeBetween(ctx context.Context, employeeID string, companyID string, from time.Time, to time.Time) ([]timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timesheetColumns + `
		FROM timesheets t
		WHERE t.employee_id = $1
		  AND t.company_id = $2
		  AND t.date >= $3
		  AND t.date < $4
		  AND t.deleted_at IS NULL
		ORDER BY t.date, t.id
	`

	rows, err := q.Query(ctx, query, employeeID, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee timesheets: %w", err)
	}
	defer rows.Close()

	var timesheets []timesheet.Timesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timesheet: %w", err)
		}
		timesheets = append(timesheets, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timesheets: %w", err)
	}

	return timesheets, nil
}
