package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const zoneColumns = `
	id, company_id, project_id, name, description, zone_type,
	center_latitude, center_longitude, radius_meters, buffer_meters, allow_buffer_zone,
	polygon_coordinates, active_from, active_until, active_days,
	is_active, strict_enforcement, monitoring_enabled, alert_on_violation,
	created_at, updated_at, deleted_at`

type geofenceZoneRepository struct {
	db *database.DB
}

func NewGeofenceZoneRepository(db *database.DB) geofence.ZoneRepository {
	return &geofenceZoneRepository{db: db}
}

func scanZone(row pgx.Row) (geofence.Zone, error) {
	var z geofence.Zone
	err := row.Scan(
		&z.ID, &z.CompanyID, &z.ProjectID, &z.Name, &z.Description, &z.ZoneType,
		&z.CenterLatitude, &z.CenterLongitude, &z.RadiusMeters, &z.BufferMeters, &z.AllowBufferZone,
		&z.PolygonCoordinates, &z.ActiveFrom, &z.ActiveUntil, &z.ActiveDays,
		&z.IsActive, &z.StrictEnforcement, &z.MonitoringEnabled, &z.AlertOnViolation,
		&z.CreatedAt, &z.UpdatedAt, &z.DeletedAt,
	)
	return z, err
}

func collectZones(rows pgx.Rows) ([]geofence.Zone, error) {
	defer rows.Close()

	var zones []geofence.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan geofence zone: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate geofence zones: %w", err)
	}
	return zones, nil
}

func polygonOrEmpty(c []geofence.Coordinate) []geofence.Coordinate {
	if c == nil {
		return []geofence.Coordinate{}
	}
	return c
}

// Create implements geofence.ZoneRepository.
func (r *geofenceZoneRepository) Create(ctx context.Context, zone geofence.Zone) (geofence.Zone, error) {
	q := GetQuerier(ctx, r.db)

	if zone.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return geofence.Zone{}, fmt.Errorf("failed to generate zone id: %w", err)
		}
		zone.ID = id.String()
	}

	query := `
		INSERT INTO geofence_zones (
			id, company_id, project_id, name, description, zone_type,
			center_latitude, center_longitude, radius_meters, buffer_meters, allow_buffer_zone,
			polygon_coordinates, active_from, active_until, active_days,
			is_active, strict_enforcement, monitoring_enabled, alert_on_violation
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		zone.ID,
		zone.CompanyID,
		zone.ProjectID,
		zone.Name,
		zone.Description,
		zone.ZoneType,
		zone.CenterLatitude,
		zone.CenterLongitude,
		zone.RadiusMeters,
		zone.BufferMeters,
		zone.AllowBufferZone,
		polygonOrEmpty(zone.PolygonCoordinates),
		zone.ActiveFrom,
		zone.ActiveUntil,
		zone.ActiveDays,
		zone.IsActive,
		zone.StrictEnforcement,
		zone.MonitoringEnabled,
		zone.AlertOnViolation,
	).Scan(&zone.CreatedAt, &zone.UpdatedAt)
	if err != nil {
		return geofence.Zone{}, fmt.Errorf("failed to create geofence zone: %w", err)
	}

	return zone, nil
}

// GetByID implements geofence.ZoneRepository.
func (r *geofenceZoneRepository) GetByID(ctx context.Context, id string, companyID string) (geofence.Zone, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + zoneColumns + `
		FROM geofence_zones
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`

	z, err := scanZone(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geofence.Zone{}, geofence.ErrZoneNotFound
		}
		return geofence.Zone{}, fmt.Errorf("failed to get geofence zone by ID: %w", err)
	}

	return z, nil
}

// Update implements geofence.ZoneRepository.
func (r *geofenceZoneRepository) Update(ctx context.Context, zone geofence.Zone) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE geofence_zones SET
			project_id = $3,
			name = $4,
			description = $5,
			zone_type = $6,
			center_latitude = $7,
			center_longitude = $8,
			radius_meters = $9,
			buffer_meters = $10,
			allow_buffer_zone = $11,
			polygon_coordinates = $12,
			active_from = $13,
			active_until = $14,
			active_days = $15,
			is_active = $16,
			strict_enforcement = $17,
			monitoring_enabled = $18,
			alert_on_violation = $19,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`

	cmdTag, err := q.Exec(ctx, query,
		zone.ID,
		zone.CompanyID,
		zone.ProjectID,
		zone.Name,
		zone.Description,
		zone.ZoneType,
		zone.CenterLatitude,
		zone.CenterLongitude,
		zone.RadiusMeters,
		zone.BufferMeters,
		zone.AllowBufferZone,
		polygonOrEmpty(zone.PolygonCoordinates),
		zone.ActiveFrom,
		zone.ActiveUntil,
		zone.ActiveDays,
		zone.IsActive,
		zone.StrictEnforcement,
		zone.MonitoringEnabled,
		zone.AlertOnViolation,
	)
	if err != nil {
		return fmt.Errorf("failed to update geofence zone: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return geofence.ErrZoneNotFound
	}

	return nil
}

// SoftDelete implements geofence.ZoneRepository.
func (r *geofenceZoneRepository) SoftDelete(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE geofence_zones
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`

	cmdTag, err := q.Exec(ctx, query, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete geofence zone: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return geofence.ErrZoneNotFound
	}

	return nil
}

// List implements geofence.ZoneRepository.
func (r *geofenceZoneRepository) List(ctx context.Context, filter geofence.ZoneFilter, companyID string) ([]geofence.Zone, int64, error) {
	q := GetQuerier(ctx, r.db)

	// Build WHERE clause
	baseWhere := "company_id = $1 AND deleted_at IS NULL"
	args := []interface{}{companyID}
	argIdx := 2

	if filter.ProjectID != nil && *filter.ProjectID != "" {
		baseWhere += fmt.Sprintf(" AND project_id = $%d", argIdx)
		args = append(args, *filter.ProjectID)
		argIdx++
	}
	if filter.IsActive != nil {
		baseWhere += fmt.Sprintf(" AND is_active = $%d", argIdx)
		args = append(args, *filter.IsActive)
		argIdx++
	}
	if filter.ZoneType != nil && *filter.ZoneType != "" {
		baseWhere += fmt.Sprintf(" AND zone_type = $%d", argIdx)
		args = append(args, *filter.ZoneType)
		argIdx++
	}
	if filter.Search != nil && *filter.Search != "" {
		baseWhere += fmt.Sprintf(" AND name ILIKE $%d", argIdx)
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}

	// Count total
	countQuery := "SELECT COUNT(*) FROM geofence_zones WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count geofence zones: %w", err)
	}

	// Build ORDER BY
	orderByField := "created_at"
	switch filter.SortBy {
	case "name":
		orderByField = "name"
	case "zone_type":
		orderByField = "zone_type"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM geofence_zones
		WHERE %s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d
	`, zoneColumns, baseWhere, orderByField, sortOrder, argIdx, argIdx+1)

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
		return nil, 0, fmt.Errorf("failed to query geofence zones: %w", err)
	}

	zones, err := collectZones(rows)
	if err != nil {
		return nil, 0, err
	}

	return zones, total, nil
}

// ListByProject implements geofence.ZoneRepository.
func (r *geofenceZoneRepository) ListByProject(ctx context.Context, projectID string, companyID string) ([]geofence.Zone, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + zoneColumns + `
		FROM geofence_zones
		WHERE project_id = $1 AND company_id = $2 AND deleted_at IS NULL
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, projectID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query project geofence zones: %w", err)
	}

	return collectZones(rows)
}

// ListMonitored implements geofence.ZoneRepository.
func (r *geofenceZoneRepository) ListMonitored(ctx context.Context) ([]geofence.Zone, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + zoneColumns + `
		FROM geofence_zones
		WHERE is_active = TRUE AND monitoring_enabled = TRUE AND deleted_at IS NULL
		ORDER BY company_id, project_id, created_at, id
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitored geofence zones: %w", err)
	}

	return collectZones(rows)
}
