package geofence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/utils"
	"github.com/jackc/pgx/v5/pgconn"
)

type zoneServiceImpl struct {
	repo    geofence.ZoneRepository
	cache   geofence.ZoneCache
	metrics *metrics.Metrics
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewZoneService builds the zone service. loc is the worksite timezone the
// activity windows are written in.
func NewZoneService(
	repo geofence.ZoneRepository,
	cache geofence.ZoneCache,
	m *metrics.Metrics,
	logger *slog.Logger,
	loc *time.Location,
) geofence.ZoneService {
	if loc == nil {
		loc = time.UTC
	}
	return &zoneServiceImpl{
		repo:    repo,
		cache:   cache,
		metrics: m,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

func actorWith(ctx context.Context, permission user.Permission) (user.Actor, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return user.Actor{}, err
	}
	if !actor.Can(permission) {
		return user.Actor{}, user.ErrInsufficientPermissions
	}
	return actor, nil
}

// Create implements geofence.ZoneService.
func (s *zoneServiceImpl) Create(ctx context.Context, req geofence.CreateZoneRequest) (geofence.ZoneResponse, error) {
	actor, err := actorWith(ctx, user.PermissionGeofenceManage)
	if err != nil {
		return geofence.ZoneResponse{}, err
	}

	if err := req.Validate(); err != nil {
		return geofence.ZoneResponse{}, err
	}

	zone := geofence.Zone{
		CompanyID:          actor.CompanyID,
		ProjectID:          req.ProjectID,
		Name:               req.Name,
		Description:        req.Description,
		ZoneType:           geofence.ZoneType(req.ZoneType),
		CenterLatitude:     req.CenterLatitude,
		CenterLongitude:    req.CenterLongitude,
		RadiusMeters:       req.RadiusMeters,
		BufferMeters:       req.BufferMeters,
		AllowBufferZone:    req.AllowBufferZone,
		PolygonCoordinates: req.PolygonCoordinates,
		ActiveFrom:         req.ActiveFrom,
		ActiveUntil:        req.ActiveUntil,
		ActiveDays:         req.ActiveDays,
		IsActive:           boolOrDefault(req.IsActive, true),
		StrictEnforcement:  req.StrictEnforcement,
		MonitoringEnabled:  boolOrDefault(req.MonitoringEnabled, true),
		AlertOnViolation:   req.AlertOnViolation,
	}

	created, err := s.repo.Create(ctx, zone)
	if err != nil {
		if isUniqueViolation(err) {
			return geofence.ZoneResponse{}, geofence.ErrZoneNameExists
		}
		return geofence.ZoneResponse{}, fmt.Errorf("failed to create geofence zone: %w", err)
	}

	// the project list may already be cached without the new zone
	s.invalidate(ctx, created)

	s.logger.InfoContext(ctx, "geofence zone created",
		slog.String("zone_id", created.ID),
		slog.String("company_id", created.CompanyID),
		slog.String("zone_type", string(created.ZoneType)),
	)

	return s.mapZoneToResponse(created), nil
}

// Update implements geofence.ZoneService.
func (s *zoneServiceImpl) Update(ctx context.Context, req geofence.UpdateZoneRequest) (geofence.ZoneResponse, error) {
	actor, err := actorWith(ctx, user.PermissionGeofenceManage)
	if err != nil {
		return geofence.ZoneResponse{}, err
	}

	if err := req.Validate(); err != nil {
		return geofence.ZoneResponse{}, err
	}

	existing, err := s.repo.GetByID(ctx, req.ID, actor.CompanyID)
	if err != nil {
		return geofence.ZoneResponse{}, err
	}

	zone := existing
	zone.ProjectID = req.ProjectID
	zone.Name = req.Name
	zone.Description = req.Description
	zone.ZoneType = geofence.ZoneType(req.ZoneType)
	zone.CenterLatitude = req.CenterLatitude
	zone.CenterLongitude = req.CenterLongitude
	zone.RadiusMeters = req.RadiusMeters
	zone.BufferMeters = req.BufferMeters
	zone.AllowBufferZone = req.AllowBufferZone
	zone.PolygonCoordinates = req.PolygonCoordinates
	zone.ActiveFrom = req.ActiveFrom
	zone.ActiveUntil = req.ActiveUntil
	zone.ActiveDays = req.ActiveDays
	zone.IsActive = req.IsActive
	zone.StrictEnforcement = req.StrictEnforcement
	zone.MonitoringEnabled = req.MonitoringEnabled
	zone.AlertOnViolation = req.AlertOnViolation

	if err := s.repo.Update(ctx, zone); err != nil {
		if isUniqueViolation(err) {
			return geofence.ZoneResponse{}, geofence.ErrZoneNameExists
		}
		return geofence.ZoneResponse{}, fmt.Errorf("failed to update geofence zone: %w", err)
	}

	// both the old and the new project list are stale now
	s.invalidate(ctx, existing)
	s.invalidate(ctx, zone)

	updated, err := s.repo.GetByID(ctx, zone.ID, actor.CompanyID)
	if err != nil {
		return geofence.ZoneResponse{}, err
	}
	return s.mapZoneToResponse(updated), nil
}

// Get implements geofence.ZoneService.
func (s *zoneServiceImpl) Get(ctx context.Context, id string) (geofence.ZoneResponse, error) {
	actor, err := actorWith(ctx, user.PermissionGeofenceView)
	if err != nil {
		return geofence.ZoneResponse{}, err
	}

	zone, err := s.loadZone(ctx, actor.CompanyID, id)
	if err != nil {
		return geofence.ZoneResponse{}, err
	}
	return s.mapZoneToResponse(zone), nil
}

// List implements geofence.ZoneService.
func (s *zoneServiceImpl) List(ctx context.Context, filter geofence.ZoneFilter) (geofence.ListZoneResponse, error) {
	actor, err := actorWith(ctx, user.PermissionGeofenceView)
	if err != nil {
		return geofence.ListZoneResponse{}, err
	}

	if err := filter.Validate(); err != nil {
		return geofence.ListZoneResponse{}, err
	}

	zones, total, err := s.repo.List(ctx, filter, actor.CompanyID)
	if err != nil {
		return geofence.ListZoneResponse{}, fmt.Errorf("failed to list geofence zones: %w", err)
	}

	responses := make([]geofence.ZoneResponse, 0, len(zones))
	for _, z := range zones {
		responses = append(responses, s.mapZoneToResponse(z))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return geofence.ListZoneResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Zones:      responses,
	}, nil
}

// Delete implements geofence.ZoneService.
func (s *zoneServiceImpl) Delete(ctx context.Context, id string) error {
	actor, err := actorWith(ctx, user.PermissionGeofenceManage)
	if err != nil {
		return err
	}

	existing, err := s.repo.GetByID(ctx, id, actor.CompanyID)
	if err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id, actor.CompanyID); err != nil {
		return err
	}
	s.invalidate(ctx, existing)

	s.logger.InfoContext(ctx, "geofence zone deleted",
		slog.String("zone_id", id),
		slog.String("company_id", actor.CompanyID),
	)
	return nil
}

// CheckLocation implements geofence.ZoneService.
func (s *zoneServiceImpl) CheckLocation(ctx context.Context, req geofence.CheckLocationRequest) (geofence.CheckLocationResponse, error) {
	actor, err := actorWith(ctx, user.PermissionGeofenceView)
	if err != nil {
		return geofence.CheckLocationResponse{}, err
	}

	if err := req.Validate(); err != nil {
		return geofence.CheckLocationResponse{}, err
	}

	zone, err := s.loadZone(ctx, actor.CompanyID, req.ZoneID)
	if err != nil {
		return geofence.CheckLocationResponse{}, err
	}

	at := s.now()
	if req.At != nil {
		at = *req.At
	}

	within := zone.IsLocationWithin(req.Latitude, req.Longitude)
	resp := geofence.CheckLocationResponse{
		ZoneID:         zone.ID,
		IsActive:       zone.IsCurrentlyActive(at.In(s.loc)),
		IsWithin:       within,
		DistanceMeters: finiteDistance(zone.DistanceFrom(req.Latitude, req.Longitude)),
		CheckedAt:      at.UTC().Format(time.RFC3339),
	}
	if zone.ZoneType == geofence.ZoneTypeCircular {
		resp.EffectiveRadiusMeters = zone.EffectiveRadius()
	}

	if within {
		s.metrics.ObserveGeofenceCheck("within")
	} else {
		s.metrics.ObserveGeofenceCheck("outside")
	}
	return resp, nil
}

// ResolveZones implements geofence.ZoneService. Disabled zones are dropped.
func (s *zoneServiceImpl) ResolveZones(ctx context.Context, companyID string, zoneID *string, projectID *string) ([]geofence.Zone, error) {
	if zoneID != nil && *zoneID != "" {
		zone, err := s.loadZone(ctx, companyID, *zoneID)
		if err != nil {
			return nil, err
		}
		return activeOnly([]geofence.Zone{zone}), nil
	}

	if projectID == nil || *projectID == "" {
		return nil, nil
	}

	zones, err := s.projectZones(ctx, companyID, *projectID)
	if err != nil {
		return nil, err
	}
	return activeOnly(zones), nil
}

// WarmCache implements geofence.ZoneService. Every project that owns a
// monitored zone gets its full zone list cached.
func (s *zoneServiceImpl) WarmCache(ctx context.Context) (int, error) {
	zones, err := s.repo.ListMonitored(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list monitored zones: %w", err)
	}

	type projectKey struct{ companyID, projectID string }
	seen := make(map[projectKey]bool)
	warmed := 0

	for _, z := range zones {
		if err := ctx.Err(); err != nil {
			return warmed, err
		}
		if err := s.cache.Set(ctx, z); err != nil {
			return warmed, fmt.Errorf("failed to cache zone %s: %w", z.ID, err)
		}
		warmed++

		if z.ProjectID == nil {
			continue
		}
		key := projectKey{z.CompanyID, *z.ProjectID}
		if seen[key] {
			continue
		}
		seen[key] = true

		projectZones, err := s.repo.ListByProject(ctx, key.projectID, key.companyID)
		if err != nil {
			return warmed, fmt.Errorf("failed to list zones of project %s: %w", key.projectID, err)
		}
		if err := s.cache.SetByProject(ctx, key.companyID, key.projectID, projectZones); err != nil {
			return warmed, fmt.Errorf("failed to cache zones of project %s: %w", key.projectID, err)
		}
	}

	return warmed, nil
}

// loadZone reads through the cache. Cache failures fall back to the database.
func (s *zoneServiceImpl) loadZone(ctx context.Context, companyID, id string) (geofence.Zone, error) {
	cached, err := s.cache.Get(ctx, companyID, id)
	if err != nil {
		s.logger.WarnContext(ctx, "zone cache read failed", slog.String("zone_id", id), slog.Any("error", err))
	}
	if cached != nil {
		s.metrics.ObserveZoneCache(true)
		return *cached, nil
	}
	s.metrics.ObserveZoneCache(false)

	zone, err := s.repo.GetByID(ctx, id, companyID)
	if err != nil {
		return geofence.Zone{}, err
	}
	if err := s.cache.Set(ctx, zone); err != nil {
		s.logger.WarnContext(ctx, "zone cache write failed", slog.String("zone_id", id), slog.Any("error", err))
	}
	return zone, nil
}

func (s *zoneServiceImpl) projectZones(ctx context.Context, companyID, projectID string) ([]geofence.Zone, error) {
	cached, ok, err := s.cache.GetByProject(ctx, companyID, projectID)
	if err != nil {
		s.logger.WarnContext(ctx, "zone cache read failed", slog.String("project_id", projectID), slog.Any("error", err))
	}
	if ok {
		s.metrics.ObserveZoneCache(true)
		return cached, nil
	}
	s.metrics.ObserveZoneCache(false)

	zones, err := s.repo.ListByProject(ctx, projectID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones of project: %w", err)
	}
	if err := s.cache.SetByProject(ctx, companyID, projectID, zones); err != nil {
		s.logger.WarnContext(ctx, "zone cache write failed", slog.String("project_id", projectID), slog.Any("error", err))
	}
	return zones, nil
}

func (s *zoneServiceImpl) invalidate(ctx context.Context, zone geofence.Zone) {
	if err := s.cache.Invalidate(ctx, zone); err != nil {
		s.logger.WarnContext(ctx, "zone cache invalidation failed", slog.String("zone_id", zone.ID), slog.Any("error", err))
	}
}

func (s *zoneServiceImpl) mapZoneToResponse(z geofence.Zone) geofence.ZoneResponse {
	activeDays := z.ActiveDays
	if activeDays == nil {
		activeDays = []int{}
	}
	return geofence.ZoneResponse{
		ID:                    z.ID,
		ProjectID:             z.ProjectID,
		Name:                  z.Name,
		Description:           z.Description,
		ZoneType:              string(z.ZoneType),
		CenterLatitude:        z.CenterLatitude,
		CenterLongitude:       z.CenterLongitude,
		RadiusMeters:          z.RadiusMeters,
		BufferMeters:          z.BufferMeters,
		AllowBufferZone:       z.AllowBufferZone,
		EffectiveRadiusMeters: z.EffectiveRadius(),
		PolygonCoordinates:    z.PolygonCoordinates,
		ActiveFrom:            z.ActiveFrom,
		ActiveUntil:           z.ActiveUntil,
		ActiveDays:            activeDays,
		IsActive:              z.IsActive,
		IsCurrentlyActive:     z.IsCurrentlyActive(s.now().In(s.loc)),
		StrictEnforcement:     z.StrictEnforcement,
		MonitoringEnabled:     z.MonitoringEnabled,
		AlertOnViolation:      z.AlertOnViolation,
		CreatedAt:             z.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             z.UpdatedAt.Format(time.RFC3339),
	}
}

func activeOnly(zones []geofence.Zone) []geofence.Zone {
	out := make([]geofence.Zone, 0, len(zones))
	for _, z := range zones {
		if z.IsActive {
			out = append(out, z)
		}
	}
	return out
}

// finiteDistance rounds to centimetres; zones without geometry report 0.
func finiteDistance(d float64) float64 {
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return 0
	}
	return utils.RoundTo(d, 2)
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

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
