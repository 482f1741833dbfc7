package geofence

import (
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
)

// ========================================
// ZONE DTOs
// ========================================

type CreateZoneRequest struct {
	ProjectID          *string      `json:"project_id" validate:"omitempty,uuid7"`
	Name               string       `json:"name" validate:"required,max=150"`
	Description        *string      `json:"description" validate:"omitempty,max=500"`
	ZoneType           string       `json:"zone_type" validate:"required,oneof=circular polygon"`
	CenterLatitude     *float64     `json:"center_latitude" validate:"omitempty,lat"`
	CenterLongitude    *float64     `json:"center_longitude" validate:"omitempty,lng"`
	RadiusMeters       float64      `json:"radius_meters" validate:"gte=0"`
	BufferMeters       float64      `json:"buffer_meters" validate:"gte=0"`
	AllowBufferZone    bool         `json:"allow_buffer_zone"`
	PolygonCoordinates []Coordinate `json:"polygon_coordinates" validate:"omitempty,dive"`
	ActiveFrom         *string      `json:"active_from" validate:"omitempty,hhmm"`
	ActiveUntil        *string      `json:"active_until" validate:"omitempty,hhmm"`
	ActiveDays         []int        `json:"active_days" validate:"omitempty,unique,dive,weekday"`
	IsActive           *bool        `json:"is_active"`
	StrictEnforcement  bool         `json:"strict_enforcement"`
	MonitoringEnabled  *bool        `json:"monitoring_enabled"`
	AlertOnViolation   bool         `json:"alert_on_violation"`
}

func (r *CreateZoneRequest) Validate() error {
	errs := validator.Struct(r)
	validateGeometry(&errs, ZoneType(r.ZoneType), r.CenterLatitude, r.CenterLongitude, r.RadiusMeters, r.PolygonCoordinates)
	validateWindow(&errs, r.ActiveFrom, r.ActiveUntil)
	return errs.OrNil()
}

// UpdateZoneRequest replaces the zone definition. ID comes from the URL.
type UpdateZoneRequest struct {
	ID                 string       `json:"-"`
	ProjectID          *string      `json:"project_id" validate:"omitempty,uuid7"`
	Name               string       `json:"name" validate:"required,max=150"`
	Description        *string      `json:"description" validate:"omitempty,max=500"`
	ZoneType           string       `json:"zone_type" validate:"required,oneof=circular polygon"`
	CenterLatitude     *float64     `json:"center_latitude" validate:"omitempty,lat"`
	CenterLongitude    *float64     `json:"center_longitude" validate:"omitempty,lng"`
	RadiusMeters       float64      `json:"radius_meters" validate:"gte=0"`
	BufferMeters       float64      `json:"buffer_meters" validate:"gte=0"`
	AllowBufferZone    bool         `json:"allow_buffer_zone"`
	PolygonCoordinates []Coordinate `json:"polygon_coordinates" validate:"omitempty,dive"`
	ActiveFrom         *string      `json:"active_from" validate:"omitempty,hhmm"`
	ActiveUntil        *string      `json:"active_until" validate:"omitempty,hhmm"`
	ActiveDays         []int        `json:"active_days" validate:"omitempty,unique,dive,weekday"`
	IsActive           bool         `json:"is_active"`
	StrictEnforcement  bool         `json:"strict_enforcement"`
	MonitoringEnabled  bool         `json:"monitoring_enabled"`
	AlertOnViolation   bool         `json:"alert_on_violation"`
}

func (r *UpdateZoneRequest) Validate() error {
	errs := validator.Struct(r)
	if !validator.IsValidUUID(r.ID) {
		errs.Add("id", "id must be a valid UUID")
	}
	validateGeometry(&errs, ZoneType(r.ZoneType), r.CenterLatitude, r.CenterLongitude, r.RadiusMeters, r.PolygonCoordinates)
	validateWindow(&errs, r.ActiveFrom, r.ActiveUntil)
	return errs.OrNil()
}

func validateGeometry(errs *validator.ValidationErrors, zoneType ZoneType, lat, lng *float64, radius float64, polygon []Coordinate) {
	switch zoneType {
	case ZoneTypeCircular:
		if lat == nil {
			errs.Add("center_latitude", "center_latitude is required for circular zones")
		}
		if lng == nil {
			errs.Add("center_longitude", "center_longitude is required for circular zones")
		}
		if radius <= 0 {
			errs.Add("radius_meters", "radius_meters must be greater than 0 for circular zones")
		}
	case ZoneTypePolygon:
		if len(polygon) < 3 {
			errs.Add("polygon_coordinates", "polygon zones need at least 3 coordinates")
		}
	}
}

// A window is only enforced when both ends are present, so reject half-configured ones.
func validateWindow(errs *validator.ValidationErrors, from, until *string) {
	if (from == nil) != (until == nil) {
		errs.Add("active_until", "active_from and active_until must be set together")
	}
}

type CheckLocationRequest struct {
	ZoneID    string     `json:"-"`
	Latitude  float64    `json:"latitude" validate:"lat"`
	Longitude float64    `json:"longitude" validate:"lng"`
	At        *time.Time `json:"at"`
}

func (r *CheckLocationRequest) Validate() error {
	errs := validator.Struct(r)
	if !validator.IsValidUUID(r.ZoneID) {
		errs.Add("id", "id must be a valid UUID")
	}
	return errs.OrNil()
}

type CheckLocationResponse struct {
	ZoneID                string  `json:"zone_id"`
	IsActive              bool    `json:"is_active"`
	IsWithin              bool    `json:"is_within"`
	DistanceMeters        float64 `json:"distance_meters"`
	EffectiveRadiusMeters float64 `json:"effective_radius_meters,omitempty"`
	CheckedAt             string  `json:"checked_at"`
}

type ZoneFilter struct {
	ProjectID *string
	IsActive  *bool
	ZoneType  *string
	Search    *string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

func (f *ZoneFilter) Validate() error {
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
	if f.ZoneType != nil && *f.ZoneType != string(ZoneTypeCircular) && *f.ZoneType != string(ZoneTypePolygon) {
		errs.Add("zone_type", "zone_type must be circular or polygon")
	}
	if f.SortBy != "" && !validator.IsInSlice(f.SortBy, []string{"name", "created_at", "zone_type"}) {
		errs.Add("sort_by", "sort_by must be one of: name, created_at, zone_type")
	}
	if f.SortOrder != "" && f.SortOrder != "asc" && f.SortOrder != "desc" {
		errs.Add("sort_order", "sort_order must be asc or desc")
	}

	return errs.OrNil()
}

type ZoneResponse struct {
	ID                    string       `json:"id"`
	ProjectID             *string      `json:"project_id"`
	Name                  string       `json:"name"`
	Description           *string      `json:"description"`
	ZoneType              string       `json:"zone_type"`
	CenterLatitude        *float64     `json:"center_latitude,omitempty"`
	CenterLongitude       *float64     `json:"center_longitude,omitempty"`
	RadiusMeters          float64      `json:"radius_meters"`
	BufferMeters          float64      `json:"buffer_meters"`
	AllowBufferZone       bool         `json:"allow_buffer_zone"`
	EffectiveRadiusMeters float64      `json:"effective_radius_meters"`
	PolygonCoordinates    []Coordinate `json:"polygon_coordinates,omitempty"`
	ActiveFrom            *string      `json:"active_from"`
	ActiveUntil           *string      `json:"active_until"`
	ActiveDays            []int        `json:"active_days"`
	IsActive              bool         `json:"is_active"`
	IsCurrentlyActive     bool         `json:"is_currently_active"`
	StrictEnforcement     bool         `json:"strict_enforcement"`
	MonitoringEnabled     bool         `json:"monitoring_enabled"`
	AlertOnViolation      bool         `json:"alert_on_violation"`
	CreatedAt             string       `json:"created_at"`
	UpdatedAt             string       `json:"updated_at"`
}

type ListZoneResponse struct {
	TotalCount int64          `json:"total_count"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
	Showing    string         `json:"showing"`
	Zones      []ZoneResponse `json:"zones"`
}
