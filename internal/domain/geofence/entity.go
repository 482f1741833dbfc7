package geofence

import (
	"math"
	"slices"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/utils"
)

type ZoneType string

const (
	ZoneTypeCircular ZoneType = "circular"
	ZoneTypePolygon  ZoneType = "polygon"
)

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat" validate:"lat"`
	Longitude float64 `json:"lng" validate:"lng"`
}

// Zone is a worksite geofence. Zones are read-only inputs to the containment
// checks below; only the zone service writes them.
type Zone struct {
	ID          string
	CompanyID   string
	ProjectID   *string
	Name        string
	Description *string

	ZoneType           ZoneType
	CenterLatitude     *float64
	CenterLongitude    *float64
	RadiusMeters       float64
	BufferMeters       float64
	AllowBufferZone    bool
	PolygonCoordinates []Coordinate

	// ActiveFrom and ActiveUntil are "HH:MM" and only apply when both are set.
	ActiveFrom  *string
	ActiveUntil *string
	// ActiveDays holds weekday indices, 0 = Sunday. Empty means every day.
	ActiveDays []int

	IsActive          bool
	StrictEnforcement bool
	MonitoringEnabled bool
	AlertOnViolation  bool

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsCurrentlyActive reports whether the zone is enforced at now.
//
// The time window is compared literally on "HH:MM" strings, so a window that
// crosses midnight (22:00-06:00) never matches. now must already be in the
// zone's local time.
func (z Zone) IsCurrentlyActive(now time.Time) bool {
	if !z.IsActive {
		return false
	}

	if z.ActiveFrom != nil && z.ActiveUntil != nil && *z.ActiveFrom != "" && *z.ActiveUntil != "" {
		current := now.Format("15:04")
		if current < *z.ActiveFrom || current > *z.ActiveUntil {
			return false
		}
	}

	if len(z.ActiveDays) > 0 && !slices.Contains(z.ActiveDays, int(now.Weekday())) {
		return false
	}

	return true
}

// EffectiveRadius is the circular radius widened by the buffer when buffering is enabled.
func (z Zone) EffectiveRadius() float64 {
	if z.AllowBufferZone && z.BufferMeters > 0 {
		return z.RadiusMeters + z.BufferMeters
	}
	return z.RadiusMeters
}

// IsLocationWithin tests containment of (lat, lng). It does not consult the
// activation window; callers combine it with IsCurrentlyActive.
func (z Zone) IsLocationWithin(lat, lng float64) bool {
	switch z.ZoneType {
	case ZoneTypeCircular:
		if z.CenterLatitude == nil || z.CenterLongitude == nil {
			return false
		}
		distance := utils.CalculateHaversineDistance(*z.CenterLatitude, *z.CenterLongitude, lat, lng)
		return distance <= z.EffectiveRadius()
	case ZoneTypePolygon:
		return pointInPolygon(lat, lng, z.PolygonCoordinates)
	default:
		return false
	}
}

// DistanceFrom returns meters from (lat, lng) to the zone's reference point:
// the centre of a circle or the vertex centroid of a polygon.
// It returns +Inf when the zone has no usable geometry.
func (z Zone) DistanceFrom(lat, lng float64) float64 {
	switch z.ZoneType {
	case ZoneTypeCircular:
		if z.CenterLatitude == nil || z.CenterLongitude == nil {
			return math.Inf(1)
		}
		return utils.CalculateHaversineDistance(*z.CenterLatitude, *z.CenterLongitude, lat, lng)
	case ZoneTypePolygon:
		c, ok := centroid(z.PolygonCoordinates)
		if !ok {
			return math.Inf(1)
		}
		return utils.CalculateHaversineDistance(c.Latitude, c.Longitude, lat, lng)
	default:
		return math.Inf(1)
	}
}

// pointInPolygon is the even-odd ray cast over an implicitly closed ring.
// Points exactly on an edge or vertex get whatever the edge test yields.
func pointInPolygon(lat, lng float64, ring []Coordinate) bool {
	n := len(ring)
	if n == 0 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := ring[i], ring[j]
		if (vi.Latitude > lat) != (vj.Latitude > lat) &&
			lng < (vj.Longitude-vi.Longitude)*(lat-vi.Latitude)/(vj.Latitude-vi.Latitude)+vi.Longitude {
			inside = !inside
		}
	}
	return inside
}

func centroid(ring []Coordinate) (Coordinate, bool) {
	if len(ring) == 0 {
		return Coordinate{}, false
	}
	var sumLat, sumLng float64
	for _, c := range ring {
		sumLat += c.Latitude
		sumLng += c.Longitude
	}
	n := float64(len(ring))
	return Coordinate{Latitude: sumLat / n, Longitude: sumLng / n}, true
}
