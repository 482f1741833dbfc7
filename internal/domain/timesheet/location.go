package timesheet

import (
	"math"
	"slices"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/geofence"
)

// LocationReading is a single GPS fix reported at clock-in or clock-out.
type LocationReading struct {
	Kind               LocationKind
	Latitude           float64
	Longitude          float64
	AccuracyMeters     *float64
	VerificationMethod string
	RecordedAt         time.Time
}

// GeofenceEvaluation is the outcome of checking a reading against the
// candidate zones of a timesheet.
type GeofenceEvaluation struct {
	// Evaluated is false when there were no zones to check against.
	Evaluated      bool
	IsWithin       bool
	DistanceMeters *float64
	Zone           *geofence.Zone
	Violation      *GeofenceViolation
	// AlertZone is set when the violated zone asks for violation alerts.
	AlertZone *geofence.Zone
}

// EvaluateLocation checks a reading against zones. The reading is inside when
// any zone contains it. A violation is only produced when the reading is outside
// every zone and at least one zone is active at localNow; it is attributed to
// the nearest active zone.
func EvaluateLocation(zones []geofence.Zone, r LocationReading, localNow time.Time) GeofenceEvaluation {
	if len(zones) == 0 {
		return GeofenceEvaluation{}
	}

	eval := GeofenceEvaluation{Evaluated: true}

	var nearest, nearestActive *geofence.Zone
	nearestDist, nearestActiveDist := math.Inf(1), math.Inf(1)
	strict := false

	for i := range zones {
		z := &zones[i]
		d := z.DistanceFrom(r.Latitude, r.Longitude)

		if z.IsLocationWithin(r.Latitude, r.Longitude) {
			if !eval.IsWithin || d < nearestDist {
				nearest, nearestDist = z, d
			}
			eval.IsWithin = true
			continue
		}
		if !eval.IsWithin && d < nearestDist {
			nearest, nearestDist = z, d
		}
		if z.IsCurrentlyActive(localNow) {
			if z.StrictEnforcement {
				strict = true
			}
			if d < nearestActiveDist {
				nearestActive, nearestActiveDist = z, d
			}
		}
	}

	if nearest != nil {
		eval.Zone = nearest
		if !math.IsInf(nearestDist, 1) {
			dist := nearestDist
			eval.DistanceMeters = &dist
		}
	}

	if eval.IsWithin || nearestActive == nil {
		return eval
	}

	v := GeofenceViolation{
		Kind:           r.Kind,
		ZoneID:         nearestActive.ID,
		ZoneName:       nearestActive.Name,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		AccuracyMeters: r.AccuracyMeters,
		Strict:         strict,
		RecordedAt:     r.RecordedAt,
	}
	if !math.IsInf(nearestActiveDist, 1) {
		v.DistanceMeters = nearestActiveDist
	}
	eval.Violation = &v
	if nearestActive.MonitoringEnabled && nearestActive.AlertOnViolation {
		eval.AlertZone = nearestActive
	}
	return eval
}

// WithLocation stores a reading and its evaluation on the timesheet. The
// geofence fields are always overwritten by the latest reading.
func (t Timesheet) WithLocation(r LocationReading, eval GeofenceEvaluation) Timesheet {
	lat, lng := r.Latitude, r.Longitude
	switch r.Kind {
	case LocationStart:
		t.StartLatitude, t.StartLongitude = &lat, &lng
	case LocationEnd:
		t.EndLatitude, t.EndLongitude = &lat, &lng
	}

	t.AccuracyMeters = r.AccuracyMeters
	if r.VerificationMethod != "" {
		method := r.VerificationMethod
		t.VerificationMethod = &method
	}

	if eval.Evaluated {
		within := eval.IsWithin
		t.IsWithinGeofence = &within
		t.DistanceFromSite = eval.DistanceMeters
		t.LocationVerified = within
	} else {
		t.IsWithinGeofence = nil
		t.DistanceFromSite = nil
		t.LocationVerified = false
	}

	if eval.Violation != nil {
		t.GeofenceViolations = append(slices.Clip(t.GeofenceViolations), *eval.Violation)
	}
	return t
}
