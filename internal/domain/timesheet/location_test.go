package timesheet

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/geofence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteZone(id string, lat, lng, radius float64) geofence.Zone {
	return geofence.Zone{
		ID:                id,
		Name:              "site " + id,
		ZoneType:          geofence.ZoneTypeCircular,
		CenterLatitude:    &lat,
		CenterLongitude:   &lng,
		RadiusMeters:      radius,
		IsActive:          true,
		MonitoringEnabled: true,
	}
}

var noon = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

func reading(kind LocationKind, lat, lng float64) LocationReading {
	return LocationReading{Kind: kind, Latitude: lat, Longitude: lng, VerificationMethod: "gps", RecordedAt: noon}
}

func TestEvaluateLocation_NoZones(t *testing.T) {
	eval := EvaluateLocation(nil, reading(LocationStart, 0, 0), noon)
	assert.False(t, eval.Evaluated)
	assert.Nil(t, eval.Violation)
}

func TestEvaluateLocation_InsideAnyZone(t *testing.T) {
	zones := []geofence.Zone{
		siteZone("far", 1, 1, 100),
		siteZone("near", 0, 0, 200),
	}
	eval := EvaluateLocation(zones, reading(LocationStart, 0, 0.001), noon)

	require.True(t, eval.Evaluated)
	assert.True(t, eval.IsWithin)
	require.NotNil(t, eval.Zone)
	assert.Equal(t, "near", eval.Zone.ID)
	require.NotNil(t, eval.DistanceMeters)
	assert.InDelta(t, 111.19, *eval.DistanceMeters, 0.1)
	assert.Nil(t, eval.Violation)
}

func TestEvaluateLocation_OutsideActiveZoneRecordsViolation(t *testing.T) {
	z := siteZone("yard", 0, 0, 50)
	z.AlertOnViolation = true
	z.StrictEnforcement = true

	eval := EvaluateLocation([]geofence.Zone{z}, reading(LocationEnd, 0, 0.001), noon)

	assert.False(t, eval.IsWithin)
	require.NotNil(t, eval.Violation)
	assert.Equal(t, "yard", eval.Violation.ZoneID)
	assert.Equal(t, LocationEnd, eval.Violation.Kind)
	assert.True(t, eval.Violation.Strict)
	assert.InDelta(t, 111.19, eval.Violation.DistanceMeters, 0.1)
	require.NotNil(t, eval.AlertZone)
	assert.Equal(t, "yard", eval.AlertZone.ID)
}

func TestEvaluateLocation_OutsideInactiveZone(t *testing.T) {
	z := siteZone("yard", 0, 0, 50)
	from, until := "06:00", "10:00"
	z.ActiveFrom, z.ActiveUntil = &from, &until

	eval := EvaluateLocation([]geofence.Zone{z}, reading(LocationStart, 0, 0.001), noon)

	assert.True(t, eval.Evaluated)
	assert.False(t, eval.IsWithin)
	assert.Nil(t, eval.Violation, "no violation outside the activation window")
	require.NotNil(t, eval.DistanceMeters)
}

func TestEvaluateLocation_AlertNeedsMonitoring(t *testing.T) {
	z := siteZone("yard", 0, 0, 50)
	z.AlertOnViolation = true
	z.MonitoringEnabled = false

	eval := EvaluateLocation([]geofence.Zone{z}, reading(LocationStart, 0, 0.001), noon)
	require.NotNil(t, eval.Violation)
	assert.Nil(t, eval.AlertZone)
	assert.False(t, eval.Violation.Strict)
}

func TestTimesheet_WithLocation(t *testing.T) {
	ts := draft()
	zones := []geofence.Zone{siteZone("yard", 0, 0, 50)}

	in := reading(LocationStart, 0, 0.0001)
	ts = ts.WithLocation(in, EvaluateLocation(zones, in, noon))
	require.NotNil(t, ts.IsWithinGeofence)
	assert.True(t, *ts.IsWithinGeofence)
	assert.True(t, ts.LocationVerified)
	assert.Equal(t, 0.0001, *ts.StartLongitude)
	assert.Equal(t, "gps", *ts.VerificationMethod)
	assert.Empty(t, ts.GeofenceViolations)

	out := reading(LocationEnd, 0, 0.01)
	before := ts
	ts = ts.WithLocation(out, EvaluateLocation(zones, out, noon))
	assert.False(t, *ts.IsWithinGeofence)
	assert.False(t, ts.LocationVerified)
	assert.Equal(t, 0.01, *ts.EndLongitude)
	assert.Equal(t, 0.0001, *ts.StartLongitude)
	assert.Len(t, ts.GeofenceViolations, 1)
	assert.Empty(t, before.GeofenceViolations)

	t.Run("no zones clears derived fields", func(t *testing.T) {
		cleared := ts.WithLocation(out, EvaluateLocation(nil, out, noon))
		assert.Nil(t, cleared.IsWithinGeofence)
		assert.Nil(t, cleared.DistanceFromSite)
		assert.False(t, cleared.LocationVerified)
		assert.Len(t, cleared.GeofenceViolations, 1)
	})
}
