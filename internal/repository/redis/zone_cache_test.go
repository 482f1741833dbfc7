package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/geofence"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, geofence.ZoneCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewZoneCache(client, time.Minute)
}

func sampleZone() geofence.Zone {
	lat, lng := -6.2, 106.8
	project := "project-1"
	return geofence.Zone{
		ID:              "zone-1",
		CompanyID:       "company-1",
		ProjectID:       &project,
		Name:            "Main yard",
		ZoneType:        geofence.ZoneTypeCircular,
		CenterLatitude:  &lat,
		CenterLongitude: &lng,
		RadiusMeters:    150,
		ActiveDays:      []int{1, 2, 3},
		IsActive:        true,
	}
}

func TestZoneCache_GetSet(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	miss, err := cache.Get(ctx, "company-1", "zone-1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	zone := sampleZone()
	require.NoError(t, cache.Set(ctx, zone))
	assert.True(t, mr.Exists("geofence:zone:company-1:zone-1"))
	assert.Equal(t, time.Minute, mr.TTL("geofence:zone:company-1:zone-1"))

	got, err := cache.Get(ctx, "company-1", "zone-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, zone.Name, got.Name)
	assert.Equal(t, *zone.CenterLatitude, *got.CenterLatitude)
	assert.Equal(t, zone.ActiveDays, got.ActiveDays)

	t.Run("keys are scoped by company", func(t *testing.T) {
		other, err := cache.Get(ctx, "company-2", "zone-1")
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("entries expire", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)
		expired, err := cache.Get(ctx, "company-1", "zone-1")
		require.NoError(t, err)
		assert.Nil(t, expired)
	})
}

func TestZoneCache_ProjectLists(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.GetByProject(ctx, "company-1", "project-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetByProject(ctx, "company-1", "project-empty", nil))
	zones, ok, err := cache.GetByProject(ctx, "company-1", "project-empty")
	require.NoError(t, err)
	assert.True(t, ok, "an empty project is still a hit")
	assert.Empty(t, zones)

	zone := sampleZone()
	require.NoError(t, cache.SetByProject(ctx, "company-1", "project-1", []geofence.Zone{zone}))
	require.NoError(t, cache.Set(ctx, zone))

	zones, ok, err = cache.GetByProject(ctx, "company-1", "project-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, zones, 1)
	assert.Equal(t, "zone-1", zones[0].ID)

	require.NoError(t, cache.Invalidate(ctx, zone))
	assert.False(t, mr.Exists("geofence:zone:company-1:zone-1"))
	assert.False(t, mr.Exists("geofence:project:company-1:project-1"))
	assert.True(t, mr.Exists("geofence:project:company-1:project-empty"))
}

func TestZoneCache_CorruptEntry(t *testing.T) {
	mr, cache := newTestCache(t)
	require.NoError(t, mr.Set("geofence:zone:company-1:zone-1", "{not json"))

	_, err := cache.Get(context.Background(), "company-1", "zone-1")
	assert.Error(t, err)
}
