package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/geofence"
	goredis "github.com/redis/go-redis/v9"
)

type zoneCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewZoneCache stores zones as JSON under
// geofence:zone:{company}:{id} and geofence:project:{company}:{project}.
func NewZoneCache(client *goredis.Client, ttl time.Duration) geofence.ZoneCache {
	return &zoneCache{client: client, ttl: ttl}
}

func zoneKey(companyID, id string) string {
	return fmt.Sprintf("geofence:zone:%s:%s", companyID, id)
}

func projectKey(companyID, projectID string) string {
	return fmt.Sprintf("geofence:project:%s:%s", companyID, projectID)
}

// Get implements geofence.ZoneCache.
func (c *zoneCache) Get(ctx context.Context, companyID, id string) (*geofence.Zone, error) {
	data, err := c.client.Get(ctx, zoneKey(companyID, id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached zone: %w", err)
	}

	var zone geofence.Zone
	if err := json.Unmarshal(data, &zone); err != nil {
		return nil, fmt.Errorf("failed to decode cached zone: %w", err)
	}
	return &zone, nil
}

// Set implements geofence.ZoneCache.
func (c *zoneCache) Set(ctx context.Context, zone geofence.Zone) error {
	b, err := json.Marshal(zone)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, zoneKey(zone.CompanyID, zone.ID), b, c.ttl).Err()
}

// GetByProject implements geofence.ZoneCache.
func (c *zoneCache) GetByProject(ctx context.Context, companyID, projectID string) ([]geofence.Zone, bool, error) {
	data, err := c.client.Get(ctx, projectKey(companyID, projectID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached project zones: %w", err)
	}

	var zones []geofence.Zone
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached project zones: %w", err)
	}
	return zones, true, nil
}

// SetByProject implements geofence.ZoneCache.
func (c *zoneCache) SetByProject(ctx context.Context, companyID, projectID string, zones []geofence.Zone) error {
	if zones == nil {
		zones = []geofence.Zone{}
	}
	b, err := json.Marshal(zones)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, projectKey(companyID, projectID), b, c.ttl).Err()
}

// Invalidate implements geofence.ZoneCache. It drops the zone and the
// project list it belongs to.
func (c *zoneCache) Invalidate(ctx context.Context, zone geofence.Zone) error {
	keys := []string{zoneKey(zone.CompanyID, zone.ID)}
	if zone.ProjectID != nil && *zone.ProjectID != "" {
		keys = append(keys, projectKey(zone.CompanyID, *zone.ProjectID))
	}
	return c.client.Del(ctx, keys...).Err()
}
