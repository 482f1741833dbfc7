package cron

import (
	"context"
	"log/slog"
	"time"
)

// ZoneCacheWarmer is the slice of the zone service the cache job needs.
type ZoneCacheWarmer interface {
	WarmCache(ctx context.Context) (int, error)
}

type GeofenceJobs struct {
	zones    ZoneCacheWarmer
	interval time.Duration
	logger   *slog.Logger
}

func NewGeofenceJobs(zones ZoneCacheWarmer, interval time.Duration, logger *slog.Logger) *GeofenceJobs {
	return &GeofenceJobs{
		zones:    zones,
		interval: interval,
		logger:   logger,
	}
}

func (j *GeofenceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("warm_geofence_zone_cache", j.interval, j.WarmZoneCache)
}

// WarmZoneCache preloads monitored zones so location reports rarely hit the database.
func (j *GeofenceJobs) WarmZoneCache(ctx context.Context) error {
	start := time.Now()
	count, err := j.zones.WarmCache(ctx)
	if err != nil {
		return err
	}
	j.logger.InfoContext(ctx, "Cron: geofence zone cache warmed",
		slog.Int("zones", count),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
