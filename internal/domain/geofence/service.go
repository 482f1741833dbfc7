package geofence

import (
	"context"
)

// ZoneService defines business logic for geofence zones
type ZoneService interface {
	// Create registers a new zone for the caller's company
	Create(ctx context.Context, req CreateZoneRequest) (ZoneResponse, error)

	// Update replaces a zone definition and invalidates cached copies
	Update(ctx context.Context, req UpdateZoneRequest) (ZoneResponse, error)

	// Get retrieves a single zone
	Get(ctx context.Context, id string) (ZoneResponse, error)

	// List retrieves zones with filters
	List(ctx context.Context, filter ZoneFilter) (ListZoneResponse, error)

	// Delete soft deletes a zone
	Delete(ctx context.Context, id string) error

	// CheckLocation evaluates a coordinate against a zone at a point in time
	CheckLocation(ctx context.Context, req CheckLocationRequest) (CheckLocationResponse, error)

	// ResolveZones returns the zones a timesheet is checked against: the explicit
	// zone when zoneID is set, otherwise every zone of the project.
	ResolveZones(ctx context.Context, companyID string, zoneID *string, projectID *string) ([]Zone, error)

	// WarmCache loads monitored zones into the cache
	WarmCache(ctx context.Context) (int, error)
}
