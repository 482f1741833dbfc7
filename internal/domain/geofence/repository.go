package geofence

import (
	"context"
)

// ZoneRepository defines data access for geofence zones.
// Every read and write is scoped by companyID.
type ZoneRepository interface {
	// Create inserts a zone and returns it with generated ID and timestamps
	Create(ctx context.Context, zone Zone) (Zone, error)

	// GetByID retrieves a non-deleted zone
	GetByID(ctx context.Context, id string, companyID string) (Zone, error)

	// Update replaces the zone definition
	Update(ctx context.Context, zone Zone) error

	// SoftDelete sets deleted_at; the row is kept for historical timesheets
	SoftDelete(ctx context.Context, id string, companyID string) error

	// List retrieves zones with filters and pagination
	List(ctx context.Context, filter ZoneFilter, companyID string) ([]Zone, int64, error)

	// ListByProject returns all non-deleted zones attached to a project
	ListByProject(ctx context.Context, projectID string, companyID string) ([]Zone, error)

	// ListMonitored returns active, monitored zones across all companies (cache warm-up)
	ListMonitored(ctx context.Context) ([]Zone, error)
}

// ZoneCache is a read-through cache in front of ZoneRepository.
// A miss is reported as (nil, nil) for single zones and ok=false for project lists.
type ZoneCache interface {
	Get(ctx context.Context, companyID, id string) (*Zone, error)
	Set(ctx context.Context, zone Zone) error
	GetByProject(ctx context.Context, companyID, projectID string) ([]Zone, bool, error)
	SetByProject(ctx context.Context, companyID, projectID string, zones []Zone) error
	Invalidate(ctx context.Context, zone Zone) error
}
