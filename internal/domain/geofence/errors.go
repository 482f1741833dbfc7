package geofence

import "errors"

// Geofence domain errors
var (
	ErrZoneNotFound   = errors.New("geofence zone not found")
	ErrZoneNameExists = errors.New("a geofence zone with this name already exists for the project")
)
