package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http/response"
)

type GeofenceHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	CheckLocation(w http.ResponseWriter, r *http.Request)
}

type geofenceHandlerImpl struct {
	zoneService geofence.ZoneService
}

func NewGeofenceHandler(zoneService geofence.ZoneService) GeofenceHandler {
	return &geofenceHandlerImpl{
		zoneService: zoneService,
	}
}

// List implements GeofenceHandler.
func (h *geofenceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := geofence.ZoneFilter{
		ProjectID: queryString(r, "project_id"),
		ZoneType:  queryString(r, "zone_type"),
		Search:    queryString(r, "search"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}
	filter.Page, filter.Limit = pagination(r)

	if v := r.URL.Query().Get("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(w, "Invalid query parameter", map[string]string{"is_active": "is_active must be true or false"})
			return
		}
		filter.IsActive = &active
	}

	results, err := h.zoneService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, results, &response.Meta{
		Page:       results.Page,
		Limit:      results.Limit,
		TotalItems: results.TotalCount,
		TotalPages: results.TotalPages,
	})
}

// Create implements GeofenceHandler.
func (h *geofenceHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req geofence.CreateZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.zoneService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Geofence zone created successfully", result)
}

// Get implements GeofenceHandler.
func (h *geofenceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := h.zoneService.Get(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Update implements GeofenceHandler.
func (h *geofenceHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req geofence.UpdateZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.ID = id

	result, err := h.zoneService.Update(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Geofence zone updated successfully", result)
}

// Delete implements GeofenceHandler.
func (h *geofenceHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.zoneService.Delete(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Geofence zone deleted successfully", nil)
}

// CheckLocation implements GeofenceHandler.
func (h *geofenceHandlerImpl) CheckLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req geofence.CheckLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.ZoneID = id

	result, err := h.zoneService.CheckLocation(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
