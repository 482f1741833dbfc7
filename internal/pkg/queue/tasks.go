package queue

import (
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue used when none is configured.
	QueueDefault = "default"
	// TaskGeofenceViolationAlert carries a timesheet.ViolationAlert.
	TaskGeofenceViolationAlert = "geofence:violation_alert"
)

// NewViolationAlertTask constructs an Asynq task.
func NewViolationAlertTask(alert timesheet.ViolationAlert) (*asynq.Task, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("marshal violation alert: %w", err)
	}
	return asynq.NewTask(TaskGeofenceViolationAlert, data), nil
}
