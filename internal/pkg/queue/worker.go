package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/hibiken/asynq"
)

// Worker wraps the Asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Queue       string
	Alerts      *AlertHandler
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Alerts == nil {
		return nil, errors.New("worker: alert handler required")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = QueueDefault
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      newAsynqLogger(cfg.Logger),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskGeofenceViolationAlert, cfg.Alerts.Handle)

	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// AlertHandler consumes violation alerts. Delivery to people is handled
// downstream from the structured log record it writes.
type AlertHandler struct {
	logger *slog.Logger
}

func NewAlertHandler(logger *slog.Logger) *AlertHandler {
	return &AlertHandler{logger: logger}
}

// Handle decodes and records one alert. Undecodable payloads are not retried.
func (h *AlertHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var alert timesheet.ViolationAlert
	if err := json.Unmarshal(t.Payload(), &alert); err != nil {
		h.logger.Error("discarding malformed violation alert", slog.Any("error", err))
		return asynq.SkipRetry
	}
	if alert.TimesheetID == "" || alert.ZoneID == "" {
		h.logger.Error("discarding incomplete violation alert", slog.String("timesheet_id", alert.TimesheetID))
		return asynq.SkipRetry
	}

	h.logger.WarnContext(ctx, "geofence violation",
		slog.String("company_id", alert.CompanyID),
		slog.String("timesheet_id", alert.TimesheetID),
		slog.String("employee_id", alert.EmployeeID),
		slog.String("zone_id", alert.ZoneID),
		slog.String("zone_name", alert.ZoneName),
		slog.String("kind", string(alert.Kind)),
		slog.Float64("latitude", alert.Latitude),
		slog.Float64("longitude", alert.Longitude),
		slog.Float64("distance_meters", alert.DistanceMeters),
		slog.Bool("strict", alert.Strict),
		slog.Time("recorded_at", alert.RecordedAt),
	)
	return nil
}

// asynqLogger routes asynq's internal logging through slog.
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) asynq.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &asynqLogger{logger: logger.With(slog.String("component", "asynq"))}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
