package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/config"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	appHTTP "github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/logger"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/queue"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/repository/postgresql"
	redisrepo "github.com/cmlabs-hris/timesheet-backend-go/internal/repository/redis"
	geofenceService "github.com/cmlabs-hris/timesheet-backend-go/internal/service/geofence"
	timesheetService "github.com/cmlabs-hris/timesheet-backend-go/internal/service/timesheet"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.App).With(slog.String("process", "api"))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server shut down")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	rdb, err := redisrepo.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	alertQueue := queue.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Queue.AlertQueue, cfg.Queue.MaxRetry)
	defer alertQueue.Close()

	m := metrics.NewMetrics()
	loc := cfg.Location()

	zoneRepo := postgresql.NewGeofenceZoneRepository(db)
	timesheetRepo := postgresql.NewTimesheetRepository(db)
	approvalEventRepo := postgresql.NewApprovalEventRepository(db)
	transactor := postgresql.NewTransactor(db)
	zoneCache := redisrepo.NewZoneCache(rdb.Client, cfg.Redis.ZoneCacheTTL)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	zoneSvc := geofenceService.NewZoneService(zoneRepo, zoneCache, m, log, loc)
	timesheetSvc := timesheetService.NewTimesheetService(
		transactor,
		timesheetRepo,
		approvalEventRepo,
		zoneSvc,
		alertQueue,
		timesheet.Limits{
			WeeklyHours:     decimal.NewFromInt(int64(cfg.Timesheet.WeeklyHoursLimit)),
			MonthlyOvertime: decimal.NewFromInt(int64(cfg.Timesheet.MonthlyOvertimeLimit)),
		},
		m,
		log,
		loc,
	)

	geofenceHandler := appHTTP.NewGeofenceHandler(zoneSvc)
	timesheetHandler := appHTTP.NewTimesheetHandler(timesheetSvc)

	router := appHTTP.NewRouter(cfg, log, JWTService, m, geofenceHandler, timesheetHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
	}

	scheduler := cron.NewScheduler(ctx, log)
	cron.NewGeofenceJobs(zoneSvc, cfg.Cron.ZoneCacheWarmInterval, log).RegisterJobs(scheduler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
