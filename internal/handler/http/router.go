package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/config"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"
	"github.com/unrolled/secure"
)

func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	JWTService jwt.Service,
	m *metrics.Metrics,
	geofenceHandler GeofenceHandler,
	timesheetHandler TimesheetHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.App.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	r.Use(secureMiddleware.Handler)
	r.Use(m.Middleware)

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Handle("/metrics", m.Handler())

	// Location reports come from devices in the field; keep a per-client ceiling.
	locationLimit := httprate.Limit(cfg.App.LocationRateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			response.TooManyRequests(w, "Too many location reports, slow down")
		}),
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.RequireCompany)

			r.Route("/geofence-zones", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionGeofenceView)).Get("/", geofenceHandler.List)
				r.With(middleware.RequirePermission(user.PermissionGeofenceManage)).Post("/", geofenceHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionGeofenceView)).Get("/", geofenceHandler.Get)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionGeofenceManage))
						r.Put("/", geofenceHandler.Update)
						r.Delete("/", geofenceHandler.Delete)
					})

					r.With(
						middleware.RequirePermission(user.PermissionGeofenceView),
						locationLimit,
					).Post("/check", geofenceHandler.CheckLocation)
				})
			})

			r.Route("/timesheets", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionTimesheetViewOwn))
				r.Get("/", timesheetHandler.List)
				r.Post("/", timesheetHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", timesheetHandler.Get)
					r.Put("/", timesheetHandler.Update)
					r.Delete("/", timesheetHandler.Delete)
					r.With(locationLimit).Post("/location", timesheetHandler.RecordLocation)
					r.Post("/submit", timesheetHandler.Submit)
					r.Post("/approve/{stage}", timesheetHandler.Approve)
					r.Post("/reject", timesheetHandler.Reject)
					r.Post("/cancel", timesheetHandler.Cancel)
					r.Get("/approvals", timesheetHandler.ListApprovalEvents)
				})
			})
		})
	})
	return r
}
