package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AllowedOrigins []string
	Env            string
	Version        string
	LogLevel       slog.Level
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, attendanceHandler AttendanceHandler, holidayHandler HolidayHandler, payrollHandler PayrollHandler, eventHandler EventHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-cmlabs"),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	authenticated := func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Group(func(r chi.Router) {
			authenticated(r)

			r.Route("/attendance", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionAttendanceUpload))
					r.Post("/aggregate", attendanceHandler.Aggregate)
					r.Post("/uploads", attendanceHandler.CreateUpload)
					r.Post("/uploads/{id}/process", attendanceHandler.ProcessUpload)
				})
				r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).
					Get("/uploads/{id}/summaries", attendanceHandler.ListSummaries)
			})

			r.Route("/holidays", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionHolidayView)).Get("/", holidayHandler.List)
				r.With(middleware.RequirePermission(user.PermissionHolidayManage)).Post("/", holidayHandler.Create)
			})
		})

		r.Route("/payroll", func(r chi.Router) {
			// Authenticated by the short-lived token in the query string
			r.Get("/events", eventHandler.Stream)

			r.Group(func(r chi.Router) {
				authenticated(r)
				r.Use(middleware.RequirePermission(user.PermissionPayrollView))

				r.Get("/events/token", eventHandler.GetSSEToken)

				r.Route("/rates", func(r chi.Router) {
					r.Get("/", payrollHandler.ListRates)
					r.With(middleware.RequirePermission(user.PermissionRatesManage)).
						Put("/{employeeCode}", payrollHandler.UpsertRate)
				})

				// Approve, reject and release are checked against the actor's role by the service
				r.Route("/batches", func(r chi.Router) {
					r.Get("/", payrollHandler.ListBatches)
					r.With(middleware.RequirePermission(user.PermissionPayrollGenerate)).
						Post("/", payrollHandler.GenerateBatch)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", payrollHandler.GetBatch)
						r.Get("/release", payrollHandler.GetReleaseInfo)
						r.With(middleware.RequirePermission(user.PermissionPayrollGenerate)).
							Put("/cutoff", payrollHandler.UpdateCutoff)
						r.Post("/approve", payrollHandler.ApproveBatch)
						r.Post("/reject", payrollHandler.RejectBatch)
						r.Post("/release", payrollHandler.ReleaseBatch)
					})
				})

				r.Route("/change-requests", func(r chi.Router) {
					r.Get("/", payrollHandler.ListChangeRequests)
					r.With(middleware.RequirePermission(user.PermissionChangeRequestCreate)).
						Post("/", payrollHandler.CreateChangeRequest)
					r.Post("/{id}/approve", payrollHandler.ApproveChange)
					r.Post("/{id}/reject", payrollHandler.RejectChange)
				})

				r.Route("/contributions", func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionReportsView))
					r.Get("/", payrollHandler.ContributionReport)
					r.Get("/export", payrollHandler.ExportContributions)
				})
			})
		})
	})
	return r
}
