package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/payslip-engine/internal/config"
	"github.com/cmlabs-hris/payslip-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(cfg *config.Config, jwtService jwt.Service, authHandler AuthHandler, payrollHandler PayrollHandler, attendanceHandler AttendanceHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.IsDevelopment())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payslip-engine"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.App.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.App.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.SlogLevel(),
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService))

			r.Post("/auth/logout", authHandler.Logout)

			// Company scoped
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCompany)

				r.Route("/payslips", func(r chi.Router) {
					r.Get("/", payrollHandler.ListPayslips)
					r.Post("/compute", payrollHandler.ComputePayslip)
					r.Get("/{employee_id}/{period_start}/{period_end}", payrollHandler.GetPayslip)

					// Admin only
					r.Group(func(r chi.Router) {
						r.Use(middleware.AdminOnly)
						r.Get("/export", payrollHandler.ExportPayslips)
					})
				})

				r.Route("/payroll", func(r chi.Router) {
					// Admin only
					r.Use(middleware.AdminOnly)

					r.Get("/settings", payrollHandler.GetSettings)
					r.Put("/settings", payrollHandler.UpdateSettings)
					r.Get("/profiles/{employee_id}", payrollHandler.GetProfile)
					r.Put("/profiles/{employee_id}", payrollHandler.UpsertProfile)
				})

				r.Route("/attendance", func(r chi.Router) {
					r.Get("/records", attendanceHandler.ListRecords)
					r.Get("/breakdown", attendanceHandler.GetBreakdown)
				})
			})
		})
	})
	return r
}
