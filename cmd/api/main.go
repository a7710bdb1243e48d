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

	"github.com/cmlabs-hris/payslip-engine/internal/bootstrap"
	"github.com/cmlabs-hris/payslip-engine/internal/config"
	appHTTP "github.com/cmlabs-hris/payslip-engine/internal/handler/http"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/jwt"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	services, err := bootstrap.NewServices(cfg, stores)
	if err != nil {
		return err
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	authHandler := appHTTP.NewAuthHandler(JWTService)
	payrollHandler := appHTTP.NewPayrollHandler(services.Payroll)
	attendanceHandler := appHTTP.NewAttendanceHandler(services.Attendance)

	router := appHTTP.NewRouter(cfg, JWTService, authHandler, payrollHandler, attendanceHandler)

	scheduler := cron.NewScheduler(ctx)
	payrollJobs := cron.NewPayrollJobs(services.Payroll, cfg.Cron.StaleSweepInterval, cfg.Cron.StaleSweepLookback)
	if err := payrollJobs.RegisterJobs(scheduler); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server running", "addr", server.Addr, "env", cfg.App.Env, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
