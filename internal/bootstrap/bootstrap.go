// Package bootstrap wires configuration into stores and services. Both the
// API and the recompute worker start from here.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payslip-engine/internal/config"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payslip-engine/internal/repository/postgresql"
	"github.com/cmlabs-hris/payslip-engine/internal/repository/sqlite"
	attendanceService "github.com/cmlabs-hris/payslip-engine/internal/service/attendance"
	payrollService "github.com/cmlabs-hris/payslip-engine/internal/service/payroll"
)

// Stores holds the repositories selected by STORAGE_DRIVER.
type Stores struct {
	Attendance attendance.AttendanceRepository
	Payroll    payroll.PayrollRepository
	Close      func()
}

// OpenStores connects to the configured backend.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		slog.Info("using postgres store", "host", cfg.Database.Host, "database", cfg.Database.Name)
		return &Stores{
			Attendance: postgresql.NewAttendanceRepository(db),
			Payroll:    postgresql.NewPayrollRepository(db),
			Close:      db.Close,
		}, nil
	case "sqlite":
		store, err := sqlite.New(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		slog.Info("using sqlite store", "path", cfg.Storage.SQLitePath)
		return &Stores{
			Attendance: store,
			Payroll:    store,
			Close:      func() { _ = store.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// PolicyDefaults is the policy used for companies without a settings row.
func PolicyDefaults(cfg *config.Config) payroll.PayrollSettings {
	return payroll.PayrollSettings{
		ExpectedMonthlyHours: cfg.Policy.ExpectedMonthlyHours,
		ExpectedDailyHours:   cfg.Policy.ExpectedDailyHours,
		BreakThreshold:       cfg.Policy.BreakThreshold,
		BreakDuration:        cfg.Policy.BreakDuration,
		Tolerance:            cfg.Policy.Tolerance,
		OvertimePaid:         cfg.Policy.OvertimePaid,
		Timezone:             cfg.Policy.Timezone,
	}
}

// StatutoryRates parses the configured SSNIT rates and PAYE table.
func StatutoryRates(cfg *config.Config) (payroll.StatutoryRates, error) {
	brackets, err := payrollService.ParseBrackets(cfg.Statutory.PAYEBrackets)
	if err != nil {
		return payroll.StatutoryRates{}, fmt.Errorf("invalid PAYE_BRACKETS: %w", err)
	}
	return payroll.StatutoryRates{
		SSNITEmployeeRate: cfg.Statutory.SSNITEmployeeRate,
		SSNITEmployerRate: cfg.Statutory.SSNITEmployerRate,
		Tier1Rate:         cfg.Statutory.Tier1Rate,
		Tier2Rate:         cfg.Statutory.Tier2Rate,
		PAYEBrackets:      brackets,
	}, nil
}

// Services holds the application services built on a set of stores.
type Services struct {
	Payroll    payroll.PayrollService
	Attendance attendance.AttendanceService
}

func NewServices(cfg *config.Config, stores *Stores) (*Services, error) {
	rates, err := StatutoryRates(cfg)
	if err != nil {
		return nil, err
	}
	engine := payrollService.NewEngine(rates)
	defaults := PolicyDefaults(cfg)

	return &Services{
		Payroll:    payrollService.NewPayrollService(stores.Payroll, stores.Attendance, engine, defaults),
		Attendance: attendanceService.NewAttendanceService(stores.Attendance, stores.Payroll, engine, defaults),
	}, nil
}
