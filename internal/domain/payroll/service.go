package payroll

import (
	"context"
	"io"
	"time"
)

// PayrollService defines payslip computation and payroll policy operations
type PayrollService interface {
	// Settings
	GetSettings(ctx context.Context) (PayrollSettingsResponse, error)
	UpdateSettings(ctx context.Context, req UpdatePayrollSettingsRequest) (PayrollSettingsResponse, error)

	// Profiles
	GetProfile(ctx context.Context, employeeID string) (ProfileResponse, error)
	UpsertProfile(ctx context.Context, req UpsertProfileRequest) (ProfileResponse, error)

	// ComputePayslip returns the stored payslip for the key unless the request
	// forces a recompute; otherwise it computes and overwrites it.
	ComputePayslip(ctx context.Context, req ComputePayslipRequest) (PayslipResponse, error)
	GetPayslip(ctx context.Context, employeeID, periodStart, periodEnd string) (PayslipResponse, error)
	ListPayslips(ctx context.Context, filter PayslipFilter) (ListPayslipResponse, error)
	ExportPayslips(ctx context.Context, periodStart, periodEnd string, w io.Writer) error

	// Recompute hooks used by the worker and the cron sweep. They take the
	// company explicitly because they run outside a request.
	RecomputeForDate(ctx context.Context, companyID, employeeID, date string) (int, error)
	RecomputeStale(ctx context.Context, since time.Time) (int, error)
}
