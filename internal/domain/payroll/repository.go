package payroll

import (
	"context"
	"time"
)

// PayrollRepository defines data access methods for payroll.
// All methods include companyID parameter to prevent cross-company data access attacks.
type PayrollRepository interface {
	// Settings
	GetSettings(ctx context.Context, companyID string) (PayrollSettings, error)
	UpsertSettings(ctx context.Context, settings PayrollSettings) (PayrollSettings, error)

	// Compensation profiles. GetProfile returns ErrCompensationProfileNotFound
	// when the employee has no salary configured. Settings are not filled in.
	GetProfile(ctx context.Context, employeeID string, companyID string) (CompensationProfile, error)
	UpsertProfile(ctx context.Context, profile CompensationProfile) (CompensationProfile, error)

	// Payslips are upserted by (employee, period start, period end):
	// recompute-and-overwrite, last writer wins.
	UpsertPayslip(ctx context.Context, payslip Payslip) (Payslip, error)
	GetPayslip(ctx context.Context, key PayslipKey, companyID string) (Payslip, error)
	ListPayslips(ctx context.Context, companyID string, filter PayslipFilter) ([]Payslip, int64, error)
	// ListPayslipsCovering returns the payslips of an employee whose period contains date.
	ListPayslipsCovering(ctx context.Context, employeeID string, date string, companyID string) ([]Payslip, error)
	// ListPayslipsComputedBefore returns the payslips of an employee computed before the instant.
	ListPayslipsComputedBefore(ctx context.Context, employeeID string, before time.Time, companyID string) ([]Payslip, error)
}
