package payroll

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/auth"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/payslip-engine/internal/repository/memory"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type serviceFixture struct {
	svc        *PayrollServiceImpl
	payroll    *memory.PayrollStore
	attendance *memory.AttendanceStore
	clock      time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		payroll:    memory.NewPayrollStore(),
		attendance: memory.NewAttendanceStore(),
		clock:      time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	svc := NewPayrollService(f.payroll, f.attendance, NewEngine(DefaultStatutoryRates()), testSettings()).(*PayrollServiceImpl)
	svc.now = func() time.Time { return f.clock }
	f.svc = svc

	_, err := f.payroll.UpsertProfile(context.Background(), payroll.CompensationProfile{
		EmployeeID:  testEmployee,
		CompanyID:   "co-1",
		BasicSalary: decimal.NewFromInt(3520),
	})
	require.NoError(t, err)
	return f
}

func (f *serviceFixture) seedApprovedDay(date string) {
	f.attendance.Put(attendance.Record{
		ID:         "rec-" + date,
		EmployeeID: testEmployee,
		CompanyID:  "co-1",
		Date:       date,
		Adjustment: approved(date+"T08:00:00Z", date+"T16:00:00Z"),
	})
}

func ctxAs(t *testing.T, role auth.Role, employeeID string) context.Context {
	t.Helper()
	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	token, _, err := ja.Encode(map[string]interface{}{
		"user_id":     "user-1",
		"employee_id": employeeID,
		"company_id":  "co-1",
		"role":        string(role),
		"type":        "access",
	})
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func januaryRequest(force bool) payroll.ComputePayslipRequest {
	return payroll.ComputePayslipRequest{
		EmployeeID:     testEmployee,
		PeriodStart:    "2025-01-01",
		PeriodEnd:      "2025-01-31",
		ForceRecompute: force,
	}
}

func TestComputePayslip_CachesUntilForced(t *testing.T) {
	f := newServiceFixture(t)
	f.seedApprovedDay("2025-01-06")
	ctx := ctxAs(t, auth.RoleEmployee, testEmployee)

	first, err := f.svc.ComputePayslip(ctx, januaryRequest(false))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assertDecimal(t, "8", first.ActualHoursWorked)

	// New attendance is not seen until a forced recompute
	f.seedApprovedDay("2025-01-07")
	f.clock = f.clock.Add(time.Hour)

	cached, err := f.svc.ComputePayslip(ctx, januaryRequest(false))
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assertDecimal(t, "8", cached.ActualHoursWorked)
	assert.Equal(t, first.ID, cached.ID)

	forced, err := f.svc.ComputePayslip(ctx, januaryRequest(true))
	require.NoError(t, err)
	assert.False(t, forced.Cached)
	assertDecimal(t, "16", forced.ActualHoursWorked)
	assert.Equal(t, first.ID, forced.ID)
	assert.Equal(t, "2025-02-01T10:00:00Z", forced.ComputedAt)
}

func TestComputePayslip_MissingProfileIsConfigurationError(t *testing.T) {
	f := newServiceFixture(t)
	ctx := ctxAs(t, auth.RoleOwner, "")

	req := januaryRequest(false)
	req.EmployeeID = "emp-unknown"
	_, err := f.svc.ComputePayslip(ctx, req)

	assert.ErrorIs(t, err, payroll.ErrConfiguration)
	_, err = f.payroll.GetPayslip(context.Background(), payroll.PayslipKey{
		EmployeeID: "emp-unknown", PeriodStart: "2025-01-01", PeriodEnd: "2025-01-31",
	}, "co-1")
	assert.ErrorIs(t, err, payroll.ErrPayslipNotFound)
}

func TestComputePayslip_EmployeeCannotComputeOthers(t *testing.T) {
	f := newServiceFixture(t)
	ctx := ctxAs(t, auth.RoleEmployee, "emp-2")

	_, err := f.svc.ComputePayslip(ctx, januaryRequest(false))
	assert.ErrorIs(t, err, payroll.ErrForbidden)
}

func TestComputePayslip_InvalidPeriod(t *testing.T) {
	f := newServiceFixture(t)
	ctx := ctxAs(t, auth.RoleOwner, "")

	req := januaryRequest(false)
	req.PeriodEnd = "2024-12-31"
	_, err := f.svc.ComputePayslip(ctx, req)

	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestComputePayslip_UsesCompanySettings(t *testing.T) {
	f := newServiceFixture(t)
	f.seedApprovedDay("2025-01-06")
	ctx := ctxAs(t, auth.RoleOwner, "")

	monthly := decimal.NewFromInt(160)
	_, err := f.svc.UpdateSettings(ctx, payroll.UpdatePayrollSettingsRequest{ExpectedMonthlyHours: &monthly})
	require.NoError(t, err)

	slip, err := f.svc.ComputePayslip(ctx, januaryRequest(true))
	require.NoError(t, err)
	assertDecimal(t, "160", slip.ExpectedHours)
	assertDecimal(t, "22", slip.HourlyRate)
}

func TestGetPayslip(t *testing.T) {
	f := newServiceFixture(t)
	ctx := ctxAs(t, auth.RoleEmployee, testEmployee)

	_, err := f.svc.GetPayslip(ctx, testEmployee, "2025-01-01", "2025-01-31")
	assert.ErrorIs(t, err, payroll.ErrPayslipNotFound)

	_, err = f.svc.ComputePayslip(ctx, januaryRequest(false))
	require.NoError(t, err)

	got, err := f.svc.GetPayslip(ctx, testEmployee, "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.True(t, got.Cached)
}

func TestListPayslips_EmployeeScopedToSelf(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.payroll.UpsertProfile(context.Background(), payroll.CompensationProfile{
		EmployeeID: "emp-2", CompanyID: "co-1", BasicSalary: decimal.NewFromInt(2000),
	})
	require.NoError(t, err)

	admin := ctxAs(t, auth.RoleManager, "")
	for _, emp := range []string{testEmployee, "emp-2"} {
		req := januaryRequest(false)
		req.EmployeeID = emp
		_, err := f.svc.ComputePayslip(admin, req)
		require.NoError(t, err)
	}

	all, err := f.svc.ListPayslips(admin, payroll.PayslipFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.TotalCount)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.Limit)

	own, err := f.svc.ListPayslips(ctxAs(t, auth.RoleEmployee, "emp-2"), payroll.PayslipFilter{})
	require.NoError(t, err)
	require.Len(t, own.Data, 1)
	assert.Equal(t, "emp-2", own.Data[0].EmployeeID)

	other := testEmployee
	_, err = f.svc.ListPayslips(ctxAs(t, auth.RoleEmployee, "emp-2"), payroll.PayslipFilter{EmployeeID: &other})
	assert.ErrorIs(t, err, payroll.ErrForbidden)
}

func TestRecomputeForDate(t *testing.T) {
	f := newServiceFixture(t)
	f.seedApprovedDay("2025-01-06")
	ctx := ctxAs(t, auth.RoleEmployee, testEmployee)

	_, err := f.svc.ComputePayslip(ctx, januaryRequest(false))
	require.NoError(t, err)

	f.seedApprovedDay("2025-01-07")
	n, err := f.svc.RecomputeForDate(context.Background(), "co-1", testEmployee, "2025-01-07")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.GetPayslip(ctx, testEmployee, "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assertDecimal(t, "16", got.ActualHoursWorked)

	n, err = f.svc.RecomputeForDate(context.Background(), "co-1", testEmployee, "2025-03-01")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.RecomputeForDate(context.Background(), "co-1", testEmployee, "yesterday")
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
}

func TestRecomputeStale(t *testing.T) {
	f := newServiceFixture(t)
	ctx := ctxAs(t, auth.RoleEmployee, testEmployee)

	f.attendance.Put(attendance.Record{
		ID: "r1", EmployeeID: testEmployee, CompanyID: "co-1", Date: "2025-01-06",
		Adjustment: approved("2025-01-06T08:00:00Z", "2025-01-06T16:00:00Z"),
		UpdatedAt:  f.clock.Add(-time.Hour),
	})
	_, err := f.svc.ComputePayslip(ctx, januaryRequest(false))
	require.NoError(t, err)

	// Nothing changed after the payslip was computed
	n, err := f.svc.RecomputeStale(context.Background(), f.clock.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	f.attendance.Put(attendance.Record{
		ID: "r2", EmployeeID: testEmployee, CompanyID: "co-1", Date: "2025-01-07",
		Adjustment: approved("2025-01-07T08:00:00Z", "2025-01-07T16:00:00Z"),
		UpdatedAt:  f.clock.Add(time.Minute),
	})
	f.clock = f.clock.Add(2 * time.Minute)

	n, err = f.svc.RecomputeStale(context.Background(), f.clock.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.GetPayslip(ctx, testEmployee, "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assertDecimal(t, "16", got.ActualHoursWorked)
}

func TestSettingsDefaultsAndAdminOnlyUpdate(t *testing.T) {
	f := newServiceFixture(t)

	settings, err := f.svc.GetSettings(ctxAs(t, auth.RoleEmployee, testEmployee))
	require.NoError(t, err)
	assert.Equal(t, "co-1", settings.CompanyID)
	assert.Equal(t, 420, settings.BreakThresholdMinutes)
	assert.Equal(t, 10, settings.ToleranceMinutes)

	tolerance := 15
	_, err = f.svc.UpdateSettings(ctxAs(t, auth.RoleEmployee, testEmployee), payroll.UpdatePayrollSettingsRequest{ToleranceMinutes: &tolerance})
	assert.ErrorIs(t, err, auth.ErrAdminPrivilegeRequired)

	updated, err := f.svc.UpdateSettings(ctxAs(t, auth.RoleOwner, ""), payroll.UpdatePayrollSettingsRequest{ToleranceMinutes: &tolerance})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.ToleranceMinutes)
	assert.Equal(t, 60, updated.BreakDurationMinutes)
	assert.NotEmpty(t, updated.ID)
}

func TestProfiles(t *testing.T) {
	f := newServiceFixture(t)
	owner := ctxAs(t, auth.RoleOwner, "")

	saved, err := f.svc.UpsertProfile(owner, payroll.UpsertProfileRequest{
		EmployeeID:  "emp-2",
		BasicSalary: decimal.NewFromInt(2500),
		Deductions:  []payroll.Deduction{{Name: "loan", Amount: decimal.NewFromInt(100)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "co-1", saved.CompanyID)
	assert.Equal(t, "Africa/Accra", saved.Settings.Timezone)

	got, err := f.svc.GetProfile(ctxAs(t, auth.RoleEmployee, "emp-2"), "emp-2")
	require.NoError(t, err)
	require.Len(t, got.Deductions, 1)

	_, err = f.svc.GetProfile(ctxAs(t, auth.RoleEmployee, "emp-2"), testEmployee)
	assert.ErrorIs(t, err, payroll.ErrForbidden)

	_, err = f.svc.UpsertProfile(ctxAs(t, auth.RoleEmployee, "emp-2"), payroll.UpsertProfileRequest{
		EmployeeID: "emp-2", BasicSalary: decimal.NewFromInt(9999),
	})
	assert.ErrorIs(t, err, auth.ErrAdminPrivilegeRequired)
}

func TestExportPayslips(t *testing.T) {
	f := newServiceFixture(t)
	f.seedApprovedDay("2025-01-06")
	owner := ctxAs(t, auth.RoleOwner, "")

	_, err := f.svc.ComputePayslip(owner, januaryRequest(false))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportPayslips(owner, "2025-01-01", "2025-01-31", &buf))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows("Payslips")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	err = f.svc.ExportPayslips(ctxAs(t, auth.RoleEmployee, testEmployee), "2025-01-01", "2025-01-31", &bytes.Buffer{})
	assert.ErrorIs(t, err, auth.ErrAdminPrivilegeRequired)
}
