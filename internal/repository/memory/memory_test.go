package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceStore_ListByEmployeeAndRange(t *testing.T) {
	ctx := context.Background()
	store := NewAttendanceStore(
		attendance.Record{ID: "a", EmployeeID: "emp-1", CompanyID: "co-1", Date: "2025-01-08"},
		attendance.Record{ID: "b", EmployeeID: "emp-1", CompanyID: "co-1", Date: "2025-02-08"},
		attendance.Record{ID: "c", EmployeeID: "emp-1", CompanyID: "co-2", Date: "2025-01-08"},
		attendance.Record{ID: "d", EmployeeID: "emp-2", CompanyID: "co-1", Date: "2025-01-08"},
		attendance.Record{ID: "e", EmployeeID: "emp-1", CompanyID: "co-1", Primary: &attendance.Session{Start: "2025-01-09T08:00:00Z", End: "2025-01-09T12:00:00Z"}},
		attendance.Record{ID: "f", EmployeeID: "emp-1", CompanyID: "co-1", Date: "garbage"},
	)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	records, err := store.ListByEmployeeAndRange(ctx, "emp-1", from, to, "co-1")
	require.NoError(t, err)

	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "e", "f"}, ids)
}

func TestAttendanceStore_GetByIDScopedToCompany(t *testing.T) {
	ctx := context.Background()
	store := NewAttendanceStore(attendance.Record{ID: "a", EmployeeID: "emp-1", CompanyID: "co-1"})

	_, err := store.GetByID(ctx, "a", "co-1")
	require.NoError(t, err)

	_, err = store.GetByID(ctx, "a", "co-2")
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

func TestAttendanceStore_ListEmployeesUpdatedSince(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	store := NewAttendanceStore(
		attendance.Record{ID: "a", EmployeeID: "emp-1", CompanyID: "co-1", UpdatedAt: base.Add(-time.Hour)},
		attendance.Record{ID: "b", EmployeeID: "emp-1", CompanyID: "co-1", UpdatedAt: base.Add(time.Hour)},
		attendance.Record{ID: "c", EmployeeID: "emp-1", CompanyID: "co-1", UpdatedAt: base.Add(2 * time.Hour)},
		attendance.Record{ID: "d", EmployeeID: "emp-2", CompanyID: "co-1", UpdatedAt: base.Add(-2 * time.Hour)},
	)

	refs, err := store.ListEmployeesUpdatedSince(ctx, base)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "emp-1", refs[0].EmployeeID)
	assert.Equal(t, base.Add(2*time.Hour), refs[0].UpdatedAt)
}

func TestPayrollStore_UpsertPayslipKeepsID(t *testing.T) {
	ctx := context.Background()
	store := NewPayrollStore()

	first, err := store.UpsertPayslip(ctx, payroll.Payslip{
		ID: "id-1", EmployeeID: "emp-1", CompanyID: "co-1",
		PeriodStart: "2025-01-01", PeriodEnd: "2025-01-31",
		GrossPay: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	second, err := store.UpsertPayslip(ctx, payroll.Payslip{
		ID: "id-2", EmployeeID: "emp-1", CompanyID: "co-1",
		PeriodStart: "2025-01-01", PeriodEnd: "2025-01-31",
		GrossPay: decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	got, err := store.GetPayslip(ctx, second.Key(), "co-1")
	require.NoError(t, err)
	assert.True(t, got.GrossPay.Equal(decimal.NewFromInt(200)))

	_, err = store.GetPayslip(ctx, second.Key(), "co-2")
	assert.ErrorIs(t, err, payroll.ErrPayslipNotFound)
}

func TestPayrollStore_ListPayslips(t *testing.T) {
	ctx := context.Background()
	store := NewPayrollStore()
	for _, p := range []payroll.Payslip{
		{EmployeeID: "emp-1", CompanyID: "co-1", PeriodStart: "2025-01-01", PeriodEnd: "2025-01-31"},
		{EmployeeID: "emp-2", CompanyID: "co-1", PeriodStart: "2025-01-01", PeriodEnd: "2025-01-31"},
		{EmployeeID: "emp-1", CompanyID: "co-1", PeriodStart: "2025-02-01", PeriodEnd: "2025-02-28"},
		{EmployeeID: "emp-1", CompanyID: "co-2", PeriodStart: "2025-01-01", PeriodEnd: "2025-01-31"},
	} {
		_, err := store.UpsertPayslip(ctx, p)
		require.NoError(t, err)
	}

	all, total, err := store.ListPayslips(ctx, "co-1", payroll.PayslipFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 2)
	assert.Equal(t, "2025-02-01", all[0].PeriodStart)

	page2, _, err := store.ListPayslips(ctx, "co-1", payroll.PayslipFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "emp-2", page2[0].EmployeeID)

	employee := "emp-1"
	mine, total, err := store.ListPayslips(ctx, "co-1", payroll.PayslipFilter{EmployeeID: &employee, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mine, 2)

	covering, err := store.ListPayslipsCovering(ctx, "emp-1", "2025-01-15", "co-1")
	require.NoError(t, err)
	require.Len(t, covering, 1)
	assert.Equal(t, "2025-01-31", covering[0].PeriodEnd)
}

func TestPayrollStore_ProfileAndSettingsNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewPayrollStore()

	_, err := store.GetProfile(ctx, "emp-1", "co-1")
	assert.ErrorIs(t, err, payroll.ErrCompensationProfileNotFound)

	_, err = store.GetSettings(ctx, "co-1")
	assert.ErrorIs(t, err, payroll.ErrPayrollSettingsNotFound)
}
