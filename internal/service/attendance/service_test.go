package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/payslip-engine/internal/repository/memory"
	payrollservice "github.com/cmlabs-hris/payslip-engine/internal/service/payroll"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimsContext(t *testing.T, role, employeeID string) context.Context {
	t.Helper()
	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	token, _, err := ja.Encode(map[string]interface{}{
		"employee_id": employeeID,
		"company_id":  "co-1",
		"role":        role,
	})
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func newTestService() attendance.AttendanceService {
	store := memory.NewAttendanceStore(
		attendance.Record{
			ID: "r1", EmployeeID: "emp-1", CompanyID: "co-1", Date: "2025-01-08",
			Punches: []attendance.Punch{
				{Kind: attendance.PunchIn, Time: "2025-01-08T08:00:00Z"},
				{Kind: attendance.PunchOut, Time: "2025-01-08T12:00:00Z"},
			},
		},
		attendance.Record{
			ID: "r2", EmployeeID: "emp-1", CompanyID: "co-1", Date: "2025-01-08",
			Punches: []attendance.Punch{
				{Kind: attendance.PunchIn, Time: "2025-01-08T08:00:00Z"},
				{Kind: attendance.PunchOut, Time: "2025-01-08T12:00:00Z"},
			},
		},
		attendance.Record{
			ID: "r3", EmployeeID: "emp-1", CompanyID: "co-1", Date: "2025-01-09",
			Primary: &attendance.Session{Start: "9am", End: "2025-01-09T12:00:00Z"},
		},
	)
	defaults := payroll.PayrollSettings{
		ExpectedMonthlyHours: decimal.NewFromInt(176),
		ExpectedDailyHours:   decimal.NewFromInt(8),
		BreakThreshold:       7 * time.Hour,
		BreakDuration:        time.Hour,
		Tolerance:            10 * time.Minute,
		Timezone:             "UTC",
	}
	return NewAttendanceService(store, memory.NewPayrollStore(), payrollservice.NewEngine(payrollservice.DefaultStatutoryRates()), defaults)
}

var januaryFilter = attendance.RecordFilter{EmployeeID: "emp-1", PeriodStart: "2025-01-01", PeriodEnd: "2025-01-31"}

func TestGetBreakdown(t *testing.T) {
	svc := newTestService()

	resp, err := svc.GetBreakdown(claimsContext(t, "employee", "emp-1"), januaryFilter)
	require.NoError(t, err)

	assert.True(t, resp.TotalHours.Equal(decimal.NewFromInt(4)))
	require.Len(t, resp.Days, 1)
	assert.Equal(t, 1, resp.Days[0].DuplicatesDropped)
	assert.Equal(t, "punches", resp.Days[0].Source)
	assert.Equal(t, 1, resp.SkippedRecords)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "r3", resp.Warnings[0].RecordID)
	assert.Empty(t, resp.ExcludedDates)
}

func TestListRecords(t *testing.T) {
	svc := newTestService()

	resp, err := svc.ListRecords(claimsContext(t, "manager", ""), januaryFilter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.TotalCount)
	assert.Equal(t, "r1", resp.Data[0].ID)
}

func TestAttendanceService_Authorization(t *testing.T) {
	svc := newTestService()
	ctx := claimsContext(t, "employee", "emp-2")

	_, err := svc.ListRecords(ctx, januaryFilter)
	assert.ErrorIs(t, err, attendance.ErrUnauthorized)

	_, err = svc.GetBreakdown(ctx, januaryFilter)
	assert.ErrorIs(t, err, attendance.ErrUnauthorized)
}

func TestAttendanceService_Validation(t *testing.T) {
	svc := newTestService()

	_, err := svc.GetBreakdown(claimsContext(t, "owner", ""), attendance.RecordFilter{PeriodStart: "2025-01-31", PeriodEnd: "2025-01-01"})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	m := verrs.ToMap()
	assert.Contains(t, m, "employee_id")
	assert.Contains(t, m, "period_end")
}
