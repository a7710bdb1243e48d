package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWritePayslips(t *testing.T) {
	payslips := []payroll.Payslip{
		{
			EmployeeID:  "emp-1",
			PeriodStart: "2025-01-01",
			PeriodEnd:   "2025-01-31",
			BasicSalary: decimal.NewFromInt(3520),
			GrossPay:    decimal.NewFromInt(320),
			NetPay:      decimal.RequireFromString("302.40"),
			DeductionsDetail: map[string]decimal.Decimal{
				"welfare": decimal.NewFromInt(10),
			},
			ExcludedDates: []payroll.ExcludedDate{
				{Date: "2025-01-08", Hours: decimal.RequireFromString("6.44"), Reason: "pending"},
			},
			ComputedAt: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			EmployeeID:  "emp-2",
			PeriodStart: "2025-01-01",
			PeriodEnd:   "2025-01-31",
			DeductionsDetail: map[string]decimal.Decimal{
				"loan": decimal.NewFromInt(50),
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePayslips(&buf, payslips))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetPayslips)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	assert.Equal(t, "Employee ID", header[0])
	assert.Equal(t, "Deduction: loan", header[len(header)-2])
	assert.Equal(t, "Deduction: welfare", header[len(header)-1])
	assert.Equal(t, "emp-1", rows[1][0])
	assert.Equal(t, "10", rows[1][len(header)-1])
	assert.Equal(t, "50", rows[2][len(header)-2])

	excluded, err := f.GetRows(SheetExcluded)
	require.NoError(t, err)
	require.Len(t, excluded, 2)
	assert.Equal(t, []string{"emp-1", "2025-01-01", "2025-01-31", "2025-01-08", "6.44", "pending"}, excluded[1])
}

func TestWritePayslips_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePayslips(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetPayslips)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
