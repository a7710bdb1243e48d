package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetPayslips = "Payslips"
	SheetExcluded = "Excluded dates"
)

var payslipHeader = []string{
	"Employee ID", "Period start", "Period end", "Basic salary",
	"Expected hours", "Actual hours", "Payable hours", "Overtime hours", "Hours not worked",
	"Hourly rate", "Gross pay", "SSNIT (employee)", "PAYE", "Other deductions", "Net pay",
	"SSNIT (employer)", "Tier 1", "Tier 2", "Skipped records", "Computed at",
}

// WritePayslips renders the payslips as an XLSX workbook: one row per payslip
// on the first sheet, one column per named deduction, and every excluded date
// on a second sheet.
func WritePayslips(w io.Writer, payslips []payroll.Payslip) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetPayslips); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetExcluded); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	deductionNames := deductionColumns(payslips)
	header := make([]interface{}, 0, len(payslipHeader)+len(deductionNames))
	for _, h := range payslipHeader {
		header = append(header, h)
	}
	for _, name := range deductionNames {
		header = append(header, "Deduction: "+name)
	}
	if err := writeRow(f, SheetPayslips, 1, header); err != nil {
		return err
	}

	for i, p := range payslips {
		row := []interface{}{
			p.EmployeeID, p.PeriodStart, p.PeriodEnd, num(p.BasicSalary),
			num(p.ExpectedHours), num(p.ActualHoursWorked), num(p.PayableHours), num(p.OvertimeHours), num(p.HoursNotWorked),
			num(p.HourlyRate), num(p.GrossPay), num(p.SSNITEmployee), num(p.PAYE), num(p.OtherDeductions), num(p.NetPay),
			num(p.EmployerSSNIT), num(p.Tier1), num(p.Tier2), p.SkippedRecords, p.ComputedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for _, name := range deductionNames {
			row = append(row, num(p.DeductionsDetail[name]))
		}
		if err := writeRow(f, SheetPayslips, i+2, row); err != nil {
			return err
		}
	}

	if err := writeRow(f, SheetExcluded, 1, []interface{}{"Employee ID", "Period start", "Period end", "Date", "Hours", "Reason"}); err != nil {
		return err
	}
	next := 2
	for _, p := range payslips {
		for _, ex := range p.ExcludedDates {
			row := []interface{}{p.EmployeeID, p.PeriodStart, p.PeriodEnd, ex.Date, num(ex.Hours), ex.Reason}
			if err := writeRow(f, SheetExcluded, next, row); err != nil {
				return err
			}
			next++
		}
	}

	for _, sheet := range []string{SheetPayslips, SheetExcluded} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func deductionColumns(payslips []payroll.Payslip) []string {
	seen := make(map[string]struct{})
	for _, p := range payslips {
		for name := range p.DeductionsDetail {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
