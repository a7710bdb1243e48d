package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrPayrollSettingsNotFound     = errors.New("payroll settings not found")
	ErrCompensationProfileNotFound = errors.New("compensation profile not found")
	ErrPayslipNotFound             = errors.New("payslip not found")
	ErrInvalidPeriod               = errors.New("invalid payroll period")
	ErrEmployeeNotFound            = errors.New("employee not found")
	ErrForbidden                   = errors.New("not allowed to access another employee's payslip")

	// ErrConfiguration marks every failure that leaves the engine unable to
	// price hours. No payslip is produced.
	ErrConfiguration = errors.New("payroll configuration error")
)

// ConfigurationError provides details about a missing or unusable profile.
type ConfigurationError struct {
	EmployeeID string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cannot price hours for employee %s: %s", e.EmployeeID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
