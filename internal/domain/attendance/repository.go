package attendance

import (
	"context"
	"time"
)

// AttendanceRepository is the read side of the attendance store.
// All methods include companyID parameter to prevent cross-company data access attacks.
type AttendanceRepository interface {
	// ListByEmployeeAndRange returns every record of the employee whose stored
	// date falls in [from, to]. Callers widen the range by a day on each side
	// because the stored date is not always the employer's local date.
	ListByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]Record, error)

	// GetByID retrieves a record by ID with company isolation
	GetByID(ctx context.Context, id string, companyID string) (Record, error)

	// ListEmployeesUpdatedSince returns the employees with at least one record
	// touched after the given instant, across all companies.
	ListEmployeesUpdatedSince(ctx context.Context, since time.Time) ([]EmployeeRef, error)
}

// EmployeeRef identifies an employee together with their company.
type EmployeeRef struct {
	EmployeeID string
	CompanyID  string
	UpdatedAt  time.Time
}
