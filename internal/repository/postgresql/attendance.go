package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const recordColumns = `id, company_id, employee_id, date, primary_session, secondary_session,
	punches, adjustment, created_at, updated_at`

// recordDay mirrors attendance.Record.StoredDay: the date prefix of the date
// column, else of the first timestamp found.
const recordDay = `COALESCE(
	NULLIF(left(date, 10), ''),
	left(primary_session->>'start', 10),
	left(punches->0->>'time', 10),
	left(adjustment->'requested_primary'->>'start', 10)
)`

// ListByEmployeeAndRange implements attendance.AttendanceRepository.
// Records without a readable day are returned too so the engine can report them.
func (a *attendanceRepository) ListByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + recordColumns + `
		FROM (
			SELECT *, ` + recordDay + ` AS day
			FROM attendance_records
			WHERE company_id = $1 AND employee_id = $2
		) r
		WHERE r.day IS NULL
		   OR r.day !~ '^\d{4}-\d{2}-\d{2}$'
		   OR r.day BETWEEN $3 AND $4
		ORDER BY r.id
	`

	rows, err := q.Query(ctx, query, companyID, employeeID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance records: %w", err)
	}

	return records, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string, companyID string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE id = $1 AND company_id = $2
	`

	rec, err := scanRecord(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, err
	}

	return rec, nil
}

// ListEmployeesUpdatedSince implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListEmployeesUpdatedSince(ctx context.Context, since time.Time) ([]attendance.EmployeeRef, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT company_id, employee_id, MAX(updated_at)
		FROM attendance_records
		WHERE updated_at > $1
		GROUP BY company_id, employee_id
		ORDER BY company_id, employee_id
	`

	rows, err := q.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list updated employees: %w", err)
	}
	defer rows.Close()

	var refs []attendance.EmployeeRef
	for rows.Next() {
		var ref attendance.EmployeeRef
		if err := rows.Scan(&ref.CompanyID, &ref.EmployeeID, &ref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee ref: %w", err)
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

func scanRecord(row pgx.Row) (attendance.Record, error) {
	var (
		rec                                   attendance.Record
		primary, secondary, punches, adjusted []byte
	)
	if err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.Date, &primary, &secondary,
		&punches, &adjusted, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return attendance.Record{}, err
		}
		return attendance.Record{}, fmt.Errorf("failed to scan attendance record: %w", err)
	}

	// A column that does not decode is left empty; the engine reports the record.
	if len(primary) > 0 {
		_ = json.Unmarshal(primary, &rec.Primary)
	}
	if len(secondary) > 0 {
		_ = json.Unmarshal(secondary, &rec.Secondary)
	}
	if len(punches) > 0 {
		_ = json.Unmarshal(punches, &rec.Punches)
	}
	if len(adjusted) > 0 {
		_ = json.Unmarshal(adjusted, &rec.Adjustment)
	}

	return rec, nil
}
