package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
)

const recordColumns = `id, company_id, employee_id, date, primary_json, secondary_json,
	punches_json, adjustment_json, created_at, updated_at`

// PutRecord inserts or replaces an attendance record. The engine only reads
// attendance; this is how imports and fixtures get data in.
func (s *Store) PutRecord(ctx context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}

	var day sql.NullString
	if d, ok := rec.StoredDay(); ok {
		day = sql.NullString{String: d, Valid: true}
	}

	primaryJSON, err := jsonOrNull(rec.Primary)
	if err != nil {
		return err
	}
	secondaryJSON, err := jsonOrNull(rec.Secondary)
	if err != nil {
		return err
	}
	adjustmentJSON, err := jsonOrNull(rec.Adjustment)
	if err != nil {
		return err
	}
	var punchesJSON sql.NullString
	if len(rec.Punches) > 0 {
		if punchesJSON, err = jsonOrNull(rec.Punches); err != nil {
			return err
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attendance_records (`+recordColumns+`, day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_id = excluded.company_id,
			employee_id = excluded.employee_id,
			date = excluded.date,
			primary_json = excluded.primary_json,
			secondary_json = excluded.secondary_json,
			punches_json = excluded.punches_json,
			adjustment_json = excluded.adjustment_json,
			updated_at = excluded.updated_at,
			day = excluded.day
	`,
		rec.ID, rec.CompanyID, rec.EmployeeID, rec.Date, primaryJSON, secondaryJSON,
		punchesJSON, adjustmentJSON, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt), day,
	)
	if err != nil {
		return fmt.Errorf("failed to put attendance record: %w", err)
	}
	return nil
}

// ListByEmployeeAndRange returns records whose stored day lies in [from, to],
// plus records with no recognisable day so the engine can report them.
func (s *Store) ListByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE company_id = ? AND employee_id = ?
		  AND (day IS NULL OR day BETWEEN ? AND ?)
		ORDER BY id
	`, companyID, employeeID, from.Format("2006-01-02"), to.Format("2006-01-02"))
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
	return records, rows.Err()
}

func (s *Store) GetByID(ctx context.Context, id string, companyID string) (attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE id = ? AND company_id = ?
	`, id, companyID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, err
	}
	return rec, nil
}

func (s *Store) ListEmployeesUpdatedSince(ctx context.Context, since time.Time) ([]attendance.EmployeeRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, employee_id, MAX(updated_at)
		FROM attendance_records
		WHERE updated_at > ?
		GROUP BY company_id, employee_id
		ORDER BY company_id, employee_id
	`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list updated employees: %w", err)
	}
	defer rows.Close()

	var refs []attendance.EmployeeRef
	for rows.Next() {
		var ref attendance.EmployeeRef
		var updatedAt string
		if err := rows.Scan(&ref.CompanyID, &ref.EmployeeID, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee ref: %w", err)
		}
		ref.UpdatedAt = parseTime(updatedAt)
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (attendance.Record, error) {
	var (
		rec                                   attendance.Record
		primary, secondary, punches, adjusted sql.NullString
		createdAt, updatedAt                  string
	)
	if err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.Date, &primary, &secondary,
		&punches, &adjusted, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, err
		}
		return attendance.Record{}, fmt.Errorf("failed to scan attendance record: %w", err)
	}

	// A column that does not decode is left empty; the engine reports the record.
	if primary.Valid {
		_ = json.Unmarshal([]byte(primary.String), &rec.Primary)
	}
	if secondary.Valid {
		_ = json.Unmarshal([]byte(secondary.String), &rec.Secondary)
	}
	if punches.Valid {
		_ = json.Unmarshal([]byte(punches.String), &rec.Punches)
	}
	if adjusted.Valid {
		_ = json.Unmarshal([]byte(adjusted.String), &rec.Adjustment)
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}

func jsonOrNull(v any) (sql.NullString, error) {
	switch x := v.(type) {
	case *attendance.Session:
		if x == nil {
			return sql.NullString{}, nil
		}
	case *attendance.Adjustment:
		if x == nil {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode column: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
