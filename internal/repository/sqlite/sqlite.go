// Package sqlite provides a SQLite-backed implementation of the attendance
// and payroll repositories, for single-node deployments and local work.
//
// The schema is auto-migrated on New. Timestamps are stored as fixed-width
// UTC text so they order lexically; money and hours are stored as decimal
// strings.
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements attendance.AttendanceRepository and payroll.PayrollRepository.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// New opens the database at dbPath. Use ":memory:" for a throwaway database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A :memory: database lives and dies with its connection
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL DEFAULT '',
		day TEXT,
		primary_json TEXT,
		secondary_json TEXT,
		punches_json TEXT,
		adjustment_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_records_employee_day
		ON attendance_records(company_id, employee_id, day);
	CREATE INDEX IF NOT EXISTS idx_attendance_records_updated_at
		ON attendance_records(updated_at);

	CREATE TABLE IF NOT EXISTS payroll_settings (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL UNIQUE,
		expected_monthly_hours TEXT NOT NULL,
		expected_daily_hours TEXT NOT NULL,
		break_threshold_seconds INTEGER NOT NULL,
		break_duration_seconds INTEGER NOT NULL,
		tolerance_seconds INTEGER NOT NULL,
		overtime_paid INTEGER NOT NULL DEFAULT 0,
		timezone TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS compensation_profiles (
		company_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		basic_salary TEXT NOT NULL,
		deductions_json TEXT NOT NULL DEFAULT '[]',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (company_id, employee_id)
	);

	-- One payslip per employee and period; recomputes overwrite
	CREATE TABLE IF NOT EXISTS payslips (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		data_json TEXT NOT NULL,
		computed_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (company_id, employee_id, period_start, period_end)
	);

	CREATE INDEX IF NOT EXISTS idx_payslips_employee_computed
		ON payslips(company_id, employee_id, computed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
