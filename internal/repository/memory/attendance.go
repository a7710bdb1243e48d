// Package memory provides in-memory stores for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
)

type AttendanceStore struct {
	mu      sync.RWMutex
	records map[string]attendance.Record
}

func NewAttendanceStore(records ...attendance.Record) *AttendanceStore {
	s := &AttendanceStore{records: make(map[string]attendance.Record)}
	s.Put(records...)
	return s
}

// Put inserts or replaces records by ID. A zero UpdatedAt is stamped with now.
func (s *AttendanceStore) Put(records ...attendance.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = time.Now().UTC()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = rec.UpdatedAt
		}
		s.records[rec.ID] = rec
	}
}

// ListByEmployeeAndRange returns the employee's records whose stored day falls
// in [from, to]. Records with no recognisable day are returned as well so the
// engine can report them.
func (s *AttendanceStore) ListByEmployeeAndRange(_ context.Context, employeeID string, from, to time.Time, companyID string) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := from.Format("2006-01-02"), to.Format("2006-01-02")
	var out []attendance.Record
	for _, rec := range s.records {
		if rec.EmployeeID != employeeID || rec.CompanyID != companyID {
			continue
		}
		if day, ok := rec.StoredDay(); ok && (day < lo || day > hi) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *AttendanceStore) GetByID(_ context.Context, id string, companyID string) (attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || rec.CompanyID != companyID {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}
	return rec, nil
}

func (s *AttendanceStore) ListEmployeesUpdatedSince(_ context.Context, since time.Time) ([]attendance.EmployeeRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct{ company, employee string }
	latest := make(map[key]time.Time)
	for _, rec := range s.records {
		if !rec.UpdatedAt.After(since) {
			continue
		}
		k := key{rec.CompanyID, rec.EmployeeID}
		if rec.UpdatedAt.After(latest[k]) {
			latest[k] = rec.UpdatedAt
		}
	}

	refs := make([]attendance.EmployeeRef, 0, len(latest))
	for k, at := range latest {
		refs = append(refs, attendance.EmployeeRef{EmployeeID: k.employee, CompanyID: k.company, UpdatedAt: at})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].CompanyID != refs[j].CompanyID {
			return refs[i].CompanyID < refs[j].CompanyID
		}
		return refs[i].EmployeeID < refs[j].EmployeeID
	})
	return refs, nil
}

var _ attendance.AttendanceRepository = (*AttendanceStore)(nil)
