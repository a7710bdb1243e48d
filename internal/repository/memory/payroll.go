package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/google/uuid"
)

type scopedKey struct {
	companyID string
	payroll.PayslipKey
}

type profileKey struct {
	companyID  string
	employeeID string
}

type PayrollStore struct {
	mu       sync.RWMutex
	settings map[string]payroll.PayrollSettings
	profiles map[profileKey]payroll.CompensationProfile
	payslips map[scopedKey]payroll.Payslip
	now      func() time.Time
}

func NewPayrollStore() *PayrollStore {
	return &PayrollStore{
		settings: make(map[string]payroll.PayrollSettings),
		profiles: make(map[profileKey]payroll.CompensationProfile),
		payslips: make(map[scopedKey]payroll.Payslip),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *PayrollStore) GetSettings(_ context.Context, companyID string) (payroll.PayrollSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[companyID]
	if !ok {
		return payroll.PayrollSettings{}, payroll.ErrPayrollSettingsNotFound
	}
	return settings, nil
}

func (s *PayrollStore) UpsertSettings(_ context.Context, settings payroll.PayrollSettings) (payroll.PayrollSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.settings[settings.CompanyID]; ok {
		settings.ID = existing.ID
		settings.CreatedAt = existing.CreatedAt
	} else {
		settings.ID = uuid.NewString()
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now
	s.settings[settings.CompanyID] = settings
	return settings, nil
}

func (s *PayrollStore) GetProfile(_ context.Context, employeeID string, companyID string) (payroll.CompensationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[profileKey{companyID, employeeID}]
	if !ok {
		return payroll.CompensationProfile{}, payroll.ErrCompensationProfileNotFound
	}
	return profile, nil
}

func (s *PayrollStore) UpsertProfile(_ context.Context, profile payroll.CompensationProfile) (payroll.CompensationProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile.Deductions = append([]payroll.Deduction(nil), profile.Deductions...)
	profile.UpdatedAt = s.now()
	s.profiles[profileKey{profile.CompanyID, profile.EmployeeID}] = profile
	return profile, nil
}

// UpsertPayslip replaces the payslip for its key, keeping the original ID.
func (s *PayrollStore) UpsertPayslip(_ context.Context, p payroll.Payslip) (payroll.Payslip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := scopedKey{p.CompanyID, p.Key()}
	if existing, ok := s.payslips[key]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.payslips[key] = p
	return p, nil
}

func (s *PayrollStore) GetPayslip(_ context.Context, key payroll.PayslipKey, companyID string) (payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payslips[scopedKey{companyID, key}]
	if !ok {
		return payroll.Payslip{}, payroll.ErrPayslipNotFound
	}
	return p, nil
}

func (s *PayrollStore) ListPayslips(_ context.Context, companyID string, filter payroll.PayslipFilter) ([]payroll.Payslip, int64, error) {
	matched := s.collect(func(k scopedKey, _ payroll.Payslip) bool {
		if k.companyID != companyID {
			return false
		}
		if filter.EmployeeID != nil && k.EmployeeID != *filter.EmployeeID {
			return false
		}
		if filter.PeriodStart != nil && k.PeriodStart != *filter.PeriodStart {
			return false
		}
		if filter.PeriodEnd != nil && k.PeriodEnd != *filter.PeriodEnd {
			return false
		}
		return true
	})

	total := int64(len(matched))
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(matched) {
		return []payroll.Payslip{}, total, nil
	}
	end := offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *PayrollStore) ListPayslipsCovering(_ context.Context, employeeID string, date string, companyID string) ([]payroll.Payslip, error) {
	return s.collect(func(k scopedKey, _ payroll.Payslip) bool {
		return k.companyID == companyID && k.EmployeeID == employeeID &&
			payroll.PayPeriod{Start: k.PeriodStart, End: k.PeriodEnd}.Contains(date)
	}), nil
}

func (s *PayrollStore) ListPayslipsComputedBefore(_ context.Context, employeeID string, before time.Time, companyID string) ([]payroll.Payslip, error) {
	return s.collect(func(k scopedKey, p payroll.Payslip) bool {
		return k.companyID == companyID && k.EmployeeID == employeeID && p.ComputedAt.Before(before)
	}), nil
}

// collect returns matching payslips, newest period first then by employee.
func (s *PayrollStore) collect(match func(scopedKey, payroll.Payslip) bool) []payroll.Payslip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []payroll.Payslip{}
	for k, p := range s.payslips {
		if match(k, p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PeriodStart != out[j].PeriodStart {
			return out[i].PeriodStart > out[j].PeriodStart
		}
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].PeriodEnd < out[j].PeriodEnd
	})
	return out
}

var _ payroll.PayrollRepository = (*PayrollStore)(nil)
