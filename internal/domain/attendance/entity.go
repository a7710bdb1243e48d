package attendance

import (
	"strings"
	"time"
)

// Timestamp is a clock time exactly as the attendance store wrote it.
// Different clients wrote different layouts, so parsing is deferred to the
// hours engine, which treats an unparsable value as a data-quality problem.
type Timestamp string

// PunchKind enum
type PunchKind string

const (
	PunchIn  PunchKind = "IN"
	PunchOut PunchKind = "OUT"
)

// AdjustmentStatus enum
type AdjustmentStatus string

const (
	AdjustmentPending  AdjustmentStatus = "PENDING"
	AdjustmentApproved AdjustmentStatus = "APPROVED"
	AdjustmentRejected AdjustmentStatus = "REJECTED"
)

// Session is a contiguous clocked-in interval.
type Session struct {
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
}

// Punch is a single raw device event.
type Punch struct {
	Kind PunchKind `json:"kind"`
	Time Timestamp `json:"time"`
}

// Adjustment is an employee-submitted correction awaiting or past approval.
type Adjustment struct {
	RequestedPrimary   *Session         `json:"requested_primary,omitempty"`
	RequestedSecondary *Session         `json:"requested_secondary,omitempty"`
	Status             AdjustmentStatus `json:"status"`
	Applied            bool             `json:"applied"`
}

// IsAuthoritative reports whether the requested times replace the raw ones.
func (a *Adjustment) IsAuthoritative() bool {
	return a != nil && a.Status == AdjustmentApproved && a.Applied
}

// IsOutstanding reports whether the correction is still unresolved:
// pending, or approved but not yet applied by the workflow.
func (a *Adjustment) IsOutstanding() bool {
	if a == nil {
		return false
	}
	return a.Status == AdjustmentPending || (a.Status == AdjustmentApproved && !a.Applied)
}

// Record - one clock session or adjustment request for one employee on one date
type Record struct {
	ID         string
	EmployeeID string
	CompanyID  string
	// Date is the stored date column. Older clients wrote full timestamps
	// here; empty means the date has to be derived from the first session.
	Date       string
	Primary    *Session
	Secondary  *Session
	Punches    []Punch
	Adjustment *Adjustment
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StoredDay is the coarse calendar day used to select records by range. It
// reads the date prefix of the date column, or of the first timestamp when
// the column is empty; ok is false when neither holds a date. Stores widen
// their range by a day since the prefix may be a UTC day.
func (r Record) StoredDay() (day string, ok bool) {
	candidates := []string{r.Date}
	if r.Primary != nil {
		candidates = append(candidates, string(r.Primary.Start))
	}
	for _, p := range r.Punches {
		candidates = append(candidates, string(p.Time))
	}
	if r.Adjustment != nil && r.Adjustment.RequestedPrimary != nil {
		candidates = append(candidates, string(r.Adjustment.RequestedPrimary.Start))
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if len(c) < 10 {
			continue
		}
		if _, err := time.Parse("2006-01-02", c[:10]); err == nil {
			return c[:10], true
		}
	}
	return "", false
}
