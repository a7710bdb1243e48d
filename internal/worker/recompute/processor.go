// Package recompute turns "attendance changed" queue events into forced
// payslip recomputes.
package recompute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/validator"
)

const EventAttendanceChanged = "attendance.changed"

// ErrMalformedEvent marks a message that can never be processed.
var ErrMalformedEvent = errors.New("malformed recompute event")

// AttendanceChangedEvent is published whenever a record is written or corrected.
type AttendanceChangedEvent struct {
	Event      string `json:"event"`
	CompanyID  string `json:"company_id"`
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
}

// Recomputer is the part of the payroll service the processor needs.
type Recomputer interface {
	RecomputeForDate(ctx context.Context, companyID, employeeID, date string) (int, error)
}

var _ Recomputer = (payroll.PayrollService)(nil)

type Processor struct {
	payrollService Recomputer
	maxDelay       int32
}

func NewProcessor(payrollService Recomputer) *Processor {
	return &Processor{payrollService: payrollService, maxDelay: 900}
}

// Process recomputes every payslip covering the event date. Malformed events
// and configuration problems are dropped; store failures are retried with
// exponential backoff.
func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	event, err := decodeEvent(aws.ToString(msg.Body))
	if err != nil {
		return false, 0, err
	}

	count, err := p.payrollService.RecomputeForDate(ctx, event.CompanyID, event.EmployeeID, event.Date)
	if err != nil {
		if isPermanent(err) {
			return false, 0, fmt.Errorf("recompute for %s on %s: %w", event.EmployeeID, event.Date, err)
		}
		return true, p.backoff(receiveCount(msg)), fmt.Errorf("recompute for %s on %s: %w", event.EmployeeID, event.Date, err)
	}

	slog.InfoContext(ctx, "payslips recomputed from attendance change",
		"company_id", event.CompanyID,
		"employee_id", event.EmployeeID,
		"date", event.Date,
		"count", count,
	)
	return false, 0, nil
}

func decodeEvent(body string) (AttendanceChangedEvent, error) {
	var event AttendanceChangedEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return event, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.Event != EventAttendanceChanged {
		return event, fmt.Errorf("%w: unexpected event %q", ErrMalformedEvent, event.Event)
	}
	if validator.IsEmpty(event.CompanyID) || validator.IsEmpty(event.EmployeeID) {
		return event, fmt.Errorf("%w: company_id and employee_id are required", ErrMalformedEvent)
	}
	if _, ok := validator.IsValidDate(event.Date); !ok {
		return event, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrMalformedEvent, event.Date)
	}
	return event, nil
}

// isPermanent reports whether retrying cannot help. A joined error is
// permanent only if every part is.
func isPermanent(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !isPermanent(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, payroll.ErrConfiguration) ||
		errors.Is(err, payroll.ErrEmployeeNotFound) ||
		errors.Is(err, payroll.ErrInvalidPeriod)
}

func receiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (p *Processor) backoff(attempt int) int32 {
	delay := math.Pow(2, float64(attempt)) * 10
	if delay > float64(p.maxDelay) {
		return p.maxDelay
	}
	return int32(delay)
}
