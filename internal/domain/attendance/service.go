package attendance

import (
	"context"
)

// AttendanceService defines read-only attendance operations
type AttendanceService interface {
	// ListRecords retrieves the raw records of an employee for a date range
	ListRecords(ctx context.Context, filter RecordFilter) (ListRecordResponse, error)

	// GetBreakdown runs the hours engine without pricing and returns the
	// per-date decisions, so a human can see why a date counted or not
	GetBreakdown(ctx context.Context, filter RecordFilter) (BreakdownResponse, error)
}
