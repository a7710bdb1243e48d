package http

import (
	"net/http"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/auth"
	"github.com/cmlabs-hris/payslip-engine/internal/handler/http/response"
)

type AttendanceHandler interface {
	ListRecords(w http.ResponseWriter, r *http.Request)
	GetBreakdown(w http.ResponseWriter, r *http.Request)
}

type attendanceHandler struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandler{attendanceService: attendanceService}
}

// ListRecords implements AttendanceHandler.
func (a *attendanceHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := recordFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := a.attendanceService.ListRecords(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, &response.Meta{TotalItems: result.TotalCount})
}

// GetBreakdown implements AttendanceHandler.
func (a *attendanceHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	filter, err := recordFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := a.attendanceService.GetBreakdown(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// recordFilter reads the query; employee_id defaults to the caller.
func recordFilter(r *http.Request) (attendance.RecordFilter, error) {
	query := r.URL.Query()
	filter := attendance.RecordFilter{
		EmployeeID:  query.Get("employee_id"),
		PeriodStart: query.Get("period_start"),
		PeriodEnd:   query.Get("period_end"),
	}
	if filter.EmployeeID == "" {
		claims, err := auth.ClaimsFromContext(r.Context())
		if err != nil {
			return filter, err
		}
		filter.EmployeeID = claims.EmployeeID
	}
	return filter, nil
}
