package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/auth"
	"github.com/cmlabs-hris/payslip-engine/internal/handler/http/response"
)

// RequireCompany rejects tokens that are not bound to a company. Every store
// call is company scoped.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.ClaimsFromContext(r.Context()); err != nil {
			response.HandleError(w, auth.ErrCompanyIDRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
