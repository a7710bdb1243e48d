package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/auth"
	"github.com/cmlabs-hris/payslip-engine/internal/handler/http/response"
)

// AdminOnly allows owners and managers through
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.ClaimsFromContext(r.Context())
		if err != nil {
			response.HandleError(w, err)
			return
		}

		if !claims.Role.IsAdmin() {
			response.HandleError(w, auth.ErrAdminPrivilegeRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
