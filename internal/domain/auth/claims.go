package auth

import (
	"context"
	"fmt"

	"github.com/go-chi/jwtauth/v5"
)

// Role enum
type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// IsAdmin reports whether the role may act on other employees' payroll.
func (r Role) IsAdmin() bool {
	return r == RoleOwner || r == RoleManager
}

// Claims is the caller identity carried in an access token.
type Claims struct {
	UserID     string
	EmployeeID string
	CompanyID  string
	Role       Role
}

// CanAccessEmployee reports whether the caller may read employeeID's data.
func (c Claims) CanAccessEmployee(employeeID string) bool {
	return c.Role.IsAdmin() || (c.EmployeeID != "" && c.EmployeeID == employeeID)
}

// ClaimsFromContext extracts the caller identity placed by jwtauth.Verifier.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return Claims{}, ErrCompanyIDRequired
	}

	userID, _ := claims["user_id"].(string)
	employeeID, _ := claims["employee_id"].(string)
	role, _ := claims["role"].(string)

	return Claims{
		UserID:     userID,
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Role:       Role(role),
	}, nil
}
