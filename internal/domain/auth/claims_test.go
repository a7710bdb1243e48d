package auth

import (
	"context"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithClaims(t *testing.T, claims map[string]interface{}) context.Context {
	t.Helper()
	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	token, _, err := ja.Encode(claims)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func TestClaimsFromContext(t *testing.T) {
	ctx := contextWithClaims(t, map[string]interface{}{
		"user_id":     "u-1",
		"employee_id": "emp-1",
		"company_id":  "co-1",
		"role":        "employee",
	})

	claims, err := ClaimsFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "co-1", claims.CompanyID)
	assert.Equal(t, "emp-1", claims.EmployeeID)
	assert.Equal(t, RoleEmployee, claims.Role)
}

func TestClaimsFromContext_MissingCompany(t *testing.T) {
	ctx := contextWithClaims(t, map[string]interface{}{"user_id": "u-1", "role": "owner"})

	_, err := ClaimsFromContext(ctx)
	assert.ErrorIs(t, err, ErrCompanyIDRequired)
}

func TestClaimsFromContext_NoToken(t *testing.T) {
	_, err := ClaimsFromContext(context.Background())
	assert.Error(t, err)
}

func TestCanAccessEmployee(t *testing.T) {
	tests := []struct {
		name     string
		claims   Claims
		employee string
		want     bool
	}{
		{"owner sees anyone", Claims{Role: RoleOwner}, "emp-2", true},
		{"manager sees anyone", Claims{Role: RoleManager}, "emp-2", true},
		{"employee sees self", Claims{Role: RoleEmployee, EmployeeID: "emp-1"}, "emp-1", true},
		{"employee blocked from others", Claims{Role: RoleEmployee, EmployeeID: "emp-1"}, "emp-2", false},
		{"employee without id blocked", Claims{Role: RoleEmployee}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.CanAccessEmployee(tt.employee))
		})
	}
}
