package auth

import "errors"

var (
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrTokenExpired           = errors.New("token has expired")
	ErrCompanyIDRequired      = errors.New("company_id claim is missing or invalid")
	ErrAdminPrivilegeRequired = errors.New("admin privilege required")
)
