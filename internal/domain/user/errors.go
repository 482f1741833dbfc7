package user

import "errors"

var (
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrCompanyIDRequired       = errors.New("company ID is required")
	ErrInvalidClaims           = errors.New("access token claims are missing or invalid")
	ErrInvalidToken            = errors.New("invalid token")
)
