package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailDomainNotAllowed indicates registration from an unaccepted domain.
	ErrEmailDomainNotAllowed = errors.New("email domain not allowed")
	// ErrOTPInvalid indicates a missing, expired, or already-used one-time code.
	ErrOTPInvalid = errors.New("invalid otp")
)
