package service

import (
	"impactlab/internal/common"
)

type AuthErrorKind int

const (
	KindMissingFields AuthErrorKind = iota + 1
	KindPasswordMismatch
	KindInvalidEmailFormat
	KindPasswordTooLong
	KindEmailInUse
	KindInvalidCredentials
	KindPersistence
	KindRateLimited
)

func (k AuthErrorKind) String() string {
	switch k {
	case KindMissingFields:
		return "MissingFields"
	case KindPasswordMismatch:
		return "PasswordMismatch"
	case KindInvalidEmailFormat:
		return "InvalidEmailFormat"
	case KindPasswordTooLong:
		return "PasswordTooLong"
	case KindEmailInUse:
		return "EmailInUse"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindPersistence:
		return "Persistence"
	case KindRateLimited:
		return "RateLimited"
	}
	return "Unknown"
}

const (
	msgAllFieldsRequired   = "All fields are required"
	msgLoginFieldsRequired = "Email and password are required"
	msgPasswordsDoNotMatch = "Passwords do not match"
	msgInvalidEmailFormat  = "Invalid email format"
	msgPasswordTooLong     = "Password must be at most 72 bytes long"
	msgEmailInUse          = "Email already in use"
	msgInvalidCredentials  = "Invalid email or password"
	msgCreateUserFailed    = "Failed to create user. Please try again."
	msgSomethingWentWrong  = "Something went wrong. Please try again."
	msgTooManyAttempts     = "Too many attempts. Please try again later."
)

// AuthError is what a login or registration form shows inline. Message is
// always safe to display; Err keeps the underlying cause for logs.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func newAuthError(kind AuthErrorKind, msg string) *AuthError {
	return &AuthError{Kind: kind, Message: msg}
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is lets callers match an AuthError against the common sentinels, so
// common.HTTPStatusFromError works on it unchanged.
func (e *AuthError) Is(target error) bool {
	return e.Category() == target
}

// Category returns the sentinel for the error family Kind belongs to.
func (e *AuthError) Category() error {
	switch e.Kind {
	case KindMissingFields, KindPasswordMismatch, KindInvalidEmailFormat, KindPasswordTooLong:
		return common.ErrValidation
	case KindInvalidCredentials:
		return common.ErrUnauthorized
	case KindEmailInUse:
		return common.ErrConflict
	case KindRateLimited:
		return common.ErrTooManyRequests
	}
	return common.ErrInternalServer
}

// ErrRateLimited is reported by the throttling middleware in place of a
// login or registration result.
var ErrRateLimited = newAuthError(KindRateLimited, msgTooManyAttempts)
