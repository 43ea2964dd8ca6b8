package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every concrete error below wraps exactly one of these so the
// transport layer can map by class with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("too many requests")
)

var (
	ErrUnknownRole       = fmt.Errorf("%w: unknown role", ErrValidation)
	ErrPasswordMismatch  = fmt.Errorf("%w: password and confirmation do not match", ErrValidation)
	ErrMissingOTPInput   = fmt.Errorf("%w: otp and otp reference are required", ErrValidation)
	ErrAccountExists     = fmt.Errorf("%w: account already exists", ErrConflict)
	ErrAccountNotFound   = fmt.Errorf("%w: account not found", ErrNotFound)
	ErrCredentialMissing = fmt.Errorf("%w: credential not found", ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("%w: product not found", ErrNotFound)
	ErrCategoryNotFound  = fmt.Errorf("%w: category not found", ErrNotFound)
	ErrChallengeNotFound = fmt.Errorf("%w: otp challenge not found", ErrNotFound)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)
	ErrInvalidOTP         = fmt.Errorf("%w: invalid or expired otp", ErrAuthentication)
	ErrInvalidResetToken  = fmt.Errorf("%w: invalid or expired reset token", ErrAuthentication)
)
