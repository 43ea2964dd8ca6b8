package ports

import (
	"context"
	"time"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

// SignupInput is the payload of POST /auth/sign-up.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// SignupResult is returned for both created and already-existing accounts.
// Duplicates are a result, not an error.
type SignupResult struct {
	StatusCode int
	Message    string
	Account    *domain.Account
	Credential *domain.Credential
}

// OTPChallengeResult is the login response. OTP is zero when the code was
// delivered out of band.
type OTPChallengeResult struct {
	OTP          int
	OTPReference string
	ExpiresAt    time.Time
}

// VerificationResult is produced by a successful OTP verification.
type VerificationResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	Account     *domain.Account
}

// ResetPasswordInput is the payload of POST /reset-password.
type ResetPasswordInput struct {
	Token           string
	Password        string
	ConfirmPassword string
}

// MessageResult is a status/message pair for flows with no data.
type MessageResult struct {
	StatusCode int
	Message    string
}

// AuthService drives the account lifecycle.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*SignupResult, error)
	Login(ctx context.Context, email, password string) (*OTPChallengeResult, error)
	VerifyOTP(ctx context.Context, otp int, reference string) (*VerificationResult, error)
	ForgotPassword(ctx context.Context, email string) (*MessageResult, error)
	ResetPassword(ctx context.Context, in ResetPasswordInput) (*MessageResult, error)
}
