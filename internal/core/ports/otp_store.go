package ports

import (
	"context"
	"time"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

// OTPStore keeps pending OTP challenges keyed by reference.
type OTPStore interface {
	Save(ctx context.Context, challenge *domain.OTPChallenge, ttl time.Duration) error
	// Get returns domain.ErrChallengeNotFound for unknown or expired references.
	Get(ctx context.Context, reference string) (*domain.OTPChallenge, error)
	// RecordFailedAttempt increments and returns the attempt counter.
	RecordFailedAttempt(ctx context.Context, reference string) (int, error)
	// Consume deletes the challenge and reports whether this call removed it.
	Consume(ctx context.Context, reference string) (bool, error)
}

// ResetTokenStore keeps single-use password reset tokens keyed by hash.
type ResetTokenStore interface {
	Save(ctx context.Context, token *domain.ResetToken, ttl time.Duration) error
	// Consume atomically fetches and deletes the token. Unknown or expired
	// hashes yield domain.ErrInvalidResetToken.
	Consume(ctx context.Context, tokenHash string) (*domain.ResetToken, error)
}

// RateLimiter throttles a keyed action. Implementations fail open.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// Notifier delivers a message to an account holder out of band.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
