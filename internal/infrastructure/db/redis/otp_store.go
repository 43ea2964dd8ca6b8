package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

const otpKeyPrefix = "otp:challenge:"

// saveChallengeScript replaces the hash and sets its TTL in one step.
// ARGV[1] is the TTL in milliseconds, the rest are field/value pairs.
const saveChallengeScript = `
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
redis.call("PEXPIRE", KEYS[1], ARGV[1])
return 1
`

// failedAttemptScript only counts attempts on a live challenge.
const failedAttemptScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`

type otpClient interface {
	evaler
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// OTPStore keeps OTP challenges as Redis hashes that expire on their own.
type OTPStore struct {
	client otpClient
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

func otpKey(reference string) string {
	return otpKeyPrefix + reference
}

func (s *OTPStore) Save(ctx context.Context, c *domain.OTPChallenge, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("save otp challenge: non-positive ttl %s", ttl)
	}
	args := []interface{}{
		ttl.Milliseconds(),
		"code_hash", c.CodeHash,
		"account_id", c.AccountID,
		"role", c.Role.String(),
		"email", c.Email,
		"attempts", c.Attempts,
		"expires_at", c.ExpiresAt.UnixMilli(),
	}
	if err := s.client.Eval(ctx, saveChallengeScript, []string{otpKey(c.Reference)}, args...).Err(); err != nil {
		return fmt.Errorf("save otp challenge: %w", err)
	}
	return nil
}

func (s *OTPStore) Get(ctx context.Context, reference string) (*domain.OTPChallenge, error) {
	fields, err := s.client.HGetAll(ctx, otpKey(reference)).Result()
	if err != nil {
		return nil, fmt.Errorf("load otp challenge: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrChallengeNotFound
	}
	return decodeChallenge(reference, fields)
}

func decodeChallenge(reference string, fields map[string]string) (*domain.OTPChallenge, error) {
	role, err := domain.ParseRole(fields["role"])
	if err != nil {
		return nil, fmt.Errorf("decode otp challenge: %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("decode otp challenge attempts: %w", err)
	}
	expiresMs, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode otp challenge expiry: %w", err)
	}
	return &domain.OTPChallenge{
		Reference: reference,
		CodeHash:  fields["code_hash"],
		AccountID: fields["account_id"],
		Role:      role,
		Email:     fields["email"],
		Attempts:  attempts,
		ExpiresAt: time.UnixMilli(expiresMs).UTC(),
	}, nil
}

func (s *OTPStore) RecordFailedAttempt(ctx context.Context, reference string) (int, error) {
	n, err := s.client.Eval(ctx, failedAttemptScript, []string{otpKey(reference)}).Int()
	if err != nil {
		return 0, fmt.Errorf("record otp attempt: %w", err)
	}
	if n < 0 {
		return 0, domain.ErrChallengeNotFound
	}
	return n, nil
}

// Consume deletes the challenge. Only the caller whose DEL removed the key
// gets true.
func (s *OTPStore) Consume(ctx context.Context, reference string) (bool, error) {
	n, err := s.client.Del(ctx, otpKey(reference)).Result()
	if err != nil {
		return false, fmt.Errorf("consume otp challenge: %w", err)
	}
	return n == 1, nil
}
