package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

const resetKeyPrefix = "auth:reset:"

type resetClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

type resetTokenValue struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

// ResetTokenStore keeps password reset tokens keyed by their hash.
type ResetTokenStore struct {
	client resetClient
}

func NewResetTokenStore(client *redis.Client) *ResetTokenStore {
	return &ResetTokenStore{client: client}
}

func (s *ResetTokenStore) Save(ctx context.Context, t *domain.ResetToken, ttl time.Duration) error {
	raw, err := json.Marshal(resetTokenValue{
		AccountID: t.AccountID,
		Role:      t.Role.String(),
		ExpiresAt: t.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode reset token: %w", err)
	}
	if err := s.client.Set(ctx, resetKeyPrefix+t.TokenHash, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	return nil
}

// Consume reads and deletes the token with GETDEL so it can be used once.
func (s *ResetTokenStore) Consume(ctx context.Context, tokenHash string) (*domain.ResetToken, error) {
	raw, err := s.client.GetDel(ctx, resetKeyPrefix+tokenHash).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrInvalidResetToken
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}

	var v resetTokenValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode reset token: %w", err)
	}
	role, err := domain.ParseRole(v.Role)
	if err != nil {
		return nil, fmt.Errorf("decode reset token: %w", err)
	}
	return &domain.ResetToken{
		TokenHash: tokenHash,
		AccountID: v.AccountID,
		Role:      role,
		ExpiresAt: time.Unix(v.ExpiresAt, 0).UTC(),
	}, nil
}
