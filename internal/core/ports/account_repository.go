package ports

import (
	"context"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

// AccountRepository persists per-role accounts.
type AccountRepository interface {
	// FindActiveByEmail returns the non-deleted account of the given role with
	// this email, or domain.ErrAccountNotFound.
	FindActiveByEmail(ctx context.Context, role domain.Role, email string) (*domain.Account, error)
	FindByID(ctx context.Context, role domain.Role, id string) (*domain.Account, error)
	// CreateWithCredential stores the account, its credential and the
	// cross-role email claim atomically. A taken email yields
	// domain.ErrAccountExists and nothing is written.
	CreateWithCredential(ctx context.Context, account *domain.Account, passwordHash string) (*domain.Account, *domain.Credential, error)
}

// CredentialRepository reads and rotates password hashes.
type CredentialRepository interface {
	FindByOwner(ctx context.Context, role domain.Role, ownerID string) (*domain.Credential, error)
	UpdatePasswordHash(ctx context.Context, role domain.Role, ownerID, passwordHash string) error
}
