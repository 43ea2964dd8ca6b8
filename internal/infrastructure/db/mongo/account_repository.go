package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

type accountDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	IsDeleted bool               `bson:"is_deleted"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type credentialDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID      primitive.ObjectID `bson:"owner_id"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// emailClaimDoc reserves an email across both roles. The _id index makes the
// reservation unique.
type emailClaimDoc struct {
	Email   string             `bson:"_id"`
	Role    string             `bson:"role"`
	OwnerID primitive.ObjectID `bson:"owner_id"`
}

func (d accountDoc) toDomain(role domain.Role) *domain.Account {
	return &domain.Account{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Role:      role,
		IsDeleted: d.IsDeleted,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (d credentialDoc) toDomain(role domain.Role) *domain.Credential {
	return &domain.Credential{
		ID:           d.ID.Hex(),
		OwnerID:      d.OwnerID.Hex(),
		Role:         role,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func accountCollection(role domain.Role) (string, error) {
	switch role {
	case domain.RoleAdmin:
		return collectionAdmins, nil
	case domain.RoleCustomer:
		return collectionCustomers, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
}

func credentialCollection(role domain.Role) (string, error) {
	switch role {
	case domain.RoleAdmin:
		return collectionAdminCredentials, nil
	case domain.RoleCustomer:
		return collectionCustomerCredentials, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
}

// claimKey matches FindActiveByEmail: emails are compared exactly as stored.
func claimKey(email string) string {
	return strings.TrimSpace(email)
}

// AccountRepository implements ports.AccountRepository and
// ports.CredentialRepository over per-role collections.
type AccountRepository struct {
	db *mongo.Database
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) accounts(role domain.Role) (*mongo.Collection, error) {
	name, err := accountCollection(role)
	if err != nil {
		return nil, err
	}
	return r.db.Collection(name), nil
}

func (r *AccountRepository) credentials(role domain.Role) (*mongo.Collection, error) {
	name, err := credentialCollection(role)
	if err != nil {
		return nil, err
	}
	return r.db.Collection(name), nil
}

// FindActiveByEmail returns the live account with the given email in the role's store.
func (r *AccountRepository) FindActiveByEmail(ctx context.Context, role domain.Role, email string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	col, err := r.accounts(role)
	if err != nil {
		return nil, err
	}

	var doc accountDoc
	err = col.FindOne(ctx, bson.M{"email": email, "is_deleted": false}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find %s by email: %w", role, err)
	}
	return doc.toDomain(role), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, role domain.Role, id string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	col, err := r.accounts(role)
	if err != nil {
		return nil, err
	}

	var doc accountDoc
	if err := col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find %s by id: %w", role, err)
	}
	return doc.toDomain(role), nil
}

// CreateWithCredential inserts the account, its credential and the email
// claim in a single transaction. A claim held by a live account yields
// domain.ErrAccountExists and nothing is written.
func (r *AccountRepository) CreateWithCredential(ctx context.Context, a *domain.Account, passwordHash string) (*domain.Account, *domain.Credential, error) {
	accounts, err := r.accounts(a.Role)
	if err != nil {
		return nil, nil, err
	}
	credentials, err := r.credentials(a.Role)
	if err != nil {
		return nil, nil, err
	}
	claims := r.db.Collection(collectionAccountEmails)

	session, err := r.db.Client().StartSession()
	if err != nil {
		return nil, nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	acc := accountDoc{
		ID:        primitive.NewObjectID(),
		Name:      a.Name,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	cred := credentialDoc{
		ID:           primitive.NewObjectID(),
		OwnerID:      acc.ID,
		PasswordHash: passwordHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	claim := emailClaimDoc{Email: claimKey(a.Email), Role: a.Role.String(), OwnerID: acc.ID}

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, r.insertWithClaim(sc, signupWrite{
			claims:      claims,
			accounts:    accounts,
			credentials: credentials,
			claim:       claim,
			account:     acc,
			credential:  cred,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("create %s: %w", a.Role, err)
	}

	return acc.toDomain(a.Role), cred.toDomain(a.Role), nil
}

// signupWrite is the set of documents one signup transaction writes.
type signupWrite struct {
	claims      *mongo.Collection
	accounts    *mongo.Collection
	credentials *mongo.Collection
	claim       emailClaimDoc
	account     accountDoc
	credential  credentialDoc
}

// insertWithClaim is the body of the signup transaction. The claim is taken
// first so a taken email writes nothing.
func (r *AccountRepository) insertWithClaim(ctx context.Context, w signupWrite) error {
	if err := r.takeClaim(ctx, w.claims, w.claim); err != nil {
		return err
	}
	if _, err := w.accounts.InsertOne(ctx, w.account); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if _, err := w.credentials.InsertOne(ctx, w.credential); err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// takeClaim reserves the email. A claim whose owner is gone or soft deleted
// is taken over.
func (r *AccountRepository) takeClaim(ctx context.Context, claims *mongo.Collection, claim emailClaimDoc) error {
	var existing emailClaimDoc
	err := claims.FindOne(ctx, bson.M{"_id": claim.Email}).Decode(&existing)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		if _, err := claims.InsertOne(ctx, claim); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrAccountExists
			}
			return fmt.Errorf("insert email claim: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load email claim: %w", err)
	}

	live, err := r.ownerIsLive(ctx, existing)
	if err != nil {
		return err
	}
	if live {
		return domain.ErrAccountExists
	}

	_, err = claims.ReplaceOne(ctx, bson.M{"_id": claim.Email}, claim, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace email claim: %w", err)
	}
	return nil
}

func (r *AccountRepository) ownerIsLive(ctx context.Context, claim emailClaimDoc) (bool, error) {
	role, err := domain.ParseRole(claim.Role)
	if err != nil {
		return false, nil
	}
	col, err := r.accounts(role)
	if err != nil {
		return false, err
	}
	n, err := col.CountDocuments(ctx, bson.M{"_id": claim.OwnerID, "is_deleted": false})
	if err != nil {
		return false, fmt.Errorf("check claim owner: %w", err)
	}
	return n > 0, nil
}

// FindByOwner returns the credential attached to an account.
func (r *AccountRepository) FindByOwner(ctx context.Context, role domain.Role, ownerID string) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, domain.ErrCredentialMissing
	}
	col, err := r.credentials(role)
	if err != nil {
		return nil, err
	}

	var doc credentialDoc
	if err := col.FindOne(ctx, bson.M{"owner_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCredentialMissing
		}
		return nil, fmt.Errorf("find %s credential: %w", role, err)
	}
	return doc.toDomain(role), nil
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, role domain.Role, ownerID, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return domain.ErrCredentialMissing
	}
	col, err := r.credentials(role)
	if err != nil {
		return err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"owner_id": oid},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("update %s credential: %w", role, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCredentialMissing
	}
	return nil
}
