package mongo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

func newSignupWrite(db *mongo.Database, email string) signupWrite {
	accID := primitive.NewObjectID()
	return signupWrite{
		claims:      db.Collection(collectionAccountEmails),
		accounts:    db.Collection(collectionCustomers),
		credentials: db.Collection(collectionCustomerCredentials),
		claim:       emailClaimDoc{Email: claimKey(email), Role: domain.RoleCustomer.String(), OwnerID: accID},
		account:     accountDoc{ID: accID, Name: "Bo", Email: email},
		credential:  credentialDoc{ID: primitive.NewObjectID(), OwnerID: accID, PasswordHash: "h"},
	}
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}

func claimCursor(mt *mtest.T, role domain.Role, owner primitive.ObjectID) bson.D {
	return mtest.CreateCursorResponse(0, mt.DB.Name()+"."+collectionAccountEmails, mtest.FirstBatch, bson.D{
		{Key: "_id", Value: "bo@x.com"},
		{Key: "role", Value: role.String()},
		{Key: "owner_id", Value: owner},
	})
}

func TestAccountRepository_InsertWithClaim(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("free email writes claim account and credential", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mt.DB.Name()+"."+collectionAccountEmails, mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		err := repo.insertWithClaim(context.Background(), newSignupWrite(mt.DB, "bo@x.com"))
		require.NoError(mt, err)
		assert.Equal(mt, []string{"find", "insert", "insert", "insert"}, commandNames(mt))
	})

	mt.Run("claim held by live account writes nothing", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(
			claimCursor(mt, domain.RoleAdmin, primitive.NewObjectID()),
			mtest.CreateCursorResponse(0, mt.DB.Name()+"."+collectionAdmins, mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		err := repo.insertWithClaim(context.Background(), newSignupWrite(mt.DB, "bo@x.com"))
		assert.True(mt, errors.Is(err, domain.ErrAccountExists), "got %v", err)
		assert.Equal(mt, []string{"find", "aggregate"}, commandNames(mt))
	})

	mt.Run("claim of deleted account is taken over", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(
			claimCursor(mt, domain.RoleAdmin, primitive.NewObjectID()),
			mtest.CreateCursorResponse(0, mt.DB.Name()+"."+collectionAdmins, mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		err := repo.insertWithClaim(context.Background(), newSignupWrite(mt.DB, "bo@x.com"))
		require.NoError(mt, err)
		assert.Equal(mt, []string{"find", "aggregate", "update", "insert", "insert"}, commandNames(mt))
	})

	mt.Run("concurrent claim insert maps to duplicate", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mt.DB.Name()+"."+collectionAccountEmails, mtest.FirstBatch),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
		)

		err := repo.insertWithClaim(context.Background(), newSignupWrite(mt.DB, "bo@x.com"))
		assert.True(mt, errors.Is(err, domain.ErrAccountExists), "got %v", err)
		assert.Equal(mt, []string{"find", "insert"}, commandNames(mt))
	})

	mt.Run("credential failure aborts the transaction body", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mt.DB.Name()+"."+collectionAccountEmails, mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}),
		)

		err := repo.insertWithClaim(context.Background(), newSignupWrite(mt.DB, "bo@x.com"))
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "insert credential")
		assert.False(mt, errors.Is(err, domain.ErrAccountExists))
	})

	mt.Run("claims compare email case as stored", func(mt *mtest.T) {
		w := newSignupWrite(mt.DB, "bob@x.com")
		assert.Equal(mt, "bob@x.com", w.claim.Email)
		assert.NotEqual(mt, claimKey("Bob@x.com"), w.claim.Email)
	})
}
