package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/creatorpulse/creatorpulse/domain"
	cperrors "github.com/creatorpulse/creatorpulse/errors"
	"github.com/creatorpulse/creatorpulse/internal/crypto"
)

// credentialDoc is the persisted shape. Token fields hold SecretBox
// ciphertext, never plaintext.
type credentialDoc struct {
	ID           string    `bson:"_id"`
	UserID       string    `bson:"user_id"`
	Platform     string    `bson:"platform"`
	AccessToken  string    `bson:"access_token"`
	RefreshToken string    `bson:"refresh_token,omitempty"`
	ExpiresAt    time.Time `bson:"expires_at,omitempty"`
	Scope        string    `bson:"scope,omitempty"`
	TokenType    string    `bson:"token_type,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type CredentialRepository struct {
	coll *mongo.Collection
	box  *crypto.SecretBox
}

// NewCredentialRepository creates the repository and ensures the unique
// (user_id, platform) index that backs the one-record-per-pair invariant.
func NewCredentialRepository(ctx context.Context, db *mongo.Database, box *crypto.SecretBox) (*CredentialRepository, error) {
	coll := db.Collection(CredentialsCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "platform", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, cperrors.NewStorageError("failed to create credential index", err)
	}

	return &CredentialRepository{coll: coll, box: box}, nil
}

// Upsert writes the credential for its (user, platform) pair, encrypting
// both tokens. The write replaces any existing record for the pair.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *domain.Credential) error {
	accessEnc, err := r.box.Seal(cred.AccessToken)
	if err != nil {
		return cperrors.NewStorageError("failed to encrypt access token", err)
	}

	var refreshEnc string
	if cred.RefreshToken != "" {
		refreshEnc, err = r.box.Seal(cred.RefreshToken)
		if err != nil {
			return cperrors.NewStorageError("failed to encrypt refresh token", err)
		}
	}

	now := time.Now().UTC()
	filter := bson.M{"user_id": cred.UserID, "platform": cred.Platform}
	update := bson.M{
		"$set": bson.M{
			"access_token":  accessEnc,
			"refresh_token": refreshEnc,
			"expires_at":    cred.ExpiresAt,
			"scope":         cred.Scope,
			"token_type":    cred.TokenType,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_at": now,
		},
	}

	if _, err := r.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return cperrors.NewStorageError("failed to upsert credential", err)
	}
	cred.UpdatedAt = now
	return nil
}

// Get returns the decrypted credential, or (nil, nil) when none is stored.
// A payload that fails decryption comes back as a validation error so the
// lifecycle manager can evict the record.
func (r *CredentialRepository) Get(ctx context.Context, userID, platform string) (*domain.Credential, error) {
	var doc credentialDoc
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID, "platform": platform}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, cperrors.NewStorageError("failed to read credential", err)
	}

	accessToken, err := r.box.Open(doc.AccessToken)
	if err != nil {
		return nil, cperrors.NewValidationError("stored access token is unreadable", err)
	}

	var refreshToken string
	if doc.RefreshToken != "" {
		refreshToken, err = r.box.Open(doc.RefreshToken)
		if err != nil {
			return nil, cperrors.NewValidationError("stored refresh token is unreadable", err)
		}
	}

	return &domain.Credential{
		ID:           doc.ID,
		UserID:       doc.UserID,
		Platform:     doc.Platform,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    doc.ExpiresAt,
		Scope:        doc.Scope,
		TokenType:    doc.TokenType,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

// Delete removes the credential. Deleting an absent record is not an error.
func (r *CredentialRepository) Delete(ctx context.Context, userID, platform string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID, "platform": platform})
	if err != nil {
		return cperrors.NewStorageError("failed to delete credential", err)
	}
	if result.DeletedCount > 0 {
		log.Debug().Str("user_id", userID).Str("platform", platform).Msg("Credential deleted")
	}
	return nil
}

// ListRefs enumerates stored records without touching the encrypted fields.
func (r *CredentialRepository) ListRefs(ctx context.Context) ([]domain.CredentialRef, error) {
	opts := options.Find().SetProjection(bson.M{"user_id": 1, "platform": 1, "expires_at": 1})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, cperrors.NewStorageError("failed to list credentials", err)
	}
	defer cursor.Close(ctx)

	var refs []domain.CredentialRef
	if err := cursor.All(ctx, &refs); err != nil {
		return nil, cperrors.NewStorageError("failed to decode credential refs", err)
	}
	return refs, nil
}
