package mongostore

import (
	"context"
	"errors"
	"time"

	"skill-registry/internal/domain/user"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type userDocument struct {
	ID               string    `bson:"_id"`
	Email            string    `bson:"email"`
	PasswordHash     string    `bson:"password_hash"`
	AccessLevelID    *string   `bson:"access_level_id"`
	ExternalPeopleID *int64    `bson:"external_people_id,omitempty"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func (d userDocument) toDomain() user.User {
	return user.User{
		ID:               parseID(d.ID),
		Email:            d.Email,
		PasswordHash:     d.PasswordHash,
		AccessLevelID:    parseOptionalID(d.AccessLevelID),
		ExternalPeopleID: d.ExternalPeopleID,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type UserRepository struct {
	col *mongo.Collection
}

func (r *UserRepository) CreateUser(ctx context.Context, u user.User) error {
	ts := now()
	doc := userDocument{
		ID:               u.ID.String(),
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		AccessLevelID:    optionalIDString(u.AccessLevelID),
		ExternalPeopleID: u.ExternalPeopleID,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailDuplicate
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return r.getOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return exists(ctx, r.col, bson.D{{Key: "email", Value: email}})
}

func (r *UserRepository) SetAccessLevel(ctx context.Context, id uuid.UUID, accessLevelID *uuid.UUID) error {
	res, err := r.col.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id.String()}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "access_level_id", Value: optionalIDString(accessLevelID)},
			{Key: "updated_at", Value: now()},
		}}},
	)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ClearAccessLevel(ctx context.Context, accessLevelID uuid.UUID) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.D{{Key: "access_level_id", Value: accessLevelID.String()}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "access_level_id", Value: nil},
			{Key: "updated_at", Value: now()},
		}}},
	)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.ModifiedCount, nil
}

func (r *UserRepository) getOne(ctx context.Context, filter bson.D) (user.User, error) {
	doc, err := findOne[userDocument](ctx, r.col, filter)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return doc.toDomain(), nil
}
