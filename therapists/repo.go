package therapists

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

const profilesCollectionName = "therapist_profiles"

type Repository interface {
	Service
}

func NewService(repo Repository) (Service, error) {
	return repo, nil
}

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		collection: db.Collection(profilesCollectionName),
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.Initialize(ctx)
		},
	})

	return repo, nil
}

type repository struct {
	collection *mongo.Collection
}

func (r *repository) Initialize(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("UniqueTherapistProfile"),
		},
		{
			Keys: bson.D{
				{Key: "calendlyUserUri", Value: 1},
			},
			Options: options.Index().
				SetName("ProfileByCalendlyUser"),
		},
	})
	return err
}

func (r *repository) GetByUserId(ctx context.Context, userId primitive.ObjectID) (*Profile, error) {
	profile := &Profile{}
	err := r.collection.FindOne(ctx, bson.M{"user": userId}).Decode(profile)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error fetching therapist profile: %w", err)
	}

	return profile, nil
}

func (r *repository) GetByCalendlyUserUri(ctx context.Context, userUri string) (*Profile, error) {
	profile := &Profile{}
	err := r.collection.FindOne(ctx, bson.M{"calendlyUserUri": userUri}).Decode(profile)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error fetching therapist profile: %w", err)
	}

	return profile, nil
}

func (r *repository) SetCalendlyConnection(ctx context.Context, userId primitive.ObjectID, connection Connection) (*Profile, error) {
	now := time.Now()
	connected := connection.UserUri != "" || connection.OrganizationUri != "" || connection.SchedulingUrl != ""

	set := bson.M{
		"calendlyConnected":       connected,
		"calendlyUserUri":         connection.UserUri,
		"calendlyOrganizationUri": connection.OrganizationUri,
		"calendlyUrl":             connection.SchedulingUrl,
		"calendlyAccessToken":     connection.AccessToken,
		"calendlyRefreshToken":    connection.RefreshToken,
		"calendlyTokenExpiresAt":  connection.TokenExpiresAt,
		"updatedAt":               now,
	}
	if connected {
		set["calendlyConnectedAt"] = now
	} else {
		set["calendlyConnectedAt"] = nil
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"user":      userId,
			"createdAt": now,
		},
	}

	res := r.collection.FindOneAndUpdate(ctx, bson.M{"user": userId}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After))

	profile := &Profile{}
	if err := res.Decode(profile); err != nil {
		return nil, fmt.Errorf("error persisting calendly connection: %w", err)
	}

	return profile, nil
}

func (r *repository) UpdateCalendlyTokens(ctx context.Context, userId primitive.ObjectID, tokens Tokens) error {
	update := bson.M{
		"$set": bson.M{
			"calendlyAccessToken":    tokens.AccessToken,
			"calendlyRefreshToken":   tokens.RefreshToken,
			"calendlyTokenExpiresAt": tokens.ExpiresAt,
			"updatedAt":              time.Now(),
		},
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"user": userId}, update)
	if err != nil {
		return fmt.Errorf("error updating calendly tokens: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCalendlyAuth removes credentials after a revoked grant but keeps the
// identity URIs so status can report reconnect-required.
func (r *repository) ClearCalendlyAuth(ctx context.Context, userId primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"calendlyConnected":      false,
			"calendlyAccessToken":    "",
			"calendlyRefreshToken":   "",
			"calendlyTokenExpiresAt": nil,
			"updatedAt":              time.Now(),
		},
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"user": userId}, update)
	if err != nil {
		return fmt.Errorf("error clearing calendly auth: %w", err)
	}
	return nil
}

func (r *repository) DisconnectCalendly(ctx context.Context, userId primitive.ObjectID) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"calendlyConnected":       false,
			"calendlyUserUri":         "",
			"calendlyOrganizationUri": "",
			"calendlyUrl":             "",
			"calendlyConnectedAt":     nil,
			"calendlyAccessToken":     "",
			"calendlyRefreshToken":    "",
			"calendlyTokenExpiresAt":  nil,
			"updatedAt":               now,
		},
		"$setOnInsert": bson.M{
			"user":      userId,
			"createdAt": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"user": userId}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error disconnecting calendly: %w", err)
	}
	return nil
}
