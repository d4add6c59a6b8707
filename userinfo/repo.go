package userinfo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

const collectionName = "user_infos"

type Repository interface {
	Service
}

func NewService(repo Repository) (Service, error) {
	return repo, nil
}

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		collection: db.Collection(collectionName),
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
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user", Value: 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetName("UniqueUserInfo"),
	})
	return err
}

func (r *repository) GetByUserId(ctx context.Context, userId primitive.ObjectID) (*Preferences, error) {
	prefs := &Preferences{}
	err := r.collection.FindOne(ctx, bson.M{"user": userId}).Decode(prefs)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}

	return prefs, nil
}

func (r *repository) Upsert(ctx context.Context, preferences Preferences) (*Preferences, error) {
	selector := bson.M{"user": preferences.UserId}
	update := bson.M{
		"$set": bson.M{
			"primaryConcern":    preferences.PrimaryConcern,
			"languagePref":      preferences.LanguagePref,
			"sessionMode":       preferences.SessionMode,
			"availabilityPrefs": preferences.AvailabilityPrefs,
			"reminderChannel":   preferences.ReminderChannel,
		},
		"$setOnInsert": bson.M{
			"user": preferences.UserId,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	updated := &Preferences{}
	if err := r.collection.FindOneAndUpdate(ctx, selector, update, opts).Decode(updated); err != nil {
		return nil, fmt.Errorf("error updating user info: %w", err)
	}

	return updated, nil
}
