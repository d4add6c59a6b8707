package users

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"

	"github.com/solace-health/therapy/errors"
)

const usersCollectionName = "users"

type Repository interface {
	Service
}

func NewService(repo Repository) (Service, error) {
	return repo, nil
}

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		collection: db.Collection(usersCollectionName),
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
				{Key: "email", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("UniqueEmail"),
		},
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "assignedTherapist", Value: 1},
			},
			Options: options.Index().
				SetName("ClientsByTherapist"),
		},
	})
	return err
}

func (r *repository) Get(ctx context.Context, id primitive.ObjectID) (*User, error) {
	user := &User{}
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	return user, nil
}

func (r *repository) ListClients(ctx context.Context, filter *ClientFilter) ([]*User, error) {
	selector := bson.M{
		"role":              RoleUser,
		"assignedTherapist": filter.TherapistId,
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(*filter.Search), Options: "i"}
		selector["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"email": pattern},
		}
	}
	if filter.HasOnboarded != nil {
		selector["hasOnboarded"] = *filter.HasOnboarded
	}

	cursor, err := r.collection.Find(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("error listing clients: %w", err)
	}

	var clients []*User
	if err = cursor.All(ctx, &clients); err != nil {
		return nil, fmt.Errorf("error decoding clients: %w", err)
	}

	return clients, nil
}

func (r *repository) AssignTherapist(ctx context.Context, userId, therapistId primitive.ObjectID) (*User, error) {
	therapist, err := r.Get(ctx, therapistId)
	if err != nil {
		return nil, err
	}
	if therapist.Role != RoleTherapist {
		return nil, errors.Badf("user %s is not a therapist", therapistId.Hex())
	}

	selector := bson.M{"_id": userId, "role": RoleUser}
	update := bson.M{"$set": bson.M{"assignedTherapist": therapistId}}
	res := r.collection.FindOneAndUpdate(ctx, selector, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	user := &User{}
	if err := res.Decode(user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error assigning therapist: %w", err)
	}

	return user, nil
}

func (r *repository) GrantQuizAccess(ctx context.Context, userId, quizId primitive.ObjectID) error {
	// $addToSet makes repeated grants idempotent.
	update := bson.M{"$addToSet": bson.M{"accessibleQuizzes": quizId}}
	res, err := r.collection.UpdateByID(ctx, userId, update)
	if err != nil {
		return fmt.Errorf("error granting quiz access: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
