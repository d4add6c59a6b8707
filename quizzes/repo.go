package quizzes

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const quizzesCollectionName = "quizzes"

type Repository interface {
	Service
}

func NewService(repo Repository) (Service, error) {
	return repo, nil
}

func NewRepository(db *mongo.Database) (Repository, error) {
	return &repository{
		collection: db.Collection(quizzesCollectionName),
	}, nil
}

type repository struct {
	collection *mongo.Collection
}

func (r *repository) Get(ctx context.Context, id primitive.ObjectID) (*Quiz, error) {
	quiz := &Quiz{}
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(quiz)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error fetching quiz: %w", err)
	}

	return quiz, nil
}

func (r *repository) ListActive(ctx context.Context) ([]*Quiz, error) {
	selector := bson.M{"isActive": bson.M{"$ne": false}}
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}})

	cursor, err := r.collection.Find(ctx, selector, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing quizzes: %w", err)
	}

	var quizzes []*Quiz
	if err = cursor.All(ctx, &quizzes); err != nil {
		return nil, fmt.Errorf("error decoding quizzes: %w", err)
	}

	return quizzes, nil
}
