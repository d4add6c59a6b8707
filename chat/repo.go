package chat

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"

	"github.com/solace-health/therapy/store"
)

const collectionName = "therapy_conversations"

type Repository interface {
	// GetOrCreate returns the pair's conversation, creating an empty one on
	// first contact. Concurrent first contacts converge on one document.
	GetOrCreate(ctx context.Context, userId, therapistId primitive.ObjectID) (*Conversation, error)
	// AppendMessage pushes onto the history, evicting the oldest messages
	// beyond the cap.
	AppendMessage(ctx context.Context, userId, therapistId primitive.ObjectID, message Message) error
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
			{Key: "therapist", Value: 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetName("UniqueConversation"),
	})
	return err
}

func (r *repository) GetOrCreate(ctx context.Context, userId, therapistId primitive.ObjectID) (*Conversation, error) {
	selector := bson.M{
		"user":      userId,
		"therapist": therapistId,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"user":      userId,
			"therapist": therapistId,
			"messages":  []Message{},
			"createdAt": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	conversation := &Conversation{}
	err := r.collection.FindOneAndUpdate(ctx, selector, update, opts).Decode(conversation)
	if store.IsDuplicateKeyError(err) {
		// Lost the upsert race; the winner's document is now readable.
		err = r.collection.FindOne(ctx, selector).Decode(conversation)
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching conversation: %w", err)
	}

	return conversation, nil
}

func (r *repository) AppendMessage(ctx context.Context, userId, therapistId primitive.ObjectID, message Message) error {
	selector := bson.M{
		"user":      userId,
		"therapist": therapistId,
	}
	update := bson.M{
		"$push": bson.M{
			"messages": bson.M{
				"$each":  []Message{message},
				"$slice": -MaxMessages,
			},
		},
		"$set": bson.M{
			"updatedAt": message.SentAt,
		},
		"$setOnInsert": bson.M{
			"user":      userId,
			"therapist": therapistId,
			"createdAt": message.SentAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, selector, update, options.Update().SetUpsert(true))
	if store.IsDuplicateKeyError(err) {
		_, err = r.collection.UpdateOne(ctx, selector, update)
	}
	if err != nil {
		return fmt.Errorf("error appending message: %w", err)
	}

	return nil
}
