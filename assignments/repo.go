package assignments

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

const assignmentsCollectionName = "therapist_quiz_assignments"

type Repository interface {
	Create(ctx context.Context, assignment Assignment) (*Assignment, error)
	Get(ctx context.Context, therapistId, clientId, assignmentId primitive.ObjectID) (*Assignment, error)
	List(ctx context.Context, therapistId primitive.ObjectID, clientIds []primitive.ObjectID) ([]*Assignment, error)
	Revoke(ctx context.Context, assignmentId primitive.ObjectID, revokedAt time.Time) (*Assignment, error)
	SetDueAt(ctx context.Context, assignmentId primitive.ObjectID, dueAt *time.Time) (*Assignment, error)
	TransitionByQuiz(ctx context.Context, userId, quizId primitive.ObjectID, from, to string, at time.Time) error
}

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		collection: db.Collection(assignmentsCollectionName),
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
				{Key: "therapist", Value: 1},
				{Key: "user", Value: 1},
				{Key: "assignedAt", Value: -1},
			},
			Options: options.Index().
				SetName("AssignmentsByTherapistClient"),
		},
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "quiz", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().
				SetName("AssignmentsByClientQuiz"),
		},
	})
	return err
}

func (r *repository) Create(ctx context.Context, assignment Assignment) (*Assignment, error) {
	res, err := r.collection.InsertOne(ctx, assignment)
	if err != nil {
		return nil, fmt.Errorf("error creating assignment: %w", err)
	}

	id := res.InsertedID.(primitive.ObjectID)
	return r.getById(ctx, id)
}

func (r *repository) getById(ctx context.Context, id primitive.ObjectID) (*Assignment, error) {
	assignment := &Assignment{}
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(assignment)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error fetching assignment: %w", err)
	}

	return assignment, nil
}

func (r *repository) Get(ctx context.Context, therapistId, clientId, assignmentId primitive.ObjectID) (*Assignment, error) {
	selector := bson.M{
		"_id":       assignmentId,
		"therapist": therapistId,
		"user":      clientId,
	}

	assignment := &Assignment{}
	err := r.collection.FindOne(ctx, selector).Decode(assignment)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error fetching assignment: %w", err)
	}

	return assignment, nil
}

func (r *repository) List(ctx context.Context, therapistId primitive.ObjectID, clientIds []primitive.ObjectID) ([]*Assignment, error) {
	selector := bson.M{
		"therapist": therapistId,
		"user":      bson.M{"$in": clientIds},
	}
	opts := options.Find().SetSort(bson.D{{Key: "assignedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, selector, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing assignments: %w", err)
	}

	var assignments []*Assignment
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, fmt.Errorf("error decoding assignments: %w", err)
	}

	return assignments, nil
}

func (r *repository) Revoke(ctx context.Context, assignmentId primitive.ObjectID, revokedAt time.Time) (*Assignment, error) {
	// The status guard keeps the revocation atomic: a concurrent completion
	// wins and the revoke reports an invalid transition.
	selector := bson.M{
		"_id":    assignmentId,
		"status": bson.M{"$in": bson.A{StatusAssigned, StatusInProgress}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":    StatusRevoked,
			"revokedAt": revokedAt,
			"updatedAt": revokedAt,
		},
	}

	res := r.collection.FindOneAndUpdate(ctx, selector, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	assignment := &Assignment{}
	if err := res.Decode(assignment); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("error revoking assignment: %w", err)
	}

	return assignment, nil
}

func (r *repository) SetDueAt(ctx context.Context, assignmentId primitive.ObjectID, dueAt *time.Time) (*Assignment, error) {
	update := bson.M{"$set": bson.M{"updatedAt": time.Now()}}
	if dueAt != nil {
		update["$set"].(bson.M)["dueAt"] = *dueAt
	} else {
		update["$unset"] = bson.M{"dueAt": ""}
	}

	res := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": assignmentId}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	assignment := &Assignment{}
	if err := res.Decode(assignment); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error updating assignment due date: %w", err)
	}

	return assignment, nil
}

// TransitionByQuiz moves every assignment of the (user, quiz) pair that is in
// the from status to the to status. Used for the side effects of a client
// opening or submitting a quiz; assignments in any other status are left
// untouched.
func (r *repository) TransitionByQuiz(ctx context.Context, userId, quizId primitive.ObjectID, from, to string, at time.Time) error {
	selector := bson.M{
		"user":   userId,
		"quiz":   quizId,
		"status": from,
	}
	set := bson.M{
		"status":    to,
		"updatedAt": at,
	}
	switch to {
	case StatusInProgress:
		set["startedAt"] = at
	case StatusCompleted:
		set["completedAt"] = at
	}

	_, err := r.collection.UpdateMany(ctx, selector, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error transitioning assignments: %w", err)
	}
	return nil
}
