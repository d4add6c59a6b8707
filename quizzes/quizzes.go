package quizzes

import (
	"context"
	"errors"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotFound = errors.New("quiz not found")

type Quiz struct {
	Id               *primitive.ObjectID `bson:"_id,omitempty"`
	Title            string              `bson:"title"`
	Type             string              `bson:"type,omitempty"`
	EstimatedMinutes *int                `bson:"estimatedMinutes,omitempty"`
	IsActive         *bool               `bson:"isActive,omitempty"`
	QuestionCount    int                 `bson:"questionCount,omitempty"`
}

// Active treats a missing flag as active, matching how quizzes were authored
// before the flag existed.
func (q *Quiz) Active() bool {
	return q.IsActive == nil || *q.IsActive
}

// DurationMinutes falls back to an estimate from question count when the
// author did not set one.
func (q *Quiz) DurationMinutes() int {
	if q.EstimatedMinutes != nil {
		return *q.EstimatedMinutes
	}
	estimated := int(math.Ceil(float64(q.QuestionCount) * 1.5))
	if estimated < 5 {
		return 5
	}
	return estimated
}

type Service interface {
	Get(ctx context.Context, id primitive.ObjectID) (*Quiz, error)
	ListActive(ctx context.Context) ([]*Quiz, error)
}
