package assignments

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("quiz assignment not found")
	ErrInvalidTransition = errors.New("invalid assignment status transition")
)

const (
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusRevoked    = "revoked"

	// StatusOverdue is derived, never stored.
	StatusOverdue = "overdue"

	SourceTherapistManual = "therapist_manual"

	MaxNoteLength = 1200
)

// DefaultDueWindow is applied when a therapist assigns a quiz without an
// explicit due date.
const DefaultDueWindow = 7 * 24 * time.Hour

// Assignment links one client, one therapist and one quiz. Completed and
// revoked are terminal. Duplicates of the same (therapist, client, quiz)
// triple are allowed; each assignment is a distinct record.
type Assignment struct {
	Id          *primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserId      primitive.ObjectID  `bson:"user" json:"userId"`
	TherapistId primitive.ObjectID  `bson:"therapist" json:"therapistId"`
	QuizId      primitive.ObjectID  `bson:"quiz" json:"quizId"`
	Status      string              `bson:"status" json:"status"`
	AssignedAt  time.Time           `bson:"assignedAt" json:"assignedAt"`
	DueAt       *time.Time          `bson:"dueAt,omitempty" json:"dueAt,omitempty"`
	StartedAt   *time.Time          `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	RevokedAt   *time.Time          `bson:"revokedAt,omitempty" json:"revokedAt,omitempty"`
	Note        string              `bson:"note,omitempty" json:"note,omitempty"`
	Source      string              `bson:"source,omitempty" json:"source,omitempty"`
	UpdatedAt   *time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type Summary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
	Revoked   int `json:"revoked"`
}

// NewAssignment describes an assignment a therapist is creating.
type NewAssignment struct {
	ClientId primitive.ObjectID
	QuizId   primitive.ObjectID
	DueAt    *time.Time
	Note     string
}

// Update mutates an existing assignment. The only status transition a
// therapist may request manually is a revocation. SetDueAt with a nil DueAt
// clears the due date.
type Update struct {
	Revoke   bool
	SetDueAt bool
	DueAt    *time.Time
}

type Service interface {
	Assign(ctx context.Context, therapistId primitive.ObjectID, params NewAssignment) (*Assignment, error)
	Get(ctx context.Context, therapistId, clientId, assignmentId primitive.ObjectID) (*Assignment, error)
	ListForClient(ctx context.Context, therapistId, clientId primitive.ObjectID) ([]*Assignment, error)
	ListForClients(ctx context.Context, therapistId primitive.ObjectID, clientIds []primitive.ObjectID) ([]*Assignment, error)
	UpdateAssignment(ctx context.Context, therapistId, clientId, assignmentId primitive.ObjectID, update Update) (*Assignment, error)
	MarkInProgress(ctx context.Context, userId, quizId primitive.ObjectID) error
	MarkCompleted(ctx context.Context, userId, quizId primitive.ObjectID) error
}
