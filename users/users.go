package users

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotFound = errors.New("user not found")

const (
	RoleUser      = "user"
	RoleTherapist = "therapist"
	RoleAdmin     = "admin"
)

type User struct {
	Id                *primitive.ObjectID  `bson:"_id,omitempty"`
	Name              *string              `bson:"name,omitempty"`
	Email             *string              `bson:"email,omitempty"`
	Role              string               `bson:"role"`
	HasOnboarded      bool                 `bson:"hasOnboarded"`
	AssignedTherapist *primitive.ObjectID  `bson:"assignedTherapist,omitempty"`
	AccessibleQuizzes []primitive.ObjectID `bson:"accessibleQuizzes,omitempty"`
	AttemptedQuizzes  []primitive.ObjectID `bson:"attemptedQuizzes,omitempty"`
	CreatedAt         *time.Time           `bson:"createdAt,omitempty"`
	UpdatedAt         *time.Time           `bson:"updatedAt,omitempty"`
}

func (u *User) IsClient() bool {
	return u.Role == RoleUser
}

// IsClientOf reports whether the user is a client currently assigned to the
// given therapist.
func (u *User) IsClientOf(therapistId primitive.ObjectID) bool {
	return u.IsClient() && u.AssignedTherapist != nil && *u.AssignedTherapist == therapistId
}

// ClientFilter narrows the client-role base set of a therapist. Search matches
// name or email as a case-insensitive substring; the text is escaped before it
// is used as a pattern.
type ClientFilter struct {
	TherapistId  primitive.ObjectID
	Search       *string
	HasOnboarded *bool
}

type Service interface {
	Get(ctx context.Context, id primitive.ObjectID) (*User, error)
	ListClients(ctx context.Context, filter *ClientFilter) ([]*User, error)
	AssignTherapist(ctx context.Context, userId, therapistId primitive.ObjectID) (*User, error)
	GrantQuizAccess(ctx context.Context, userId, quizId primitive.ObjectID) error
}
