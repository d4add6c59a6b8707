package userinfo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotFound = errors.New("user info not found")

// Preferences captures what a client entered during onboarding.
type Preferences struct {
	Id                *primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserId            primitive.ObjectID  `bson:"user" json:"userId"`
	PrimaryConcern    string              `bson:"primaryConcern,omitempty" json:"primaryConcern,omitempty"`
	LanguagePref      string              `bson:"languagePref,omitempty" json:"languagePref,omitempty"`
	SessionMode       string              `bson:"sessionMode,omitempty" json:"sessionMode,omitempty"`
	AvailabilityPrefs []string            `bson:"availabilityPrefs,omitempty" json:"availabilityPrefs,omitempty"`
	ReminderChannel   string              `bson:"reminderChannel,omitempty" json:"reminderChannel,omitempty"`
}

type Service interface {
	GetByUserId(ctx context.Context, userId primitive.ObjectID) (*Preferences, error)
	// Upsert replaces the user's preferences wholesale; onboarding always
	// submits the full set.
	Upsert(ctx context.Context, preferences Preferences) (*Preferences, error)
}
