package appointments

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotFound = errors.New("appointment not found")

const (
	StatusScheduled   = "scheduled"
	StatusCanceled    = "canceled"
	StatusRescheduled = "rescheduled"
)

// Appointment is a scheduled therapy session. Sessions booked through
// Calendly are keyed by the event URI (sparse unique index); participant
// references are resolved best-effort from webhook tracking metadata and may
// be absent. The raw webhook payload is retained so join, reschedule and
// cancel links can be extracted downstream.
type Appointment struct {
	Id                 *primitive.ObjectID `bson:"_id,omitempty"`
	UserId             *primitive.ObjectID `bson:"user,omitempty"`
	TherapistId        *primitive.ObjectID `bson:"therapist,omitempty"`
	UserName           string              `bson:"userName,omitempty"`
	UserEmail          string              `bson:"userEmail,omitempty"`
	TherapistName      string              `bson:"therapistName,omitempty"`
	TherapistEmail     string              `bson:"therapistEmail,omitempty"`
	ScheduledAt        *time.Time          `bson:"scheduledAt,omitempty"`
	EndsAt             *time.Time          `bson:"endsAt,omitempty"`
	Timezone           string              `bson:"timezone,omitempty"`
	SessionType        string              `bson:"sessionType,omitempty"`
	Status             string              `bson:"status"`
	CalendlyEventUri   string              `bson:"calendlyEventUri,omitempty"`
	CalendlyInviteeUri string              `bson:"calendlyInviteeUri,omitempty"`
	Tracking           map[string]string   `bson:"tracking,omitempty"`
	RawPayload         map[string]any      `bson:"rawPayload,omitempty"`
	CreatedAt          *time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt          *time.Time          `bson:"updatedAt,omitempty"`
}

func (a *Appointment) Canceled() bool {
	return a.Status == StatusCanceled
}

type Service interface {
	// UpsertByEventUri is the webhook write path; repeated deliveries of the
	// same event are idempotent.
	UpsertByEventUri(ctx context.Context, appointment Appointment) (*Appointment, error)
	ListByEventUris(ctx context.Context, eventUris []string) ([]*Appointment, error)
	ListForTherapist(ctx context.Context, therapistId primitive.ObjectID) ([]*Appointment, error)
	ListForClients(ctx context.Context, therapistId primitive.ObjectID, clientIds []primitive.ObjectID) ([]*Appointment, error)
	ListForClient(ctx context.Context, therapistId, clientId primitive.ObjectID) ([]*Appointment, error)
	ListForUser(ctx context.Context, userId primitive.ObjectID, email string) ([]*Appointment, error)
}
