package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

const appointmentsCollectionName = "appointments"

type Repository interface {
	Service
}

func NewService(repo Repository) (Service, error) {
	return repo, nil
}

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		collection: db.Collection(appointmentsCollectionName),
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
			// Sparse so internal-only sessions without a Calendly event can
			// coexist.
			Keys: bson.D{
				{Key: "calendlyEventUri", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetSparse(true).
				SetName("UniqueCalendlyEvent"),
		},
		{
			Keys: bson.D{
				{Key: "therapist", Value: 1},
				{Key: "user", Value: 1},
				{Key: "scheduledAt", Value: 1},
			},
			Options: options.Index().
				SetName("AppointmentsByTherapistClient"),
		},
	})
	return err
}

func (r *repository) UpsertByEventUri(ctx context.Context, appointment Appointment) (*Appointment, error) {
	if appointment.CalendlyEventUri == "" {
		return nil, fmt.Errorf("appointment is missing a calendly event uri")
	}

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"user":               appointment.UserId,
			"therapist":          appointment.TherapistId,
			"userName":           appointment.UserName,
			"userEmail":          strings.ToLower(appointment.UserEmail),
			"therapistName":      appointment.TherapistName,
			"therapistEmail":     strings.ToLower(appointment.TherapistEmail),
			"scheduledAt":        appointment.ScheduledAt,
			"endsAt":             appointment.EndsAt,
			"timezone":           appointment.Timezone,
			"sessionType":        appointment.SessionType,
			"status":             appointment.Status,
			"calendlyEventUri":   appointment.CalendlyEventUri,
			"calendlyInviteeUri": appointment.CalendlyInviteeUri,
			"tracking":           appointment.Tracking,
			"rawPayload":         appointment.RawPayload,
			"updatedAt":          now,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
		},
	}

	res := r.collection.FindOneAndUpdate(ctx,
		bson.M{"calendlyEventUri": appointment.CalendlyEventUri}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After))

	upserted := &Appointment{}
	if err := res.Decode(upserted); err != nil {
		return nil, fmt.Errorf("error upserting appointment: %w", err)
	}

	return upserted, nil
}

func (r *repository) ListByEventUris(ctx context.Context, eventUris []string) ([]*Appointment, error) {
	if len(eventUris) == 0 {
		return nil, nil
	}
	return r.list(ctx, bson.M{"calendlyEventUri": bson.M{"$in": eventUris}}, nil)
}

func (r *repository) ListForTherapist(ctx context.Context, therapistId primitive.ObjectID) ([]*Appointment, error) {
	return r.list(ctx, bson.M{"therapist": therapistId}, ascendingByStart())
}

func (r *repository) ListForClients(ctx context.Context, therapistId primitive.ObjectID, clientIds []primitive.ObjectID) ([]*Appointment, error) {
	selector := bson.M{
		"therapist": therapistId,
		"user":      bson.M{"$in": clientIds},
	}
	return r.list(ctx, selector, nil)
}

func (r *repository) ListForClient(ctx context.Context, therapistId, clientId primitive.ObjectID) ([]*Appointment, error) {
	selector := bson.M{
		"therapist": therapistId,
		"user":      clientId,
	}
	return r.list(ctx, selector, ascendingByStart())
}

// ListForUser matches by participant reference or, for sessions recorded
// before the webhook could resolve the user, by invitee email.
func (r *repository) ListForUser(ctx context.Context, userId primitive.ObjectID, email string) ([]*Appointment, error) {
	selector := bson.M{
		"status": bson.M{"$ne": StatusCanceled},
		"$or": bson.A{
			bson.M{"user": userId},
			bson.M{"userEmail": strings.ToLower(strings.TrimSpace(email))},
		},
	}
	return r.list(ctx, selector, ascendingByStart())
}

func (r *repository) list(ctx context.Context, selector bson.M, opts *options.FindOptions) ([]*Appointment, error) {
	var findOpts []*options.FindOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}

	cursor, err := r.collection.Find(ctx, selector, findOpts...)
	if err != nil {
		return nil, fmt.Errorf("error listing appointments: %w", err)
	}

	var appointments []*Appointment
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("error decoding appointments: %w", err)
	}

	return appointments, nil
}

func ascendingByStart() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}})
}
