package calendly

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/solace-health/therapy/appointments"
)

const (
	EventInviteeCreated  = "invitee.created"
	EventInviteeCanceled = "invitee.canceled"
)

// WebhookEvent is the provider's delivery envelope. The payload is kept as a
// raw map so the full body can be retained on the appointment.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

type webhookPayload struct {
	// Event is the scheduled event URI; invitee payloads carry it at the top
	// level in addition to scheduled_event.uri.
	Event               string                `mapstructure:"event"`
	Uri                 string                `mapstructure:"uri"`
	Name                string                `mapstructure:"name"`
	Email               string                `mapstructure:"email"`
	Timezone            string                `mapstructure:"timezone"`
	Tracking            map[string]string     `mapstructure:"tracking"`
	QuestionsAndAnswers []questionAnswer      `mapstructure:"questions_and_answers"`
	Invitee             *inviteeSection       `mapstructure:"invitee"`
	ScheduledEvent      webhookScheduledEvent `mapstructure:"scheduled_event"`
}

type questionAnswer struct {
	Question string `mapstructure:"question"`
	Answer   string `mapstructure:"answer"`
}

type inviteeSection struct {
	Tracking map[string]string `mapstructure:"tracking"`
}

type webhookScheduledEvent struct {
	Uri              string            `mapstructure:"uri"`
	Name             string            `mapstructure:"name"`
	StartTime        string            `mapstructure:"start_time"`
	EndTime          string            `mapstructure:"end_time"`
	CreatedBy        string            `mapstructure:"created_by"`
	Tracking         map[string]string `mapstructure:"tracking"`
	EventMemberships []eventMembership `mapstructure:"event_memberships"`
}

type eventMembership struct {
	User      string `mapstructure:"user"`
	UserEmail string `mapstructure:"user_email"`
	UserName  string `mapstructure:"user_name"`
}

// ProcessWebhook records a booking or cancellation delivered by the provider.
// Deliveries without a scheduled event URI are acknowledged and dropped,
// since nothing can be keyed without one. Participant resolution is best
// effort: bookings that cannot be tied to a known user or therapist are still
// recorded with whatever identity the payload carried.
func (s *Service) ProcessWebhook(ctx context.Context, event WebhookEvent) error {
	var payload webhookPayload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &payload,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(event.Payload); err != nil {
		return fmt.Errorf("unable to decode webhook payload: %w", err)
	}

	eventUri := payload.Event
	if eventUri == "" {
		eventUri = payload.ScheduledEvent.Uri
	}
	if eventUri == "" {
		s.logger.Debugw("ignoring calendly webhook without event uri", "event", event.Event)
		return nil
	}

	tracking := payload.Tracking
	if len(tracking) == 0 && payload.Invitee != nil {
		tracking = payload.Invitee.Tracking
	}
	if len(tracking) == 0 {
		tracking = payload.ScheduledEvent.Tracking
	}

	status := appointments.StatusScheduled
	if event.Event == EventInviteeCanceled {
		status = appointments.StatusCanceled
	}

	therapistId, therapistName, therapistEmail := s.resolveTherapist(ctx, tracking, payload.ScheduledEvent)

	appointment := appointments.Appointment{
		UserId:             s.resolveUser(tracking, payload.QuestionsAndAnswers),
		TherapistId:        therapistId,
		UserName:           payload.Name,
		UserEmail:          payload.Email,
		TherapistName:      therapistName,
		TherapistEmail:     therapistEmail,
		ScheduledAt:        parseEventTime(payload.ScheduledEvent.StartTime),
		EndsAt:             parseEventTime(payload.ScheduledEvent.EndTime),
		Timezone:           payload.Timezone,
		SessionType:        payload.ScheduledEvent.Name,
		Status:             status,
		CalendlyEventUri:   eventUri,
		CalendlyInviteeUri: payload.Uri,
		Tracking:           tracking,
		RawPayload: map[string]any{
			"event":   event.Event,
			"payload": event.Payload,
		},
	}

	recorded, err := s.appointments.UpsertByEventUri(ctx, appointment)
	if err != nil {
		return err
	}

	s.logger.Infow("recorded calendly webhook",
		"event", event.Event,
		"eventUri", eventUri,
		"appointmentId", recorded.Id.Hex(),
		"status", status,
	)
	return nil
}

// resolveUser maps the booking to a platform user. Campaign tracking carries
// the user id in utm_content; older booking links asked for it in the first
// custom question instead.
func (s *Service) resolveUser(tracking map[string]string, answers []questionAnswer) *primitive.ObjectID {
	if id, err := primitive.ObjectIDFromHex(tracking["utm_content"]); err == nil {
		return &id
	}
	if len(answers) > 0 {
		if id, err := primitive.ObjectIDFromHex(answers[0].Answer); err == nil {
			return &id
		}
	}
	return nil
}

// resolveTherapist prefers the utm_term tracking field, then falls back to
// matching the event's calendar owner against stored Calendly identities.
// Name and email come from the resolved user record when one exists; the
// event membership may belong to a different calendar member.
func (s *Service) resolveTherapist(ctx context.Context, tracking map[string]string, scheduledEvent webhookScheduledEvent) (*primitive.ObjectID, string, string) {
	therapistName := ""
	therapistEmail := ""
	ownerUri := scheduledEvent.CreatedBy
	if len(scheduledEvent.EventMemberships) > 0 {
		membership := scheduledEvent.EventMemberships[0]
		therapistName = membership.UserName
		therapistEmail = membership.UserEmail
		if membership.User != "" {
			ownerUri = membership.User
		}
	}

	var therapistId *primitive.ObjectID
	if id, err := primitive.ObjectIDFromHex(tracking["utm_term"]); err == nil {
		therapistId = &id
	} else if ownerUri != "" {
		if profile, err := s.profiles.GetByCalendlyUserUri(ctx, ownerUri); err == nil {
			id := profile.UserId
			therapistId = &id
		}
	}

	if therapistId != nil {
		if therapist, err := s.users.Get(ctx, *therapistId); err == nil {
			if therapist.Name != nil {
				therapistName = *therapist.Name
			}
			if therapist.Email != nil {
				therapistEmail = *therapist.Email
			}
		}
	}

	return therapistId, therapistName, therapistEmail
}

func parseEventTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &parsed
}
