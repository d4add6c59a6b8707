package calendly

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/solace-health/therapy/appointments"
	"github.com/solace-health/therapy/config"
	"github.com/solace-health/therapy/therapists"
	"github.com/solace-health/therapy/users"
)

var _ = Describe("ProcessWebhook", func() {
	var (
		userId      primitive.ObjectID
		therapistId primitive.ObjectID
		profiles    *fakeProfiles
		appts       *fakeAppointments
		usersFake   *fakeUsers
		service     *Service
	)

	BeforeEach(func() {
		userId = primitive.NewObjectID()
		therapistId = primitive.NewObjectID()
		profiles = newFakeProfiles(&therapists.Profile{
			UserId:            therapistId,
			CalendlyConnected: true,
			CalendlyUserUri:   "https://api.calendly.com/users/owner",
		})
		appts = &fakeAppointments{byEventUri: map[string]*appointments.Appointment{}}

		logger := zap.NewNop().Sugar()
		client := &fakeClient{}
		manager, err := NewTokenManager(client, profiles, logger)
		Expect(err).ToNot(HaveOccurred())

		cfg := &Config{AuthUrl: defaultAuthUrl, TokenUrl: defaultTokenUrl, ApiUrl: defaultApiUrl}
		usersFake = &fakeUsers{users: map[primitive.ObjectID]*users.User{}}
		service, err = NewService(cfg, &config.Config{JwtSecret: "secret"}, client, manager, profiles, usersFake, appts, logger)
		Expect(err).ToNot(HaveOccurred())
	})

	bookingPayload := func(tracking map[string]any) map[string]any {
		return map[string]any{
			"uri":      "https://api.calendly.com/scheduled_events/evt/invitees/inv",
			"name":     "Dana Whitfield",
			"email":    "dana@example.com",
			"timezone": "America/Chicago",
			"tracking": tracking,
			"scheduled_event": map[string]any{
				"uri":        "https://api.calendly.com/scheduled_events/evt",
				"name":       "Therapy Session",
				"start_time": "2026-03-10T15:00:00Z",
				"end_time":   "2026-03-10T16:00:00Z",
				"event_memberships": []any{
					map[string]any{
						"user":       "https://api.calendly.com/users/owner",
						"user_email": "reyes@example.com",
						"user_name":  "Dr. Reyes",
					},
				},
			},
		}
	}

	It("records a booking with participants resolved from tracking", func() {
		err := service.ProcessWebhook(context.Background(), WebhookEvent{
			Event: EventInviteeCreated,
			Payload: bookingPayload(map[string]any{
				"utm_content": userId.Hex(),
				"utm_term":    therapistId.Hex(),
			}),
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(appts.upserted).To(HaveLen(1))

		recorded := appts.upserted[0]
		Expect(recorded.Status).To(Equal(appointments.StatusScheduled))
		Expect(recorded.CalendlyEventUri).To(Equal("https://api.calendly.com/scheduled_events/evt"))
		Expect(recorded.CalendlyInviteeUri).To(Equal("https://api.calendly.com/scheduled_events/evt/invitees/inv"))
		Expect(recorded.UserId).To(Equal(&userId))
		Expect(recorded.TherapistId).To(Equal(&therapistId))
		Expect(recorded.UserName).To(Equal("Dana Whitfield"))
		Expect(recorded.TherapistName).To(Equal("Dr. Reyes"))
		Expect(recorded.SessionType).To(Equal("Therapy Session"))
		Expect(*recorded.ScheduledAt).To(Equal(time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)))
		Expect(*recorded.EndsAt).To(Equal(time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)))
		Expect(recorded.RawPayload).To(HaveKey("payload"))
	})

	It("resolves the therapist from the calendar owner when tracking is missing", func() {
		err := service.ProcessWebhook(context.Background(), WebhookEvent{
			Event:   EventInviteeCreated,
			Payload: bookingPayload(map[string]any{}),
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(appts.upserted).To(HaveLen(1))
		Expect(appts.upserted[0].UserId).To(BeNil())
		Expect(appts.upserted[0].TherapistId).To(Equal(&therapistId))
	})

	It("marks cancellations canceled", func() {
		err := service.ProcessWebhook(context.Background(), WebhookEvent{
			Event:   EventInviteeCanceled,
			Payload: bookingPayload(map[string]any{}),
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(appts.upserted[0].Status).To(Equal(appointments.StatusCanceled))
	})

	It("resolves the user from the first custom answer when tracking is missing", func() {
		payload := bookingPayload(map[string]any{})
		payload["questions_and_answers"] = []any{
			map[string]any{"question": "Your patient id", "answer": userId.Hex()},
		}

		err := service.ProcessWebhook(context.Background(), WebhookEvent{
			Event:   EventInviteeCreated,
			Payload: payload,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(appts.upserted[0].UserId).To(Equal(&userId))
	})

	It("keys the appointment on the top-level event uri when present", func() {
		payload := bookingPayload(map[string]any{})
		payload["event"] = "https://api.calendly.com/scheduled_events/evt-top"
		delete(payload["scheduled_event"].(map[string]any), "uri")

		err := service.ProcessWebhook(context.Background(), WebhookEvent{
			Event:   EventInviteeCreated,
			Payload: payload,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(appts.upserted).To(HaveLen(1))
		Expect(appts.upserted[0].CalendlyEventUri).To(Equal("https://api.calendly.com/scheduled_events/evt-top"))
	})

	It("records the resolved therapist's own name over the calendar member's", func() {
		name := "Dr. Solis"
		email := "solis@example.com"
		usersFake.users[therapistId] = &users.User{
			Id:    &therapistId,
			Name:  &name,
			Email: &email,
			Role:  users.RoleTherapist,
		}

		err := service.ProcessWebhook(context.Background(), WebhookEvent{
			Event: EventInviteeCreated,
			Payload: bookingPayload(map[string]any{
				"utm_term": therapistId.Hex(),
			}),
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(appts.upserted).To(HaveLen(1))
		Expect(appts.upserted[0].TherapistId).To(Equal(&therapistId))
		Expect(appts.upserted[0].TherapistName).To(Equal("Dr. Solis"))
		Expect(appts.upserted[0].TherapistEmail).To(Equal("solis@example.com"))
	})

	It("ignores deliveries without an event uri", func() {
		err := service.ProcessWebhook(context.Background(), WebhookEvent{
			Event:   EventInviteeCreated,
			Payload: map[string]any{"email": "dana@example.com"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(appts.upserted).To(BeEmpty())
	})
})

var _ = Describe("oauth state", func() {
	It("round trips the therapist id", func() {
		therapistId := primitive.NewObjectID()
		token, err := newStateToken("secret", therapistId.Hex())
		Expect(err).ToNot(HaveOccurred())

		parsed, err := parseStateToken("secret", token)
		Expect(err).ToNot(HaveOccurred())
		Expect(parsed).To(Equal(therapistId.Hex()))
	})

	It("rejects tokens signed with another secret", func() {
		token, err := newStateToken("secret", primitive.NewObjectID().Hex())
		Expect(err).ToNot(HaveOccurred())

		_, err = parseStateToken("other-secret", token)
		Expect(err).To(MatchError(errInvalidState))
	})
})
