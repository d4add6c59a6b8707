package appointments_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/solace-health/therapy/appointments"
	"github.com/solace-health/therapy/pointer"
)

var _ = Describe("Stage", func() {
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

	It("is current while now is within the session window", func() {
		start := now.Add(-10 * time.Minute)
		end := now.Add(20 * time.Minute)
		Expect(appointments.Stage(&start, &end, now)).To(Equal(appointments.StageCurrent))
	})

	It("is current at the window boundaries", func() {
		start := now
		end := now.Add(time.Hour)
		Expect(appointments.Stage(&start, &end, now)).To(Equal(appointments.StageCurrent))
		Expect(appointments.Stage(&start, &end, end)).To(Equal(appointments.StageCurrent))
	})

	It("is previous once the session has ended", func() {
		start := now.Add(-3 * time.Hour)
		end := now.Add(-2 * time.Hour)
		Expect(appointments.Stage(&start, &end, now)).To(Equal(appointments.StagePrevious))
	})

	It("is previous when a session without an end time has started", func() {
		start := now.Add(-time.Hour)
		Expect(appointments.Stage(&start, nil, now)).To(Equal(appointments.StagePrevious))
	})

	It("is upcoming before the session starts", func() {
		start := now.Add(time.Hour)
		end := now.Add(2 * time.Hour)
		Expect(appointments.Stage(&start, &end, now)).To(Equal(appointments.StageUpcoming))
	})
})

var _ = Describe("SummarizeClientSessions", func() {
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

	session := func(start, end time.Time, status string) *appointments.Appointment {
		return &appointments.Appointment{
			ScheduledAt: &start,
			EndsAt:      &end,
			Status:      status,
		}
	}

	It("returns nothing for an empty history", func() {
		Expect(appointments.SummarizeClientSessions(nil, now)).To(Equal(appointments.ClientSessionSummary{}))
	})

	It("picks the earliest future session and the latest past session", func() {
		past := session(now.Add(-50*time.Hour), now.Add(-49*time.Hour), appointments.StatusScheduled)
		recent := session(now.Add(-4*time.Hour), now.Add(-3*time.Hour), appointments.StatusScheduled)
		soon := session(now.Add(2*time.Hour), now.Add(3*time.Hour), appointments.StatusScheduled)
		later := session(now.Add(26*time.Hour), now.Add(27*time.Hour), appointments.StatusScheduled)

		summary := appointments.SummarizeClientSessions(
			[]*appointments.Appointment{later, past, soon, recent}, now)

		Expect(summary.NextSessionAt).To(Equal(soon.ScheduledAt))
		Expect(summary.LastSessionAt).To(Equal(recent.EndsAt))
	})

	It("skips canceled sessions", func() {
		canceled := session(now.Add(time.Hour), now.Add(2*time.Hour), appointments.StatusCanceled)
		summary := appointments.SummarizeClientSessions([]*appointments.Appointment{canceled}, now)
		Expect(summary.NextSessionAt).To(BeNil())
		Expect(summary.LastSessionAt).To(BeNil())
	})

	It("counts a running session as next, not last", func() {
		running := session(now.Add(-10*time.Minute), now.Add(40*time.Minute), appointments.StatusScheduled)
		summary := appointments.SummarizeClientSessions([]*appointments.Appointment{running}, now)
		Expect(summary.NextSessionAt).To(Equal(running.ScheduledAt))
		Expect(summary.LastSessionAt).To(BeNil())
	})
})

var _ = Describe("SessionView", func() {
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

	It("extracts links from the retained webhook payload", func() {
		appointment := &appointments.Appointment{
			ScheduledAt: pointer.FromAny(now.Add(-2 * time.Hour)),
			EndsAt:      pointer.FromAny(now.Add(-1 * time.Hour)),
			Status:      appointments.StatusScheduled,
			RawPayload: map[string]any{
				"payload": map[string]any{
					"scheduled_event": map[string]any{
						"location": map[string]any{
							"join_url": "https://zoom.example/j/123",
						},
					},
					"invitee": map[string]any{
						"reschedule_url": "https://calendly.example/reschedule",
						"cancel_url":     "https://calendly.example/cancel",
					},
				},
			},
		}

		view := appointments.NewSessionView(appointment, now)
		Expect(view.Stage).To(Equal(appointments.StagePrevious))
		Expect(view.JoinUrl).To(Equal("https://zoom.example/j/123"))
		Expect(view.RescheduleUrl).To(Equal("https://calendly.example/reschedule"))
		Expect(view.CancelUrl).To(Equal("https://calendly.example/cancel"))
	})

	It("renders safely when the payload is absent", func() {
		appointment := &appointments.Appointment{}
		view := appointments.NewSessionView(appointment, now)
		Expect(view.JoinUrl).To(BeEmpty())
		Expect(view.SessionType).To(Equal("Therapy Session"))
		Expect(view.Status).To(Equal(appointments.StatusScheduled))
	})
})
