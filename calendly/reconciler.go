package calendly

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/solace-health/therapy/appointments"
	errs "github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/users"
)

const (
	SessionCompleted = "completed"
	SessionActive    = "active"
	SessionUpcoming  = "upcoming"

	// fallbackLookbackWindow is how far back the fallback reconciliation
	// scans for sessions booked before the webhook recorded them.
	fallbackLookbackWindow = 6 * time.Hour

	// soonThreshold switches the upcoming label to a minutes-until countdown.
	soonThreshold = 120 * time.Minute
)

// TherapistSessionView is the dashboard projection of a provider event,
// enriched with the local appointment when one exists for the event URI.
type TherapistSessionView struct {
	Id          string              `json:"id"`
	ClientName  string              `json:"clientName"`
	UserId      *primitive.ObjectID `json:"userId"`
	Service     string              `json:"service"`
	TimeLabel   string              `json:"timeLabel"`
	TimeRange   string              `json:"timeRange"`
	Channel     string              `json:"channel"`
	Status      string              `json:"status"`
	StatusLabel string              `json:"statusLabel"`
	StartsAt    *time.Time          `json:"startsAt"`
	EndsAt      *time.Time          `json:"endsAt"`
}

type TodayOverview struct {
	Date      time.Time              `json:"date"`
	Highlight *TherapistSessionView  `json:"highlight"`
	Sessions  []TherapistSessionView `json:"sessions"`
}

type UserSessionOverview struct {
	Current  *appointments.SessionView  `json:"current"`
	Next     *appointments.SessionView  `json:"next"`
	Upcoming []appointments.SessionView `json:"upcoming"`
}

// presentationStatus classifies an event window against now. Upcoming events
// within two hours get a minutes-until countdown label.
func presentationStatus(start, end *time.Time, now time.Time) (string, string) {
	if end != nil && !now.Before(*end) {
		return SessionCompleted, "Completed"
	}
	if start != nil && end != nil && !now.Before(*start) && now.Before(*end) {
		return SessionActive, "In Progress"
	}
	if start != nil {
		until := start.Sub(now)
		if until <= soonThreshold {
			minutes := int(until.Round(time.Minute).Minutes())
			if minutes < 0 {
				minutes = 0
			}
			return SessionUpcoming, fmt.Sprintf("%dm until", minutes)
		}
	}
	return SessionUpcoming, "Upcoming"
}

// sessionChannel derives a user-facing channel from the provider's location
// type.
func sessionChannel(event Event) string {
	if event.Location == nil {
		return "Session"
	}
	locationType := strings.ToLower(event.Location.Type)
	switch {
	case strings.Contains(locationType, "zoom"),
		strings.Contains(locationType, "google_conference"),
		strings.Contains(locationType, "microsoft_teams"):
		return "Video Call"
	case strings.Contains(locationType, "phone"):
		return "Audio Call"
	case strings.Contains(locationType, "in_person"):
		return "In Person"
	}
	return "Session"
}

func utcDayWindow(now time.Time) EventWindow {
	year, month, day := now.UTC().Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return EventWindow{
		MinStart: start,
		MaxStart: start.Add(24*time.Hour - time.Millisecond),
	}
}

func formatTimeLabel(t *time.Time) string {
	if t == nil {
		return "Time unavailable"
	}
	return t.Format("3:04 PM")
}

func formatTimeRange(start, end *time.Time) string {
	return formatTimeLabel(start) + " - " + formatTimeLabel(end)
}

// TodaySessions lists the therapist's provider events inside the current UTC
// day, mapped into dashboard rows. Local appointments resolved by event URI
// supply the canonical client identity; the event's first invitee is the
// fallback. The earliest session is surfaced as the highlight.
func (s *Service) TodaySessions(ctx context.Context, therapistId primitive.ObjectID) (*TodayOverview, error) {
	profile, err := s.profiles.GetByUserId(ctx, therapistId)
	if err != nil || !profile.CalendlyConnected || profile.CalendlyUserUri == "" {
		return nil, errs.Badf("calendly is not connected for this therapist")
	}

	accessToken, err := s.tokens.EnsureValidToken(ctx, profile)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	events, err := s.client.ScheduledEvents(ctx, accessToken, profile.CalendlyUserUri, utcDayWindow(now))
	if err != nil {
		return nil, errs.Badf("failed to fetch calendly scheduled events")
	}

	eventUris := make([]string, 0, len(events))
	for _, event := range events {
		if event.Uri != "" {
			eventUris = append(eventUris, event.Uri)
		}
	}

	byEventUri := map[string]*appointments.Appointment{}
	if existing, err := s.appointments.ListByEventUris(ctx, eventUris); err == nil {
		for _, appointment := range existing {
			byEventUri[appointment.CalendlyEventUri] = appointment
		}
	}

	sessions := make([]TherapistSessionView, 0, len(events))
	for _, event := range events {
		appointment := byEventUri[event.Uri]

		clientName := ""
		var userId *primitive.ObjectID
		if appointment != nil {
			clientName = appointment.UserName
			userId = appointment.UserId
		}
		if clientName == "" {
			// Best effort; an invitee lookup failure never drops the session.
			if invitee, err := s.client.FirstInvitee(ctx, accessToken, event.Uri); err == nil {
				clientName = invitee.DisplayName()
			}
		}
		if clientName == "" {
			clientName = "Booked Client"
		}

		service := event.Name
		if service == "" {
			service = "Therapy Session"
		}

		status, label := presentationStatus(event.StartTime, event.EndTime, now)
		sessions = append(sessions, TherapistSessionView{
			Id:          event.Uri,
			ClientName:  clientName,
			UserId:      userId,
			Service:     service,
			TimeLabel:   formatTimeLabel(event.StartTime),
			TimeRange:   formatTimeRange(event.StartTime, event.EndTime),
			Channel:     sessionChannel(event),
			Status:      status,
			StatusLabel: label,
			StartsAt:    event.StartTime,
			EndsAt:      event.EndTime,
		})
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return startTimestamp(sessions[i].StartsAt) < startTimestamp(sessions[j].StartsAt)
	})

	overview := &TodayOverview{
		Date:     now,
		Sessions: sessions,
	}
	if len(sessions) > 0 {
		overview.Highlight = &sessions[0]
	}

	return overview, nil
}

func startTimestamp(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

// UserOverview partitions a client's recorded sessions into current, next and
// upcoming. When nothing is recorded it reconciles directly against the
// assigned therapist's calendar, since webhooks may lag sessions booked out
// of band. Provider failures on that path degrade to an empty overview.
func (s *Service) UserOverview(ctx context.Context, user *users.User) (*UserSessionOverview, error) {
	now := time.Now()

	recorded, err := s.appointments.ListForUser(ctx, *user.Id, strValue(user.Email))
	if err != nil {
		return nil, err
	}

	views := make([]appointments.SessionView, 0, len(recorded))
	for _, appointment := range recorded {
		views = append(views, appointments.NewSessionView(appointment, now))
	}

	overview := partitionUserSessions(views)
	if overview.Current != nil || overview.Next != nil || len(overview.Upcoming) > 0 {
		return overview, nil
	}

	if user.AssignedTherapist == nil {
		return overview, nil
	}

	fallback, err := s.fallbackSessions(ctx, user, now)
	if err != nil {
		s.logger.Warnw("calendar fallback lookup failed, returning empty overview",
			"userId", user.Id.Hex(), "error", err)
		return overview, nil
	}

	return partitionUserSessions(fallback), nil
}

// fallbackSessions queries the assigned therapist's calendar from six hours
// back and keeps only events whose first invitee matches the client's email.
// Events whose invitee lookup fails are skipped, never fatal.
func (s *Service) fallbackSessions(ctx context.Context, user *users.User, now time.Time) ([]appointments.SessionView, error) {
	profile, err := s.profiles.GetByUserId(ctx, *user.AssignedTherapist)
	if err != nil || !profile.CalendlyConnected || profile.CalendlyUserUri == "" {
		return nil, ErrNotConnected
	}

	accessToken, err := s.tokens.EnsureValidToken(ctx, profile)
	if err != nil {
		return nil, err
	}

	events, err := s.client.ScheduledEvents(ctx, accessToken, profile.CalendlyUserUri, EventWindow{
		MinStart: now.Add(-fallbackLookbackWindow),
	})
	if err != nil {
		return nil, err
	}

	therapistName := "Therapist"
	if therapist, err := s.users.Get(ctx, *user.AssignedTherapist); err == nil && therapist.Name != nil {
		therapistName = *therapist.Name
	}

	email := strings.ToLower(strings.TrimSpace(strValue(user.Email)))

	var views []appointments.SessionView
	for _, event := range events {
		invitee, err := s.client.FirstInvitee(ctx, accessToken, event.Uri)
		if err != nil || invitee == nil {
			continue
		}
		inviteeEmail := strings.ToLower(strings.TrimSpace(invitee.Email))
		if inviteeEmail == "" || inviteeEmail != email {
			continue
		}

		views = append(views, mapEventToSessionView(event, invitee, therapistName, now))
	}

	sort.SliceStable(views, func(i, j int) bool {
		return startTimestamp(views[i].ScheduledAt) < startTimestamp(views[j].ScheduledAt)
	})

	return views, nil
}

func mapEventToSessionView(event Event, invitee *Invitee, therapistName string, now time.Time) appointments.SessionView {
	sessionType := event.Name
	if sessionType == "" {
		sessionType = "Therapy Session"
	}

	joinUrl := ""
	if event.Location != nil {
		switch {
		case event.Location.JoinUrl != "":
			joinUrl = event.Location.JoinUrl
		case event.Location.Location != "":
			joinUrl = event.Location.Location
		default:
			joinUrl = event.Location.AdditionalInfo
		}
	}

	view := appointments.SessionView{
		Id:            event.Uri,
		ScheduledAt:   event.StartTime,
		EndsAt:        event.EndTime,
		Timezone:      event.Timezone,
		SessionType:   sessionType,
		TherapistName: therapistName,
		Status:        appointments.StatusScheduled,
		Stage:         appointments.Stage(event.StartTime, event.EndTime, now),
		JoinUrl:       joinUrl,
	}
	if invitee != nil {
		view.RescheduleUrl = invitee.RescheduleUrl
		view.CancelUrl = invitee.CancelUrl
	}
	return view
}

func partitionUserSessions(views []appointments.SessionView) *UserSessionOverview {
	overview := &UserSessionOverview{
		Upcoming: []appointments.SessionView{},
	}
	for i := range views {
		view := views[i]
		switch view.Stage {
		case appointments.StageCurrent:
			if overview.Current == nil {
				overview.Current = &views[i]
			}
		case appointments.StageUpcoming:
			if overview.Next == nil {
				overview.Next = &views[i]
			}
			overview.Upcoming = append(overview.Upcoming, view)
		}
	}
	return overview
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
