package appointments

import "time"

const (
	StageCurrent  = "current"
	StageUpcoming = "upcoming"
	StagePrevious = "previous"
)

// Stage derives where a session sits relative to now. It is recomputed per
// read and never persisted. A session with no end time is previous once its
// start has passed.
func Stage(scheduledAt, endsAt *time.Time, now time.Time) string {
	if scheduledAt != nil && endsAt != nil && !now.Before(*scheduledAt) && !now.After(*endsAt) {
		return StageCurrent
	}
	if endsAt != nil && now.After(*endsAt) {
		return StagePrevious
	}
	if endsAt == nil && scheduledAt != nil && now.After(*scheduledAt) {
		return StagePrevious
	}
	return StageUpcoming
}

// SessionView is the read projection of an appointment used by overview
// endpoints. Join, reschedule and cancel links come from the retained raw
// webhook payload.
type SessionView struct {
	Id            string     `json:"id"`
	ScheduledAt   *time.Time `json:"scheduledAt"`
	EndsAt        *time.Time `json:"endsAt"`
	Timezone      string     `json:"timezone"`
	SessionType   string     `json:"sessionType"`
	TherapistName string     `json:"therapistName,omitempty"`
	Status        string     `json:"status"`
	Stage         string     `json:"stage"`
	JoinUrl       string     `json:"joinUrl"`
	RescheduleUrl string     `json:"rescheduleUrl"`
	CancelUrl     string     `json:"cancelUrl"`
}

func NewSessionView(a *Appointment, now time.Time) SessionView {
	id := ""
	if a.Id != nil {
		id = a.Id.Hex()
	}

	sessionType := a.SessionType
	if sessionType == "" {
		sessionType = "Therapy Session"
	}

	status := a.Status
	if status == "" {
		status = StatusScheduled
	}

	return SessionView{
		Id:            id,
		ScheduledAt:   a.ScheduledAt,
		EndsAt:        a.EndsAt,
		Timezone:      a.Timezone,
		SessionType:   sessionType,
		TherapistName: a.TherapistName,
		Status:        status,
		Stage:         Stage(a.ScheduledAt, a.EndsAt, now),
		JoinUrl:       a.JoinUrl(),
		RescheduleUrl: a.RescheduleUrl(),
		CancelUrl:     a.CancelUrl(),
	}
}

func (a *Appointment) JoinUrl() string {
	if v := digString(a.RawPayload, "payload", "scheduled_event", "location", "join_url"); v != "" {
		return v
	}
	return digString(a.RawPayload, "payload", "scheduled_event", "location", "location")
}

func (a *Appointment) RescheduleUrl() string {
	if v := digString(a.RawPayload, "payload", "reschedule_url"); v != "" {
		return v
	}
	return digString(a.RawPayload, "payload", "invitee", "reschedule_url")
}

func (a *Appointment) CancelUrl() string {
	if v := digString(a.RawPayload, "payload", "cancel_url"); v != "" {
		return v
	}
	return digString(a.RawPayload, "payload", "invitee", "cancel_url")
}

// digString walks nested maps and returns the string leaf, or empty when any
// step is missing or of the wrong shape.
func digString(m map[string]any, path ...string) string {
	var current any = m
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = node[key]
	}
	if s, ok := current.(string); ok {
		return s
	}
	return ""
}
