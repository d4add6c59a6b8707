package appointments

import "time"

// ClientSessionSummary condenses a client's appointment history into the two
// timestamps dashboards care about.
type ClientSessionSummary struct {
	NextSessionAt *time.Time `json:"nextSessionAt"`
	LastSessionAt *time.Time `json:"lastSessionAt"`
}

// SummarizeClientSessions scans appointments once, skipping canceled ones. A
// session still running counts toward the next session, not the last.
func SummarizeClientSessions(sessions []*Appointment, now time.Time) ClientSessionSummary {
	summary := ClientSessionSummary{}

	for _, session := range sessions {
		if session.Canceled() {
			continue
		}

		start := session.ScheduledAt
		end := session.EndsAt
		if end == nil {
			end = start
		}
		if start == nil {
			continue
		}

		if !end.Before(now) {
			if summary.NextSessionAt == nil || start.Before(*summary.NextSessionAt) {
				summary.NextSessionAt = start
			}
			continue
		}

		if summary.LastSessionAt == nil || end.After(*summary.LastSessionAt) {
			summary.LastSessionAt = end
		}
	}

	return summary
}
