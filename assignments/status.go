package assignments

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// activeStatuses are the raw statuses an assignment can still be worked in.
var activeStatuses = mapset.NewThreadUnsafeSet(StatusAssigned, StatusInProgress)

func IsActiveStatus(status string) bool {
	return activeStatuses.Contains(status)
}

// IsOverdue reports whether the assignment is past its due date while still
// actionable. Terminal assignments are never overdue regardless of the due
// date.
func IsOverdue(a *Assignment, now time.Time) bool {
	if a == nil || a.DueAt == nil {
		return false
	}
	if !activeStatuses.Contains(a.Status) {
		return false
	}
	return a.DueAt.Before(now)
}

// EffectiveStatus is the presentation status: the raw status, or overdue when
// the due date has passed and the assignment is still active. It is a pure
// function of (status, dueAt, now) and is never persisted.
func EffectiveStatus(a *Assignment, now time.Time) string {
	if IsOverdue(a, now) {
		return StatusOverdue
	}
	return a.Status
}

// Summarize buckets every assignment into exactly one of pending, completed,
// overdue or revoked. Terminal statuses are counted first so an expired due
// date on a completed assignment cannot leak into the overdue bucket.
func Summarize(assignments []*Assignment, now time.Time) Summary {
	summary := Summary{Total: len(assignments)}
	for _, a := range assignments {
		switch {
		case a.Status == StatusCompleted:
			summary.Completed++
		case a.Status == StatusRevoked:
			summary.Revoked++
		case IsOverdue(a, now):
			summary.Overdue++
		case activeStatuses.Contains(a.Status):
			summary.Pending++
		}
	}
	return summary
}
