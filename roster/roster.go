package roster

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/solace-health/therapy/appointments"
	"github.com/solace-health/therapy/assignments"
	"github.com/solace-health/therapy/quizzes"
	"github.com/solace-health/therapy/store"
	"github.com/solace-health/therapy/userinfo"
	"github.com/solace-health/therapy/users"
)

const (
	QuizFilterHasPending   = "has_pending"
	QuizFilterOverdue      = "overdue"
	QuizFilterNoneAssigned = "none_assigned"

	SessionFilterUpcoming   = "upcoming"
	SessionFilterNoUpcoming = "no_upcoming"

	SortByName             = "name"
	SortByNextSessionAt    = "nextSessionAt"
	SortByPendingQuizCount = "pendingQuizCount"
	SortByLastActivityAt   = "lastActivityAt"
)

// Query narrows and orders a therapist's client roster. Search and onboarding
// filters apply at the store; quiz and session filters apply after the join,
// so the reported total reflects the filtered set.
type Query struct {
	Search        *string
	HasOnboarded  *bool
	QuizActivity  string
	SessionFilter string
	Sort          store.Sort
	Pagination    store.Pagination
}

// ClientRow is one roster line: the client joined with session timestamps and
// quiz workload.
type ClientRow struct {
	Id               primitive.ObjectID  `json:"id"`
	Name             string              `json:"name"`
	Email            string              `json:"email"`
	HasOnboarded     bool                `json:"hasOnboarded"`
	NextSessionAt    *time.Time          `json:"nextSessionAt"`
	LastSessionAt    *time.Time          `json:"lastSessionAt"`
	LastActivityAt   *time.Time          `json:"lastActivityAt"`
	PendingQuizCount int                 `json:"pendingQuizCount"`
	QuizSummary      assignments.Summary `json:"quizSummary"`
}

type Page struct {
	Clients    []ClientRow `json:"clients"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
}

// Service assembles therapist-facing views of clients. It owns no collection;
// everything is joined in memory from the domain services.
type Service struct {
	users        users.Service
	appointments appointments.Service
	assignments  assignments.Service
	quizzes      quizzes.Service
	userinfo     userinfo.Service
	logger       *zap.SugaredLogger
	collator     *collate.Collator
}

func NewService(usersService users.Service, appointmentsService appointments.Service, assignmentsService assignments.Service, quizzesService quizzes.Service, userinfoService userinfo.Service, logger *zap.SugaredLogger) (*Service, error) {
	return &Service{
		users:        usersService,
		appointments: appointmentsService,
		assignments:  assignmentsService,
		quizzes:      quizzesService,
		userinfo:     userinfoService,
		logger:       logger,
		collator:     collate.New(language.English, collate.IgnoreCase),
	}, nil
}

// ListClients returns one page of the therapist's roster. The base set comes
// from the user store; sessions and quiz assignments are joined per client
// before the quiz and session filters, the sort and the pagination apply.
func (s *Service) ListClients(ctx context.Context, therapistId primitive.ObjectID, query Query) (*Page, error) {
	clients, err := s.users.ListClients(ctx, &users.ClientFilter{
		TherapistId:  therapistId,
		Search:       query.Search,
		HasOnboarded: query.HasOnboarded,
	})
	if err != nil {
		return nil, err
	}

	clientIds := make([]primitive.ObjectID, 0, len(clients))
	for _, client := range clients {
		clientIds = append(clientIds, *client.Id)
	}

	sessions, err := s.appointments.ListForClients(ctx, therapistId, clientIds)
	if err != nil {
		return nil, err
	}
	assigned, err := s.assignments.ListForClients(ctx, therapistId, clientIds)
	if err != nil {
		return nil, err
	}

	sessionsByClient := map[primitive.ObjectID][]*appointments.Appointment{}
	for _, session := range sessions {
		if session.UserId != nil {
			sessionsByClient[*session.UserId] = append(sessionsByClient[*session.UserId], session)
		}
	}
	assignmentsByClient := map[primitive.ObjectID][]*assignments.Assignment{}
	for _, assignment := range assigned {
		assignmentsByClient[assignment.UserId] = append(assignmentsByClient[assignment.UserId], assignment)
	}

	now := time.Now()
	rows := make([]ClientRow, 0, len(clients))
	for _, client := range clients {
		rows = append(rows, s.buildRow(client, sessionsByClient[*client.Id], assignmentsByClient[*client.Id], now))
	}

	rows = filterRows(rows, query)
	s.sortRows(rows, query.Sort)

	pagination := query.Pagination
	if pagination.Page < 1 {
		pagination = store.DefaultPagination().WithLimit(pagination.Limit)
	}
	if pagination.Limit < 1 {
		pagination.Limit = store.DefaultPagination().Limit
	}

	total := len(rows)
	totalPages := (total + pagination.Limit - 1) / pagination.Limit
	start := pagination.Offset()
	if start > total {
		start = total
	}
	end := start + pagination.Limit
	if end > total {
		end = total
	}

	return &Page{
		Clients:    rows[start:end],
		Total:      total,
		Page:       pagination.Page,
		Limit:      pagination.Limit,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) buildRow(client *users.User, sessions []*appointments.Appointment, assigned []*assignments.Assignment, now time.Time) ClientRow {
	sessionSummary := appointments.SummarizeClientSessions(sessions, now)
	quizSummary := assignments.Summarize(assigned, now)

	row := ClientRow{
		Id:               *client.Id,
		HasOnboarded:     client.HasOnboarded,
		NextSessionAt:    sessionSummary.NextSessionAt,
		LastSessionAt:    sessionSummary.LastSessionAt,
		PendingQuizCount: quizSummary.Pending,
		QuizSummary:      quizSummary,
	}
	if client.Name != nil {
		row.Name = *client.Name
	}
	if client.Email != nil {
		row.Email = *client.Email
	}
	row.LastActivityAt = lastActivityAt(sessionSummary, assigned)
	return row
}

// lastActivityAt is the most recent of the last completed session and any
// assignment touch. Upcoming sessions do not count as activity.
func lastActivityAt(sessions appointments.ClientSessionSummary, assigned []*assignments.Assignment) *time.Time {
	latest := sessions.LastSessionAt
	for _, assignment := range assigned {
		touched := assignmentTouchedAt(assignment)
		if touched == nil {
			continue
		}
		if latest == nil || touched.After(*latest) {
			latest = touched
		}
	}
	return latest
}

func assignmentTouchedAt(a *assignments.Assignment) *time.Time {
	switch {
	case a.UpdatedAt != nil:
		return a.UpdatedAt
	case a.CompletedAt != nil:
		return a.CompletedAt
	case a.RevokedAt != nil:
		return a.RevokedAt
	case a.StartedAt != nil:
		return a.StartedAt
	}
	assignedAt := a.AssignedAt
	if assignedAt.IsZero() {
		return nil
	}
	return &assignedAt
}

func filterRows(rows []ClientRow, query Query) []ClientRow {
	filtered := rows[:0:0]
	for _, row := range rows {
		if !matchesQuizFilter(row, query.QuizActivity) {
			continue
		}
		if !matchesSessionFilter(row, query.SessionFilter) {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

func matchesQuizFilter(row ClientRow, filter string) bool {
	switch filter {
	case QuizFilterHasPending:
		return row.PendingQuizCount > 0
	case QuizFilterOverdue:
		return row.QuizSummary.Overdue > 0
	case QuizFilterNoneAssigned:
		return row.QuizSummary.Total == 0
	}
	return true
}

func matchesSessionFilter(row ClientRow, filter string) bool {
	switch filter {
	case SessionFilterUpcoming:
		return row.NextSessionAt != nil
	case SessionFilterNoUpcoming:
		return row.NextSessionAt == nil
	}
	return true
}

// sortRows orders the roster. Name comparisons are collated case-insensitive;
// rows missing the sort timestamp go last in either direction. Ties keep
// their input order.
func (s *Service) sortRows(rows []ClientRow, by store.Sort) {
	timeLess := func(a, b *time.Time, ascending bool) bool {
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		if a.Equal(*b) {
			return false
		}
		if ascending {
			return a.Before(*b)
		}
		return a.After(*b)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		switch by.Attribute {
		case SortByNextSessionAt:
			return timeLess(rows[i].NextSessionAt, rows[j].NextSessionAt, by.Ascending)
		case SortByPendingQuizCount:
			if rows[i].PendingQuizCount == rows[j].PendingQuizCount {
				return false
			}
			if by.Ascending {
				return rows[i].PendingQuizCount < rows[j].PendingQuizCount
			}
			return rows[i].PendingQuizCount > rows[j].PendingQuizCount
		case SortByLastActivityAt:
			return timeLess(rows[i].LastActivityAt, rows[j].LastActivityAt, by.Ascending)
		}

		cmp := s.collator.CompareString(rows[i].Name, rows[j].Name)
		if cmp == 0 {
			return false
		}
		if by.Ascending || by.Attribute == "" {
			return cmp < 0
		}
		return cmp > 0
	})
}
