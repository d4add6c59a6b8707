package roster

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/solace-health/therapy/appointments"
	"github.com/solace-health/therapy/assignments"
	errs "github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/quizzes"
	"github.com/solace-health/therapy/userinfo"
	"github.com/solace-health/therapy/users"
)

type ClientProfile struct {
	Id           primitive.ObjectID `json:"id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	HasOnboarded bool               `json:"hasOnboarded"`
}

type SessionGroups struct {
	Current  *appointments.SessionView  `json:"current"`
	Next     *appointments.SessionView  `json:"next"`
	Upcoming []appointments.SessionView `json:"upcoming"`
	Previous []appointments.SessionView `json:"previous"`
}

// AssignedQuizView joins an assignment with its quiz metadata and the
// presentation status derived at read time.
type AssignedQuizView struct {
	Id              primitive.ObjectID `json:"id"`
	QuizId          primitive.ObjectID `json:"quizId"`
	Title           string             `json:"title"`
	Type            string             `json:"type,omitempty"`
	DurationMinutes int                `json:"durationMinutes"`
	Status          string             `json:"status"`
	AssignedAt      time.Time          `json:"assignedAt"`
	DueAt           *time.Time         `json:"dueAt"`
	StartedAt       *time.Time         `json:"startedAt"`
	CompletedAt     *time.Time         `json:"completedAt"`
	Note            string             `json:"note,omitempty"`
}

type QuizSection struct {
	Active    []AssignedQuizView  `json:"active"`
	Completed []AssignedQuizView  `json:"completed"`
	Summary   assignments.Summary `json:"summary"`
	Attempted []AttemptedQuiz     `json:"attempted"`
}

type AttemptedQuiz struct {
	Id    primitive.ObjectID `json:"id"`
	Title string             `json:"title"`
}

type ClientOverview struct {
	Client      ClientProfile        `json:"client"`
	Sessions    SessionGroups        `json:"sessions"`
	Quizzes     QuizSection          `json:"quizzes"`
	Preferences *userinfo.Preferences `json:"preferences"`
}

// ClientOverview assembles everything the therapist's client detail page
// shows. A user outside the client role reads as not found; a client of
// another therapist is forbidden.
func (s *Service) ClientOverview(ctx context.Context, therapistId, clientId primitive.ObjectID) (*ClientOverview, error) {
	client, err := s.users.Get(ctx, clientId)
	if err != nil || !client.IsClient() {
		return nil, errs.NotFoundf("client %s not found", clientId.Hex())
	}
	if !client.IsClientOf(therapistId) {
		return nil, errs.Forbiddenf("client %s is not assigned to this therapist", clientId.Hex())
	}

	now := time.Now()

	sessions, err := s.appointments.ListForClient(ctx, therapistId, clientId)
	if err != nil {
		return nil, err
	}
	assigned, err := s.assignments.ListForClient(ctx, therapistId, clientId)
	if err != nil {
		return nil, err
	}

	overview := &ClientOverview{
		Client:   clientProfile(client),
		Sessions: groupSessions(sessions, now),
		Quizzes:  s.quizSection(ctx, client, assigned, now),
	}

	preferences, err := s.userinfo.GetByUserId(ctx, clientId)
	if err == nil {
		overview.Preferences = preferences
	} else if !errors.Is(err, userinfo.ErrNotFound) {
		return nil, err
	}

	return overview, nil
}

func clientProfile(client *users.User) ClientProfile {
	profile := ClientProfile{
		Id:           *client.Id,
		HasOnboarded: client.HasOnboarded,
	}
	if client.Name != nil {
		profile.Name = *client.Name
	}
	if client.Email != nil {
		profile.Email = *client.Email
	}
	return profile
}

// groupSessions partitions by stage. Previous sessions come back newest
// first; upcoming ones soonest first, with the first doubling as next.
func groupSessions(sessions []*appointments.Appointment, now time.Time) SessionGroups {
	groups := SessionGroups{
		Upcoming: []appointments.SessionView{},
		Previous: []appointments.SessionView{},
	}

	for _, session := range sessions {
		if session.Canceled() {
			continue
		}
		view := appointments.NewSessionView(session, now)
		switch view.Stage {
		case appointments.StageCurrent:
			if groups.Current == nil {
				current := view
				groups.Current = &current
			}
		case appointments.StageUpcoming:
			groups.Upcoming = append(groups.Upcoming, view)
		case appointments.StagePrevious:
			groups.Previous = append(groups.Previous, view)
		}
	}

	sort.SliceStable(groups.Upcoming, func(i, j int) bool {
		return sessionStart(groups.Upcoming[i]) < sessionStart(groups.Upcoming[j])
	})
	sort.SliceStable(groups.Previous, func(i, j int) bool {
		return sessionStart(groups.Previous[i]) > sessionStart(groups.Previous[j])
	})

	if len(groups.Upcoming) > 0 {
		groups.Next = &groups.Upcoming[0]
	}
	return groups
}

func sessionStart(view appointments.SessionView) int64 {
	if view.ScheduledAt == nil {
		return 0
	}
	return view.ScheduledAt.UnixMilli()
}

func (s *Service) quizSection(ctx context.Context, client *users.User, assigned []*assignments.Assignment, now time.Time) QuizSection {
	section := QuizSection{
		Active:    []AssignedQuizView{},
		Completed: []AssignedQuizView{},
		Summary:   assignments.Summarize(assigned, now),
		Attempted: []AttemptedQuiz{},
	}

	quizCache := map[primitive.ObjectID]*quizzes.Quiz{}
	lookup := func(id primitive.ObjectID) *quizzes.Quiz {
		if quiz, ok := quizCache[id]; ok {
			return quiz
		}
		quiz, err := s.quizzes.Get(ctx, id)
		if err != nil {
			quiz = nil
		}
		quizCache[id] = quiz
		return quiz
	}

	for _, assignment := range assigned {
		view := AssignedQuizView{
			Id:          *assignment.Id,
			QuizId:      assignment.QuizId,
			Status:      assignments.EffectiveStatus(assignment, now),
			AssignedAt:  assignment.AssignedAt,
			DueAt:       assignment.DueAt,
			StartedAt:   assignment.StartedAt,
			CompletedAt: assignment.CompletedAt,
			Note:        assignment.Note,
		}
		if quiz := lookup(assignment.QuizId); quiz != nil {
			view.Title = quiz.Title
			view.Type = quiz.Type
			view.DurationMinutes = quiz.DurationMinutes()
		}

		switch assignment.Status {
		case assignments.StatusCompleted:
			section.Completed = append(section.Completed, view)
		case assignments.StatusRevoked:
			// Revoked assignments stay out of both lists but count in the summary.
		default:
			section.Active = append(section.Active, view)
		}
	}

	for _, quizId := range client.AttemptedQuizzes {
		attempted := AttemptedQuiz{Id: quizId, Title: "Unknown Quiz"}
		if quiz := lookup(quizId); quiz != nil {
			attempted.Title = quiz.Title
		}
		section.Attempted = append(section.Attempted, attempted)
	}

	return section
}
