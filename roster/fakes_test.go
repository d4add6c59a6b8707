package roster_test

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/solace-health/therapy/appointments"
	"github.com/solace-health/therapy/assignments"
	"github.com/solace-health/therapy/quizzes"
	"github.com/solace-health/therapy/userinfo"
	"github.com/solace-health/therapy/users"
)

type fakeUsers struct {
	users   map[primitive.ObjectID]*users.User
	clients []*users.User
}

func (f *fakeUsers) Get(ctx context.Context, id primitive.ObjectID) (*users.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) ListClients(ctx context.Context, filter *users.ClientFilter) ([]*users.User, error) {
	return f.clients, nil
}

func (f *fakeUsers) AssignTherapist(ctx context.Context, userId, therapistId primitive.ObjectID) (*users.User, error) {
	return nil, users.ErrNotFound
}

func (f *fakeUsers) GrantQuizAccess(ctx context.Context, userId, quizId primitive.ObjectID) error {
	return nil
}

type fakeAppointments struct {
	byClient map[primitive.ObjectID][]*appointments.Appointment
}

func (f *fakeAppointments) UpsertByEventUri(ctx context.Context, appointment appointments.Appointment) (*appointments.Appointment, error) {
	return &appointment, nil
}

func (f *fakeAppointments) ListByEventUris(ctx context.Context, eventUris []string) ([]*appointments.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) ListForTherapist(ctx context.Context, therapistId primitive.ObjectID) ([]*appointments.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) ListForClients(ctx context.Context, therapistId primitive.ObjectID, clientIds []primitive.ObjectID) ([]*appointments.Appointment, error) {
	var result []*appointments.Appointment
	for _, clientId := range clientIds {
		result = append(result, f.byClient[clientId]...)
	}
	return result, nil
}

func (f *fakeAppointments) ListForClient(ctx context.Context, therapistId, clientId primitive.ObjectID) ([]*appointments.Appointment, error) {
	return f.byClient[clientId], nil
}

func (f *fakeAppointments) ListForUser(ctx context.Context, userId primitive.ObjectID, email string) ([]*appointments.Appointment, error) {
	return f.byClient[userId], nil
}

type fakeAssignments struct {
	byClient map[primitive.ObjectID][]*assignments.Assignment
}

func (f *fakeAssignments) Assign(ctx context.Context, therapistId primitive.ObjectID, params assignments.NewAssignment) (*assignments.Assignment, error) {
	return nil, assignments.ErrNotFound
}

func (f *fakeAssignments) Get(ctx context.Context, therapistId, clientId, assignmentId primitive.ObjectID) (*assignments.Assignment, error) {
	return nil, assignments.ErrNotFound
}

func (f *fakeAssignments) ListForClient(ctx context.Context, therapistId, clientId primitive.ObjectID) ([]*assignments.Assignment, error) {
	return f.byClient[clientId], nil
}

func (f *fakeAssignments) ListForClients(ctx context.Context, therapistId primitive.ObjectID, clientIds []primitive.ObjectID) ([]*assignments.Assignment, error) {
	var result []*assignments.Assignment
	for _, clientId := range clientIds {
		result = append(result, f.byClient[clientId]...)
	}
	return result, nil
}

func (f *fakeAssignments) UpdateAssignment(ctx context.Context, therapistId, clientId, assignmentId primitive.ObjectID, update assignments.Update) (*assignments.Assignment, error) {
	return nil, assignments.ErrNotFound
}

func (f *fakeAssignments) MarkInProgress(ctx context.Context, userId, quizId primitive.ObjectID) error {
	return nil
}

func (f *fakeAssignments) MarkCompleted(ctx context.Context, userId, quizId primitive.ObjectID) error {
	return nil
}

type fakeQuizzes struct {
	quizzes map[primitive.ObjectID]*quizzes.Quiz
}

func (f *fakeQuizzes) Get(ctx context.Context, id primitive.ObjectID) (*quizzes.Quiz, error) {
	quiz, ok := f.quizzes[id]
	if !ok {
		return nil, quizzes.ErrNotFound
	}
	return quiz, nil
}

func (f *fakeQuizzes) ListActive(ctx context.Context) ([]*quizzes.Quiz, error) {
	var result []*quizzes.Quiz
	for _, quiz := range f.quizzes {
		if quiz.Active() {
			result = append(result, quiz)
		}
	}
	return result, nil
}

type fakeUserinfo struct {
	byUser map[primitive.ObjectID]*userinfo.Preferences
}

func (f *fakeUserinfo) GetByUserId(ctx context.Context, userId primitive.ObjectID) (*userinfo.Preferences, error) {
	preferences, ok := f.byUser[userId]
	if !ok {
		return nil, userinfo.ErrNotFound
	}
	return preferences, nil
}

func (f *fakeUserinfo) Upsert(ctx context.Context, preferences userinfo.Preferences) (*userinfo.Preferences, error) {
	f.byUser[preferences.UserId] = &preferences
	return &preferences, nil
}
