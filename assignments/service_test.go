package assignments_test

import (
	"context"
	goerrors "errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/solace-health/therapy/assignments"
	"github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/pointer"
	"github.com/solace-health/therapy/quizzes"
	"github.com/solace-health/therapy/users"
)

type fakeUsers struct {
	byId    map[primitive.ObjectID]*users.User
	granted map[primitive.ObjectID][]primitive.ObjectID
}

func (f *fakeUsers) Get(_ context.Context, id primitive.ObjectID) (*users.User, error) {
	user, ok := f.byId[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) ListClients(_ context.Context, _ *users.ClientFilter) ([]*users.User, error) {
	return nil, nil
}

func (f *fakeUsers) AssignTherapist(_ context.Context, _, _ primitive.ObjectID) (*users.User, error) {
	return nil, nil
}

func (f *fakeUsers) GrantQuizAccess(_ context.Context, userId, quizId primitive.ObjectID) error {
	f.granted[userId] = append(f.granted[userId], quizId)
	return nil
}

type fakeQuizzes struct {
	byId map[primitive.ObjectID]*quizzes.Quiz
}

func (f *fakeQuizzes) Get(_ context.Context, id primitive.ObjectID) (*quizzes.Quiz, error) {
	quiz, ok := f.byId[id]
	if !ok {
		return nil, quizzes.ErrNotFound
	}
	return quiz, nil
}

func (f *fakeQuizzes) ListActive(_ context.Context) ([]*quizzes.Quiz, error) {
	return nil, nil
}

type fakeRepo struct {
	byId map[primitive.ObjectID]*assignments.Assignment
}

func (f *fakeRepo) Create(_ context.Context, assignment assignments.Assignment) (*assignments.Assignment, error) {
	id := primitive.NewObjectID()
	assignment.Id = &id
	f.byId[id] = &assignment
	return &assignment, nil
}

func (f *fakeRepo) Get(_ context.Context, therapistId, clientId, assignmentId primitive.ObjectID) (*assignments.Assignment, error) {
	assignment, ok := f.byId[assignmentId]
	if !ok || assignment.TherapistId != therapistId || assignment.UserId != clientId {
		return nil, assignments.ErrNotFound
	}
	return assignment, nil
}

func (f *fakeRepo) List(_ context.Context, therapistId primitive.ObjectID, clientIds []primitive.ObjectID) ([]*assignments.Assignment, error) {
	var result []*assignments.Assignment
	for _, a := range f.byId {
		if a.TherapistId != therapistId {
			continue
		}
		for _, clientId := range clientIds {
			if a.UserId == clientId {
				result = append(result, a)
			}
		}
	}
	return result, nil
}

func (f *fakeRepo) Revoke(_ context.Context, assignmentId primitive.ObjectID, revokedAt time.Time) (*assignments.Assignment, error) {
	assignment, ok := f.byId[assignmentId]
	if !ok || !assignments.IsActiveStatus(assignment.Status) {
		return nil, assignments.ErrInvalidTransition
	}
	assignment.Status = assignments.StatusRevoked
	assignment.RevokedAt = &revokedAt
	return assignment, nil
}

func (f *fakeRepo) SetDueAt(_ context.Context, assignmentId primitive.ObjectID, dueAt *time.Time) (*assignments.Assignment, error) {
	assignment, ok := f.byId[assignmentId]
	if !ok {
		return nil, assignments.ErrNotFound
	}
	assignment.DueAt = dueAt
	return assignment, nil
}

func (f *fakeRepo) TransitionByQuiz(_ context.Context, userId, quizId primitive.ObjectID, from, to string, at time.Time) error {
	for _, a := range f.byId {
		if a.UserId == userId && a.QuizId == quizId && a.Status == from {
			a.Status = to
		}
	}
	return nil
}

var _ = Describe("Service", func() {
	var (
		service     assignments.Service
		repo        *fakeRepo
		userStore   *fakeUsers
		quizStore   *fakeQuizzes
		therapistId primitive.ObjectID
		clientId    primitive.ObjectID
		quizId      primitive.ObjectID
	)

	BeforeEach(func() {
		therapistId = primitive.NewObjectID()
		clientId = primitive.NewObjectID()
		quizId = primitive.NewObjectID()

		client := &users.User{
			Id:                &clientId,
			Role:              users.RoleUser,
			AssignedTherapist: &therapistId,
		}
		quiz := &quizzes.Quiz{
			Id:    &quizId,
			Title: "Personality Inventory",
		}

		repo = &fakeRepo{byId: map[primitive.ObjectID]*assignments.Assignment{}}
		userStore = &fakeUsers{
			byId:    map[primitive.ObjectID]*users.User{clientId: client},
			granted: map[primitive.ObjectID][]primitive.ObjectID{},
		}
		quizStore = &fakeQuizzes{byId: map[primitive.ObjectID]*quizzes.Quiz{quizId: quiz}}

		var err error
		service, err = assignments.NewService(repo, userStore, quizStore, zap.NewNop().Sugar())
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("Assign", func() {
		It("defaults the due date to seven days from assignment", func() {
			before := time.Now()
			created, err := service.Assign(context.Background(), therapistId, assignments.NewAssignment{
				ClientId: clientId,
				QuizId:   quizId,
			})
			after := time.Now()

			Expect(err).ToNot(HaveOccurred())
			Expect(created.Status).To(Equal(assignments.StatusAssigned))
			Expect(created.DueAt).ToNot(BeNil())
			Expect(created.DueAt.Sub(created.AssignedAt)).To(Equal(assignments.DefaultDueWindow))
			Expect(created.AssignedAt).To(BeTemporally(">=", before))
			Expect(created.AssignedAt).To(BeTemporally("<=", after))

			summary := assignments.Summarize([]*assignments.Assignment{created}, time.Now())
			Expect(summary).To(Equal(assignments.Summary{Total: 1, Pending: 1}))
		})

		It("grants the client access to the quiz", func() {
			_, err := service.Assign(context.Background(), therapistId, assignments.NewAssignment{
				ClientId: clientId,
				QuizId:   quizId,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(userStore.granted[clientId]).To(ContainElement(quizId))
		})

		It("allows assigning the same quiz twice", func() {
			for i := 0; i < 2; i++ {
				_, err := service.Assign(context.Background(), therapistId, assignments.NewAssignment{
					ClientId: clientId,
					QuizId:   quizId,
				})
				Expect(err).ToNot(HaveOccurred())
			}
			Expect(repo.byId).To(HaveLen(2))
		})

		It("rejects clients of a different therapist", func() {
			otherTherapist := primitive.NewObjectID()
			_, err := service.Assign(context.Background(), otherTherapist, assignments.NewAssignment{
				ClientId: clientId,
				QuizId:   quizId,
			})

			httpErr := errors.HttpError{}
			Expect(goerrors.As(err, &httpErr)).To(BeTrue())
			Expect(httpErr.Code).To(Equal(403))
		})

		It("rejects inactive quizzes", func() {
			quizStore.byId[quizId].IsActive = pointer.FromAny(false)
			_, err := service.Assign(context.Background(), therapistId, assignments.NewAssignment{
				ClientId: clientId,
				QuizId:   quizId,
			})

			httpErr := errors.HttpError{}
			Expect(goerrors.As(err, &httpErr)).To(BeTrue())
			Expect(httpErr.Code).To(Equal(400))
		})
	})

	Describe("UpdateAssignment", func() {
		var assignmentId primitive.ObjectID

		BeforeEach(func() {
			created, err := service.Assign(context.Background(), therapistId, assignments.NewAssignment{
				ClientId: clientId,
				QuizId:   quizId,
			})
			Expect(err).ToNot(HaveOccurred())
			assignmentId = *created.Id
		})

		It("revokes an active assignment", func() {
			updated, err := service.UpdateAssignment(context.Background(), therapistId, clientId, assignmentId,
				assignments.Update{Revoke: true})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(assignments.StatusRevoked))
			Expect(updated.RevokedAt).ToNot(BeNil())
		})

		It("refuses to revoke a completed assignment", func() {
			repo.byId[assignmentId].Status = assignments.StatusCompleted

			_, err := service.UpdateAssignment(context.Background(), therapistId, clientId, assignmentId,
				assignments.Update{Revoke: true})

			httpErr := errors.HttpError{}
			Expect(goerrors.As(err, &httpErr)).To(BeTrue())
			Expect(httpErr.Code).To(Equal(400))
			Expect(repo.byId[assignmentId].Status).To(Equal(assignments.StatusCompleted))
		})

		It("clears the due date", func() {
			updated, err := service.UpdateAssignment(context.Background(), therapistId, clientId, assignmentId,
				assignments.Update{SetDueAt: true, DueAt: nil})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.DueAt).To(BeNil())
		})
	})

	Describe("MarkInProgress", func() {
		It("moves only assigned assignments", func() {
			created, err := service.Assign(context.Background(), therapistId, assignments.NewAssignment{
				ClientId: clientId,
				QuizId:   quizId,
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(service.MarkInProgress(context.Background(), clientId, quizId)).To(Succeed())
			Expect(repo.byId[*created.Id].Status).To(Equal(assignments.StatusInProgress))

			// A second open leaves it in progress.
			Expect(service.MarkInProgress(context.Background(), clientId, quizId)).To(Succeed())
			Expect(repo.byId[*created.Id].Status).To(Equal(assignments.StatusInProgress))
		})
	})
})
