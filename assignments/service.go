package assignments

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	errs "github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/quizzes"
	"github.com/solace-health/therapy/users"
)

type service struct {
	repo    Repository
	users   users.Service
	quizzes quizzes.Service
	logger  *zap.SugaredLogger
}

var _ Service = &service{}

func NewService(repo Repository, users users.Service, quizzes quizzes.Service, logger *zap.SugaredLogger) (Service, error) {
	return &service{
		repo:    repo,
		users:   users,
		quizzes: quizzes,
		logger:  logger,
	}, nil
}

// ensureClientAccess verifies the client exists and is currently assigned to
// the therapist.
func (s *service) ensureClientAccess(ctx context.Context, therapistId, clientId primitive.ObjectID) (*users.User, error) {
	client, err := s.users.Get(ctx, clientId)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, errs.NotFoundf("client not found")
		}
		return nil, err
	}
	if !client.IsClient() {
		return nil, errs.NotFoundf("client not found")
	}
	if !client.IsClientOf(therapistId) {
		return nil, errs.Forbiddenf("this client is not assigned to this therapist")
	}
	return client, nil
}

func (s *service) Assign(ctx context.Context, therapistId primitive.ObjectID, params NewAssignment) (*Assignment, error) {
	if len(params.Note) > MaxNoteLength {
		return nil, errs.Badf("assignment note must be at most %d characters", MaxNoteLength)
	}

	client, err := s.ensureClientAccess(ctx, therapistId, params.ClientId)
	if err != nil {
		return nil, err
	}

	quiz, err := s.quizzes.Get(ctx, params.QuizId)
	if err != nil {
		if errors.Is(err, quizzes.ErrNotFound) {
			return nil, errs.NotFoundf("quiz not found")
		}
		return nil, err
	}
	if !quiz.Active() {
		return nil, errs.Badf("quiz is not active and cannot be assigned")
	}

	now := time.Now()
	dueAt := params.DueAt
	if dueAt == nil {
		d := now.Add(DefaultDueWindow)
		dueAt = &d
	}

	assignment := Assignment{
		UserId:      *client.Id,
		TherapistId: therapistId,
		QuizId:      *quiz.Id,
		Status:      StatusAssigned,
		AssignedAt:  now,
		DueAt:       dueAt,
		Note:        params.Note,
		Source:      SourceTherapistManual,
		UpdatedAt:   &now,
	}

	created, err := s.repo.Create(ctx, assignment)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("assigned quiz to client",
		"therapistId", therapistId.Hex(), "clientId", client.Id.Hex(), "quizId", quiz.Id.Hex())

	// The grant is an idempotent set-add, so duplicate assignments of the
	// same quiz are harmless.
	if err := s.users.GrantQuizAccess(ctx, *client.Id, *quiz.Id); err != nil {
		return nil, err
	}

	return created, nil
}

func (s *service) Get(ctx context.Context, therapistId, clientId, assignmentId primitive.ObjectID) (*Assignment, error) {
	if _, err := s.ensureClientAccess(ctx, therapistId, clientId); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, therapistId, clientId, assignmentId)
}

func (s *service) ListForClient(ctx context.Context, therapistId, clientId primitive.ObjectID) ([]*Assignment, error) {
	if _, err := s.ensureClientAccess(ctx, therapistId, clientId); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, therapistId, []primitive.ObjectID{clientId})
}

func (s *service) ListForClients(ctx context.Context, therapistId primitive.ObjectID, clientIds []primitive.ObjectID) ([]*Assignment, error) {
	return s.repo.List(ctx, therapistId, clientIds)
}

func (s *service) UpdateAssignment(ctx context.Context, therapistId, clientId, assignmentId primitive.ObjectID, update Update) (*Assignment, error) {
	if _, err := s.ensureClientAccess(ctx, therapistId, clientId); err != nil {
		return nil, err
	}

	assignment, err := s.repo.Get(ctx, therapistId, clientId, assignmentId)
	if err != nil {
		return nil, err
	}

	// All checks run before any write so a rejected update leaves the
	// assignment untouched.
	if update.Revoke && assignment.Status == StatusCompleted {
		return nil, errs.Badf("completed assignments cannot be revoked")
	}

	if update.Revoke {
		assignment, err = s.repo.Revoke(ctx, *assignment.Id, time.Now())
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				return nil, errs.Badf("completed assignments cannot be revoked")
			}
			return nil, err
		}
		s.logger.Infow("revoked quiz assignment",
			"therapistId", therapistId.Hex(), "assignmentId", assignmentId.Hex())
	}

	if update.SetDueAt {
		assignment, err = s.repo.SetDueAt(ctx, *assignment.Id, update.DueAt)
		if err != nil {
			return nil, err
		}
	}

	return assignment, nil
}

func (s *service) MarkInProgress(ctx context.Context, userId, quizId primitive.ObjectID) error {
	return s.repo.TransitionByQuiz(ctx, userId, quizId, StatusAssigned, StatusInProgress, time.Now())
}

func (s *service) MarkCompleted(ctx context.Context, userId, quizId primitive.ObjectID) error {
	now := time.Now()
	if err := s.repo.TransitionByQuiz(ctx, userId, quizId, StatusInProgress, StatusCompleted, now); err != nil {
		return err
	}
	// A client may submit without the open transition having been recorded.
	return s.repo.TransitionByQuiz(ctx, userId, quizId, StatusAssigned, StatusCompleted, now)
}
