package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/solace-health/therapy/assignments"
	errs "github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/store"
)

// QuizLibrary lists the active quizzes a therapist can assign from.
func (h *Handler) QuizLibrary(c echo.Context) error {
	if _, err := currentTherapist(c); err != nil {
		return err
	}

	library, err := h.quizzes.ListActive(c.Request().Context())
	if err != nil {
		return err
	}

	type quizView struct {
		Id              string `json:"id"`
		Title           string `json:"title"`
		Type            string `json:"type,omitempty"`
		DurationMinutes int    `json:"durationMinutes"`
		QuestionCount   int    `json:"questionCount"`
	}
	views := make([]quizView, 0, len(library))
	for _, quiz := range library {
		views = append(views, quizView{
			Id:              quiz.Id.Hex(),
			Title:           quiz.Title,
			Type:            quiz.Type,
			DurationMinutes: quiz.DurationMinutes(),
			QuestionCount:   quiz.QuestionCount,
		})
	}
	return respondOk(c, views)
}

func (h *Handler) ListAssignments(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}
	clientId, err := pathObjectId(c, "clientId")
	if err != nil {
		return err
	}

	list, err := h.assignments.ListForClient(c.Request().Context(), *therapist.Id, clientId)
	if err != nil {
		return err
	}

	now := time.Now()
	statusFilter := c.QueryParam("status")

	type assignmentView struct {
		*assignments.Assignment
		EffectiveStatus string `json:"effectiveStatus"`
	}
	views := make([]assignmentView, 0, len(list))
	for _, assignment := range list {
		effective := assignments.EffectiveStatus(assignment, now)
		if statusFilter != "" && effective != statusFilter {
			continue
		}
		views = append(views, assignmentView{
			Assignment:      assignment,
			EffectiveStatus: effective,
		})
	}
	// The summary always covers the full set so filtered views keep context.
	return respondOk(c, map[string]any{
		"assignments": views,
		"summary":     assignments.Summarize(list, now),
	})
}

type assignQuizRequest struct {
	QuizId string     `json:"quizId"`
	DueAt  *time.Time `json:"dueAt"`
	Note   string     `json:"note"`
}

func (h *Handler) AssignQuiz(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}
	clientId, err := pathObjectId(c, "clientId")
	if err != nil {
		return err
	}

	request := assignQuizRequest{}
	if err := c.Bind(&request); err != nil {
		return errs.Badf("invalid request body")
	}
	quizId, ok := store.ObjectIDFromString(request.QuizId)
	if !ok {
		return errs.Badf("quizId is not a valid id")
	}

	assignment, err := h.assignments.Assign(c.Request().Context(), *therapist.Id, assignments.NewAssignment{
		ClientId: clientId,
		QuizId:   quizId,
		DueAt:    request.DueAt,
		Note:     request.Note,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, assignment)
}

type updateAssignmentRequest struct {
	Revoke   bool       `json:"revoke"`
	SetDueAt bool       `json:"setDueAt"`
	DueAt    *time.Time `json:"dueAt"`
}

func (h *Handler) UpdateAssignment(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}
	clientId, err := pathObjectId(c, "clientId")
	if err != nil {
		return err
	}
	assignmentId, err := pathObjectId(c, "assignmentId")
	if err != nil {
		return err
	}

	request := updateAssignmentRequest{}
	if err := c.Bind(&request); err != nil {
		return errs.Badf("invalid request body")
	}

	assignment, err := h.assignments.UpdateAssignment(c.Request().Context(), *therapist.Id, clientId, assignmentId, assignments.Update{
		Revoke:   request.Revoke,
		SetDueAt: request.SetDueAt,
		DueAt:    request.DueAt,
	})
	if err != nil {
		return err
	}
	return respondOk(c, assignment)
}

// StartQuiz records that the client opened an assigned quiz.
func (h *Handler) StartQuiz(c echo.Context) error {
	client, err := currentClient(c)
	if err != nil {
		return err
	}
	quizId, err := pathObjectId(c, "quizId")
	if err != nil {
		return err
	}

	if err := h.assignments.MarkInProgress(c.Request().Context(), *client.Id, quizId); err != nil {
		return err
	}
	return respondOk(c, nil)
}

func (h *Handler) CompleteQuiz(c echo.Context) error {
	client, err := currentClient(c)
	if err != nil {
		return err
	}
	quizId, err := pathObjectId(c, "quizId")
	if err != nil {
		return err
	}

	if err := h.assignments.MarkCompleted(c.Request().Context(), *client.Id, quizId); err != nil {
		return err
	}
	return respondOk(c, nil)
}
