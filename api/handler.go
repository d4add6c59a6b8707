package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"

	"github.com/solace-health/therapy/appointments"
	"github.com/solace-health/therapy/assignments"
	"github.com/solace-health/therapy/calendly"
	"github.com/solace-health/therapy/chat"
	errs "github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/quizzes"
	"github.com/solace-health/therapy/roster"
	"github.com/solace-health/therapy/store"
	"github.com/solace-health/therapy/therapists"
	"github.com/solace-health/therapy/userinfo"
	"github.com/solace-health/therapy/users"
)

type Handler struct {
	roster       *roster.Service
	quizzes      quizzes.Service
	assignments  assignments.Service
	appointments appointments.Service
	calendly     *calendly.Service
	chat         chat.Service
	users        users.Service
	therapists   therapists.Service
	userinfo     userinfo.Service
}

type Params struct {
	fx.In

	Roster       *roster.Service
	Quizzes      quizzes.Service
	Assignments  assignments.Service
	Appointments appointments.Service
	Calendly     *calendly.Service
	Chat         chat.Service
	Users        users.Service
	Therapists   therapists.Service
	Userinfo     userinfo.Service
}

func NewHandler(p Params) *Handler {
	return &Handler{
		roster:       p.Roster,
		quizzes:      p.Quizzes,
		assignments:  p.Assignments,
		appointments: p.Appointments,
		calendly:     p.Calendly,
		chat:         p.Chat,
		users:        p.Users,
		therapists:   p.Therapists,
		userinfo:     p.Userinfo,
	}
}

func RegisterHandlers(e *echo.Echo, h *Handler) {
	v1 := e.Group("/v1")

	therapist := v1.Group("/therapist")
	therapist.GET("/clients", h.ListClients)
	therapist.GET("/clients/:clientId", h.ClientOverview)
	therapist.GET("/clients/:clientId/quizzes", h.ListAssignments)
	therapist.POST("/clients/:clientId/quizzes", h.AssignQuiz)
	therapist.PATCH("/clients/:clientId/quizzes/:assignmentId", h.UpdateAssignment)
	therapist.GET("/clients/:clientId/chat", h.TherapistThread)
	therapist.POST("/clients/:clientId/chat/messages", h.TherapistSendMessage)
	therapist.GET("/quizzes", h.QuizLibrary)
	therapist.GET("/sessions/today", h.TodaySessions)
	therapist.GET("/bookings", h.TherapistBookings)
	therapist.GET("/calendly/connect-url", h.CalendlyConnectUrl)
	therapist.GET("/calendly/status", h.CalendlyStatus)
	therapist.POST("/calendly/disconnect", h.CalendlyDisconnect)

	me := v1.Group("/me")
	me.GET("", h.Me)
	me.GET("/therapist", h.MyTherapist)
	me.GET("/preferences", h.GetPreferences)
	me.PUT("/preferences", h.UpdatePreferences)
	me.GET("/sessions", h.MySessions)
	me.GET("/chat", h.MyThread)
	me.POST("/chat/messages", h.MySendMessage)
	me.POST("/quizzes/:quizId/start", h.StartQuiz)
	me.POST("/quizzes/:quizId/complete", h.CompleteQuiz)

	// Provider-facing routes carry no bearer token.
	v1.GET("/calendly/callback", h.CalendlyCallback)
	v1.POST("/calendly/webhook", h.CalendlyWebhook)
}

func respond(c echo.Context, code int, data any) error {
	return c.JSON(code, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func respondOk(c echo.Context, data any) error {
	return respond(c, http.StatusOK, data)
}

func pathObjectId(c echo.Context, name string) (primitive.ObjectID, error) {
	id, ok := store.ObjectIDFromString(c.Param(name))
	if !ok {
		return primitive.NilObjectID, errs.Badf("%s is not a valid id", name)
	}
	return id, nil
}

func queryPagination(c echo.Context) store.Pagination {
	pagination := store.DefaultPagination()
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 0 {
		pagination.Page = page
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 && limit <= 100 {
		pagination.Limit = limit
	}
	return pagination
}
