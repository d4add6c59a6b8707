package api

import (
	"github.com/labstack/echo/v4"

	"github.com/solace-health/therapy/roster"
	"github.com/solace-health/therapy/store"
)

func (h *Handler) ListClients(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}

	query := roster.Query{
		QuizActivity:  c.QueryParam("quizActivity"),
		SessionFilter: c.QueryParam("sessions"),
		Sort: store.Sort{
			Attribute: c.QueryParam("sortBy"),
			Ascending: c.QueryParam("sortOrder") != "desc",
		},
		Pagination: queryPagination(c),
	}
	if search := c.QueryParam("search"); search != "" {
		query.Search = &search
	}
	switch c.QueryParam("hasOnboarded") {
	case "true":
		value := true
		query.HasOnboarded = &value
	case "false":
		value := false
		query.HasOnboarded = &value
	}

	page, err := h.roster.ListClients(c.Request().Context(), *therapist.Id, query)
	if err != nil {
		return err
	}
	return respondOk(c, page)
}

func (h *Handler) ClientOverview(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}
	clientId, err := pathObjectId(c, "clientId")
	if err != nil {
		return err
	}

	overview, err := h.roster.ClientOverview(c.Request().Context(), *therapist.Id, clientId)
	if err != nil {
		return err
	}
	return respondOk(c, overview)
}
