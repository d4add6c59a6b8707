package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/solace-health/therapy/appointments"
	"github.com/solace-health/therapy/calendly"
	errs "github.com/solace-health/therapy/errors"
)

func (h *Handler) CalendlyConnectUrl(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}

	url, err := h.calendly.ConnectUrl(*therapist.Id)
	if err != nil {
		return err
	}
	return respondOk(c, map[string]string{"url": url})
}

// CalendlyCallback lands here from the provider's consent screen. The browser
// is always redirected back to the connect page; errors ride in the query
// string rather than as API responses.
func (h *Handler) CalendlyCallback(c echo.Context) error {
	redirect := h.calendly.HandleCallback(
		c.Request().Context(),
		c.QueryParam("code"),
		c.QueryParam("state"),
	)
	return c.Redirect(http.StatusFound, redirect)
}

func (h *Handler) CalendlyStatus(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}

	status, err := h.calendly.Status(c.Request().Context(), *therapist.Id)
	if err != nil {
		return err
	}
	return respondOk(c, status)
}

func (h *Handler) CalendlyDisconnect(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}

	if err := h.calendly.Disconnect(c.Request().Context(), *therapist.Id); err != nil {
		return err
	}
	return respondOk(c, nil)
}

func (h *Handler) CalendlyWebhook(c echo.Context) error {
	event := calendly.WebhookEvent{}
	if err := c.Bind(&event); err != nil {
		return errs.Badf("invalid webhook payload")
	}

	if err := h.calendly.ProcessWebhook(c.Request().Context(), event); err != nil {
		return err
	}
	return respondOk(c, nil)
}

func (h *Handler) TodaySessions(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}

	overview, err := h.calendly.TodaySessions(c.Request().Context(), *therapist.Id)
	if err != nil {
		// Token lifecycle failures are actionable by the therapist, not bugs.
		if errors.Is(err, calendly.ErrNotConnected) || errors.Is(err, calendly.ErrReconnectRequired) || errors.Is(err, calendly.ErrInvalidGrant) {
			return errs.Badf("calendly connection needs attention: %v", err)
		}
		return err
	}
	return respondOk(c, overview)
}

// TherapistBookings lists every appointment recorded for the therapist,
// newest first, as session projections.
func (h *Handler) TherapistBookings(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}

	list, err := h.appointments.ListForTherapist(c.Request().Context(), *therapist.Id)
	if err != nil {
		return err
	}

	now := time.Now()
	views := make([]appointments.SessionView, 0, len(list))
	for _, appointment := range list {
		views = append(views, appointments.NewSessionView(appointment, now))
	}
	return respondOk(c, views)
}

func (h *Handler) MySessions(c echo.Context) error {
	client, err := currentClient(c)
	if err != nil {
		return err
	}

	overview, err := h.calendly.UserOverview(c.Request().Context(), client)
	if err != nil {
		return err
	}
	return respondOk(c, overview)
}
