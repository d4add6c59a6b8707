package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	errs "github.com/solace-health/therapy/errors"
)

type sendMessageRequest struct {
	Body string `json:"body"`
}

func (h *Handler) MyThread(c echo.Context) error {
	client, err := currentClient(c)
	if err != nil {
		return err
	}

	thread, err := h.chat.Thread(c.Request().Context(), client, nil)
	if err != nil {
		return err
	}
	return respondOk(c, thread)
}

func (h *Handler) MySendMessage(c echo.Context) error {
	client, err := currentClient(c)
	if err != nil {
		return err
	}

	request := sendMessageRequest{}
	if err := c.Bind(&request); err != nil {
		return errs.Badf("invalid request body")
	}

	message, err := h.chat.SendMessage(c.Request().Context(), client, nil, request.Body)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, message)
}

func (h *Handler) TherapistThread(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}
	clientId, err := pathObjectId(c, "clientId")
	if err != nil {
		return err
	}

	thread, err := h.chat.Thread(c.Request().Context(), therapist, &clientId)
	if err != nil {
		return err
	}
	return respondOk(c, thread)
}

func (h *Handler) TherapistSendMessage(c echo.Context) error {
	therapist, err := currentTherapist(c)
	if err != nil {
		return err
	}
	clientId, err := pathObjectId(c, "clientId")
	if err != nil {
		return err
	}

	request := sendMessageRequest{}
	if err := c.Bind(&request); err != nil {
		return errs.Badf("invalid request body")
	}

	message, err := h.chat.SendMessage(c.Request().Context(), therapist, &clientId, request.Body)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, message)
}
