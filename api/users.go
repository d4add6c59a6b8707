package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	errs "github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/therapists"
	"github.com/solace-health/therapy/userinfo"
	"github.com/solace-health/therapy/users"
)

type userView struct {
	Id           string     `json:"id"`
	Name         string     `json:"name,omitempty"`
	Email        string     `json:"email,omitempty"`
	Role         string     `json:"role"`
	HasOnboarded bool       `json:"hasOnboarded"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

func newUserView(user *users.User) userView {
	view := userView{
		Role:         user.Role,
		HasOnboarded: user.HasOnboarded,
		CreatedAt:    user.CreatedAt,
	}
	if user.Id != nil {
		view.Id = user.Id.Hex()
	}
	if user.Name != nil {
		view.Name = *user.Name
	}
	if user.Email != nil {
		view.Email = *user.Email
	}
	return view
}

func (h *Handler) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return respondOk(c, newUserView(user))
}

type therapistView struct {
	userView
	DisplayName   string `json:"displayName,omitempty"`
	Title         string `json:"title,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	Bio           string `json:"bio,omitempty"`
	SchedulingUrl string `json:"schedulingUrl,omitempty"`
}

// MyTherapist returns the client's assigned therapist together with the
// profile presentation fields. Credentials never leave this projection.
func (h *Handler) MyTherapist(c echo.Context) error {
	client, err := currentClient(c)
	if err != nil {
		return err
	}
	if client.AssignedTherapist == nil {
		return errs.NotFoundf("no therapist assigned")
	}

	ctx := c.Request().Context()
	therapist, err := h.users.Get(ctx, *client.AssignedTherapist)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return errs.NotFoundf("assigned therapist not found")
		}
		return err
	}

	view := therapistView{userView: newUserView(therapist)}
	profile, err := h.therapists.GetByUserId(ctx, *client.AssignedTherapist)
	if err != nil && !errors.Is(err, therapists.ErrNotFound) {
		return err
	}
	if profile != nil {
		if profile.DisplayName != nil {
			view.DisplayName = *profile.DisplayName
		}
		if profile.Title != nil {
			view.Title = *profile.Title
		}
		if profile.Timezone != nil {
			view.Timezone = *profile.Timezone
		}
		if profile.Bio != nil {
			view.Bio = *profile.Bio
		}
		view.SchedulingUrl = profile.CalendlyUrl
	}

	return respondOk(c, view)
}

// GetPreferences reads the client's onboarding preferences. A client who never
// submitted any reads as an empty set, not an error.
func (h *Handler) GetPreferences(c echo.Context) error {
	client, err := currentClient(c)
	if err != nil {
		return err
	}

	preferences, err := h.userinfo.GetByUserId(c.Request().Context(), *client.Id)
	if errors.Is(err, userinfo.ErrNotFound) {
		preferences = &userinfo.Preferences{UserId: *client.Id}
	} else if err != nil {
		return err
	}

	return respondOk(c, preferences)
}

type updatePreferencesRequest struct {
	PrimaryConcern    string   `json:"primaryConcern"`
	LanguagePref      string   `json:"languagePref"`
	SessionMode       string   `json:"sessionMode"`
	AvailabilityPrefs []string `json:"availabilityPrefs"`
	ReminderChannel   string   `json:"reminderChannel"`
}

func (h *Handler) UpdatePreferences(c echo.Context) error {
	client, err := currentClient(c)
	if err != nil {
		return err
	}

	request := updatePreferencesRequest{}
	if err := c.Bind(&request); err != nil {
		return errs.Badf("invalid request body")
	}

	preferences, err := h.userinfo.Upsert(c.Request().Context(), userinfo.Preferences{
		UserId:            *client.Id,
		PrimaryConcern:    request.PrimaryConcern,
		LanguagePref:      request.LanguagePref,
		SessionMode:       request.SessionMode,
		AvailabilityPrefs: request.AvailabilityPrefs,
		ReminderChannel:   request.ReminderChannel,
	})
	if err != nil {
		return err
	}

	return respondOk(c, preferences)
}
