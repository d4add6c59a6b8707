package calendly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const httpTimeout = 10 * time.Second

// ErrInvalidGrant marks a refresh token the provider reports as revoked or
// expired. It is a deterministic disconnect signal, not a transient failure.
var ErrInvalidGrant = errors.New("calendly authorization grant is invalid")

type UserResource struct {
	Uri                 string `json:"uri"`
	Name                string `json:"name"`
	SchedulingUrl       string `json:"scheduling_url"`
	CurrentOrganization string `json:"current_organization"`
}

type EventLocation struct {
	Type           string `json:"type"`
	Location       string `json:"location"`
	JoinUrl        string `json:"join_url"`
	AdditionalInfo string `json:"additional_info"`
}

type Event struct {
	Uri       string         `json:"uri"`
	Name      string         `json:"name"`
	StartTime *time.Time     `json:"start_time"`
	EndTime   *time.Time     `json:"end_time"`
	Timezone  string         `json:"timezone"`
	Location  *EventLocation `json:"location"`
}

type Invitee struct {
	Uri           string `json:"uri"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	RescheduleUrl string `json:"reschedule_url"`
	CancelUrl     string `json:"cancel_url"`
}

func (i *Invitee) DisplayName() string {
	if i == nil {
		return ""
	}
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// EventWindow bounds the scheduled-events listing. MaxStart may be zero for
// an open-ended window.
type EventWindow struct {
	MinStart time.Time
	MaxStart time.Time
}

type Client interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	CurrentUser(ctx context.Context, accessToken string) (*UserResource, error)
	ScheduledEvents(ctx context.Context, accessToken, userUri string, window EventWindow) ([]Event, error)
	FirstInvitee(ctx context.Context, accessToken, eventUri string) (*Invitee, error)
}

func NewClient(cfg *Config) (Client, error) {
	return &client{
		cfg:   cfg,
		oauth: cfg.OAuth(),
		http:  &http.Client{Timeout: httpTimeout},
	}, nil
}

type client struct {
	cfg   *Config
	oauth *oauth2.Config
	http  *http.Client
}

func (c *client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange calendly oauth code: %w", err)
	}
	return token, nil
}

func (c *client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	source := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		if isInvalidGrant(err) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidGrant, err.Error())
		}
		return nil, fmt.Errorf("unable to refresh calendly token: %w", err)
	}
	return token, nil
}

// isInvalidGrant detects revoked or expired grants from the provider's error
// code, falling back to a message heuristic for proxies that rewrite the
// body.
func isInvalidGrant(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return false
	}
	if retrieveErr.ErrorCode == "invalid_grant" {
		return true
	}
	message := strings.ToLower(retrieveErr.ErrorDescription + " " + string(retrieveErr.Body))
	return strings.Contains(message, "authorization grant is invalid") ||
		strings.Contains(message, "expired") ||
		strings.Contains(message, "revoked")
}

func (c *client) CurrentUser(ctx context.Context, accessToken string) (*UserResource, error) {
	var response struct {
		Resource UserResource `json:"resource"`
	}
	if err := c.get(ctx, accessToken, c.cfg.ApiUrl+"/users/me", &response); err != nil {
		return nil, fmt.Errorf("unable to fetch calendly user: %w", err)
	}
	return &response.Resource, nil
}

func (c *client) ScheduledEvents(ctx context.Context, accessToken, userUri string, window EventWindow) ([]Event, error) {
	query := url.Values{}
	query.Set("user", userUri)
	query.Set("min_start_time", window.MinStart.UTC().Format(time.RFC3339))
	if !window.MaxStart.IsZero() {
		query.Set("max_start_time", window.MaxStart.UTC().Format(time.RFC3339))
	}
	query.Set("status", "active")
	query.Set("sort", "start_time:asc")
	query.Set("count", "50")

	var response struct {
		Collection []Event `json:"collection"`
	}
	if err := c.get(ctx, accessToken, c.cfg.ApiUrl+"/scheduled_events?"+query.Encode(), &response); err != nil {
		return nil, fmt.Errorf("unable to fetch calendly scheduled events: %w", err)
	}
	return response.Collection, nil
}

func (c *client) FirstInvitee(ctx context.Context, accessToken, eventUri string) (*Invitee, error) {
	if eventUri == "" {
		return nil, nil
	}

	query := url.Values{}
	query.Set("count", "1")
	query.Set("sort", "created_at:asc")

	var response struct {
		Collection []Invitee `json:"collection"`
	}
	if err := c.get(ctx, accessToken, eventUri+"/invitees?"+query.Encode(), &response); err != nil {
		return nil, fmt.Errorf("unable to fetch calendly invitees: %w", err)
	}
	if len(response.Collection) == 0 {
		return nil, nil
	}
	return &response.Collection[0], nil
}

func (c *client) get(ctx context.Context, accessToken, rawUrl string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawUrl, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("calendly responded with status %d", res.StatusCode)
	}

	return json.NewDecoder(res.Body).Decode(out)
}
