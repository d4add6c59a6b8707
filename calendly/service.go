package calendly

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/solace-health/therapy/appointments"
	"github.com/solace-health/therapy/config"
	errs "github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/therapists"
	"github.com/solace-health/therapy/users"
)

// Service owns the Calendly integration: the OAuth connect flow, connection
// status, webhook ingestion and calendar reconciliation.
type Service struct {
	cfg          *Config
	jwtSecret    string
	client       Client
	tokens       *TokenManager
	profiles     therapists.Service
	users        users.Service
	appointments appointments.Service
	logger       *zap.SugaredLogger
}

func NewService(cfg *Config, appConfig *config.Config, client Client, tokens *TokenManager, profiles therapists.Service, usersService users.Service, appointmentsService appointments.Service, logger *zap.SugaredLogger) (*Service, error) {
	return &Service{
		cfg:          cfg,
		jwtSecret:    appConfig.JwtSecret,
		client:       client,
		tokens:       tokens,
		profiles:     profiles,
		users:        usersService,
		appointments: appointmentsService,
		logger:       logger,
	}, nil
}

// ConnectUrl builds the provider authorization URL for a therapist. The OAuth
// state parameter is a short-lived signed token naming the therapist, so the
// callback cannot be replayed against another account.
func (s *Service) ConnectUrl(therapistId primitive.ObjectID) (string, error) {
	if !s.cfg.Configured() {
		return "", errs.Internalf("calendly integration is not configured")
	}

	state, err := newStateToken(s.jwtSecret, therapistId.Hex())
	if err != nil {
		return "", errs.Internalf("unable to sign oauth state: %v", err)
	}

	return s.cfg.OAuth().AuthCodeURL(state), nil
}

// HandleCallback completes the OAuth flow. It always returns a redirect URL
// pointing back at the connect page, carrying either a success flag or an
// error message, so the browser never sees a bare API error.
func (s *Service) HandleCallback(ctx context.Context, code, state string) string {
	therapistId, token, err := s.completeConnection(ctx, code, state)
	if err != nil {
		s.logger.Warnw("calendly connect callback failed", "error", err)
		return s.redirectUrl(url.Values{
			"calendly": []string{"error"},
			"message":  []string{err.Error()},
		})
	}

	s.logger.Infow("calendly connected", "therapistId", therapistId.Hex(), "expiresAt", token.Expiry)
	return s.redirectUrl(url.Values{
		"calendly": []string{"connected"},
	})
}

func (s *Service) completeConnection(ctx context.Context, code, state string) (primitive.ObjectID, *oauth2.Token, error) {
	if !s.cfg.Configured() {
		return primitive.NilObjectID, nil, fmt.Errorf("calendly integration is not configured")
	}
	if code == "" || state == "" {
		return primitive.NilObjectID, nil, fmt.Errorf("missing code or state")
	}

	rawId, err := parseStateToken(s.jwtSecret, state)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	therapistId, err := primitive.ObjectIDFromHex(rawId)
	if err != nil {
		return primitive.NilObjectID, nil, errInvalidState
	}

	token, err := s.client.Exchange(ctx, code)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}

	resource, err := s.client.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Hour)
	}

	_, err = s.profiles.SetCalendlyConnection(ctx, therapistId, therapists.Connection{
		UserUri:         resource.Uri,
		OrganizationUri: resource.CurrentOrganization,
		SchedulingUrl:   resource.SchedulingUrl,
		AccessToken:     token.AccessToken,
		RefreshToken:    token.RefreshToken,
		TokenExpiresAt:  expiresAt,
	})
	if err != nil {
		return primitive.NilObjectID, nil, err
	}

	return therapistId, token, nil
}

func (s *Service) redirectUrl(params url.Values) string {
	base := s.cfg.ConnectPageUrl
	if base == "" {
		base = "/"
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return base
	}
	query := parsed.Query()
	for key, values := range params {
		for _, value := range values {
			query.Set(key, value)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// Status reports the therapist's effective connection state. A missing
// profile reads as disconnected rather than an error.
func (s *Service) Status(ctx context.Context, therapistId primitive.ObjectID) (therapists.ConnectionStatus, error) {
	profile, err := s.profiles.GetByUserId(ctx, therapistId)
	if err != nil {
		return therapists.Status(nil), nil
	}
	return therapists.Status(profile), nil
}

// Disconnect drops the stored identity and credentials. Already recorded
// appointments are untouched.
func (s *Service) Disconnect(ctx context.Context, therapistId primitive.ObjectID) error {
	return s.profiles.DisconnectCalendly(ctx, therapistId)
}
