package therapists

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotFound = errors.New("therapist profile not found")

// Profile extends a therapist user with presentation fields and the Calendly
// OAuth credentials the integration owns. The connection flag and the token
// fields can disagree: a profile may still be flagged connected after its
// tokens were revoked, which is surfaced as a reconnect-required state.
type Profile struct {
	Id          *primitive.ObjectID `bson:"_id,omitempty"`
	UserId      primitive.ObjectID  `bson:"user"`
	DisplayName *string             `bson:"displayName,omitempty"`
	Title       *string             `bson:"title,omitempty"`
	Timezone    *string             `bson:"timezone,omitempty"`
	Bio         *string             `bson:"bio,omitempty"`

	CalendlyConnected       bool       `bson:"calendlyConnected"`
	CalendlyUserUri         string     `bson:"calendlyUserUri,omitempty"`
	CalendlyOrganizationUri string     `bson:"calendlyOrganizationUri,omitempty"`
	CalendlyUrl             string     `bson:"calendlyUrl,omitempty"`
	CalendlyConnectedAt     *time.Time `bson:"calendlyConnectedAt,omitempty"`
	CalendlyAccessToken     string     `bson:"calendlyAccessToken,omitempty"`
	CalendlyRefreshToken    string     `bson:"calendlyRefreshToken,omitempty"`
	CalendlyTokenExpiresAt  *time.Time `bson:"calendlyTokenExpiresAt,omitempty"`

	CreatedAt *time.Time `bson:"createdAt,omitempty"`
	UpdatedAt *time.Time `bson:"updatedAt,omitempty"`
}

func (p *Profile) HasCalendlyIdentity() bool {
	return p.CalendlyUserUri != "" || p.CalendlyOrganizationUri != "" || p.CalendlyUrl != ""
}

func (p *Profile) HasOAuthToken() bool {
	return p.CalendlyAccessToken != "" || p.CalendlyRefreshToken != ""
}

type ConnectionStatus struct {
	Connected         bool       `json:"calendlyConnected"`
	ReconnectRequired bool       `json:"reconnectRequired"`
	UserUri           string     `json:"calendlyUserUri"`
	OrganizationUri   string     `json:"calendlyOrganizationUri"`
	SchedulingUrl     string     `json:"calendlyUrl"`
	ConnectedAt       *time.Time `json:"calendlyConnectedAt"`
}

// Status derives the effective connection state. A nil profile reads as
// disconnected.
func Status(p *Profile) ConnectionStatus {
	if p == nil {
		return ConnectionStatus{}
	}
	return ConnectionStatus{
		Connected:         p.CalendlyConnected && p.HasCalendlyIdentity() && p.HasOAuthToken(),
		ReconnectRequired: p.CalendlyConnected && p.HasCalendlyIdentity() && !p.HasOAuthToken(),
		UserUri:           p.CalendlyUserUri,
		OrganizationUri:   p.CalendlyOrganizationUri,
		SchedulingUrl:     p.CalendlyUrl,
		ConnectedAt:       p.CalendlyConnectedAt,
	}
}

// Connection carries everything persisted when the OAuth callback completes.
type Connection struct {
	UserUri         string
	OrganizationUri string
	SchedulingUrl   string
	AccessToken     string
	RefreshToken    string
	TokenExpiresAt  time.Time
}

type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type Service interface {
	GetByUserId(ctx context.Context, userId primitive.ObjectID) (*Profile, error)
	GetByCalendlyUserUri(ctx context.Context, userUri string) (*Profile, error)
	SetCalendlyConnection(ctx context.Context, userId primitive.ObjectID, connection Connection) (*Profile, error)
	UpdateCalendlyTokens(ctx context.Context, userId primitive.ObjectID, tokens Tokens) error
	ClearCalendlyAuth(ctx context.Context, userId primitive.ObjectID) error
	DisconnectCalendly(ctx context.Context, userId primitive.ObjectID) error
}
