package calendly

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	stateTokenType = "calendly_oauth_state"
	stateTokenTTL  = 10 * time.Minute
)

var errInvalidState = errors.New("invalid oauth state token")

type stateClaims struct {
	jwt.RegisteredClaims
	TherapistId string `json:"therapistId"`
	Type        string `json:"type"`
}

// newStateToken binds the connect flow to the therapist who initiated it. The
// token rides through the provider as the OAuth state parameter.
func newStateToken(secret, therapistId string) (string, error) {
	now := time.Now()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTokenTTL)),
		},
		TherapistId: therapistId,
		Type:        stateTokenType,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseStateToken(secret, state string) (string, error) {
	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidState
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidState
	}
	if claims.Type != stateTokenType || claims.TherapistId == "" {
		return "", errInvalidState
	}

	return claims.TherapistId, nil
}
