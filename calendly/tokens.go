package calendly

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solace-health/therapy/therapists"
)

var (
	// ErrNotConnected means the therapist never completed the OAuth connect
	// flow, or disconnected.
	ErrNotConnected = errors.New("calendly is not connected for this therapist")
	// ErrReconnectRequired means the access token expired and no refresh
	// token remains; only a new connect flow can recover.
	ErrReconnectRequired = errors.New("calendly token expired, reconnect required")
)

// TokenManager owns the OAuth token lifecycle of therapist calendar
// identities. Refreshes are serialized per therapist so concurrent requests
// do not burn refresh-token rotations.
type TokenManager struct {
	client   Client
	profiles therapists.Service
	logger   *zap.SugaredLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTokenManager(client Client, profiles therapists.Service, logger *zap.SugaredLogger) (*TokenManager, error) {
	return &TokenManager{
		client:   client,
		profiles: profiles,
		logger:   logger,
		locks:    map[string]*sync.Mutex{},
	}, nil
}

func (m *TokenManager) therapistLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// EnsureValidToken returns a usable access token, silently refreshing an
// expired one. A grant the provider reports as revoked clears the stored
// credentials and surfaces ErrInvalidGrant so callers can decide between
// degrading to empty results and reporting the disconnect.
func (m *TokenManager) EnsureValidToken(ctx context.Context, profile *therapists.Profile) (string, error) {
	if profile == nil || profile.CalendlyAccessToken == "" {
		return "", ErrNotConnected
	}

	if !tokenExpired(profile, time.Now()) {
		return profile.CalendlyAccessToken, nil
	}

	if profile.CalendlyRefreshToken == "" {
		return "", ErrReconnectRequired
	}

	lock := m.therapistLock(profile.UserId.Hex())
	lock.Lock()
	defer lock.Unlock()

	// Another request may have refreshed while this one waited on the lock.
	// The re-read is also the refresh-token source from here on, since a
	// concurrent refresh rotates it and the stale one reads as revoked.
	latest := profile
	current, err := m.profiles.GetByUserId(ctx, profile.UserId)
	if err == nil {
		if current.CalendlyAccessToken != "" && !tokenExpired(current, time.Now()) {
			return current.CalendlyAccessToken, nil
		}
		latest = current
	}
	if latest.CalendlyRefreshToken == "" {
		return "", ErrReconnectRequired
	}

	token, err := m.client.Refresh(ctx, latest.CalendlyRefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			m.logger.Warnw("calendly grant revoked, clearing credentials", "therapistId", profile.UserId.Hex())
			if clearErr := m.profiles.ClearCalendlyAuth(ctx, profile.UserId); clearErr != nil {
				m.logger.Errorw("failed to clear calendly credentials", "error", clearErr)
			}
		}
		return "", err
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = latest.CalendlyRefreshToken
	}
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Hour)
	}

	err = m.profiles.UpdateCalendlyTokens(ctx, profile.UserId, therapists.Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return "", err
	}

	m.logger.Debugw("refreshed calendly token", "therapistId", profile.UserId.Hex())
	return token.AccessToken, nil
}

func tokenExpired(profile *therapists.Profile, now time.Time) bool {
	return profile.CalendlyTokenExpiresAt != nil && !profile.CalendlyTokenExpiresAt.After(now)
}
