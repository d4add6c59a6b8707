package calendly

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/solace-health/therapy/therapists"
)

var _ = Describe("TokenManager", func() {
	var (
		therapistId primitive.ObjectID
		profile     *therapists.Profile
		client      *fakeClient
		profiles    *fakeProfiles
		manager     *TokenManager
	)

	BeforeEach(func() {
		therapistId = primitive.NewObjectID()
		expiresAt := time.Now().Add(time.Hour)
		profile = &therapists.Profile{
			UserId:                 therapistId,
			CalendlyConnected:      true,
			CalendlyUserUri:        "https://api.calendly.com/users/abc",
			CalendlyAccessToken:    "access-token",
			CalendlyRefreshToken:   "refresh-token",
			CalendlyTokenExpiresAt: &expiresAt,
		}
		client = &fakeClient{}
		profiles = newFakeProfiles(profile)

		var err error
		manager, err = NewTokenManager(client, profiles, zap.NewNop().Sugar())
		Expect(err).ToNot(HaveOccurred())
	})

	It("returns an unexpired token without contacting the provider", func() {
		token, err := manager.EnsureValidToken(context.Background(), profile)
		Expect(err).ToNot(HaveOccurred())
		Expect(token).To(Equal("access-token"))
		Expect(client.refreshCalls).To(BeZero())
	})

	It("returns a not connected error when no access token is stored", func() {
		profile.CalendlyAccessToken = ""

		_, err := manager.EnsureValidToken(context.Background(), profile)
		Expect(err).To(MatchError(ErrNotConnected))
	})

	Context("with an expired token", func() {
		BeforeEach(func() {
			expired := time.Now().Add(-time.Minute)
			profile.CalendlyTokenExpiresAt = &expired
		})

		It("refreshes and persists the rotated tokens", func() {
			client.refreshToken = &oauth2.Token{
				AccessToken:  "new-access",
				RefreshToken: "new-refresh",
				Expiry:       time.Now().Add(2 * time.Hour),
			}

			token, err := manager.EnsureValidToken(context.Background(), profile)
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("new-access"))

			updated := profiles.profiles[therapistId]
			Expect(updated.CalendlyAccessToken).To(Equal("new-access"))
			Expect(updated.CalendlyRefreshToken).To(Equal("new-refresh"))
			Expect(updated.CalendlyTokenExpiresAt.After(time.Now())).To(BeTrue())
		})

		It("keeps the previous refresh token when rotation returns none", func() {
			client.refreshToken = &oauth2.Token{
				AccessToken: "new-access",
				Expiry:      time.Now().Add(2 * time.Hour),
			}

			_, err := manager.EnsureValidToken(context.Background(), profile)
			Expect(err).ToNot(HaveOccurred())
			Expect(profiles.profiles[therapistId].CalendlyRefreshToken).To(Equal("refresh-token"))
		})

		It("refreshes with the stored refresh token after a concurrent rotation", func() {
			stale := *profile
			stale.CalendlyRefreshToken = "stale-refresh"
			profile.CalendlyRefreshToken = "rotated-refresh"

			client.refreshToken = &oauth2.Token{
				AccessToken: "new-access",
				Expiry:      time.Now().Add(2 * time.Hour),
			}

			token, err := manager.EnsureValidToken(context.Background(), &stale)
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("new-access"))
			Expect(client.lastRefreshToken).To(Equal("rotated-refresh"))
			Expect(profiles.profiles[therapistId].CalendlyRefreshToken).To(Equal("rotated-refresh"))
		})

		It("requires a reconnect when no refresh token remains", func() {
			profile.CalendlyRefreshToken = ""

			_, err := manager.EnsureValidToken(context.Background(), profile)
			Expect(err).To(MatchError(ErrReconnectRequired))
			Expect(client.refreshCalls).To(BeZero())
		})

		It("clears stored credentials when the grant was revoked", func() {
			client.refreshErr = fmt.Errorf("%w: token revoked", ErrInvalidGrant)

			_, err := manager.EnsureValidToken(context.Background(), profile)
			Expect(errors.Is(err, ErrInvalidGrant)).To(BeTrue())
			Expect(profiles.clearedAuth).To(ConsistOf(therapistId))
			Expect(profiles.profiles[therapistId].CalendlyAccessToken).To(BeEmpty())
		})
	})
})
