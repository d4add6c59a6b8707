package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/solace-health/therapy/config"
	errs "github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/users"
)

const testSecret = "test-secret"

type fakeUsers struct {
	users map[primitive.ObjectID]*users.User
}

func (f *fakeUsers) Get(ctx context.Context, id primitive.ObjectID) (*users.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) ListClients(ctx context.Context, filter *users.ClientFilter) ([]*users.User, error) {
	return nil, nil
}

func (f *fakeUsers) AssignTherapist(ctx context.Context, userId, therapistId primitive.ObjectID) (*users.User, error) {
	return nil, users.ErrNotFound
}

func (f *fakeUsers) GrantQuizAccess(ctx context.Context, userId, quizId primitive.ObjectID) error {
	return nil
}

func signToken(secret string, subject string) string {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	Expect(err).ToNot(HaveOccurred())
	return token
}

var _ = Describe("Auth", func() {
	var (
		userId        primitive.ObjectID
		usersFake     *fakeUsers
		authenticator Authenticator
		server        *echo.Echo
	)

	BeforeEach(func() {
		userId = primitive.NewObjectID()
		usersFake = &fakeUsers{users: map[primitive.ObjectID]*users.User{}}
		usersFake.users[userId] = &users.User{
			Id:   &userId,
			Role: users.RoleTherapist,
		}

		var err error
		authenticator, err = NewAuthenticator(&config.Config{JwtSecret: testSecret}, usersFake)
		Expect(err).ToNot(HaveOccurred())

		server = echo.New()
		server.Use(NewAuthMiddleware(authenticator, AuthMiddlewareOpts{
			Skipper: RouteSkipper([]string{"/public"}),
		}))
		server.GET("/public", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		server.GET("/whoami", func(c echo.Context) error {
			user, err := currentUser(c)
			if err != nil {
				return err
			}
			return c.String(http.StatusOK, user.Id.Hex())
		})
	})

	request := func(token string, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	It("resolves the token subject to a live user", func() {
		rec := request(signToken(testSecret, userId.Hex()), "/whoami")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(userId.Hex()))
	})

	It("rejects requests without a token", func() {
		rec := request("", "/whoami")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects tokens signed with the wrong secret", func() {
		rec := request(signToken("other-secret", userId.Hex()), "/whoami")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects tokens whose subject no longer exists", func() {
		rec := request(signToken(testSecret, primitive.NewObjectID().Hex()), "/whoami")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("skips exempted routes", func() {
		rec := request("", "/public")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("Error handler", func() {
	newServer := func(production bool, failure error) *echo.Echo {
		server := echo.New()
		server.HTTPErrorHandler = errs.NewHTTPErrorHandler(production)
		server.GET("/fail", func(c echo.Context) error {
			return failure
		})
		return server
	}

	get := func(server *echo.Echo) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/fail", nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	It("renders domain errors in the envelope with their status code", func() {
		rec := get(newServer(true, errs.Badf("quizId is not a valid id")))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(MatchJSON(`{"status":"error","message":"quizId is not a valid id"}`))
	})

	It("hides internal details in production", func() {
		rec := get(newServer(true, context.DeadlineExceeded))
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(MatchJSON(`{"status":"error","message":"internal server error"}`))
	})

	It("includes diagnostic detail outside production", func() {
		rec := get(newServer(false, context.DeadlineExceeded))
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring("deadline"))
	})
})
