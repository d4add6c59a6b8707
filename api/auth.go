package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/solace-health/therapy/config"
	errs "github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/users"
)

type AuthKey string

var AuthContextKey = AuthKey("auth")

// Auth is the authenticated principal attached to the request context.
type Auth struct {
	User *users.User
}

type Authenticator interface {
	ValidateAndSetAuthData(token string, ec echo.Context) (bool, error)
}

type AuthMiddlewareOpts struct {
	Skipper middleware.Skipper
}

func NewAuthMiddleware(authenticator Authenticator, opts AuthMiddlewareOpts) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if opts.Skipper != nil && opts.Skipper(c) {
				return next(c)
			}

			token := bearerToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authorization token is missing")
			}

			valid, err := authenticator.ValidateAndSetAuthData(token, c)
			if err != nil || !valid {
				return &echo.HTTPError{
					Code:     http.StatusUnauthorized,
					Message:  "authorization token is invalid",
					Internal: err,
				}
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// JwtAuthenticator resolves the token subject against the user store so
// handlers always see a live user document, not just claims.
type JwtAuthenticator struct {
	secret string
	users  users.Service
}

var _ Authenticator = &JwtAuthenticator{}

func NewAuthenticator(cfg *config.Config, usersService users.Service) (Authenticator, error) {
	return &JwtAuthenticator{
		secret: cfg.JwtSecret,
		users:  usersService,
	}, nil
}

func (a *JwtAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.Unauthorized
		}
		return []byte(a.secret), nil
	})
	if err != nil || !parsed.Valid {
		return false, err
	}

	userId, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return false, err
	}

	user, err := a.users.Get(ec.Request().Context(), userId)
	if err != nil {
		return false, err
	}

	SetAuthData(ec, &Auth{User: user})
	return true, nil
}

func GetAuthData(ctx context.Context) *Auth {
	if auth, ok := ctx.Value(AuthContextKey).(*Auth); ok {
		return auth
	}
	return nil
}

func SetAuthData(ec echo.Context, auth *Auth) {
	ctx := context.WithValue(ec.Request().Context(), AuthContextKey, auth)
	ec.SetRequest(ec.Request().WithContext(ctx))
}

// currentUser returns the authenticated user or an unauthorized error when the
// route was reached without auth data.
func currentUser(c echo.Context) (*users.User, error) {
	auth := GetAuthData(c.Request().Context())
	if auth == nil || auth.User == nil {
		return nil, errs.Unauthorized
	}
	return auth.User, nil
}

func currentTherapist(c echo.Context) (*users.User, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	if user.Role != users.RoleTherapist {
		return nil, errs.Forbiddenf("therapist role required")
	}
	return user, nil
}

func currentClient(c echo.Context) (*users.User, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	if !user.IsClient() {
		return nil, errs.Forbiddenf("client role required")
	}
	return user, nil
}

// RouteSkipper exempts exact paths from a middleware.
func RouteSkipper(paths []string) middleware.Skipper {
	return func(c echo.Context) bool {
		for _, path := range paths {
			if c.Request().URL.Path == path {
				return true
			}
		}
		return false
	}
}
