package api

import (
	"context"
	"fmt"

	"github.com/brpaz/echozap"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/solace-health/therapy/appointments"
	"github.com/solace-health/therapy/assignments"
	"github.com/solace-health/therapy/calendly"
	"github.com/solace-health/therapy/chat"
	"github.com/solace-health/therapy/config"
	"github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/logger"
	"github.com/solace-health/therapy/quizzes"
	"github.com/solace-health/therapy/roster"
	"github.com/solace-health/therapy/store"
	"github.com/solace-health/therapy/therapists"
	"github.com/solace-health/therapy/userinfo"
	"github.com/solace-health/therapy/users"
)

func Start(e *echo.Echo, cfg *config.Config, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(fmt.Sprintf(":%v", cfg.HttpPort)); err != nil {
					fmt.Println(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

func SetReady(healthCheck *HealthCheck, db *mongo.Database, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.Client().Ping(ctx, nil); err != nil {
				return err
			}

			// It's important this is set after mongo is initialized, which is ensured
			// by taking a dependency on mongo in the constructor, because lifecycle hooks
			// are executed in topological order
			healthCheck.SetReady(true)
			return nil
		},
		OnStop: nil,
	})
}

func NewServer(handler *Handler, healthCheck *HealthCheck, authenticator Authenticator, cfg *config.Config, log *zap.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	// Skip auth and request logging for the readiness probe and the
	// provider-facing routes, which authenticate themselves differently.
	skipper := RouteSkipper([]string{
		"/ready",
		"/v1/calendly/callback",
		"/v1/calendly/webhook",
	})

	e.Use(middleware.Recover())
	e.Use(echozap.ZapLogger(log))
	e.Use(NewAuthMiddleware(authenticator, AuthMiddlewareOpts{
		Skipper: skipper,
	}))

	e.HTTPErrorHandler = errors.NewHTTPErrorHandler(cfg.IsProduction())

	e.GET("/ready", healthCheck.Ready)
	RegisterHandlers(e, handler)

	return e, nil
}

// Dependencies wires every service the server needs. The admin CLI reuses it
// so both binaries are built from the same graph.
func Dependencies() fx.Option {
	return fx.Options(
		fx.Provide(
			config.NewConfig,
			logger.NewProductionLogger,
			logger.Sugar,
			store.NewConfig,
			store.NewClient,
			store.NewDatabase,
			users.NewRepository,
			users.NewService,
			therapists.NewRepository,
			therapists.NewService,
			userinfo.NewRepository,
			userinfo.NewService,
			quizzes.NewRepository,
			quizzes.NewService,
			appointments.NewRepository,
			appointments.NewService,
			assignments.NewRepository,
			assignments.NewService,
			roster.NewService,
			calendly.NewConfig,
			calendly.NewClient,
			calendly.NewTokenManager,
			calendly.NewService,
			chat.NewRepository,
			chat.NewCrypto,
			chat.NewLimiter,
			chat.NewService,
		),
	)
}

func MainLoop() {
	fx.New(
		Dependencies(),
		fx.Provide(
			NewAuthenticator,
			NewHealthCheck,
			NewHandler,
			NewServer,
		),
		fx.Invoke(SetReady),
		fx.Invoke(Start),
	).Run()
}
