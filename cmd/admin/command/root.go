package command

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/solace-health/therapy/api"
)

// Run executes a given function with dependencies supplied by the service DI
// graph. `f` must return an error or nothing; `opts` can supply additional
// arguments that are not part of the service graph.
func Run(f interface{}, opts ...fx.Option) error {
	app := fx.New(append(opts,
		api.Dependencies(),
		fx.NopLogger,
		fx.Invoke(f),
	)...)
	if err := app.Err(); err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(ctx)
}

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Helper tool to manage the teletherapy service",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
