package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/solace-health/therapy/therapists"
)

var calendlyCmd = &cobra.Command{
	Use:   "calendly",
	Short: "Manage therapist calendar connections",
}

var calendlyDisconnectCmd = &cobra.Command{
	Use:   "disconnect [therapistId]",
	Short: "Drop a therapist's stored Calendly identity and credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		therapistId, err := primitive.ObjectIDFromHex(args[0])
		if err != nil {
			return fmt.Errorf("invalid therapist id: %w", err)
		}

		return Run(func(service therapists.Service) error {
			if err := service.DisconnectCalendly(context.TODO(), therapistId); err != nil {
				return err
			}
			fmt.Printf("Disconnected calendly for %s\n", therapistId.Hex())
			return nil
		})
	},
}

func init() {
	calendlyCmd.AddCommand(calendlyDisconnectCmd)
	rootCmd.AddCommand(calendlyCmd)
}
