package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/solace-health/therapy/users"
)

var clientsAssignCmd = &cobra.Command{
	Use:   "assign [clientId] [therapistId]",
	Short: "Assign a client to a therapist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		clientId, err := primitive.ObjectIDFromHex(args[0])
		if err != nil {
			return fmt.Errorf("invalid client id: %w", err)
		}
		therapistId, err := primitive.ObjectIDFromHex(args[1])
		if err != nil {
			return fmt.Errorf("invalid therapist id: %w", err)
		}

		return Run(func(service users.Service) error {
			client, err := service.AssignTherapist(context.TODO(), clientId, therapistId)
			if err != nil {
				return err
			}
			fmt.Printf("Assigned %s to therapist %s\n", client.Id.Hex(), therapistId.Hex())
			return nil
		})
	},
}

func init() {
	clientsCmd.AddCommand(clientsAssignCmd)
}
