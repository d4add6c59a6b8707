package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/solace-health/therapy/users"
)

var listTherapistId string

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the clients assigned to a therapist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(listClients)
	},
}

func listClients(service users.Service) error {
	therapistId, err := primitive.ObjectIDFromHex(listTherapistId)
	if err != nil {
		return fmt.Errorf("invalid therapist id: %w", err)
	}

	list, err := service.ListClients(context.TODO(), &users.ClientFilter{
		TherapistId: therapistId,
	})
	if err != nil {
		return err
	}

	for _, client := range list {
		name := ""
		if client.Name != nil {
			name = *client.Name
		}
		email := ""
		if client.Email != nil {
			email = *client.Email
		}

		fmt.Printf("%s %s %s onboarded=%v\n", client.Id.Hex(), name, email, client.HasOnboarded)
	}
	fmt.Printf("Found %v clients\n", len(list))

	return nil
}

func init() {
	clientsListCmd.Flags().StringVar(&listTherapistId, "therapist", "", "Therapist user id")
	_ = clientsListCmd.MarkFlagRequired("therapist")
	clientsCmd.AddCommand(clientsListCmd)
}
