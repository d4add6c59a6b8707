package command

import (
	"github.com/spf13/cobra"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage clients and their therapist assignments",
}

func init() {
	rootCmd.AddCommand(clientsCmd)
}
