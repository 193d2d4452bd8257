package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify Gmail API connectivity",
	Long: `Verify that the configured credentials can reach the Gmail API.

On success, prints the connected account's email address and message
counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, client, err := newHandler(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		if err := h.CheckConnection(cmd.Context()); err != nil {
			return err
		}

		profile, err := h.Profile(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Connected as %s\n", profile.EmailAddress)
		fmt.Printf("  Messages:   %d\n", profile.MessagesTotal)
		fmt.Printf("  Threads:    %d\n", profile.ThreadsTotal)
		fmt.Printf("  History ID: %d\n", profile.HistoryID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
