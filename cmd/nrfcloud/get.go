package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func getCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Send an authenticated GET and print the raw response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, _, err := clientFromConfig(*configPath)
			if err != nil {
				return err
			}

			body, err := client.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
}
