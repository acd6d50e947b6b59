package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Check the remote session",
		Long:  `Verify that the configured SESSDATA cookie still identifies a logged-in account.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := sess.CheckAuth(cmd.Context())
			if err != nil {
				return err
			}
			if !info.LoggedIn {
				fmt.Println("Not logged in. Refresh the SESSDATA cookie in your config.")
				return nil
			}
			fmt.Printf("Logged in as %s (uid %s)\n", info.Username, info.UID)
			return nil
		},
	}
}
