/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Prints the identity this client connects with.",
	Long:  `Prints the user id, display name and role sent to the server on every connection.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		profile, err := currentProfile()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		role := profile.Role.String()
		if profile.Role == "" {
			role = "(from server)"
		}
		fmt.Printf("UserID: %s\nUserName: %s\nRole: %s\n", profile.UserID, profile.DisplayName(), role)
	},
}

func init() {
	rootCmd.AddCommand(idCmd)
}
