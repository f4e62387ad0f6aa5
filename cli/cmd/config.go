/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponyo877/callwatch/server/adaptor"
)

var configCmd = &cobra.Command{
	Use:   "config [new_display_name]",
	Short: "Gets or sets your stored profile.",
	Long: `Manages the profile the server keeps for your user id.
If called without arguments, it displays the stored profile.
If called with an argument, it sets the display name (and the --user-image/--role
flags when given).`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		profile, err := currentProfile()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		path := "/api/users/" + url.PathEscape(profile.UserID)

		var res adaptor.ProfileView
		if len(args) == 0 {
			if err := apiDo(ctx, http.MethodGet, path, nil, &res); err != nil {
				fmt.Fprintf(os.Stderr, "Error getting profile: %v\n", err)
				return
			}
		} else {
			req := map[string]string{
				"userName":  args[0],
				"userImage": profile.Image,
				"role":      profile.Role.String(),
			}
			if err := apiDo(ctx, http.MethodPut, path, req, &res); err != nil {
				fmt.Fprintf(os.Stderr, "Error setting profile: %v\n", err)
				return
			}
		}
		fmt.Printf("Display Name: %s\nRole: %s\n", res.UserName, res.Role)
		if res.UserImage != "" {
			fmt.Printf("Image: %s\n", res.UserImage)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
