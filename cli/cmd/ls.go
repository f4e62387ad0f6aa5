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

var lsCmd = &cobra.Command{
	Use:   "ls <callId>",
	Short: "Lists the participants of a call and their focus status.",
	Long: `Lists everyone currently in a call together with every peer the server still
tracks for it (including those who went offline) and their last activity.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		var view adaptor.PresenceView
		if err := apiDo(ctx, http.MethodGet, "/api/presence/"+url.PathEscape(args[0]), nil, &view); err != nil {
			fmt.Fprintf(os.Stderr, "Error listing %s: %v\n", args[0], err)
			return
		}

		if len(view.Users) == 0 && len(view.Peers) == 0 {
			fmt.Println("Call is empty or does not exist.")
			return
		}

		fmt.Printf("%d in call, %d active\n", len(view.Users), view.Active)
		for _, p := range view.Peers {
			formattedTime := "     "
			if !p.UpdatedAt.IsZero() {
				formattedTime = p.UpdatedAt.Local().Format("15:04")
			}
			fmt.Printf("%-10s  %s %-20s %s\n", p.Status, formattedTime, nameOr(p.UserName, p.UserID), p.LastActivity)
		}
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
