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

var catCmd = &cobra.Command{
	Use:   "cat <callId...>",
	Short: "Displays every stored monitoring event of calls.",
	Long:  `Displays every monitoring event stored for one or more calls, oldest first.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, callID := range args {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
			var events []adaptor.EventView
			err := apiDo(ctx, http.MethodGet, "/api/monitoring/call/"+url.PathEscape(callID), nil, &events)
			cancel()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error listing events for %s: %v\n", callID, err)
				continue
			}
			for _, e := range events {
				fmt.Println(formatEvent(e))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
