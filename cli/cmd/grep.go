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

var grepCmd = &cobra.Command{
	Use:   "grep <pattern> <callId>",
	Short: "Searches the details of a call's monitoring events.",
	Long:  `Prints the monitoring events of a call whose details match a regular expression.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		pattern := args[0]
		callID := args[1]

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		path := "/api/monitoring/call/" + url.PathEscape(callID) + "?q=" + url.QueryEscape(pattern)
		var events []adaptor.EventView
		if err := apiDo(ctx, http.MethodGet, path, nil, &events); err != nil {
			fmt.Fprintf(os.Stderr, "Error searching for pattern '%s' in %s: %v\n", pattern, callID, err)
			return
		}
		for _, e := range events {
			fmt.Println(formatEvent(e))
		}
	},
}

func init() {
	rootCmd.AddCommand(grepCmd)
}
