/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponyo877/callwatch/server/adaptor"
)

var noteCmd = &cobra.Command{
	Use:   "note <studentId> <callId> <text...>",
	Short: "Leaves a teacher note about a student in a call.",
	Long:  `Stores a free-text note about a student in a call. The note is signed with your user id.`,
	Args:  cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		req := map[string]string{
			"studentId": args[0],
			"callId":    args[1],
			"note":      strings.Join(args[2:], " "),
		}
		var note adaptor.NoteView
		if err := apiDo(ctx, http.MethodPost, "/api/monitoring/notes", req, &note); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving note: %v\n", err)
			return
		}
		fmt.Printf("Note %s saved\n", note.ID)
	},
}

var eventCmd = &cobra.Command{
	Use:   "event <callId> <eventType> [details...]",
	Short: "Records a monitoring event without joining the call.",
	Long: `Records one monitoring event for yourself through the HTTP API. Nobody in
the call is notified; use send for live events.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		req := map[string]any{
			"callId":    args[0],
			"eventType": args[1],
			"details":   strings.Join(args[2:], " "),
			"timestamp": time.Now().UTC(),
		}
		var event adaptor.EventView
		if err := apiDo(ctx, http.MethodPost, "/api/monitoring/event", req, &event); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving event: %v\n", err)
			return
		}
		fmt.Println(formatEvent(event))
	},
}

func init() {
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(eventCmd)
}
