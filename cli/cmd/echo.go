/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponyo877/callwatch/server/domain"
)

var echoCmd = &cobra.Command{
	Use:   "echo <text> <callId>",
	Short: "Posts a chat message to a call.",
	Long:  `Joins the call just long enough to post the given text to its chat.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		text := args[0]
		callID := args[1]

		profile, err := currentProfile()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		s, err := openSession(ctx, profile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to %s: %v\n", callID, err)
			return
		}
		defer s.Close()

		if err := s.Join(callID); err != nil {
			fmt.Fprintf(os.Stderr, "Error joining %s: %v\n", callID, err)
			return
		}
		if err := s.Send(domain.EventChatMessage, domain.ChatPayload{RoomID: callID, Content: text}); err != nil {
			fmt.Fprintf(os.Stderr, "Error posting to %s: %v\n", callID, err)
			return
		}
		// Wait for our own message to come back so it is not lost to the leave.
		for {
			env, err := s.Recv()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error waiting for %s: %v\n", callID, err)
				return
			}
			if env.Event == domain.EventChatMessage {
				var msg domain.ChatPayload
				if env.Decode(&msg) == nil && msg.UserID == profile.UserID && msg.Content == text {
					break
				}
			}
		}
		_ = s.Send(domain.EventLeaveCall, domain.RoomPayload{RoomID: callID})
		fmt.Printf("Text posted to %s\n", callID)
	},
}

func init() {
	rootCmd.AddCommand(echoCmd)
}
