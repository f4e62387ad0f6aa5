/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ponyo877/callwatch/server/adaptor"
)

var (
	follow    bool
	tailLines int
	tailOnly  []string
)

var tailCmd = &cobra.Command{
	Use:   "tail [-f] [-n lines] <callId>",
	Short: "Displays the latest monitoring events of a call.",
	Long: `Displays the last stored monitoring events of a call.
With -f, joins the call and prints every event as it arrives.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		callID := args[0]
		if !follow {
			if err := printLastEvents(callID, tailLines); err != nil {
				fmt.Fprintf(os.Stderr, "Error listing events for %s: %v\n", callID, err)
			}
			return
		}

		profile, err := currentProfile()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		s, err := openSession(ctx, profile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting for %s: %v\n", callID, err)
			return
		}
		defer s.Close()
		if err := s.Join(callID); err != nil {
			fmt.Fprintf(os.Stderr, "Error joining %s: %v\n", callID, err)
			return
		}

		for {
			env, err := s.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					break
				}
				fmt.Fprintf(os.Stderr, "Error receiving events for %s: %v\n", callID, err)
				break
			}
			if len(tailOnly) > 0 && !slices.Contains(tailOnly, env.Event) {
				continue
			}
			fmt.Println(formatEnvelope(env, time.Now()))
		}
	},
}

func printLastEvents(callID string, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	var events []adaptor.EventView
	if err := apiDo(ctx, http.MethodGet, "/api/monitoring/call/"+url.PathEscape(callID), nil, &events); err != nil {
		return err
	}
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	for _, e := range events {
		fmt.Println(formatEvent(e))
	}
	return nil
}

func formatEvent(e adaptor.EventView) string {
	line := fmt.Sprintf("[%s] %s %s", e.Timestamp.Local().Format("15:04:05"), nameOr(e.StudentName, e.StudentID), e.EventType)
	if e.Details != "" {
		line += ": " + e.Details
	}
	return line
}

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Join the call and print events as they arrive")
	tailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of stored events to print")
	tailCmd.Flags().StringSliceVarP(&tailOnly, "event", "e", nil, "Only print these event names when following")
}
