/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/ponyo877/callwatch/server/domain"
)

var errSimExit = errors.New("exit")

var simSuggestions = []prompt.Suggest{
	{Text: "focus", Description: "Report that focus came back"},
	{Text: "blur", Description: "Report that the window lost focus"},
	{Text: "tab", Description: "Report a tab switch"},
	{Text: "distraction", Description: "Report a generic distraction"},
	{Text: "warning", Description: "Report that the warning threshold was hit"},
	{Text: "comply", Description: "Report that the student complied with a warning"},
	{Text: "chat", Description: "Post a chat message"},
	{Text: "status", Description: "Ask for every peer's status"},
	{Text: "leave", Description: "Leave the call"},
	{Text: "exit", Description: "Leave the call and quit"},
}

var simKinds = map[string]domain.EventKind{
	"focus":       domain.KindFocus,
	"blur":        domain.KindWindowBlur,
	"tab":         domain.KindTabSwitch,
	"distraction": domain.KindDistraction,
	"warning":     domain.KindWarning,
	"comply":      domain.KindComply,
}

// parseSimLine turns one simulator line into the event and payload to send.
func parseSimLine(line string, profile domain.Profile, callID string, now time.Time) (string, any, error) {
	args, err := shellwords.Parse(line)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse line: %w", err)
	}
	if len(args) == 0 {
		return "", nil, nil
	}
	rest := strings.Join(args[1:], " ")

	if kind, ok := simKinds[args[0]]; ok {
		return domain.EventMonitoring, domain.MonitoringPayload{
			RoomID:    callID,
			UserID:    profile.UserID,
			UserName:  profile.Name,
			UserImage: profile.Image,
			Kind:      kind,
			Detail:    rest,
			Timestamp: now,
		}, nil
	}
	switch args[0] {
	case "chat":
		if rest == "" {
			return "", nil, errors.New("usage: chat <text>")
		}
		return domain.EventChatMessage, domain.ChatPayload{RoomID: callID, Content: rest, Timestamp: now}, nil
	case "status":
		return domain.EventPeerRequestStatus, domain.StatusRequestPayload{RoomID: callID}, nil
	case "leave":
		return domain.EventLeaveCall, domain.RoomPayload{RoomID: callID}, nil
	case "exit", "quit":
		return domain.EventLeaveCall, domain.RoomPayload{RoomID: callID}, errSimExit
	}
	return "", nil, fmt.Errorf("unknown command: %s", args[0])
}

func simCompleter(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	return prompt.FilterHasPrefix(simSuggestions, d.GetWordBeforeCursor(), true)
}

var sendCmd = &cobra.Command{
	Use:   "send <callId>",
	Short: "Simulates a student reporting monitoring events to a call",
	Long: `Joins a call and opens a prompt that reports monitoring events the way a
student's browser would: focus, blur, tab, distraction, warning and comply,
each with optional detail text. chat posts a message, status asks for peer
status, leave leaves the call and exit quits.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		callID := args[0]
		profile, err := currentProfile()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
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

		go func() {
			for {
				env, err := s.Recv()
				if err != nil {
					return
				}
				fmt.Println(formatEnvelope(env, time.Now()))
			}
		}()

		exited := false
		executor := func(line string) {
			event, payload, err := parseSimLine(line, profile, callID, time.Now())
			if errors.Is(err, errSimExit) {
				exited = true
			} else if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return
			}
			if event == "" {
				return
			}
			if err := s.Send(event, payload); err != nil {
				fmt.Fprintf(os.Stderr, "Error sending %s: %v\n", event, err)
			}
		}

		p := prompt.New(
			executor,
			simCompleter,
			prompt.OptionPrefix(profile.DisplayName()+"@"+callID+" ❯ "),
			prompt.OptionTitle("callwatch send"),
			prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
				return breakline && exited
			}),
		)
		p.Run()
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
