package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/ponyo877/callwatch/server/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat <callId>",
	Short: "Starts a chat session for a call in a tview-based interface",
	Long: `Joins a call and opens its chat in a tview-based interface.
You can type messages at the bottom and see the chat, join/leave notices
and typing indicators above.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		profile, err := currentProfile()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := runChatUI(profile, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Chat UI error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChatUI(profile domain.Profile, callID string) error {
	app := tview.NewApplication()

	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true).
		ScrollToEnd()

	typingView := tview.NewTextView().SetDynamicColors(true)

	inputField := tview.NewInputField().
		SetLabel(profile.DisplayName() + " ❯❯ ").
		SetFieldWidth(0).
		SetAcceptanceFunc(tview.InputFieldMaxLength(500))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(textView, 0, 1, false).
		AddItem(typingView, 1, 0, false).
		AddItem(inputField, 1, 0, true)

	app.SetRoot(flex, true).SetFocus(inputField)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := openSession(ctx, profile)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Join(callID); err != nil {
		return fmt.Errorf("failed to join call: %w", err)
	}
	fmt.Fprintf(textView, "[green]Welcome to %s! You are %s. (Ctrl+C to exit)\n", callID, profile.DisplayName())

	typing := map[string]string{}
	renderTyping := func() {
		if len(typing) == 0 {
			typingView.SetText("")
			return
		}
		names := make([]string, 0, len(typing))
		for _, name := range typing {
			names = append(names, name)
		}
		typingView.SetText("[gray]" + strings.Join(names, ", ") + " typing...")
	}

	go func() {
		for {
			env, err := s.Recv()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				msg := fmt.Sprintf("[red]Error receiving message: %v\n", err)
				if errors.Is(err, io.EOF) {
					msg = "[red]Stream closed by server.\n"
				}
				app.QueueUpdateDraw(func() {
					fmt.Fprint(textView, msg)
				})
				cancel()
				return
			}
			app.QueueUpdateDraw(func() {
				switch env.Event {
				case domain.EventChatMessage:
					var p domain.ChatPayload
					if env.Decode(&p) != nil {
						return
					}
					delete(typing, p.UserID)
					renderTyping()
					color := "blue"
					if p.Role == domain.RoleTeacher {
						color = "yellow"
					}
					fmt.Fprintf(textView, "[white][%s] [%s]%s[white]: %s\n",
						p.Timestamp.Local().Format("15:04:05"), color, tview.Escape(nameOr(p.UserName, p.UserID)), tview.Escape(p.Content))
				case domain.EventChatSystem:
					var p domain.SystemPayload
					if env.Decode(&p) == nil {
						fmt.Fprintf(textView, "[green]* %s\n", tview.Escape(p.Message))
					}
				case domain.EventChatTyping, domain.EventChatStopTyping:
					var p domain.TypingPayload
					if env.Decode(&p) != nil {
						return
					}
					if env.Event == domain.EventChatTyping {
						typing[p.UserID] = nameOr(p.UserName, p.UserID)
					} else {
						delete(typing, p.UserID)
					}
					renderTyping()
				case domain.EventUserLeft:
					var p domain.UserLeftPayload
					if env.Decode(&p) == nil {
						delete(typing, p.UserID)
						renderTyping()
					}
				}
				textView.ScrollToEnd()
			})
		}
	}()

	isTyping := false
	setTyping := func(on bool) {
		if on == isTyping {
			return
		}
		isTyping = on
		event := domain.EventChatStopTyping
		if on {
			event = domain.EventChatTyping
		}
		_ = s.Send(event, domain.TypingPayload{RoomID: callID})
	}

	inputField.SetChangedFunc(func(text string) {
		setTyping(text != "")
	})

	// Send messages when Enter is pressed
	inputField.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := strings.TrimSpace(inputField.GetText())
		if text == "" {
			return
		}
		if err := s.Send(domain.EventChatMessage, domain.ChatPayload{RoomID: callID, Content: text, Timestamp: time.Now()}); err != nil {
			fmt.Fprintf(textView, "[red]Failed to send message: %v\n", err)
		}
		inputField.SetText("")
		setTyping(false)
	})

	// Leave and exit on Ctrl+C
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			_ = s.Send(domain.EventLeaveCall, domain.RoomPayload{RoomID: callID})
			cancel()
			app.Stop()
			return nil
		}
		return event
	})

	return app.Run()
}
