/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/ponyo877/callwatch/server/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch <callId>",
	Short: "Opens a live focus dashboard for a call",
	Long: `Joins a call and shows every participant's focus status, distraction and
warning counters and last activity, updated as monitoring events arrive.
Press q or Ctrl+C to leave.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		profile, err := currentProfile()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := runWatchUI(profile, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Watch UI error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func statusColor(s domain.Status) tcell.Color {
	switch s {
	case domain.StatusDistracted:
		return tcell.ColorRed
	case domain.StatusOffline:
		return tcell.ColorGray
	default:
		return tcell.ColorGreen
	}
}

func renderBoard(table *tview.Table, header *tview.TextView, callID string, b *board) {
	focused, distracted, offline := b.Counts()
	header.SetText(fmt.Sprintf("[::b]%s[::-]  [green]%d focused  [red]%d distracted  [gray]%d offline", callID, focused, distracted, offline))

	table.Clear()
	for col, title := range []string{"STUDENT", "STATUS", "DISTRACTIONS", "WARNINGS", "LAST ACTIVITY", "AT"} {
		table.SetCell(0, col, tview.NewTableCell(title).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, r := range b.Rows() {
		at := ""
		if !r.UpdatedAt.IsZero() {
			at = r.UpdatedAt.Local().Format("15:04:05")
		}
		table.SetCell(i+1, 0, tview.NewTableCell(r.name()))
		table.SetCell(i+1, 1, tview.NewTableCell(string(r.Status)).SetTextColor(statusColor(r.Status)))
		table.SetCell(i+1, 2, tview.NewTableCell(fmt.Sprint(r.Distractions)).SetAlign(tview.AlignRight))
		table.SetCell(i+1, 3, tview.NewTableCell(fmt.Sprint(r.Warnings)).SetAlign(tview.AlignRight))
		table.SetCell(i+1, 4, tview.NewTableCell(r.LastActivity).SetExpansion(1))
		table.SetCell(i+1, 5, tview.NewTableCell(at))
	}
}

func runWatchUI(profile domain.Profile, callID string) error {
	app := tview.NewApplication()

	header := tview.NewTextView().SetDynamicColors(true)
	table := tview.NewTable().SetFixed(1, 0)
	logView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		ScrollToEnd()
	logView.SetBorder(true).SetTitle(" events ")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(table, 0, 2, true).
		AddItem(logView, 0, 1, false)

	app.SetRoot(flex, true)

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
	if err := s.Send(domain.EventPeerRequestStatus, domain.StatusRequestPayload{RoomID: callID}); err != nil {
		return fmt.Errorf("failed to request peer status: %w", err)
	}

	b := newBoard(profile.UserID)
	renderBoard(table, header, callID, b)

	go func() {
		for {
			env, err := s.Recv()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				msg := fmt.Sprintf("[red]Error receiving events: %v\n", err)
				if errors.Is(err, io.EOF) {
					msg = "[red]Stream closed by server.\n"
				}
				app.QueueUpdateDraw(func() {
					fmt.Fprint(logView, msg)
				})
				return
			}
			app.QueueUpdateDraw(func() {
				if b.Apply(env) {
					renderBoard(table, header, callID, b)
				}
				switch env.Event {
				case domain.EventMonitoringUpdate, domain.EventChatSystem, domain.EventPeerLeft:
					fmt.Fprintln(logView, tview.Escape(formatEnvelope(env, time.Now())))
				}
			})
		}
	}()

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || event.Rune() == 'q' {
			_ = s.Send(domain.EventLeaveCall, domain.RoomPayload{RoomID: callID})
			cancel()
			app.Stop()
			return nil
		}
		return event
	})

	return app.Run()
}
