package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/ponyo877/callwatch/server/domain"
)

// formatEnvelope renders one server event as a single human readable line.
func formatEnvelope(env domain.Envelope, now time.Time) string {
	ts := now.Format("15:04:05")
	switch env.Event {
	case domain.EventMonitoringUpdate:
		var p domain.MonitoringPayload
		if env.Decode(&p) == nil {
			if !p.Timestamp.IsZero() {
				ts = p.Timestamp.Local().Format("15:04:05")
			}
			line := fmt.Sprintf("[%s] %s %s", ts, nameOr(p.UserName, p.UserID), p.Kind)
			if p.Detail != "" {
				line += ": " + p.Detail
			}
			return line
		}
	case domain.EventPeerStatusUpdate:
		var p domain.PeerStatusPayload
		if env.Decode(&p) == nil {
			return fmt.Sprintf("[%s] %s is %s (%s)", ts, nameOr(p.UserName, p.UserID), p.Status, p.LastActivity)
		}
	case domain.EventChatMessage:
		var p domain.ChatPayload
		if env.Decode(&p) == nil {
			if !p.Timestamp.IsZero() {
				ts = p.Timestamp.Local().Format("15:04:05")
			}
			return fmt.Sprintf("[%s] %s: %s", ts, nameOr(p.UserName, p.UserID), p.Content)
		}
	case domain.EventChatSystem:
		var p domain.SystemPayload
		if env.Decode(&p) == nil {
			return fmt.Sprintf("[%s] * %s", ts, p.Message)
		}
	case domain.EventRoomUsersUpdated:
		var p domain.RosterPayload
		if env.Decode(&p) == nil {
			return fmt.Sprintf("[%s] %s has %d users: %s", ts, p.RoomID, p.Count, strings.Join(p.Users, ", "))
		}
	case domain.EventUserLeft, domain.EventPeerLeft:
		var p domain.UserLeftPayload
		if env.Decode(&p) == nil {
			return fmt.Sprintf("[%s] %s left (%s)", ts, p.UserID, env.Event)
		}
	case domain.EventOnlineUsers:
		var users []string
		if env.Decode(&users) == nil {
			return fmt.Sprintf("[%s] online: %s", ts, strings.Join(users, ", "))
		}
	case domain.EventChatTyping, domain.EventChatStopTyping:
		var p domain.TypingPayload
		if env.Decode(&p) == nil {
			verb := "is typing"
			if env.Event == domain.EventChatStopTyping {
				verb = "stopped typing"
			}
			return fmt.Sprintf("[%s] %s %s", ts, nameOr(p.UserName, p.UserID), verb)
		}
	}
	return fmt.Sprintf("[%s] %s", ts, env.String())
}

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
