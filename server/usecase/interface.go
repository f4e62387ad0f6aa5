package usecase

import (
	"context"

	"github.com/ponyo877/callwatch/server/domain"
)

// EventRecorder persists monitoring events. The coordinator calls it fire-and-forget.
type EventRecorder interface {
	CreateEvent(ctx context.Context, event domain.MonitoringEvent) (domain.MonitoringEvent, error)
}

// ProfileLookup resolves a user's profile. A failure never blocks a connection.
type ProfileLookup interface {
	GetUser(ctx context.Context, userID string) (domain.Profile, error)
}

type Repository interface {
	EventRecorder
	ProfileLookup

	// Users
	UpsertUser(ctx context.Context, profile domain.Profile) error

	// Monitoring events
	ListCallEvents(ctx context.Context, roomID string) ([]domain.MonitoringEvent, error)
	SearchCallEvents(ctx context.Context, roomID, pattern string) ([]domain.MonitoringEvent, error)

	// Notes
	CreateNote(ctx context.Context, note domain.Note) (domain.Note, error)

	// Report
	QueryEventsAndNotes(ctx context.Context, userID, roomID string) ([]domain.MonitoringEvent, []domain.Note, error)
}
