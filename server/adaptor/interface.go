package adaptor

import (
	"context"

	"github.com/ponyo877/callwatch/server/domain"
	"github.com/ponyo877/callwatch/server/usecase"
)

// Sessions is the live side served by the streaming transports.
type Sessions interface {
	NewConnection(remote string) *domain.Connection
	Serve(ctx context.Context, conn *domain.Connection, profile domain.Profile, requests <-chan domain.Envelope) error
	Snapshot(roomID string) usecase.RoomSnapshot
}

// Usecase is the request/response side served over HTTP.
type Usecase interface {
	SaveEvent(ctx context.Context, studentID string, event domain.MonitoringEvent) (domain.MonitoringEvent, error)
	CallEvents(ctx context.Context, roomID string) ([]domain.MonitoringEvent, error)
	SearchCallEvents(ctx context.Context, roomID, pattern string) ([]domain.MonitoringEvent, error)
	SaveNote(ctx context.Context, teacherID string, note domain.Note) (domain.Note, error)
	Report(ctx context.Context, studentID, roomID string) (domain.Report, error)
	Profile(ctx context.Context, userID string) (domain.Profile, error)
	SaveProfile(ctx context.Context, profile domain.Profile) error
}
