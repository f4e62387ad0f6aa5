package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ponyo877/callwatch/server/domain"
	"github.com/ponyo877/callwatch/server/usecase"
)

type Repository struct {
	db   *sql.DB
	nowF func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, nowF: time.Now}
}

var _ usecase.Repository = (*Repository)(nil)

func (r *Repository) now() time.Time {
	return r.nowF().UTC()
}

func (r *Repository) GetUser(ctx context.Context, userID string) (domain.Profile, error) {
	query := "SELECT id, name, image, role FROM users WHERE id = ?"
	var id, name, image, role string
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&id, &name, &image, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Profile{}, usecase.ErrNotFound
		}
		return domain.Profile{}, fmt.Errorf("error querying user %s: %w", userID, err)
	}
	return domain.NewProfile(id, name, image, domain.ParseRole(role)), nil
}

// UpsertUser keeps stored fields the new profile leaves empty.
func (r *Repository) UpsertUser(ctx context.Context, profile domain.Profile) error {
	query := `
		INSERT INTO users (id, name, image, role, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN users.name ELSE excluded.name END,
			image = CASE WHEN excluded.image = '' THEN users.image ELSE excluded.image END,
			role = CASE WHEN excluded.role = '' THEN users.role ELSE excluded.role END,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, profile.UserID, profile.Name, profile.Image, profile.Role.String(), r.now()); err != nil {
		return fmt.Errorf("failed to upsert user '%s': %w", profile.UserID, err)
	}
	return nil
}

func (r *Repository) CreateEvent(ctx context.Context, event domain.MonitoringEvent) (domain.MonitoringEvent, error) {
	if event.ID == "" {
		event.ID = domain.NewID()
	}
	event.CreatedAt = r.now()
	if event.Timestamp.IsZero() {
		event.Timestamp = event.CreatedAt
	}
	event.Timestamp = event.Timestamp.UTC()

	query := `
		INSERT INTO monitoring_events (id, call_id, user_id, user_name, user_image, event_type, details, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query,
		event.ID, event.RoomID, event.UserID, event.UserName, event.UserImage,
		string(event.Kind), event.Detail, event.Timestamp, event.CreatedAt,
	); err != nil {
		return domain.MonitoringEvent{}, fmt.Errorf("failed to insert event for call %s: %w", event.RoomID, err)
	}
	return event, nil
}

const eventColumns = `
	e.id, e.call_id, e.user_id,
	COALESCE(NULLIF(e.user_name, ''), u.name, ''),
	COALESCE(NULLIF(e.user_image, ''), u.image, ''),
	e.event_type, e.details, e.timestamp, e.created_at
`

// ListCallEvents returns every event of the call oldest first. Names missing
// on the event are filled from the users table.
func (r *Repository) ListCallEvents(ctx context.Context, roomID string) ([]domain.MonitoringEvent, error) {
	query := "SELECT " + eventColumns + `
		FROM monitoring_events e LEFT JOIN users u ON u.id = e.user_id
		WHERE e.call_id = ?
		ORDER BY e.timestamp, e.id
	`
	return queryEvents(ctx, r.db, query, roomID)
}

// SearchCallEvents is ListCallEvents narrowed to events whose details match pattern.
func (r *Repository) SearchCallEvents(ctx context.Context, roomID, pattern string) ([]domain.MonitoringEvent, error) {
	query := "SELECT " + eventColumns + `
		FROM monitoring_events e LEFT JOIN users u ON u.id = e.user_id
		WHERE e.call_id = ? AND e.details REGEXP ?
		ORDER BY e.timestamp, e.id
	`
	events, err := queryEvents(ctx, r.db, query, roomID, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search in call %s for query '%s': %w", roomID, pattern, err)
	}
	return events, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryEvents(ctx context.Context, q querier, query string, args ...any) ([]domain.MonitoringEvent, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []domain.MonitoringEvent{}
	for rows.Next() {
		var e domain.MonitoringEvent
		var kind string
		if err := rows.Scan(&e.ID, &e.RoomID, &e.UserID, &e.UserName, &e.UserImage, &kind, &e.Detail, &e.Timestamp, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over events: %w", err)
	}
	return events, nil
}

func (r *Repository) CreateNote(ctx context.Context, note domain.Note) (domain.Note, error) {
	note.ID = domain.NewID()
	note.CreatedAt = r.now()
	query := "INSERT INTO teacher_notes (id, teacher_id, student_id, call_id, note, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, note.ID, note.TeacherID, note.StudentID, note.RoomID, note.Text, note.CreatedAt); err != nil {
		return domain.Note{}, fmt.Errorf("failed to insert note for student %s: %w", note.StudentID, err)
	}
	return note, nil
}

// QueryEventsAndNotes returns the student's events oldest first and the notes
// about them newest first, both within one read transaction.
func (r *Repository) QueryEventsAndNotes(ctx context.Context, userID, roomID string) ([]domain.MonitoringEvent, []domain.Note, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := "SELECT " + eventColumns + `
		FROM monitoring_events e LEFT JOIN users u ON u.id = e.user_id
		WHERE e.user_id = ? AND e.call_id = ?
		ORDER BY e.timestamp, e.id
	`
	events, err := queryEvents(ctx, tx, query, userID, roomID)
	if err != nil {
		return nil, nil, fmt.Errorf("error querying events for %s: %w", userID, err)
	}

	query = `
		SELECT id, teacher_id, student_id, call_id, note, created_at FROM teacher_notes
		WHERE student_id = ? AND call_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := tx.QueryContext(ctx, query, userID, roomID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query notes for %s: %w", userID, err)
	}
	defer rows.Close()
	notes := []domain.Note{}
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.TeacherID, &n.StudentID, &n.RoomID, &n.Text, &n.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating over notes for %s: %w", userID, err)
	}
	return events, notes, nil
}
