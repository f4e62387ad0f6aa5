package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ponyo877/callwatch/server/domain"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// Usecase serves the request/response side of monitoring: storing events and
// notes and assembling report data. It does not touch live session state.
type Usecase struct {
	repo Repository
	nowF func() time.Time
}

func NewUsecase(repo Repository) *Usecase {
	return &Usecase{
		repo: repo,
		nowF: time.Now,
	}
}

// SaveEvent stores an event reported by studentID over the HTTP API.
func (u *Usecase) SaveEvent(ctx context.Context, studentID string, event domain.MonitoringEvent) (domain.MonitoringEvent, error) {
	event.UserID = studentID
	event.RoomID = strings.TrimSpace(event.RoomID)
	if event.Timestamp.IsZero() {
		event.Timestamp = u.nowF()
	}
	if !event.IsValid() {
		return domain.MonitoringEvent{}, fmt.Errorf("%w: event needs callId, user and a known eventType", domain.ErrInvalidRequest)
	}
	saved, err := u.repo.CreateEvent(ctx, event)
	if err != nil {
		return domain.MonitoringEvent{}, fmt.Errorf("error saving monitoring event: %w", err)
	}
	return saved, nil
}

func (u *Usecase) CallEvents(ctx context.Context, roomID string) ([]domain.MonitoringEvent, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: callId is required", domain.ErrInvalidRequest)
	}
	events, err := u.repo.ListCallEvents(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("error listing events for call %s: %w", roomID, err)
	}
	return events, nil
}

// SearchCallEvents lists the call's events whose details match the regular expression pattern.
func (u *Usecase) SearchCallEvents(ctx context.Context, roomID, pattern string) ([]domain.MonitoringEvent, error) {
	if pattern == "" {
		return u.CallEvents(ctx, roomID)
	}
	if roomID == "" {
		return nil, fmt.Errorf("%w: callId is required", domain.ErrInvalidRequest)
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, fmt.Errorf("%w: bad pattern: %v", domain.ErrInvalidRequest, err)
	}
	events, err := u.repo.SearchCallEvents(ctx, roomID, pattern)
	if err != nil {
		return nil, fmt.Errorf("error searching events for call %s: %w", roomID, err)
	}
	return events, nil
}

// SaveNote stores a note written by teacherID.
func (u *Usecase) SaveNote(ctx context.Context, teacherID string, note domain.Note) (domain.Note, error) {
	note.TeacherID = teacherID
	note.Text = strings.TrimSpace(note.Text)
	if !note.IsValid() {
		return domain.Note{}, fmt.Errorf("%w: note needs studentId, callId and text", domain.ErrInvalidRequest)
	}
	saved, err := u.repo.CreateNote(ctx, note)
	if err != nil {
		return domain.Note{}, fmt.Errorf("error saving note: %w", err)
	}
	return saved, nil
}

// Report gathers one student's events and notes for a call. A missing
// profile is not an error; Student is nil then.
func (u *Usecase) Report(ctx context.Context, studentID, roomID string) (domain.Report, error) {
	if studentID == "" || roomID == "" {
		return domain.Report{}, fmt.Errorf("%w: studentId and callId are required", domain.ErrInvalidRequest)
	}
	events, notes, err := u.repo.QueryEventsAndNotes(ctx, studentID, roomID)
	if err != nil {
		return domain.Report{}, fmt.Errorf("error querying report data: %w", err)
	}
	report := domain.Report{Events: events, Notes: notes}

	profile, err := u.repo.GetUser(ctx, studentID)
	switch {
	case err == nil:
		report.Student = &profile
	case errors.Is(err, ErrNotFound):
	default:
		return domain.Report{}, fmt.Errorf("error getting student %s: %w", studentID, err)
	}
	return report, nil
}

func (u *Usecase) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, fmt.Errorf("%w: userId is required", domain.ErrInvalidRequest)
	}
	profile, err := u.repo.GetUser(ctx, userID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("error getting user %s: %w", userID, err)
	}
	return profile, nil
}

func (u *Usecase) SaveProfile(ctx context.Context, profile domain.Profile) error {
	if !profile.IsValid() {
		return fmt.Errorf("%w: userId is required", domain.ErrInvalidRequest)
	}
	if err := u.repo.UpsertUser(ctx, profile); err != nil {
		return fmt.Errorf("error saving profile: %w", err)
	}
	return nil
}
