package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyo877/callwatch/server/domain"
	"github.com/ponyo877/callwatch/server/usecase"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func TestUsers(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	_, err := r.GetUser(ctx, "S")
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	require.NoError(t, r.UpsertUser(ctx, domain.NewProfile("S", "Sam", "sam.png", domain.RoleStudent)))
	require.NoError(t, r.UpsertUser(ctx, domain.NewProfile("S", "", "", domain.RoleTeacher)))

	p, err := r.GetUser(ctx, "S")
	require.NoError(t, err)
	assert.Equal(t, domain.NewProfile("S", "Sam", "sam.png", domain.RoleTeacher), p)

	require.NoError(t, r.UpsertUser(ctx, domain.Profile{UserID: "S", Name: "Samuel"}))
	p, err = r.GetUser(ctx, "S")
	require.NoError(t, err)
	assert.Equal(t, domain.NewProfile("S", "Samuel", "sam.png", domain.RoleTeacher), p, "empty role keeps the stored one")
}

func TestEvents(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, r.UpsertUser(ctx, domain.NewProfile("S", "Sam", "sam.png", domain.RoleStudent)))

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	inputs := []domain.MonitoringEvent{
		{RoomID: "r1", UserID: "S", Kind: domain.KindComply, Detail: "Complied", Timestamp: base.Add(2 * time.Second)},
		{RoomID: "r1", UserID: "S", Kind: domain.KindTabSwitch, Detail: "Switched Tab", Timestamp: base},
		{RoomID: "r1", UserID: "X", UserName: "Xena", Kind: domain.KindWindowBlur, Timestamp: base.Add(time.Second)},
		{RoomID: "r2", UserID: "S", Kind: domain.KindFocus, Timestamp: base},
	}
	for _, e := range inputs {
		saved, err := r.CreateEvent(ctx, e)
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.False(t, saved.CreatedAt.IsZero())
	}

	events, err := r.ListCallEvents(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.KindTabSwitch, events[0].Kind)
	assert.Equal(t, "Sam", events[0].UserName, "name comes from the users table")
	assert.Equal(t, "sam.png", events[0].UserImage)
	assert.True(t, base.Equal(events[0].Timestamp))
	assert.Equal(t, "Xena", events[1].UserName)
	assert.Equal(t, domain.KindComply, events[2].Kind)

	empty, err := r.ListCallEvents(ctx, "nope")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	matched, err := r.SearchCallEvents(ctx, "r1", "^(Switched|Complied)")
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "Switched Tab", matched[0].Detail)
}

func TestReportData(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, kind := range []domain.EventKind{domain.KindTabSwitch, domain.KindWarning, domain.KindComply} {
		_, err := r.CreateEvent(ctx, domain.MonitoringEvent{RoomID: "r1", UserID: "S", Kind: kind, Timestamp: base.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}
	_, err := r.CreateEvent(ctx, domain.MonitoringEvent{RoomID: "r1", UserID: "other", Kind: domain.KindFocus, Timestamp: base})
	require.NoError(t, err)

	clock := base
	r.nowF = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	for _, text := range []string{"first", "second"} {
		_, err := r.CreateNote(ctx, domain.Note{TeacherID: "T", StudentID: "S", RoomID: "r1", Text: text})
		require.NoError(t, err)
	}
	_, err = r.CreateNote(ctx, domain.Note{TeacherID: "T", StudentID: "S", RoomID: "r2", Text: "elsewhere"})
	require.NoError(t, err)

	events, notes, err := r.QueryEventsAndNotes(ctx, "S", "r1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.KindTabSwitch, events[0].Kind)
	assert.Equal(t, domain.KindComply, events[2].Kind)
	require.Len(t, notes, 2)
	assert.Equal(t, "second", notes[0].Text)
	assert.Equal(t, "first", notes[1].Text)
	assert.Equal(t, "T", notes[0].TeacherID)
}
