package adaptor

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyo877/callwatch/server/repository"
	"github.com/ponyo877/callwatch/server/usecase"
)

func newTestServer(t *testing.T) (*httptest.Server, *usecase.SessionCoordinator) {
	t.Helper()
	db, err := repository.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewRepository(db)

	sessions := usecase.NewSessionCoordinator(usecase.Options{Recorder: repo, Profiles: repo})
	handler := NewHTTPHandler(usecase.NewUsecase(repo), sessions, NewWebSocketHandler(sessions, nil))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, sessions
}

func do(t *testing.T, srv *httptest.Server, method, path, userID string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func TestMonitoringAPI(t *testing.T) {
	srv, _ := newTestServer(t)

	res := do(t, srv, http.MethodGet, "/api/users/S", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = do(t, srv, http.MethodPut, "/api/users/S", "S", map[string]string{"userName": "Sam", "userImage": "sam.png"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "student", decodeBody[ProfileView](t, res).Role)

	res = do(t, srv, http.MethodGet, "/api/users/S", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "sam.png", decodeBody[ProfileView](t, res).UserImage)

	res = do(t, srv, http.MethodPut, "/api/users/T", "T", map[string]string{"userName": "Tess", "role": "teacher"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = do(t, srv, http.MethodPut, "/api/users/T", "T", map[string]string{"userName": "Ms. Tess"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	teacher := decodeBody[ProfileView](t, res)
	assert.Equal(t, "Ms. Tess", teacher.UserName)
	assert.Equal(t, "teacher", teacher.Role, "role survives an update without one")

	for _, body := range []map[string]string{
		{"callId": "r1", "eventType": "tab_switch", "details": "Switched Tab", "timestamp": "2025-05-01T10:00:00Z"},
		{"callId": "r1", "eventType": "comply", "timestamp": "2025-05-01T10:00:05Z"},
	} {
		res := do(t, srv, http.MethodPost, "/api/monitoring/event", "S", body)
		require.Equal(t, http.StatusCreated, res.StatusCode)
		created := decodeBody[EventView](t, res)
		assert.Equal(t, "S", created.StudentID)
		assert.NotEmpty(t, created.ID)
	}

	res = do(t, srv, http.MethodGet, "/api/monitoring/call/r1", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	events := decodeBody[[]EventView](t, res)
	require.Len(t, events, 2)
	assert.Equal(t, "tab_switch", events[0].EventType)
	assert.Equal(t, "Sam", events[0].StudentName)

	res = do(t, srv, http.MethodGet, "/api/monitoring/call/r1?q=Switched", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeBody[[]EventView](t, res), 1)

	for _, text := range []string{"first", "second"} {
		res := do(t, srv, http.MethodPost, "/api/monitoring/notes", "T", map[string]string{"studentId": "S", "callId": "r1", "note": text})
		require.Equal(t, http.StatusCreated, res.StatusCode)
	}

	res = do(t, srv, http.MethodGet, "/api/monitoring/report/S/r1", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	report := decodeBody[ReportView](t, res)
	require.NotNil(t, report.Student)
	assert.Equal(t, "Sam", report.Student.UserName)
	assert.Len(t, report.Events, 2)
	require.Len(t, report.Notes, 2)
	assert.Equal(t, "T", report.Notes[0].TeacherID)
}

func TestMonitoringAPIErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		userID string
		body   any
		want   int
	}{
		{"event without identity", http.MethodPost, "/api/monitoring/event", "", map[string]string{"callId": "r1", "eventType": "focus"}, http.StatusUnauthorized},
		{"unknown event type", http.MethodPost, "/api/monitoring/event", "S", map[string]string{"callId": "r1", "eventType": "nap"}, http.StatusBadRequest},
		{"note without text", http.MethodPost, "/api/monitoring/notes", "T", map[string]string{"studentId": "S", "callId": "r1"}, http.StatusBadRequest},
		{"bad search pattern", http.MethodGet, "/api/monitoring/call/r1?q=(", "", nil, http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/api/monitoring/call/r1", "", nil, http.StatusMethodNotAllowed},
		{"profile without identity", http.MethodPut, "/api/users/S", "", map[string]string{"userName": "Sam"}, http.StatusUnauthorized},
		{"someone else's profile", http.MethodPut, "/api/users/S", "X", map[string]string{"userName": "Sam"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := do(t, srv, tt.method, tt.path, tt.userID, tt.body)
			assert.Equal(t, tt.want, res.StatusCode)
		})
	}
}

func TestReportForUnknownStudent(t *testing.T) {
	srv, _ := newTestServer(t)

	res := do(t, srv, http.MethodGet, "/api/monitoring/report/nobody/r1", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	report := decodeBody[ReportView](t, res)
	assert.Nil(t, report.Student)
	assert.Empty(t, report.Events)
	assert.NotNil(t, report.Notes)
}
