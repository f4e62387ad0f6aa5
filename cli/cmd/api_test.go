package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyo877/callwatch/server/adaptor"
)

func useAPI(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	prevAddr, prevUser := viper.GetString(httpServerAddressKey), viper.GetString(userIDKey)
	viper.Set(httpServerAddressKey, srv.URL+"/")
	viper.Set(userIDKey, "t1")
	t.Cleanup(func() {
		viper.Set(httpServerAddressKey, prevAddr)
		viper.Set(userIDKey, prevUser)
	})
}

func TestAPIDo(t *testing.T) {
	useAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/monitoring/notes", r.URL.Path)
		assert.Equal(t, "t1", r.Header.Get(adaptor.HeaderUserID))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "needs help", body["note"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(adaptor.NoteView{ID: "n1", TeacherID: "t1", Note: body["note"]})
	})

	var note adaptor.NoteView
	err := apiDo(context.Background(), http.MethodPost, "/api/monitoring/notes", map[string]string{"note": "needs help"}, &note)
	require.NoError(t, err)
	assert.Equal(t, "n1", note.ID)
	assert.Equal(t, "t1", note.TeacherID)
}

func TestAPIDoError(t *testing.T) {
	useAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"User not found"}`))
	})

	err := apiDo(context.Background(), http.MethodGet, "/api/users/nobody", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "User not found")
}
