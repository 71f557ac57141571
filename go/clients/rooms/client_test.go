package rooms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/drawsync/go/clients"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /rooms/join", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req joinRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.RoomCode != "ABC123" {
			http.Error(w, `{"detail":"Room not found"}`, http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"id":5,"room_id":12,"user_id":1,"session_token":"s","is_ready":false,"score":0,"joined_at":"2024-03-01T12:00:00Z"}`))
	})
	mux.HandleFunc("GET /rooms/{code}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("code") != "ABC123" {
			http.Error(w, `{"detail":"Room not found"}`, http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"id":12,"name":"Friday","room_code":"ABC123","max_rounds":4,"time_limit":60,"max_players":8,"current_players":2,"is_active":true,"game_started":false,"round_number":0,"created_by":1,"created_at":"2024-03-01T12:00:00Z"}`))
	})
	mux.HandleFunc("GET /rooms/{id}/players", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"players":[{"id":5,"user_id":1,"username":"ann","is_ready":true,"score":10}]}`))
	})
	mux.HandleFunc("GET /boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestJoinByCode(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(server.URL, "tok")

	session, err := client.JoinByCode(context.Background(), "ABC123", "")
	require.NoError(t, err)
	assert.Equal(t, int64(12), session.RoomID)
	assert.Equal(t, int64(1), session.UserID)

	_, err = client.JoinByCode(context.Background(), "NOPE", "")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGetRoomByCode(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(server.URL, "")

	room, err := client.GetRoomByCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, int64(12), room.ID)
	assert.Equal(t, 4, room.MaxRounds)
	assert.Equal(t, 60, room.TimeLimit)

	_, err = client.GetRoomByCode(context.Background(), "MISSING")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGetRoomPlayers(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(server.URL, "")

	players, err := client.GetRoomPlayers(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, Member{ID: 5, UserID: 1, Username: "ann", IsReady: true, Score: 10}, players[0])
}

func TestStatusErrorsAreExposed(t *testing.T) {
	server := newTestServer(t)
	base := clients.NewBaseClient(server.URL)

	err := base.GetJSON(context.Background(), "/boom", nil)
	var statusErr *clients.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.NotErrorIs(t, err, ErrRoomNotFound)
}
