package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/services"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrEventNotFound, http.StatusNotFound},
		{fmt.Errorf("get: %w", services.ErrMatchNotFound), http.StatusNotFound},
		{services.ErrBracketNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: status LIVE", services.ErrMatchInvalidState), http.StatusConflict},
		{services.ErrBracketsAlreadyBuilt, http.StatusConflict},
		{services.ErrBracketAlreadyCompleted, http.StatusConflict},
		{services.ErrNoParticipants, http.StatusUnprocessableEntity},
		{services.ErrMatchesIncomplete, http.StatusUnprocessableEntity},
		{services.ErrFinalNotResolved, http.StatusUnprocessableEntity},
		{services.ErrInvalidWinner, http.StatusUnprocessableEntity},
		{services.ErrMatchFightersMissing, http.StatusUnprocessableEntity},
		{services.ErrInvalidScore, http.StatusUnprocessableEntity},
		{services.ErrValidationFailed, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: insert: disk full", services.ErrPersistence), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body, "error")
		})
	}
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"winner_id": 3, "notes": "ippon"}`, ""},
		{"empty", ``, "body must not be empty"},
		{"unknown field", `{"winner": 3}`, "body contains unknown key"},
		{"wrong type", `{"winner_id": "three"}`, "incorrect JSON type for field"},
		{"broken", `{"winner_id": 3`, "badly-formed JSON"},
		{"two values", `{"winner_id": 3}{"winner_id": 4}`, "single JSON value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var input services.EndMatchInput
			err := readJSON(httptest.NewRecorder(), req, &input)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 3, input.WinnerID)
				require.NotNil(t, input.Notes)
				assert.Equal(t, "ippon", *input.Notes)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetIDFromURL(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"12", 12, false},
		{"0", 0, true},
		{"-4", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			r := chi.NewRouter()
			var got int
			var gotErr error
			r.Get("/matches/{matchID}", func(w http.ResponseWriter, r *http.Request) {
				got, gotErr = getIDFromURL(r, "matchID")
			})
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/matches/"+tt.value, nil))

			if tt.wantErr {
				assert.Error(t, gotErr)
				return
			}
			require.NoError(t, gotErr)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newWebSocketServer(t *testing.T, allowedOrigins []string) (*httptest.Server, *brackets.Hub) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := brackets.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	h := NewWebSocketHandler(hub, allowedOrigins, logger)
	r := chi.NewRouter()
	r.Get("/ws/live", h.ServeLive)
	r.Get("/ws/brackets/{bracketID}", h.ServeBracket)
	r.Get("/ws/events/{eventID}", h.ServeEvent)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, hub
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestWebSocketBracketSubscription(t *testing.T) {
	srv, hub := newWebSocketServer(t, []string{"*"})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/brackets/5"), nil)
	require.NoError(t, err)
	defer conn.Close()

	topic := brackets.BracketTopic(5)
	require.Eventually(t, func() bool { return hub.RoomSize(topic) == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(topic, "match:started", map[string]int{"matchId": 9})
	hub.Publish(brackets.BracketTopic(6), "match:started", map[string]int{"matchId": 10})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg brackets.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "match:started", msg.Type)
	assert.Equal(t, topic, msg.Topic)
	assert.Equal(t, map[string]interface{}{"matchId": float64(9)}, msg.Payload)
}

func TestWebSocketClientDisconnectLeavesRoom(t *testing.T) {
	srv, hub := newWebSocketServer(t, []string{"*"})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/events/3"), nil)
	require.NoError(t, err)

	topic := brackets.EventTopic(3)
	require.Eventually(t, func() bool { return hub.RoomSize(topic) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.RoomSize(topic) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsBadRequests(t *testing.T) {
	srv, _ := newWebSocketServer(t, []string{"https://mat.example"})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/brackets/abc"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "/ws/live"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://mat.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/live"), header)
	require.NoError(t, err)
	conn.Close()
}
