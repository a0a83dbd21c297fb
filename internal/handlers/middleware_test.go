package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signalQuery encodes browser state the way datastar sends it on reconnect.
func signalQuery(t *testing.T, signals map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(signals)
	require.NoError(t, err)
	return "?" + url.Values{"datastar": {string(raw)}}.Encode()
}

func TestLobbyStream_AcceptsLobbySignals(t *testing.T) {
	srv := newTestServer(t)
	host := srv.browser()
	v := createRoom(t, host, "hanzo", "4")

	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	queries := map[string]string{
		"no state":    "",
		"empty state": "?datastar=",
		"mid setup": signalQuery(t, map[string]any{
			"roomID":         v.RoomID,
			"isHost":         true,
			"progress":       0.6,
			"loadingMessage": "Faction deck configured successfully.",
			"setupComplete":  false,
		}),
		"after setup": signalQuery(t, map[string]any{
			"theme":         "dark",
			"event":         "setup_complete",
			"progress":      1.0,
			"setupComplete": true,
			"players":       []any{},
			"gate":          map[string]any{"canStart": true},
			"roomClosed":    false,
			"roomFull":      false,
			"error":         "",
			"errorKind":     "",
			"errorOp":       "",
		}),
	}
	for name, query := range queries {
		t.Run(name, func(t *testing.T) {
			stream := openStream(t, ts, host, query)
			stream.waitFor(t, `"invitationCode":"`+v.InvitationCode+`"`)
		})
	}
}

func TestLobbyStream_RejectsBadQueries(t *testing.T) {
	srv := newTestServer(t)
	host := srv.browser()
	createRoom(t, host, "hanzo", "4")

	oversized := `{"loadingMessage":"` + strings.Repeat("x", 8200) + `"}`

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{
			name:   "unknown parameter",
			query:  "?room=abc",
			status: http.StatusBadRequest,
			body:   "Invalid parameter",
		},
		{
			name:   "unknown parameter beside state",
			query:  signalQuery(t, map[string]any{"isReady": true}) + "&code=12345678",
			status: http.StatusBadRequest,
			body:   "Invalid parameter",
		},
		{
			name:   "signal the lobby does not bind",
			query:  signalQuery(t, map[string]any{"progress": 0.3, "maliciousSignal": "hack"}),
			status: http.StatusBadRequest,
			body:   "Invalid signal in datastar",
		},
		{
			name:   "oversized state",
			query:  "?datastar=" + url.QueryEscape(oversized),
			status: http.StatusBadRequest,
			body:   "Datastar state too large",
		},
		{
			name:   "query too long",
			query:  "?datastar=" + strings.Repeat("a", 10001),
			status: http.StatusRequestURITooLong,
			body:   "Query string too large",
		},
		{
			name:   "state sent twice",
			query:  "?datastar=%7B%7D&datastar=%7B%7D",
			status: http.StatusBadRequest,
			body:   "Invalid datastar parameter",
		},
		{
			name:   "state is not JSON",
			query:  "?datastar=%7Bsetup",
			status: http.StatusBadRequest,
			body:   "Invalid datastar JSON",
		},
		{
			name:   "broken escape",
			query:  "?datastar=%",
			status: http.StatusBadRequest,
			body:   "Invalid query parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := host.do(t, http.MethodGet, "/sse/lobby"+tt.query, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
			assert.NotContains(t, rec.Header().Get("Content-Type"), "text/event-stream")
		})
	}
	assert.Zero(t, srv.h.sseConns.Load())
}
