package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPTokenClient_Fetch(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "demo-room", req["room"])

		json.NewEncoder(w).Encode(Grant{
			ServerURL:   "wss://livekit.example.com",
			RoomName:    "demo-room",
			UserToken:   "user-jwt",
			AvatarToken: "avatar-jwt",
		})
	})

	c := NewHTTPTokenClient(srv.URL, time.Second)
	grant, err := c.Fetch(context.Background(), "demo-room")
	require.NoError(t, err)

	assert.Equal(t, "wss://livekit.example.com", grant.ServerURL)
	assert.Equal(t, "demo-room", grant.RoomName)
	assert.Equal(t, "user-jwt", grant.UserToken)
	assert.Equal(t, "avatar-jwt", grant.AvatarToken)
}

func TestHTTPTokenClient_ErrorFieldIsFatal(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(Grant{Error: "missing API credentials"})
	})

	c := NewHTTPTokenClient(srv.URL, time.Second)
	_, err := c.Fetch(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API credentials")
}

func TestHTTPTokenClient_IncompleteGrantRejected(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		// user token present but avatar token missing
		json.NewEncoder(w).Encode(Grant{
			ServerURL: "wss://livekit.example.com",
			RoomName:  "demo-room",
			UserToken: "user-jwt",
		})
	})

	c := NewHTTPTokenClient(srv.URL, time.Second)
	_, err := c.Fetch(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete grant")
}

func TestHTTPTokenClient_UnreachableService(t *testing.T) {
	c := NewHTTPTokenClient("http://127.0.0.1:1/api/token", 200*time.Millisecond)
	_, err := c.Fetch(context.Background(), "")
	assert.Error(t, err)
}

func TestHTTPTokenClient_ContextCancel(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewHTTPTokenClient(srv.URL, 5*time.Second)
	_, err := c.Fetch(ctx, "")
	assert.Error(t, err)
}
