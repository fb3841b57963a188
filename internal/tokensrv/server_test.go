package tokensrv

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/avatarcast/internal/config"
)

func testServer(apiKey, apiSecret, serverURL string) *Server {
	return NewServer(
		&config.TokenConfig{
			APIKey:     apiKey,
			APISecret:  apiSecret,
			ServerURL:  serverURL,
			RoomPrefix: "showroom",
			TokenTTL:   time.Hour,
		},
		&config.IdentityConfig{
			UserName:       "presenter",
			UserPrefix:     "customer-",
			AvatarIdentity: "avatar-presenter",
			AvatarName:     "Avatar",
		},
		zerolog.Nop(),
	)
}

func postToken(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, tokenResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Engine().ServeHTTP(w, req)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHandleToken_IssuesPairedTokens(t *testing.T) {
	s := testServer("devkey", "devsecret-devsecret-devsecret-00", "wss://livekit.example.com")

	w, resp := postToken(t, s, `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, resp.Error)
	assert.Equal(t, "wss://livekit.example.com", resp.ServerURL)
	assert.True(t, strings.HasPrefix(resp.RoomName, "showroom-"))
	assert.NotEmpty(t, resp.UserToken)
	assert.NotEmpty(t, resp.AvatarToken)
	assert.NotEqual(t, resp.UserToken, resp.AvatarToken)
}

func TestHandleToken_RespectsRoomHint(t *testing.T) {
	s := testServer("devkey", "devsecret-devsecret-devsecret-00", "wss://livekit.example.com")

	w, resp := postToken(t, s, `{"room":"demo-42"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "demo-42", resp.RoomName)
}

func TestHandleToken_EmptyBodyGetsFreshRoom(t *testing.T) {
	s := testServer("devkey", "devsecret-devsecret-devsecret-00", "wss://livekit.example.com")

	w1, resp1 := postToken(t, s, "")
	w2, resp2 := postToken(t, s, "")
	require.Equal(t, http.StatusOK, w1.Code)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.NotEqual(t, resp1.RoomName, resp2.RoomName, "each request gets its own room")
}

func TestHandleToken_MissingCredentials(t *testing.T) {
	s := testServer("", "", "")

	w, resp := postToken(t, s, `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotEmpty(t, resp.Error)
	// never a half-populated grant
	assert.Empty(t, resp.UserToken)
	assert.Empty(t, resp.AvatarToken)
	assert.Empty(t, resp.ServerURL)
}

func TestHealthz(t *testing.T) {
	s := testServer("", "", "")

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
