package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Grant is one room's worth of credentials: both tokens are always scoped
// to the same room.
type Grant struct {
	ServerURL   string `json:"serverUrl"`
	RoomName    string `json:"roomName"`
	UserToken   string `json:"userToken"`
	AvatarToken string `json:"avatarToken"`
	Error       string `json:"error,omitempty"`
}

// TokenClient fetches connection credentials for a session pair
type TokenClient interface {
	Fetch(ctx context.Context, roomHint string) (*Grant, error)
}

// HTTPTokenClient talks to the token service over HTTP
type HTTPTokenClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPTokenClient creates a client for the given endpoint
func NewHTTPTokenClient(endpoint string, timeout time.Duration) *HTTPTokenClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTokenClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Fetch requests a grant. An error field in the response body is fatal to
// the connection attempt, same as a transport failure.
func (c *HTTPTokenClient) Fetch(ctx context.Context, roomHint string) (*Grant, error) {
	body, err := json.Marshal(map[string]string{"room": roomHint})
	if err != nil {
		return nil, fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	var grant Grant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if grant.Error != "" {
		return nil, fmt.Errorf("token service: %s", grant.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token service: status %d", resp.StatusCode)
	}
	if grant.UserToken == "" || grant.AvatarToken == "" || grant.ServerURL == "" {
		return nil, fmt.Errorf("token service: incomplete grant for room %q", grant.RoomName)
	}
	return &grant, nil
}
