// Package tokensrv issues paired room credentials: one user token and one
// avatar token, always scoped to the same room.
package tokensrv

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"
	"github.com/rs/zerolog"

	"github.com/normanking/avatarcast/internal/config"
)

// Server is the gin HTTP surface for token minting
type Server struct {
	cfg      *config.TokenConfig
	identity *config.IdentityConfig
	log      zerolog.Logger
	engine   *gin.Engine
}

type tokenRequest struct {
	Room string `json:"room"`
}

type tokenResponse struct {
	ServerURL   string `json:"serverUrl,omitempty"`
	RoomName    string `json:"roomName,omitempty"`
	UserToken   string `json:"userToken,omitempty"`
	AvatarToken string `json:"avatarToken,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewServer creates the token server
func NewServer(cfg *config.TokenConfig, identity *config.IdentityConfig, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{cfg: cfg, identity: identity, log: log, engine: engine}
	engine.POST("/api/token", s.handleToken)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return s
}

// Engine exposes the router for tests and embedding
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until the listener fails
func (s *Server) Run() error {
	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("token service listening")
	return s.engine.Run(s.cfg.ListenAddr)
}

func (s *Server) handleToken(c *gin.Context) {
	if s.cfg.APIKey == "" || s.cfg.APISecret == "" || s.cfg.ServerURL == "" {
		// never a half-populated grant
		c.JSON(http.StatusServiceUnavailable, tokenResponse{Error: "token service is not configured with API credentials"})
		return
	}

	// the room hint is optional; an empty body is fine
	var req tokenRequest
	_ = c.ShouldBindJSON(&req)

	roomName := req.Room
	if roomName == "" {
		roomName = fmt.Sprintf("%s-%s", s.cfg.RoomPrefix, uuid.NewString())
	}

	userIdentity := s.identity.UserPrefix + uuid.NewString()[:8]
	userToken, err := s.mint(roomName, userIdentity, s.identity.UserName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tokenResponse{Error: fmt.Sprintf("mint user token: %v", err)})
		return
	}

	avatarToken, err := s.mint(roomName, s.identity.AvatarIdentity, s.identity.AvatarName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tokenResponse{Error: fmt.Sprintf("mint avatar token: %v", err)})
		return
	}

	s.log.Info().Str("room", roomName).Str("user", userIdentity).Msg("issued session tokens")
	c.JSON(http.StatusOK, tokenResponse{
		ServerURL:   s.cfg.ServerURL,
		RoomName:    roomName,
		UserToken:   userToken,
		AvatarToken: avatarToken,
	})
}

func (s *Server) mint(room, identity, name string) (string, error) {
	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     room,
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(s.cfg.TokenTTL)
	return at.ToJWT()
}
