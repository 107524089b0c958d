package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/benallfree/vibescale-sub000/internal/hub"
)

var tracer = otel.Tracer("server")

var roomNameRe = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// Server is the HTTP shell: it resolves a room name from the URL, answers
// health queries and hands upgraded websockets to the room actor. It holds
// no room state of its own.
type Server struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

// NewServer builds the gin engine around a hub.
func NewServer(h *hub.Hub) *Server {
	s := &Server{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/:room", s.handleHealth)
	engine.GET("/:room/:sub", s.handleRoomSubPath)
	engine.NoRoute(func(c *gin.Context) {
		c.String(http.StatusBadRequest, "bad request")
	})
	s.engine = engine
	return s
}

// Engine exposes the router for the HTTP server and for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func validRoomName(name string) bool {
	return roomNameRe.MatchString(name)
}

// handleHealth serves a plaintext liveness string with the room's live
// connection count. It never creates a room.
func (s *Server) handleHealth(c *gin.Context) {
	name := c.Param("room")
	if !validRoomName(name) {
		c.String(http.StatusBadRequest, "invalid room name")
		return
	}
	c.String(http.StatusOK, fmt.Sprintf("OK %s: %d connected", name, s.hub.ConnCount(name)))
}

// handleRoomSubPath serves /{room}/websocket; every other sub-path is a 400.
// A websocket request without a proper Upgrade header gets 426.
func (s *Server) handleRoomSubPath(c *gin.Context) {
	name := c.Param("room")
	if !validRoomName(name) {
		c.String(http.StatusBadRequest, "invalid room name")
		return
	}
	if c.Param("sub") != "websocket" {
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.String(http.StatusUpgradeRequired, "websocket upgrade required")
		return
	}

	_, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("room.name", name),
	))
	defer span.End()

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("failed to upgrade connection", "room.name", name, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	client := s.hub.Resolve(name).Accept(conn)
	span.SetAttributes(attribute.String("player.id", client.PlayerID))
}
