package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lshigami/Symposium/internal/notify"
	"github.com/lshigami/Symposium/internal/service"
	"github.com/rs/zerolog/log"
)

// StreamAuthorizer decides whether a viewer may subscribe to a round.
type StreamAuthorizer interface {
	AuthorizeStream(ctx context.Context, viewer service.Viewer, roundID uint) error
}

type WebSocketController struct {
	hub      *notify.Hub
	streams  StreamAuthorizer
	upgrader websocket.Upgrader
}

func NewWebSocketController(hub *notify.Hub, streams StreamAuthorizer) *WebSocketController {
	return &WebSocketController{
		hub:     hub,
		streams: streams,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (c *WebSocketController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/ws/rounds/:roundId", c.RoundStream)
}

// RoundStream godoc
// @Summary Subscribe to round notifications
// @Description Upgrades to a WebSocket that receives round_started, round_ended, round_restarted, results_published, attempt_submitted and participant_disqualified messages for the round.
// @Tags WebSocket
// @Param roundId path int true "Round ID"
// @Param token query string false "JWT when the Authorization header cannot be set"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Not registered for the round's event"
// @Failure 404 {object} dto.ErrorResponse "Round not found"
// @Security BearerAuth
// @Router /ws/rounds/{roundId} [get]
func (c *WebSocketController) RoundStream(ctx *gin.Context) {
	roundID, ok := ParamID(ctx, "roundId")
	if !ok {
		return
	}
	p, ok := CurrentUser(ctx)
	if !ok {
		return
	}
	if err := c.streams.AuthorizeStream(ctx.Request.Context(), ViewerOf(p), roundID); err != nil {
		RespondError(ctx, "subscribe to round", err)
		return
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Uint("roundID", roundID).Msg("websocket upgrade failed")
		return
	}

	topic := notify.RoundTopic(roundID)
	c.hub.AddConnection(topic, conn)
	defer c.hub.RemoveConnection(topic, conn)

	// Clients only listen; reading drives ping/close handling.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
