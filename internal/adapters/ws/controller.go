package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"huddle/internal/auth"
	"huddle/internal/core"
)

type Controller struct {
	Coord      *core.Coordinator
	Tokens     *auth.Tokens
	ReadLimit  int64
	SendBuffer int
}

func NewController(coord *core.Coordinator, tokens *auth.Tokens, readLimit int64, sendBuffer int) *Controller {
	return &Controller{Coord: coord, Tokens: tokens, ReadLimit: readLimit, SendBuffer: sendBuffer}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS verifies the session token, upgrades, and starts the pumps.
// Each transport session gets its own connection id; the core cleans up
// whatever the session bound when the read pump exits.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	claims, err := ctl.Tokens.Verify(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade")
		return
	}
	ws.SetReadLimit(ctl.ReadLimit)

	connID := core.ConnID(uuid.NewString())
	conn := newWsConn(ws, ctl.SendBuffer)
	log.Info().Str("module", "ws").Str("conn", string(connID)).
		Str("user", string(claims.UserID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		ctl.writePump(ctx, conn)
		// Closing the socket unblocks a read pump stuck in ReadMessage.
		conn.Close()
	}()
	go func() {
		defer cancel()
		ctl.readPump(ctx, connID, claims, conn)
	}()
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, connID core.ConnID, claims *auth.Claims, c *wsConn) {
	defer func() {
		log.Info().Str("module", "ws").Str("conn", string(connID)).Msg("readPump closing")
		ctl.Coord.HandleDisconnect(connID)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "ws").Str("conn", string(connID)).Msg("readPump read error")
				return
			}
			ctl.dispatch(connID, claims, c, data)
		}
	}
}

func (ctl *Controller) dispatch(connID core.ConnID, claims *auth.Claims, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad json")
		return
	}

	switch env.Type {
	case "joinRoom":
		ctl.handleJoin(connID, claims, c, data)
	case "leaveRoom":
		ctl.handleLeave(connID, claims, c, data)
	case "sendMessage":
		ctl.handleSend(connID, claims, c, data)
	case "ping":
		ctl.sendJSON(c, map[string]any{"type": "pong"})
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown request")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, msg string) {
	ctl.sendJSON(c, map[string]any{"type": "error", "error": msg})
}
