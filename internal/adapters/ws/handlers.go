package ws

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"huddle/internal/auth"
	"huddle/internal/core"
	"huddle/internal/domain"
)

func (ctl *Controller) handleJoin(connID core.ConnID, claims *auth.Claims, c *wsConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad payload")
		return
	}

	count, err := ctl.Coord.Join(domain.RoomCode(p.Code), claims.UserID, connID, c)
	switch {
	case errors.Is(err, domain.ErrRoomFull):
		ctl.sendError(c, "room full")
		return
	case errors.Is(err, domain.ErrRoomNotFound):
		ctl.sendError(c, "room not found")
		return
	case err != nil:
		log.Error().Err(err).Str("module", "ws").Str("room", p.Code).Msg("join")
		ctl.sendError(c, "try again")
		return
	}

	// The joiner gets the state directly; the room-wide count broadcast
	// happened inside Join.
	ctl.sendJSON(c, struct {
		Type  string `json:"type"`
		Code  string `json:"code"`
		Count int    `json:"count"`
	}{Type: "joined", Code: p.Code, Count: count})
}

func (ctl *Controller) handleLeave(connID core.ConnID, claims *auth.Claims, c *wsConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad payload")
		return
	}

	if err := ctl.Coord.Leave(domain.RoomCode(p.Code), claims.UserID, connID); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("room", p.Code).Msg("leave")
	}
	ctl.sendJSON(c, map[string]any{"type": "left"})
}

func (ctl *Controller) handleSend(connID core.ConnID, claims *auth.Claims, c *wsConn, data []byte) {
	var p struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad payload")
		return
	}

	_, err := ctl.Coord.SendMessage(domain.RoomCode(p.Code), claims.UserID, claims.Username, p.Content)
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		ctl.sendError(c, "room not found")
	case err != nil:
		log.Error().Err(err).Str("module", "ws").Str("conn", string(connID)).
			Str("room", p.Code).Msg("send message")
		ctl.sendError(c, "try again")
	}
}
