package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"huddle/internal/domain"
)

type roomResponse struct {
	Code        domain.RoomCode `json:"code"`
	Name        string          `json:"name"`
	MaxCapacity int             `json:"max_capacity"`
	OwnerID     domain.UserID   `json:"owner_id"`
	MemberCount int             `json:"member_count"`
}

func (a *API) toRoomResponse(room domain.Room) roomResponse {
	count, err := a.Members.CountMembers(room.Code)
	if err != nil {
		log.Warn().Err(err).Str("module", "http.chat").Str("room", string(room.Code)).Msg("count members")
	}
	return roomResponse{
		Code:        room.Code,
		Name:        room.Name,
		MaxCapacity: room.MaxCapacity,
		OwnerID:     room.OwnerID,
		MemberCount: count,
	}
}

type createRoomRequest struct {
	Name        string `json:"name" binding:"required,max=20"`
	Code        string `json:"code" binding:"required,len=6,alphanum"`
	MaxCapacity int    `json:"maxCapacity" binding:"required,min=2,max=100"`
}

func (a *API) CreateRoom(c *gin.Context) {
	claims := currentClaims(c)

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	room, err := domain.NewRoom(domain.RoomCode(req.Code), req.Name, req.MaxCapacity, claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	switch err := a.Rooms.Create(room); {
	case errors.Is(err, domain.ErrRoomCodeTaken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Room code already exists"})
		return
	case errors.Is(err, domain.ErrRoomLimit):
		c.JSON(http.StatusForbidden, gin.H{"message": "You can only create up to 10 rooms. Delete an existing room to create a new one."})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "http.chat").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	// The creator takes the first seat, as a pre-flight reservation; the
	// websocket join re-seats them with a live connection.
	if _, err := a.Members.AddMember(room.Code, claims.UserID); err != nil {
		log.Warn().Err(err).Str("module", "http.chat").Str("room", string(room.Code)).Msg("seat owner")
	}

	c.JSON(http.StatusOK, a.toRoomResponse(*room))
}

// JoinRoom is the pre-flight HTTP join: it reserves a seat so the client
// learns about a full room before opening a websocket. Already holding a
// seat is success.
func (a *API) JoinRoom(c *gin.Context) {
	claims := currentClaims(c)
	code := domain.RoomCode(c.Param("code"))

	switch _, err := a.Members.AddMember(code, claims.UserID); {
	case errors.Is(err, domain.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found"})
	case errors.Is(err, domain.ErrRoomFull):
		c.JSON(http.StatusForbidden, gin.H{"message": "Room full"})
	case err != nil:
		log.Error().Err(err).Str("module", "http.chat").Str("room", string(code)).Msg("join room")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Joined room"})
	}
}

func (a *API) MyRooms(c *gin.Context) {
	claims := currentClaims(c)

	rooms, err := a.Rooms.ListByOwner(claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("module", "http.chat").Msg("list rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, lo.Map(rooms, func(r domain.Room, _ int) roomResponse {
		return a.toRoomResponse(r)
	}))
}

func (a *API) GetRoom(c *gin.Context) {
	code := domain.RoomCode(c.Param("code"))

	room, err := a.Rooms.Get(code)
	if errors.Is(err, domain.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "http.chat").Str("room", string(code)).Msg("get room")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, a.toRoomResponse(room))
}

// DeleteRoom removes an owned room and cascades its messages and seats.
func (a *API) DeleteRoom(c *gin.Context) {
	claims := currentClaims(c)
	code := domain.RoomCode(c.Param("code"))

	room, err := a.Rooms.Get(code)
	if errors.Is(err, domain.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if room.OwnerID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized"})
		return
	}

	if err := a.Messages.DeleteRoom(code); err != nil {
		log.Error().Err(err).Str("module", "http.chat").Str("room", string(code)).Msg("delete messages")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if err := a.Members.RemoveAll(code); err != nil {
		log.Error().Err(err).Str("module", "http.chat").Str("room", string(code)).Msg("delete members")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if err := a.Rooms.Delete(code); err != nil {
		log.Error().Err(err).Str("module", "http.chat").Str("room", string(code)).Msg("delete room")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
}

func (a *API) RoomMessages(c *gin.Context) {
	code := domain.RoomCode(c.Param("code"))

	ok, err := a.Rooms.Exists(code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found"})
		return
	}

	msgs, err := a.Messages.ListOrdered(code)
	if err != nil {
		log.Error().Err(err).Str("module", "http.chat").Str("room", string(code)).Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}
