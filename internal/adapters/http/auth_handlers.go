package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"huddle/internal/auth"
	"huddle/internal/domain"
	"huddle/internal/storage"
)

type API struct {
	Users    *storage.UserRepository
	Rooms    *storage.RoomRepository
	Members  *storage.MembershipRepository
	Messages *storage.MessageRepository
	Tokens   *auth.Tokens
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=80"`
	Username string `json:"username" binding:"required,min=4,max=40"`
	Password string `json:"password" binding:"required,min=4,max=40"`
}

func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	user, err := domain.NewUser(req.Email, req.Username, hash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	switch err := a.Users.Create(user); {
	case errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email already registered"})
		return
	case errors.Is(err, domain.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username already taken"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "http.auth").Msg("create user")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	token, err := a.Tokens.Issue(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email,max=80"`
	Password string `json:"password" binding:"required,min=4,max=40"`
}

func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := a.Users.GetByEmail(domain.NormalizeEmail(req.Email))
	if errors.Is(err, domain.ErrUserNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "http.auth").Msg("lookup user")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	token, err := a.Tokens.Issue(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
