package http

import (
	"context"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"huddle/internal/adapters/ws"
	"huddle/internal/config"
)

// SetupRouter wires the REST surface and the websocket endpoint. Limits
// mirror the public deployment: 200 requests / 15 min overall on chat
// routes, hourly caps on auth and room mutations.
func SetupRouter(ctx context.Context, cfg *config.Config, api *API, wsCtl *ws.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("HuddleSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	authGroup := r.Group("/api/auth")
	{
		registerLimiter := NewRateLimiter(100, time.Hour)
		loginLimiter := NewRateLimiter(100, time.Hour)
		authGroup.POST("/register", registerLimiter.Middleware("Too many signup attempts from this IP, please try again after an hour."), api.Register)
		authGroup.POST("/login", loginLimiter.Middleware("Too many login attempts from this IP, please try again after an hour."), api.Login)
	}

	chat := r.Group("/api/chat")
	chat.Use(NewRateLimiter(200, 15*time.Minute).Middleware("Too many requests, please try again later."))
	chat.Use(JWTAuth(api.Tokens))
	{
		createLimiter := NewRateLimiter(30, time.Hour)
		joinLimiter := NewRateLimiter(100, time.Hour)
		deleteLimiter := NewRateLimiter(100, time.Hour)

		chat.POST("/room", createLimiter.Middleware("Too many room creation attempts, try again later."), api.CreateRoom)
		chat.POST("/room/:code/join", joinLimiter.Middleware("Too many join attempts, slow down."), api.JoinRoom)
		chat.GET("/my-rooms", api.MyRooms)
		chat.GET("/room/:code", api.GetRoom)
		chat.DELETE("/room/:code", deleteLimiter.Middleware("Too many delete attempts. Try again later."), api.DeleteRoom)
		chat.GET("/room/:code/messages", api.RoomMessages)
	}

	r.GET("/api/ws", func(c *gin.Context) {
		wsCtl.HandleWS(ctx, c)
	})

	return r
}
