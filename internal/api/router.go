package api

import (
	"github.com/gin-gonic/gin"

	"github.com/voxlink/voxlink/config"
	"github.com/voxlink/voxlink/internal/gateway"
	"github.com/voxlink/voxlink/internal/handlers"
)

// NewRouter assembles the HTTP surface: REST under /api/v1 and the
// realtime gateway at /gateway.
func NewRouter(
	cfg *config.Config,
	mw *MiddlewareManager,
	authHandler *handlers.AuthHandler,
	guildHandler *handlers.GuildHandler,
	messageHandler *handlers.MessageHandler,
	voiceHandler *handlers.VoiceHandler,
	gatewayHandler *gateway.Handler,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(mw.Recovery(), mw.Logger(), mw.CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// The gateway authenticates inside the upgrade handshake.
	r.GET("/gateway", gatewayHandler.ServeWS)

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Use(mw.RateLimit(cfg.RateLimit.AuthPerMinute))
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/magic", authHandler.RequestMagicLink)
		auth.POST("/magic/verify", authHandler.VerifyMagicLink)
		auth.POST("/refresh", authHandler.Refresh)
	}

	protected := api.Group("/")
	protected.Use(mw.JWTAuth(), mw.RateLimit(cfg.RateLimit.APIPerMinute))
	{
		protected.GET("/me", authHandler.Me)
		protected.POST("/invites/redeem", authHandler.RedeemInvite)

		guilds := protected.Group("/guilds")
		{
			guilds.POST("", guildHandler.Create)
			guilds.GET("", guildHandler.List)
			guilds.POST("/join", guildHandler.Join)
			guilds.GET("/invite/:code", guildHandler.Preview)
			guilds.GET("/:id", guildHandler.Get)
			guilds.PATCH("/:id", guildHandler.Update)
			guilds.DELETE("/:id", guildHandler.Delete)

			guilds.POST("/:id/invite-code", guildHandler.RegenerateInviteCode)
			guilds.POST("/:id/invites", guildHandler.CreateInviteToken)

			guilds.GET("/:id/members", guildHandler.ListMembers)
			guilds.DELETE("/:id/members/:userID", guildHandler.KickMember)
			guilds.POST("/:id/members/:userID/ban", guildHandler.BanMember)

			guilds.GET("/:id/roles", guildHandler.ListRoles)
			guilds.POST("/:id/roles", guildHandler.CreateRole)
			guilds.PATCH("/:id/roles/:roleID", guildHandler.UpdateRole)
			guilds.DELETE("/:id/roles/:roleID", guildHandler.DeleteRole)
			guilds.PUT("/:id/members/:userID/roles/:roleID", guildHandler.AssignRole)
			guilds.DELETE("/:id/members/:userID/roles/:roleID", guildHandler.RemoveRole)

			guilds.GET("/:id/categories", guildHandler.ListCategories)
			guilds.POST("/:id/categories", guildHandler.CreateCategory)
			guilds.DELETE("/:id/categories/:categoryID", guildHandler.DeleteCategory)

			guilds.GET("/:id/channels", guildHandler.ListChannels)
			guilds.POST("/:id/channels", guildHandler.CreateChannel)
			guilds.PATCH("/:id/channels/:channelID", guildHandler.UpdateChannel)
			guilds.DELETE("/:id/channels/:channelID", guildHandler.DeleteChannel)
		}

		channels := protected.Group("/channels/:channelID")
		{
			channels.GET("/messages", messageHandler.History)
			channels.POST("/messages",
				mw.RateLimit(cfg.RateLimit.MessagePerMinute), messageHandler.Send)

			channels.POST("/voice/token", voiceHandler.Token)
			channels.GET("/voice/participants", voiceHandler.Participants)
			channels.DELETE("/voice/participants/:userID", voiceHandler.Disconnect)
		}

		protected.DELETE("/messages/:messageID", messageHandler.Delete)
	}

	return r
}
