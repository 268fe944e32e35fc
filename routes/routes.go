package routes

import (
	"Arena/controllers"
	"Arena/middleware"
	utils "Arena/utils"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the read sides the HTTP API serves from. Presence, Cache
// and Store stay nil when their backend is not configured.
type Dependencies struct {
	Lobby     controllers.LobbyReader
	Games     controllers.GameReader
	Presence  controllers.PresenceReader
	Cache     controllers.SummaryReader
	Store     controllers.ResultStore
	JWTSecret []byte
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	lobbyController := &controllers.LobbyController{Lobby: deps.Lobby, Presence: deps.Presence}
	gameController := &controllers.GameController{Games: deps.Games, Cache: deps.Cache, Store: deps.Store}

	// utils global
	router.Use(utils.ErrorHandler())

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/ping", controllers.Ping)
	router.GET("/health", controllers.Health)

	// API routes group
	api := router.Group("/api")
	{
		lobby := api.Group("/lobby")
		lobby.GET("/online", lobbyController.GetOnline)
		lobby.GET("/queue", lobbyController.GetQueue)

		api.GET("/players/:id/presence", lobbyController.GetPresence)

		gameGroup := api.Group("/game")
		// Routes that require authentication
		authenticated := gameGroup.Group("/")
		authenticated.Use(middleware.AuthRequired(deps.JWTSecret))
		{
			authenticated.GET("/history", gameController.GetHistory)
			authenticated.GET("/stats", gameController.GetStats)
		}
		gameGroup.GET("/:id", gameController.GetGame)
	}
}
