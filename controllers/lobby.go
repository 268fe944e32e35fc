package controllers

import (
	redis_models "Arena/models/redis"
	"Arena/services/socket_io/handlers"
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// LobbyReader is the part of the socket hub the lobby endpoints read from
type LobbyReader interface {
	Online() handlers.OnlineStats
	LobbyStats() handlers.LobbyStats
}

type PresenceReader interface {
	GetPresence(ctx context.Context, playerID string) (*redis_models.PlayerPresence, error)
}

type LobbyController struct {
	Lobby    LobbyReader
	Presence PresenceReader
}

// @Summary Online counters
// @Description Number of registered players, players searching and players in a game
// @Tags lobby
// @Produce json
// @Success 200 {object} handlers.OnlineStats
// @Router /api/lobby/online [get]
func (lc *LobbyController) GetOnline(c *gin.Context) {
	c.JSON(http.StatusOK, lc.Lobby.Online())
}

// @Summary Matchmaking queue
// @Description Players waiting in the queue, longest wait first, and pending invitations
// @Tags lobby
// @Produce json
// @Success 200 {object} handlers.LobbyStats
// @Router /api/lobby/queue [get]
func (lc *LobbyController) GetQueue(c *gin.Context) {
	c.JSON(http.StatusOK, lc.Lobby.LobbyStats())
}

// @Summary Player presence
// @Description Whether a player is online, playing or offline
// @Tags lobby
// @Produce json
// @Param id path string true "Player ID"
// @Success 200 {object} redis.PlayerPresence
// @Failure 500 {object} object{error=string}
// @Failure 503 {object} object{error=string}
// @Router /api/players/{id}/presence [get]
func (lc *LobbyController) GetPresence(c *gin.Context) {
	if lc.Presence == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Presence is not available"})
		return
	}
	presence, err := lc.Presence.GetPresence(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("[PRESENCE-ERROR] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading presence"})
		return
	}
	c.JSON(http.StatusOK, presence)
}
