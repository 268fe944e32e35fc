package controllers

import (
	apperrors "Arena/errors"
	"Arena/middleware"
	"Arena/models/postgres"
	"Arena/services/game"
	"Arena/services/redis"
	"Arena/services/sync"
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type GameReader interface {
	GameSnapshot(gameID string) (game.Snapshot, error)
}

type SummaryReader interface {
	GetGameSummary(ctx context.Context, gameID string) (*game.Summary, error)
}

type ResultStore interface {
	History(ctx context.Context, playerID string, limit int) ([]postgres.GameResult, error)
	Stats(ctx context.Context, playerID string) (sync.PlayerStats, error)
}

// GameController serves live sessions from the hub and finished ones from
// the cache and the database. Cache and Store may be nil.
type GameController struct {
	Games GameReader
	Cache SummaryReader
	Store ResultStore
}

// @Summary Game state
// @Description Live snapshot of a game, or its cached summary once the session is gone
// @Tags game
// @Produce json
// @Param id path string true "Game ID"
// @Success 200 {object} object{game=game.Snapshot,summary=game.Summary}
// @Failure 404 {object} object{error=string,code=string}
// @Router /api/game/{id} [get]
func (gc *GameController) GetGame(c *gin.Context) {
	gameID := c.Param("id")

	snapshot, err := gc.Games.GameSnapshot(gameID)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"game": snapshot})
		return
	}

	if gc.Cache != nil {
		summary, cacheErr := gc.Cache.GetGameSummary(c.Request.Context(), gameID)
		if cacheErr == nil {
			c.JSON(http.StatusOK, gin.H{"summary": summary})
			return
		}
		if !errors.Is(cacheErr, redis.ErrSummaryNotCached) {
			log.Printf("[GAME-ERROR] Reading cached summary %s: %v", gameID, cacheErr)
		}
	}

	c.JSON(http.StatusNotFound, gin.H{
		"error": apperrors.PlayerMessage(err),
		"code":  apperrors.CodeOf(err),
	})
}

// @Summary Game history
// @Description Finished games of the authenticated player, newest first
// @Tags game
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param limit query int false "Maximum number of games (default 20, max 100)"
// @Success 200 {object} object{games=[]postgres.GameResult}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Failure 500 {object} object{error=string}
// @Failure 503 {object} object{error=string}
// @Router /api/game/history [get]
// @Security ApiKeyAuth
func (gc *GameController) GetHistory(c *gin.Context) {
	if gc.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Game history is not available"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	games, err := gc.Store.History(c.Request.Context(), c.GetString(middleware.PlayerIDKey), limit)
	if err != nil {
		log.Printf("[GAME-ERROR] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading game history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// @Summary Player statistics
// @Description Games played, wins, losses and draws of the authenticated player
// @Tags game
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {object} sync.PlayerStats
// @Failure 401 {object} object{error=string}
// @Failure 500 {object} object{error=string}
// @Failure 503 {object} object{error=string}
// @Router /api/game/stats [get]
// @Security ApiKeyAuth
func (gc *GameController) GetStats(c *gin.Context) {
	if gc.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Game statistics are not available"})
		return
	}

	stats, err := gc.Store.Stats(c.Request.Context(), c.GetString(middleware.PlayerIDKey))
	if err != nil {
		log.Printf("[GAME-ERROR] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
