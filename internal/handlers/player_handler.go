package handlers

import (
	"net/http"

	"exam-betting/internal/services"

	"github.com/gin-gonic/gin"
)

type PlayerHandler struct {
	playerService *services.PlayerService
}

func NewPlayerHandler(playerService *services.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: playerService}
}

// GetActivePlayers lists open markets with stake aggregates
// GET /api/players
func (h *PlayerHandler) GetActivePlayers(c *gin.Context) {
	players, err := h.playerService.GetActivePlayers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    players,
		"count":   len(players),
	})
}
