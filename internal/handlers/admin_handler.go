package handlers

import (
	"net/http"
	"strconv"

	"exam-betting/internal/models"
	"exam-betting/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	userService       *services.UserService
	playerService     *services.PlayerService
	settlementService *services.SettlementService
}

func NewAdminHandler(
	userService *services.UserService,
	playerService *services.PlayerService,
	settlementService *services.SettlementService,
) *AdminHandler {
	return &AdminHandler{
		userService:       userService,
		playerService:     playerService,
		settlementService: settlementService,
	}
}

// AdminMiddleware checks if the authenticated user is an admin
func (h *AdminHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		user, err := h.userService.GetUserByID(c.Request.Context(), userID.(uint))
		if err != nil || !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not an admin"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RegisterPlayer opens a new market on an exam candidate
// POST /api/admin/players
func (h *AdminHandler) RegisterPlayer(c *gin.Context) {
	var req models.RegisterPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	player, err := h.playerService.RegisterPlayer(c.Request.Context(), req.Name, req.PassOdds, req.FailOdds)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    player,
	})
}

// UpdateOdds moves an active player's quoted odds
// PUT /api/admin/players/:id/odds
func (h *AdminHandler) UpdateOdds(c *gin.Context) {
	playerID, err := parsePlayerID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}

	var req models.UpdateOddsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	player, err := h.playerService.UpdateOdds(c.Request.Context(), playerID, req.PassOdds, req.FailOdds)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    player,
	})
}

// SettlePlayer records a player's final result and resolves affected bets
// POST /api/admin/players/:id/settle
func (h *AdminHandler) SettlePlayer(c *gin.Context) {
	playerID, err := parsePlayerID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}

	var req models.SettlePlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	affected, err := h.settlementService.SettlePlayer(c.Request.Context(), playerID, req.Result)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"player_id":          playerID,
			"result":             req.Result,
			"affected_bet_count": affected,
		},
	})
}

// GetAllPlayers lists every market, settled included
// GET /api/admin/players
func (h *AdminHandler) GetAllPlayers(c *gin.Context) {
	players, err := h.playerService.GetAllPlayers(c.Request.Context())
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

func parsePlayerID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
