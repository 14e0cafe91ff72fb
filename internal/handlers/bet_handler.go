package handlers

import (
	"net/http"
	"strconv"

	"exam-betting/internal/auth"
	"exam-betting/internal/models"
	"exam-betting/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BetHandler struct {
	betService     *services.BetService
	historyService *services.HistoryService
}

func NewBetHandler(betService *services.BetService, historyService *services.HistoryService) *BetHandler {
	return &BetHandler{
		betService:     betService,
		historyService: historyService,
	}
}

// PlaceSingleBets places a batch of independent single bets
// POST /api/bets/single
func (h *BetHandler) PlaceSingleBets(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.PlaceSingleBetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.betService.PlaceSingleBets(c.Request.Context(), userID, req.Bets)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result,
	})
}

// PlaceParlayBet places one multi-leg bet with a shared stake
// POST /api/bets/parlay
func (h *BetHandler) PlaceParlayBet(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.PlaceParlayBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.betService.PlaceParlayBet(c.Request.Context(), userID, req.Stake, req.Legs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result,
	})
}

// GetHistory returns the owner's bets with stats and pagination
// GET /api/bets/history?status=&type=&limit=&offset=
func (h *BetHandler) GetHistory(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := models.HistoryFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
	}

	page, err := h.historyService.GetHistory(c.Request.Context(), userID, filter, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page,
	})
}

// GetBet returns one of the owner's bets
// GET /api/bets/:id
func (h *BetHandler) GetBet(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	betID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bet id"})
		return
	}

	bet, err := h.betService.GetBet(c.Request.Context(), userID, betID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bet,
	})
}
