package handlers

import (
	"errors"
	"net/http"

	"exam-betting/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps domain error kinds onto HTTP statuses. The wrapped
// message names the violated invariant, so it goes to the client as-is.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, services.ErrUnknownPlayer),
		errors.Is(err, services.ErrUnknownBet),
		errors.Is(err, services.ErrUnknownUser):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAlreadySettled):
		status = http.StatusConflict
	case errors.Is(err, services.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
