package api

import (
	"errors"
	"net/http"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/gin-gonic/gin"
)

// respondError maps the engine's error taxonomy to HTTP: contention failures
// are 409 (pick another slot), state-machine violations are 422 (already
// resolved), missing entities are 404.
func respondError(c *gin.Context, err error) {
	switch {
	case domain.IsContention(err), errors.Is(err, domain.ErrSlotNotAvailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRequestTerminal), errors.Is(err, domain.ErrNoPendingProposal):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRequestNotFound), errors.Is(err, domain.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
