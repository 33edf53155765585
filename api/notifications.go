package api

import (
	"net/http"

	"github.com/abriesk/psychobotV1/internal/service/outbox"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	service outbox.OutboxUseCase
}

func NewNotificationHandler(service outbox.OutboxUseCase) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterAdmin wires ad-hoc enqueue and the stuck-item operator view.
func (h *NotificationHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.POST("/", h.enqueue)
	router.GET("/stuck", h.stuck)
}

func (h *NotificationHandler) enqueue(c *gin.Context) {
	var input outbox.EnqueueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.service.Enqueue(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": n.ID, "created_at": n.CreatedAt})
}

func (h *NotificationHandler) stuck(c *gin.Context) {
	count, err := h.service.StuckCount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stuck": count})
}
