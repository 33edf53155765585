package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/abriesk/psychobotV1/internal/service/slots"
	"github.com/gin-gonic/gin"
)

type SlotHandler struct {
	service slots.SlotUseCase
}

type slotResponse struct {
	ID        int64  `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsOnline  bool   `json:"is_online"`
	Status    string `json:"status"`
}

func NewSlotHandler(service slots.SlotUseCase) *SlotHandler {
	return &SlotHandler{service: service}
}

// Register wires the client-facing slot routes: browsing and holding.
func (h *SlotHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.POST("/:id/hold", h.hold)
}

// RegisterAdmin wires slot scheduling for the admin surface.
func (h *SlotHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.DELETE("/:id", h.delete)
}

func (h *SlotHandler) list(c *gin.Context) {
	var onlineOnly *bool
	if raw := c.Query("online"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid online filter"})
			return
		}
		onlineOnly = &v
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = v
	}

	var horizon time.Duration
	if raw := c.Query("horizon_hours"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid horizon_hours"})
			return
		}
		horizon = time.Duration(v) * time.Hour
	}

	list, err := h.service.ListAvailable(c.Request.Context(), onlineOnly, limit, horizon)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]slotResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSlotResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

func (h *SlotHandler) hold(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.Hold(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"held": true, "slot_id": id})
}

func (h *SlotHandler) create(c *gin.Context) {
	var input slots.CreateSlotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.service.CreateSlot(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toSlotResponse(*slot))
}

func (h *SlotHandler) delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.DeleteSlot(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func toSlotResponse(s domain.Slot) slotResponse {
	return slotResponse{
		ID:        s.ID,
		StartTime: s.StartTime.Format(time.RFC3339),
		EndTime:   s.EndTime.Format(time.RFC3339),
		IsOnline:  s.IsOnline,
		Status:    string(s.Status),
	}
}
