package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/abriesk/psychobotV1/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	service booking.BookingUseCase
}

type requestResponse struct {
	ID          int64  `json:"id"`
	Token       string `json:"token"`
	UserID      int64  `json:"user_id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	DesiredTime string `json:"desired_time,omitempty"`
	FinalTime   string `json:"final_time,omitempty"`
	SlotID      *int64 `json:"slot_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type finalizeRequest struct {
	SlotID int64 `json:"slot_id"`
}

type counterRequest struct {
	Message string `json:"message"`
}

type proposeRequest struct {
	ProposedTime string `json:"proposed_time"`
}

func NewRequestHandler(service booking.BookingUseCase) *RequestHandler {
	return &RequestHandler{service: service}
}

// Register wires the client-facing request routes, keyed by the opaque token
// the chat side holds.
func (h *RequestHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:token", h.get)
	router.POST("/:token/finalize", h.finalize)
	router.POST("/:token/accept", h.accept)
	router.POST("/:token/counter", h.counter)
	router.DELETE("/:token", h.cancel)
}

// RegisterAdmin wires the admin management surface, keyed by numeric id.
func (h *RequestHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:id/history", h.history)
	router.POST("/:id/propose", h.propose)
	router.POST("/:id/approve", h.approve)
	router.POST("/:id/reject", h.reject)
}

func (h *RequestHandler) create(c *gin.Context) {
	var input booking.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.service.CreateRequest(c.Request.Context(), input)
	if err != nil {
		if domain.IsContention(err) || errors.Is(err, domain.ErrSlotNotFound) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toRequestResponse(req))
}

func (h *RequestHandler) get(c *gin.Context) {
	req, err := h.service.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(req))
}

func (h *RequestHandler) finalize(c *gin.Context) {
	var body finalizeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.service.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.service.FinalizeSlotBooking(c.Request.Context(), req.ID, body.SlotID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(updated))
}

func (h *RequestHandler) accept(c *gin.Context) {
	req, err := h.service.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.service.ClientAccept(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(updated))
}

func (h *RequestHandler) counter(c *gin.Context) {
	var body counterRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.service.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.service.ClientCounter(c.Request.Context(), req.ID, body.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(updated))
}

func (h *RequestHandler) cancel(c *gin.Context) {
	req, err := h.service.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.service.Cancel(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(updated))
}

func (h *RequestHandler) list(c *gin.Context) {
	var status *domain.RequestStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.RequestStatus(raw)
		status = &s
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

	requests, err := h.service.ListRequests(c.Request.Context(), status, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]requestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toRequestResponse(&requests[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) history(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	entries, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *RequestHandler) propose(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var body proposeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.service.AdminPropose(c.Request.Context(), id, body.ProposedTime)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(req))
}

func (h *RequestHandler) approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := h.service.AdminApprove(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(req))
}

func (h *RequestHandler) reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := h.service.AdminReject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(req))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func toRequestResponse(req *domain.Request) requestResponse {
	return requestResponse{
		ID:          req.ID,
		Token:       req.Token,
		UserID:      req.UserID,
		Type:        string(req.Type),
		Status:      string(req.Status),
		DesiredTime: req.DesiredTime,
		FinalTime:   req.FinalTime,
		SlotID:      req.SlotID,
		CreatedAt:   req.CreatedAt.Format(time.RFC3339),
	}
}
