package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

// TrackingHandler serves order history and payment status.
type TrackingHandler struct {
	service interfaces.TrackingService
	logger  logger.Logger
}

func NewTrackingHandler(service interfaces.TrackingService, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *TrackingHandler) GetOrderHistory(c *gin.Context) {
	history, err := h.service.GetOrderHistory(c.Request.Context(), queryCredentials(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "order_history_failed", err)
		return
	}

	out := make([]gin.H, len(history))
	for i, e := range history {
		out[i] = gin.H{
			"action":    e.Action,
			"status":    e.Status,
			"actorId":   e.ActorID,
			"timestamp": e.CreatedAt.UTC().Format(time.RFC3339),
			"details":   e.Details,
		}
	}
	respondOK(c, http.StatusOK, gin.H{"orderId": c.Param("id"), "history": out})
}

func (h *TrackingHandler) GetPaymentStatus(c *gin.Context) {
	p, err := h.service.GetPaymentStatus(c.Request.Context(), queryCredentials(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "payment_status_failed", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"paymentId":      p.ID,
		"status":         p.Status,
		"amount":         p.Amount.String(),
		"refundedAmount": p.RefundedAmount.String(),
	})
}
