package webhook

import (
	"errors"
	"io"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SignatureHeader = "X-Razorpay-Signature"
	EventIDHeader   = "X-Razorpay-Event-Id"

	maxBodyBytes = 1 << 20
)

type Handler struct {
	PaymentSvc payment.Service
}

func NewWebhookHandler(paymentSvc payment.Service) *Handler {
	return &Handler{PaymentSvc: paymentSvc}
}

// Razorpay retries anything but 2xx, so only transient failures return 5xx.
func (h *Handler) Razorpay(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	err = h.PaymentSvc.HandleWebhook(
		c.Request.Context(),
		c.GetHeader(EventIDHeader),
		body,
		c.GetHeader(SignatureHeader),
	)

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, payment.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
	case errors.Is(err, payment.ErrInvalidWebhook):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
	default:
		logger.FromCtx(c.Request.Context()).Error("webhook failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process webhook"})
	}
}
