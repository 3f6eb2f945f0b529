package api

import (
	"net/http"

	"storefront-be/internal/payment"

	"github.com/gin-gonic/gin"
)

// CreatePayment is the first legacy checkout step.
func (h *Handler) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.Payments.Create(c.Request.Context(), payment.CreateInput{
		Amount: req.Amount,
		Method: req.PaymentMethod,
		Status: req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "payment_id": p.ID, "payment": p})
}

func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.Payments.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// LinkPayment is idempotent for the same order.
func (h *Handler) LinkPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req linkPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.Payments.Link(c.Request.Context(), id, req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment": p})
}

func (h *Handler) CreateRazorpayOrder(c *gin.Context) {
	var req providerOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.Payments.CreateProviderOrder(c.Request.Context(), req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment_id":        p.ID,
		"razorpay_order_id": p.ProviderOrderID,
		"amount":            p.Amount,
		"currency":          "INR",
	})
}

func (h *Handler) VerifyRazorpayPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.Payments.Verify(c.Request.Context(), payment.VerifyInput{
		PaymentID:         req.PaymentID,
		ProviderOrderID:   req.RazorpayOrderID,
		ProviderPaymentID: req.RazorpayPaymentID,
		Signature:         req.RazorpaySignature,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment": p})
}
