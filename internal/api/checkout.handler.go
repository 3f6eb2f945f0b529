package api

import (
	"net/http"

	"storefront-be/internal/checkout"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// Checkout places the whole order in one call. A replayed key answers 200
// with the stored result; a new order answers 201.
func (h *Handler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	addrID, err := uuid.Parse(req.AddressID)
	if err != nil {
		respondError(c, errInvalidID)
		return
	}

	res, err := h.Checkouts.Checkout(c.Request.Context(), checkout.Input{
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
		AddressID:      addrID,
		PaymentMethod:  req.PaymentMethod,
		CouponCode:     req.CouponCode,
		Lines:          toLines(req.Items),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, res)
}
