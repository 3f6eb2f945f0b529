package api

import (
	"net/http"

	"storefront-be/internal/pricing"
	"storefront-be/internal/product"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListProducts(c *gin.Context) {
	res, err := h.Products.List(c.Request.Context(), product.ListOptions{
		Search: c.Query("search"),
		Limit:  queryInt(c, "limit"),
		Page:   queryInt(c, "page"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.Products.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ApplyCoupon previews a code against the caller's cart at current prices.
// Nothing is stored; checkout evaluates the code again.
func (h *Handler) ApplyCoupon(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	var req applyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cart, err := h.Carts.Get(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}

	lines := make([]pricing.Line, len(cart.Items))
	for i, it := range cart.Items {
		lines[i] = pricing.Line{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.CurrentPrice}
	}

	q, err := h.Pricer.Quote(lines, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, couponPreview{
		Code:           *q.CouponCode,
		Subtotal:       q.Subtotal,
		DeliveryCharge: q.DeliveryCharge,
		Discount:       q.Discount,
		TotalAmount:    q.Total,
	})
}
