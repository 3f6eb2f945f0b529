package api

import (
	"net/http"

	"storefront-be/internal/order"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateOrder is the legacy second step; the payment must already exist.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	addrID, err := uuid.Parse(req.AddressID)
	if err != nil {
		respondError(c, errInvalidID)
		return
	}

	o, err := h.Orders.Create(c.Request.Context(), order.CreateInput{
		AddressID:  addrID,
		PaymentID:  req.PaymentID,
		CouponCode: req.CouponCode,
		Lines:      toLines(req.OrderItems),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order_id": o.ID, "order": o})
}

func (h *Handler) CreateOrderItems(c *gin.Context) {
	var req createOrderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	items, err := h.Orders.AddItems(c.Request.Context(), req.toItems())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "items": items})
}

func (h *Handler) ListOrders(c *gin.Context) {
	opts := order.ListOptions{
		Limit: queryInt(c, "limit"),
		Page:  queryInt(c, "page"),
	}
	if s := c.Query("status"); s != "" {
		status := order.Status(s)
		if !status.Valid() {
			respondError(c, order.ErrInvalidStatus)
			return
		}
		opts.Status = &status
	}

	res, err := h.Orders.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	o, err := h.Orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.Orders.UpdateStatus(c.Request.Context(), id, order.Status(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	// the body is optional
	var req cancelOrderRequest
	_ = c.ShouldBindJSON(&req)

	o, err := h.Orders.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
