package api

import (
	"net/http"

	"storefront-be/internal/address"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func addressID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func (r addressRequest) toInput() address.Input {
	return address.Input{
		Name:         r.Name,
		Phone:        r.Phone,
		AddressLine:  r.AddressLine,
		City:         r.City,
		State:        r.State,
		Pincode:      r.Pincode,
		SetAsDefault: r.SetAsDefault,
	}
}

func (h *Handler) ListAddresses(c *gin.Context) {
	list, err := h.Addresses.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetAddress(c *gin.Context) {
	id, ok := addressID(c)
	if !ok {
		return
	}

	a, err := h.Addresses.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) CreateAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	a, err := h.Addresses.Create(c.Request.Context(), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// UpdateAddress returns the replacement row, which has a new id.
func (h *Handler) UpdateAddress(c *gin.Context) {
	id, ok := addressID(c)
	if !ok {
		return
	}

	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	a, err := h.Addresses.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAddress(c *gin.Context) {
	id, ok := addressID(c)
	if !ok {
		return
	}

	if err := h.Addresses.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) SetDefaultAddress(c *gin.Context) {
	id, ok := addressID(c)
	if !ok {
		return
	}

	if err := h.Addresses.SetDefaultAddress(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
