package api

import (
	"net/http"
	"strconv"
	"time"

	"storefront-be/internal/address"
	"storefront-be/internal/auth"
	"storefront-be/internal/cart"
	"storefront-be/internal/checkout"
	"storefront-be/internal/customer"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/pricing"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Customers customer.Service
	Products  product.Service
	Carts     cart.Service
	Addresses address.Service
	Payments  payment.Service
	Orders    order.Service
	Checkouts checkout.Service
	Pricer    *pricing.Pricer

	// CookieTTL and SecureCookies shape the access_token cookie.
	CookieTTL     time.Duration
	SecureCookies bool
}

func callerID(c *gin.Context) (int64, bool) {
	id, ok := utils.GetUserIDFromContext(c.Request.Context())
	if !ok {
		respondError(c, utils.ErrUnauthenticated)
	}
	return id, ok
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		respondError(c, errInvalidID)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

func (h *Handler) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.AccessTokenCookie, token, int(h.CookieTTL.Seconds()), "/", "", h.SecureCookies, true)
}
