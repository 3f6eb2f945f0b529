package api

import (
	"net/http"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/utils"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Tokens      *auth.TokenManager
	Limiter     *middleware.RateLimiter
	Metrics     *metrics.Metrics
	CORSOrigins []string
	Webhooks    *webhook.Handler
}

func NewRouter(cfg RouterConfig, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		logger.AccessLog(),
		cfg.Metrics.Middleware(),
		middleware.CORS(cfg.CORSOrigins),
		middleware.Authenticate(cfg.Tokens),
	)
	if cfg.Limiter != nil {
		r.Use(cfg.Limiter.Middleware())
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	api := r.Group("/api")

	// public
	api.POST("/customers/register", h.Register)
	api.POST("/customers/login", h.Login)
	api.POST("/email/otp", h.RequestEmailOTP)
	api.POST("/customers/verify-otp-reset", h.VerifyOTPReset)
	api.POST("/customers/generate-mobile-otp", h.GenerateMobileOTP)
	api.POST("/customers/verify-mobile-otp", h.VerifyMobileOTP)
	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	if cfg.Webhooks != nil {
		api.POST("/payments/razorpay/webhook", cfg.Webhooks.Razorpay)
	}

	authed := api.Group("", middleware.RequireAuth())
	authed.GET("/customers/me", h.Me)

	authed.GET("/cart", h.GetCart)
	authed.POST("/cart", h.AddToCart)
	authed.DELETE("/cart/clear", h.ClearCart)
	authed.PUT("/cart/:product_id", h.UpdateCartItem)
	authed.DELETE("/cart/:product_id", h.RemoveCartItem)
	authed.POST("/coupons/apply", h.ApplyCoupon)

	authed.GET("/addresses", h.ListAddresses)
	authed.POST("/addresses", h.CreateAddress)
	authed.GET("/addresses/:id", h.GetAddress)
	authed.PUT("/addresses/:id", h.UpdateAddress)
	authed.DELETE("/addresses/:id", h.DeleteAddress)
	authed.PUT("/addresses/:id/default", h.SetDefaultAddress)

	authed.POST("/checkout", h.Checkout)

	authed.POST("/payments", h.CreatePayment)
	authed.GET("/payments/:id", h.GetPayment)
	authed.PUT("/payments/:id", h.LinkPayment)
	authed.POST("/payments/razorpay/order", h.CreateRazorpayOrder)
	authed.POST("/payments/razorpay/verify", h.VerifyRazorpayPayment)

	authed.POST("/orders", h.CreateOrder)
	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/:id", h.GetOrder)
	authed.POST("/orders/:id/cancel", h.CancelOrder)
	authed.PUT("/orders/:id/status",
		middleware.RequireRole(utils.RoleRetailer, utils.RoleAdmin),
		h.UpdateOrderStatus,
	)
	authed.POST("/order-items", h.CreateOrderItems)

	return r
}
