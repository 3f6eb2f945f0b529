package api

import (
	"errors"
	"net/http"

	"storefront-be/internal/address"
	"storefront-be/internal/cart"
	"storefront-be/internal/checkout"
	"storefront-be/internal/coupon"
	"storefront-be/internal/customer"
	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/otp"
	"storefront-be/internal/payment"
	"storefront-be/internal/pricing"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errInvalidID = errors.New("invalid id")

var errorStatus = []struct {
	status int
	errs   []error
}{
	{http.StatusBadRequest, []error{
		errInvalidID,
		checkout.ErrMissingIdempotencyKey,
		checkout.ErrInvalidIdempotencyKey,
		payment.ErrInvalidMethod,
		payment.ErrInvalidAmount,
		payment.ErrNotRazorpay,
		payment.ErrOrderMismatch,
		payment.ErrInvalidSignature,
		pricing.ErrEmptyCart,
		pricing.ErrInvalidQuantity,
		cart.ErrInvalidQuantity,
		address.ErrInvalidPhone,
		address.ErrInvalidPincode,
		address.ErrMissingField,
		order.ErrInvalidStatus,
		order.ErrNoItems,
		customer.ErrInvalidEmail,
		customer.ErrInvalidPhone,
		customer.ErrMissingName,
		customer.ErrWeakPassword,
		otp.ErrInvalidPurpose,
		otp.ErrMissingIdentity,
	}},
	{http.StatusUnauthorized, []error{
		utils.ErrUnauthenticated,
		customer.ErrInvalidCredentials,
	}},
	{http.StatusForbidden, []error{
		utils.ErrForbidden,
	}},
	{http.StatusNotFound, []error{
		product.ErrProductNotFound,
		address.ErrAddressNotFound,
		order.ErrOrderNotFound,
		payment.ErrPaymentNotFound,
		cart.ErrCartItemNotFound,
		customer.ErrCustomerNotFound,
	}},
	{http.StatusConflict, []error{
		product.ErrInsufficientStock,
		product.ErrPriceChanged,
		checkout.ErrIdempotencyConflict,
		checkout.ErrInProgress,
		payment.ErrAlreadyLinked,
		payment.ErrNotLinkable,
		payment.ErrNotPending,
		order.ErrInvalidTransition,
		order.ErrNotCancellable,
		order.ErrItemsMismatch,
		order.ErrOrderNotPending,
		customer.ErrEmailExists,
		customer.ErrPhoneExists,
	}},
	{http.StatusUnprocessableEntity, []error{
		coupon.ErrInvalidCoupon,
		otp.ErrInvalidCode,
		otp.ErrTooManyAttempts,
	}},
	{http.StatusTooManyRequests, []error{
		otp.ErrRateLimited,
	}},
	{http.StatusBadGateway, []error{
		payment.ErrGateway,
	}},
}

func statusFor(err error) int {
	for _, group := range errorStatus {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Unmapped errors are logged and hidden.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		logger.FromCtx(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal server error"})
	case http.StatusBadGateway:
		logger.FromCtx(c.Request.Context()).Error("payment provider failed", zap.Error(err))
		c.JSON(status, gin.H{"error": "payment provider unavailable"})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
