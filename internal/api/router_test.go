package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-be/internal/auth"
	"storefront-be/internal/cart"
	"storefront-be/internal/checkout"
	"storefront-be/internal/coupon"
	"storefront-be/internal/customer"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"
	"storefront-be/internal/otp"
	"storefront-be/internal/payment"
	"storefront-be/internal/pricing"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mocks ---

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Checkout(ctx context.Context, input checkout.Input) (*checkout.Result, error) {
	args := m.Called(ctx, input)
	res, _ := args.Get(0).(*checkout.Result)
	return res, args.Error(1)
}

type MockCustomerService struct {
	mock.Mock
	customer.Service
}

func (m *MockCustomerService) Login(ctx context.Context, email, password string) (*customer.AuthResult, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(*customer.AuthResult)
	return res, args.Error(1)
}

func (m *MockCustomerService) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type MockCartService struct {
	mock.Mock
	cart.Service
}

func (m *MockCartService) Get(ctx context.Context, customerID int64) (*cart.Cart, error) {
	args := m.Called(ctx, customerID)
	c, _ := args.Get(0).(*cart.Cart)
	return c, args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, customerID int64) error {
	return m.Called(ctx, customerID).Error(0)
}

type MockOrderService struct {
	mock.Mock
	order.Service
}

func (m *MockOrderService) Create(ctx context.Context, input order.CreateInput) (*order.Order, error) {
	args := m.Called(ctx, input)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id int64, next order.Status) (*order.Order, error) {
	args := m.Called(ctx, id, next)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

// --- Harness ---

type testServer struct {
	router    *gin.Engine
	tokens    *auth.TokenManager
	checkouts *MockCheckoutService
	customers *MockCustomerService
	carts     *MockCartService
	orders    *MockOrderService
}

func newTestServer() *testServer {
	ts := &testServer{
		tokens:    auth.NewTokenManager("testsecret", time.Hour),
		checkouts: new(MockCheckoutService),
		customers: new(MockCustomerService),
		carts:     new(MockCartService),
		orders:    new(MockOrderService),
	}

	h := &Handler{
		Customers: ts.customers,
		Carts:     ts.carts,
		Orders:    ts.orders,
		Checkouts: ts.checkouts,
		Pricer:    pricing.NewPricer(decimal.NewFromInt(49), decimal.NewFromInt(1000), coupon.DefaultRegistry()),
		CookieTTL: time.Hour,
	}
	ts.router = NewRouter(RouterConfig{
		Tokens:  ts.tokens,
		Metrics: metrics.NewNop(),
	}, h)
	return ts
}

func (ts *testServer) token(t *testing.T, id int64, role string) string {
	tok, err := ts.tokens.Generate(id, "c@example.com", role)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

// --- Tests ---

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{checkout.ErrMissingIdempotencyKey, http.StatusBadRequest},
		{utils.ErrUnauthenticated, http.StatusUnauthorized},
		{utils.ErrForbidden, http.StatusForbidden},
		{order.ErrOrderNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: product 3", product.ErrInsufficientStock), http.StatusConflict},
		{checkout.ErrIdempotencyConflict, http.StatusConflict},
		{coupon.ErrInvalidCoupon, http.StatusUnprocessableEntity},
		{otp.ErrInvalidCode, http.StatusUnprocessableEntity},
		{otp.ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("%w: status 503", payment.ErrGateway), http.StatusBadGateway},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, statusFor(tc.err), tc.err.Error())
	}
}

func TestRouter_Health(t *testing.T) {
	ts := newTestServer()

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "", nil, nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/metrics", "", nil, nil).Code)
}

func TestRouter_AuthGates(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/cart", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/api/cart", "not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPut, "/api/orders/1/status", ts.token(t, 7, utils.RoleCustomer), gin.H{"status": "shipped"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	ts.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_UpdateOrderStatus(t *testing.T) {
	ts := newTestServer()
	ts.orders.On("UpdateStatus", mock.Anything, int64(1), order.StatusShipped).
		Return(&order.Order{ID: 1, Status: order.StatusShipped}, nil).Once()
	ts.orders.On("UpdateStatus", mock.Anything, int64(2), order.StatusDelivered).
		Return(nil, fmt.Errorf("%w: pending to delivered", order.ErrInvalidTransition)).Once()

	staff := ts.token(t, 1, utils.RoleRetailer)

	w := ts.do(http.MethodPut, "/api/orders/1/status", staff, gin.H{"status": "shipped"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPut, "/api/orders/2/status", staff, gin.H{"status": "delivered"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(http.MethodPut, "/api/orders/abc/status", staff, gin.H{"status": "shipped"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_CreateOrder(t *testing.T) {
	addrID := uuid.New()
	body := gin.H{
		"address_id":  addrID.String(),
		"payment_id":  5,
		"order_items": []gin.H{{"product_id": 1, "quantity": 2}},
	}

	t.Run("Created", func(t *testing.T) {
		ts := newTestServer()
		ts.orders.On("Create", mock.Anything, mock.MatchedBy(func(in order.CreateInput) bool {
			return in.AddressID == addrID && in.PaymentID == 5 && len(in.Lines) == 1
		})).Return(&order.Order{ID: 42, PaymentID: 5, Status: order.StatusPending}, nil)

		w := ts.do(http.MethodPost, "/api/orders", ts.token(t, 7, utils.RoleCustomer), body, nil)
		require.Equal(t, http.StatusCreated, w.Code)

		var res struct {
			Success bool        `json:"success"`
			OrderID int64       `json:"order_id"`
			Order   order.Order `json:"order"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.True(t, res.Success)
		assert.Equal(t, int64(42), res.OrderID)
		assert.Equal(t, int64(42), res.Order.ID)
		assert.Equal(t, order.StatusPending, res.Order.Status)
	})

	t.Run("Service error keeps the error body", func(t *testing.T) {
		ts := newTestServer()
		ts.orders.On("Create", mock.Anything, mock.Anything).Return(nil, order.ErrOrderNotFound)

		w := ts.do(http.MethodPost, "/api/orders", ts.token(t, 7, utils.RoleCustomer), body, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NotContains(t, w.Body.String(), "order_id")
	})

	t.Run("Missing items", func(t *testing.T) {
		ts := newTestServer()

		w := ts.do(http.MethodPost, "/api/orders", ts.token(t, 7, utils.RoleCustomer),
			gin.H{"address_id": addrID.String(), "payment_id": 5}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		ts.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestRouter_Checkout(t *testing.T) {
	addrID := uuid.New()
	body := gin.H{
		"address_id":     addrID.String(),
		"payment_method": "cod",
		"items":          []gin.H{{"product_id": 1, "quantity": 2}},
	}

	t.Run("Created", func(t *testing.T) {
		ts := newTestServer()
		ts.checkouts.On("Checkout", mock.Anything, mock.MatchedBy(func(in checkout.Input) bool {
			return in.IdempotencyKey == "key-1" &&
				in.AddressID == addrID &&
				len(in.Lines) == 1 && in.Lines[0].Quantity == 2
		})).Return(&checkout.Result{OrderID: 10, TotalAmount: decimal.NewFromInt(1049)}, nil)

		w := ts.do(http.MethodPost, "/api/checkout", ts.token(t, 7, utils.RoleCustomer), body,
			map[string]string{IdempotencyKeyHeader: "key-1"})

		assert.Equal(t, http.StatusCreated, w.Code)
		var res checkout.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, int64(10), res.OrderID)
		assert.True(t, decimal.NewFromInt(1049).Equal(res.TotalAmount))
	})

	t.Run("Replayed", func(t *testing.T) {
		ts := newTestServer()
		ts.checkouts.On("Checkout", mock.Anything, mock.Anything).
			Return(&checkout.Result{OrderID: 10, Replayed: true}, nil)

		w := ts.do(http.MethodPost, "/api/checkout", ts.token(t, 7, utils.RoleCustomer), body,
			map[string]string{IdempotencyKeyHeader: "key-1"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Cart source when items are omitted", func(t *testing.T) {
		ts := newTestServer()
		ts.checkouts.On("Checkout", mock.Anything, mock.MatchedBy(func(in checkout.Input) bool {
			return in.Lines == nil
		})).Return(&checkout.Result{OrderID: 11}, nil)

		w := ts.do(http.MethodPost, "/api/checkout", ts.token(t, 7, utils.RoleCustomer),
			gin.H{"address_id": addrID.String(), "payment_method": "cod"},
			map[string]string{IdempotencyKeyHeader: "key-2"})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Out of stock", func(t *testing.T) {
		ts := newTestServer()
		ts.checkouts.On("Checkout", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: product 1", product.ErrInsufficientStock))

		w := ts.do(http.MethodPost, "/api/checkout", ts.token(t, 7, utils.RoleCustomer), body,
			map[string]string{IdempotencyKeyHeader: "key-3"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, errorBody(t, w), "insufficient stock")
	})

	t.Run("Gateway failure hides detail", func(t *testing.T) {
		ts := newTestServer()
		ts.checkouts.On("Checkout", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: status 500 body secret", payment.ErrGateway))

		w := ts.do(http.MethodPost, "/api/checkout", ts.token(t, 7, utils.RoleCustomer), body,
			map[string]string{IdempotencyKeyHeader: "key-4"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "payment provider unavailable", errorBody(t, w))
	})

	t.Run("Bad body", func(t *testing.T) {
		ts := newTestServer()

		w := ts.do(http.MethodPost, "/api/checkout", ts.token(t, 7, utils.RoleCustomer),
			gin.H{"address_id": "nope", "payment_method": "cod"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		ts.checkouts.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
	})
}

func TestRouter_LoginSetsCookie(t *testing.T) {
	ts := newTestServer()
	ts.customers.On("Login", mock.Anything, "c@example.com", "password123").
		Return(&customer.AuthResult{Token: "tok", Customer: &customer.Customer{ID: 7}}, nil).Once()
	ts.customers.On("Login", mock.Anything, "c@example.com", "wrong").
		Return(nil, customer.ErrInvalidCredentials).Once()

	w := ts.do(http.MethodPost, "/api/customers/login", "", gin.H{"email": "c@example.com", "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.AccessTokenCookie, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	w = ts.do(http.MethodPost, "/api/customers/login", "", gin.H{"email": "c@example.com", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_EmailOTP(t *testing.T) {
	ts := newTestServer()
	ts.customers.On("RequestPasswordReset", mock.Anything, "c@example.com").Return(nil).Once()
	ts.customers.On("RequestPasswordReset", mock.Anything, "c@example.com").Return(otp.ErrRateLimited).Once()

	w := ts.do(http.MethodPost, "/api/email/otp", "", gin.H{"email": "c@example.com"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "otp\"")

	w = ts.do(http.MethodPost, "/api/email/otp", "", gin.H{"email": "c@example.com"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRouter_CartClear(t *testing.T) {
	ts := newTestServer()
	ts.carts.On("Clear", mock.Anything, int64(7)).Return(nil)

	w := ts.do(http.MethodDelete, "/api/cart/clear", ts.token(t, 7, utils.RoleCustomer), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	ts.carts.AssertExpectations(t)
}

func TestRouter_ApplyCoupon(t *testing.T) {
	ts := newTestServer()
	ts.carts.On("Get", mock.Anything, int64(7)).Return(&cart.Cart{Items: []cart.Item{
		{ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(450), CurrentPrice: decimal.NewFromInt(500)},
	}}, nil)
	tok := ts.token(t, 7, utils.RoleCustomer)

	w := ts.do(http.MethodPost, "/api/coupons/apply", tok, gin.H{"code": "save10"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res couponPreview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "SAVE10", res.Code)
	assert.Equal(t, "100.00", res.Discount.StringFixed(2))
	assert.Equal(t, "949.00", res.TotalAmount.StringFixed(2))

	w = ts.do(http.MethodPost, "/api/coupons/apply", tok, gin.H{"code": "BOGUS"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid coupon", errorBody(t, w))
}
