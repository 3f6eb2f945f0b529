package order

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront-be/internal/address"
	"storefront-be/internal/coupon"
	"storefront-be/internal/db"
	"storefront-be/internal/metrics"
	"storefront-be/internal/payment"
	"storefront-be/internal/pricing"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Insert(ctx context.Context, q db.DBTX, o *Order) error {
	return m.Called(ctx, q, o).Error(0)
}

func (m *MockRepository) Create(ctx context.Context, o *Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, customerID *int64, status *Status, limit, offset int) ([]Order, int, error) {
	args := m.Called(ctx, customerID, status, limit, offset)
	o, _ := args.Get(0).([]Order)
	return o, args.Int(1), args.Error(2)
}

func (m *MockRepository) AddItems(ctx context.Context, orderID, customerID int64, items []Item) (bool, error) {
	args := m.Called(ctx, orderID, customerID, items)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id int64, next Status) (Status, error) {
	args := m.Called(ctx, id, next)
	return args.Get(0).(Status), args.Error(1)
}

func (m *MockRepository) Cancel(ctx context.Context, id int64, owner *int64, reason string) error {
	return m.Called(ctx, id, owner, reason).Error(0)
}

func (m *MockRepository) CancelTx(ctx context.Context, q db.DBTX, id int64, owner *int64, reason string) error {
	return m.Called(ctx, q, id, owner, reason).Error(0)
}

func (m *MockRepository) CancelUnfilled(ctx context.Context, id, customerID int64, reason string) error {
	return m.Called(ctx, id, customerID, reason).Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64, onlyActive bool) (*product.Product, error) {
	args := m.Called(ctx, id, onlyActive)
	p, _ := args.Get(0).(*product.Product)
	return p, args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]product.Product, error) {
	args := m.Called(ctx, ids)
	p, _ := args.Get(0).(map[int64]product.Product)
	return p, args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, opts product.ListOptions, limit, offset int) ([]product.Product, int, error) {
	args := m.Called(ctx, opts, limit, offset)
	p, _ := args.Get(0).([]product.Product)
	return p, args.Int(1), args.Error(2)
}

type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) GetByCustomerID(ctx context.Context, customerID int64) ([]*address.Address, error) {
	args := m.Called(ctx, customerID)
	a, _ := args.Get(0).([]*address.Address)
	return a, args.Error(1)
}

func (m *MockAddressRepository) GetByID(ctx context.Context, id uuid.UUID) (*address.Address, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*address.Address)
	return a, args.Error(1)
}

func (m *MockAddressRepository) Create(ctx context.Context, addr *address.Address) error {
	return m.Called(ctx, addr).Error(0)
}

func (m *MockAddressRepository) Replace(ctx context.Context, oldID uuid.UUID, addr *address.Address) error {
	return m.Called(ctx, oldID, addr).Error(0)
}

func (m *MockAddressRepository) Deactivate(ctx context.Context, customerID int64, id uuid.UUID) error {
	return m.Called(ctx, customerID, id).Error(0)
}

func (m *MockAddressRepository) SetDefault(ctx context.Context, customerID int64, addressID uuid.UUID) error {
	return m.Called(ctx, customerID, addressID).Error(0)
}

// MockPaymentRepository only backs Void in these tests.
type MockPaymentRepository struct {
	mock.Mock
	payment.Repository
}

func (m *MockPaymentRepository) Void(ctx context.Context, id, customerID int64, reason string) (bool, error) {
	args := m.Called(ctx, id, customerID, reason)
	return args.Bool(0), args.Error(1)
}

// --- Helpers ---

type deps struct {
	repo      *MockRepository
	products  *MockProductRepository
	addresses *MockAddressRepository
	payments  *MockPaymentRepository
	metrics   *metrics.Metrics
}

func newTestService() (Service, deps) {
	d := deps{
		repo:      new(MockRepository),
		products:  new(MockProductRepository),
		addresses: new(MockAddressRepository),
		payments:  new(MockPaymentRepository),
		metrics:   metrics.NewNop(),
	}
	pricer := pricing.NewPricer(decimal.NewFromInt(49), decimal.NewFromInt(1000), coupon.DefaultRegistry())
	return NewService(d.repo, d.products, d.addresses, d.payments, pricer, d.metrics), d
}

func customerCtx(id int64) context.Context {
	return utils.SetUserContext(context.Background(), id, "c@example.com", utils.RoleCustomer)
}

func staffCtx() context.Context {
	return utils.SetUserContext(context.Background(), 1, "retail@example.com", utils.RoleRetailer)
}

var addrID = uuid.MustParse("7b0f2b9e-8d7c-4b8a-9a43-2f1c7c2f5a10")

// --- Tests ---

func TestService_Create(t *testing.T) {
	input := CreateInput{
		AddressID: addrID,
		PaymentID: 3,
		Lines:     []pricing.Line{{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(1)}},
	}
	catalog := map[int64]product.Product{1: {ID: 1, Price: decimal.NewFromInt(500), Quantity: 5, IsActive: true}}

	t.Run("Prices from catalog", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)

		d.addresses.On("GetByID", ctx, addrID).Return(&address.Address{ID: addrID, CustomerID: 7, IsActive: true}, nil)
		d.products.On("GetByIDs", ctx, []int64{1}).Return(catalog, nil)
		d.repo.On("Create", ctx, mock.MatchedBy(func(o *Order) bool {
			return o.TotalAmount.Equal(decimal.NewFromInt(1049)) &&
				o.DeliveryCharge.Equal(decimal.NewFromInt(49)) &&
				o.Items[0].Price.Equal(decimal.NewFromInt(500)) &&
				o.PaymentID == 3 && o.Status == StatusPending
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*Order).ID = 10
		}).Return(nil)

		o, err := svc.Create(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, int64(10), o.ID)
		assert.True(t, ItemsTotal(o.Items).Add(o.DeliveryCharge).Sub(o.Discount).Equal(o.TotalAmount))
		d.payments.AssertNotCalled(t, "Void", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Stock failure voids the payment", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)

		d.addresses.On("GetByID", ctx, addrID).Return(&address.Address{ID: addrID, CustomerID: 7, IsActive: true}, nil)
		d.products.On("GetByIDs", ctx, []int64{1}).Return(catalog, nil)
		d.repo.On("Create", ctx, mock.Anything).Return(ErrInsufficientStock)
		d.payments.On("Void", ctx, int64(3), int64(7), "order creation failed").Return(true, nil)

		_, err := svc.Create(ctx, input)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		d.payments.AssertExpectations(t)
		assert.Equal(t, float64(1), testutil.ToFloat64(d.metrics.StockConflicts))
	})

	t.Run("Foreign address voids the payment", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)

		d.addresses.On("GetByID", ctx, addrID).Return(&address.Address{ID: addrID, CustomerID: 8, IsActive: true}, nil)
		d.payments.On("Void", ctx, int64(3), int64(7), mock.Anything).Return(true, nil)

		_, err := svc.Create(ctx, input)
		assert.ErrorIs(t, err, address.ErrAddressNotFound)
		d.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Invalid coupon voids the payment", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)
		withCoupon := input
		withCoupon.CouponCode = "FREE100"

		d.addresses.On("GetByID", ctx, addrID).Return(&address.Address{ID: addrID, CustomerID: 7, IsActive: true}, nil)
		d.products.On("GetByIDs", ctx, []int64{1}).Return(catalog, nil)
		d.payments.On("Void", ctx, int64(3), int64(7), mock.Anything).Return(false, errors.New("db down"))

		_, err := svc.Create(ctx, withCoupon)
		assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	})

	t.Run("Unauthenticated touches nothing", func(t *testing.T) {
		svc, d := newTestService()
		_, err := svc.Create(context.Background(), input)
		assert.ErrorIs(t, err, utils.ErrUnauthenticated)
		d.payments.AssertNotCalled(t, "Void", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_AddItems(t *testing.T) {
	items := []Item{{OrderID: 10, ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(500)}}

	t.Run("Created", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)
		d.repo.On("AddItems", ctx, int64(10), int64(7), mock.Anything).Return(true, nil)

		out, err := svc.AddItems(ctx, items)
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})

	t.Run("Already present returns stored items", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)
		stored := []Item{{ID: 100, OrderID: 10, ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(500)}}
		d.repo.On("AddItems", ctx, int64(10), int64(7), mock.Anything).Return(false, nil)
		d.repo.On("GetByID", ctx, int64(10)).Return(&Order{ID: 10, CustomerID: 7, Items: stored}, nil)

		out, err := svc.AddItems(ctx, items)
		require.NoError(t, err)
		assert.Equal(t, int64(100), out[0].ID)
	})

	t.Run("Stock failure cancels the order", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)
		d.repo.On("AddItems", ctx, int64(10), int64(7), mock.Anything).
			Return(false, &ItemsFailedError{OrderID: 10, Err: ErrInsufficientStock})
		d.repo.On("CancelUnfilled", ctx, int64(10), int64(7), mock.Anything).Return(nil)

		_, err := svc.AddItems(ctx, items)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		d.repo.AssertCalled(t, "CancelUnfilled", ctx, int64(10), int64(7), mock.Anything)
		assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.StockConflicts))
	})

	t.Run("Mismatch leaves the order alone", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)
		d.repo.On("AddItems", ctx, int64(10), int64(7), mock.Anything).Return(false, ErrItemsMismatch)

		_, err := svc.AddItems(ctx, items)
		assert.ErrorIs(t, err, ErrItemsMismatch)
		d.repo.AssertNotCalled(t, "CancelUnfilled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Someone else's order is never cancelled", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(1)
		d.repo.On("AddItems", ctx, int64(9), int64(1), mock.Anything).Return(false, ErrOrderNotFound)

		_, err := svc.AddItems(ctx, []Item{{OrderID: 9, ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(500)}})
		assert.ErrorIs(t, err, ErrOrderNotFound)
		d.repo.AssertNotCalled(t, "CancelUnfilled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		d.repo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Transient lock failure does not cancel", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(1)
		d.repo.On("AddItems", ctx, int64(9), int64(1), mock.Anything).
			Return(false, fmt.Errorf("lock order 9: %w", errors.New("connection reset by peer")))

		_, err := svc.AddItems(ctx, []Item{{OrderID: 9, ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(500)}})
		assert.ErrorContains(t, err, "connection reset")
		d.repo.AssertNotCalled(t, "CancelUnfilled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		d.repo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Bad lines", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.AddItems(customerCtx(7), []Item{{OrderID: 10, ProductID: 1, Quantity: 0, Price: decimal.NewFromInt(1)}})
		assert.ErrorIs(t, err, ErrItemsMismatch)

		_, err = svc.AddItems(customerCtx(7), nil)
		assert.ErrorIs(t, err, ErrNoItems)
	})
}

func TestService_GetAndList(t *testing.T) {
	t.Run("Owner, stranger and staff", func(t *testing.T) {
		svc, d := newTestService()
		d.repo.On("GetByID", mock.Anything, int64(10)).Return(&Order{ID: 10, CustomerID: 7}, nil)

		_, err := svc.Get(customerCtx(7), 10)
		assert.NoError(t, err)
		_, err = svc.Get(customerCtx(8), 10)
		assert.ErrorIs(t, err, ErrOrderNotFound)
		_, err = svc.Get(staffCtx(), 10)
		assert.NoError(t, err)
	})

	t.Run("Customers only see their own orders", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)
		owner := int64(7)
		d.repo.On("List", ctx, &owner, (*Status)(nil), 20, 0).Return([]Order{{ID: 10}}, 1, nil)

		res, err := svc.List(ctx, ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalCount)
		assert.Equal(t, 1, res.Page)
	})

	t.Run("Staff see all orders", func(t *testing.T) {
		svc, d := newTestService()
		ctx := staffCtx()
		status := StatusConfirmed
		d.repo.On("List", ctx, (*int64)(nil), &status, 10, 10).Return([]Order{}, 11, nil)

		res, err := svc.List(ctx, ListOptions{Status: &status, Limit: 10, Page: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Page)
	})

	t.Run("Unknown status filter", func(t *testing.T) {
		svc, _ := newTestService()
		bad := Status("lost")
		_, err := svc.List(customerCtx(7), ListOptions{Status: &bad})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	t.Run("Staff only", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.UpdateStatus(customerCtx(7), 10, StatusShipped)
		assert.ErrorIs(t, err, utils.ErrForbidden)
	})

	t.Run("Transition", func(t *testing.T) {
		svc, d := newTestService()
		ctx := staffCtx()
		d.repo.On("UpdateStatus", ctx, int64(10), StatusShipped).Return(StatusConfirmed, nil)
		d.repo.On("GetByID", ctx, int64(10)).Return(&Order{ID: 10, Status: StatusShipped}, nil)

		o, err := svc.UpdateStatus(ctx, 10, StatusShipped)
		require.NoError(t, err)
		assert.Equal(t, StatusShipped, o.Status)
	})

	t.Run("Cancelled routes to Cancel", func(t *testing.T) {
		svc, d := newTestService()
		ctx := staffCtx()
		d.repo.On("Cancel", ctx, int64(10), (*int64)(nil), "cancelled by staff").Return(nil)
		d.repo.On("GetByID", ctx, int64(10)).Return(&Order{ID: 10, Status: StatusCancelled}, nil)

		o, err := svc.UpdateStatus(ctx, 10, StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
		d.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown status", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.UpdateStatus(staffCtx(), 10, Status("lost"))
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestService_Cancel(t *testing.T) {
	t.Run("Owner cancels pending order", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)
		d.repo.On("GetByID", ctx, int64(10)).Return(&Order{ID: 10, CustomerID: 7, Status: StatusPending}, nil).Once()
		d.repo.On("Cancel", ctx, int64(10), mock.MatchedBy(func(owner *int64) bool {
			return owner != nil && *owner == 7
		}), "cancelled by customer").Return(nil)
		d.repo.On("GetByID", ctx, int64(10)).Return(&Order{ID: 10, CustomerID: 7, Status: StatusCancelled}, nil).Once()

		o, err := svc.Cancel(ctx, 10, "")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
	})

	t.Run("Shipped order", func(t *testing.T) {
		svc, d := newTestService()
		ctx := customerCtx(7)
		d.repo.On("GetByID", ctx, int64(10)).Return(&Order{ID: 10, CustomerID: 7, Status: StatusShipped}, nil)

		_, err := svc.Cancel(ctx, 10, "")
		assert.ErrorIs(t, err, ErrNotCancellable)
	})
}
