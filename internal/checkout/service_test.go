package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vitrin-be/internal/gateway"
	"vitrin-be/internal/identity"
	"vitrin-be/internal/order"
	"vitrin-be/internal/pricing"
	"vitrin-be/internal/reservation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) ValidateCart(ctx context.Context, storeID string, items []pricing.CartLineItem) ([]pricing.ValidatedLineItem, int64, error) {
	args := m.Called(ctx, storeID, items)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]pricing.ValidatedLineItem), args.Get(1).(int64), args.Error(2)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) RequestPayment(ctx context.Context, amountMinor int64, description string) (*gateway.RequestResult, error) {
	args := m.Called(ctx, amountMinor, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RequestResult), args.Error(1)
}

func (m *MockGateway) VerifyPayment(ctx context.Context, amountMinor int64, authority string) (*gateway.VerifyResult, error) {
	args := m.Called(ctx, amountMinor, authority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.VerifyResult), args.Error(1)
}

func (m *MockGateway) StartPayURL(authority string) string {
	args := m.Called(authority)
	return args.String(0)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrders) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) GetByAuthority(ctx context.Context, authority string) (*order.Order, error) {
	args := m.Called(ctx, authority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOrders) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status order.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// --- Fixtures ---

var testAddress = order.ShippingAddress{
	Street: "1 Ferdowsi Ave", City: "Tehran", State: "Tehran", PostalCode: "11369",
}

func authedCtx() context.Context {
	return identity.SetUserContext(context.Background(), 7, "store-1", "customer")
}

type fixture struct {
	validator *MockValidator
	gateway   *MockGateway
	orders    *MockOrders
	store     reservation.Store
	svc       Service
}

func newFixture() *fixture {
	f := &fixture{
		validator: new(MockValidator),
		gateway:   new(MockGateway),
		orders:    new(MockOrders),
		store:     reservation.NewMemoryStore(),
	}
	f.svc = NewService(f.validator, f.store, f.orders, f.gateway, Config{
		MinorUnitFactor: 10,
		ReservationTTL:  15 * time.Minute,
	})
	return f
}

func (f *fixture) putReservation(t *testing.T, authority string, total int64, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), &reservation.PendingReservation{
		Authority: authority,
		UserID:    7,
		StoreID:   "store-1",
		Items: []pricing.ValidatedLineItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: 90000},
		},
		TotalAmount:     total,
		ShippingAddress: testAddress,
		CreatedAt:       time.Now(),
		ExpiresAt:       expiresAt,
	}))
}

// --- Initiate ---

func TestService_Initiate(t *testing.T) {
	cart := []pricing.CartLineItem{{ProductID: "p1", Quantity: 2}}
	validated := []pricing.ValidatedLineItem{{ProductID: "p1", Quantity: 2, UnitPrice: 90000}}

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.validator.On("ValidateCart", mock.Anything, "store-1", cart).
			Return(validated, int64(180000), nil)
		// Outbound amount is converted to minor units; the stored amount is not.
		f.gateway.On("RequestPayment", mock.Anything, int64(1800000), mock.Anything).
			Return(&gateway.RequestResult{Code: gateway.CodeSuccess, Authority: "A-1"}, nil)
		f.gateway.On("StartPayURL", "A-1").
			Return("https://api.zarinpal.com/pg/StartPay/A-1")

		res, err := f.svc.Initiate(authedCtx(), InitiateInput{Items: cart, ShippingAddress: testAddress})
		require.NoError(t, err)
		assert.Equal(t, "A-1", res.Authority)
		assert.Equal(t, int64(180000), res.Amount)
		assert.Equal(t, "https://api.zarinpal.com/pg/StartPay/A-1", res.PaymentURL)

		// Exactly one reservation, priced server-side.
		claimed, err := f.store.ClaimAndDelete(context.Background(), "A-1")
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, int64(180000), claimed.TotalAmount)
		assert.Equal(t, validated, claimed.Items)
		assert.Equal(t, testAddress, claimed.ShippingAddress)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), claimed.ExpiresAt, 5*time.Second)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Initiate(context.Background(), InitiateInput{Items: cart, ShippingAddress: testAddress})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("EmptyCart", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Initiate(authedCtx(), InitiateInput{ShippingAddress: testAddress})
		assert.ErrorIs(t, err, ErrEmptyCart)
		f.gateway.AssertNotCalled(t, "RequestPayment")
	})

	t.Run("InvalidAddress", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Initiate(authedCtx(), InitiateInput{
			Items:           cart,
			ShippingAddress: order.ShippingAddress{Street: "1 Main St"},
		})
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("InvalidCart", func(t *testing.T) {
		f := newFixture()
		f.validator.On("ValidateCart", mock.Anything, "store-1", cart).
			Return(nil, int64(0), pricing.ErrItemNotFound)

		_, err := f.svc.Initiate(authedCtx(), InitiateInput{Items: cart, ShippingAddress: testAddress})
		assert.ErrorIs(t, err, ErrInvalidCart)
		f.gateway.AssertNotCalled(t, "RequestPayment")
	})

	t.Run("GatewayRejected_NoReservation", func(t *testing.T) {
		f := newFixture()
		f.validator.On("ValidateCart", mock.Anything, "store-1", cart).
			Return(validated, int64(180000), nil)
		f.gateway.On("RequestPayment", mock.Anything, int64(1800000), mock.Anything).
			Return(&gateway.RequestResult{Code: -9, Message: "invalid params"}, nil)

		_, err := f.svc.Initiate(authedCtx(), InitiateInput{Items: cart, ShippingAddress: testAddress})
		assert.ErrorIs(t, err, ErrGatewayRejected)
		assert.ErrorContains(t, err, "invalid params")
	})

	t.Run("GatewayUnreachable", func(t *testing.T) {
		f := newFixture()
		f.validator.On("ValidateCart", mock.Anything, "store-1", cart).
			Return(validated, int64(180000), nil)
		f.gateway.On("RequestPayment", mock.Anything, int64(1800000), mock.Anything).
			Return(nil, errors.New("connection refused"))

		_, err := f.svc.Initiate(authedCtx(), InitiateInput{Items: cart, ShippingAddress: testAddress})
		assert.ErrorIs(t, err, ErrGatewayRejected)
	})
}

// --- Resolve ---

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingAuthority", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Resolve(ctx, "", StatusOK)
		assert.ErrorIs(t, err, ErrMissingAuthority)
	})

	t.Run("ReportedFailure_DiscardsReservation", func(t *testing.T) {
		f := newFixture()
		f.putReservation(t, "A-1", 180000, time.Now().Add(10*time.Minute))

		_, err := f.svc.Resolve(ctx, "A-1", "NOK")
		assert.ErrorIs(t, err, ErrPaymentFailed)

		gone, err := f.store.ClaimAndDelete(ctx, "A-1")
		require.NoError(t, err)
		assert.Nil(t, gone)
		f.orders.AssertNotCalled(t, "Create")
		f.gateway.AssertNotCalled(t, "VerifyPayment")
	})

	t.Run("ReservationNotFound", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Resolve(ctx, "A-forged", StatusOK)
		assert.ErrorIs(t, err, ErrReservationNotFound)
	})

	t.Run("Expired_NoOrderAndRemoved", func(t *testing.T) {
		f := newFixture()
		f.putReservation(t, "A-old", 180000, time.Now().Add(-time.Minute))

		_, err := f.svc.Resolve(ctx, "A-old", StatusOK)
		assert.ErrorIs(t, err, ErrReservationExpired)

		gone, err := f.store.ClaimAndDelete(ctx, "A-old")
		require.NoError(t, err)
		assert.Nil(t, gone)
		f.orders.AssertNotCalled(t, "Create")
	})

	t.Run("AmountMismatch", func(t *testing.T) {
		f := newFixture()
		f.putReservation(t, "A-1", 180000, time.Now().Add(10*time.Minute))
		f.gateway.On("VerifyPayment", mock.Anything, int64(1800000), "A-1").
			Return(&gateway.VerifyResult{Code: gateway.CodeAmountMismatch}, nil)

		_, err := f.svc.Resolve(ctx, "A-1", StatusOK)
		assert.ErrorIs(t, err, ErrVerificationFailed)
		assert.ErrorContains(t, err, "does not match")

		gone, _ := f.store.ClaimAndDelete(ctx, "A-1")
		assert.Nil(t, gone)
		f.orders.AssertNotCalled(t, "Create")
	})

	t.Run("VerifyUnreachable", func(t *testing.T) {
		f := newFixture()
		f.putReservation(t, "A-1", 180000, time.Now().Add(10*time.Minute))
		f.gateway.On("VerifyPayment", mock.Anything, int64(1800000), "A-1").
			Return(nil, gateway.ErrUnavailable)

		_, err := f.svc.Resolve(ctx, "A-1", StatusOK)
		assert.ErrorIs(t, err, ErrVerificationFailed)
	})

	t.Run("Commit", func(t *testing.T) {
		f := newFixture()
		f.putReservation(t, "A-1", 180000, time.Now().Add(10*time.Minute))
		f.gateway.On("VerifyPayment", mock.Anything, int64(1800000), "A-1").
			Return(&gateway.VerifyResult{
				Code: gateway.CodeSuccess, RefID: 201, CardPAN: "502229******5995",
			}, nil)
		f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)

		o, err := f.svc.Resolve(ctx, "A-1", StatusOK)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, o.Status)
		assert.Equal(t, order.PaymentStatusCompleted, o.PaymentStatus)
		assert.Equal(t, "A-1", o.PaymentAuthority)
		assert.Equal(t, "201", o.PaymentRefID)
		assert.Equal(t, "502229******5995", o.PaymentCardPAN)
		assert.Equal(t, int64(180000), o.TotalAmount)
		assert.Equal(t, testAddress, o.ShippingAddress)
		assert.Equal(t, uint(7), o.UserID)
		require.NotNil(t, o.PaidAt)
	})

	t.Run("AlreadyVerified_ReturnsExistingOrder", func(t *testing.T) {
		f := newFixture()
		f.putReservation(t, "A-1", 180000, time.Now().Add(10*time.Minute))
		existing := &order.Order{ID: uuid.New(), PaymentAuthority: "A-1", Status: order.StatusPaid}

		f.gateway.On("VerifyPayment", mock.Anything, int64(1800000), "A-1").
			Return(&gateway.VerifyResult{Code: gateway.CodeAlreadyVerified, RefID: 201}, nil)
		f.orders.On("GetByAuthority", mock.Anything, "A-1").Return(existing, nil)

		o, err := f.svc.Resolve(ctx, "A-1", StatusOK)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, o.ID)
		f.orders.AssertNotCalled(t, "Create")
	})

	t.Run("AlreadyVerified_NoOrderYet_Commits", func(t *testing.T) {
		f := newFixture()
		f.putReservation(t, "A-1", 180000, time.Now().Add(10*time.Minute))

		f.gateway.On("VerifyPayment", mock.Anything, int64(1800000), "A-1").
			Return(&gateway.VerifyResult{Code: gateway.CodeAlreadyVerified, RefID: 201}, nil)
		f.orders.On("GetByAuthority", mock.Anything, "A-1").Return(nil, nil)
		f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)

		o, err := f.svc.Resolve(ctx, "A-1", StatusOK)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, o.Status)
		f.orders.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("CommitFailure_IsInternal", func(t *testing.T) {
		f := newFixture()
		f.putReservation(t, "A-1", 180000, time.Now().Add(10*time.Minute))
		f.gateway.On("VerifyPayment", mock.Anything, int64(1800000), "A-1").
			Return(&gateway.VerifyResult{Code: gateway.CodeSuccess, RefID: 201}, nil)
		f.orders.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		_, err := f.svc.Resolve(ctx, "A-1", StatusOK)
		assert.ErrorIs(t, err, ErrInternal)
	})
}

// Settlement is idempotent: resolving twice yields exactly one order and the
// second call fails harmlessly.
func TestService_Resolve_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.putReservation(t, "A-1", 180000, time.Now().Add(10*time.Minute))

	f.gateway.On("VerifyPayment", mock.Anything, int64(1800000), "A-1").
		Return(&gateway.VerifyResult{Code: gateway.CodeSuccess, RefID: 201}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)

	first, err := f.svc.Resolve(ctx, "A-1", StatusOK)
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = f.svc.Resolve(ctx, "A-1", StatusOK)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	f.orders.AssertNumberOfCalls(t, "Create", 1)
}

// Concurrent resolves for one authority: exactly one commits.
func TestService_Resolve_ConcurrentClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.putReservation(t, "A-race", 180000, time.Now().Add(10*time.Minute))

	f.gateway.On("VerifyPayment", mock.Anything, int64(1800000), "A-race").
		Return(&gateway.VerifyResult{Code: gateway.CodeSuccess, RefID: 201}, nil).Maybe()
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

	const callers = 16
	var commits, notFound int64
	var wg sync.WaitGroup
	wg.Add(callers)

	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			o, err := f.svc.Resolve(ctx, "A-race", StatusOK)
			switch {
			case err == nil && o != nil:
				atomic.AddInt64(&commits, 1)
			case errors.Is(err, ErrReservationNotFound):
				atomic.AddInt64(&notFound, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), commits)
	assert.Equal(t, int64(callers-1), notFound)
	f.orders.AssertNumberOfCalls(t, "Create", 1)
}

// Round-trip: what goes into Initiate is what the committed order carries,
// with prices computed server-side.
func TestService_InitiateThenResolve_RoundTrip(t *testing.T) {
	f := newFixture()
	cart := []pricing.CartLineItem{{ProductID: "p1", Quantity: 2, ColorCode: "#0f0f0f"}}
	validated := []pricing.ValidatedLineItem{
		{ProductID: "p1", Quantity: 2, UnitPrice: 90000, ColorCode: "#0f0f0f"},
	}

	f.validator.On("ValidateCart", mock.Anything, "store-1", cart).
		Return(validated, int64(180000), nil)
	f.gateway.On("RequestPayment", mock.Anything, int64(1800000), mock.Anything).
		Return(&gateway.RequestResult{Code: gateway.CodeSuccess, Authority: "A-rt"}, nil)
	f.gateway.On("StartPayURL", "A-rt").Return("https://gw/pg/StartPay/A-rt")
	f.gateway.On("VerifyPayment", mock.Anything, int64(1800000), "A-rt").
		Return(&gateway.VerifyResult{Code: gateway.CodeSuccess, RefID: 42}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Initiate(authedCtx(), InitiateInput{Items: cart, ShippingAddress: testAddress})
	require.NoError(t, err)

	o, err := f.svc.Resolve(context.Background(), res.Authority, StatusOK)
	require.NoError(t, err)

	assert.Equal(t, validated, o.Items)
	assert.Equal(t, res.Amount, o.TotalAmount)
	assert.Equal(t, testAddress, o.ShippingAddress)
	assert.Equal(t, uint(7), o.UserID)
	assert.Equal(t, "store-1", o.StoreID)
}
