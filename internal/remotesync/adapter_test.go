package remotesync

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
	"github.com/orderdesk/orderdesk-backend/pkg/square"
)

type stubRemote struct {
	ensureCustomerFn  func(context.Context, square.CustomerCreateParams) (*sq.Customer, error)
	deleteCustomerFn  func(context.Context, string) error
	createOrderFn     func(context.Context, square.OrderCreateParams) (*sq.Order, error)
	updateOrderFn     func(context.Context, square.OrderUpdateParams) (*sq.Order, error)
	getOrderFn        func(context.Context, string) (*sq.Order, error)
	createPaymentFn   func(context.Context, square.PaymentCreateParams) (*sq.Payment, error)
	payOrderFn        func(context.Context, square.OrderPayParams) (*sq.Order, error)
	shippingOptionsFn func() []square.ShippingOption
}

func (s *stubRemote) EnsureCustomer(ctx context.Context, p square.CustomerCreateParams) (*sq.Customer, error) {
	return s.ensureCustomerFn(ctx, p)
}
func (s *stubRemote) DeleteCustomer(ctx context.Context, id string) error {
	return s.deleteCustomerFn(ctx, id)
}
func (s *stubRemote) CreateDraftOrder(ctx context.Context, p square.OrderCreateParams) (*sq.Order, error) {
	return s.createOrderFn(ctx, p)
}
func (s *stubRemote) UpdateOrder(ctx context.Context, p square.OrderUpdateParams) (*sq.Order, error) {
	return s.updateOrderFn(ctx, p)
}
func (s *stubRemote) GetOrder(ctx context.Context, id string) (*sq.Order, error) {
	return s.getOrderFn(ctx, id)
}
func (s *stubRemote) CreatePayment(ctx context.Context, p square.PaymentCreateParams) (*sq.Payment, error) {
	return s.createPaymentFn(ctx, p)
}
func (s *stubRemote) PayOrder(ctx context.Context, p square.OrderPayParams) (*sq.Order, error) {
	return s.payOrderFn(ctx, p)
}
func (s *stubRemote) ShippingOptions() []square.ShippingOption {
	if s.shippingOptionsFn == nil {
		return nil
	}
	return s.shippingOptionsFn()
}

func newTestAdapter(t *testing.T, remote RemoteCommerce) *Adapter {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	adapter, err := NewAdapter(remote, logg, nil)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func strPtr(v string) *string { return &v }

func TestEnsureCustomerReusesStoredRemoteID(t *testing.T) {
	t.Parallel()

	called := false
	adapter := newTestAdapter(t, &stubRemote{
		ensureCustomerFn: func(context.Context, square.CustomerCreateParams) (*sq.Customer, error) {
			called = true
			return nil, errors.New("should not be called")
		},
	})

	client := &models.Client{ID: uuid.New(), RemoteCustomerID: strPtr("cust-1")}
	result := adapter.EnsureCustomer(context.Background(), client)
	if !result.Success || result.RemoteID != "cust-1" {
		t.Fatalf("result = %+v", result)
	}
	if called {
		t.Fatal("remote should not be hit when mirror id is stored")
	}
}

func TestEnsureCustomerCreatesWithManagedReference(t *testing.T) {
	t.Parallel()

	var gotRef string
	adapter := newTestAdapter(t, &stubRemote{
		ensureCustomerFn: func(_ context.Context, p square.CustomerCreateParams) (*sq.Customer, error) {
			gotRef = p.ReferenceID
			return &sq.Customer{ID: strPtr("cust-9")}, nil
		},
	})

	client := &models.Client{ID: uuid.New(), Name: "Jordan Smith", Email: "j@acme.test"}
	result := adapter.EnsureCustomer(context.Background(), client)
	if !result.Success || result.RemoteID != "cust-9" {
		t.Fatalf("result = %+v", result)
	}
	if gotRef != managedReferencePrefix+client.ID.String() {
		t.Fatalf("reference = %q", gotRef)
	}
}

func TestEnsureCustomerFailureNeverPanicsOrThrows(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, &stubRemote{
		ensureCustomerFn: func(context.Context, square.CustomerCreateParams) (*sq.Customer, error) {
			return nil, errors.New("remote down")
		},
	})

	result := adapter.EnsureCustomer(context.Background(), &models.Client{ID: uuid.New()})
	if result.Success || result.Message == "" {
		t.Fatalf("result = %+v", result)
	}
}

func TestMirrorDisabledWhenNoRemote(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, nil)
	if adapter.Enabled() {
		t.Fatal("expected disabled adapter")
	}
	result := adapter.MirrorCartCreate(context.Background(), &models.Cart{}, "")
	if result.Success {
		t.Fatalf("result = %+v", result)
	}
}

func TestPullCartTotalsSumsDecimalQuantities(t *testing.T) {
	t.Parallel()

	amount := int64(5500)
	adapter := newTestAdapter(t, &stubRemote{
		getOrderFn: func(context.Context, string) (*sq.Order, error) {
			return &sq.Order{
				ID:         strPtr("ro-1"),
				TotalMoney: &sq.Money{Amount: &amount},
				LineItems: []*sq.OrderLineItem{
					{Quantity: "2"},
					{Quantity: "3"},
				},
			}, nil
		},
	})

	totals, result := adapter.PullCartTotals(context.Background(), "ro-1")
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if totals.TotalAmountCents != 5500 || totals.ItemCount != 5 {
		t.Fatalf("totals = %+v", totals)
	}
}

func TestMirrorCartLinesClearsRemovedLines(t *testing.T) {
	t.Parallel()

	var gotUpdate square.OrderUpdateParams
	version := 7
	adapter := newTestAdapter(t, &stubRemote{
		getOrderFn: func(context.Context, string) (*sq.Order, error) {
			return &sq.Order{ID: strPtr("ro-1"), Version: &version}, nil
		},
		updateOrderFn: func(_ context.Context, p square.OrderUpdateParams) (*sq.Order, error) {
			gotUpdate = p
			return &sq.Order{ID: strPtr("ro-1")}, nil
		},
	})

	cart := &models.Cart{
		ID:           uuid.New(),
		RemoteCartID: strPtr("ro-1"),
		Lines: []models.CartLine{
			{ID: uuid.New(), ProductName: "Widget", Quantity: 2, UnitPriceCents: 100},
		},
	}
	result := adapter.MirrorCartLines(context.Background(), cart, []string{"old-line"})
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if gotUpdate.Version != 7 {
		t.Fatalf("version = %d", gotUpdate.Version)
	}
	if len(gotUpdate.ClearFields) != 1 || gotUpdate.ClearFields[0] != "line_items[old-line]" {
		t.Fatalf("clear fields = %v", gotUpdate.ClearFields)
	}
	if len(gotUpdate.Lines) != 1 || gotUpdate.Lines[0].Quantity != 2 {
		t.Fatalf("lines = %+v", gotUpdate.Lines)
	}
}

func TestCompleteCheckoutPaysAndCloses(t *testing.T) {
	t.Parallel()

	version := 3
	var paidWith square.OrderPayParams
	adapter := newTestAdapter(t, &stubRemote{
		getOrderFn: func(context.Context, string) (*sq.Order, error) {
			return &sq.Order{ID: strPtr("ro-1"), Version: &version}, nil
		},
		createPaymentFn: func(_ context.Context, p square.PaymentCreateParams) (*sq.Payment, error) {
			if p.AmountCents != 3500 {
				t.Fatalf("amount = %d", p.AmountCents)
			}
			return &sq.Payment{ID: strPtr("pay-1")}, nil
		},
		payOrderFn: func(_ context.Context, p square.OrderPayParams) (*sq.Order, error) {
			paidWith = p
			return &sq.Order{ID: strPtr("ro-1")}, nil
		},
	})

	order := &models.Order{ID: uuid.New(), TotalAmountCents: 3500, Currency: "USD"}
	client := &models.Client{ID: uuid.New(), RemoteCustomerID: strPtr("cust-1")}
	result := adapter.CompleteCheckout(context.Background(), order, client, "ro-1")
	if !result.Success || result.RemoteID != "ro-1" {
		t.Fatalf("result = %+v", result)
	}
	if len(paidWith.PaymentIDs) != 1 || paidWith.PaymentIDs[0] != "pay-1" {
		t.Fatalf("payments = %v", paidWith.PaymentIDs)
	}
}

func TestCompleteCheckoutAttachesShippingFulfillment(t *testing.T) {
	t.Parallel()

	fetched := 3
	updated := 4
	var gotUpdate square.OrderUpdateParams
	var paidWith square.OrderPayParams
	adapter := newTestAdapter(t, &stubRemote{
		getOrderFn: func(context.Context, string) (*sq.Order, error) {
			return &sq.Order{ID: strPtr("ro-1"), Version: &fetched}, nil
		},
		shippingOptionsFn: func() []square.ShippingOption {
			return []square.ShippingOption{
				{ID: "standard-ground", Name: "Standard Ground", Carrier: "USPS", ShippingType: "Ground"},
				{ID: "expedited", Name: "Expedited", Carrier: "UPS", ShippingType: "2nd Day Air"},
			}
		},
		updateOrderFn: func(_ context.Context, p square.OrderUpdateParams) (*sq.Order, error) {
			gotUpdate = p
			return &sq.Order{ID: strPtr("ro-1"), Version: &updated}, nil
		},
		createPaymentFn: func(context.Context, square.PaymentCreateParams) (*sq.Payment, error) {
			return &sq.Payment{ID: strPtr("pay-1")}, nil
		},
		payOrderFn: func(_ context.Context, p square.OrderPayParams) (*sq.Order, error) {
			paidWith = p
			return &sq.Order{ID: strPtr("ro-1")}, nil
		},
	})

	order := &models.Order{ID: uuid.New(), CustomerName: "Acme Co", CustomerEmail: "ops@acme.test", TotalAmountCents: 3500, Currency: "USD"}
	client := &models.Client{
		ID:               uuid.New(),
		RemoteCustomerID: strPtr("cust-1"),
		AddressLine1:     strPtr("100 Main St"),
		City:             strPtr("Springfield"),
		Region:           strPtr("IL"),
		PostalCode:       strPtr("62701"),
		Country:          strPtr("us"),
	}
	result := adapter.CompleteCheckout(context.Background(), order, client, "ro-1")
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if len(gotUpdate.Fulfillments) != 1 {
		t.Fatalf("fulfillments = %+v", gotUpdate.Fulfillments)
	}
	fulfillment := gotUpdate.Fulfillments[0]
	if fulfillment.Carrier != "USPS" || fulfillment.ShippingType != "Ground" {
		t.Fatalf("expected first shipping option, got %+v", fulfillment)
	}
	if fulfillment.Recipient.CustomerID != "cust-1" || fulfillment.Recipient.DisplayName != "Acme Co" {
		t.Fatalf("recipient = %+v", fulfillment.Recipient)
	}
	addr := fulfillment.Recipient.Address
	if addr == nil || addr.AddressLine1 == nil || *addr.AddressLine1 != "100 Main St" {
		t.Fatalf("address = %+v", addr)
	}
	if addr.Country == nil || *addr.Country != sq.Country("US") {
		t.Fatalf("country = %+v", addr.Country)
	}
	if paidWith.Version != updated {
		t.Fatalf("pay version = %d, expected post-update version %d", paidWith.Version, updated)
	}
}

func TestCompleteCheckoutPaymentFailureIsReported(t *testing.T) {
	t.Parallel()

	version := 1
	adapter := newTestAdapter(t, &stubRemote{
		getOrderFn: func(context.Context, string) (*sq.Order, error) {
			return &sq.Order{ID: strPtr("ro-1"), Version: &version}, nil
		},
		createPaymentFn: func(context.Context, square.PaymentCreateParams) (*sq.Payment, error) {
			return nil, errors.New("card declined")
		},
	})

	result := adapter.CompleteCheckout(context.Background(), &models.Order{ID: uuid.New()}, nil, "ro-1")
	if result.Success || result.Message == "" {
		t.Fatalf("result = %+v", result)
	}
}

func TestDeleteCustomerRemovesMirroredProfile(t *testing.T) {
	t.Parallel()

	var gotID string
	adapter := newTestAdapter(t, &stubRemote{
		deleteCustomerFn: func(_ context.Context, id string) error {
			gotID = id
			return nil
		},
	})

	client := &models.Client{ID: uuid.New(), RemoteCustomerID: strPtr("cust-1")}
	result := adapter.DeleteCustomer(context.Background(), client)
	if !result.Success || result.RemoteID != "cust-1" {
		t.Fatalf("result = %+v", result)
	}
	if gotID != "cust-1" {
		t.Fatalf("deleted id = %q", gotID)
	}
}

func TestDeleteCustomerWithoutMirrorIsNoOp(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, &stubRemote{
		deleteCustomerFn: func(context.Context, string) error {
			t.Fatal("remote should not be hit without a mirrored customer")
			return nil
		},
	})

	result := adapter.DeleteCustomer(context.Background(), &models.Client{ID: uuid.New()})
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
}

func TestDeleteCustomerFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, &stubRemote{
		deleteCustomerFn: func(context.Context, string) error {
			return errors.New("remote down")
		},
	})

	result := adapter.DeleteCustomer(context.Background(), &models.Client{ID: uuid.New(), RemoteCustomerID: strPtr("cust-1")})
	if result.Success || result.Message == "" {
		t.Fatalf("result = %+v", result)
	}
}
