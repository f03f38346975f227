package remotesync

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"go.uber.org/multierr"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
	"github.com/orderdesk/orderdesk-backend/pkg/metrics"
	"github.com/orderdesk/orderdesk-backend/pkg/square"
)

// managedReferencePrefix marks remote customers created by this service so a
// re-sync can find them by reference even when the stored id was lost.
const managedReferencePrefix = "orderdesk:"

// SyncResult is the outcome of one best-effort mirror operation. Adapter
// methods never return an error; a failed sync is data, not control flow.
type SyncResult struct {
	Success  bool   `json:"success"`
	RemoteID string `json:"remote_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// RemoteTotals carries the authoritative money figures pulled back from the
// remote mirror.
type RemoteTotals struct {
	TotalAmountCents int
	ItemCount        int
}

// RemoteCommerce is the surface required from the commerce backend.
// Implemented by pkg/square.Client.
type RemoteCommerce interface {
	EnsureCustomer(ctx context.Context, params square.CustomerCreateParams) (*sq.Customer, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	CreateDraftOrder(ctx context.Context, params square.OrderCreateParams) (*sq.Order, error)
	UpdateOrder(ctx context.Context, params square.OrderUpdateParams) (*sq.Order, error)
	GetOrder(ctx context.Context, orderID string) (*sq.Order, error)
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	PayOrder(ctx context.Context, params square.OrderPayParams) (*sq.Order, error)
	ShippingOptions() []square.ShippingOption
}

// Adapter mirrors local commerce state to the remote backend. Every method
// is best-effort: failures are logged and counted, never propagated.
type Adapter struct {
	remote  RemoteCommerce
	logg    *logger.Logger
	metrics *metrics.RemoteSyncMetrics
}

// NewAdapter builds the sync adapter. A nil remote disables mirroring; every
// call then reports a skipped result.
func NewAdapter(remote RemoteCommerce, logg *logger.Logger, m *metrics.RemoteSyncMetrics) (*Adapter, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Adapter{remote: remote, logg: logg, metrics: m}, nil
}

// Enabled reports whether a remote backend is configured.
func (a *Adapter) Enabled() bool {
	return a != nil && a.remote != nil
}

// EnsureCustomer mirrors a client as a remote customer. Idempotent: a stored
// remote id short-circuits, otherwise the remote is searched by reference and
// email before creating.
func (a *Adapter) EnsureCustomer(ctx context.Context, client *models.Client) SyncResult {
	const op = "customer_upsert"
	if !a.Enabled() {
		return a.skipped(op)
	}
	if client == nil {
		return a.failure(ctx, op, fmt.Errorf("client is nil"))
	}
	if client.RemoteCustomerID != nil && *client.RemoteCustomerID != "" {
		return a.success(op, *client.RemoteCustomerID)
	}

	given, family := splitName(client.Name)
	customer, err := a.remote.EnsureCustomer(ctx, square.CustomerCreateParams{
		Email:       client.Email,
		PhoneNumber: stringValue(client.Phone),
		GivenName:   given,
		FamilyName:  family,
		CompanyName: client.Name,
		ReferenceID: managedReferencePrefix + client.ID.String(),
		Note:        "managed by orderdesk",
	})
	if err != nil {
		return a.failure(ctx, op, err)
	}
	return a.success(op, stringValue(customer.GetID()))
}

// DeleteCustomer removes the mirrored remote customer after a local client
// delete. A client that never synced is a no-op.
func (a *Adapter) DeleteCustomer(ctx context.Context, client *models.Client) SyncResult {
	const op = "customer_delete"
	if !a.Enabled() {
		return a.skipped(op)
	}
	if client == nil {
		return a.failure(ctx, op, fmt.Errorf("client is nil"))
	}
	if client.RemoteCustomerID == nil || strings.TrimSpace(*client.RemoteCustomerID) == "" {
		return SyncResult{Success: true, Message: "no remote customer"}
	}
	if err := a.remote.DeleteCustomer(ctx, *client.RemoteCustomerID); err != nil {
		return a.failure(ctx, op, err)
	}
	return a.success(op, *client.RemoteCustomerID)
}

// MirrorCartCreate opens a remote draft order for the cart.
func (a *Adapter) MirrorCartCreate(ctx context.Context, cart *models.Cart, remoteCustomerID string) SyncResult {
	const op = "cart_create"
	if !a.Enabled() {
		return a.skipped(op)
	}
	if cart == nil {
		return a.failure(ctx, op, fmt.Errorf("cart is nil"))
	}
	if cart.RemoteCartID != nil && *cart.RemoteCartID != "" {
		return a.success(op, *cart.RemoteCartID)
	}

	order, err := a.remote.CreateDraftOrder(ctx, square.OrderCreateParams{
		ReferenceID: cart.ID.String(),
		CustomerID:  remoteCustomerID,
		Lines:       cartLinesToParams(cart.Currency.String(), cart.Lines),
	})
	if err != nil {
		return a.failure(ctx, op, err)
	}
	return a.success(op, stringValue(order.GetID()))
}

// MirrorCartLines pushes the full line set to the remote draft order and
// clears lines removed locally. The remote order version is read first; both
// failures are folded into one result.
func (a *Adapter) MirrorCartLines(ctx context.Context, cart *models.Cart, removedRemoteLineIDs []string) SyncResult {
	const op = "cart_lines"
	if !a.Enabled() {
		return a.skipped(op)
	}
	if cart == nil || cart.RemoteCartID == nil || *cart.RemoteCartID == "" {
		return a.failure(ctx, op, fmt.Errorf("cart has no remote mirror"))
	}

	remoteID := *cart.RemoteCartID
	current, getErr := a.remote.GetOrder(ctx, remoteID)
	if getErr != nil {
		return a.failure(ctx, op, getErr)
	}

	clearFields := make([]string, 0, len(removedRemoteLineIDs))
	for _, uid := range removedRemoteLineIDs {
		if strings.TrimSpace(uid) == "" {
			continue
		}
		clearFields = append(clearFields, fmt.Sprintf("line_items[%s]", uid))
	}

	_, updErr := a.remote.UpdateOrder(ctx, square.OrderUpdateParams{
		OrderID:     remoteID,
		Version:     intValue(current.GetVersion()),
		Lines:       cartLinesToParams(cart.Currency.String(), cart.Lines),
		ClearFields: clearFields,
	})
	if err := multierr.Combine(getErr, updErr); err != nil {
		return a.failure(ctx, op, err)
	}
	return a.success(op, remoteID)
}

// PullCartTotals reads the authoritative totals from the remote mirror.
// Remote money figures win over locally derived ones whenever the mirror
// exists.
func (a *Adapter) PullCartTotals(ctx context.Context, remoteCartID string) (*RemoteTotals, SyncResult) {
	const op = "cart_totals"
	if !a.Enabled() {
		return nil, a.skipped(op)
	}
	if strings.TrimSpace(remoteCartID) == "" {
		return nil, a.failure(ctx, op, fmt.Errorf("remote cart id is empty"))
	}

	order, err := a.remote.GetOrder(ctx, remoteCartID)
	if err != nil {
		return nil, a.failure(ctx, op, err)
	}

	totals := &RemoteTotals{}
	if money := order.GetTotalMoney(); money != nil && money.Amount != nil {
		totals.TotalAmountCents = int(*money.Amount)
	}
	// Remote quantities arrive as decimal strings; sum them exactly.
	count := decimal.Zero
	for _, line := range order.GetLineItems() {
		if line == nil {
			continue
		}
		qty, qerr := decimal.NewFromString(line.Quantity)
		if qerr != nil {
			return nil, a.failure(ctx, op, fmt.Errorf("parse remote quantity %q: %w", line.Quantity, qerr))
		}
		count = count.Add(qty)
	}
	totals.ItemCount = int(count.IntPart())
	return totals, a.success(op, remoteCartID)
}

// CompleteCheckout settles the remote draft order: the client's shipping
// address and the default shipping option are attached as a shipment
// fulfillment, then a payment session is opened for the order total and the
// order is paid and closed. Partial failures are aggregated and reported as
// one message.
func (a *Adapter) CompleteCheckout(ctx context.Context, order *models.Order, client *models.Client, remoteCartID string) SyncResult {
	const op = "checkout_complete"
	if !a.Enabled() {
		return a.skipped(op)
	}
	if order == nil {
		return a.failure(ctx, op, fmt.Errorf("order is nil"))
	}
	if strings.TrimSpace(remoteCartID) == "" {
		return a.failure(ctx, op, fmt.Errorf("cart has no remote mirror"))
	}

	remote, err := a.remote.GetOrder(ctx, remoteCartID)
	if err != nil {
		return a.failure(ctx, op, err)
	}

	version := intValue(remote.GetVersion())
	if fulfillment, ok := a.shipmentFor(order, client); ok {
		updated, updErr := a.remote.UpdateOrder(ctx, square.OrderUpdateParams{
			OrderID:      remoteCartID,
			Version:      version,
			Fulfillments: []square.FulfillmentParams{fulfillment},
		})
		if updErr != nil {
			return a.failure(ctx, op, updErr)
		}
		version = intValue(updated.GetVersion())
	}

	remoteCustomerID := ""
	if client != nil && client.RemoteCustomerID != nil {
		remoteCustomerID = *client.RemoteCustomerID
	}

	payment, payErr := a.remote.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents: int64(order.TotalAmountCents),
		Currency:    order.Currency.String(),
		CustomerID:  remoteCustomerID,
		OrderID:     remoteCartID,
		SourceID:    "EXTERNAL",
		ReferenceID: order.ID.String(),
		Note:        "orderdesk checkout",
	})
	if payErr != nil {
		return a.failure(ctx, op, payErr)
	}

	completed, closeErr := a.remote.PayOrder(ctx, square.OrderPayParams{
		OrderID:    remoteCartID,
		Version:    version,
		PaymentIDs: []string{stringValue(payment.GetID())},
	})
	if err := multierr.Combine(payErr, closeErr); err != nil {
		return a.failure(ctx, op, err)
	}
	return a.success(op, stringValue(completed.GetID()))
}

// shipmentFor builds the shipment fulfillment for a settled order: recipient
// from the client profile, service level from the first available shipping
// option.
func (a *Adapter) shipmentFor(order *models.Order, client *models.Client) (square.FulfillmentParams, bool) {
	options := a.remote.ShippingOptions()
	if len(options) == 0 {
		return square.FulfillmentParams{}, false
	}
	selected := options[0]

	recipient := square.FulfillmentRecipientParams{
		DisplayName: order.CustomerName,
		Email:       order.CustomerEmail,
	}
	if client != nil {
		if client.RemoteCustomerID != nil {
			recipient.CustomerID = *client.RemoteCustomerID
		}
		recipient.Phone = stringValue(client.Phone)
		recipient.Address = clientAddress(client)
	}

	return square.FulfillmentParams{
		UID:          order.ID.String(),
		Carrier:      selected.Carrier,
		ShippingType: selected.ShippingType,
		Note:         selected.Name,
		Recipient:    recipient,
	}, true
}

func (a *Adapter) success(op, remoteID string) SyncResult {
	a.metrics.IncSuccess(op)
	return SyncResult{Success: true, RemoteID: remoteID}
}

func (a *Adapter) failure(ctx context.Context, op string, err error) SyncResult {
	a.metrics.IncFailure(op)
	ctx = a.logg.WithField(ctx, "operation", op)
	a.logg.Error(ctx, "remote sync failed", err)
	return SyncResult{Success: false, Message: err.Error()}
}

func (a *Adapter) skipped(op string) SyncResult {
	return SyncResult{Success: false, Message: "remote backend not configured"}
}

func cartLinesToParams(currency string, lines []models.CartLine) []square.OrderLineParams {
	params := make([]square.OrderLineParams, 0, len(lines))
	for _, line := range lines {
		params = append(params, square.OrderLineParams{
			UID:            line.ID.String(),
			Name:           line.ProductName,
			Quantity:       line.Quantity,
			UnitPriceCents: int64(line.UnitPriceCents),
			Currency:       currency,
			Note:           line.ProductSKU,
		})
	}
	return params
}

func clientAddress(client *models.Client) *sq.Address {
	addr := &sq.Address{}
	populated := false
	set := func(dst **string, src *string) {
		if src == nil {
			return
		}
		if trimmed := strings.TrimSpace(*src); trimmed != "" {
			*dst = &trimmed
			populated = true
		}
	}
	set(&addr.AddressLine1, client.AddressLine1)
	set(&addr.AddressLine2, client.AddressLine2)
	set(&addr.Locality, client.City)
	set(&addr.AdministrativeDistrictLevel1, client.Region)
	set(&addr.PostalCode, client.PostalCode)
	if client.Country != nil {
		if trimmed := strings.ToUpper(strings.TrimSpace(*client.Country)); trimmed != "" {
			country := sq.Country(trimmed)
			addr.Country = &country
			populated = true
		}
	}
	if !populated {
		return nil
	}
	return addr
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func intValue(ptr *int) int {
	if ptr == nil {
		return 0
	}
	return *ptr
}
