package square

import (
	"strconv"
	"strings"

	sq "github.com/square/square-go-sdk"
)

// CustomerCreateParams defines the payload to create a Square customer.
type CustomerCreateParams struct {
	Email          string
	PhoneNumber    string
	GivenName      string
	FamilyName     string
	CompanyName    string
	ReferenceID    string
	Address        *sq.Address
	Note           string
	IdempotencyKey string
}

func (p CustomerCreateParams) toSquareRequest(idempotencyKey string) *sq.CreateCustomerRequest {
	req := &sq.CreateCustomerRequest{
		IdempotencyKey: ptrString(idempotencyKey),
	}
	if trimmed := strings.TrimSpace(p.Email); trimmed != "" {
		req.EmailAddress = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.PhoneNumber); trimmed != "" {
		req.PhoneNumber = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.GivenName); trimmed != "" {
		req.GivenName = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.FamilyName); trimmed != "" {
		req.FamilyName = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.CompanyName); trimmed != "" {
		req.CompanyName = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		req.ReferenceID = ptrString(trimmed)
	}
	if p.Address != nil {
		req.Address = p.Address
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		req.Note = ptrString(trimmed)
	}
	return req
}

// OrderLineParams describes one ad-hoc line on a mirrored draft order.
type OrderLineParams struct {
	UID            string
	Name           string
	Quantity       int
	UnitPriceCents int64
	Currency       string
	Note           string
}

func (p OrderLineParams) toSquareLine() *sq.OrderLineItem {
	line := &sq.OrderLineItem{
		Quantity:       strconv.Itoa(p.Quantity),
		Name:           ptrString(p.Name),
		BasePriceMoney: moneyPtr(p.UnitPriceCents, p.Currency),
	}
	if trimmed := strings.TrimSpace(p.UID); trimmed != "" {
		line.UID = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		line.Note = ptrString(trimmed)
	}
	return line
}

// OrderCreateParams contains the fields required to open a draft order.
type OrderCreateParams struct {
	ReferenceID    string
	CustomerID     string
	Lines          []OrderLineParams
	IdempotencyKey string
}

func (p OrderCreateParams) toSquareRequest(locationID, idempotencyKey string) *sq.CreateOrderRequest {
	order := &sq.Order{
		LocationID: locationID,
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		order.ReferenceID = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.CustomerID); trimmed != "" {
		order.CustomerID = ptrString(trimmed)
	}
	for _, line := range p.Lines {
		order.LineItems = append(order.LineItems, line.toSquareLine())
	}
	return &sq.CreateOrderRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		Order:          order,
	}
}

// FulfillmentRecipientParams identifies who receives a shipment fulfillment.
// Square fills display name, email, and phone from the customer profile when
// CustomerID is set; explicit values here override the profile.
type FulfillmentRecipientParams struct {
	CustomerID  string
	DisplayName string
	Email       string
	Phone       string
	Address     *sq.Address
}

func (p FulfillmentRecipientParams) toSquareRecipient() *sq.FulfillmentRecipient {
	recipient := &sq.FulfillmentRecipient{}
	populated := false
	if trimmed := strings.TrimSpace(p.CustomerID); trimmed != "" {
		recipient.CustomerID = ptrString(trimmed)
		populated = true
	}
	if trimmed := strings.TrimSpace(p.DisplayName); trimmed != "" {
		recipient.DisplayName = ptrString(trimmed)
		populated = true
	}
	if trimmed := strings.TrimSpace(p.Email); trimmed != "" {
		recipient.EmailAddress = ptrString(trimmed)
		populated = true
	}
	if trimmed := strings.TrimSpace(p.Phone); trimmed != "" {
		recipient.PhoneNumber = ptrString(trimmed)
		populated = true
	}
	if p.Address != nil {
		recipient.Address = p.Address
		populated = true
	}
	if !populated {
		return nil
	}
	return recipient
}

// FulfillmentParams attaches a shipment fulfillment to a draft order.
type FulfillmentParams struct {
	UID          string
	Carrier      string
	ShippingType string
	Note         string
	Recipient    FulfillmentRecipientParams
}

func (p FulfillmentParams) toSquareFulfillment() *sq.Fulfillment {
	fulfillmentType := sq.FulfillmentTypeShipment
	details := &sq.FulfillmentShipmentDetails{
		Recipient: p.Recipient.toSquareRecipient(),
	}
	if trimmed := strings.TrimSpace(p.Carrier); trimmed != "" {
		details.Carrier = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.ShippingType); trimmed != "" {
		details.ShippingType = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		details.ShippingNote = ptrString(trimmed)
	}
	fulfillment := &sq.Fulfillment{
		Type:            &fulfillmentType,
		ShipmentDetails: details,
	}
	if trimmed := strings.TrimSpace(p.UID); trimmed != "" {
		fulfillment.UID = ptrString(trimmed)
	}
	return fulfillment
}

// OrderUpdateParams applies a sparse update against an existing draft order.
type OrderUpdateParams struct {
	OrderID        string
	Version        int
	Lines          []OrderLineParams
	Fulfillments   []FulfillmentParams
	ClearFields    []string
	IdempotencyKey string
}

func (p OrderUpdateParams) toSquareRequest(locationID, idempotencyKey string) *sq.UpdateOrderRequest {
	order := &sq.Order{
		LocationID: locationID,
		Version:    intPtr(p.Version),
	}
	for _, line := range p.Lines {
		order.LineItems = append(order.LineItems, line.toSquareLine())
	}
	for _, fulfillment := range p.Fulfillments {
		order.Fulfillments = append(order.Fulfillments, fulfillment.toSquareFulfillment())
	}
	req := &sq.UpdateOrderRequest{
		OrderID:        p.OrderID,
		IdempotencyKey: ptrString(idempotencyKey),
		Order:          order,
	}
	for _, field := range p.ClearFields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			req.FieldsToClear = append(req.FieldsToClear, trimmed)
		}
	}
	return req
}

// PaymentCreateParams encapsulates the inputs for a Square payment.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	CustomerID     string
	OrderID        string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

func (p PaymentCreateParams) toSquareRequest(locationID, idempotencyKey string) *sq.CreatePaymentRequest {
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		LocationID:     ptrString(locationID),
		SourceID:       p.SourceID,
	}
	if trimmed := strings.TrimSpace(p.CustomerID); trimmed != "" {
		req.CustomerID = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.OrderID); trimmed != "" {
		req.OrderID = ptrString(trimmed)
	}
	if p.AmountCents > 0 {
		req.AmountMoney = moneyPtr(p.AmountCents, p.Currency)
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		req.Note = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		req.ReferenceID = ptrString(trimmed)
	}
	return req
}

// OrderPayParams attaches completed payments to an open order.
type OrderPayParams struct {
	OrderID        string
	Version        int
	PaymentIDs     []string
	IdempotencyKey string
}

func (p OrderPayParams) toSquareRequest(idempotencyKey string) *sq.PayOrderRequest {
	return &sq.PayOrderRequest{
		OrderID:        p.OrderID,
		IdempotencyKey: idempotencyKey,
		OrderVersion:   intPtr(p.Version),
		PaymentIDs:     p.PaymentIDs,
	}
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func intPtr(value int) *int {
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
