package square

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

func TestEnsureIdempotencyKey(t *testing.T) {
	c := &Client{}
	if got := c.ensureIdempotencyKey("pref", "custom-key"); got != "custom-key" {
		t.Fatalf("expected provided key, got %q", got)
	}
	if got := c.ensureIdempotencyKey("prefix", ""); !strings.HasPrefix(got, "prefix-") {
		t.Fatalf("generated idempotency key %q missing prefix", got)
	}
}

func TestRedact(t *testing.T) {
	c := &Client{}
	if out := c.redact("payment_token", "abc123"); out != "[REDACTED]" {
		t.Fatalf("expected redacted value, got %v", out)
	}
	if v := c.redact("status", "ok"); v != "ok" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusTooManyRequests, pkgerrors.CodeRateLimit},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusUnprocessableEntity, pkgerrors.CodeStateConflict},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		if got := domainCodeForStatus(tt.status); got != tt.code {
			t.Fatalf("status %d expected %s got %s", tt.status, tt.code, got)
		}
	}
}

func TestMapSquareError(t *testing.T) {
	c := &Client{}
	table := []struct {
		name     string
		status   int
		payload  string
		wantCode pkgerrors.Code
	}{
		{
			name:     "authentication error",
			status:   http.StatusUnauthorized,
			payload:  `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`,
			wantCode: pkgerrors.CodeUnauthorized,
		},
		{
			name:     "idempotency key reused",
			status:   http.StatusConflict,
			payload:  `{"errors":[{"category":"API_ERROR","code":"IDEMPOTENCY_KEY_REUSED"}]}`,
			wantCode: pkgerrors.CodeIdempotency,
		},
	}
	for _, tt := range table {
		err := sqcore.NewAPIError(tt.status, errors.New(tt.payload))
		mapped := c.mapSquareError(err, "operation")
		if mapped == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		typed := pkgerrors.As(mapped)
		if typed == nil {
			t.Fatalf("%s: result is not a typed error", tt.name)
		}
		if typed.Code() != tt.wantCode {
			t.Fatalf("%s: expected code %s, got %s", tt.name, tt.wantCode, typed.Code())
		}
	}
}

func TestOrderLineParamsQuantityAndMoney(t *testing.T) {
	line := OrderLineParams{
		UID:            "line-1",
		Name:           "Blue Widget",
		Quantity:       3,
		UnitPriceCents: 1299,
		Currency:       "usd",
	}.toSquareLine()

	if line.Quantity != "3" {
		t.Fatalf("quantity = %q, want 3", line.Quantity)
	}
	if line.BasePriceMoney == nil || *line.BasePriceMoney.Amount != 1299 {
		t.Fatal("base price money not set")
	}
	if *line.BasePriceMoney.Currency != sq.Currency("USD") {
		t.Fatalf("currency not normalized: %v", *line.BasePriceMoney.Currency)
	}
}

func TestOrderUpdateParamsClearFields(t *testing.T) {
	req := OrderUpdateParams{
		OrderID:     "o-1",
		Version:     4,
		ClearFields: []string{"line_items[abc]", " ", "line_items[def]"},
	}.toSquareRequest("loc-1", "key")

	if req.OrderID != "o-1" {
		t.Fatalf("order id not set: %s", req.OrderID)
	}
	if len(req.FieldsToClear) != 2 {
		t.Fatalf("fields to clear = %v", req.FieldsToClear)
	}
	if req.Order == nil || req.Order.Version == nil || *req.Order.Version != 4 {
		t.Fatal("order version missing")
	}
}
