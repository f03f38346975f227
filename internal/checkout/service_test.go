package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/internal/cart"
	"github.com/orderdesk/orderdesk-backend/internal/clients"
	"github.com/orderdesk/orderdesk-backend/internal/inventory"
	"github.com/orderdesk/orderdesk-backend/internal/orders"
	"github.com/orderdesk/orderdesk-backend/internal/remotesync"
	"github.com/orderdesk/orderdesk-backend/internal/tenants"
	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

type testTx struct {
	db *gorm.DB
}

func (t *testTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

type stubSettler struct {
	result remotesync.SyncResult
	calls  int
}

func (s *stubSettler) CompleteCheckout(context.Context, *models.Order, *models.Client, string) remotesync.SyncResult {
	s.calls++
	return s.result
}

type fixture struct {
	svc     Service
	db      *gorm.DB
	settler *stubSettler
	access  tenants.Access
	client  *models.Client
}

func newFixture(t *testing.T, settler *stubSettler) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Client{}, &models.Product{},
		&models.Cart{}, &models.CartLine{},
		&models.Order{}, &models.OrderLine{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	orgID := uuid.New()
	client := &models.Client{OrganizationID: orgID, Name: "Acme Retail", Email: "buyer@acme.test"}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}

	svc, err := NewService(
		cart.NewRepository(db),
		orders.NewRepository(db),
		&testTx{db: db},
		clients.NewRepository(db),
		inventory.NewGuard(db),
		settler,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &fixture{
		svc:     svc,
		db:      db,
		settler: settler,
		access:  tenants.Access{OrganizationID: orgID, UserID: uuid.New(), Role: enums.MemberRoleMember},
		client:  client,
	}
}

func (f *fixture) seedProduct(t *testing.T, price, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		OrganizationID: f.access.OrganizationID,
		SKU:            "SKU-" + uuid.NewString()[:8],
		Name:           "Widget",
		PriceCents:     price,
		StockQuantity:  stock,
		IsActive:       true,
	}
	if err := f.db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func (f *fixture) seedCart(t *testing.T, lines ...models.CartLine) *models.Cart {
	t.Helper()
	total, count := 0, 0
	for _, line := range lines {
		total += line.TotalPriceCents
		count += line.Quantity
	}
	c := &models.Cart{
		OrganizationID:   f.access.OrganizationID,
		ClientID:         f.client.ID,
		UserID:           f.access.UserID,
		Status:           enums.CartStatusActive,
		Currency:         enums.CurrencyUSD,
		TotalAmountCents: total,
		ItemCount:        count,
		ExpiresAt:        time.Now().UTC().Add(time.Hour),
		Lines:            lines,
	}
	if err := f.db.Create(c).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return c
}

func line(productID uuid.UUID, qty, unitPrice int) models.CartLine {
	return models.CartLine{
		ProductID:       productID,
		Quantity:        qty,
		UnitPriceCents:  unitPrice,
		TotalPriceCents: qty * unitPrice,
		ProductName:     "Widget",
		ProductSKU:      "SKU-1",
	}
}

func (f *fixture) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := f.db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.StockQuantity
}

func (f *fixture) cartStatus(t *testing.T, cartID uuid.UUID) enums.CartStatus {
	t.Helper()
	var c models.Cart
	if err := f.db.First(&c, "id = ?", cartID).Error; err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	return c.Status
}

func TestExecuteHappyPath(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSettler{})
	ctx := context.Background()
	widget := f.seedProduct(t, 1000, 10)
	gadget := f.seedProduct(t, 500, 10)
	c := f.seedCart(t, line(widget.ID, 3, 1000), line(gadget.ID, 1, 500))

	order, err := f.svc.Execute(ctx, f.access, c.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s", order.Status)
	}
	if order.TotalAmountCents != 3500 {
		t.Fatalf("total = %d", order.TotalAmountCents)
	}
	if order.CustomerName != "Acme Retail" || order.CustomerEmail != "buyer@acme.test" {
		t.Fatalf("customer snapshot = %s/%s", order.CustomerName, order.CustomerEmail)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("lines = %d", len(order.Lines))
	}
	if got := f.stockOf(t, widget.ID); got != 7 {
		t.Fatalf("widget stock = %d", got)
	}
	if got := f.stockOf(t, gadget.ID); got != 9 {
		t.Fatalf("gadget stock = %d", got)
	}
	if got := f.cartStatus(t, c.ID); got != enums.CartStatusCompleted {
		t.Fatalf("cart status = %s", got)
	}
}

func TestExecuteShortageAbortsEverything(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSettler{})
	ctx := context.Background()
	widget := f.seedProduct(t, 1000, 10)
	scarce := f.seedProduct(t, 500, 1)
	c := f.seedCart(t, line(widget.ID, 3, 1000), line(scarce.ID, 5, 500))

	_, err := f.svc.Execute(ctx, f.access, c.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeShortage {
		t.Fatalf("unexpected error: %v", err)
	}
	detail, ok := typed.Details().(inventory.ShortageDetail)
	if !ok || detail.Requested != 5 || detail.Available != 1 {
		t.Fatalf("details = %+v", typed.Details())
	}

	// The first line's decrement must roll back with the rest.
	if got := f.stockOf(t, widget.ID); got != 10 {
		t.Fatalf("widget stock = %d", got)
	}
	if got := f.cartStatus(t, c.ID); got != enums.CartStatusActive {
		t.Fatalf("cart status = %s", got)
	}
	var count int64
	if err := f.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("orders persisted = %d", count)
	}
}

func TestExecuteTwiceConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSettler{})
	ctx := context.Background()
	widget := f.seedProduct(t, 1000, 10)
	c := f.seedCart(t, line(widget.ID, 2, 1000))

	if _, err := f.svc.Execute(ctx, f.access, c.ID); err != nil {
		t.Fatalf("first execute: %v", err)
	}
	_, err := f.svc.Execute(ctx, f.access, c.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.stockOf(t, widget.ID); got != 8 {
		t.Fatalf("stock = %d, want single decrement", got)
	}
}

func TestExecuteEmptyCartRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSettler{})
	c := f.seedCart(t)

	_, err := f.svc.Execute(context.Background(), f.access, c.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecuteForbiddenForOtherMember(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSettler{})
	widget := f.seedProduct(t, 1000, 10)
	c := f.seedCart(t, line(widget.ID, 1, 1000))

	stranger := tenants.Access{
		OrganizationID: f.access.OrganizationID,
		UserID:         uuid.New(),
		Role:           enums.MemberRoleMember,
	}
	_, err := f.svc.Execute(context.Background(), stranger, c.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecuteStoresRemoteOrderID(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSettler{result: remotesync.SyncResult{Success: true, RemoteID: "ro-9"}})
	ctx := context.Background()
	widget := f.seedProduct(t, 1000, 10)
	c := f.seedCart(t, line(widget.ID, 1, 1000))
	remoteID := "remote-cart-1"
	if err := f.db.Model(&models.Cart{}).Where("id = ?", c.ID).Update("remote_cart_id", remoteID).Error; err != nil {
		t.Fatal(err)
	}

	order, err := f.svc.Execute(ctx, f.access, c.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f.settler.calls != 1 {
		t.Fatalf("settler calls = %d", f.settler.calls)
	}
	if order.RemoteOrderID == nil || *order.RemoteOrderID != "ro-9" {
		t.Fatalf("remote order id = %v", order.RemoteOrderID)
	}
}

func TestExecuteSurvivesRemoteFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSettler{result: remotesync.SyncResult{Success: false, Message: "remote down"}})
	ctx := context.Background()
	widget := f.seedProduct(t, 1000, 10)
	c := f.seedCart(t, line(widget.ID, 1, 1000))
	if err := f.db.Model(&models.Cart{}).Where("id = ?", c.ID).Update("remote_cart_id", "remote-cart-1").Error; err != nil {
		t.Fatal(err)
	}

	order, err := f.svc.Execute(ctx, f.access, c.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if order.RemoteOrderID != nil {
		t.Fatal("remote order id should stay empty")
	}
	if got := f.cartStatus(t, c.ID); got != enums.CartStatusCompleted {
		t.Fatalf("cart status = %s", got)
	}
}

func TestValidateReportsIssuesWithoutBlocking(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSettler{})
	ctx := context.Background()
	scarce := f.seedProduct(t, 500, 2)
	c := f.seedCart(t, line(scarce.ID, 5, 500))

	report, err := f.svc.Validate(ctx, f.access, c.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.OK {
		t.Fatal("expected blocking issue in report")
	}
	if len(report.Issues) != 1 || report.Issues[0].Reason != inventory.IssueReasonInsufficientStock {
		t.Fatalf("issues = %+v", report.Issues)
	}

	// Advisory only: stock and cart are untouched.
	if got := f.stockOf(t, scarce.ID); got != 2 {
		t.Fatalf("stock = %d", got)
	}
	if got := f.cartStatus(t, c.ID); got != enums.CartStatusActive {
		t.Fatalf("cart status = %s", got)
	}
}
