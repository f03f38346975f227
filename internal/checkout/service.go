package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/internal/cart"
	"github.com/orderdesk/orderdesk-backend/internal/inventory"
	"github.com/orderdesk/orderdesk-backend/internal/orders"
	"github.com/orderdesk/orderdesk-backend/internal/remotesync"
	"github.com/orderdesk/orderdesk-backend/internal/tenants"
	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
	"github.com/orderdesk/orderdesk-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type clientLoader interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error)
}

type stockGuard interface {
	WithTx(tx *gorm.DB) *inventory.Guard
	Inspect(ctx context.Context, orgID uuid.UUID, lines []inventory.LineCheck) (*inventory.Report, error)
}

type remoteSettler interface {
	CompleteCheckout(ctx context.Context, order *models.Order, client *models.Client, remoteCartID string) remotesync.SyncResult
}

// Service converts active carts into orders.
type Service interface {
	Validate(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*inventory.Report, error)
	Execute(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*models.Order, error)
}

type service struct {
	carts   *cart.Repository
	orders  *orders.Repository
	tx      txRunner
	clients clientLoader
	guard   stockGuard
	remote  remoteSettler
	metrics *metrics.CheckoutMetrics
}

// NewService builds the checkout service. Metrics may be nil.
func NewService(carts *cart.Repository, orderRepo *orders.Repository, tx txRunner, clients clientLoader, guard stockGuard, remote remoteSettler, checkoutMetrics *metrics.CheckoutMetrics) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if clients == nil {
		return nil, fmt.Errorf("client loader required")
	}
	if guard == nil {
		return nil, fmt.Errorf("inventory guard required")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote settler required")
	}
	return &service{
		carts:   carts,
		orders:  orderRepo,
		tx:      tx,
		clients: clients,
		guard:   guard,
		remote:  remote,
		metrics: checkoutMetrics,
	}, nil
}

// Validate runs the advisory pre-checkout report against current stock. The
// result is point-in-time; Execute re-checks authoritatively at commit.
func (s *service) Validate(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*inventory.Report, error) {
	current, err := s.checkoutableCart(ctx, access, cartID)
	if err != nil {
		return nil, err
	}
	checks := make([]inventory.LineCheck, 0, len(current.Lines))
	for _, line := range current.Lines {
		checks = append(checks, inventory.LineCheck{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return s.guard.Inspect(ctx, access.OrganizationID, checks)
}

// Execute converts the cart into a pending order. Stock is decremented with
// the order insert in one transaction; any shortage aborts the whole
// checkout and leaves the cart untouched. Remote settlement happens after
// commit and never reverses the local order.
func (s *service) Execute(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*models.Order, error) {
	start := time.Now()
	order, err := s.execute(ctx, access, cartID)
	s.metrics.Observe(outcomeFor(err), time.Since(start))
	return order, err
}

func (s *service) execute(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*models.Order, error) {
	current, err := s.checkoutableCart(ctx, access, cartID)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.FindByID(ctx, access.OrganizationID, current.ClientID)
	if err != nil {
		return nil, err
	}

	total := 0
	lines := make([]models.OrderLine, 0, len(current.Lines))
	for _, line := range current.Lines {
		total += line.TotalPriceCents
		lines = append(lines, models.OrderLine{
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			ProductSKU:      line.ProductSKU,
			Quantity:        line.Quantity,
			UnitPriceCents:  line.UnitPriceCents,
			TotalPriceCents: line.TotalPriceCents,
		})
	}
	if total <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart total must be positive")
	}

	order := &models.Order{
		OrganizationID:   access.OrganizationID,
		ClientID:         current.ClientID,
		CartID:           current.ID,
		CustomerName:     client.Name,
		CustomerEmail:    client.Email,
		Status:           enums.OrderStatusPending,
		Currency:         current.Currency,
		TotalAmountCents: total,
		Lines:            lines,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		guard := s.guard.WithTx(tx)
		for _, line := range current.Lines {
			if err := guard.Decrement(ctx, access.OrganizationID, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		if _, err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		affected, err := s.carts.WithTx(tx).UpdateStatus(ctx, access.OrganizationID, current.ID, enums.CartStatusActive, enums.CartStatusCompleted)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not active")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.settleRemote(ctx, order, current, client)
	return order, nil
}

func (s *service) checkoutableCart(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*models.Cart, error) {
	current, err := s.carts.FindByID(ctx, access.OrganizationID, cartID)
	if err != nil {
		return nil, err
	}
	if current.UserID != access.UserID && !access.CanManage() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another user")
	}
	if current.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not active")
	}
	if !current.ExpiresAt.IsZero() && time.Now().UTC().After(current.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart has expired")
	}
	if len(current.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no lines")
	}
	return current, nil
}

// settleRemote pays and closes the mirrored draft order, attaching the
// client's shipping details on the way. Best-effort: the local order stands
// regardless of the remote outcome.
func (s *service) settleRemote(ctx context.Context, order *models.Order, current *models.Cart, client *models.Client) {
	if current.RemoteCartID == nil || *current.RemoteCartID == "" {
		return
	}
	result := s.remote.CompleteCheckout(ctx, order, client, *current.RemoteCartID)
	if !result.Success || result.RemoteID == "" {
		return
	}
	if err := s.orders.SetRemoteOrderID(ctx, order.ID, result.RemoteID); err == nil {
		order.RemoteOrderID = &result.RemoteID
	}
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeCompleted
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return metrics.OutcomeFailed
	}
	switch typed.Code() {
	case pkgerrors.CodeShortage:
		return metrics.OutcomeShortage
	case pkgerrors.CodeValidation, pkgerrors.CodeStateConflict, pkgerrors.CodeForbidden, pkgerrors.CodeNotFound:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}
