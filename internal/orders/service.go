package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/internal/inventory"
	"github.com/orderdesk/orderdesk-backend/internal/tenants"
	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockGuard interface {
	WithTx(tx *gorm.DB) *inventory.Guard
}

// Service exposes order lookup and status management.
type Service interface {
	Get(ctx context.Context, access tenants.Access, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, access tenants.Access, status *enums.OrderStatus) ([]models.Order, error)
	UpdateStatus(ctx context.Context, access tenants.Access, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
}

type service struct {
	repo  *Repository
	tx    txRunner
	guard stockGuard
}

// NewService builds the order service.
func NewService(repo *Repository, tx txRunner, guard stockGuard) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if guard == nil {
		return nil, fmt.Errorf("inventory guard required")
	}
	return &service{repo: repo, tx: tx, guard: guard}, nil
}

func (s *service) Get(ctx context.Context, access tenants.Access, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, access.OrganizationID, orderID)
}

func (s *service) List(ctx context.Context, access tenants.Access, status *enums.OrderStatus) ([]models.Order, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	return s.repo.List(ctx, access.OrganizationID, status)
}

// UpdateStatus moves the order along its lifecycle. Transitions only move
// forward; cancellation is allowed from any non-terminal status and returns
// each line's quantity to stock.
func (s *service) UpdateStatus(ctx context.Context, access tenants.Access, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if !access.CanManage() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order management requires manager access")
	}

	order, err := s.repo.FindByID(ctx, access.OrganizationID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, next))
	}

	if next == enums.OrderStatusCancelled {
		if err := s.cancel(ctx, access.OrganizationID, order); err != nil {
			return nil, err
		}
	} else {
		affected, err := s.repo.UpdateStatus(ctx, access.OrganizationID, orderID, order.Status, next)
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
	}

	return s.repo.FindByID(ctx, access.OrganizationID, orderID)
}

// cancel flips the order and restocks its lines in one transaction. The
// restocked flag on each line keeps a retried cancellation from crediting
// stock twice.
func (s *service) cancel(ctx context.Context, orgID uuid.UUID, order *models.Order) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		guard := s.guard.WithTx(tx)

		affected, err := repo.UpdateStatus(ctx, orgID, order.ID, order.Status, enums.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		for _, l := range order.Lines {
			marked, err := repo.MarkLineRestocked(ctx, order.ID, l.ID)
			if err != nil {
				return err
			}
			if marked == 0 {
				continue
			}
			if err := guard.Restock(ctx, orgID, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}

		return repo.SetCancelledAt(ctx, order.ID, time.Now().UTC())
	})
}
