package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

// Repository exposes persistence operations for orders.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts an order together with its lines.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID returns an order restricted to the provided organization.
func (r *Repository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return &order, nil
}

// List returns the organization's orders, newest first, optionally filtered
// by status.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, status *enums.OrderStatus) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Where("organization_id = ?", orgID).
		Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus flips order status guarded by the expected current status.
// Zero rows affected means the order moved concurrently.
func (r *Repository) UpdateStatus(ctx context.Context, orgID, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND organization_id = ? AND status = ?", orderID, orgID, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

// SetCancelledAt stamps the cancellation time.
func (r *Repository) SetCancelledAt(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("cancelled_at", at).Error
}

// MarkLineRestocked records that a line's quantity was returned to stock.
// The guard keeps the compensation from running twice for the same line.
func (r *Repository) MarkLineRestocked(ctx context.Context, orderID, lineID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ? AND order_id = ? AND restocked = ?", lineID, orderID, false).
		Update("restocked", true)
	return res.RowsAffected, res.Error
}

// SetRemoteOrderID stores the remote settlement key for the order.
func (r *Repository) SetRemoteOrderID(ctx context.Context, orderID uuid.UUID, remoteID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("remote_order_id", remoteID).Error
}
