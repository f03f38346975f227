package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
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

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// FindActiveByOwner loads the active cart for (org, client, user) if one exists.
func (r *Repository) FindActiveByOwner(ctx context.Context, orgID, clientID, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("organization_id = ? AND client_id = ? AND user_id = ? AND status = ?",
			orgID, clientID, userID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// FindByID returns a cart restricted to the provided organization.
func (r *Repository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, err
	}
	return &cart, nil
}

// FindLine returns a line scoped to its cart.
func (r *Repository) FindLine(ctx context.Context, cartID, lineID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, err
	}
	return &line, nil
}

// FindLineByProduct returns the cart's line for a product, nil when absent.
func (r *Repository) FindLineByProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

// InsertLine creates a new cart line.
func (r *Repository) InsertLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// IncrementLine merges quantity into an existing line at the store level.
// The line total is recomputed from the frozen unit price in the same
// statement, so two concurrent adds both land. Returns rows affected; zero
// means no line exists for the product yet.
func (r *Repository) IncrementLine(ctx context.Context, cartID, productID uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE cart_lines
		    SET quantity = quantity + ?,
		        total_price_cents = unit_price_cents * (quantity + ?)
		  WHERE cart_id = ? AND product_id = ?`,
		qty, qty, cartID, productID)
	return res.RowsAffected, res.Error
}

// SetLineQuantity overwrites a line's quantity, recomputing its total from
// the frozen unit price.
func (r *Repository) SetLineQuantity(ctx context.Context, cartID, lineID uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE cart_lines
		    SET quantity = ?,
		        total_price_cents = unit_price_cents * ?
		  WHERE id = ? AND cart_id = ?`,
		qty, qty, lineID, cartID)
	return res.RowsAffected, res.Error
}

// DeleteLine removes a line keyed on (line id, cart id).
func (r *Repository) DeleteLine(ctx context.Context, cartID, lineID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

// RecomputeTotals derives cart totals from the line set in one statement.
// The status guard keeps completed/abandoned carts frozen; this is the only
// local writer of cart money fields.
func (r *Repository) RecomputeTotals(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE carts
		    SET total_amount_cents = COALESCE((SELECT SUM(total_price_cents) FROM cart_lines WHERE cart_id = carts.id), 0),
		        item_count = COALESCE((SELECT SUM(quantity) FROM cart_lines WHERE cart_id = carts.id), 0)
		  WHERE id = ? AND status = ?`,
		cartID, enums.CartStatusActive).Error
}

// SetTotals overwrites derived totals with remote authoritative figures.
func (r *Repository) SetTotals(ctx context.Context, cartID uuid.UUID, totalCents, itemCount int) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Updates(map[string]any{
			"total_amount_cents": totalCents,
			"item_count":         itemCount,
		}).Error
}

// UpdateStatus flips cart status guarded by the expected current status.
// Zero rows affected means the cart moved concurrently.
func (r *Repository) UpdateStatus(ctx context.Context, orgID, cartID uuid.UUID, from, to enums.CartStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND organization_id = ? AND status = ?", cartID, orgID, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

// SetRemoteCartID stores the remote mirror key for the cart.
func (r *Repository) SetRemoteCartID(ctx context.Context, cartID uuid.UUID, remoteID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("remote_cart_id", remoteID).Error
}

// SetLineRemoteID stores the remote mirror key for a line.
func (r *Repository) SetLineRemoteID(ctx context.Context, lineID uuid.UUID, remoteID string) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("remote_line_id", remoteID).Error
}
