package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

// lowStockFactor flags lines where available stock is below twice the
// requested quantity.
const lowStockFactor = 2

// ShortageDetail is attached to shortage errors so clients can render
// per-product feedback.
type ShortageDetail struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// LineCheck is one product/quantity pair to inspect.
type LineCheck struct {
	ProductID uuid.UUID
	Quantity  int
}

// Issue is a blocking problem found during inspection.
type Issue struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Reason      string    `json:"reason"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// Warning is advisory only and never blocks checkout on its own.
type Warning struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Message     string    `json:"message"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// Report is the advisory validation result. OK means no blocking issues;
// the authoritative check still happens at commit time.
type Report struct {
	OK       bool      `json:"ok"`
	Issues   []Issue   `json:"issues"`
	Warnings []Warning `json:"warnings"`
}

const (
	IssueReasonInactive          = "product_inactive"
	IssueReasonInsufficientStock = "insufficient_stock"
	IssueReasonNotFound          = "product_not_found"
)

// Guard enforces stock invariants against the product catalog.
type Guard struct {
	db *gorm.DB
}

// NewGuard constructs a guard bound to the provided DB.
func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// WithTx binds the guard to a transaction.
func (g *Guard) WithTx(tx *gorm.DB) *Guard {
	if tx == nil {
		return g
	}
	return &Guard{db: tx}
}

// Check verifies the product is active and has at least qty on hand. It is a
// read-only precondition; callers still Decrement inside the commit
// transaction.
func (g *Guard) Check(ctx context.Context, orgID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	product, err := g.loadProduct(ctx, orgID, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product is not active")
	}
	if product.StockQuantity < qty {
		return shortageError(product, qty)
	}
	return nil
}

// Inspect runs the advisory validation over a set of lines. Results reflect
// a point-in-time read and may be stale by commit time.
func (g *Guard) Inspect(ctx context.Context, orgID uuid.UUID, lines []LineCheck) (*Report, error) {
	report := &Report{OK: true, Issues: []Issue{}, Warnings: []Warning{}}
	for _, line := range lines {
		product, err := g.loadProduct(ctx, orgID, line.ProductID)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				report.Issues = append(report.Issues, Issue{
					ProductID: line.ProductID,
					Reason:    IssueReasonNotFound,
					Requested: line.Quantity,
				})
				continue
			}
			return nil, err
		}
		switch {
		case !product.IsActive:
			report.Issues = append(report.Issues, Issue{
				ProductID:   product.ID,
				ProductName: product.Name,
				Reason:      IssueReasonInactive,
				Requested:   line.Quantity,
				Available:   product.StockQuantity,
			})
		case product.StockQuantity < line.Quantity:
			report.Issues = append(report.Issues, Issue{
				ProductID:   product.ID,
				ProductName: product.Name,
				Reason:      IssueReasonInsufficientStock,
				Requested:   line.Quantity,
				Available:   product.StockQuantity,
			})
		case product.StockQuantity < lowStockFactor*line.Quantity:
			report.Warnings = append(report.Warnings, Warning{
				ProductID:   product.ID,
				ProductName: product.Name,
				Message:     "stock is running low for this product",
				Requested:   line.Quantity,
				Available:   product.StockQuantity,
			})
		}
	}
	report.OK = len(report.Issues) == 0
	return report, nil
}

// Decrement performs the authoritative compare-and-decrement. Zero rows
// affected means the stock moved underneath us; the caller must treat that
// as a shortage, never as success.
func (g *Guard) Decrement(ctx context.Context, orgID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := g.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND organization_id = ? AND is_active = ? AND stock_quantity >= ?",
			productID, orgID, true, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		product, err := g.loadProduct(ctx, orgID, productID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is not active")
		}
		return shortageError(product, qty)
	}
	return nil
}

// Restock returns quantity to the catalog, compensating a decrement after a
// cancellation.
func (g *Guard) Restock(ctx context.Context, orgID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := g.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND organization_id = ?", productID, orgID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (g *Guard) loadProduct(ctx context.Context, orgID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := g.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", productID, orgID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

func shortageError(product *models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeShortage, "insufficient stock").WithDetails(ShortageDetail{
		ProductID:   product.ID,
		ProductName: product.Name,
		Requested:   requested,
		Available:   product.StockQuantity,
	})
}
