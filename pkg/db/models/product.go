package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

// Product is the org-owned catalog entry. StockQuantity is the
// authoritative inventory count and never goes negative.
type Product struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID  uuid.UUID      `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_products_org_sku"`
	SKU             string         `gorm:"column:sku;type:text;not null;uniqueIndex:idx_products_org_sku"`
	Name            string         `gorm:"column:name;not null"`
	Description     *string        `gorm:"column:description"`
	PriceCents      int            `gorm:"column:price_cents;not null;default:0"`
	Currency        enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	StockQuantity   int            `gorm:"column:stock_quantity;not null;default:0"`
	IsActive        bool           `gorm:"column:is_active;not null;default:true"`
	RemoteProductID *string        `gorm:"column:remote_product_id"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
