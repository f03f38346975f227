package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartLine snapshots a product at add-to-cart time. Unit price and the
// product fields are frozen copies; catalog edits never rewrite them.
type CartLine struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID             uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_lines_cart_product"`
	ProductID          uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_lines_cart_product"`
	Quantity           int       `gorm:"column:quantity;not null"`
	UnitPriceCents     int       `gorm:"column:unit_price_cents;not null"`
	TotalPriceCents    int       `gorm:"column:total_price_cents;not null"`
	ProductName        string    `gorm:"column:product_name;not null"`
	ProductSKU         string    `gorm:"column:product_sku;not null"`
	ProductDescription *string   `gorm:"column:product_description"`
	RemoteLineID       *string   `gorm:"column:remote_line_id"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *CartLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
