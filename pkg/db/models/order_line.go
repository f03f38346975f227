package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderLine captures the snapshot of each cart line at checkout.
type OrderLine struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string    `gorm:"column:product_name;not null"`
	ProductSKU      string    `gorm:"column:product_sku;not null"`
	Quantity        int       `gorm:"column:quantity;not null"`
	UnitPriceCents  int       `gorm:"column:unit_price_cents;not null"`
	TotalPriceCents int       `gorm:"column:total_price_cents;not null"`
	Restocked       bool      `gorm:"column:restocked;not null;default:false"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
