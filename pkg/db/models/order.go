package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

// Order is the immutable record produced by checkout. Customer fields are
// snapshots of the client at checkout time.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID   uuid.UUID         `gorm:"column:organization_id;type:uuid;not null;index"`
	ClientID         uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index"`
	CartID           uuid.UUID         `gorm:"column:cart_id;type:uuid;not null"`
	CustomerName     string            `gorm:"column:customer_name;not null"`
	CustomerEmail    string            `gorm:"column:customer_email;not null"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Currency         enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	TotalAmountCents int               `gorm:"column:total_amount_cents;not null"`
	RemoteOrderID    *string           `gorm:"column:remote_order_id"`
	Lines            []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CancelledAt      *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
