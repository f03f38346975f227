package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

// Cart is a draft order for a client. TotalAmountCents and ItemCount are
// derived from the line set and only written by the totals recompute or a
// remote totals pull-back.
type Cart struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID   uuid.UUID        `gorm:"column:organization_id;type:uuid;not null;index:idx_carts_org_client_user"`
	ClientID         uuid.UUID        `gorm:"column:client_id;type:uuid;not null;index:idx_carts_org_client_user"`
	UserID           uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index:idx_carts_org_client_user"`
	Status           enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Currency         enums.Currency   `gorm:"column:currency;type:text;not null;default:'USD'"`
	TotalAmountCents int              `gorm:"column:total_amount_cents;not null;default:0"`
	ItemCount        int              `gorm:"column:item_count;not null;default:0"`
	RemoteCartID     *string          `gorm:"column:remote_cart_id"`
	ExpiresAt        time.Time        `gorm:"column:expires_at;not null"`
	Lines            []CartLine       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
