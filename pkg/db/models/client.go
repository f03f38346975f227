package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is an org-owned B2B customer that orders are placed on behalf of.
type Client struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID   uuid.UUID `gorm:"column:organization_id;type:uuid;not null;index"`
	Name             string    `gorm:"column:name;not null"`
	Email            string    `gorm:"column:email;type:text;not null"`
	Phone            *string   `gorm:"column:phone"`
	AddressLine1     *string   `gorm:"column:address_line1"`
	AddressLine2     *string   `gorm:"column:address_line2"`
	City             *string   `gorm:"column:city"`
	Region           *string   `gorm:"column:region"`
	PostalCode       *string   `gorm:"column:postal_code"`
	Country          *string   `gorm:"column:country"`
	RemoteCustomerID *string   `gorm:"column:remote_customer_id"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
