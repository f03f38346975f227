package clients

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

// Repository exposes persistence operations for org-owned clients.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a clients repository bound to the provided DB.
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

// Create inserts a new client.
func (r *Repository) Create(ctx context.Context, client *models.Client) (*models.Client, error) {
	if err := r.db.WithContext(ctx).Create(client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

// Update saves the provided client.
func (r *Repository) Update(ctx context.Context, client *models.Client) (*models.Client, error) {
	if err := r.db.WithContext(ctx).Save(client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

// FindByID returns a client restricted to the provided organization.
func (r *Repository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, err
	}
	return &client, nil
}

// List returns the organization's clients, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]models.Client, error) {
	var rows []models.Client
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a client owned by the organization.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.Client{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	return nil
}

// SetRemoteCustomerID stores the remote mirror key without touching other fields.
func (r *Repository) SetRemoteCustomerID(ctx context.Context, orgID, id uuid.UUID, remoteID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("remote_customer_id", remoteID).Error
}
