package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/pkg/db"
	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

// Service exposes catalog operations.
type Service interface {
	Create(ctx context.Context, orgID uuid.UUID, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, orgID, id uuid.UUID, input UpdateInput) (*models.Product, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, orgID uuid.UUID, activeOnly bool) ([]models.Product, error)
}

type service struct {
	repo *Repository
}

// NewService builds a catalog service backed by the provided repository.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

// CreateInput captures the payload for a new catalog entry.
type CreateInput struct {
	SKU           string
	Name          string
	Description   *string
	PriceCents    int
	Currency      enums.Currency
	StockQuantity int
	IsActive      *bool
}

// UpdateInput carries sparse catalog updates. Nil fields are left unchanged.
type UpdateInput struct {
	Name          *string
	Description   *string
	PriceCents    *int
	StockQuantity *int
	IsActive      *bool
}

func (s *service) Create(ctx context.Context, orgID uuid.UUID, input CreateInput) (*models.Product, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and name are required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	product := &models.Product{
		OrganizationID: orgID,
		SKU:            sku,
		Name:           name,
		Description:    input.Description,
		PriceCents:     input.PriceCents,
		Currency:       currency,
		StockQuantity:  input.StockQuantity,
		IsActive:       true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_products_org_sku") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists")
		}
		return nil, err
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, orgID, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		product.PriceCents = *input.PriceCents
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
		}
		product.StockQuantity = *input.StockQuantity
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	return s.repo.Update(ctx, product)
}

func (s *service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	return s.repo.FindByID(ctx, orgID, id)
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, activeOnly bool) ([]models.Product, error) {
	return s.repo.List(ctx, orgID, activeOnly)
}
