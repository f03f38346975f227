package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/internal/inventory"
	"github.com/orderdesk/orderdesk-backend/internal/remotesync"
	"github.com/orderdesk/orderdesk-backend/internal/tenants"
	"github.com/orderdesk/orderdesk-backend/pkg/db"
	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

// DefaultTTL is how long a cart stays open before expiring.
const DefaultTTL = 7 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error)
}

type clientLoader interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error)
}

type stockGuard interface {
	WithTx(tx *gorm.DB) *inventory.Guard
	Check(ctx context.Context, orgID, productID uuid.UUID, qty int) error
}

type cartMirror interface {
	EnsureCustomer(ctx context.Context, client *models.Client) remotesync.SyncResult
	MirrorCartCreate(ctx context.Context, cart *models.Cart, remoteCustomerID string) remotesync.SyncResult
	MirrorCartLines(ctx context.Context, cart *models.Cart, removedRemoteLineIDs []string) remotesync.SyncResult
	PullCartTotals(ctx context.Context, remoteCartID string) (*remotesync.RemoteTotals, remotesync.SyncResult)
}

// Service exposes the cart lifecycle.
type Service interface {
	Create(ctx context.Context, access tenants.Access, input CreateInput) (*models.Cart, bool, error)
	Get(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*models.Cart, error)
	AddLine(ctx context.Context, access tenants.Access, cartID uuid.UUID, input LineInput) (*models.Cart, error)
	UpdateLine(ctx context.Context, access tenants.Access, cartID, lineID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveLine(ctx context.Context, access tenants.Access, cartID, lineID uuid.UUID) (*models.Cart, error)
	Abandon(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	products productLoader
	clients  clientLoader
	guard    stockGuard
	mirror   cartMirror
	ttl      time.Duration
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, products productLoader, clients clientLoader, guard stockGuard, mirror cartMirror, ttl time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if clients == nil {
		return nil, fmt.Errorf("client loader required")
	}
	if guard == nil {
		return nil, fmt.Errorf("inventory guard required")
	}
	if mirror == nil {
		return nil, fmt.Errorf("remote mirror required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		clients:  clients,
		guard:    guard,
		mirror:   mirror,
		ttl:      ttl,
	}, nil
}

// CreateInput captures the payload to open a cart for a client.
type CreateInput struct {
	ClientID uuid.UUID
	Currency enums.Currency
}

// LineInput is a product/quantity pair to merge into the cart.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// Create returns the caller's existing active cart for the client when one
// exists; otherwise a fresh cart is opened. The second return reports
// whether a new cart was created.
func (s *service) Create(ctx context.Context, access tenants.Access, input CreateInput) (*models.Cart, bool, error) {
	if input.ClientID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	client, err := s.clients.FindByID(ctx, access.OrganizationID, input.ClientID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.FindActiveByOwner(ctx, access.OrganizationID, input.ClientID, access.UserID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && !s.expired(existing) {
		return existing, false, nil
	}
	if existing != nil {
		// Expired active cart: retire it before opening a replacement.
		if _, err := s.repo.UpdateStatus(ctx, access.OrganizationID, existing.ID, enums.CartStatusActive, enums.CartStatusAbandoned); err != nil {
			return nil, false, err
		}
	}

	cart := &models.Cart{
		OrganizationID: access.OrganizationID,
		ClientID:       input.ClientID,
		UserID:         access.UserID,
		Status:         enums.CartStatusActive,
		Currency:       currency,
		ExpiresAt:      time.Now().UTC().Add(s.ttl),
	}
	created, err := s.repo.Create(ctx, cart)
	if err != nil {
		// Concurrent create for the same owner: surface the winner.
		if db.IsUniqueViolation(err, "idx_carts_one_active_per_owner") {
			if winner, ferr := s.repo.FindActiveByOwner(ctx, access.OrganizationID, input.ClientID, access.UserID); ferr == nil && winner != nil {
				return winner, false, nil
			}
		}
		return nil, false, err
	}

	s.mirrorCreate(ctx, created, client)
	return created, true, nil
}

func (s *service) Get(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, access.OrganizationID, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(access, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddLine merges a product into the cart. A repeat add for the same product
// increments the existing line in a single statement; the snapshot price
// from the first add stays frozen.
func (s *service) AddLine(ctx context.Context, access tenants.Access, cartID uuid.UUID, input LineInput) (*models.Cart, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	cart, err := s.mutableCart(ctx, access, cartID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, access.OrganizationID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not active")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		affected, err := repo.IncrementLine(ctx, cart.ID, input.ProductID, input.Quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			line := &models.CartLine{
				CartID:             cart.ID,
				ProductID:          product.ID,
				Quantity:           input.Quantity,
				UnitPriceCents:     product.PriceCents,
				TotalPriceCents:    product.PriceCents * input.Quantity,
				ProductName:        product.Name,
				ProductSKU:         product.SKU,
				ProductDescription: product.Description,
			}
			if err := repo.InsertLine(ctx, line); err != nil {
				// Lost the insert race: fall back to the increment.
				if db.IsUniqueViolation(err, "idx_cart_lines_cart_product") {
					if _, rerr := repo.IncrementLine(ctx, cart.ID, input.ProductID, input.Quantity); rerr != nil {
						return rerr
					}
				} else {
					return err
				}
			}
		}

		merged, err := repo.FindLineByProduct(ctx, cart.ID, input.ProductID)
		if err != nil {
			return err
		}
		if merged == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "cart line vanished during merge")
		}
		if err := s.guard.WithTx(tx).Check(ctx, access.OrganizationID, input.ProductID, merged.Quantity); err != nil {
			return err
		}

		return repo.RecomputeTotals(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.afterMutation(ctx, access, cart.ID, nil)
}

// UpdateLine overwrites a line's quantity. Zero removes the line.
func (s *service) UpdateLine(ctx context.Context, access tenants.Access, cartID, lineID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if quantity == 0 {
		return s.RemoveLine(ctx, access, cartID, lineID)
	}

	cart, err := s.mutableCart(ctx, access, cartID)
	if err != nil {
		return nil, err
	}
	line, err := s.repo.FindLine(ctx, cart.ID, lineID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := s.guard.WithTx(tx).Check(ctx, access.OrganizationID, line.ProductID, quantity); err != nil {
			return err
		}
		affected, err := repo.SetLineQuantity(ctx, cart.ID, lineID, quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return repo.RecomputeTotals(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.afterMutation(ctx, access, cart.ID, nil)
}

// RemoveLine deletes a line keyed on (line id, cart id).
func (s *service) RemoveLine(ctx context.Context, access tenants.Access, cartID, lineID uuid.UUID) (*models.Cart, error) {
	cart, err := s.mutableCart(ctx, access, cartID)
	if err != nil {
		return nil, err
	}
	line, err := s.repo.FindLine(ctx, cart.ID, lineID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.DeleteLine(ctx, cart.ID, lineID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return repo.RecomputeTotals(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	var removed []string
	if line.RemoteLineID != nil && *line.RemoteLineID != "" {
		removed = append(removed, *line.RemoteLineID)
	} else {
		removed = append(removed, line.ID.String())
	}
	return s.afterMutation(ctx, access, cart.ID, removed)
}

// Abandon is a guarded status flip. The cart and its lines stay on record.
func (s *service) Abandon(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, access.OrganizationID, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(access, cart); err != nil {
		return nil, err
	}

	affected, err := s.repo.UpdateStatus(ctx, access.OrganizationID, cartID, enums.CartStatusActive, enums.CartStatusAbandoned)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not active")
	}
	return s.repo.FindByID(ctx, access.OrganizationID, cartID)
}

func (s *service) authorize(access tenants.Access, cart *models.Cart) error {
	if cart.UserID == access.UserID || access.CanManage() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another user")
}

func (s *service) mutableCart(ctx context.Context, access tenants.Access, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, access.OrganizationID, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(access, cart); err != nil {
		return nil, err
	}
	if cart.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not active")
	}
	if s.expired(cart) {
		_, _ = s.repo.UpdateStatus(ctx, access.OrganizationID, cart.ID, enums.CartStatusActive, enums.CartStatusAbandoned)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart has expired")
	}
	return cart, nil
}

func (s *service) expired(cart *models.Cart) bool {
	return !cart.ExpiresAt.IsZero() && time.Now().UTC().After(cart.ExpiresAt)
}

// afterMutation reloads the cart, mirrors the line set best-effort, and
// adopts remote totals when the mirror exists. Local state is already
// committed; nothing here can fail the request.
func (s *service) afterMutation(ctx context.Context, access tenants.Access, cartID uuid.UUID, removedRemoteLineIDs []string) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, access.OrganizationID, cartID)
	if err != nil {
		return nil, err
	}
	if cart.RemoteCartID == nil || *cart.RemoteCartID == "" {
		return cart, nil
	}

	if result := s.mirror.MirrorCartLines(ctx, cart, removedRemoteLineIDs); !result.Success {
		return cart, nil
	}
	s.recordRemoteLineIDs(ctx, cart)
	totals, result := s.mirror.PullCartTotals(ctx, *cart.RemoteCartID)
	if !result.Success || totals == nil {
		return cart, nil
	}
	if err := s.repo.SetTotals(ctx, cart.ID, totals.TotalAmountCents, totals.ItemCount); err != nil {
		return cart, nil
	}
	cart.TotalAmountCents = totals.TotalAmountCents
	cart.ItemCount = totals.ItemCount
	return cart, nil
}

// recordRemoteLineIDs persists the remote line UID for lines pushed on this
// sync. Lines are mirrored under their local id, so the UID is known without
// reading the remote order back.
func (s *service) recordRemoteLineIDs(ctx context.Context, cart *models.Cart) {
	for i := range cart.Lines {
		line := &cart.Lines[i]
		if line.RemoteLineID != nil && *line.RemoteLineID != "" {
			continue
		}
		uid := line.ID.String()
		if err := s.repo.SetLineRemoteID(ctx, line.ID, uid); err == nil {
			line.RemoteLineID = &uid
		}
	}
}

// mirrorCreate opens the remote draft order for a fresh cart, storing the
// mirror keys when the remote call lands.
func (s *service) mirrorCreate(ctx context.Context, cart *models.Cart, client *models.Client) {
	customer := s.mirror.EnsureCustomer(ctx, client)
	result := s.mirror.MirrorCartCreate(ctx, cart, customer.RemoteID)
	if !result.Success || result.RemoteID == "" {
		return
	}
	if err := s.repo.SetRemoteCartID(ctx, cart.ID, result.RemoteID); err == nil {
		cart.RemoteCartID = &result.RemoteID
	}
}
