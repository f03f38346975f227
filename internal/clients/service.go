package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/remotesync"
	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

type customerMirror interface {
	EnsureCustomer(ctx context.Context, client *models.Client) remotesync.SyncResult
	DeleteCustomer(ctx context.Context, client *models.Client) remotesync.SyncResult
}

// Service exposes client book operations.
type Service interface {
	Create(ctx context.Context, orgID uuid.UUID, input Input) (*models.Client, error)
	Update(ctx context.Context, orgID, id uuid.UUID, input Input) (*models.Client, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.Client, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

type service struct {
	repo   *Repository
	mirror customerMirror
}

// NewService builds the client book service. The mirror is required; wire a
// disabled adapter when no remote backend is configured.
func NewService(repo *Repository, mirror customerMirror) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("clients repository required")
	}
	if mirror == nil {
		return nil, fmt.Errorf("customer mirror required")
	}
	return &service{repo: repo, mirror: mirror}, nil
}

// Input is the client payload for create and update.
type Input struct {
	Name         string
	Email        string
	Phone        *string
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	Region       *string
	PostalCode   *string
	Country      *string
}

func (i Input) validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "client name is required")
	}
	email := strings.TrimSpace(i.Email)
	if email == "" || !strings.Contains(email, "@") {
		return pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	return nil
}

func (s *service) Create(ctx context.Context, orgID uuid.UUID, input Input) (*models.Client, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	client := &models.Client{
		OrganizationID: orgID,
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.TrimSpace(input.Email),
		Phone:          input.Phone,
		AddressLine1:   input.AddressLine1,
		AddressLine2:   input.AddressLine2,
		City:           input.City,
		Region:         input.Region,
		PostalCode:     input.PostalCode,
		Country:        input.Country,
	}
	created, err := s.repo.Create(ctx, client)
	if err != nil {
		return nil, err
	}

	s.syncRemote(ctx, created)
	return created, nil
}

func (s *service) Update(ctx context.Context, orgID, id uuid.UUID, input Input) (*models.Client, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	client, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	client.Name = strings.TrimSpace(input.Name)
	client.Email = strings.TrimSpace(input.Email)
	client.Phone = input.Phone
	client.AddressLine1 = input.AddressLine1
	client.AddressLine2 = input.AddressLine2
	client.City = input.City
	client.Region = input.Region
	client.PostalCode = input.PostalCode
	client.Country = input.Country

	updated, err := s.repo.Update(ctx, client)
	if err != nil {
		return nil, err
	}

	s.syncRemote(ctx, updated)
	return updated, nil
}

func (s *service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error) {
	return s.repo.FindByID(ctx, orgID, id)
}

func (s *service) List(ctx context.Context, orgID uuid.UUID) ([]models.Client, error) {
	return s.repo.List(ctx, orgID)
}

// Delete removes the client locally, then mirrors the delete to the remote
// customer book. Best-effort: a failed remote delete never resurrects the
// local row.
func (s *service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	client, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return err
	}
	s.mirror.DeleteCustomer(ctx, client)
	return nil
}

// syncRemote mirrors the client to the remote customer book. Best-effort: a
// failed sync leaves the local write intact.
func (s *service) syncRemote(ctx context.Context, client *models.Client) {
	result := s.mirror.EnsureCustomer(ctx, client)
	if !result.Success || result.RemoteID == "" {
		return
	}
	if client.RemoteCustomerID != nil && *client.RemoteCustomerID == result.RemoteID {
		return
	}
	if err := s.repo.SetRemoteCustomerID(ctx, client.OrganizationID, client.ID, result.RemoteID); err == nil {
		client.RemoteCustomerID = &result.RemoteID
	}
}
