package tenants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

// Access is the resolved tenant context for one request.
type Access struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Role           enums.MemberRole
}

// CanManage reports whether the role may act on resources owned by other
// members (admin/manager).
func (a Access) CanManage() bool {
	return a.Role == enums.MemberRoleAdmin || a.Role == enums.MemberRoleManager
}

type organizationLoader interface {
	FindBySubdomain(ctx context.Context, subdomain string) (*models.Organization, error)
	FindMembership(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error)
}

// Service resolves request identity to a tenant-scoped access decision.
type Service interface {
	Resolve(ctx context.Context, subdomain string, userID uuid.UUID) (*Access, error)
}

type service struct {
	repo organizationLoader
}

// NewService builds the tenant resolver.
func NewService(repo organizationLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tenants repository required")
	}
	return &service{repo: repo}, nil
}

// Resolve validates the org exists and is active and the caller holds a
// membership in it.
func (s *service) Resolve(ctx context.Context, subdomain string, userID uuid.UUID) (*Access, error) {
	if strings.TrimSpace(subdomain) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization subdomain is required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required")
	}

	org, err := s.repo.FindBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	if !org.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization is deactivated")
	}

	membership, err := s.repo.FindMembership(ctx, org.ID, userID)
	if err != nil {
		return nil, err
	}

	return &Access{
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           membership.Role,
	}, nil
}
