package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/api/responses"
	"github.com/orderdesk/orderdesk-backend/internal/tenants"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

const orgSubdomainHeader = "X-Org-Subdomain"

// Organization resolves the tenant for the request and seeds the context
// with a scoped Access. The subdomain comes from the X-Org-Subdomain header,
// falling back to the leftmost host label.
func Organization(resolver tenants.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := uuid.Parse(UserIDFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required"))
				return
			}

			subdomain := resolveSubdomain(r)
			if subdomain == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "organization subdomain is required"))
				return
			}

			access, err := resolver.Resolve(r.Context(), subdomain, userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithAccess(r.Context(), *access)
			if logg != nil {
				ctx = logg.WithOrgID(ctx, access.OrganizationID.String())
				ctx = logg.WithActorRole(ctx, access.Role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveSubdomain(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(orgSubdomainHeader)); v != "" {
		return v
	}
	host := r.Host
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return ""
	}
	return parts[0]
}
