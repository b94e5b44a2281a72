// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated caller's identity.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access user information without depending on Gin.
type Identity interface {
	// UserID returns the authenticated user's ID.
	UserID() uuid.UUID
	// TenantID returns the tenant the caller belongs to. Every repository
	// read and write is scoped to this value.
	TenantID() uuid.UUID
	// Roles returns the user's assigned roles.
	Roles() []string
	// HasRole checks if the user has a specific role.
	HasRole(role string) bool
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	tenantID      uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID   { return i.userID }
func (i *identity) TenantID() uuid.UUID { return i.tenantID }
func (i *identity) Roles() []string     { return i.roles }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the caller identity from the gin context. The second
// return value is false when the auth middleware did not run or rejected
// the request.
func GetIdentity(c *gin.Context) (Identity, bool) {
	userValue, ok := c.Get(ContextUserIDKey)
	if !ok {
		return nil, false
	}
	userID, ok := userValue.(uuid.UUID)
	if !ok {
		return nil, false
	}

	tenantValue, ok := c.Get(ContextTenantIDKey)
	if !ok {
		return nil, false
	}
	tenantID, ok := tenantValue.(uuid.UUID)
	if !ok {
		return nil, false
	}

	roles := make([]string, 0)
	if rolesValue, ok := c.Get(ContextRolesKey); ok {
		if list, ok := rolesValue.([]string); ok {
			roles = list
		}
	}

	return &identity{
		userID:        userID,
		tenantID:      tenantID,
		roles:         roles,
		authenticated: true,
	}, true
}

// MustIdentity extracts the identity or aborts with 401. Handlers behind the
// auth middleware can call this without re-checking ok.
func MustIdentity(c *gin.Context) (Identity, bool) {
	id, ok := GetIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return id, true
}
