// Package rbac gates the API behind the admin capability.
package rbac

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// RoleAdmin is the role claim that implies every capability.
const RoleAdmin = "admin"

var (
	// ErrMissingCredentials indicates neither a bearer token nor an API key was sent.
	ErrMissingCredentials = fmt.Errorf("rbac: credentials required: %w", shared.ErrUnauthorized)
	// ErrInvalidToken indicates a malformed, expired or wrongly signed token.
	ErrInvalidToken = fmt.Errorf("rbac: invalid token: %w", shared.ErrUnauthorized)
	// ErrInvalidAPIKey indicates an API key that matches no configured hash.
	ErrInvalidAPIKey = fmt.Errorf("rbac: invalid api key: %w", shared.ErrUnauthorized)
	// ErrMissingCapability indicates an authenticated caller without the required capability.
	ErrMissingCapability = fmt.Errorf("rbac: missing capability: %w", shared.ErrForbidden)

	errSigningMethod = errors.New("unexpected signing method")
)

// Claims are the token claims the gate reads. Issuance happens elsewhere.
type Claims struct {
	Role         string   `json:"role,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) actor() shared.Actor {
	caps := normalizeCapabilities(c.Capabilities)
	if c.Role == RoleAdmin && !hasAnyCapability(caps, []string{shared.CapabilityAdmin}) {
		caps = append(caps, shared.CapabilityAdmin)
	}
	return shared.Actor{Subject: c.Subject, Capabilities: caps}
}
