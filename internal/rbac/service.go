package rbac

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Authenticator verifies bearer tokens and API keys.
type Authenticator struct {
	secret    []byte
	keyHashes [][]byte
	now       func() time.Time
}

// NewAuthenticator builds an Authenticator. Empty hashes are ignored.
func NewAuthenticator(secret string, apiKeyHashes []string) *Authenticator {
	a := &Authenticator{secret: []byte(secret), now: time.Now}
	for _, h := range apiKeyHashes {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		a.keyHashes = append(a.keyHashes, []byte(h))
	}
	return a
}

// WithNow overrides the clock used for expiry checks.
func (a *Authenticator) WithNow(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

// VerifyToken parses an HS256 token and returns its actor.
func (a *Authenticator) VerifyToken(raw string) (shared.Actor, error) {
	if len(a.secret) == 0 {
		return shared.Actor{}, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errSigningMethod
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return shared.Actor{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return shared.Actor{}, ErrInvalidToken
	}
	return claims.actor(), nil
}

// VerifyAPIKey matches key against the configured bcrypt hashes. A matching
// key acts as the admin subject "api-key".
func (a *Authenticator) VerifyAPIKey(key string) (shared.Actor, error) {
	if key == "" {
		return shared.Actor{}, ErrInvalidAPIKey
	}
	for _, h := range a.keyHashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			return shared.Actor{Subject: "api-key", Capabilities: []string{shared.CapabilityAdmin}}, nil
		}
	}
	return shared.Actor{}, ErrInvalidAPIKey
}

// IssueToken signs a token for subject. Used by operator tooling and tests.
func (a *Authenticator) IssueToken(subject, role string, capabilities []string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Role:         role,
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// HashAPIKey returns the bcrypt hash stored in ADMIN_API_KEY_HASHES.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeCapabilities(caps []string) []string {
	seen := make(map[string]struct{}, len(caps))
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		c = strings.TrimSpace(strings.ToLower(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func hasAnyCapability(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, c := range granted {
		set[strings.ToLower(c)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
