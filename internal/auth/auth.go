// Package auth verifies bearer tokens and derives the caller's identity.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vibealong/vibealong/internal/models"
)

// Auth errors.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidRole     = errors.New("token role is not recognized")
	ErrNoSecret        = errors.New("jwt secret is not configured")
)

// Claims are the custom token claims.
type Claims struct {
	Role  models.Role `json:"role"`
	Email string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified caller.
type Identity struct {
	Subject       string      `json:"subject"`
	Email         string      `json:"email,omitempty"`
	Role          models.Role `json:"role"`
	Authenticated bool        `json:"authenticated"`
}

// Anonymous is the identity of a caller without a token.
var Anonymous = Identity{}

// Verifier checks HMAC-signed tokens.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier creates a Verifier. An empty issuer accepts any issuer.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Verify parses a raw token and returns the identity it carries.
func (v *Verifier) Verify(token string) (Identity, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithTimeFunc(v.now)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Anonymous, ErrTokenExpired
		}
		return Anonymous, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return Anonymous, ErrUnauthenticated
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Anonymous, fmt.Errorf("%w: subject missing", ErrUnauthenticated)
	}
	if claims.Role != models.RoleRequester && claims.Role != models.RoleProvider {
		return Anonymous, ErrInvalidRole
	}

	return Identity{Subject: subject, Email: claims.Email, Role: claims.Role, Authenticated: true}, nil
}

// VerifyHeader extracts a bearer token from an Authorization header value.
func (v *Verifier) VerifyHeader(header string) (Identity, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return Anonymous, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	return v.Verify(strings.TrimSpace(token))
}

// Issue signs a token for an identity. It backs the CLI's token command and
// tests; production tokens come from the auth provider.
func (v *Verifier) Issue(subject, email string, role models.Role, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// DashboardKind returns the listing board a role sees first: providers look
// for tasks, requesters look for freelancers.
func DashboardKind(role models.Role) models.ListingKind {
	if role == models.RoleProvider {
		return models.ListingKindTasks
	}
	return models.ListingKindFreelancers
}
