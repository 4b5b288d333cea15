package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the identity snapshot embedded in an access token. Its fields
// mirror the user record at the moment the token was issued, so downstream
// services can authorize without a user lookup.
type Principal struct {
	UserID          string `json:"sub"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	FirstName       string `json:"firstname"`
	LastName        string `json:"lastname"`
	ProfileComplete bool   `json:"profileComplete"`
	EmailVerified   bool   `json:"emailVerified"`
	Status          string `json:"status"`
	IsActive        bool   `json:"isActive"`
	Provider        string `json:"provider,omitempty"`
}

// Claims represents the JWT claims for an access token.
type Claims struct {
	Email           string `json:"email"`
	Role            string `json:"role"`
	FirstName       string `json:"firstname"`
	LastName        string `json:"lastname"`
	ProfileComplete bool   `json:"profileComplete"`
	EmailVerified   bool   `json:"emailVerified"`
	Status          string `json:"status"`
	IsActive        bool   `json:"isActive"`
	Provider        string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims back into a Principal. The user ID comes from
// the registered Subject claim.
func (c *Claims) Principal() *Principal {
	return &Principal{
		UserID:          c.Subject,
		Email:           c.Email,
		Role:            c.Role,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		ProfileComplete: c.ProfileComplete,
		EmailVerified:   c.EmailVerified,
		Status:          c.Status,
		IsActive:        c.IsActive,
		Provider:        c.Provider,
	}
}

// JWTManager signs and validates access tokens. Refresh tokens are opaque and
// handled separately; only access tokens are JWTs.
type JWTManager struct {
	secret       []byte
	accessExpiry time.Duration
}

// NewJWTManager creates a new JWT manager with the given secret and access
// token expiry.
func NewJWTManager(secret string, accessExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
	}
}

// GenerateAccessToken creates a signed JWT access token carrying the principal.
func (m *JWTManager) GenerateAccessToken(p *Principal) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Email:           p.Email,
		Role:            p.Role,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		ProfileComplete: p.ProfileComplete,
		EmailVerified:   p.EmailVerified,
		Status:          p.Status,
		IsActive:        p.IsActive,
		Provider:        p.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
			Issuer:    "auth-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signedToken, nil
}

// ValidateAccessToken parses and validates an access token, returning the claims.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}

	return claims, nil
}
