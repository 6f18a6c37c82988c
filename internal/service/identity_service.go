package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/tryout-backend/internal/model"
)

// ErrInvalidIdentity is returned for tokens without a usable user id or role.
var ErrInvalidIdentity = errors.New("token does not carry a valid identity")

// Claims extends JWT standard claims with the viewer identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role"`
}

// Identity returns the {userId, role} pair carried by the claims.
func (c *Claims) Identity() model.Identity {
	return model.Identity{UserID: c.UserID, Role: c.Role}
}

// IdentityService verifies bearer tokens issued by the identity provider.
type IdentityService struct {
	secret []byte
	expiry time.Duration
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(secret string, expiry time.Duration) *IdentityService {
	return &IdentityService{secret: []byte(secret), expiry: expiry}
}

// GenerateToken signs a token for the identity. Used by tryoutctl and tests.
func (s *IdentityService) GenerateToken(ident model.Identity) (string, error) {
	if err := validIdentity(ident); err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   ident.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		UserID: ident.UserID,
		Role:   ident.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *IdentityService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if err := validIdentity(claims.Identity()); err != nil {
		return nil, err
	}
	return claims, nil
}

func validIdentity(ident model.Identity) error {
	if ident.UserID == "" {
		return ErrInvalidIdentity
	}
	switch ident.Role {
	case model.RoleAdmin, model.RoleTeacher, model.RoleUser:
		return nil
	}
	return fmt.Errorf("%w: unknown role %q", ErrInvalidIdentity, ident.Role)
}
