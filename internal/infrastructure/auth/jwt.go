package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shiphub/backend/internal/infrastructure/config"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	// TokenTypeAccess is issued by the identity service to signed-in users
	TokenTypeAccess TokenType = "access"
	// TokenTypeLabel authorizes the label script to act for one order
	TokenTypeLabel TokenType = "label"
)

// RoleOperator grants the cross-user operations, such as the all-users
// shipping sweep
const RoleOperator = "operator"

// DefaultLabelTokenTTL bounds how long a label job may take
const DefaultLabelTokenTTL = 10 * time.Minute

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user_id in claims")
)

// Claims represents custom JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID    string    `json:"user_id"`
	OrderID   string    `json:"order_id,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	TokenType TokenType `json:"token_type"`
}

// JWTService validates user access tokens and mints label tokens.
// Both share the HMAC secret of the identity service.
type JWTService struct {
	secret   []byte
	issuer   string
	labelTTL time.Duration
	now      func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		labelTTL: DefaultLabelTokenTTL,
		now:      time.Now,
	}
}

// GenerateAccessToken signs an access token for userID carrying roles.
// User tokens normally come from the identity service; syncctl mints them
// for operators.
func (s *JWTService) GenerateAccessToken(userID uuid.UUID, ttl time.Duration, roles ...string) (string, error) {
	claims := s.newClaims(userID, ttl, TokenTypeAccess)
	claims.Roles = roles
	return s.sign(claims)
}

// IssueLabelToken signs a short-lived token scoped to one order
func (s *JWTService) IssueLabelToken(userID, orderID uuid.UUID) (string, error) {
	claims := s.newClaims(userID, s.labelTTL, TokenTypeLabel)
	claims.OrderID = orderID.String()
	return s.sign(claims)
}

func (s *JWTService) newClaims(userID uuid.UUID, ttl time.Duration, typ TokenType) *Claims {
	now := s.now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:    userID.String(),
		TokenType: typ,
	}
}

func (s *JWTService) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, TokenTypeAccess)
}

func (s *JWTService) validateToken(tokenString string, expectedType TokenType) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != expectedType {
		return nil, ErrInvalidTokenType
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// GetUserUUID extracts and parses the user ID from claims
func (c *Claims) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// HasRole reports whether the claims carry role
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}
