package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/procurio-erp/procurio/internal/rbac"
)

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(secret string, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue builds a signed token for the user. The JWT ID makes individual
// tokens revocable.
func (m *TokenManager) Issue(user User, now time.Time) (string, Claims, error) {
	claims := Claims{
		Email:              user.Email,
		Role:               user.Role,
		Division:           user.Division,
		SpendingLimitCents: user.SpendingLimitCents,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies the signature and standard claims. Any failure, including
// expiry, surfaces as an unauthenticated outcome.
func (m *TokenManager) Parse(raw string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, &rbac.UnauthenticatedError{Detail: "token expired"}
		}
		return Claims{}, &rbac.UnauthenticatedError{Detail: "invalid token"}
	}
	if !token.Valid {
		return Claims{}, &rbac.UnauthenticatedError{Detail: "invalid token"}
	}
	return claims, nil
}

// UserID extracts the numeric subject.
func (c Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, &rbac.UnauthenticatedError{Detail: "invalid subject"}
	}
	return id, nil
}
