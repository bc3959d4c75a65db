package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents an authenticated user account.
type User struct {
	ID                 int64
	Email              string
	Name               string
	PasswordHash       string
	Role               string
	Division           string
	SpendingLimitCents int64
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Claims carried inside access tokens. The principal attributes ride along
// so request handling does not need a store round-trip to rebuild them.
type Claims struct {
	Email              string `json:"email"`
	Role               string `json:"role"`
	Division           string `json:"division,omitempty"`
	SpendingLimitCents int64  `json:"spending_limit_cents"`
	jwt.RegisteredClaims
}
