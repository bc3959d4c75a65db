package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/procurio-erp/procurio/internal/rbac"
	"github.com/procurio-erp/procurio/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	tokens  *TokenManager
	revoked *RevocationStore
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager, revoked *RevocationStore) *Service {
	return &Service{repo: repo, tokens: tokens, revoked: revoked}
}

// Authenticate validates email/password credentials. Inactive and deleted
// accounts fail identically to a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, Claims, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", Claims{}, err
	}
	return s.tokens.Issue(*user, time.Now())
}

// Logout revokes the presented token for the remainder of its lifetime.
func (s *Service) Logout(ctx context.Context, claims Claims) error {
	if s.revoked == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Verify parses the token, checks revocation and rebuilds the principal.
func (s *Service) Verify(ctx context.Context, raw string) (shared.Principal, Claims, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return shared.Principal{}, Claims{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return shared.Principal{}, Claims{}, err
	}
	if s.revoked != nil {
		dead, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return shared.Principal{}, Claims{}, err
		}
		if dead {
			return shared.Principal{}, Claims{}, &rbac.UnauthenticatedError{Detail: "token revoked"}
		}
	}
	return shared.Principal{
		ID:                 userID,
		Email:              claims.Email,
		Role:               claims.Role,
		Division:           claims.Division,
		SpendingLimitCents: claims.SpendingLimitCents,
	}, claims, nil
}

// CurrentUser loads the account behind a principal from the store.
func (s *Service) CurrentUser(ctx context.Context, principalID int64) (*User, error) {
	return s.repo.FindByID(ctx, principalID)
}
