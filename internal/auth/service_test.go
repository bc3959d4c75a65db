package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/procurio-erp/procurio/internal/rbac"
	"github.com/procurio-erp/procurio/internal/shared"
)

type memoryRepo struct {
	users map[string]*User
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id int64) (*User, error) {
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, shared.ErrNotFound
}

func testUser(t *testing.T, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{
		ID:                 7,
		Email:              "buyer@procurio.test",
		Name:               "Test Buyer",
		PasswordHash:       string(hash),
		Role:               shared.RoleManager,
		Division:           "ops",
		SpendingLimitCents: 50000,
		IsActive:           true,
	}
}

func newTestService(t *testing.T, users ...*User) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &memoryRepo{users: map[string]*User{}}
	for _, u := range users {
		repo.users[u.Email] = u
	}
	tokens := NewTokenManager("test-secret", "procurio-test", time.Hour)
	return NewService(repo, tokens, NewRevocationStore(client)), mr
}

func TestAuthenticate(t *testing.T) {
	user := testUser(t, "correct-battery")
	svc, _ := newTestService(t, user)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		got, err := svc.Authenticate(ctx, user.Email, "correct-battery")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, user.Email, "wrong-password")
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody@procurio.test", "correct-battery")
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		frozen := testUser(t, "correct-battery")
		frozen.Email = "frozen@procurio.test"
		frozen.IsActive = false
		svc, _ := newTestService(t, frozen)
		_, err := svc.Authenticate(ctx, frozen.Email, "correct-battery")
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("test-secret", "procurio-test", time.Hour)
	user := testUser(t, "correct-battery")

	signed, issued, err := tokens.Issue(*user, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, shared.RoleManager, claims.Role)
	assert.Equal(t, int64(50000), claims.SpendingLimitCents)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestTokenParseFailures(t *testing.T) {
	tokens := NewTokenManager("test-secret", "procurio-test", time.Hour)
	user := testUser(t, "correct-battery")

	t.Run("expired", func(t *testing.T) {
		signed, _, err := tokens.Issue(*user, time.Now().Add(-2*time.Hour))
		require.NoError(t, err)
		_, err = tokens.Parse(signed)
		var unauth *rbac.UnauthenticatedError
		require.True(t, errors.As(err, &unauth))
		assert.Contains(t, unauth.Error(), "expired")
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("other-secret", "procurio-test", time.Hour)
		signed, _, err := other.Issue(*user, time.Now())
		require.NoError(t, err)
		_, err = tokens.Parse(signed)
		var unauth *rbac.UnauthenticatedError
		assert.True(t, errors.As(err, &unauth))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not-a-token")
		var unauth *rbac.UnauthenticatedError
		assert.True(t, errors.As(err, &unauth))
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	user := testUser(t, "correct-battery")
	svc, _ := newTestService(t, user)
	ctx := context.Background()

	signed, claims, err := svc.Login(ctx, user.Email, "correct-battery")
	require.NoError(t, err)

	principal, _, err := svc.Verify(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.ID)
	assert.Equal(t, user.Division, principal.Division)

	require.NoError(t, svc.Logout(ctx, claims))

	_, _, err = svc.Verify(ctx, signed)
	var unauth *rbac.UnauthenticatedError
	require.True(t, errors.As(err, &unauth))
	assert.Contains(t, unauth.Error(), "revoked")
}

func TestMiddlewareRequire(t *testing.T) {
	user := testUser(t, "correct-battery")
	svc, _ := newTestService(t, user)
	mw := &Middleware{Service: svc}

	var seen shared.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := shared.PrincipalFromContext(r.Context())
		require.True(t, ok)
		seen = principal
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.Require(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		mw.Require(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		signed, _, err := svc.Login(context.Background(), user.Email, "correct-battery")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		mw.Require(next).ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.ID, seen.ID)
		assert.Equal(t, shared.RoleManager, seen.Role)
	})
}
