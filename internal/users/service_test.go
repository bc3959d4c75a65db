package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/procurio-erp/procurio/internal/shared"
)

type memoryRepo struct {
	nextID  int64
	users   map[int64]User
	deleted map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, users: map[int64]User{}, deleted: map[int64]bool{}}
}

func (r *memoryRepo) List(_ context.Context, filters ListFilters) ([]User, shared.Pagination, error) {
	var out []User
	for id, user := range r.users {
		if r.deleted[id] {
			continue
		}
		if filters.Role != "" && user.Role != filters.Role {
			continue
		}
		out = append(out, user)
	}
	return out, shared.NewPagination(filters.Page, filters.PerPage, len(out)), nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (User, error) {
	user, ok := r.users[id]
	if !ok || r.deleted[id] {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepo) Create(_ context.Context, user User) (User, error) {
	for id, existing := range r.users {
		if !r.deleted[id] && existing.Email == user.Email {
			return User{}, ErrDuplicateEmail
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryRepo) Update(_ context.Context, user User) (User, error) {
	current, ok := r.users[user.ID]
	if !ok || r.deleted[user.ID] {
		return User{}, ErrNotFound
	}
	user.PasswordHash = current.PasswordHash
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	user, ok := r.users[id]
	if !ok || r.deleted[id] {
		return ErrNotFound
	}
	user.PasswordHash = hash
	r.users[id] = user
	return nil
}

func (r *memoryRepo) SoftDelete(_ context.Context, id int64) error {
	if _, ok := r.users[id]; !ok || r.deleted[id] {
		return ErrNotFound
	}
	r.deleted[id] = true
	return nil
}

type stubRoles struct {
	roles map[int64][]int64
}

func (s *stubRoles) UserRoleIDs(_ context.Context, userID int64) ([]int64, error) {
	return s.roles[userID], nil
}

func (s *stubRoles) SetUserRoles(_ context.Context, userID int64, roleIDs []int64) error {
	if s.roles == nil {
		s.roles = map[int64][]int64{}
	}
	s.roles[userID] = roleIDs
	return nil
}

func validInput() CreateInput {
	return CreateInput{
		Email:              "Buyer@Procurio.Test",
		Name:               "Test Buyer",
		Password:           "swordfish-42",
		Role:               shared.RoleManager,
		Division:           "ops",
		SpendingLimitCents: 50000,
	}
}

func TestCreateUser(t *testing.T) {
	svc := NewService(newMemoryRepo(), &stubRoles{}, nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "buyer@procurio.test", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "swordfish-42", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("swordfish-42")))

	_, err = svc.Create(ctx, validInput())
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), &stubRoles{}, nil)
	ctx := context.Background()

	in := validInput()
	in.Role = "superuser"
	_, err := svc.Create(ctx, in)
	assert.ErrorIs(t, err, shared.ErrValidation)

	in = validInput()
	in.SpendingLimitCents = -1
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, shared.ErrValidation)

	in = validInput()
	in.Password = "short"
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSoftDeleteFreesEmail(t *testing.T) {
	svc := NewService(newMemoryRepo(), &stubRoles{}, nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, user.ID))

	// The deleted row no longer blocks the email.
	again, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotEqual(t, user.ID, again.ID)

	_, _, err = svc.Get(ctx, user.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, user.ID), shared.ErrNotFound)
}

func TestSetRoles(t *testing.T) {
	roles := &stubRoles{}
	svc := NewService(newMemoryRepo(), roles, nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.SetRoles(ctx, user.ID, []int64{2, 5}))
	assert.Equal(t, []int64{2, 5}, roles.roles[user.ID])

	err = svc.SetRoles(ctx, 999, []int64{1})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListRejectsUnknownRoleFilter(t *testing.T) {
	svc := NewService(newMemoryRepo(), &stubRoles{}, nil)
	_, _, err := svc.List(context.Background(), ListFilters{Role: "root"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
