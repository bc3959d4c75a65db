package users

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurio-erp/procurio/internal/shared"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ListFilters narrows user listings.
type ListFilters struct {
	Role     string
	Division string
	Search   string
	Page     int
	PerPage  int
}

// PGRepository persists users in PostgreSQL with soft deletes.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, name, password_hash, role, division, spending_limit_cents, is_active, created_at, updated_at`

// List returns live users matching the filters plus pagination metadata.
func (r *PGRepository) List(ctx context.Context, filters ListFilters) ([]User, shared.Pagination, error) {
	base := psql.Select(userColumns).From("users").Where("deleted_at IS NULL")
	if filters.Role != "" {
		base = base.Where(sq.Eq{"role": filters.Role})
	}
	if filters.Division != "" {
		base = base.Where(sq.Eq{"division": filters.Division})
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		base = base.Where(sq.Or{sq.ILike{"email": like}, sq.ILike{"name": like}})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").FromSelect(base, "u").ToSql()
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}

	pagination := shared.NewPagination(filters.Page, filters.PerPage, total)
	query, args, err := base.OrderBy("email").
		Limit(uint64(pagination.PerPage)).
		Offset(uint64((pagination.Page - 1) * pagination.PerPage)).
		ToSql()
	if err != nil {
		return nil, shared.Pagination{}, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		out = append(out, user)
	}
	return out, pagination, rows.Err()
}

// Get fetches a single live user.
func (r *PGRepository) Get(ctx context.Context, id int64) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// Create inserts a user. Email uniqueness only applies among live rows.
func (r *PGRepository) Create(ctx context.Context, user User) (User, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, role, division, spending_limit_cents, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+userColumns,
		user.Email, user.Name, user.PasswordHash, user.Role, user.Division, user.SpendingLimitCents, user.IsActive,
	).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.Division,
		&user.SpendingLimitCents, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return user, nil
}

// Update rewrites profile fields of a live user.
func (r *PGRepository) Update(ctx context.Context, user User) (User, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET email = $1, name = $2, role = $3, division = $4, spending_limit_cents = $5, is_active = $6, updated_at = NOW()
		 WHERE id = $7 AND deleted_at IS NULL
		 RETURNING `+userColumns,
		user.Email, user.Name, user.Role, user.Division, user.SpendingLimitCents, user.IsActive, user.ID,
	).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.Division,
		&user.SpendingLimitCents, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return user, nil
}

// UpdatePassword replaces the stored hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW()
		 WHERE id = $2 AND deleted_at IS NULL`, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a user deleted. Their email becomes reusable immediately.
func (r *PGRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.Division,
		&user.SpendingLimitCents, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
