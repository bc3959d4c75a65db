package procurement

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurio-erp/procurio/internal/platform/db"
)

const pgUniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ListFilters narrows purchase-order listings. Zero values mean "no filter".
type ListFilters struct {
	Status     Status
	SupplierID int64
	Search     string
	Page       int
	PerPage    int
	SortBy     string
	SortDir    string
}

// Repository provides PostgreSQL backed persistence for purchase orders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the order header and its lines in one transaction.
func (r *Repository) Create(ctx context.Context, po PurchaseOrder, lines []Line) (PurchaseOrder, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
INSERT INTO purchase_orders (po_number, supplier_id, status, currency, total_amount, note, created_by, updated_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING id, created_at, updated_at`,
			po.Number, po.SupplierID, po.Status, po.Currency, po.TotalAmount, po.Note, po.CreatedBy).
			Scan(&po.ID, &po.CreatedAt, &po.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return ErrDuplicateNumber
			}
			return err
		}
		po.UpdatedBy = po.CreatedBy
		for i := range lines {
			lines[i].POID = po.ID
			err := tx.QueryRow(ctx, `
INSERT INTO purchase_order_lines (po_id, description, qty, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
				lines[i].POID, lines[i].Description, lines[i].Qty, lines[i].UnitPrice, lines[i].TotalPrice).
				Scan(&lines[i].ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Lines = lines
	return po, nil
}

// Get fetches one order with its lines. Soft-deleted orders are not found.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := r.pool.QueryRow(ctx, `
SELECT id, po_number, supplier_id, status, currency, total_amount, note, created_by, updated_by, created_at, updated_at
FROM purchase_orders WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&po.ID, &po.Number, &po.SupplierID, &po.Status, &po.Currency, &po.TotalAmount, &po.Note, &po.CreatedBy, &po.UpdatedBy, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, po_id, description, qty, unit_price, total_price
FROM purchase_order_lines WHERE po_id = $1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.POID, &line.Description, &line.Qty, &line.UnitPrice, &line.TotalPrice); err != nil {
			return PurchaseOrder{}, err
		}
		po.Lines = append(po.Lines, line)
	}
	return po, rows.Err()
}

// List returns filtered orders plus the unpaginated total. Filters compose
// into a single parameterized query instead of per-combination variants.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error) {
	base := psql.Select().From("purchase_orders").Where(sq.Eq{"deleted_at": nil})
	if filters.Status != "" {
		base = base.Where(sq.Eq{"status": filters.Status})
	}
	if filters.SupplierID > 0 {
		base = base.Where(sq.Eq{"supplier_id": filters.SupplierID})
	}
	if filters.Search != "" {
		base = base.Where(sq.Or{
			sq.ILike{"po_number": "%" + filters.Search + "%"},
			sq.ILike{"note": "%" + filters.Search + "%"},
		})
	}

	countSQL, countArgs, err := base.Column("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := base.Columns("id", "po_number", "supplier_id", "status", "currency", "total_amount", "note", "created_by", "updated_by", "created_at", "updated_at").
		OrderBy(sortOrder(filters.SortBy, filters.SortDir))
	if filters.PerPage > 0 {
		offset := (filters.Page - 1) * filters.PerPage
		if offset < 0 {
			offset = 0
		}
		query = query.Limit(uint64(filters.PerPage)).Offset(uint64(offset))
	}
	listSQL, listArgs, err := query.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(&po.ID, &po.Number, &po.SupplierID, &po.Status, &po.Currency, &po.TotalAmount, &po.Note, &po.CreatedBy, &po.UpdatedBy, &po.CreatedAt, &po.UpdatedAt); err != nil {
			return nil, 0, err
		}
		orders = append(orders, po)
	}
	return orders, total, rows.Err()
}

// UpdateStatus performs the atomic conditional update. The WHERE clause pins
// the expected current status so a lost-update race affects zero rows and
// the loser gets a clean rejection instead of a skipped state.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status, actorID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE purchase_orders
SET status = $1, updated_by = $2, updated_at = NOW()
WHERE id = $3 AND status = $4 AND deleted_at IS NULL`, to, actorID, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateDraft replaces header fields and lines of a draft order.
func (r *Repository) UpdateDraft(ctx context.Context, po PurchaseOrder, lines []Line) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
UPDATE purchase_orders
SET supplier_id = $1, currency = $2, total_amount = $3, note = $4, updated_by = $5, updated_at = NOW()
WHERE id = $6 AND status = $7 AND deleted_at IS NULL`,
			po.SupplierID, po.Currency, po.TotalAmount, po.Note, po.UpdatedBy, po.ID, StatusDraft)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrImmutable
		}
		if _, err := tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE po_id = $1`, po.ID); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := tx.Exec(ctx, `
INSERT INTO purchase_order_lines (po_id, description, qty, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5)`, po.ID, line.Description, line.Qty, line.UnitPrice, line.TotalPrice); err != nil {
				return err
			}
		}
		return nil
	})
}

// SoftDelete stamps the deletion timestamp. Deleted orders behave like they
// never existed.
func (r *Repository) SoftDelete(ctx context.Context, id, actorID int64) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE purchase_orders SET deleted_at = NOW(), updated_by = $1, updated_at = NOW()
WHERE id = $2 AND deleted_at IS NULL`, actorID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SupplierExists reports whether a non-deleted supplier row exists.
func (r *Repository) SupplierExists(ctx context.Context, supplierID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1 AND deleted_at IS NULL)`, supplierID).Scan(&exists)
	return exists, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "po_number":
		return "po_number " + dir
	case "status":
		return "status " + dir
	case "total_amount":
		return "total_amount " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "id " + dir
	}
}
