package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

const posProductColumns = `id, sequence, external_code, name, dish_id, link_mode, created_at, updated_at`

// PosRepository persists till products, their dish links and daily sales.
//
// Products are keyed by their external code and never deleted, so re-importing an export is idempotent.
type PosRepository struct {
	db *sql.DB
}

// NewPosRepository creates a new PosRepository with the given database connection
func NewPosRepository(db *sql.DB) *PosRepository {
	return &PosRepository{db: db}
}

// UpsertProduct returns the product with the given external code, creating it when unknown.
//
// An existing product keeps its name and link.
func (r *PosRepository) UpsertProduct(ctx context.Context, code, name string) (*models.PosProduct, bool, error) {
	p, err := r.GetProductByCode(ctx, code)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	p = models.NewPosProduct(code, name)
	if err := p.Validate(); err != nil {
		return nil, false, err
	}

	sequence, err := NextSequence(ctx, r.db, "pos_products")
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate sequence: %w", err)
	}

	p.ID = shared.GenerateID()
	p.Sequence = sequence

	query := `
		INSERT INTO pos_products (id, sequence, external_code, name, link_mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Sequence, p.ExternalCode, p.Name, p.CreatedAt, p.UpdatedAt); err != nil {
		return nil, false, writeErr("insert", "pos product "+p.ExternalCode, err)
	}
	return p, true, nil
}

// GetProduct retrieves a product by ID
func (r *PosRepository) GetProduct(ctx context.Context, id string) (*models.PosProduct, error) {
	p, err := r.scan(r.db.QueryRowContext(ctx, `SELECT `+posProductColumns+` FROM pos_products WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "pos product", id)
	}
	return p, nil
}

// GetProductByCode retrieves a product by its till code
func (r *PosRepository) GetProductByCode(ctx context.Context, code string) (*models.PosProduct, error) {
	p, err := r.scan(r.db.QueryRowContext(ctx, `SELECT `+posProductColumns+` FROM pos_products WHERE external_code = ?`, code))
	if err != nil {
		return nil, notFound(err, "pos product", code)
	}
	return p, nil
}

// ListProducts retrieves products ordered by name.
//
// Supported criteria: "unlinked" (bool): only products without a dish.
func (r *PosRepository) ListProducts(ctx context.Context, criteria map[string]any) ([]*models.PosProduct, error) {
	query := `SELECT ` + posProductColumns + ` FROM pos_products`

	if unlinked, ok := criteria["unlinked"].(bool); ok && unlinked {
		query += " WHERE dish_id IS NULL"
	}

	query += " ORDER BY name ASC, sequence ASC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pos products: %w", err)
	}
	defer rows.Close()

	products := []*models.PosProduct{}
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pos product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

// Link attaches a product to a live dish with a manual link, replacing any previous link.
func (r *PosRepository) Link(ctx context.Context, productID, dishID string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM dishes WHERE id = ? AND deleted_at IS NULL`, dishID).Scan(&n); err != nil {
			return fmt.Errorf("failed to check dish: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: unknown dish %s", shared.ErrInvalidInput, dishID)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE pos_products SET dish_id = ?, link_mode = 'manual', updated_at = ? WHERE id = ?`,
			dishID, time.Now(), productID,
		)
		if err != nil {
			return fmt.Errorf("failed to link pos product: %w", err)
		}
		return mustAffect(result, "pos product", productID)
	})
}

// AutoLink attaches an unlinked product to a dish. It reports false when the product was already linked.
func (r *PosRepository) AutoLink(ctx context.Context, productID, dishID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pos_products SET dish_id = ?, link_mode = 'auto', updated_at = ? WHERE id = ? AND dish_id IS NULL`,
		dishID, time.Now(), productID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to auto-link pos product: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// Unlink detaches a product from its dish.
func (r *PosRepository) Unlink(ctx context.Context, productID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pos_products SET dish_id = NULL, link_mode = '', updated_at = ? WHERE id = ?`, time.Now(), productID)
	if err != nil {
		return fmt.Errorf("failed to unlink pos product: %w", err)
	}
	return mustAffect(result, "pos product", productID)
}

// UpsertSale stores the sales of a product on a day, replacing an earlier import of the same day.
func (r *PosRepository) UpsertSale(ctx context.Context, sale *models.PosSale) error {
	if err := models.Validate(sale); err != nil {
		return err
	}

	now := time.Now()
	query := `
		INSERT INTO pos_sales (id, product_id, sold_on, quantity, gross_amount, import_batch, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, sold_on) DO UPDATE SET quantity = excluded.quantity,
			gross_amount = excluded.gross_amount, import_batch = excluded.import_batch, updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		shared.GenerateID(), sale.ProductID, sale.SoldOn, sale.Quantity, sale.GrossAmount, sale.ImportBatch, now, now,
	)
	if err != nil {
		return writeErr("upsert", "pos sale", err)
	}
	return nil
}

// SalesByDish aggregates v_pos_sales_linked between from and to inclusive.
//
// Sales of unlinked products are grouped under an entry with an empty DishID. Cost and margin are left
// for the caller to fill in.
func (r *PosRepository) SalesByDish(ctx context.Context, from, to string) ([]models.DishSales, error) {
	query := `
		SELECT COALESCE(v.dish_id, ''), COALESCE(d.name, ''), SUM(v.quantity), SUM(v.gross_amount)
		FROM v_pos_sales_linked v
		LEFT JOIN dishes d ON d.id = v.dish_id
		WHERE v.sold_on >= ? AND v.sold_on <= ?
		GROUP BY COALESCE(v.dish_id, '')
		ORDER BY SUM(v.gross_amount) DESC
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	out := []models.DishSales{}
	for rows.Next() {
		var s models.DishSales
		if err := rows.Scan(&s.DishID, &s.DishName, &s.Units, &s.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan sales: %w", err)
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *PosRepository) scan(row scanner) (*models.PosProduct, error) {
	var (
		p      models.PosProduct
		dishID sql.NullString
	)

	err := row.Scan(&p.ID, &p.Sequence, &p.ExternalCode, &p.Name, &dishID, &p.LinkMode, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.DishID = dishID.String
	return &p, nil
}
