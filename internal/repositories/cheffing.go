package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

var (
	_ models.Repository[*models.Ingredient] = (*IngredientRepository)(nil)
	_ models.Repository[*models.SubRecipe]  = (*SubRecipeRepository)(nil)
	_ models.Repository[*models.Dish]       = (*DishRepository)(nil)
)

// itemTable describes where the component lines of a parent entity live.
type itemTable struct {
	table     string
	parentCol string
	subCol    string
}

var (
	subRecipeItems = itemTable{table: "subrecipe_items", parentCol: "subrecipe_id", subCol: "child_subrecipe_id"}
	dishItems      = itemTable{table: "dish_items", parentCol: "dish_id", subCol: "subrecipe_id"}
)

// replace swaps the parent's item list inside tx, checking that every component is live.
func (t itemTable) replace(ctx context.Context, tx *sql.Tx, parentID string, items []models.Item) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.table, t.parentCol), parentID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (id, %s, position, ingredient_id, %s, quantity) VALUES (?, ?, ?, ?, ?, ?)",
		t.table, t.parentCol, t.subCol,
	)

	for i := range items {
		it := &items[i]
		if err := componentExists(ctx, tx, *it); err != nil {
			return err
		}

		it.ID = shared.GenerateID()
		_, err := tx.ExecContext(ctx, insert,
			it.ID, parentID, i, nullString(it.IngredientID), nullString(it.SubRecipeID), it.Quantity,
		)
		if err != nil {
			return writeErr("insert", "item", err)
		}
	}
	return nil
}

// load returns the items of the given parents keyed by parent ID, in position order.
func (t itemTable) load(ctx context.Context, q querier, parentIDs ...string) (map[string][]models.Item, error) {
	out := make(map[string][]models.Item, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}

	wanted := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
		out[id] = []models.Item{}
	}

	query := fmt.Sprintf(
		"SELECT id, %s, ingredient_id, %s, quantity FROM %s ORDER BY %s, position",
		t.parentCol, t.subCol, t.table, t.parentCol,
	)
	args := []any{}
	if len(parentIDs) == 1 {
		query = fmt.Sprintf(
			"SELECT id, %s, ingredient_id, %s, quantity FROM %s WHERE %s = ? ORDER BY position",
			t.parentCol, t.subCol, t.table, t.parentCol,
		)
		args = append(args, parentIDs[0])
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it           models.Item
			parentID     string
			ingredientID sql.NullString
			subRecipeID  sql.NullString
		)
		if err := rows.Scan(&it.ID, &parentID, &ingredientID, &subRecipeID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if !wanted[parentID] {
			continue
		}
		it.IngredientID = ingredientID.String
		it.SubRecipeID = subRecipeID.String
		out[parentID] = append(out[parentID], it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func componentExists(ctx context.Context, q querier, it models.Item) error {
	table, id := "ingredients", it.IngredientID
	if it.Kind() == models.ItemSubRecipe {
		table, id = "subrecipes", it.SubRecipeID
	}

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ? AND deleted_at IS NULL", table)
	if err := q.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		return fmt.Errorf("failed to check component: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: unknown %s %s", shared.ErrInvalidInput, it.Kind(), id)
	}
	return nil
}

// countRefs counts live parents whose items reference id through column col of t.
func countRefs(ctx context.Context, q querier, t itemTable, parentTable, col, id string) (int, error) {
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s i JOIN %s p ON p.id = i.%s WHERE i.%s = ? AND p.deleted_at IS NULL",
		t.table, parentTable, t.parentCol, col,
	)

	var n int
	if err := q.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count references: %w", err)
	}
	return n, nil
}

func softDelete(ctx context.Context, tx *sql.Tx, table, entity, id string) error {
	result, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", table), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", entity, err)
	}
	return mustAffect(result, entity, id)
}

const ingredientColumns = `id, sequence, name, purchase_unit, purchase_quantity, purchase_price, waste_pct,
	allergens, indicators, created_at, updated_at, deleted_at`

// IngredientRepository persists purchased [models.Ingredient] rows.
type IngredientRepository struct {
	db *sql.DB
}

// NewIngredientRepository creates a new IngredientRepository with the given database connection
func NewIngredientRepository(db *sql.DB) *IngredientRepository {
	return &IngredientRepository{db: db}
}

// Create inserts a new [models.Ingredient] with generated ID and sequence
func (r *IngredientRepository) Create(ctx context.Context, ing *models.Ingredient) error {
	if err := ing.Validate(); err != nil {
		return err
	}

	sequence, err := NextSequence(ctx, r.db, "ingredients")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	ing.ID = shared.GenerateID()
	ing.Sequence = sequence
	ing.Touch(time.Now())

	query := `
		INSERT INTO ingredients (id, sequence, name, purchase_unit, purchase_quantity, purchase_price, waste_pct,
			allergens, indicators, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		ing.ID, ing.Sequence, ing.Name, ing.PurchaseUnit, ing.PurchaseQuantity, ing.PurchasePrice, ing.WastePct,
		ing.Allergens, ing.Indicators, ing.CreatedAt, ing.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert", "ingredient "+ing.Name, err)
	}
	return nil
}

// Get retrieves an ingredient by ID, excluding soft-deleted ingredients
func (r *IngredientRepository) Get(ctx context.Context, id string) (*models.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = ? AND deleted_at IS NULL`

	ing, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "ingredient", id)
	}
	return ing, nil
}

// Update modifies an existing ingredient
func (r *IngredientRepository) Update(ctx context.Context, ing *models.Ingredient) error {
	if err := ing.Validate(); err != nil {
		return err
	}
	ing.Touch(time.Now())

	query := `
		UPDATE ingredients
		SET name = ?, purchase_unit = ?, purchase_quantity = ?, purchase_price = ?, waste_pct = ?,
			allergens = ?, indicators = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		ing.Name, ing.PurchaseUnit, ing.PurchaseQuantity, ing.PurchasePrice, ing.WastePct,
		ing.Allergens, ing.Indicators, ing.UpdatedAt, ing.ID,
	)
	if err != nil {
		return writeErr("update", "ingredient "+ing.Name, err)
	}
	return mustAffect(result, "ingredient", ing.ID)
}

// Delete soft-deletes an ingredient unless a live sub-recipe or dish still uses it
func (r *IngredientRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		inSubs, err := countRefs(ctx, tx, subRecipeItems, "subrecipes", "ingredient_id", id)
		if err != nil {
			return err
		}
		inDishes, err := countRefs(ctx, tx, dishItems, "dishes", "ingredient_id", id)
		if err != nil {
			return err
		}
		if inSubs+inDishes > 0 {
			return fmt.Errorf("%w: ingredient %s is used by %d sub-recipe and %d dish lines",
				shared.ErrConflict, id, inSubs, inDishes)
		}
		return softDelete(ctx, tx, "ingredients", "ingredient", id)
	})
}

// List retrieves ingredients ordered by name.
//
// Supported criteria: "allergen" (string): only ingredients declaring it.
func (r *IngredientRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE deleted_at IS NULL`
	args := []any{}

	if allergen, ok := criteria["allergen"].(string); ok && allergen != "" {
		query += " AND EXISTS (SELECT 1 FROM json_each(ingredients.allergens) WHERE json_each.value = ?)"
		args = append(args, allergen)
	}

	query += " ORDER BY name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer rows.Close()

	list := []*models.Ingredient{}
	for rows.Next() {
		ing, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		list = append(list, ing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return list, nil
}

// UnitCosts reads v_ingredient_costs keyed by ingredient ID.
func (r *IngredientRepository) UnitCosts(ctx context.Context) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, unit_cost FROM v_ingredient_costs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredient costs: %w", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var (
			id   string
			cost sql.NullFloat64
		)
		if err := rows.Scan(&id, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient cost: %w", err)
		}
		out[id] = cost.Float64
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *IngredientRepository) scan(row scanner) (*models.Ingredient, error) {
	var (
		ing       models.Ingredient
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&ing.ID, &ing.Sequence, &ing.Name, &ing.PurchaseUnit, &ing.PurchaseQuantity, &ing.PurchasePrice,
		&ing.WastePct, &ing.Allergens, &ing.Indicators, &ing.CreatedAt, &ing.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	ing.DeletedAt = timePtr(deletedAt)
	return &ing, nil
}

const subRecipeColumns = `id, sequence, name, yield_quantity, yield_unit, waste_pct, allergens_add, allergens_exclude,
	indicators_add, indicators_exclude, notes, created_at, updated_at, deleted_at`

// SubRecipeRepository persists [models.SubRecipe] rows and their item lists.
//
// It does not check for cycles; callers resolve the graph before saving.
type SubRecipeRepository struct {
	db *sql.DB
}

// NewSubRecipeRepository creates a new SubRecipeRepository with the given database connection
func NewSubRecipeRepository(db *sql.DB) *SubRecipeRepository {
	return &SubRecipeRepository{db: db}
}

// Create inserts a new [models.SubRecipe] and its items
func (r *SubRecipeRepository) Create(ctx context.Context, s *models.SubRecipe) error {
	if err := s.Validate(); err != nil {
		return err
	}

	sequence, err := NextSequence(ctx, r.db, "subrecipes")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	s.ID = shared.GenerateID()
	s.Sequence = sequence
	s.Touch(time.Now())

	query := `
		INSERT INTO subrecipes (id, sequence, name, yield_quantity, yield_unit, waste_pct, allergens_add,
			allergens_exclude, indicators_add, indicators_exclude, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			s.ID, s.Sequence, s.Name, s.YieldQuantity, s.YieldUnit, s.WastePct,
			s.AllergensAdd, s.AllergensExclude, s.IndicatorsAdd, s.IndicatorsExclude, s.Notes,
			s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			return writeErr("insert", "sub-recipe "+s.Name, err)
		}
		return subRecipeItems.replace(ctx, tx, s.ID, s.Items)
	})
}

// Get retrieves a sub-recipe with its items, excluding soft-deleted sub-recipes
func (r *SubRecipeRepository) Get(ctx context.Context, id string) (*models.SubRecipe, error) {
	query := `SELECT ` + subRecipeColumns + ` FROM subrecipes WHERE id = ? AND deleted_at IS NULL`

	s, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "sub-recipe", id)
	}

	items, err := subRecipeItems.load(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	s.Items = items[id]
	return s, nil
}

// Update modifies an existing sub-recipe and replaces its item list
func (r *SubRecipeRepository) Update(ctx context.Context, s *models.SubRecipe) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.Touch(time.Now())

	query := `
		UPDATE subrecipes
		SET name = ?, yield_quantity = ?, yield_unit = ?, waste_pct = ?, allergens_add = ?, allergens_exclude = ?,
			indicators_add = ?, indicators_exclude = ?, notes = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			s.Name, s.YieldQuantity, s.YieldUnit, s.WastePct,
			s.AllergensAdd, s.AllergensExclude, s.IndicatorsAdd, s.IndicatorsExclude, s.Notes,
			s.UpdatedAt, s.ID,
		)
		if err != nil {
			return writeErr("update", "sub-recipe "+s.Name, err)
		}
		if err := mustAffect(result, "sub-recipe", s.ID); err != nil {
			return err
		}
		if err := subRecipeItems.replace(ctx, tx, s.ID, s.Items); err != nil {
			return err
		}
		return checkNoCycle(ctx, tx, s)
	})
}

// checkNoCycle fails with [shared.ErrCycle] when s reaches itself through the item rows written in tx.
func checkNoCycle(ctx context.Context, tx *sql.Tx, s *models.SubRecipe) error {
	query := `
		WITH RECURSIVE reach(id) AS (
			SELECT child_subrecipe_id FROM subrecipe_items
			WHERE subrecipe_id = ? AND child_subrecipe_id IS NOT NULL
			UNION
			SELECT si.child_subrecipe_id FROM subrecipe_items si
			JOIN reach ON si.subrecipe_id = reach.id
			WHERE si.child_subrecipe_id IS NOT NULL
		)
		SELECT COUNT(*) FROM reach WHERE id = ?
	`

	var n int
	if err := tx.QueryRowContext(ctx, query, s.ID, s.ID).Scan(&n); err != nil {
		return fmt.Errorf("failed to check sub-recipe cycle: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: sub-recipe %s would contain itself", shared.ErrCycle, s.Name)
	}
	return nil
}

// Delete soft-deletes a sub-recipe unless a live sub-recipe or dish still uses it
func (r *SubRecipeRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		inSubs, err := countRefs(ctx, tx, subRecipeItems, "subrecipes", "child_subrecipe_id", id)
		if err != nil {
			return err
		}
		inDishes, err := countRefs(ctx, tx, dishItems, "dishes", "subrecipe_id", id)
		if err != nil {
			return err
		}
		if inSubs+inDishes > 0 {
			return fmt.Errorf("%w: sub-recipe %s is used by %d sub-recipe and %d dish lines",
				shared.ErrConflict, id, inSubs, inDishes)
		}
		return softDelete(ctx, tx, "subrecipes", "sub-recipe", id)
	})
}

// List retrieves sub-recipes with their items ordered by name. No criteria are supported.
func (r *SubRecipeRepository) List(ctx context.Context, _ map[string]any) ([]*models.SubRecipe, error) {
	query := `SELECT ` + subRecipeColumns + ` FROM subrecipes WHERE deleted_at IS NULL ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sub-recipes: %w", err)
	}

	list := []*models.SubRecipe{}
	ids := []string{}
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sub-recipe: %w", err)
		}
		list = append(list, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	items, err := subRecipeItems.load(ctx, r.db, ids...)
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		s.Items = items[s.ID]
	}
	return list, nil
}

func (r *SubRecipeRepository) scan(row scanner) (*models.SubRecipe, error) {
	var (
		s         models.SubRecipe
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&s.ID, &s.Sequence, &s.Name, &s.YieldQuantity, &s.YieldUnit, &s.WastePct,
		&s.AllergensAdd, &s.AllergensExclude, &s.IndicatorsAdd, &s.IndicatorsExclude, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Items = []models.Item{}
	s.DeletedAt = timePtr(deletedAt)
	return &s, nil
}

const dishColumns = `id, sequence, name, category, selling_price, allergens_add, allergens_exclude, indicators_add,
	indicators_exclude, is_active, created_at, updated_at, deleted_at`

// DishRepository persists menu [models.Dish] rows and their item lists.
type DishRepository struct {
	db *sql.DB
}

// NewDishRepository creates a new DishRepository with the given database connection
func NewDishRepository(db *sql.DB) *DishRepository {
	return &DishRepository{db: db}
}

// Create inserts a new [models.Dish] and its items
func (r *DishRepository) Create(ctx context.Context, d *models.Dish) error {
	if err := d.Validate(); err != nil {
		return err
	}

	sequence, err := NextSequence(ctx, r.db, "dishes")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	d.ID = shared.GenerateID()
	d.Sequence = sequence
	d.Touch(time.Now())

	query := `
		INSERT INTO dishes (id, sequence, name, category, selling_price, allergens_add, allergens_exclude,
			indicators_add, indicators_exclude, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			d.ID, d.Sequence, d.Name, d.Category, d.SellingPrice,
			d.AllergensAdd, d.AllergensExclude, d.IndicatorsAdd, d.IndicatorsExclude, d.Active,
			d.CreatedAt, d.UpdatedAt,
		)
		if err != nil {
			return writeErr("insert", "dish "+d.Name, err)
		}
		return dishItems.replace(ctx, tx, d.ID, d.Items)
	})
}

// Get retrieves a dish with its items, excluding soft-deleted dishes
func (r *DishRepository) Get(ctx context.Context, id string) (*models.Dish, error) {
	query := `SELECT ` + dishColumns + ` FROM dishes WHERE id = ? AND deleted_at IS NULL`

	d, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "dish", id)
	}

	items, err := dishItems.load(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	d.Items = items[id]
	return d, nil
}

// Update modifies an existing dish and replaces its item list
func (r *DishRepository) Update(ctx context.Context, d *models.Dish) error {
	if err := d.Validate(); err != nil {
		return err
	}
	d.Touch(time.Now())

	query := `
		UPDATE dishes
		SET name = ?, category = ?, selling_price = ?, allergens_add = ?, allergens_exclude = ?, indicators_add = ?,
			indicators_exclude = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			d.Name, d.Category, d.SellingPrice,
			d.AllergensAdd, d.AllergensExclude, d.IndicatorsAdd, d.IndicatorsExclude, d.Active,
			d.UpdatedAt, d.ID,
		)
		if err != nil {
			return writeErr("update", "dish "+d.Name, err)
		}
		if err := mustAffect(result, "dish", d.ID); err != nil {
			return err
		}
		return dishItems.replace(ctx, tx, d.ID, d.Items)
	})
}

// Delete soft-deletes a dish and detaches any POS products linked to it
func (r *DishRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := softDelete(ctx, tx, "dishes", "dish", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE pos_products SET dish_id = NULL, link_mode = '', updated_at = ? WHERE dish_id = ?`, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to unlink products: %w", err)
		}
		return nil
	})
}

// List retrieves dishes with their items ordered by category and name.
//
// Supported criteria: "category" (string), "active" (bool).
func (r *DishRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Dish, error) {
	query := `SELECT ` + dishColumns + ` FROM dishes WHERE deleted_at IS NULL`
	args := []any{}

	if category, ok := criteria["category"].(string); ok && category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}

	if active, ok := criteria["active"].(bool); ok {
		query += " AND is_active = ?"
		args = append(args, active)
	}

	query += " ORDER BY category ASC, name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dishes: %w", err)
	}

	list := []*models.Dish{}
	ids := []string{}
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan dish: %w", err)
		}
		list = append(list, d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	items, err := dishItems.load(ctx, r.db, ids...)
	if err != nil {
		return nil, err
	}
	for _, d := range list {
		d.Items = items[d.ID]
	}
	return list, nil
}

func (r *DishRepository) scan(row scanner) (*models.Dish, error) {
	var (
		d         models.Dish
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&d.ID, &d.Sequence, &d.Name, &d.Category, &d.SellingPrice,
		&d.AllergensAdd, &d.AllergensExclude, &d.IndicatorsAdd, &d.IndicatorsExclude, &d.Active,
		&d.CreatedAt, &d.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Items = []models.Item{}
	d.DeletedAt = timePtr(deletedAt)
	return &d, nil
}
