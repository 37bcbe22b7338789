package cheffing

import (
	"fmt"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// Line is one costed item of a breakdown.
type Line struct {
	Kind        models.ItemKind `json:"kind"`
	ComponentID string          `json:"component_id"`
	Name        string          `json:"name"`
	Quantity    float64         `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitCost    float64         `json:"unit_cost"`
	Cost        float64         `json:"cost"`
	Allergens   models.Tags     `json:"allergens"`
	Missing     bool            `json:"missing,omitempty"`
	Cyclic      bool            `json:"cyclic,omitempty"`
}

// Breakdown is the costing sheet of a dish or sub-recipe.
type Breakdown struct {
	Kind      string  `json:"kind"`
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Lines     []Line  `json:"lines"`
	TotalCost float64 `json:"total_cost"`

	// Dishes only.
	SellingPrice float64 `json:"selling_price,omitempty"`
	Margin       float64 `json:"margin,omitempty"`
	FoodCostPct  float64 `json:"food_cost_pct,omitempty"`

	// Sub-recipes only.
	UsableYield float64 `json:"usable_yield,omitempty"`
	YieldUnit   string  `json:"yield_unit,omitempty"`
	UnitCost    float64 `json:"unit_cost,omitempty"`

	Tagging
	Cycles []string `json:"cycles,omitempty"`
}

func (r *Resolver) lines(items []models.Item) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		line := Line{Kind: it.Kind(), ComponentID: it.ComponentID(), Quantity: it.Quantity, Allergens: models.Tags{}}

		switch it.Kind() {
		case models.ItemSubRecipe:
			if s, ok := r.catalog.SubRecipes[it.SubRecipeID]; ok {
				line.Name, line.Unit = s.Name, s.YieldUnit
				line.Cyclic = r.visiting[s.ID] || r.cycles[s.ID]
			}
		default:
			if ing, ok := r.catalog.Ingredients[it.IngredientID]; ok {
				line.Name, line.Unit = ing.Name, ing.PurchaseUnit
			}
		}

		res, ok := r.component(it)
		if !ok {
			line.Missing = true
			lines = append(lines, line)
			continue
		}

		line.UnitCost = res.unitCost
		line.Cost = it.Quantity * res.unitCost
		line.Allergens = res.tags.Allergens
		if r.cycles[line.ComponentID] {
			line.Cyclic = true
		}
		lines = append(lines, line)
	}
	return lines
}

// DishBreakdown builds the costing sheet of a dish.
func (r *Resolver) DishBreakdown(id string) (*Breakdown, error) {
	d, ok := r.catalog.Dishes[id]
	if !ok {
		return nil, fmt.Errorf("%w: dish %s", shared.ErrNotFound, id)
	}

	lines := r.lines(d.Items)
	total, tags := r.rollup(d.Items, d.Overrides)

	b := &Breakdown{
		Kind:         "dish",
		ID:           d.ID,
		Name:         d.Name,
		Lines:        lines,
		TotalCost:    total,
		SellingPrice: d.SellingPrice,
		Margin:       d.SellingPrice - total,
		Tagging:      tags,
		Cycles:       r.Cycles(),
	}
	if d.SellingPrice > 0 {
		b.FoodCostPct = total / d.SellingPrice * 100
	}
	return b, nil
}

// SubRecipeBreakdown builds the costing sheet of a sub-recipe.
func (r *Resolver) SubRecipeBreakdown(id string) (*Breakdown, error) {
	s, ok := r.catalog.SubRecipes[id]
	if !ok {
		return nil, fmt.Errorf("%w: sub-recipe %s", shared.ErrNotFound, id)
	}

	r.visiting[id] = true
	lines := r.lines(s.Items)
	delete(r.visiting, id)

	res, _ := r.subRecipe(id)

	var total float64
	for _, l := range lines {
		total += l.Cost
	}

	return &Breakdown{
		Kind:        "subrecipe",
		ID:          s.ID,
		Name:        s.Name,
		Lines:       lines,
		TotalCost:   total,
		UsableYield: s.UsableYield(),
		YieldUnit:   s.YieldUnit,
		UnitCost:    res.unitCost,
		Tagging:     res.tags,
		Cycles:      r.Cycles(),
	}, nil
}
