// Package cheffing rolls up costs and effective allergens/indicators over the ingredient, sub-recipe and
// dish graph.
//
// A [Resolver] walks item lists recursively, memoizing each sub-recipe once. A sub-recipe reached again
// while it is still on the traversal stack is a cycle: it contributes no cost and no tags, and is reported
// by [Resolver.Cycles].
package cheffing

import (
	"fmt"
	"maps"
	"slices"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// ManualSource marks an allergen or indicator added by an override rather than inherited.
const ManualSource = "(manual)"

// Catalog is an in-memory snapshot of the costing entities, keyed by ID.
type Catalog struct {
	Ingredients map[string]*models.Ingredient
	SubRecipes  map[string]*models.SubRecipe
	Dishes      map[string]*models.Dish
}

// NewCatalog indexes the given entities by ID.
func NewCatalog(ingredients []*models.Ingredient, subRecipes []*models.SubRecipe, dishes []*models.Dish) *Catalog {
	c := &Catalog{
		Ingredients: make(map[string]*models.Ingredient, len(ingredients)),
		SubRecipes:  make(map[string]*models.SubRecipe, len(subRecipes)),
		Dishes:      make(map[string]*models.Dish, len(dishes)),
	}
	for _, i := range ingredients {
		c.Ingredients[i.ID] = i
	}
	for _, s := range subRecipes {
		c.SubRecipes[s.ID] = s
	}
	for _, d := range dishes {
		c.Dishes[d.ID] = d
	}
	return c
}

// Tagging is a resolved tag set with, for each tag, the ingredients it was inherited from.
type Tagging struct {
	Allergens  models.Tags         `json:"allergens"`
	Indicators models.Tags         `json:"indicators"`
	Sources    map[string][]string `json:"allergen_sources"`
}

type resolved struct {
	unitCost float64
	tags     Tagging
}

// Resolver computes costs and effective tags over a [Catalog]. It is not safe for concurrent use.
type Resolver struct {
	catalog  *Catalog
	memo     map[string]resolved
	visiting map[string]bool
	cycles   map[string]bool
}

// NewResolver creates a resolver with an empty memo.
func NewResolver(c *Catalog) *Resolver {
	return &Resolver{
		catalog:  c,
		memo:     map[string]resolved{},
		visiting: map[string]bool{},
		cycles:   map[string]bool{},
	}
}

// Cycles returns the sorted IDs of sub-recipes found on a cycle so far.
func (r *Resolver) Cycles() []string {
	return slices.Sorted(maps.Keys(r.cycles))
}

func (r *Resolver) ingredient(id string) (resolved, bool) {
	ing, ok := r.catalog.Ingredients[id]
	if !ok {
		return resolved{}, false
	}

	sources := make(map[string][]string, len(ing.Allergens))
	for _, a := range ing.Allergens {
		sources[a] = []string{ing.Name}
	}
	return resolved{
		unitCost: ing.UnitCost(),
		tags: Tagging{
			Allergens:  models.NewTags(ing.Allergens...),
			Indicators: models.NewTags(ing.Indicators...),
			Sources:    sources,
		},
	}, true
}

func (r *Resolver) subRecipe(id string) (resolved, bool) {
	if res, ok := r.memo[id]; ok {
		return res, true
	}

	s, ok := r.catalog.SubRecipes[id]
	if !ok {
		return resolved{}, false
	}

	if r.visiting[id] {
		r.cycles[id] = true
		return resolved{tags: emptyTagging()}, true
	}

	r.visiting[id] = true
	total, tags := r.rollup(s.Items, s.Overrides)
	delete(r.visiting, id)

	res := resolved{tags: tags}
	if usable := s.UsableYield(); usable > 0 {
		res.unitCost = total / usable
	}

	// A sub-recipe resolved while a cycle through it was open is incomplete for other entry points.
	if !r.onCycle(id) {
		r.memo[id] = res
	}
	return res, true
}

func (r *Resolver) onCycle(id string) bool {
	if r.cycles[id] {
		return true
	}
	for v := range r.visiting {
		if r.cycles[v] {
			return true
		}
	}
	return false
}

func (r *Resolver) component(it models.Item) (resolved, bool) {
	if it.Kind() == models.ItemSubRecipe {
		return r.subRecipe(it.SubRecipeID)
	}
	return r.ingredient(it.IngredientID)
}

// rollup sums the item costs and merges component tags, then applies the overrides.
func (r *Resolver) rollup(items []models.Item, o models.Overrides) (float64, Tagging) {
	var (
		total      float64
		allergens  []string
		indicators []string
		sources    = map[string][]string{}
	)

	for _, it := range items {
		res, ok := r.component(it)
		if !ok {
			continue
		}
		total += it.Quantity * res.unitCost
		allergens = append(allergens, res.tags.Allergens...)
		indicators = append(indicators, res.tags.Indicators...)
		for a, names := range res.tags.Sources {
			sources[a] = append(sources[a], names...)
		}
	}

	allergens = append(allergens, o.AllergensAdd...)
	for _, a := range o.AllergensAdd {
		sources[a] = append(sources[a], ManualSource)
	}
	indicators = append(indicators, o.IndicatorsAdd...)

	tags := Tagging{
		Allergens:  subtract(models.NewTags(allergens...), o.AllergensExclude),
		Indicators: subtract(models.NewTags(indicators...), o.IndicatorsExclude),
		Sources:    map[string][]string{},
	}
	for _, a := range tags.Allergens {
		names := sources[a]
		slices.Sort(names)
		tags.Sources[a] = slices.Compact(names)
	}
	return total, tags
}

func subtract(set, remove models.Tags) models.Tags {
	out := models.Tags{}
	for _, t := range set {
		if !remove.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

func emptyTagging() Tagging {
	return Tagging{Allergens: models.Tags{}, Indicators: models.Tags{}, Sources: map[string][]string{}}
}

// SubRecipeUnitCost returns the cost of one yield unit of a sub-recipe.
func (r *Resolver) SubRecipeUnitCost(id string) (float64, error) {
	res, ok := r.subRecipe(id)
	if !ok {
		return 0, fmt.Errorf("%w: sub-recipe %s", shared.ErrNotFound, id)
	}
	return res.unitCost, nil
}

// SubRecipeTags returns the effective allergens and indicators of a sub-recipe.
func (r *Resolver) SubRecipeTags(id string) (Tagging, error) {
	res, ok := r.subRecipe(id)
	if !ok {
		return Tagging{}, fmt.Errorf("%w: sub-recipe %s", shared.ErrNotFound, id)
	}
	return res.tags, nil
}

// DishCost returns the total cost of one portion of a dish.
func (r *Resolver) DishCost(id string) (float64, error) {
	d, ok := r.catalog.Dishes[id]
	if !ok {
		return 0, fmt.Errorf("%w: dish %s", shared.ErrNotFound, id)
	}
	total, _ := r.rollup(d.Items, d.Overrides)
	return total, nil
}

// DishTags returns the effective allergens and indicators of a dish.
func (r *Resolver) DishTags(id string) (Tagging, error) {
	d, ok := r.catalog.Dishes[id]
	if !ok {
		return Tagging{}, fmt.Errorf("%w: dish %s", shared.ErrNotFound, id)
	}
	_, tags := r.rollup(d.Items, d.Overrides)
	return tags, nil
}

// WouldCycle reports whether giving sub-recipe id the item list items would let it reach itself.
func WouldCycle(c *Catalog, id string, items []models.Item) bool {
	seen := map[string]bool{}

	var reaches func(items []models.Item) bool
	reaches = func(items []models.Item) bool {
		for _, it := range items {
			if it.Kind() != models.ItemSubRecipe {
				continue
			}
			child := it.SubRecipeID
			if child == id {
				return true
			}
			if seen[child] {
				continue
			}
			seen[child] = true
			if s, ok := c.SubRecipes[child]; ok && reaches(s.Items) {
				return true
			}
		}
		return false
	}

	return reaches(items)
}
