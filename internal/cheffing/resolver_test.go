package cheffing

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

func ingredient(id, name, unit string, qty, price float64, allergens, indicators []string) *models.Ingredient {
	i := models.NewIngredient(name, unit, qty, price)
	i.ID = id
	i.Allergens = models.NewTags(allergens...)
	i.Indicators = models.NewTags(indicators...)
	return i
}

func subRecipe(id, name string, yield, waste float64, items ...models.Item) *models.SubRecipe {
	s := models.NewSubRecipe(name, yield, "kg")
	s.ID = id
	s.WastePct = waste
	s.Items = items
	return s
}

func ing(id string, qty float64) models.Item { return models.Item{IngredientID: id, Quantity: qty} }
func sub(id string, qty float64) models.Item { return models.Item{SubRecipeID: id, Quantity: qty} }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// fixture builds flour/eggs/milk, a batter, a coated mix using the batter, and a dish using both.
func fixture() *Catalog {
	flour := ingredient("flour", "Flour", "kg", 1, 2, []string{"gluten"}, []string{"vegan"})
	eggs := ingredient("eggs", "Eggs", "unit", 12, 3, []string{"eggs"}, []string{"vegetarian"})
	milk := ingredient("milk", "Milk", "l", 1, 1, []string{"milk"}, nil)

	batter := subRecipe("batter", "Batter", 2, 0, ing("flour", 1), ing("eggs", 4), ing("milk", 0.5))
	batter.IndicatorsExclude = models.Tags{"vegan"}

	coated := subRecipe("coated", "Coating", 1, 50, sub("batter", 0.5))
	coated.AllergensAdd = models.Tags{"sesame"}

	dish := models.NewDish("Fritters", 10)
	dish.ID = "fritters"
	dish.Items = []models.Item{sub("coated", 0.2), ing("milk", 0.1)}

	return NewCatalog(
		[]*models.Ingredient{flour, eggs, milk},
		[]*models.SubRecipe{batter, coated},
		[]*models.Dish{dish},
	)
}

func TestResolverCosts(t *testing.T) {
	r := NewResolver(fixture())

	t.Run("Sub-recipe unit cost", func(t *testing.T) {
		got, err := r.SubRecipeUnitCost("batter")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !near(got, 1.75) {
			t.Errorf("expected 3.5 / 2kg = 1.75, got %v", got)
		}
	})

	t.Run("Waste reduces usable yield", func(t *testing.T) {
		got, _ := r.SubRecipeUnitCost("coated")
		if !near(got, 1.75) {
			t.Errorf("expected 0.875 / 0.5kg = 1.75, got %v", got)
		}
	})

	t.Run("Dish breakdown", func(t *testing.T) {
		b, err := r.DishBreakdown("fritters")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !near(b.TotalCost, 0.45) || !near(b.Margin, 9.55) || !near(b.FoodCostPct, 4.5) {
			t.Errorf("unexpected totals: cost %v margin %v pct %v", b.TotalCost, b.Margin, b.FoodCostPct)
		}
		if len(b.Lines) != 2 || b.Lines[0].Name != "Coating" || b.Lines[0].Unit != "kg" || !near(b.Lines[0].Cost, 0.35) {
			t.Errorf("unexpected lines: %+v", b.Lines)
		}
		if len(b.Cycles) != 0 {
			t.Errorf("expected no cycles, got %v", b.Cycles)
		}
	})

	t.Run("Unknown entities", func(t *testing.T) {
		if _, err := r.DishBreakdown("nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := r.SubRecipeUnitCost("nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestResolverTags(t *testing.T) {
	r := NewResolver(fixture())

	t.Run("Inheritance with overrides", func(t *testing.T) {
		tags, err := r.DishTags("fritters")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(models.Tags{"eggs", "gluten", "milk", "sesame"}, tags.Allergens); diff != "" {
			t.Errorf("allergens mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(models.Tags{"vegetarian"}, tags.Indicators); diff != "" {
			t.Errorf("indicators mismatch (-want +got):\n%s", diff)
		}

		wantSources := map[string][]string{
			"eggs":   {"Eggs"},
			"gluten": {"Flour"},
			"milk":   {"Milk"},
			"sesame": {ManualSource},
		}
		if diff := cmp.Diff(wantSources, tags.Sources); diff != "" {
			t.Errorf("sources mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Exclude removes inherited allergen", func(t *testing.T) {
		c := fixture()
		c.Dishes["fritters"].AllergensExclude = models.Tags{"milk"}

		tags, _ := NewResolver(c).DishTags("fritters")
		if tags.Allergens.Contains("milk") {
			t.Error("expected milk to be excluded")
		}
		if _, ok := tags.Sources["milk"]; ok {
			t.Error("excluded allergens have no provenance")
		}
	})

	t.Run("Add beats nothing, exclude beats add", func(t *testing.T) {
		c := fixture()
		d := c.Dishes["fritters"]
		d.AllergensAdd = models.Tags{"fish"}
		d.AllergensExclude = models.Tags{"fish"}

		tags, _ := NewResolver(c).DishTags("fritters")
		if tags.Allergens.Contains("fish") {
			t.Error("exclude should win over add")
		}
	})

	t.Run("Missing component contributes nothing", func(t *testing.T) {
		c := fixture()
		c.Dishes["fritters"].Items = append(c.Dishes["fritters"].Items, ing("ghost", 1))

		b, err := NewResolver(c).DishBreakdown("fritters")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		last := b.Lines[len(b.Lines)-1]
		if !last.Missing || last.Cost != 0 {
			t.Errorf("expected a missing zero-cost line, got %+v", last)
		}
		if !near(b.TotalCost, 0.45) {
			t.Errorf("missing component should not change cost, got %v", b.TotalCost)
		}
	})
}

func TestResolverCycles(t *testing.T) {
	cyclic := func() *Catalog {
		flour := ingredient("flour", "Flour", "kg", 1, 2, []string{"gluten"}, nil)
		eggs := ingredient("eggs", "Eggs", "unit", 12, 3, []string{"eggs"}, nil)
		a := subRecipe("a", "A", 1, 0, sub("b", 1), ing("flour", 1))
		b := subRecipe("b", "B", 1, 0, sub("a", 1), ing("eggs", 1))
		return NewCatalog([]*models.Ingredient{flour, eggs}, []*models.SubRecipe{a, b}, nil)
	}

	t.Run("Cycle contributes nothing and is reported", func(t *testing.T) {
		r := NewResolver(cyclic())

		tags, err := r.SubRecipeTags("a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(models.Tags{"eggs", "gluten"}, tags.Allergens); diff != "" {
			t.Errorf("allergens mismatch (-want +got):\n%s", diff)
		}

		cost, _ := r.SubRecipeUnitCost("a")
		if !near(cost, 2.25) {
			t.Errorf("expected flour 2 + eggs 0.25, got %v", cost)
		}

		if diff := cmp.Diff([]string{"a"}, r.Cycles()); diff != "" {
			t.Errorf("cycles mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Self reference", func(t *testing.T) {
		c := cyclic()
		c.SubRecipes["a"].Items = []models.Item{sub("a", 1), ing("flour", 1)}

		b, err := NewResolver(c).SubRecipeBreakdown("a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !b.Lines[0].Cyclic || b.Lines[0].Cost != 0 {
			t.Errorf("expected cyclic zero-cost line, got %+v", b.Lines[0])
		}
		if !near(b.UnitCost, 2) {
			t.Errorf("expected only flour to count, got %v", b.UnitCost)
		}
		if diff := cmp.Diff([]string{"a"}, b.Cycles); diff != "" {
			t.Errorf("cycles mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Resolution terminates from every entry point", func(t *testing.T) {
		r := NewResolver(cyclic())
		for _, id := range []string{"a", "b", "a", "b"} {
			if _, err := r.SubRecipeTags(id); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if diff := cmp.Diff([]string{"a", "b"}, r.Cycles()); diff != "" {
			t.Errorf("cycles mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestWouldCycle(t *testing.T) {
	c := fixture()

	tc := []struct {
		name  string
		id    string
		items []models.Item
		want  bool
	}{
		{"ingredients only", "batter", []models.Item{ing("flour", 1)}, false},
		{"self", "batter", []models.Item{sub("batter", 1)}, true},
		{"indirect", "batter", []models.Item{sub("coated", 1)}, true},
		{"unrelated child", "coated", []models.Item{sub("batter", 1)}, false},
		{"unknown child", "coated", []models.Item{sub("ghost", 1)}, false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := WouldCycle(c, tt.id, tt.items); got != tt.want {
				t.Errorf("WouldCycle = %v, want %v", got, tt.want)
			}
		})
	}
}
