package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// Allergens lists the fourteen allergens that must be declared on EU menus.
var Allergens = []string{
	"celery", "crustaceans", "eggs", "fish", "gluten", "lupin", "milk",
	"molluscs", "mustard", "nuts", "peanuts", "sesame", "soybeans", "sulphites",
}

// IsAllergen reports whether s is one of [Allergens].
func IsAllergen(s string) bool {
	_, found := slices.BinarySearch(Allergens, s)
	return found
}

// Tags is a sorted, duplicate-free set of lower-case labels. Stored as a JSON array.
type Tags []string

// NewTags normalises values into a [Tags] set.
func NewTags(values ...string) Tags {
	out := make(Tags, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Contains reports whether tag is in the set.
func (t Tags) Contains(tag string) bool {
	_, found := slices.BinarySearch(t, tag)
	return found
}

// Value implements [driver.Valuer].
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements [sql.Scanner].
func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into Tags", src)
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("failed to decode tags: %w", err)
	}
	*t = NewTags(values...)
	return nil
}

// Overrides are the manual tag adjustments applied on top of inherited tags.
type Overrides struct {
	AllergensAdd      Tags `json:"allergens_add" validate:"dive,allergen"`
	AllergensExclude  Tags `json:"allergens_exclude" validate:"dive,allergen"`
	IndicatorsAdd     Tags `json:"indicators_add" validate:"dive,tag"`
	IndicatorsExclude Tags `json:"indicators_exclude" validate:"dive,tag"`
}

func (o *Overrides) normalize() {
	o.AllergensAdd = NewTags(o.AllergensAdd...)
	o.AllergensExclude = NewTags(o.AllergensExclude...)
	o.IndicatorsAdd = NewTags(o.IndicatorsAdd...)
	o.IndicatorsExclude = NewTags(o.IndicatorsExclude...)
}

// Ingredient is a purchased raw material.
//
// Quantities used in recipes are expressed in the purchase unit.
type Ingredient struct {
	Meta
	Name             string  `json:"name" validate:"required,max=160"`
	PurchaseUnit     string  `json:"purchase_unit" validate:"required,oneof=kg g l ml unit"`
	PurchaseQuantity float64 `json:"purchase_quantity" validate:"gt=0"`
	PurchasePrice    float64 `json:"purchase_price" validate:"gte=0"`
	WastePct         float64 `json:"waste_pct" validate:"gte=0,lt=100"`
	Allergens        Tags    `json:"allergens" validate:"dive,allergen"`
	Indicators       Tags    `json:"indicators" validate:"dive,tag"`
}

// NewIngredient creates an ingredient without waste or tags.
func NewIngredient(name, unit string, quantity, price float64) *Ingredient {
	i := &Ingredient{
		Name:             name,
		PurchaseUnit:     unit,
		PurchaseQuantity: quantity,
		PurchasePrice:    price,
		Allergens:        Tags{},
		Indicators:       Tags{},
	}
	i.Touch(time.Now())
	return i
}

// Validate implements [Model].
func (i *Ingredient) Validate() error {
	i.Name = strings.TrimSpace(i.Name)
	i.Allergens = NewTags(i.Allergens...)
	i.Indicators = NewTags(i.Indicators...)
	return Validate(i)
}

// UnitCost is the price of one usable purchase unit after waste.
func (i *Ingredient) UnitCost() float64 {
	usable := i.PurchaseQuantity * (1 - i.WastePct/100)
	if usable <= 0 {
		return 0
	}
	return i.PurchasePrice / usable
}

// ItemKind tells whether an item line references an ingredient or a sub-recipe.
type ItemKind string

const (
	ItemIngredient ItemKind = "ingredient"
	ItemSubRecipe  ItemKind = "subrecipe"
)

// Item is one component line of a sub-recipe or dish. Exactly one of IngredientID and SubRecipeID is set.
type Item struct {
	ID           string  `json:"id,omitempty"`
	IngredientID string  `json:"ingredient_id,omitempty"`
	SubRecipeID  string  `json:"subrecipe_id,omitempty"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
}

// Kind reports which component the item references.
func (it Item) Kind() ItemKind {
	if it.SubRecipeID != "" {
		return ItemSubRecipe
	}
	return ItemIngredient
}

// ComponentID returns the referenced ingredient or sub-recipe ID.
func (it Item) ComponentID() string {
	if it.SubRecipeID != "" {
		return it.SubRecipeID
	}
	return it.IngredientID
}

func itemStructLevel(sl validator.StructLevel) {
	it := sl.Current().Interface().(Item)
	if (it.IngredientID == "") == (it.SubRecipeID == "") {
		sl.ReportError(it.IngredientID, "ingredient_id", "IngredientID", "exactlyone", "")
	}
}

// SubRecipe is an intermediate preparation made of ingredients and other sub-recipes.
//
// Its unit cost is the cost of its items divided by the usable yield.
type SubRecipe struct {
	Meta
	Name          string  `json:"name" validate:"required,max=160"`
	YieldQuantity float64 `json:"yield_quantity" validate:"gt=0"`
	YieldUnit     string  `json:"yield_unit" validate:"required,oneof=kg g l ml unit"`
	WastePct      float64 `json:"waste_pct" validate:"gte=0,lt=100"`
	Overrides
	Notes string `json:"notes" validate:"max=4000"`
	Items []Item `json:"items" validate:"dive"`
}

// NewSubRecipe creates an empty sub-recipe.
func NewSubRecipe(name string, yield float64, unit string) *SubRecipe {
	s := &SubRecipe{Name: name, YieldQuantity: yield, YieldUnit: unit, Items: []Item{}}
	s.Touch(time.Now())
	return s
}

// Validate implements [Model].
func (s *SubRecipe) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.Overrides.normalize()
	if err := Validate(s); err != nil {
		return err
	}
	for _, it := range s.Items {
		if it.SubRecipeID != "" && it.SubRecipeID == s.ID {
			return fmt.Errorf("%w: sub-recipe %s cannot contain itself", shared.ErrCycle, s.ID)
		}
	}
	return nil
}

// UsableYield is the yield after waste.
func (s *SubRecipe) UsableYield() float64 {
	return s.YieldQuantity * (1 - s.WastePct/100)
}

// Dish is a menu item sold to guests.
type Dish struct {
	Meta
	Name         string  `json:"name" validate:"required,max=160"`
	Category     string  `json:"category" validate:"max=80"`
	SellingPrice float64 `json:"selling_price" validate:"gte=0"`
	Overrides
	Active bool   `json:"active"`
	Items  []Item `json:"items" validate:"dive"`
}

// NewDish creates an active dish with no items.
func NewDish(name string, price float64) *Dish {
	d := &Dish{Name: name, SellingPrice: price, Active: true, Items: []Item{}}
	d.Touch(time.Now())
	return d
}

// Validate implements [Model].
func (d *Dish) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Overrides.normalize()
	return Validate(d)
}
