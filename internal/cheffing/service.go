package cheffing

import (
	"context"
	"fmt"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/repositories"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Service ties the costing repositories to the resolver.
type Service struct {
	Ingredients *repositories.IngredientRepository
	SubRecipes  *repositories.SubRecipeRepository
	Dishes      *repositories.DishRepository
	Pos         *repositories.PosRepository
}

// NewService creates a Service over the given repositories.
func NewService(
	ingredients *repositories.IngredientRepository,
	subRecipes *repositories.SubRecipeRepository,
	dishes *repositories.DishRepository,
	pos *repositories.PosRepository,
) *Service {
	return &Service{Ingredients: ingredients, SubRecipes: subRecipes, Dishes: dishes, Pos: pos}
}

// LoadCatalog reads every live ingredient, sub-recipe and dish.
func (s *Service) LoadCatalog(ctx context.Context) (*Catalog, error) {
	var (
		ingredients []*models.Ingredient
		subRecipes  []*models.SubRecipe
		dishes      []*models.Dish
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ingredients, err = s.Ingredients.List(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		subRecipes, err = s.SubRecipes.List(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		dishes, err = s.Dishes.List(gctx, nil)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return NewCatalog(ingredients, subRecipes, dishes), nil
}

// NewResolver loads the catalog and returns a fresh resolver over it.
func (s *Service) NewResolver(ctx context.Context) (*Resolver, error) {
	c, err := s.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return NewResolver(c), nil
}

// SaveSubRecipe creates or updates a sub-recipe, rejecting item lists that would form a cycle.
// The repository repeats the check inside the update transaction.
func (s *Service) SaveSubRecipe(ctx context.Context, sub *models.SubRecipe) error {
	if sub.ID != "" {
		c, err := s.LoadCatalog(ctx)
		if err != nil {
			return err
		}
		if WouldCycle(c, sub.ID, sub.Items) {
			return fmt.Errorf("%w: sub-recipe %s would contain itself", shared.ErrCycle, sub.Name)
		}
		return s.SubRecipes.Update(ctx, sub)
	}
	return s.SubRecipes.Create(ctx, sub)
}

// SalesSummary aggregates POS sales between from and to, costing each dish at its current recipe.
func (s *Service) SalesSummary(ctx context.Context, from, to string) ([]models.DishSales, error) {
	sales, err := s.Pos.SalesByDish(ctx, from, to)
	if err != nil {
		return nil, err
	}

	r, err := s.NewResolver(ctx)
	if err != nil {
		return nil, err
	}

	for i := range sales {
		row := &sales[i]
		if row.DishID == "" {
			continue
		}
		cost, err := r.DishCost(row.DishID)
		if err != nil {
			continue
		}
		row.Cost = row.Units * cost
		row.Margin = row.Revenue - row.Cost
	}
	return sales, nil
}
