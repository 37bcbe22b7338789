package web

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/formatter"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/server"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

const maxImportBytes = 10 << 20

// IngredientView is an ingredient with its cost per usable purchase unit.
type IngredientView struct {
	*models.Ingredient
	UnitCost float64 `json:"unit_cost"`
}

func (a *App) listIngredients(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{}
	if allergen := r.URL.Query().Get("allergen"); allergen != "" {
		criteria["allergen"] = allergen
	}

	list, err := a.Cheffing.Ingredients.List(r.Context(), criteria)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	costs, err := a.Cheffing.Ingredients.UnitCosts(r.Context())
	if err != nil {
		server.WriteError(w, err)
		return
	}

	views := make([]IngredientView, 0, len(list))
	for _, ing := range list {
		views = append(views, IngredientView{Ingredient: ing, UnitCost: costs[ing.ID]})
	}
	server.WriteJSON(w, http.StatusOK, views)
}

func (a *App) createIngredient(w http.ResponseWriter, r *http.Request) {
	var ing models.Ingredient
	if err := decode(w, r, &ing); err != nil {
		server.WriteError(w, err)
		return
	}
	ing.Meta = models.Meta{}

	if err := a.Cheffing.Ingredients.Create(r.Context(), &ing); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, IngredientView{Ingredient: &ing, UnitCost: ing.UnitCost()})
}

func (a *App) getIngredient(w http.ResponseWriter, r *http.Request) {
	ing, err := a.Cheffing.Ingredients.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, IngredientView{Ingredient: ing, UnitCost: ing.UnitCost()})
}

func (a *App) updateIngredient(w http.ResponseWriter, r *http.Request) {
	existing, err := a.Cheffing.Ingredients.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	ing := *existing
	if err := decode(w, r, &ing); err != nil {
		server.WriteError(w, err)
		return
	}
	ing.Meta = existing.Meta

	if err := a.Cheffing.Ingredients.Update(r.Context(), &ing); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, IngredientView{Ingredient: &ing, UnitCost: ing.UnitCost()})
}

func (a *App) deleteIngredient(w http.ResponseWriter, r *http.Request) {
	if err := a.Cheffing.Ingredients.Delete(r.Context(), r.PathValue("id")); err != nil {
		server.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) listSubRecipes(w http.ResponseWriter, r *http.Request) {
	list, err := a.Cheffing.SubRecipes.List(r.Context(), nil)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

func (a *App) createSubRecipe(w http.ResponseWriter, r *http.Request) {
	var sub models.SubRecipe
	if err := decode(w, r, &sub); err != nil {
		server.WriteError(w, err)
		return
	}
	sub.Meta = models.Meta{}
	if sub.Items == nil {
		sub.Items = []models.Item{}
	}

	if err := a.Cheffing.SaveSubRecipe(r.Context(), &sub); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, &sub)
}

func (a *App) getSubRecipe(w http.ResponseWriter, r *http.Request) {
	sub, err := a.Cheffing.SubRecipes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, sub)
}

func (a *App) updateSubRecipe(w http.ResponseWriter, r *http.Request) {
	existing, err := a.Cheffing.SubRecipes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	sub := *existing
	if err := decode(w, r, &sub); err != nil {
		server.WriteError(w, err)
		return
	}
	sub.Meta = existing.Meta

	if err := a.Cheffing.SaveSubRecipe(r.Context(), &sub); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, &sub)
}

// replaceSubRecipeItems swaps the whole item list of a sub-recipe.
func (a *App) replaceSubRecipeItems(w http.ResponseWriter, r *http.Request) {
	sub, err := a.Cheffing.SubRecipes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	items := []models.Item{}
	if err := decode(w, r, &items); err != nil {
		server.WriteError(w, err)
		return
	}
	sub.Items = items

	if err := a.Cheffing.SaveSubRecipe(r.Context(), sub); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, sub)
}

func (a *App) deleteSubRecipe(w http.ResponseWriter, r *http.Request) {
	if err := a.Cheffing.SubRecipes.Delete(r.Context(), r.PathValue("id")); err != nil {
		server.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) subRecipeBreakdown(w http.ResponseWriter, r *http.Request) {
	resolver, err := a.Cheffing.NewResolver(r.Context())
	if err != nil {
		server.WriteError(w, err)
		return
	}

	b, err := resolver.SubRecipeBreakdown(r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, b)
}

func (a *App) listDishes(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{}
	if category := r.URL.Query().Get("category"); category != "" {
		criteria["category"] = category
	}
	active, present, err := queryBool(r, "active")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	if present {
		criteria["active"] = active
	}

	list, err := a.Cheffing.Dishes.List(r.Context(), criteria)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

func (a *App) createDish(w http.ResponseWriter, r *http.Request) {
	dish := models.Dish{Active: true}
	if err := decode(w, r, &dish); err != nil {
		server.WriteError(w, err)
		return
	}
	dish.Meta = models.Meta{}
	if dish.Items == nil {
		dish.Items = []models.Item{}
	}

	if err := a.Cheffing.Dishes.Create(r.Context(), &dish); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, &dish)
}

func (a *App) getDish(w http.ResponseWriter, r *http.Request) {
	dish, err := a.Cheffing.Dishes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, dish)
}

func (a *App) updateDish(w http.ResponseWriter, r *http.Request) {
	existing, err := a.Cheffing.Dishes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	dish := *existing
	if err := decode(w, r, &dish); err != nil {
		server.WriteError(w, err)
		return
	}
	dish.Meta = existing.Meta

	if err := a.Cheffing.Dishes.Update(r.Context(), &dish); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, &dish)
}

func (a *App) replaceDishItems(w http.ResponseWriter, r *http.Request) {
	dish, err := a.Cheffing.Dishes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	items := []models.Item{}
	if err := decode(w, r, &items); err != nil {
		server.WriteError(w, err)
		return
	}
	dish.Items = items

	if err := a.Cheffing.Dishes.Update(r.Context(), dish); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, dish)
}

func (a *App) deleteDish(w http.ResponseWriter, r *http.Request) {
	if err := a.Cheffing.Dishes.Delete(r.Context(), r.PathValue("id")); err != nil {
		server.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) dishBreakdown(w http.ResponseWriter, r *http.Request) {
	resolver, err := a.Cheffing.NewResolver(r.Context())
	if err != nil {
		server.WriteError(w, err)
		return
	}

	b, err := resolver.DishBreakdown(r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, b)
}

// exportDish downloads the costing sheet of a dish as CSV or Markdown.
func (a *App) exportDish(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(formatter.FormatCSV)
	}
	format, err := formatter.ParseFormat(name)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	resolver, err := a.Cheffing.NewResolver(r.Context())
	if err != nil {
		server.WriteError(w, err)
		return
	}
	b, err := resolver.DishBreakdown(r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	data, err := formatter.ExportBreakdown(b, format)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	filename := shared.Slugify(b.Name) + "." + format.Extension()
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// importSales accepts a till export either as the "file" field of a multipart form or as the raw body.
func (a *App) importSales(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var (
		body  io.Reader = r.Body
		batch           = "api-" + a.Now().UTC().Format("20060102T150405")
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			server.WriteError(w, fmt.Errorf("%w: multipart field \"file\": %v", shared.ErrInvalidInput, err))
			return
		}
		defer file.Close()
		body = file
		batch += "-" + header.Filename
	}

	result, err := a.Engine.ImportSales(r.Context(), nil, body, batch)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	a.Logger.Info("imported sales",
		"batch", result.Batch, "sales", result.Sales, "invalid", len(result.Invalid), "user", userEmail(r))
	server.WriteJSON(w, http.StatusOK, result)
}

func (a *App) listProducts(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{}
	unlinked, _, err := queryBool(r, "unlinked")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	criteria["unlinked"] = unlinked

	list, err := a.Cheffing.Pos.ListProducts(r.Context(), criteria)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

type linkRequest struct {
	DishID string `json:"dish_id"`
}

func (a *App) linkProduct(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decode(w, r, &req); err != nil {
		server.WriteError(w, err)
		return
	}
	if req.DishID == "" {
		server.WriteError(w, fmt.Errorf("%w: dish_id is required", shared.ErrInvalidInput))
		return
	}

	id := r.PathValue("id")
	if err := a.Cheffing.Pos.Link(r.Context(), id, req.DishID); err != nil {
		server.WriteError(w, err)
		return
	}
	a.writeProduct(w, r, id)
}

func (a *App) unlinkProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.Cheffing.Pos.Unlink(r.Context(), id); err != nil {
		server.WriteError(w, err)
		return
	}
	a.writeProduct(w, r, id)
}

func (a *App) writeProduct(w http.ResponseWriter, r *http.Request, id string) {
	p, err := a.Cheffing.Pos.GetProduct(r.Context(), id)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, p)
}

func (a *App) autoLink(w http.ResponseWriter, r *http.Request) {
	result, err := a.Engine.AutoLink(r.Context(), nil)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, result)
}

// SalesSummaryView is the sales summary of a date range.
type SalesSummaryView struct {
	From   string             `json:"from"`
	To     string             `json:"to"`
	Dishes []models.DishSales `json:"dishes"`
}

// salesSummary reports per-dish sales between ?from= and ?to=, defaulting to the month to date.
func (a *App) salesSummary(w http.ResponseWriter, r *http.Request) {
	today := a.today()
	t, err := calendar.Parse(today)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	monthStart := calendar.Format(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC))

	from, err := queryDate(r, "from", monthStart)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	to, err := queryDate(r, "to", today)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	if to < from {
		server.WriteError(w, fmt.Errorf("%w: to is before from", shared.ErrInvalidArgument))
		return
	}

	sales, err := a.Cheffing.SalesSummary(r.Context(), from, to)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, SalesSummaryView{From: from, To: to, Dishes: sales})
}
