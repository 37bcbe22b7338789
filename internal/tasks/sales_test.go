package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/repositories"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

func TestParseSalesCSV(t *testing.T) {
	t.Run("English export", func(t *testing.T) {
		data := "Date,Code,Product,Qty,Total\n" +
			"2026-07-14,P1,Patatas Bravas,3,18.00\n" +
			"\n" +
			"2026-07-14,P2,Crema Catalana,2,11.50\n"

		rows, invalid, err := ParseSalesCSV(strings.NewReader(data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []SalesRow{
			{Line: 2, Date: "2026-07-14", Code: "P1", Name: "Patatas Bravas", Quantity: 3, Amount: 18},
			{Line: 4, Date: "2026-07-14", Code: "P2", Name: "Crema Catalana", Quantity: 2, Amount: 11.5},
		}
		if diff := cmp.Diff(want, rows); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}
		if len(invalid) != 0 {
			t.Errorf("expected no invalid lines, got %v", invalid)
		}
	})

	t.Run("Spanish export with semicolons", func(t *testing.T) {
		data := "\ufeffFecha;Artículo;Unidades;Importe\n" +
			"14/07/2026;Croquetas de jamón;4;\"1.234,50 €\"\n" +
			"32/07/2026;Croquetas de jamón;1;6\n" +
			"15/07/2026;;1;6\n" +
			"15/07/2026;Pan;dos;2\n"

		rows, invalid, err := ParseSalesCSV(strings.NewReader(data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []SalesRow{
			{Line: 2, Date: "2026-07-14", Code: "croquetas de jamon", Name: "Croquetas de jamón", Quantity: 4, Amount: 1234.5},
		}
		if diff := cmp.Diff(want, rows); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}

		lines := []int{}
		for _, e := range invalid {
			lines = append(lines, e.Line)
		}
		if diff := cmp.Diff([]int{3, 4, 5}, lines); diff != "" {
			t.Errorf("invalid lines mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Missing columns", func(t *testing.T) {
		_, _, err := ParseSalesCSV(strings.NewReader("Fecha,Total\n2026-07-14,3\n"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if !strings.Contains(err.Error(), "name, quantity") {
			t.Errorf("expected missing columns in message, got %q", err)
		}
	})

	t.Run("Empty file", func(t *testing.T) {
		if _, _, err := ParseSalesCSV(strings.NewReader("")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		err  bool
	}{
		{in: "3", want: 3},
		{in: "2,5", want: 2.5},
		{in: "2.5", want: 2.5},
		{in: "1.234,56", want: 1234.56},
		{in: "1,234.56", want: 1234.56},
		{in: "12,00 €", want: 12},
		{in: "-1", want: -1},
		{in: "", err: true},
		{in: "abc", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimal(tt.in)
			if (err != nil) != tt.err {
				t.Fatalf("ParseDecimal(%q) error = %v, want error %v", tt.in, err, tt.err)
			}
			if got != tt.want {
				t.Errorf("ParseDecimal(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSalesDate(t *testing.T) {
	for in, want := range map[string]string{
		"2026-07-14": "2026-07-14",
		"14/07/2026": "2026-07-14",
		"4/7/2026":   "2026-07-04",
		"14-07-2026": "2026-07-14",
	} {
		got, err := ParseSalesDate(in)
		if err != nil || got != want {
			t.Errorf("ParseSalesDate(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseSalesDate("07/14/2026"); err == nil {
		t.Error("expected month 14 to be rejected")
	}
}

func TestImportSales(t *testing.T) {
	ctx := context.Background()

	t.Run("Merges, links and re-imports", func(t *testing.T) {
		db := setupTestDB(t)
		engine := newTestEngine(db)
		dishes := repositories.NewDishRepository(db)
		pos := repositories.NewPosRepository(db)

		bravas := models.NewDish("Patatas bravas", 6)
		for _, d := range []*models.Dish{bravas, models.NewDish("Flan", 4), models.NewDish("FLAN", 4.5)} {
			if err := dishes.Create(ctx, d); err != nil {
				t.Fatal(err)
			}
		}

		data := "fecha;codigo;producto;cantidad;total\n" +
			"14/07/2026;B1;PATATAS BRAVAS;2;12\n" +
			"14/07/2026;B1;PATATAS BRAVAS;1;6\n" +
			"14/07/2026;F1;Flan;1;4\n" +
			"14/07/2026;X1;Café;5;7,5\n" +
			"bad;X1;Café;5;7,5\n"

		progress := make(chan ProgressUpdate, 50)
		result, err := engine.ImportSales(ctx, progress, strings.NewReader(data), "batch-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Rows != 4 || result.Sales != 3 || result.ProductsCreated != 3 || len(result.Invalid) != 1 {
			t.Errorf("unexpected import counts: %+v", result)
		}
		if result.Links == nil || len(result.Links.Linked) != 1 || result.Links.Linked[0].DishID != bravas.ID {
			t.Fatalf("expected bravas to be auto-linked, got %+v", result.Links)
		}
		if diff := cmp.Diff([]string{"Flan"}, result.Links.Ambiguous); diff != "" {
			t.Errorf("ambiguous mismatch (-want +got):\n%s", diff)
		}
		if result.Links.Unmatched != 1 {
			t.Errorf("expected one unmatched product, got %d", result.Links.Unmatched)
		}

		summary, err := pos.SalesByDish(ctx, "2026-07-14", "2026-07-14")
		if err != nil {
			t.Fatal(err)
		}
		var linked models.DishSales
		for _, s := range summary {
			if s.DishID == bravas.ID {
				linked = s
			}
		}
		if linked.Units != 3 || linked.Revenue != 18 {
			t.Errorf("expected merged bravas sales 3/18, got %+v", linked)
		}

		again, err := engine.ImportSales(ctx, nil, strings.NewReader(data), "batch-2")
		if err != nil {
			t.Fatal(err)
		}
		if again.ProductsCreated != 0 || len(again.Links.Linked) != 0 {
			t.Errorf("expected re-import to reuse products, got %+v", again)
		}

		summary, _ = pos.SalesByDish(ctx, "2026-07-14", "2026-07-14")
		for _, s := range summary {
			if s.DishID == bravas.ID && s.Units != 3 {
				t.Errorf("expected re-import to replace sales, got %v units", s.Units)
			}
		}
	})

	t.Run("Manual links are kept", func(t *testing.T) {
		db := setupTestDB(t)
		engine := newTestEngine(db)
		dishes := repositories.NewDishRepository(db)
		pos := repositories.NewPosRepository(db)

		flan := models.NewDish("Flan", 4)
		tarta := models.NewDish("Tarta de queso", 5)
		for _, d := range []*models.Dish{flan, tarta} {
			if err := dishes.Create(ctx, d); err != nil {
				t.Fatal(err)
			}
		}

		product, _, err := pos.UpsertProduct(ctx, "F1", "Flan")
		if err != nil {
			t.Fatal(err)
		}
		if err := pos.Link(ctx, product.ID, tarta.ID); err != nil {
			t.Fatal(err)
		}

		links, err := engine.AutoLink(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(links.Linked) != 0 {
			t.Errorf("expected no auto links, got %+v", links.Linked)
		}

		got, err := pos.GetProduct(ctx, product.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.DishID != tarta.ID || got.LinkMode != models.LinkManual {
			t.Errorf("manual link changed: %+v", got)
		}
	})

	t.Run("Not configured", func(t *testing.T) {
		engine := NewEngine(nil, nil, nil, nil)
		if _, err := engine.ImportSales(ctx, nil, strings.NewReader(""), ""); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if _, err := engine.AutoLink(ctx, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
