package tasks

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

type column int

const (
	colDate column = iota
	colCode
	colName
	colQuantity
	colTotal
)

// headerAliases maps normalised header names to columns. English and Spanish till exports are accepted.
var headerAliases = map[string]column{
	"date":        colDate,
	"day":         colDate,
	"fecha":       colDate,
	"dia":         colDate,
	"code":        colCode,
	"sku":         colCode,
	"ref":         colCode,
	"codigo":      colCode,
	"referencia":  colCode,
	"name":        colName,
	"product":     colName,
	"producto":    colName,
	"articulo":    colName,
	"descripcion": colName,
	"quantity":    colQuantity,
	"qty":         colQuantity,
	"units":       colQuantity,
	"cantidad":    colQuantity,
	"unidades":    colQuantity,
	"uds":         colQuantity,
	"total":       colTotal,
	"amount":      colTotal,
	"gross":       colTotal,
	"importe":     colTotal,
	"venta":       colTotal,
}

// SalesRow is one valid line of a till export.
type SalesRow struct {
	Line     int     `json:"line"`
	Date     string  `json:"date"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// RowError reports a skipped line of a till export.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ParseSalesCSV reads a till export with a header row.
//
// The separator (comma or semicolon) is taken from the header line. Dates may be YYYY-MM-DD or
// DD/MM/YYYY and numbers may use a decimal comma. Without a code column the product name is the code.
// Invalid lines are returned as [RowError] values and skipped.
func ParseSalesCSV(r io.Reader) ([]SalesRow, []RowError, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sales file: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = sniffSeparator(raw)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: sales file is empty", shared.ErrInvalidInput)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read header: %v", shared.ErrInvalidInput, err)
	}

	cols, err := mapHeader(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		rows    []SalesRow
		invalid []RowError
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				invalid = append(invalid, RowError{Line: perr.StartLine, Message: perr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("failed to read sales file: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if blankRecord(record) {
			continue
		}

		row, err := parseRecord(record, cols)
		if err != nil {
			invalid = append(invalid, RowError{Line: line, Message: err.Error()})
			continue
		}
		row.Line = line
		rows = append(rows, row)
	}

	return rows, invalid, nil
}

func sniffSeparator(raw []byte) rune {
	first, _, _ := bytes.Cut(raw, []byte("\n"))
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func mapHeader(header []string) (map[column]int, error) {
	cols := map[column]int{}
	for i, h := range header {
		c, ok := headerAliases[shared.NormalizeName(h)]
		if !ok {
			continue
		}
		if _, dup := cols[c]; !dup {
			cols[c] = i
		}
	}

	var missing []string
	for c, name := range map[column]string{colDate: "date", colName: "name", colQuantity: "quantity"} {
		if _, ok := cols[c]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: sales file header lacks %s", shared.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return cols, nil
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseRecord(record []string, cols map[column]int) (SalesRow, error) {
	field := func(c column) string {
		i, ok := cols[c]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var row SalesRow
	var err error

	if row.Date, err = ParseSalesDate(field(colDate)); err != nil {
		return row, err
	}

	row.Name = field(colName)
	if row.Name == "" {
		return row, fmt.Errorf("product name is empty")
	}

	row.Code = field(colCode)
	if row.Code == "" {
		row.Code = shared.NormalizeName(row.Name)
	}

	if row.Quantity, err = ParseDecimal(field(colQuantity)); err != nil {
		return row, fmt.Errorf("quantity: %w", err)
	}

	if total := field(colTotal); total != "" {
		if row.Amount, err = ParseDecimal(total); err != nil {
			return row, fmt.Errorf("total: %w", err)
		}
	}
	return row, nil
}

// ParseSalesDate accepts YYYY-MM-DD and DD/MM/YYYY and returns YYYY-MM-DD.
func ParseSalesDate(s string) (string, error) {
	for _, layout := range []string{models.DateLayout, "2/1/2006", "2-1-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return models.FormatDate(t), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", s)
}

// ParseDecimal parses a number written with either a decimal point or a decimal comma.
//
// When both separators appear, the last one is the decimal separator. Currency signs and spaces are ignored.
func ParseDecimal(s string) (float64, error) {
	s = strings.NewReplacer("€", "", "$", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot > comma && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// Link is a product attached to a dish by the auto-linker.
type Link struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	DishID      string `json:"dish_id"`
	DishName    string `json:"dish_name"`
}

// LinkResult contains the outcome of an auto-link run.
type LinkResult struct {
	Linked    []Link   `json:"linked"`
	Ambiguous []string `json:"ambiguous"` // product names matching several dishes
	Unmatched int      `json:"unmatched"`
}

// ImportResult contains the outcome of a sales import.
type ImportResult struct {
	Batch           string      `json:"batch"`
	Rows            int         `json:"rows"`
	Sales           int         `json:"sales"`
	ProductsCreated int         `json:"products_created"`
	Invalid         []RowError  `json:"invalid"`
	Links           *LinkResult `json:"links"`
}

type saleKey struct {
	code string
	date string
}

// ImportSales parses a till export, stores its sales and auto-links new products.
//
// Lines for the same product and day are summed. Each (product, day) replaces any earlier import of it.
func (e *Engine) ImportSales(ctx context.Context, progress chan<- ProgressUpdate, r io.Reader, batch string) (*ImportResult, error) {
	if e.sales == nil {
		return nil, fmt.Errorf("%w: sales import is not configured", shared.ErrServiceUnavailable)
	}

	rows, invalid, err := ParseSalesCSV(r)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, parseSalesUpdate(len(rows), len(invalid)))
	salesRows.WithLabelValues("invalid").Add(float64(len(invalid)))

	var (
		order  []saleKey
		merged = map[saleKey]*SalesRow{}
	)
	for _, row := range rows {
		k := saleKey{code: row.Code, date: row.Date}
		if m, ok := merged[k]; ok {
			m.Quantity += row.Quantity
			m.Amount += row.Amount
			continue
		}
		merged[k] = &row
		order = append(order, k)
	}

	result := &ImportResult{Batch: batch, Rows: len(rows), Invalid: invalid}
	if result.Invalid == nil {
		result.Invalid = []RowError{}
	}

	for i, k := range order {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		row := merged[k]
		product, created, err := e.sales.UpsertProduct(ctx, row.Code, row.Name)
		if err != nil {
			return result, fmt.Errorf("line %d: %w", row.Line, err)
		}
		if created {
			result.ProductsCreated++
		}

		sale := &models.PosSale{
			ProductID:   product.ID,
			SoldOn:      row.Date,
			Quantity:    row.Quantity,
			GrossAmount: row.Amount,
			ImportBatch: batch,
		}
		if err := e.sales.UpsertSale(ctx, sale); err != nil {
			return result, fmt.Errorf("line %d: %w", row.Line, err)
		}

		result.Sales++
		salesRows.WithLabelValues("imported").Inc()
		e.sendProgress(progress, importSaleUpdate(i+1, len(order), *row))
	}

	if e.dishes != nil {
		links, err := e.AutoLink(ctx, progress)
		if err != nil {
			return result, err
		}
		result.Links = links
	}

	return result, nil
}

// AutoLink links every unlinked product whose normalised name matches exactly one dish.
//
// Manually linked products are never touched.
func (e *Engine) AutoLink(ctx context.Context, progress chan<- ProgressUpdate) (*LinkResult, error) {
	if e.sales == nil || e.dishes == nil {
		return nil, fmt.Errorf("%w: auto-linking is not configured", shared.ErrServiceUnavailable)
	}

	dishes, err := e.dishes.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load dishes: %w", err)
	}

	byName := map[string][]*models.Dish{}
	for _, d := range dishes {
		key := shared.NormalizeName(d.Name)
		byName[key] = append(byName[key], d)
	}

	products, err := e.sales.ListProducts(ctx, map[string]any{"unlinked": true})
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	result := &LinkResult{Linked: []Link{}, Ambiguous: []string{}}
	for i, p := range products {
		if p.LinkMode == models.LinkManual {
			continue
		}

		matches := byName[shared.NormalizeName(p.Name)]
		switch len(matches) {
		case 0:
			result.Unmatched++
			continue
		case 1:
		default:
			result.Ambiguous = append(result.Ambiguous, p.Name)
			continue
		}

		linked, err := e.sales.AutoLink(ctx, p.ID, matches[0].ID)
		if err != nil {
			return result, err
		}
		if !linked {
			continue
		}

		l := Link{ProductID: p.ID, ProductName: p.Name, DishID: matches[0].ID, DishName: matches[0].Name}
		result.Linked = append(result.Linked, l)
		autoLinks.Inc()
		e.sendProgress(progress, linkProductUpdate(i+1, len(products), l))
	}

	return result, nil
}
