package models

import (
	"strings"
	"time"
)

// LinkMode records how a POS product got attached to a dish.
type LinkMode string

const (
	LinkNone   LinkMode = ""
	LinkManual LinkMode = "manual"
	LinkAuto   LinkMode = "auto"
)

// PosProduct is a product line as it appears in the till export.
type PosProduct struct {
	Meta
	ExternalCode string   `json:"external_code" validate:"required,max=80"`
	Name         string   `json:"name" validate:"required,max=200"`
	DishID       string   `json:"dish_id,omitempty"`
	LinkMode     LinkMode `json:"link_mode" validate:"omitempty,oneof=manual auto"`
}

// NewPosProduct creates an unlinked product.
func NewPosProduct(code, name string) *PosProduct {
	p := &PosProduct{ExternalCode: strings.TrimSpace(code), Name: strings.TrimSpace(name)}
	p.Touch(time.Now())
	return p
}

// Validate implements [Model].
func (p *PosProduct) Validate() error {
	return Validate(p)
}

// IsLinked reports whether the product maps to a dish.
func (p *PosProduct) IsLinked() bool {
	return p.DishID != ""
}

// PosSale is the quantity and gross amount sold of one product on one day.
type PosSale struct {
	ProductID   string  `json:"product_id" validate:"required"`
	SoldOn      string  `json:"sold_on" validate:"required,isodate"`
	Quantity    float64 `json:"quantity"`
	GrossAmount float64 `json:"gross_amount"`
	ImportBatch string  `json:"import_batch"`
}

// DishSales aggregates linked sales for one dish over a period.
type DishSales struct {
	DishID   string  `json:"dish_id"`
	DishName string  `json:"dish_name"`
	Units    float64 `json:"units"`
	Revenue  float64 `json:"revenue"`
	Cost     float64 `json:"cost"`
	Margin   float64 `json:"margin"`
}
