package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type PriceStatus string

const (
	StatusLowest  PriceStatus = "lowest"
	StatusHighest PriceStatus = "highest"
	StatusNormal  PriceStatus = "normal"
)

// Supplier is one column of a comparison matrix. Date is an opaque label
// (usually dd/mm/yyyy) carried through to displays.
type Supplier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date,omitempty"`
}

// PriceEntry is a unit price with an optional date label. It decodes from a
// bare number, a numeric string or {"value": ..., "date": ...}.
type PriceEntry struct {
	Value decimal.Decimal `json:"value"`
	Date  string          `json:"date,omitempty"`
}

func (p *PriceEntry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*p = PriceEntry{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '{' {
		var v any
		if err := decodeNumber(b, &v); err != nil {
			return nil
		}
		p.Value = AmountFrom(v)
		return nil
	}
	var obj struct {
		Value any    `json:"value"`
		Date  string `json:"date"`
	}
	if err := decodeNumber(b, &obj); err != nil {
		return nil
	}
	p.Value = AmountFrom(obj.Value)
	p.Date = obj.Date
	return nil
}

// ComparisonRow is one article line of a family matrix. Prices are keyed by
// supplier id; a missing or non-positive price means "no quote".
type ComparisonRow struct {
	ID       string                `json:"id"`
	Article  string                `json:"article"`
	Quantity decimal.Decimal       `json:"quantity"`
	Unit     string                `json:"unit"`
	Prices   map[string]PriceEntry `json:"prices"`
}

// UnmarshalJSON also accepts the legacy "quantite"/"unite" keys and
// quantities sent as strings.
func (r *ComparisonRow) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       any                   `json:"id"`
		Article  string                `json:"article"`
		Quantity any                   `json:"quantity"`
		Quantite any                   `json:"quantite"`
		Unit     string                `json:"unit"`
		Unite    string                `json:"unite"`
		Prices   map[string]PriceEntry `json:"prices"`
	}
	if err := decodeNumber(b, &raw); err != nil {
		return err
	}
	qty := raw.Quantity
	if qty == nil {
		qty = raw.Quantite
	}
	unit := raw.Unit
	if unit == "" {
		unit = raw.Unite
	}
	*r = ComparisonRow{
		ID:       idString(raw.ID),
		Article:  raw.Article,
		Quantity: AmountFrom(qty),
		Unit:     unit,
		Prices:   raw.Prices,
	}
	return nil
}

// Price returns the entry quoted by the given supplier, if positive.
func (r ComparisonRow) Price(supplierID string) (PriceEntry, bool) {
	p, ok := r.Prices[supplierID]
	if !ok || !p.Value.IsPositive() {
		return PriceEntry{}, false
	}
	return p, true
}

// Family is a named price-comparison matrix.
type Family struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Rows      []ComparisonRow `json:"rows"`
	Suppliers []Supplier      `json:"suppliers"`
}

// RawFamily is a family as stored: rows and suppliers as JSON text.
type RawFamily struct {
	ID        int64
	Name      string
	Rows      string
	Suppliers string
}

// DecodeFamily decodes the stored JSON lists. A malformed list decodes to an
// empty one so a single corrupted family never breaks a listing.
func DecodeFamily(raw RawFamily) Family {
	f := Family{ID: raw.ID, Name: raw.Name}
	if strings.TrimSpace(raw.Rows) != "" {
		if err := json.Unmarshal([]byte(raw.Rows), &f.Rows); err != nil {
			f.Rows = nil
		}
	}
	if strings.TrimSpace(raw.Suppliers) != "" {
		if err := json.Unmarshal([]byte(raw.Suppliers), &f.Suppliers); err != nil {
			f.Suppliers = nil
		}
	}
	return f
}

// EncodeFamily is the inverse of DecodeFamily.
func EncodeFamily(f Family) (RawFamily, error) {
	rows := f.Rows
	if rows == nil {
		rows = []ComparisonRow{}
	}
	suppliers := f.Suppliers
	if suppliers == nil {
		suppliers = []Supplier{}
	}
	rb, err := json.Marshal(rows)
	if err != nil {
		return RawFamily{}, err
	}
	sb, err := json.Marshal(suppliers)
	if err != nil {
		return RawFamily{}, err
	}
	return RawFamily{ID: f.ID, Name: f.Name, Rows: string(rb), Suppliers: string(sb)}, nil
}

// StatusCell is one supplier's quote for a row with its classification.
type StatusCell struct {
	SupplierID string          `json:"supplier_id"`
	Price      decimal.Decimal `json:"price"`
	PriceDate  string          `json:"price_date,omitempty"`
	LineTotal  decimal.Decimal `json:"line_total"`
	Status     PriceStatus     `json:"status"`
}

type StatusRow struct {
	RowID    string          `json:"row_id"`
	Article  string          `json:"article"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Cells    []StatusCell    `json:"cells"`
}

// BestPrice is the cheapest quote found for one row.
type BestPrice struct {
	RowID        string          `json:"row_id"`
	Article      string          `json:"article"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Price        decimal.Decimal `json:"price"`
	PriceDate    string          `json:"price_date,omitempty"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

type BestPriceTable struct {
	Entries    []BestPrice     `json:"entries"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type SupplierTotal struct {
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Total        decimal.Decimal `json:"total"`
}

// Comparison gathers every derived view of one family matrix.
type Comparison struct {
	FamilyID       int64           `json:"family_id"`
	FamilyName     string          `json:"family_name"`
	Suppliers      []Supplier      `json:"suppliers"`
	Statuses       []StatusRow     `json:"statuses"`
	BestPrices     BestPriceTable  `json:"best_prices"`
	SupplierTotals []SupplierTotal `json:"supplier_totals"`
}

type QuoteLine struct {
	RowID    string          `json:"row_id"`
	Article  string          `json:"article"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

type QuoteGroup struct {
	SupplierName string      `json:"supplier_name"`
	Lines        []QuoteLine `json:"lines"`
}

// Quote is a purchase request split per supplier, in the order suppliers
// were first selected.
type Quote struct {
	FamilyID   int64        `json:"family_id"`
	FamilyName string       `json:"family_name"`
	Groups     []QuoteGroup `json:"groups"`
}

func (q Quote) Empty() bool {
	return len(q.Groups) == 0
}

// LineCount returns the number of lines across all groups.
func (q Quote) LineCount() int {
	n := 0
	for _, g := range q.Groups {
		n += len(g.Lines)
	}
	return n
}

func decodeNumber(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

func idString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return ""
	}
}
