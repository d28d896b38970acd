// Package pricing compares supplier quotations for a family of articles and
// splits purchase requests across the cheapest suppliers.
package pricing

import (
	"fmt"
	"strings"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// minQuotes is the number of positive quotes a row needs before prices can
// be compared at all.
const minQuotes = 2

// Matrix is an immutable article × supplier price matrix. Only prices whose
// supplier is one of the matrix columns are taken into account.
type Matrix struct {
	rows      []core.ComparisonRow
	suppliers []core.Supplier
	rowIndex  map[string]int
}

type quote struct {
	supplier core.Supplier
	entry    core.PriceEntry
}

// NewMatrix validates the identifiers, supplier names and quantities of a
// family. Prices
// themselves are never rejected: missing or non-positive ones mean "no
// quote".
func NewMatrix(rows []core.ComparisonRow, suppliers []core.Supplier) (*Matrix, error) {
	seen := make(map[string]struct{}, len(suppliers))
	for i, s := range suppliers {
		if s.ID == "" {
			return nil, fmt.Errorf("supplier #%d: %w", i, core.ErrMissingID)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("supplier %q: %w", s.ID, core.ErrDuplicateSupplier)
		}
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("supplier %q has no name: %w", s.ID, core.ErrMissingID)
		}
		seen[s.ID] = struct{}{}
	}

	index := make(map[string]int, len(rows))
	for i, r := range rows {
		if r.ID == "" {
			return nil, fmt.Errorf("row #%d (%s): %w", i, r.Article, core.ErrMissingID)
		}
		if _, dup := index[r.ID]; dup {
			return nil, fmt.Errorf("row %q: %w", r.ID, core.ErrDuplicateRow)
		}
		if r.Quantity.IsNegative() {
			return nil, fmt.Errorf("row %q quantity %s: %w", r.ID, r.Quantity, core.ErrNegativeQuantity)
		}
		index[r.ID] = i
	}

	return &Matrix{
		rows:      append([]core.ComparisonRow(nil), rows...),
		suppliers: append([]core.Supplier(nil), suppliers...),
		rowIndex:  index,
	}, nil
}

func (m *Matrix) Suppliers() []core.Supplier {
	return append([]core.Supplier(nil), m.suppliers...)
}

func (m *Matrix) Row(id string) (core.ComparisonRow, bool) {
	i, ok := m.rowIndex[id]
	if !ok {
		return core.ComparisonRow{}, false
	}
	return m.rows[i], true
}

// quotes returns the positive quotes of a row in supplier column order.
func (m *Matrix) quotes(row core.ComparisonRow) []quote {
	out := make([]quote, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		if p, ok := row.Price(s.ID); ok {
			out = append(out, quote{supplier: s, entry: p})
		}
	}
	return out
}

// PriceStatus classifies one supplier's quote for a row.
func (m *Matrix) PriceStatus(rowID, supplierID string) (core.PriceStatus, error) {
	row, ok := m.Row(rowID)
	if !ok {
		return "", fmt.Errorf("row %q: %w", rowID, core.ErrUnknownRow)
	}
	return status(m.quotes(row), supplierID), nil
}

// status is lowest for every supplier matching the minimum and highest for
// every other quoting supplier. With fewer than two quotes, or for a
// supplier that did not quote, it is normal.
func status(quotes []quote, supplierID string) core.PriceStatus {
	if len(quotes) < minQuotes {
		return core.StatusNormal
	}
	var own *quote
	lowest := quotes[0].entry.Value
	for i := range quotes {
		q := &quotes[i]
		if q.entry.Value.LessThan(lowest) {
			lowest = q.entry.Value
		}
		if q.supplier.ID == supplierID {
			own = q
		}
	}
	if own == nil {
		return core.StatusNormal
	}
	if own.entry.Value.Equal(lowest) {
		return core.StatusLowest
	}
	return core.StatusHighest
}

// best returns the cheapest quote of a row; the first supplier in column
// order wins a tie.
func best(quotes []quote) (quote, bool) {
	if len(quotes) < minQuotes {
		return quote{}, false
	}
	winner := quotes[0]
	for _, q := range quotes[1:] {
		if q.entry.Value.LessThan(winner.entry.Value) {
			winner = q
		}
	}
	return winner, true
}

// StatusTable classifies every cell of the matrix. Cells without a quote
// carry a zero price and normal status.
func (m *Matrix) StatusTable() []core.StatusRow {
	out := make([]core.StatusRow, 0, len(m.rows))
	for _, row := range m.rows {
		qs := m.quotes(row)
		sr := core.StatusRow{
			RowID:    row.ID,
			Article:  row.Article,
			Quantity: row.Quantity,
			Unit:     row.Unit,
			Cells:    make([]core.StatusCell, 0, len(m.suppliers)),
		}
		for _, s := range m.suppliers {
			cell := core.StatusCell{SupplierID: s.ID, Price: decimal.Zero, LineTotal: decimal.Zero, Status: core.StatusNormal}
			if p, ok := row.Price(s.ID); ok {
				cell.Price = p.Value
				cell.PriceDate = p.Date
				cell.LineTotal = row.Quantity.Mul(p.Value)
				cell.Status = status(qs, s.ID)
			}
			sr.Cells = append(sr.Cells, cell)
		}
		out = append(out, sr)
	}
	return out
}

// SupplierTotal is the sum over all rows of quantity × the supplier's price,
// a missing price counting as zero.
func (m *Matrix) SupplierTotal(supplierID string) decimal.Decimal {
	total := decimal.Zero
	for _, row := range m.rows {
		if p, ok := row.Price(supplierID); ok {
			total = total.Add(row.Quantity.Mul(p.Value))
		}
	}
	return total
}

// SupplierTotals returns SupplierTotal for every column, in column order.
func (m *Matrix) SupplierTotals() []core.SupplierTotal {
	out := make([]core.SupplierTotal, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, core.SupplierTotal{
			SupplierID:   s.ID,
			SupplierName: s.Name,
			Total:        m.SupplierTotal(s.ID),
		})
	}
	return out
}

// BestPriceTable lists the winning quote of every comparable row. Rows with
// fewer than two quotes are left out.
func (m *Matrix) BestPriceTable() core.BestPriceTable {
	table := core.BestPriceTable{Entries: make([]core.BestPrice, 0), GrandTotal: decimal.Zero}
	for _, row := range m.rows {
		w, ok := best(m.quotes(row))
		if !ok {
			continue
		}
		line := row.Quantity.Mul(w.entry.Value)
		table.Entries = append(table.Entries, core.BestPrice{
			RowID:        row.ID,
			Article:      row.Article,
			Quantity:     row.Quantity,
			Unit:         row.Unit,
			SupplierID:   w.supplier.ID,
			SupplierName: w.supplier.Name,
			Price:        w.entry.Value,
			PriceDate:    w.entry.Date,
			LineTotal:    line,
		})
		table.GrandTotal = table.GrandTotal.Add(line)
	}
	return table
}
