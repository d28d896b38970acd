package pricing

import (
	"fmt"
	"sort"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// BuildQuote assigns every requested row to its cheapest supplier and groups
// the lines by supplier name. Columns sharing a name (one supplier quoted on
// several dates) therefore share a group. Rows are visited in matrix order
// and groups keep the order in which suppliers were first chosen.
//
// Rows that cannot be compared and zero quantities are skipped silently; an
// empty result means there is nothing to order. Negative quantities and
// unknown or blank row ids are caller errors.
func BuildQuote(m *Matrix, quantities map[string]decimal.Decimal) ([]core.QuoteGroup, error) {
	ids := make([]string, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("quantity without row id: %w", core.ErrMissingID)
		}
		if _, ok := m.Row(id); !ok {
			return nil, fmt.Errorf("row %q: %w", id, core.ErrUnknownRow)
		}
		if q := quantities[id]; q.IsNegative() {
			return nil, fmt.Errorf("row %q quantity %s: %w", id, q, core.ErrNegativeQuantity)
		}
	}

	groups := make([]core.QuoteGroup, 0)
	index := make(map[string]int)
	for _, row := range m.rows {
		qty, ok := quantities[row.ID]
		if !ok || !qty.IsPositive() {
			continue
		}
		w, ok := best(m.quotes(row))
		if !ok {
			continue
		}
		i, seen := index[w.supplier.Name]
		if !seen {
			i = len(groups)
			index[w.supplier.Name] = i
			groups = append(groups, core.QuoteGroup{SupplierName: w.supplier.Name})
		}
		groups[i].Lines = append(groups[i].Lines, core.QuoteLine{
			RowID:    row.ID,
			Article:  row.Article,
			Quantity: qty,
			Unit:     row.Unit,
		})
	}
	return groups, nil
}
