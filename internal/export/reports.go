package export

import (
	"fmt"
	"strings"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// AggregateWorkbook renders a summary sheet with the scalar totals and one
// sheet per non-empty bucket category.
func AggregateWorkbook(agg core.Aggregate) (*Workbook, error) {
	w, err := newWorkbook("Summary")
	if err != nil {
		return nil, err
	}
	if err := w.writeAggregate(agg); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("aggregate workbook: %w", err)
	}
	return w, nil
}

func (w *Workbook) writeAggregate(agg core.Aggregate) error {
	s := w.sheet("Summary")
	if err := s.header("Period", agg.Start.String(), agg.End.String()); err != nil {
		return err
	}
	if err := s.put("Records", agg.RecordCount); err != nil {
		return err
	}
	for _, kv := range []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Cash revenue", agg.CashRevenue},
		{"Total expenses", agg.TotalExpenses},
		{"Net revenue", agg.NetRevenue},
		{"Card", agg.Card},
		{"Bank check", agg.BankCheck},
		{"Cash", agg.Cash},
		{"Meal vouchers", agg.MealVouchers},
		{"Offers", agg.Offers},
		{"General expenses", agg.TotalGeneralExpenses},
		{"Employee expenses", agg.TotalEmployeeExpenses},
	} {
		if err := s.put(kv.label, kv.amount); err != nil {
			return err
		}
	}
	if err := s.widths(24, 16, 16); err != nil {
		return err
	}

	used := map[string]bool{"summary": true}
	for _, c := range core.Categories() {
		buckets := agg.BucketsFor(c)
		if len(buckets) == 0 {
			continue
		}
		name := sheetName(c.Title(), used)
		if _, err := w.f.NewSheet(name); err != nil {
			return err
		}
		bs := w.sheet(name)
		if err := bs.header("Name", "Amount"); err != nil {
			return err
		}
		total := decimal.Zero
		for _, b := range buckets {
			if err := bs.put(b.Name, b.Amount); err != nil {
				return err
			}
			total = total.Add(b.Amount)
		}
		if err := bs.put("Total", total); err != nil {
			return err
		}
		if err := bs.widths(32, 16); err != nil {
			return err
		}
	}
	return nil
}

// ComparisonWorkbook renders the matrix with lowest/highest cells
// highlighted, supplier totals, and the best price table on its own sheet.
func ComparisonWorkbook(c core.Comparison) (*Workbook, error) {
	w, err := newWorkbook("Comparison")
	if err != nil {
		return nil, err
	}
	if err := w.writeComparison(c); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("comparison workbook: %w", err)
	}
	return w, nil
}

func (w *Workbook) writeComparison(c core.Comparison) error {
	s := w.sheet("Comparison")
	if err := s.header(c.FamilyName); err != nil {
		return err
	}
	header := []any{"Article", "Quantity", "Unit"}
	for _, sup := range c.Suppliers {
		header = append(header, strings.TrimSpace(sup.Name+" "+sup.Date))
	}
	if err := s.header(header...); err != nil {
		return err
	}

	for _, row := range c.Statuses {
		if err := s.set(1, row.Article, 0); err != nil {
			return err
		}
		if err := s.set(2, row.Quantity, 0); err != nil {
			return err
		}
		if err := s.set(3, row.Unit, 0); err != nil {
			return err
		}
		for i, cell := range row.Cells {
			if !cell.Price.IsPositive() {
				continue
			}
			if err := s.set(4+i, cell.Price, w.statusStyle(cell.Status)); err != nil {
				return err
			}
		}
		s.blank()
	}

	if err := s.set(1, "Total", w.styles.header); err != nil {
		return err
	}
	for i, st := range c.SupplierTotals {
		if err := s.set(4+i, st.Total, 0); err != nil {
			return err
		}
	}
	widths := []float64{32, 12, 10}
	for range c.Suppliers {
		widths = append(widths, 18)
	}
	if err := s.widths(widths...); err != nil {
		return err
	}

	if _, err := w.f.NewSheet("Best prices"); err != nil {
		return err
	}
	bs := w.sheet("Best prices")
	if err := bs.header("Article", "Quantity", "Unit", "Supplier", "Price", "Line total"); err != nil {
		return err
	}
	for _, b := range c.BestPrices.Entries {
		if err := bs.put(b.Article, b.Quantity, b.Unit, b.SupplierName, b.Price, b.LineTotal); err != nil {
			return err
		}
	}
	if err := bs.put("Grand total", "", "", "", "", c.BestPrices.GrandTotal); err != nil {
		return err
	}
	return bs.widths(32, 12, 10, 24, 14, 14)
}

func (w *Workbook) statusStyle(st core.PriceStatus) int {
	switch st {
	case core.StatusLowest:
		return w.styles.lowest
	case core.StatusHighest:
		return w.styles.highest
	default:
		return 0
	}
}

// QuoteWorkbook renders one sheet per supplier listing what to order from
// it. An empty quote yields a single sheet saying so.
func QuoteWorkbook(q core.Quote) (*Workbook, error) {
	used := map[string]bool{}
	first := "Quote"
	if !q.Empty() {
		first = sheetName(q.Groups[0].SupplierName, used)
	}
	w, err := newWorkbook(first)
	if err != nil {
		return nil, err
	}
	if err := w.writeQuote(q, first, used); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("quote workbook: %w", err)
	}
	return w, nil
}

func (w *Workbook) writeQuote(q core.Quote, first string, used map[string]bool) error {
	if q.Empty() {
		return w.sheet(first).put(q.FamilyName, "Nothing to order")
	}
	for i, g := range q.Groups {
		name := first
		if i > 0 {
			name = sheetName(g.SupplierName, used)
			if _, err := w.f.NewSheet(name); err != nil {
				return err
			}
		}
		s := w.sheet(name)
		if err := s.header(q.FamilyName, g.SupplierName); err != nil {
			return err
		}
		if err := s.header("Article", "Quantity", "Unit"); err != nil {
			return err
		}
		for _, l := range g.Lines {
			if err := s.put(l.Article, l.Quantity, l.Unit); err != nil {
				return err
			}
		}
		if err := s.widths(32, 12, 10); err != nil {
			return err
		}
	}
	return nil
}
