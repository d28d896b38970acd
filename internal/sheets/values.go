package sheets

import (
	"strings"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// AggregateValues lays an aggregate out as spreadsheet rows: a title, the
// scalar totals, then one block per non-empty bucket list. Amounts are
// written with three decimals so the sheet parses them as numbers.
func AggregateValues(agg core.Aggregate) [][]any {
	rows := [][]any{
		{"Aggregate", agg.Start.String(), agg.End.String()},
		{"Records", agg.RecordCount},
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
		rows = append(rows, []any{kv.label, core.FormatAmount(kv.amount)})
	}

	for _, c := range core.Categories() {
		buckets := agg.BucketsFor(c)
		if len(buckets) == 0 {
			continue
		}
		rows = append(rows, []any{}, []any{c.Title()})
		for _, b := range buckets {
			rows = append(rows, []any{b.Name, core.FormatAmount(b.Amount)})
		}
	}
	return rows
}

// ComparisonValues lays a comparison out as a matrix (one column per
// supplier, cheapest cells flagged with "*"), the supplier totals and the
// best price table.
func ComparisonValues(c core.Comparison) [][]any {
	header := []any{"Article", "Quantity", "Unit"}
	for _, s := range c.Suppliers {
		header = append(header, strings.TrimSpace(s.Name+" "+s.Date))
	}
	rows := [][]any{{"Comparison", c.FamilyName}, header}

	for _, sr := range c.Statuses {
		row := []any{sr.Article, sr.Quantity.String(), sr.Unit}
		for _, cell := range sr.Cells {
			row = append(row, priceCell(cell))
		}
		rows = append(rows, row)
	}

	totals := []any{"Total", "", ""}
	for _, st := range c.SupplierTotals {
		totals = append(totals, core.FormatAmount(st.Total))
	}
	rows = append(rows, totals, []any{}, []any{"Best prices"},
		[]any{"Article", "Quantity", "Unit", "Supplier", "Price", "Line total"})
	for _, b := range c.BestPrices.Entries {
		rows = append(rows, []any{b.Article, b.Quantity.String(), b.Unit, b.SupplierName,
			core.FormatAmount(b.Price), core.FormatAmount(b.LineTotal)})
	}
	rows = append(rows, []any{"Grand total", "", "", "", "", core.FormatAmount(c.BestPrices.GrandTotal)})
	return rows
}

func priceCell(cell core.StatusCell) string {
	if !cell.Price.IsPositive() {
		return ""
	}
	s := core.FormatAmount(cell.Price)
	if cell.Status == core.StatusLowest {
		s += " *"
	}
	return s
}
