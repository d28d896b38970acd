package report

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	jan1  = core.NewDate(2024, 1, 1)
	jan31 = core.NewDate(2024, 1, 31)
)

func january() AggregateQuery { return AggregateQuery{Start: jan1, End: jan31} }

func TestAggregateSupplierAcrossDays(t *testing.T) {
	r := New(nil)
	records := []core.RawRecord{
		{Date: "2024-01-01", SupplierExpenses: `[{"supplier_name":"ACME","amount":100}]`},
		{Date: "2024-01-02", SupplierExpenses: `[{"supplier_name":"ACME","amount":50}]`},
	}
	agg, err := r.Aggregate(context.Background(), records, january())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(agg.Suppliers) != 1 || agg.Suppliers[0].Name != "ACME" || !agg.Suppliers[0].Amount.Equal(dec("150")) {
		t.Fatalf("suppliers = %+v", agg.Suppliers)
	}
	if !agg.Start.Equal(jan1.Time) || !agg.End.Equal(jan31.Time) {
		t.Fatalf("range not carried: %s..%s", agg.Start, agg.End)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	agg, err := New(nil).Aggregate(context.Background(), nil, january())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.RecordCount != 0 || !agg.CashRevenue.IsZero() || !agg.TotalGeneralExpenses.IsZero() || !agg.Offers.IsZero() {
		t.Fatalf("expected zeros, got %+v", agg)
	}
	for _, c := range core.Categories() {
		if b := agg.BucketsFor(c); len(b) != 0 {
			t.Fatalf("category %s not empty: %+v", c, b)
		}
	}
}

func TestAggregateRangeIsInclusive(t *testing.T) {
	records := []core.RawRecord{
		{Date: "2023-12-31", CashRevenue: "1"},
		{Date: "2024-01-01", CashRevenue: "10"},
		{Date: "2024-01-31", CashRevenue: "100"},
		{Date: "2024-02-01", CashRevenue: "1000"},
	}
	agg, err := New(nil).Aggregate(context.Background(), records, january())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.RecordCount != 2 || !agg.CashRevenue.Equal(dec("110")) {
		t.Fatalf("got %d records, revenue %s", agg.RecordCount, agg.CashRevenue)
	}
}

func TestAggregateNameFilter(t *testing.T) {
	records := []core.RawRecord{{
		Date:             "2024-01-03",
		SupplierExpenses: `[{"supplier":"Fresh Fish","amount":40},{"supplier":"Bakery","amount":15}]`,
		MiscExpenses:     `[{"designation":"fish tank","amount":5}]`,
	}}
	q := january()
	q.NameFilter = "FISH"
	agg, err := New(nil).Aggregate(context.Background(), records, q)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(agg.Suppliers) != 1 || len(agg.Misc) != 1 || !agg.TotalGeneralExpenses.Equal(dec("45")) {
		t.Fatalf("filtered aggregate = %+v", agg)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	r := New(nil)
	records := []core.RawRecord{
		{Date: "2024-01-02", CashRevenue: "12,5", SupplierExpenses: `[{"supplier":"A","amount":3}]`},
		{Date: "2024-01-01", OfferItems: `[{"name":"Promo","amount":2}]`},
	}
	a, err := r.Aggregate(context.Background(), records, january())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	b, _ := r.Aggregate(context.Background(), records, january())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("results differ:\n%+v\n%+v", a, b)
	}
}

func TestAggregateCallerErrors(t *testing.T) {
	r := New(nil)
	if _, err := r.Aggregate(context.Background(), nil, AggregateQuery{Start: jan31, End: jan1}); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	dup := []core.RawRecord{{Date: "2024-01-05"}, {Date: "2024-01-05T12:00:00Z"}}
	if _, err := r.Aggregate(context.Background(), dup, january()); !errors.Is(err, core.ErrDuplicateDate) {
		t.Fatalf("expected ErrDuplicateDate, got %v", err)
	}
}

func TestAggregateIgnoresDuplicatesOutsideRange(t *testing.T) {
	records := []core.RawRecord{
		{Date: "2023-12-31", CashRevenue: "5"},
		{Date: "2023-12-31", CashRevenue: "7"},
		{Date: "2024-01-03", CashRevenue: "10"},
	}
	agg, err := New(nil).Aggregate(context.Background(), records, january())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.RecordCount != 1 || !agg.CashRevenue.Equal(dec("10")) {
		t.Fatalf("aggregate = %+v", agg)
	}
}

func TestAggregateSkipsUndatedRecords(t *testing.T) {
	records := []core.RawRecord{{Date: "", CashRevenue: "99"}, {Date: "2024-01-04", CashRevenue: "1"}}
	agg, err := New(nil).Aggregate(context.Background(), records, january())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.RecordCount != 1 || !agg.CashRevenue.Equal(dec("1")) {
		t.Fatalf("aggregate = %+v", agg)
	}
}

func TestSeriesAndDrilldown(t *testing.T) {
	r := New(nil)
	records := []core.RawRecord{
		{Date: "2024-01-09", CashRevenue: "30", NetRevenue: "10", EmployeePayments: map[core.PaymentKind]string{
			core.PaymentBonus: `[{"employee_name":"Lina","amount":20}]`,
		}},
		{Date: "2024-01-02", CashRevenue: "50", NetRevenue: "20", EmployeePayments: map[core.PaymentKind]string{
			core.PaymentBonus: `[{"employee_name":"Lina","amount":5},{"employee_name":"Sami","amount":7}]`,
		}},
	}
	s, err := r.Series(context.Background(), records, SeriesQuery{Start: jan1, End: jan31, Granularity: core.GranularityMonth})
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(s.Periods) != 1 || !s.Periods[0].CashRevenue.Equal(dec("80")) {
		t.Fatalf("series = %+v", s)
	}
	if _, err := r.Series(context.Background(), records, SeriesQuery{Start: jan1, End: jan31, Granularity: "week"}); !errors.Is(err, core.ErrUnknownGranularity) {
		t.Fatalf("expected ErrUnknownGranularity, got %v", err)
	}

	items, err := r.Drilldown(context.Background(), records, DrilldownQuery{Start: jan1, End: jan31, Category: core.PaymentBonus.Category(), Name: "Lina"})
	if err != nil {
		t.Fatalf("Drilldown: %v", err)
	}
	if len(items) != 2 || items[0].Date.String() != "2024-01-02" {
		t.Fatalf("items = %+v", items)
	}
	if _, err := r.Drilldown(context.Background(), records, DrilldownQuery{Start: jan1, End: jan31, Category: "rent"}); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func family() core.Family {
	price := func(v string) core.PriceEntry { return core.PriceEntry{Value: dec(v)} }
	return core.Family{
		ID:        1,
		Name:      "Bakery",
		Suppliers: []core.Supplier{{ID: "S1", Name: "Alpha"}, {ID: "S2", Name: "Beta"}},
		Rows: []core.ComparisonRow{
			{ID: "r1", Article: "Flour", Quantity: dec("5"), Unit: "kg", Prices: map[string]core.PriceEntry{"S1": price("10.000"), "S2": price("8.000")}},
			{ID: "r2", Article: "Butter", Quantity: dec("2"), Unit: "kg", Prices: map[string]core.PriceEntry{"S1": price("7"), "S2": price("6.5")}},
			{ID: "r3", Article: "Yeast", Quantity: dec("1"), Unit: "kg", Prices: map[string]core.PriceEntry{"S1": price("10")}},
		},
	}
}

func TestComparison(t *testing.T) {
	c, err := New(nil).Comparison(context.Background(), family())
	if err != nil {
		t.Fatalf("Comparison: %v", err)
	}
	if len(c.Statuses) != 3 || c.Statuses[0].Cells[1].Status != core.StatusLowest || c.Statuses[2].Cells[0].Status != core.StatusNormal {
		t.Fatalf("statuses = %+v", c.Statuses)
	}
	if len(c.BestPrices.Entries) != 2 || !c.BestPrices.Entries[0].LineTotal.Equal(dec("40")) {
		t.Fatalf("best prices = %+v", c.BestPrices)
	}
	if !c.BestPrices.GrandTotal.Equal(dec("53")) {
		t.Fatalf("grand total = %s", c.BestPrices.GrandTotal)
	}
	if !c.SupplierTotals[0].Total.Equal(dec("74")) || !c.SupplierTotals[1].Total.Equal(dec("53")) {
		t.Fatalf("supplier totals = %+v", c.SupplierTotals)
	}
}

func TestQuote(t *testing.T) {
	r := New(nil)
	q, err := r.Quote(context.Background(), family(), map[string]decimal.Decimal{"r1": dec("2"), "r2": dec("1"), "r3": dec("9")})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(q.Groups) != 1 || q.Groups[0].SupplierName != "Beta" || len(q.Groups[0].Lines) != 2 {
		t.Fatalf("quote = %+v", q)
	}

	empty, err := r.Quote(context.Background(), family(), map[string]decimal.Decimal{"r3": dec("1")})
	if err != nil || !empty.Empty() {
		t.Fatalf("expected empty quote, got %+v, %v", empty, err)
	}

	if _, err := r.Quote(context.Background(), family(), map[string]decimal.Decimal{"r1": dec("-2")}); !errors.Is(err, core.ErrNegativeQuantity) {
		t.Fatalf("expected ErrNegativeQuantity, got %v", err)
	}
}
