package pricing

import (
	"errors"
	"reflect"
	"testing"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

func quoteMatrix(t *testing.T) *Matrix {
	return mustMatrix(t, []core.ComparisonRow{
		row("r1", "Flour", "5", map[string]string{"S1": "10", "S2": "8"}),
		row("r2", "Sugar", "1", map[string]string{"S1": "3", "S2": "2.5"}),
		row("r3", "Salt", "1", map[string]string{"S1": "1"}),
	}, twoSuppliers)
}

func TestBuildQuoteGroupsBySupplier(t *testing.T) {
	groups, err := BuildQuote(quoteMatrix(t), map[string]decimal.Decimal{
		"r1": dec("3"),
		"r2": dec("7"),
		"r3": dec("4"),
	})
	if err != nil {
		t.Fatalf("BuildQuote: %v", err)
	}
	if len(groups) != 1 || groups[0].SupplierName != "Beta" {
		t.Fatalf("groups = %+v", groups)
	}
	lines := groups[0].Lines
	if len(lines) != 2 || lines[0].RowID != "r1" || lines[1].RowID != "r2" || !lines[1].Quantity.Equal(dec("7")) {
		t.Fatalf("lines = %+v", lines)
	}
}

func TestBuildQuoteMergesColumnsOfOneSupplier(t *testing.T) {
	suppliers := []core.Supplier{
		{ID: "S1", Name: "Alpha", Date: "01/01/2024"},
		{ID: "S2", Name: "Beta"},
		{ID: "S3", Name: "Alpha", Date: "01/02/2024"},
	}
	m := mustMatrix(t, []core.ComparisonRow{
		row("r1", "Flour", "1", map[string]string{"S1": "2", "S2": "3"}),
		row("r2", "Sugar", "1", map[string]string{"S2": "3", "S3": "1"}),
	}, suppliers)
	groups, err := BuildQuote(m, map[string]decimal.Decimal{"r1": dec("1"), "r2": dec("2")})
	if err != nil {
		t.Fatalf("BuildQuote: %v", err)
	}
	if len(groups) != 1 || groups[0].SupplierName != "Alpha" || len(groups[0].Lines) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
}

func TestBuildQuoteOrderAndDeterminism(t *testing.T) {
	m := mustMatrix(t, []core.ComparisonRow{
		row("r1", "Flour", "1", map[string]string{"S1": "8", "S2": "10"}),
		row("r2", "Sugar", "1", map[string]string{"S1": "3", "S2": "2"}),
		row("r3", "Oil", "1", map[string]string{"S1": "5", "S2": "5"}),
	}, twoSuppliers)
	q := map[string]decimal.Decimal{"r1": dec("1"), "r2": dec("1"), "r3": dec("2")}
	first, err := BuildQuote(m, q)
	if err != nil {
		t.Fatalf("BuildQuote: %v", err)
	}
	if len(first) != 2 || first[0].SupplierName != "Alpha" || first[1].SupplierName != "Beta" {
		t.Fatalf("groups = %+v", first)
	}
	if len(first[0].Lines) != 2 || first[0].Lines[1].RowID != "r3" {
		t.Fatalf("tie should go to the first column: %+v", first[0].Lines)
	}
	for i := 0; i < 5; i++ {
		again, _ := BuildQuote(m, q)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("quote changed between calls")
		}
	}
}

func TestBuildQuoteNothingToOrder(t *testing.T) {
	groups, err := BuildQuote(quoteMatrix(t), map[string]decimal.Decimal{"r1": dec("0"), "r3": dec("2")})
	if err != nil {
		t.Fatalf("BuildQuote: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected empty quote, got %+v", groups)
	}
}

func TestBuildQuoteCallerErrors(t *testing.T) {
	m := quoteMatrix(t)
	cases := []struct {
		q    map[string]decimal.Decimal
		want error
	}{
		{map[string]decimal.Decimal{"r1": dec("-1")}, core.ErrNegativeQuantity},
		{map[string]decimal.Decimal{"zz": dec("1")}, core.ErrUnknownRow},
		{map[string]decimal.Decimal{"": dec("1")}, core.ErrMissingID},
	}
	for _, tc := range cases {
		if _, err := BuildQuote(m, tc.q); !errors.Is(err, tc.want) {
			t.Fatalf("%v: expected %v, got %v", tc.q, tc.want, err)
		}
	}
}
