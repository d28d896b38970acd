package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func reopen(t *testing.T, w *Workbook) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func rows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	rs, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetRows(%s): %v", sheet, err)
	}
	return rs
}

func assertAmount(t *testing.T, got, want string) {
	t.Helper()
	d, err := decimal.NewFromString(got)
	if err != nil {
		t.Fatalf("cell %q is not a number", got)
	}
	if !d.Equal(dec(want)) {
		t.Fatalf("amount = %s, want %s", got, want)
	}
}

func TestAggregateWorkbook(t *testing.T) {
	agg := core.Aggregate{
		Start:       core.NewDate(2024, 1, 1),
		End:         core.NewDate(2024, 1, 31),
		RecordCount: 3,
		CashRevenue: dec("1250.75"),
		Suppliers: []core.Bucket{
			{Name: "Metro", Amount: dec("120")},
			{Name: "Fish market", Amount: dec("80.5")},
		},
		Employees: map[core.PaymentKind][]core.Bucket{
			core.PaymentAdvance: {{Name: "Ana", Amount: dec("200")}},
		},
	}
	w, err := AggregateWorkbook(agg)
	if err != nil {
		t.Fatalf("AggregateWorkbook: %v", err)
	}
	defer w.Close()

	f := reopen(t, w)
	sheets := f.GetSheetList()
	want := []string{"Summary", "Suppliers", "Advances"}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Fatalf("sheets = %v, want %v", sheets, want)
		}
	}

	summary := rows(t, f, "Summary")
	if summary[0][1] != "2024-01-01" || summary[1][1] != "3" {
		t.Fatalf("summary head = %v", summary[:2])
	}
	if summary[2][0] != "Cash revenue" {
		t.Fatalf("row 3 = %v", summary[2])
	}
	assertAmount(t, summary[2][1], "1250.75")

	suppliers := rows(t, f, "Suppliers")
	if len(suppliers) != 4 || suppliers[1][0] != "Metro" || suppliers[3][0] != "Total" {
		t.Fatalf("suppliers sheet = %v", suppliers)
	}
	assertAmount(t, suppliers[3][1], "200.5")
}

func comparisonFixture() core.Comparison {
	return core.Comparison{
		FamilyID:   1,
		FamilyName: "Dairy",
		Suppliers:  []core.Supplier{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta", Date: "02/01/2024"}},
		Statuses: []core.StatusRow{
			{RowID: "r1", Article: "Milk", Quantity: dec("2"), Unit: "L", Cells: []core.StatusCell{
				{SupplierID: "a", Price: dec("1.5"), Status: core.StatusHighest},
				{SupplierID: "b", Price: dec("1.2"), Status: core.StatusLowest},
			}},
			{RowID: "r2", Article: "Cream", Quantity: dec("1"), Unit: "L", Cells: []core.StatusCell{
				{SupplierID: "a", Price: dec("3"), Status: core.StatusNormal},
				{SupplierID: "b", Status: core.StatusNormal},
			}},
		},
		SupplierTotals: []core.SupplierTotal{
			{SupplierID: "a", SupplierName: "Alpha", Total: dec("6")},
			{SupplierID: "b", SupplierName: "Beta", Total: dec("2.4")},
		},
		BestPrices: core.BestPriceTable{
			Entries: []core.BestPrice{
				{RowID: "r1", Article: "Milk", Quantity: dec("2"), Unit: "L", SupplierName: "Beta", Price: dec("1.2"), LineTotal: dec("2.4")},
			},
			GrandTotal: dec("2.4"),
		},
	}
}

func TestComparisonWorkbook(t *testing.T) {
	w, err := ComparisonWorkbook(comparisonFixture())
	if err != nil {
		t.Fatalf("ComparisonWorkbook: %v", err)
	}
	defer w.Close()

	lowest, err := w.f.GetCellStyle("Comparison", "E3")
	if err != nil {
		t.Fatalf("GetCellStyle: %v", err)
	}
	if lowest != w.styles.lowest {
		t.Fatalf("E3 style = %d, want lowest %d", lowest, w.styles.lowest)
	}
	highest, _ := w.f.GetCellStyle("Comparison", "D3")
	if highest != w.styles.highest {
		t.Fatalf("D3 style = %d, want highest %d", highest, w.styles.highest)
	}

	f := reopen(t, w)
	cmp := rows(t, f, "Comparison")
	if cmp[1][4] != "Beta 02/01/2024" {
		t.Fatalf("header = %v", cmp[1])
	}
	if len(cmp[3]) != 4 {
		t.Fatalf("missing quote should leave the cell empty, row = %v", cmp[3])
	}
	if cmp[4][0] != "Total" {
		t.Fatalf("totals row = %v", cmp[4])
	}
	assertAmount(t, cmp[4][3], "6")
	assertAmount(t, cmp[4][4], "2.4")

	best := rows(t, f, "Best prices")
	if best[1][3] != "Beta" || best[2][0] != "Grand total" {
		t.Fatalf("best prices = %v", best)
	}
	assertAmount(t, best[2][5], "2.4")
}

func TestQuoteWorkbook(t *testing.T) {
	q := core.Quote{
		FamilyName: "Dairy",
		Groups: []core.QuoteGroup{
			{SupplierName: "Beta", Lines: []core.QuoteLine{{RowID: "r1", Article: "Milk", Quantity: dec("3"), Unit: "L"}}},
			{SupplierName: "Alpha/North", Lines: []core.QuoteLine{
				{RowID: "r2", Article: "Butter", Quantity: dec("1"), Unit: "kg"},
				{RowID: "r3", Article: "Cream", Quantity: dec("2"), Unit: "L"},
			}},
		},
	}
	w, err := QuoteWorkbook(q)
	if err != nil {
		t.Fatalf("QuoteWorkbook: %v", err)
	}
	defer w.Close()

	path := filepath.Join(t.TempDir(), "nested", FileName("quote", "abc"))
	if err := w.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Beta" || sheets[1] != "Alpha North" {
		t.Fatalf("sheets = %v", sheets)
	}
	alpha := rows(t, f, "Alpha North")
	if len(alpha) != 4 || alpha[2][0] != "Butter" || alpha[3][0] != "Cream" {
		t.Fatalf("Alpha sheet = %v", alpha)
	}
}

func TestQuoteWorkbookEmpty(t *testing.T) {
	w, err := QuoteWorkbook(core.Quote{FamilyName: "Dairy"})
	if err != nil {
		t.Fatalf("QuoteWorkbook: %v", err)
	}
	defer w.Close()
	f := reopen(t, w)
	if got := f.GetSheetList(); len(got) != 1 || got[0] != "Quote" {
		t.Fatalf("sheets = %v", got)
	}
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	cases := []struct {
		in, want string
	}{
		{"Metro", "Metro"},
		{"metro", "metro (2)"},
		{"a/b:c", "a b c"},
		{"  ", "Sheet"},
		{"A supplier with a remarkably long name", "A supplier with a remarkably lo"},
	}
	for _, tc := range cases {
		if got := sheetName(tc.in, used); got != tc.want {
			t.Fatalf("sheetName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
