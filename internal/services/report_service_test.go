package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"backoffice/internal/amqp"
	"backoffice/internal/core"
	"backoffice/internal/report"

	"github.com/shopspring/decimal"
)

type fakeLedger struct {
	mu      sync.Mutex
	records map[string]core.RawRecord
	version int64
	lists   int
}

func newFakeLedger(recs ...core.RawRecord) *fakeLedger {
	l := &fakeLedger{records: map[string]core.RawRecord{}}
	for _, r := range recs {
		l.records[r.Date] = r
	}
	return l
}

func (l *fakeLedger) ListRecords(_ context.Context, start, end core.Date) ([]core.RawRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lists++
	var out []core.RawRecord
	for _, r := range l.records {
		d, err := core.ParseDate(r.Date)
		if err == nil && d.Within(start, end) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (l *fakeLedger) UpsertRecord(_ context.Context, rec core.RawRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.Date] = rec
	l.version++
	return nil
}

func (l *fakeLedger) DeleteRecord(_ context.Context, date core.Date) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[date.String()]; !ok {
		return core.ErrNotFound
	}
	delete(l.records, date.String())
	l.version++
	return nil
}

func (l *fakeLedger) DataVersion(context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version, nil
}

type fakeFamilies struct {
	mu     sync.Mutex
	byID   map[int64]core.RawFamily
	nextID int64
}

func newFakeFamilies() *fakeFamilies {
	return &fakeFamilies{byID: map[int64]core.RawFamily{}}
}

func (f *fakeFamilies) GetFamily(_ context.Context, id int64) (core.RawFamily, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.byID[id]
	if !ok {
		return core.RawFamily{}, core.ErrNotFound
	}
	return raw, nil
}

func (f *fakeFamilies) ListFamilies(context.Context) ([]core.RawFamily, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.RawFamily
	for _, raw := range f.byID {
		out = append(out, raw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeFamilies) SaveFamily(_ context.Context, raw core.RawFamily) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if raw.ID == 0 {
		f.nextID++
		raw.ID = f.nextID
	}
	f.byID[raw.ID] = raw
	return raw.ID, nil
}

func (f *fakeFamilies) DeleteFamily(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

type fakeExports struct {
	sent []*amqp.ExportRequestMessage
	err  error
}

func (e *fakeExports) PublishExportRequest(_ context.Context, msg *amqp.ExportRequestMessage) error {
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, msg)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func januaryRange() (core.Date, core.Date) {
	return core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)
}

func dairyFamily() core.Family {
	return core.Family{
		Name: "Dairy",
		Suppliers: []core.Supplier{
			{ID: "s1", Name: "Alpha"},
			{ID: "s2", Name: "Beta"},
		},
		Rows: []core.ComparisonRow{
			{ID: "r1", Article: "Milk", Quantity: dec("2"), Unit: "L", Prices: map[string]core.PriceEntry{
				"s1": {Value: dec("1.5")}, "s2": {Value: dec("1.2")},
			}},
			{ID: "r2", Article: "Butter", Quantity: dec("1"), Unit: "kg", Prices: map[string]core.PriceEntry{
				"s1": {Value: dec("8")}, "s2": {Value: dec("9")},
			}},
		},
	}
}

func newService(t *testing.T, ledger *fakeLedger, families *fakeFamilies, exports ExportPublisher) *ReportService {
	t.Helper()
	return NewReportService(ledger, families, exports, Options{CacheSize: 8, OverviewConcurrency: 2}, nil)
}

func TestReportService_AggregateCachedPerVersion(t *testing.T) {
	ledger := newFakeLedger(
		core.RawRecord{Date: "2024-01-02", CashRevenue: "100", SupplierExpenses: `[{"supplier_name":"Metro","amount":"30"}]`},
		core.RawRecord{Date: "2024-02-02", CashRevenue: "999"},
	)
	svc := newService(t, ledger, newFakeFamilies(), nil)
	start, end := januaryRange()
	ctx := context.Background()

	agg, err := svc.Aggregate(ctx, report.AggregateQuery{Start: start, End: end})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !agg.CashRevenue.Equal(dec("100")) {
		t.Fatalf("CashRevenue = %s, want 100", agg.CashRevenue)
	}
	if len(agg.Suppliers) != 1 || agg.Suppliers[0].Name != "Metro" {
		t.Fatalf("Suppliers = %+v", agg.Suppliers)
	}

	if _, err := svc.Aggregate(ctx, report.AggregateQuery{Start: start, End: end}); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if ledger.lists != 1 {
		t.Fatalf("second call should be cached, ListRecords called %d times", ledger.lists)
	}
	if st := svc.CacheStats(); st.Hits != 1 {
		t.Fatalf("cache hits = %d, want 1", st.Hits)
	}

	if _, err := svc.SaveRecord(ctx, core.RawRecord{Date: "2024-01-03T08:00:00Z", CashRevenue: "50"}); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	agg, err = svc.Aggregate(ctx, report.AggregateQuery{Start: start, End: end})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !agg.CashRevenue.Equal(dec("150")) {
		t.Fatalf("CashRevenue after write = %s, want 150", agg.CashRevenue)
	}
	if st := svc.CacheStats(); st.Size != 1 {
		t.Fatalf("cache size after write = %d, want 1", st.Size)
	}
	if _, ok := ledger.records["2024-01-03"]; !ok {
		t.Fatal("SaveRecord should store the normalized date")
	}
}

func TestReportService_CachedAggregateIsNotShared(t *testing.T) {
	ledger := newFakeLedger(core.RawRecord{
		Date:             "2024-01-02",
		SupplierExpenses: `[{"supplier_name":"Metro","amount":"30"}]`,
		EmployeePayments: map[core.PaymentKind]string{core.PaymentBonus: `[{"employee_name":"Ana","amount":"5"}]`},
	})
	svc := newService(t, ledger, newFakeFamilies(), nil)
	start, end := januaryRange()
	ctx := context.Background()
	q := report.AggregateQuery{Start: start, End: end}

	for i := 0; i < 2; i++ {
		agg, err := svc.Aggregate(ctx, q)
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		if agg.Suppliers[0].Name != "Metro" || agg.Employees[core.PaymentBonus][0].Name != "Ana" {
			t.Fatalf("call %d saw a modified aggregate: %+v", i, agg)
		}
		agg.Suppliers[0].Name = "changed"
		agg.Employees[core.PaymentBonus][0].Name = "changed"
		delete(agg.Employees, core.PaymentBonus)
	}
	if st := svc.CacheStats(); st.Hits != 1 {
		t.Fatalf("cache hits = %d, want 1", st.Hits)
	}
}

func TestReportService_RangeErrors(t *testing.T) {
	svc := newService(t, newFakeLedger(), newFakeFamilies(), nil)
	start, end := januaryRange()
	ctx := context.Background()

	if _, err := svc.Aggregate(ctx, report.AggregateQuery{Start: end, End: start}); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("Aggregate err = %v, want ErrInvalidRange", err)
	}
	if _, err := svc.Series(ctx, report.SeriesQuery{Start: start}); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("Series err = %v, want ErrInvalidRange", err)
	}
	if _, err := svc.Drilldown(ctx, report.DrilldownQuery{}); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("Drilldown err = %v, want ErrInvalidRange", err)
	}
	if _, err := svc.SaveRecord(ctx, core.RawRecord{Date: "not a date"}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("SaveRecord err = %v, want ErrInvalidDate", err)
	}
}

func TestReportService_SeriesAndDrilldown(t *testing.T) {
	ledger := newFakeLedger(
		core.RawRecord{Date: "2024-01-02", CashRevenue: "100", NetRevenue: "60",
			MiscExpenses: `[{"designation":"Gas","amount":"10"},{"designation":"Water","amount":"5"}]`},
		core.RawRecord{Date: "2024-01-05", CashRevenue: "200", NetRevenue: "150",
			MiscExpenses: `[{"designation":"Gas","amount":"12"}]`},
	)
	svc := newService(t, ledger, newFakeFamilies(), nil)
	start, end := januaryRange()
	ctx := context.Background()

	series, err := svc.Series(ctx, report.SeriesQuery{Start: start, End: end, Granularity: core.GranularityMonth})
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(series.Periods) != 1 || series.Periods[0].Period != "2024-01" {
		t.Fatalf("Periods = %+v", series.Periods)
	}

	items, err := svc.Drilldown(ctx, report.DrilldownQuery{Start: start, End: end, Category: core.CategoryMisc, Name: "Gas"})
	if err != nil {
		t.Fatalf("Drilldown: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Drilldown items = %+v, want 2", items)
	}
}

func TestReportService_FamiliesComparisonAndQuote(t *testing.T) {
	families := newFakeFamilies()
	svc := newService(t, newFakeLedger(), families, nil)
	ctx := context.Background()

	id, err := svc.SaveFamily(ctx, dairyFamily())
	if err != nil {
		t.Fatalf("SaveFamily: %v", err)
	}

	c, err := svc.Comparison(ctx, id)
	if err != nil {
		t.Fatalf("Comparison: %v", err)
	}
	// Milk from Beta (2 * 1.2) and butter from Alpha (1 * 8).
	if !c.BestPrices.GrandTotal.Equal(dec("10.4")) {
		t.Fatalf("GrandTotal = %s, want 10.4", c.BestPrices.GrandTotal)
	}

	q, err := svc.Quote(ctx, id, map[string]string{"r1": "3", "r2": "0"})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(q.Groups) != 1 || q.Groups[0].SupplierName != "Beta" || !q.Groups[0].Lines[0].Quantity.Equal(dec("3")) {
		t.Fatalf("Quote = %+v", q)
	}

	if _, err := svc.Quote(ctx, id, map[string]string{"r1": "-1"}); !errors.Is(err, core.ErrNegativeQuantity) {
		t.Fatalf("Quote err = %v, want ErrNegativeQuantity", err)
	}
	if _, err := svc.Quote(ctx, id, map[string]string{"r1": "abc"}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Quote err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Quote(ctx, id, map[string]string{"nope": "1"}); !errors.Is(err, core.ErrUnknownRow) {
		t.Fatalf("Quote err = %v, want ErrUnknownRow", err)
	}
	if _, err := svc.Comparison(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Comparison err = %v, want ErrNotFound", err)
	}
}

func TestReportService_SaveFamilyRejectsInvalidMatrix(t *testing.T) {
	svc := newService(t, newFakeLedger(), newFakeFamilies(), nil)
	f := dairyFamily()
	f.Suppliers = append(f.Suppliers, core.Supplier{ID: "s1", Name: "Again"})
	if _, err := svc.SaveFamily(context.Background(), f); !errors.Is(err, core.ErrDuplicateSupplier) {
		t.Fatalf("err = %v, want ErrDuplicateSupplier", err)
	}
	if _, err := svc.SaveFamily(context.Background(), core.Family{Name: " "}); !errors.Is(err, core.ErrMissingID) {
		t.Fatalf("err = %v, want ErrMissingID", err)
	}
}

func TestReportService_ComparisonOverview(t *testing.T) {
	families := newFakeFamilies()
	svc := newService(t, newFakeLedger(), families, nil)
	ctx := context.Background()

	for _, name := range []string{"Dairy", "Bakery", "Produce"} {
		f := dairyFamily()
		f.Name = name
		if _, err := svc.SaveFamily(ctx, f); err != nil {
			t.Fatalf("SaveFamily(%s): %v", name, err)
		}
	}
	// Stored directly so the invalid matrix bypasses SaveFamily.
	if _, err := families.SaveFamily(ctx, core.RawFamily{
		Name:      "Broken",
		Rows:      `[{"id":"r1","article":"x","quantity":1},{"id":"r1","article":"y","quantity":1}]`,
		Suppliers: `[]`,
	}); err != nil {
		t.Fatalf("SaveFamily: %v", err)
	}

	overview, err := svc.ComparisonOverview(ctx)
	if err != nil {
		t.Fatalf("ComparisonOverview: %v", err)
	}
	var names []string
	for _, c := range overview {
		names = append(names, c.FamilyName)
	}
	want := []string{"Bakery", "Dairy", "Produce"}
	if len(names) != len(want) {
		t.Fatalf("overview families = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("overview families = %v, want %v", names, want)
		}
	}
}

func TestReportService_RequestExport(t *testing.T) {
	ctx := context.Background()

	disabled := newService(t, newFakeLedger(), newFakeFamilies(), nil)
	msg := amqp.NewExportRequestMessage(amqp.ExportComparison)
	msg.FamilyID = 1
	if _, err := disabled.RequestExport(ctx, msg); !errors.Is(err, ErrExportsDisabled) {
		t.Fatalf("err = %v, want ErrExportsDisabled", err)
	}

	exports := &fakeExports{}
	svc := newService(t, newFakeLedger(), newFakeFamilies(), exports)
	id, err := svc.RequestExport(ctx, msg)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if id != msg.ID || len(exports.sent) != 1 {
		t.Fatalf("id = %q, sent = %d", id, len(exports.sent))
	}

	bad := amqp.NewExportRequestMessage(amqp.ExportAggregate)
	if _, err := svc.RequestExport(ctx, bad); !errors.Is(err, amqp.ErrInvalidMessage) {
		t.Fatalf("err = %v, want ErrInvalidMessage", err)
	}

	exports.err = errors.New("broker down")
	if _, err := svc.RequestExport(ctx, msg); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestParseQuantities(t *testing.T) {
	got, err := ParseQuantities(map[string]string{"a": "1,5", "b": ""})
	if err != nil {
		t.Fatalf("ParseQuantities: %v", err)
	}
	if !got["a"].Equal(dec("1.5")) || !got["b"].IsZero() {
		t.Fatalf("ParseQuantities = %v", got)
	}
}
