// Package report is the single entry point to the ledger aggregation and
// price comparison engines. It is pure computation over the snapshots it is
// handed: no I/O, no retained state, every call recomputes.
package report

import (
	"context"
	"fmt"
	"sort"

	"backoffice/internal/core"
	"backoffice/internal/log"
	"backoffice/internal/report/internal/ledger"
	"backoffice/internal/report/internal/pricing"

	"github.com/shopspring/decimal"
)

type Reporter struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Reporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Reporter{logger: logger.WithComponent(log.ComponentReport)}
}

// AggregateQuery scopes an aggregate to [Start, End], both inclusive.
// NameFilter, when set, keeps only the buckets whose name contains it.
type AggregateQuery struct {
	Start      core.Date
	End        core.Date
	NameFilter string
}

type SeriesQuery struct {
	Start       core.Date
	End         core.Date
	Granularity core.Granularity
}

// DrilldownQuery selects the line items behind one bucket. A blank Name
// selects the whole category.
type DrilldownQuery struct {
	Start    core.Date
	End      core.Date
	Category core.Category
	Name     string
}

// Aggregate normalizes the records, keeps those in range, folds them and
// applies the name filter.
func (r *Reporter) Aggregate(ctx context.Context, records []core.RawRecord, q AggregateQuery) (core.Aggregate, error) {
	scoped, err := r.scope(ctx, records, q.Start, q.End)
	if err != nil {
		return core.Aggregate{}, err
	}
	agg := ledger.FilterAggregate(ledger.Aggregate(scoped), q.NameFilter)
	agg.Start, agg.End = q.Start, q.End

	r.logger.DebugContext(ctx, "aggregate computed", log.NewFields().
		WithOperation(log.OpAggregate).
		WithRange(q.Start.Time, q.End.Time).
		With(log.FieldNameFilter, q.NameFilter).
		With(log.FieldRecordCount, agg.RecordCount).
		With(log.FieldBucketCount, len(agg.Suppliers)+len(agg.Misc)+len(agg.Admin)).
		ToSlice()...)
	return agg, nil
}

func (r *Reporter) Series(ctx context.Context, records []core.RawRecord, q SeriesQuery) (core.Series, error) {
	granularity := q.Granularity
	if granularity == "" {
		granularity = core.GranularityDay
	}
	if granularity != core.GranularityDay && granularity != core.GranularityMonth {
		return core.Series{}, fmt.Errorf("%w: %q", core.ErrUnknownGranularity, granularity)
	}
	scoped, err := r.scope(ctx, records, q.Start, q.End)
	if err != nil {
		return core.Series{}, err
	}
	s := ledger.Series(scoped, granularity)
	r.logger.DebugContext(ctx, "series computed", log.NewFields().
		WithOperation(log.OpSeries).
		WithRange(q.Start.Time, q.End.Time).
		With("periods", len(s.Periods)).
		ToSlice()...)
	return s, nil
}

func (r *Reporter) Drilldown(ctx context.Context, records []core.RawRecord, q DrilldownQuery) ([]core.LineItem, error) {
	if _, err := core.ParseCategory(string(q.Category)); err != nil {
		return nil, err
	}
	scoped, err := r.scope(ctx, records, q.Start, q.End)
	if err != nil {
		return nil, err
	}
	return ledger.Drilldown(scoped, q.Category, q.Name), nil
}

// Comparison computes the status table, best price table and supplier
// totals of one family.
func (r *Reporter) Comparison(ctx context.Context, family core.Family) (core.Comparison, error) {
	m, err := pricing.NewMatrix(family.Rows, family.Suppliers)
	if err != nil {
		return core.Comparison{}, fmt.Errorf("family %q: %w", family.Name, err)
	}
	c := core.Comparison{
		FamilyID:       family.ID,
		FamilyName:     family.Name,
		Suppliers:      m.Suppliers(),
		Statuses:       m.StatusTable(),
		BestPrices:     m.BestPriceTable(),
		SupplierTotals: m.SupplierTotals(),
	}
	r.logger.DebugContext(ctx, "comparison computed", log.NewFields().
		WithOperation(log.OpComparison).
		WithFamily(family.ID, family.Name).
		With(log.FieldRowCount, len(family.Rows)).
		With(log.FieldSupplierCount, len(family.Suppliers)).
		ToSlice()...)
	return c, nil
}

// Quote splits the requested quantities across the cheapest suppliers. An
// empty quote is a valid result meaning there is nothing to order.
func (r *Reporter) Quote(ctx context.Context, family core.Family, quantities map[string]decimal.Decimal) (core.Quote, error) {
	m, err := pricing.NewMatrix(family.Rows, family.Suppliers)
	if err != nil {
		return core.Quote{}, fmt.Errorf("family %q: %w", family.Name, err)
	}
	groups, err := pricing.BuildQuote(m, quantities)
	if err != nil {
		return core.Quote{}, fmt.Errorf("family %q: %w", family.Name, err)
	}
	q := core.Quote{FamilyID: family.ID, FamilyName: family.Name, Groups: groups}
	r.logger.DebugContext(ctx, "quote built", log.NewFields().
		WithOperation(log.OpQuote).
		WithFamily(family.ID, family.Name).
		With("groups", len(q.Groups)).
		With("lines", q.LineCount()).
		ToSlice()...)
	return q, nil
}

// scope normalizes records and keeps those dated within [start, end] in
// date order. Records without a usable date are skipped with a warning;
// two in-range records sharing a date are an error.
func (r *Reporter) scope(ctx context.Context, records []core.RawRecord, start, end core.Date) ([]core.LedgerRecord, error) {
	if err := core.ValidateRange(start, end); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(records))
	out := make([]core.LedgerRecord, 0, len(records))
	for _, raw := range records {
		n, err := ledger.Normalize(raw)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping ledger record", log.NewFields().
				With(log.FieldRecordDate, raw.Date).
				WithError(err).
				ToSlice()...)
			continue
		}
		if !n.Record.Date.Within(start, end) {
			continue
		}
		key := n.Record.Date.String()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateDate, key)
		}
		seen[key] = struct{}{}
		if len(n.Defaulted) > 0 {
			r.logger.WarnContext(ctx, "ledger record fields defaulted", log.NewFields().
				With(log.FieldRecordDate, key).
				With(log.FieldDefaultedFields, n.Defaulted).
				ToSlice()...)
		}
		out = append(out, n.Record)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}
