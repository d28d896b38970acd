package ledger

import (
	"strings"

	"backoffice/internal/core"
)

// Filter keeps the buckets whose name contains query, ignoring case. A blank
// query returns buckets unchanged.
func Filter(buckets []core.Bucket, query string) []core.Bucket {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return buckets
	}
	out := make([]core.Bucket, 0, len(buckets))
	for _, b := range buckets {
		if strings.Contains(strings.ToLower(b.Name), q) {
			out = append(out, b)
		}
	}
	return out
}

// FilterAggregate applies Filter to every bucket list independently and
// recomputes the roll-ups so they keep matching the visible buckets. Scalar
// figures (revenue, payments) are not name-scoped and stay as they are.
func FilterAggregate(agg core.Aggregate, query string) core.Aggregate {
	if strings.TrimSpace(query) == "" {
		return agg
	}
	out := agg
	out.Suppliers = Filter(agg.Suppliers, query)
	out.Misc = Filter(agg.Misc, query)
	out.Admin = Filter(agg.Admin, query)
	out.OfferBuckets = Filter(agg.OfferBuckets, query)
	out.Employees = make(map[core.PaymentKind][]core.Bucket, len(agg.Employees))
	for kind, buckets := range agg.Employees {
		out.Employees[kind] = Filter(buckets, query)
	}
	rollup(&out)
	return out
}

// Drilldown returns the dated line items behind one bucket, in record order.
// A blank name returns every item of the category.
func Drilldown(records []core.LedgerRecord, category core.Category, name string) []core.LineItem {
	out := make([]core.LineItem, 0)
	for _, it := range Flatten(records).Items(category) {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		if name != "" && it.Name != name {
			continue
		}
		out = append(out, it)
	}
	return out
}
