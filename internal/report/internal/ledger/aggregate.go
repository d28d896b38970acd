package ledger

import (
	"sort"
	"strings"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// Details holds every nested line item of a record set, flattened per
// category and tagged with the date of the record it came from.
type Details struct {
	Suppliers []core.LineItem
	Misc      []core.LineItem
	Admin     []core.LineItem
	Offers    []core.LineItem
	Employees map[core.PaymentKind][]core.LineItem
}

// Items returns the flat list of one category.
func (d Details) Items(c core.Category) []core.LineItem {
	switch c {
	case core.CategorySuppliers:
		return d.Suppliers
	case core.CategoryMisc:
		return d.Misc
	case core.CategoryAdmin:
		return d.Admin
	case core.CategoryOffers:
		return d.Offers
	default:
		return d.Employees[core.PaymentKind(c)]
	}
}

func Flatten(records []core.LedgerRecord) Details {
	d := Details{Employees: make(map[core.PaymentKind][]core.LineItem, len(core.PaymentKinds))}
	for _, r := range records {
		d.Suppliers = append(d.Suppliers, r.SupplierExpenses...)
		d.Misc = append(d.Misc, r.MiscExpenses...)
		d.Admin = append(d.Admin, r.AdminExpenses...)
		d.Offers = append(d.Offers, r.OfferItems...)
		for _, kind := range core.PaymentKinds {
			d.Employees[kind] = append(d.Employees[kind], r.EmployeePayments[kind]...)
		}
	}
	return d
}

// Aggregate folds records into totals and grouped buckets. Records are
// expected to be already restricted to the wanted date range.
func Aggregate(records []core.LedgerRecord) core.Aggregate {
	agg := core.Aggregate{
		RecordCount:   len(records),
		CashRevenue:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		NetRevenue:    decimal.Zero,
		Card:          decimal.Zero,
		BankCheck:     decimal.Zero,
		Cash:          decimal.Zero,
		MealVouchers:  decimal.Zero,
	}
	for _, r := range records {
		agg.CashRevenue = agg.CashRevenue.Add(r.CashRevenue)
		agg.TotalExpenses = agg.TotalExpenses.Add(r.TotalExpenses)
		agg.NetRevenue = agg.NetRevenue.Add(r.NetRevenue)
		agg.Card = agg.Card.Add(r.Payments.Card())
		agg.BankCheck = agg.BankCheck.Add(r.Payments.BankCheck)
		agg.Cash = agg.Cash.Add(r.Payments.Cash)
		agg.MealVouchers = agg.MealVouchers.Add(r.Payments.MealVouchers)
	}

	d := Flatten(records)
	agg.Suppliers = groupSum(d.Suppliers, itemName, itemAmount)
	agg.Misc = groupSum(d.Misc, itemName, itemAmount)
	agg.Admin = groupSum(d.Admin, itemName, itemAmount)
	agg.OfferBuckets = groupSum(d.Offers, itemName, itemAmount)
	agg.Employees = make(map[core.PaymentKind][]core.Bucket, len(core.PaymentKinds))
	for _, kind := range core.PaymentKinds {
		agg.Employees[kind] = groupSum(d.Employees[kind], itemName, itemAmount)
	}
	rollup(&agg)
	return agg
}

// rollup recomputes every total derived from bucket lists. The offers total
// always comes from the grouped buckets, never from the stored scalar.
func rollup(agg *core.Aggregate) {
	agg.TotalGeneralExpenses = sumBuckets(agg.Suppliers).
		Add(sumBuckets(agg.Misc)).
		Add(sumBuckets(agg.Admin))
	employees := decimal.Zero
	for _, kind := range core.PaymentKinds {
		employees = employees.Add(sumBuckets(agg.Employees[kind]))
	}
	agg.TotalEmployeeExpenses = employees
	agg.Offers = sumBuckets(agg.OfferBuckets)
}

// groupSum groups items by name and sums their amounts. Blank names are
// skipped, buckets summing to zero or less are dropped, and the result is
// sorted by amount descending with first-seen order kept on ties.
func groupSum[T any](items []T, name func(T) string, amount func(T) decimal.Decimal) []core.Bucket {
	index := make(map[string]int)
	buckets := make([]core.Bucket, 0)
	for _, it := range items {
		n := name(it)
		if strings.TrimSpace(n) == "" {
			continue
		}
		i, ok := index[n]
		if !ok {
			i = len(buckets)
			index[n] = i
			buckets = append(buckets, core.Bucket{Name: n, Amount: decimal.Zero})
		}
		buckets[i].Amount = buckets[i].Amount.Add(amount(it))
	}

	out := make([]core.Bucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Amount.IsPositive() {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

func sumBuckets(buckets []core.Bucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.Amount)
	}
	return total
}

func itemName(it core.LineItem) string            { return it.Name }
func itemAmount(it core.LineItem) decimal.Decimal { return it.Amount }
