package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// Bucket is an amount aggregated by a name (supplier, designation, offer or
// employee).
type Bucket struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Aggregate is the roll-up of a set of ledger records over a date range.
type Aggregate struct {
	Start       Date            `json:"start"`
	End         Date            `json:"end"`
	RecordCount int             `json:"record_count"`
	CashRevenue decimal.Decimal `json:"cash_revenue"`
	// TotalExpenses is the stored daily figure summed, not recomputed.
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetRevenue    decimal.Decimal `json:"net_revenue"`
	Card          decimal.Decimal `json:"card"`
	BankCheck     decimal.Decimal `json:"bank_check"`
	Cash          decimal.Decimal `json:"cash"`
	MealVouchers  decimal.Decimal `json:"meal_vouchers"`
	Offers        decimal.Decimal `json:"offers"`

	Suppliers    []Bucket                 `json:"suppliers"`
	Misc         []Bucket                 `json:"misc"`
	Admin        []Bucket                 `json:"admin"`
	OfferBuckets []Bucket                 `json:"offer_buckets"`
	Employees    map[PaymentKind][]Bucket `json:"employees"`

	TotalGeneralExpenses  decimal.Decimal `json:"total_general_expenses"`
	TotalEmployeeExpenses decimal.Decimal `json:"total_employee_expenses"`
}

// BucketsFor returns the bucket list of the given category.
func (a Aggregate) BucketsFor(c Category) []Bucket {
	switch c {
	case CategorySuppliers:
		return a.Suppliers
	case CategoryMisc:
		return a.Misc
	case CategoryAdmin:
		return a.Admin
	case CategoryOffers:
		return a.OfferBuckets
	default:
		return a.Employees[PaymentKind(c)]
	}
}

// Clone returns a copy that shares no bucket slice or map with a.
func (a Aggregate) Clone() Aggregate {
	c := a
	c.Suppliers = cloneBuckets(a.Suppliers)
	c.Misc = cloneBuckets(a.Misc)
	c.Admin = cloneBuckets(a.Admin)
	c.OfferBuckets = cloneBuckets(a.OfferBuckets)
	if a.Employees != nil {
		c.Employees = make(map[PaymentKind][]Bucket, len(a.Employees))
		for k, v := range a.Employees {
			c.Employees[k] = cloneBuckets(v)
		}
	}
	return c
}

func cloneBuckets(b []Bucket) []Bucket {
	if b == nil {
		return nil
	}
	return append(make([]Bucket, 0, len(b)), b...)
}

// PeriodTotals sums the scalar figures of the records falling in one period
// (a day "2006-01-02" or a month "2006-01").
type PeriodTotals struct {
	Period        string          `json:"period"`
	RecordCount   int             `json:"record_count"`
	CashRevenue   decimal.Decimal `json:"cash_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetRevenue    decimal.Decimal `json:"net_revenue"`
	Card          decimal.Decimal `json:"card"`
	BankCheck     decimal.Decimal `json:"bank_check"`
	Cash          decimal.Decimal `json:"cash"`
	MealVouchers  decimal.Decimal `json:"meal_vouchers"`
}

type Insights struct {
	BestPeriod       PeriodTotals    `json:"best_period"`
	WorstPeriod      PeriodTotals    `json:"worst_period"`
	AverageNet       decimal.Decimal `json:"average_net"`
	ProfitMarginPct  decimal.Decimal `json:"profit_margin_pct"`
	TotalCashRevenue decimal.Decimal `json:"total_cash_revenue"`
	TotalNetRevenue  decimal.Decimal `json:"total_net_revenue"`
}

// Series is the chronological breakdown of a date range. Insights is nil
// when no record falls in the range.
type Series struct {
	Granularity Granularity    `json:"granularity"`
	Periods     []PeriodTotals `json:"periods"`
	Insights    *Insights      `json:"insights,omitempty"`
}

// ParseGranularity accepts "day" or "month"; blank means day.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case "", GranularityDay:
		return GranularityDay, nil
	case GranularityMonth:
		return GranularityMonth, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}
