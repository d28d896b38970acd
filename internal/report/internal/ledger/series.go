package ledger

import (
	"sort"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Series sums the scalar figures of records per day or per month, in
// chronological order, and derives insights over the periods.
func Series(records []core.LedgerRecord, granularity core.Granularity) core.Series {
	index := make(map[string]int)
	periods := make([]core.PeriodTotals, 0)
	for _, r := range records {
		key := r.Date.String()
		if granularity == core.GranularityMonth {
			key = r.Date.MonthKey()
		}
		i, ok := index[key]
		if !ok {
			i = len(periods)
			index[key] = i
			periods = append(periods, newPeriod(key))
		}
		p := &periods[i]
		p.RecordCount++
		p.CashRevenue = p.CashRevenue.Add(r.CashRevenue)
		p.TotalExpenses = p.TotalExpenses.Add(r.TotalExpenses)
		p.NetRevenue = p.NetRevenue.Add(r.NetRevenue)
		p.Card = p.Card.Add(r.Payments.Card())
		p.BankCheck = p.BankCheck.Add(r.Payments.BankCheck)
		p.Cash = p.Cash.Add(r.Payments.Cash)
		p.MealVouchers = p.MealVouchers.Add(r.Payments.MealVouchers)
	}
	sort.SliceStable(periods, func(i, j int) bool { return periods[i].Period < periods[j].Period })

	return core.Series{
		Granularity: granularity,
		Periods:     periods,
		Insights:    insights(periods),
	}
}

// insights picks the best and worst period by cash revenue (earliest wins a
// tie) and computes the average net per period and the overall margin.
func insights(periods []core.PeriodTotals) *core.Insights {
	if len(periods) == 0 {
		return nil
	}
	in := &core.Insights{
		BestPeriod:       periods[0],
		WorstPeriod:      periods[0],
		TotalCashRevenue: decimal.Zero,
		TotalNetRevenue:  decimal.Zero,
	}
	for _, p := range periods {
		if p.CashRevenue.GreaterThan(in.BestPeriod.CashRevenue) {
			in.BestPeriod = p
		}
		if p.CashRevenue.LessThan(in.WorstPeriod.CashRevenue) {
			in.WorstPeriod = p
		}
		in.TotalCashRevenue = in.TotalCashRevenue.Add(p.CashRevenue)
		in.TotalNetRevenue = in.TotalNetRevenue.Add(p.NetRevenue)
	}
	in.AverageNet = in.TotalNetRevenue.Div(decimal.NewFromInt(int64(len(periods)))).Round(core.AmountScale)

	revenue := in.TotalCashRevenue
	if revenue.IsZero() {
		revenue = decimal.NewFromInt(1)
	}
	in.ProfitMarginPct = in.TotalNetRevenue.Div(revenue).Mul(hundred).Round(2)
	return in
}

func newPeriod(key string) core.PeriodTotals {
	return core.PeriodTotals{
		Period:        key,
		CashRevenue:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		NetRevenue:    decimal.Zero,
		Card:          decimal.Zero,
		BankCheck:     decimal.Zero,
		Cash:          decimal.Zero,
		MealVouchers:  decimal.Zero,
	}
}
