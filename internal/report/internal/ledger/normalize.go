// Package ledger turns raw daily records into typed ledger records and folds
// them into category-grouped aggregates.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

type decodeOutcome int

const (
	decodedOK decodeOutcome = iota
	decodedAbsent
	decodedMalformed
)

// Item shapes. Older rows carry other key names, tried in order.
var (
	supplierShape    = itemShape{nameKeys: []string{"supplier_name", "supplier", "designation", "name"}}
	designationShape = itemShape{nameKeys: []string{"designation", "name", "supplier"}}
	offerShape       = itemShape{nameKeys: []string{"name", "designation"}}
	employeeShape    = itemShape{nameKeys: []string{"employee_name", "username", "name"}, dayCount: true}

	amountKeys   = []string{"amount", "montant"}
	dayCountKeys = []string{"day_count", "nb_jours"}
)

type itemShape struct {
	nameKeys []string
	dayCount bool
}

// Normalized is a typed record plus the names of the fields that were
// present but malformed and therefore replaced by zero or an empty list.
type Normalized struct {
	Record    core.LedgerRecord
	Defaulted []string
}

// Normalize converts a raw record. Amounts and nested lists fail soft; the
// only error is a missing or unparsable date, since such a record cannot be
// placed in any range.
func Normalize(raw core.RawRecord) (Normalized, error) {
	date, err := core.ParseDate(raw.Date)
	if err != nil {
		return Normalized{}, fmt.Errorf("normalize record: %w", err)
	}

	n := Normalized{}
	amount := func(field, s string) decimal.Decimal {
		d, outcome := decodeScalar(s)
		if outcome == decodedMalformed {
			n.Defaulted = append(n.Defaulted, field)
		}
		return d
	}
	items := func(field, s string, shape itemShape) []core.LineItem {
		list, outcome := decodeItems(s, date, shape)
		if outcome == decodedMalformed {
			n.Defaulted = append(n.Defaulted, field)
		}
		return list
	}

	rec := core.LedgerRecord{
		Date:          date,
		CashRevenue:   amount("cash_revenue", raw.CashRevenue),
		TotalExpenses: amount("total_expenses", raw.TotalExpenses),
		NetRevenue:    amount("net_revenue", raw.NetRevenue),
		Payments: core.PaymentBreakdown{
			CardTerminal:  amount("card_terminal", raw.CardTerminal),
			CardTerminal2: amount("card_terminal_2", raw.CardTerminal2),
			BankCheck:     amount("bank_check", raw.BankCheck),
			Cash:          amount("cash", raw.Cash),
			MealVouchers:  amount("meal_vouchers", raw.MealVouchers),
		},
		Offers:           amount("offers", raw.Offers),
		SupplierExpenses: items("supplier_expenses", raw.SupplierExpenses, supplierShape),
		MiscExpenses:     items("misc_expenses", raw.MiscExpenses, designationShape),
		AdminExpenses:    items("admin_expenses", raw.AdminExpenses, designationShape),
		OfferItems:       items("offer_items", raw.OfferItems, offerShape),
		EmployeePayments: make(map[core.PaymentKind][]core.LineItem, len(core.PaymentKinds)),
	}
	for _, kind := range core.PaymentKinds {
		rec.EmployeePayments[kind] = items(string(kind), raw.EmployeePayments[kind], employeeShape)
	}
	n.Record = rec
	return n, nil
}

func decodeScalar(s string) (decimal.Decimal, decodeOutcome) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, decodedAbsent
	}
	d, ok := core.TryParseAmount(s)
	if !ok {
		return decimal.Zero, decodedMalformed
	}
	return d, decodedOK
}

// decodeItems decodes an encoded JSON array of line items. Elements that are
// not objects are dropped and reported as malformed; the rest survive, an
// unusable amount becoming zero and also reported.
func decodeItems(encoded string, date core.Date, shape itemShape) ([]core.LineItem, decodeOutcome) {
	out := []core.LineItem{}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" || encoded == "null" {
		return out, decodedAbsent
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(encoded)))
	dec.UseNumber()
	var elems []any
	if err := dec.Decode(&elems); err != nil {
		return out, decodedMalformed
	}

	outcome := decodedOK
	for _, e := range elems {
		obj, ok := e.(map[string]any)
		if !ok {
			outcome = decodedMalformed
			continue
		}
		amount, ok := core.TryAmountFrom(firstValue(obj, amountKeys))
		if !ok {
			outcome = decodedMalformed
		}
		item := core.LineItem{
			Name:   firstString(obj, shape.nameKeys),
			Amount: amount,
			Date:   date,
		}
		if shape.dayCount {
			if v := firstValue(obj, dayCountKeys); v != nil {
				if d, ok := core.TryParseAmount(fmt.Sprint(v)); ok {
					item.DayCount = decimal.NewNullDecimal(d)
				}
			}
		}
		out = append(out, item)
	}
	return out, outcome
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstValue(obj map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
