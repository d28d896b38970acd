package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

const (
	PaymentAdvance         PaymentKind = "advances"
	PaymentDoubleShift     PaymentKind = "double_shifts"
	PaymentCasualLabor     PaymentKind = "casual_labor"
	PaymentBonus           PaymentKind = "bonuses"
	PaymentSalaryRemainder PaymentKind = "salary_remainders"
)

const (
	CategorySuppliers Category = "suppliers"
	CategoryMisc      Category = "misc"
	CategoryAdmin     Category = "admin"
	CategoryOffers    Category = "offers"
)

// PaymentKinds lists the employee payment kinds in display order.
var PaymentKinds = []PaymentKind{
	PaymentAdvance,
	PaymentDoubleShift,
	PaymentCasualLabor,
	PaymentBonus,
	PaymentSalaryRemainder,
}

type (
	PaymentKind string

	// Category names one bucket list of an Aggregate. Employee payment
	// kinds are categories too.
	Category string

	Date struct {
		time.Time
	}

	// LineItem is one entry of a nested ledger list. Name holds the
	// supplier name, designation, offer name or employee name depending on
	// the list. DayCount is only meaningful for employee payments.
	LineItem struct {
		Name     string              `json:"name"`
		Amount   decimal.Decimal     `json:"amount"`
		DayCount decimal.NullDecimal `json:"day_count"`
		Date     Date                `json:"date"`
	}

	PaymentBreakdown struct {
		CardTerminal  decimal.Decimal
		CardTerminal2 decimal.Decimal
		BankCheck     decimal.Decimal
		Cash          decimal.Decimal
		MealVouchers  decimal.Decimal
	}

	// LedgerRecord is one calendar day's financial snapshot.
	LedgerRecord struct {
		Date             Date
		CashRevenue      decimal.Decimal
		TotalExpenses    decimal.Decimal
		NetRevenue       decimal.Decimal
		Payments         PaymentBreakdown
		Offers           decimal.Decimal // stored scalar, superseded by OfferItems when aggregating
		SupplierExpenses []LineItem
		MiscExpenses     []LineItem
		AdminExpenses    []LineItem
		OfferItems       []LineItem
		EmployeePayments map[PaymentKind][]LineItem
	}

	// RawRecord is a daily record as the persistence layer hands it over:
	// amounts as text and nested lists as encoded JSON arrays.
	RawRecord struct {
		Date             string
		CashRevenue      string
		TotalExpenses    string
		NetRevenue       string
		CardTerminal     string
		CardTerminal2    string
		BankCheck        string
		Cash             string
		MealVouchers     string
		Offers           string
		SupplierExpenses string
		MiscExpenses     string
		AdminExpenses    string
		OfferItems       string
		EmployeePayments map[PaymentKind]string
	}
)

// Card returns the combined amount of both card terminals.
func (p PaymentBreakdown) Card() decimal.Decimal {
	return p.CardTerminal.Add(p.CardTerminal2)
}

// Category returns the bucket category for employee payments of this kind.
func (k PaymentKind) Category() Category {
	return Category(k)
}

// Categories lists every bucket category in display order.
func Categories() []Category {
	out := []Category{CategorySuppliers, CategoryMisc, CategoryAdmin, CategoryOffers}
	for _, k := range PaymentKinds {
		out = append(out, k.Category())
	}
	return out
}

var categoryTitles = map[Category]string{
	CategorySuppliers:                 "Suppliers",
	CategoryMisc:                      "Miscellaneous",
	CategoryAdmin:                     "Administrative",
	CategoryOffers:                    "Offers",
	PaymentAdvance.Category():         "Advances",
	PaymentDoubleShift.Category():     "Double shifts",
	PaymentCasualLabor.Category():     "Casual labor",
	PaymentBonus.Category():           "Bonuses",
	PaymentSalaryRemainder.Category(): "Salary remainders",
}

// Title returns the display title of the category.
func (c Category) Title() string {
	if t, ok := categoryTitles[c]; ok {
		return t
	}
	return string(c)
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD. A trailing time part ("2024-01-01T10:00:00Z")
// is ignored.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MonthKey formats the date as YYYY-MM.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// Within reports whether d lies in [start, end], both ends inclusive.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidateRange checks that both dates are set and start is not after end.
func ValidateRange(start, end Date) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidRange)
	}
	if start.After(end.Time) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	return nil
}
