package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"backoffice/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// fieldErrors maps each invalid field to the failed rule.
type fieldErrors map[string]string

func (fe fieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for f, tag := range fe {
		parts = append(parts, f+": "+tag)
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := fieldErrors{}
	for _, ve := range ves {
		out[ve.Field()] = ve.Tag()
	}
	return out
}

// flexString accepts a JSON string, number or null.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(str)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected a string or a number, got %s", b)
		}
		*s = flexString(n.String())
	}
	return nil
}

func flexMap(in map[string]flexString) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = string(v)
	}
	return out
}

// listText turns an optional JSON array into the stored text form.
func listText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}

type rangeQuery struct {
	Start string `query:"start" validate:"required,datetime=2006-01-02"`
	End   string `query:"end" validate:"required,datetime=2006-01-02"`
}

func (q rangeQuery) dates() (core.Date, core.Date, error) {
	start, err := core.ParseDate(q.Start)
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	end, err := core.ParseDate(q.End)
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	return start, end, core.ValidateRange(start, end)
}

func parseRange(v url.Values) rangeQuery {
	return rangeQuery{
		Start: strings.TrimSpace(v.Get("start")),
		End:   strings.TrimSpace(v.Get("end")),
	}
}

type aggregateQuery struct {
	rangeQuery
	Q string `query:"q" validate:"max=200"`
}

type seriesQuery struct {
	rangeQuery
	Granularity string `query:"granularity" validate:"omitempty,oneof=day month"`
}

type drilldownQuery struct {
	rangeQuery
	Category string `query:"category" validate:"required"`
	Name     string `query:"name" validate:"max=200"`
}

type recordRequest struct {
	Date          string     `json:"date" validate:"required"`
	CashRevenue   flexString `json:"cash_revenue"`
	TotalExpenses flexString `json:"total_expenses"`
	NetRevenue    flexString `json:"net_revenue"`
	CardTerminal  flexString `json:"card_terminal"`
	CardTerminal2 flexString `json:"card_terminal_2"`
	BankCheck     flexString `json:"bank_check"`
	Cash          flexString `json:"cash"`
	MealVouchers  flexString `json:"meal_vouchers"`
	Offers        flexString `json:"offers"`

	SupplierExpenses json.RawMessage `json:"supplier_expenses"`
	MiscExpenses     json.RawMessage `json:"misc_expenses"`
	AdminExpenses    json.RawMessage `json:"admin_expenses"`
	OfferItems       json.RawMessage `json:"offer_items"`
	Advances         json.RawMessage `json:"advances"`
	DoubleShifts     json.RawMessage `json:"double_shifts"`
	CasualLabor      json.RawMessage `json:"casual_labor"`
	Bonuses          json.RawMessage `json:"bonuses"`
	SalaryRemainders json.RawMessage `json:"salary_remainders"`
}

func (r recordRequest) raw() core.RawRecord {
	return core.RawRecord{
		Date:             r.Date,
		CashRevenue:      string(r.CashRevenue),
		TotalExpenses:    string(r.TotalExpenses),
		NetRevenue:       string(r.NetRevenue),
		CardTerminal:     string(r.CardTerminal),
		CardTerminal2:    string(r.CardTerminal2),
		BankCheck:        string(r.BankCheck),
		Cash:             string(r.Cash),
		MealVouchers:     string(r.MealVouchers),
		Offers:           string(r.Offers),
		SupplierExpenses: listText(r.SupplierExpenses),
		MiscExpenses:     listText(r.MiscExpenses),
		AdminExpenses:    listText(r.AdminExpenses),
		OfferItems:       listText(r.OfferItems),
		EmployeePayments: map[core.PaymentKind]string{
			core.PaymentAdvance:         listText(r.Advances),
			core.PaymentDoubleShift:     listText(r.DoubleShifts),
			core.PaymentCasualLabor:     listText(r.CasualLabor),
			core.PaymentBonus:           listText(r.Bonuses),
			core.PaymentSalaryRemainder: listText(r.SalaryRemainders),
		},
	}
}

type familyRequest struct {
	Name      string               `json:"name" validate:"required,max=200"`
	Rows      []core.ComparisonRow `json:"rows"`
	Suppliers []core.Supplier      `json:"suppliers"`
}

type quoteRequest struct {
	Quantities map[string]flexString `json:"quantities" validate:"required"`
}

type exportRequest struct {
	Kind       string                `json:"kind" validate:"required,oneof=aggregate comparison quote"`
	Start      string                `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End        string                `json:"end" validate:"omitempty,datetime=2006-01-02"`
	Filter     string                `json:"filter" validate:"max=200"`
	FamilyID   int64                 `json:"family_id" validate:"gte=0"`
	Quantities map[string]flexString `json:"quantities"`
}

// decodeJSON reads a size-limited JSON body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequest("request body is empty")
		}
		return errBadRequest("malformed JSON: " + err.Error())
	}
	return validateStruct(v)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadRequest("invalid id")
	}
	return id, nil
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func errBadRequest(msg string) error {
	return badRequest(msg)
}
