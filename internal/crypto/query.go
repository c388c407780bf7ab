package crypto

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// QueryError reports a malformed query parameter.
type QueryError struct {
	Param  string
	Value  string
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query parameter %q=%q: %s", e.Param, e.Value, e.Reason)
}

// Limits bounds the page size accepted from clients.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits is used when no pagination config is supplied.
var DefaultLimits = Limits{Default: 10, Max: 100}

// ListQuery is a parsed listing request.
type ListQuery struct {
	Page   int
	Limit  int
	Sort   *Sort
	Filter Filter
}

// Offset returns the number of records skipped before the requested page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParseListQuery reads page, limit, sort, order, min and max from values.
// An order without a sort field orders by market cap.
func ParseListQuery(values url.Values, limits Limits) (ListQuery, error) {
	if limits.Default <= 0 {
		limits = DefaultLimits
	}
	q := ListQuery{Page: 1, Limit: limits.Default}

	var err error
	if q.Page, err = positiveInt(values, "page", 1); err != nil {
		return ListQuery{}, err
	}
	if q.Limit, err = positiveInt(values, "limit", limits.Default); err != nil {
		return ListQuery{}, err
	}
	if limits.Max > 0 && q.Limit > limits.Max {
		q.Limit = limits.Max
	}
	// Offset must stay representable
	if q.Page-1 > math.MaxInt/q.Limit {
		return ListQuery{}, &QueryError{Param: "page", Value: values.Get("page"), Reason: "is too large"}
	}

	rawSort := strings.TrimSpace(values.Get("sort"))
	rawOrder := values.Get("order")
	if rawSort != "" || rawOrder != "" {
		field := SortByMarketCap
		if rawSort != "" {
			field = SortField(rawSort)
			if !field.Valid() {
				return ListQuery{}, &QueryError{Param: "sort", Value: rawSort, Reason: "must be one of name, price, marketCap, created_at"}
			}
		}
		desc, err := ParseOrder(rawOrder, false)
		if err != nil {
			return ListQuery{}, err
		}
		q.Sort = &Sort{Field: field, Desc: desc}
	}

	if q.Filter, err = ParsePriceRange(values); err != nil {
		return ListQuery{}, err
	}
	return q, nil
}

// ParseOrder interprets "asc" or "desc", returning true for descending.
// An empty value yields defaultDesc.
func ParseOrder(raw string, defaultDesc bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return defaultDesc, nil
	case "asc":
		return false, nil
	case "desc":
		return true, nil
	default:
		return false, &QueryError{Param: "order", Value: raw, Reason: "must be asc or desc"}
	}
}

// ParsePriceRange reads the inclusive min and max price bounds.
func ParsePriceRange(values url.Values) (Filter, error) {
	var f Filter
	var err error
	if f.MinPrice, err = decimalParam(values, "min"); err != nil {
		return Filter{}, err
	}
	if f.MaxPrice, err = decimalParam(values, "max"); err != nil {
		return Filter{}, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return Filter{}, &QueryError{Param: "min", Value: values.Get("min"), Reason: "must not exceed max"}
	}
	return f, nil
}

func positiveInt(values url.Values, param string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(param))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &QueryError{Param: param, Value: raw, Reason: "must be an integer"}
	}
	if n < 1 {
		return 0, &QueryError{Param: param, Value: raw, Reason: "must be at least 1"}
	}
	return n, nil
}

func decimalParam(values url.Values, param string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(values.Get(param))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &QueryError{Param: param, Value: raw, Reason: "must be a decimal number"}
	}
	if d.IsNegative() {
		return nil, &QueryError{Param: param, Value: raw, Reason: "must not be negative"}
	}
	return &d, nil
}
