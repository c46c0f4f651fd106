// Package pagination windows aggregation results and attaches exact count
// metadata. Totals are computed independently of the window, so totalPages
// stays correct even when the page itself lands beyond the result set.
package pagination

import (
	"net/url"
	"strconv"

	"tubeflow/internal/apierr"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Params carries validated page and limit values. Both are always >= 1.
type Params struct {
	Page  int
	Limit int
}

// ParseQuery reads page and limit from the query string, applying defaults
// when absent. Non-integer or non-positive values are rejected rather than
// clamped.
func ParseQuery(values url.Values) (Params, error) {
	params := Params{Page: DefaultPage, Limit: DefaultLimit}
	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Params{}, apierr.Validation("page must be a positive integer")
		}
		params.Page = page
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return Params{}, apierr.Validation("limit must be a positive integer")
		}
		params.Limit = limit
	}
	return params, nil
}

// Page wraps one window of items with cursoring metadata.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// New windows the full result set according to params and fills in the
// metadata. A page beyond the end yields an empty item list, not an error.
// Zero-value params fall back to the defaults instead of panicking.
func New[T any](all []T, params Params) Page[T] {
	if params.Page < 1 {
		params.Page = DefaultPage
	}
	if params.Limit < 1 {
		params.Limit = DefaultLimit
	}
	total := len(all)
	totalPages := 0
	if total > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}
	start := (params.Page - 1) * params.Limit
	if start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	items := make([]T, end-start)
	copy(items, all[start:end])
	return Page[T]{
		Items:      items,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1 && total > 0,
	}
}
