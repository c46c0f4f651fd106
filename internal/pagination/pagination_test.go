package pagination

import (
	"net/url"
	"testing"

	"tubeflow/internal/apierr"
)

func TestParseQueryDefaults(t *testing.T) {
	params, err := ParseQuery(url.Values{})
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if params.Page != DefaultPage || params.Limit != DefaultLimit {
		t.Fatalf("expected defaults (%d,%d), got (%d,%d)", DefaultPage, DefaultLimit, params.Page, params.Limit)
	}
}

func TestParseQueryRejectsInvalidValues(t *testing.T) {
	cases := []url.Values{
		{"page": []string{"0"}},
		{"page": []string{"-3"}},
		{"page": []string{"abc"}},
		{"limit": []string{"0"}},
		{"limit": []string{"-1"}},
		{"limit": []string{"ten"}},
	}
	for _, values := range cases {
		if _, err := ParseQuery(values); !apierr.IsKind(err, apierr.KindValidation) {
			t.Fatalf("expected validation error for %v, got %v", values, err)
		}
	}
}

func TestNewWindowsAndCounts(t *testing.T) {
	all := make([]int, 25)
	for i := range all {
		all[i] = i
	}

	tests := []struct {
		page, limit   int
		wantLen       int
		wantFirst     int
		wantTotalPage int
		hasNext       bool
		hasPrev       bool
	}{
		{page: 1, limit: 10, wantLen: 10, wantFirst: 0, wantTotalPage: 3, hasNext: true, hasPrev: false},
		{page: 2, limit: 10, wantLen: 10, wantFirst: 10, wantTotalPage: 3, hasNext: true, hasPrev: true},
		{page: 3, limit: 10, wantLen: 5, wantFirst: 20, wantTotalPage: 3, hasNext: false, hasPrev: true},
		{page: 4, limit: 10, wantLen: 0, wantTotalPage: 3, hasNext: false, hasPrev: true},
		{page: 1, limit: 25, wantLen: 25, wantFirst: 0, wantTotalPage: 1, hasNext: false, hasPrev: false},
	}
	for _, tc := range tests {
		page := New(all, Params{Page: tc.page, Limit: tc.limit})
		if len(page.Items) != tc.wantLen {
			t.Fatalf("page %d limit %d: expected %d items, got %d", tc.page, tc.limit, tc.wantLen, len(page.Items))
		}
		if tc.wantLen > 0 && page.Items[0] != tc.wantFirst {
			t.Fatalf("page %d: expected first item %d, got %d", tc.page, tc.wantFirst, page.Items[0])
		}
		if page.TotalItems != len(all) {
			t.Fatalf("expected totalItems %d, got %d", len(all), page.TotalItems)
		}
		if page.TotalPages != tc.wantTotalPage {
			t.Fatalf("page %d: expected totalPages %d, got %d", tc.page, tc.wantTotalPage, page.TotalPages)
		}
		if page.HasNext != tc.hasNext || page.HasPrev != tc.hasPrev {
			t.Fatalf("page %d: unexpected hasNext=%v hasPrev=%v", tc.page, page.HasNext, page.HasPrev)
		}
	}
}

func TestNewEmptyResultSet(t *testing.T) {
	page := New([]string{}, Params{Page: 1, Limit: 10})
	if len(page.Items) != 0 || page.TotalItems != 0 || page.TotalPages != 0 {
		t.Fatalf("unexpected metadata for empty set: %+v", page)
	}
	if page.HasNext || page.HasPrev {
		t.Fatalf("empty set should have no next/prev")
	}
}

func TestNewDefaultsZeroValueParams(t *testing.T) {
	all := make([]int, 25)
	for i := range all {
		all[i] = i
	}

	page := New(all, Params{})
	if page.Page != DefaultPage || page.Limit != DefaultLimit {
		t.Fatalf("expected defaulted params, got page=%d limit=%d", page.Page, page.Limit)
	}
	if len(page.Items) != DefaultLimit || page.Items[0] != 0 {
		t.Fatalf("expected first default window, got %d items starting at %v", len(page.Items), page.Items)
	}
	if page.TotalPages != 3 || !page.HasNext || page.HasPrev {
		t.Fatalf("unexpected metadata: %+v", page)
	}
}
