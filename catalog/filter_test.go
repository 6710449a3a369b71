// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"context"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishikarobar/storefront/backend"
)

func bounds(min, max int64) Bounds {
	return Bounds{Min: decimal.NewFromInt(min), Max: decimal.NewFromInt(max)}
}

func TestQueryPriceOnlyWhenNarrowed(t *testing.T) {
	b := bounds(0, 500)
	f := ParseFilter(url.Values{"price_min": {"10"}, "price_max": {"100"}}, b)
	q := f.Query(b)
	assert.Equal(t, "10", q.Get("price__gte"))
	assert.Equal(t, "100", q.Get("price__lte"))

	f = ParseFilter(url.Values{"price_min": {"0"}, "price_max": {"500.00"}}, b)
	q = f.Query(b)
	_, hasMin := q["price__gte"]
	_, hasMax := q["price__lte"]
	assert.False(t, hasMin)
	assert.False(t, hasMax)
}

func TestParseFilterSwapsPrices(t *testing.T) {
	b := bounds(0, 500)
	f := ParseFilter(url.Values{"price_min": {"300"}, "price_max": {"20"}}, b)
	assert.True(t, f.PriceMin.Equal(decimal.NewFromInt(20)))
	assert.True(t, f.PriceMax.Equal(decimal.NewFromInt(300)))
}

func TestMissingPricesTakeBounds(t *testing.T) {
	b := bounds(5, 80)
	f := ParseFilter(url.Values{}, b)
	assert.True(t, f.PriceMin.Equal(b.Min))
	assert.True(t, f.PriceMax.Equal(b.Max))
	assert.Equal(t, SortNewest, f.Sort)
}

func TestCategoryChangeClearsSubcategory(t *testing.T) {
	b := DefaultBounds()
	f := ParseFilter(url.Values{
		"category": {"Fruits"}, "prev_category": {"Vegetables"}, "subcategory": {"Tomato"},
	}, b)
	assert.Equal(t, "Fruits", f.Category)
	assert.Equal(t, "", f.Subcategory)

	f = ParseFilter(url.Values{
		"category": {"Vegetables"}, "prev_category": {"Vegetables"}, "subcategory": {"Tomato"},
	}, b)
	assert.Equal(t, "Tomato", f.Subcategory)

	f = ParseFilter(url.Values{"subcategory": {"Tomato"}}, b)
	assert.Equal(t, "", f.Subcategory)

	f = Filter{Category: "Vegetables", Subcategory: "Tomato"}.WithCategory("Dairy")
	assert.Equal(t, "Dairy", f.Category)
	assert.Equal(t, "", f.Subcategory)
}

func TestOrdering(t *testing.T) {
	tests := map[Sort]string{
		SortPriceAsc:   "price",
		SortPriceDesc:  "-price",
		SortRatingDesc: "-rating",
		SortNewest:     "-date_added",
		"bogus":        "-date_added",
	}
	for s, want := range tests {
		assert.Equal(t, want, s.Ordering(), string(s))
	}
}

func TestQueryAllFields(t *testing.T) {
	b := DefaultBounds()
	f := ParseFilter(url.Values{
		"category":    {"Vegetables"},
		"subcategory": {"Tomato"},
		"province":    {"Bagmati"},
		"rating":      {"4"},
		"in_stock":    {"on"},
		"badge":       {"Seasonal"},
		"date_from":   {"2024-01-01"},
		"search":      {" tom "},
		"sort":        {"rating-desc"},
	}, b)
	q := f.Query(b)
	assert.Equal(t, url.Values{
		"category":        {"Vegetables"},
		"subcategory":     {"Tomato"},
		"province":        {"Bagmati"},
		"rating__gte":     {"4"},
		"in_stock":        {"true"},
		"badge":           {"Seasonal"},
		"date_added__gte": {"2024-01-01"},
		"search":          {"tom"},
		"ordering":        {"-rating"},
	}, q)
}

func TestResetAndRoundTrip(t *testing.T) {
	b := bounds(0, 500)
	f := ParseFilter(url.Values{"category": {"Dairy"}, "price_min": {"10"}, "sort": {"price-asc"}}, b)
	again := ParseFilter(f.Values(b), b)
	assert.Equal(t, f.Query(b), again.Query(b))

	r := Reset(b)
	assert.Empty(t, r.Values(b))
	assert.Empty(t, r.Chips(b))
}

func TestChips(t *testing.T) {
	b := bounds(0, 500)
	f := Filter{
		Category: "Vegetables", Subcategory: "Tomato",
		PriceMin: decimal.NewFromInt(10), PriceMax: decimal.NewFromInt(500),
		Sort: SortNewest,
	}
	chips := f.Chips(b)
	require.Len(t, chips, 3)

	assert.Equal(t, "Vegetables", chips[0].Label)
	removed, err := url.ParseQuery(chips[0].Remove)
	require.NoError(t, err)
	assert.Equal(t, "", removed.Get("category"))
	assert.Equal(t, "", removed.Get("subcategory"))
	assert.Equal(t, "10", removed.Get("price_min"))

	assert.Equal(t, "Price: रु10-रु500", chips[2].Label)
	removed, err = url.ParseQuery(chips[2].Remove)
	require.NoError(t, err)
	assert.Equal(t, "", removed.Get("price_min"))
	assert.Equal(t, "Vegetables", removed.Get("category"))
}

func TestBoundsFrom(t *testing.T) {
	assert.Equal(t, DefaultBounds(), BoundsFrom(nil))
	b := BoundsFrom([]*backend.Product{
		{Price: decimal.RequireFromString("50.00")},
		{Price: decimal.RequireFromString("12.50")},
		{Price: decimal.RequireFromString("300")},
	})
	assert.Equal(t, "12.5", b.Min.String())
	assert.Equal(t, "300", b.Max.String())
}

func TestTrackerCancelsSuperseded(t *testing.T) {
	tr := NewTracker()
	ctx1, v1, done1 := tr.Begin(context.Background(), "sid")
	ctx2, v2, done2 := tr.Begin(context.Background(), "sid")
	defer done2()

	assert.Greater(t, v2, v1)
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.NoError(t, ctx2.Err())
	assert.False(t, tr.Current("sid", v1))
	assert.True(t, tr.Current("sid", v2))

	// finishing the stale request must not evict the fresh one
	done1()
	assert.True(t, tr.Current("sid", v2))

	ctx3, _, done3 := tr.Begin(context.Background(), "other")
	defer done3()
	assert.NoError(t, ctx3.Err())
	assert.NoError(t, ctx2.Err())
}

func TestInventoryQuery(t *testing.T) {
	q := InventoryQuery("bob", "All", "", "  ", "")
	assert.Equal(t, url.Values{"farmer_username": {"bob"}, "ordering": {"-date_added"}}, q)

	q = InventoryQuery("bob", "Out of Stock", "Fruits", " mango ", "price-desc")
	assert.Equal(t, "-price", q.Get("ordering"))
	assert.Equal(t, "Out of Stock", q.Get("status"))
	assert.Equal(t, "Fruits", q.Get("category"))
	assert.Equal(t, "mango", q.Get("search"))
}
