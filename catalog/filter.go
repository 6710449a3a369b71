// Copyright 2024 Google LLC
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

// Package catalog turns the product listing form into backend query
// parameters and back.
package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/money"
)

type Sort string

const (
	SortNewest     Sort = "newest"
	SortPriceAsc   Sort = "price-asc"
	SortPriceDesc  Sort = "price-desc"
	SortRatingDesc Sort = "rating-desc"
)

// Ordering maps a sort option to the backend's ordering parameter.
func (s Sort) Ordering() string {
	switch s {
	case SortPriceAsc:
		return "price"
	case SortPriceDesc:
		return "-price"
	case SortRatingDesc:
		return "-rating"
	default:
		return "-date_added"
	}
}

var (
	Categories = []string{"Vegetables", "Fruits", "Grains", "Dairy", "Herbs", "Seeds"}
	Provinces  = []string{"Koshi", "Madhesh", "Bagmati", "Gandaki", "Lumbini", "Karnali", "Sudurpashchim"}
	Badges     = []string{"Top Selling", "Seasonal", "Newly Added"}

	Units           = []string{"kg", "g", "lb", "piece", "dozen", "bunch", "litre", "ml", "pack", "crate", "other"}
	ProductStatuses = []string{"Active", "Out of Stock"}
)

// InventorySorts maps the farmer dashboard's sort choices to backend
// orderings; unknown choices list newest first.
var InventorySorts = []SortOption{
	{Value: "newest", Label: "Newest"},
	{Value: "price-asc", Label: "Price: Low to High"},
	{Value: "price-desc", Label: "Price: High to Low"},
	{Value: "rating-desc", Label: "Rating: High to Low"},
	{Value: "stock-asc", Label: "Stock: Low to High"},
}

// InventoryQuery builds the /api/products/ query of a farmer's own listings.
func InventoryQuery(username, status, category, search, sort string) url.Values {
	q := url.Values{"farmer_username": {username}}
	switch sort {
	case "price-asc":
		q.Set("ordering", "price")
	case "price-desc":
		q.Set("ordering", "-price")
	case "rating-desc":
		q.Set("ordering", "-rating")
	case "stock-asc":
		q.Set("ordering", "stock")
	default:
		q.Set("ordering", "-date_added")
	}
	if status != "" && status != "All" {
		q.Set("status", status)
	}
	if category != "" && category != "All" {
		q.Set("category", category)
	}
	if search = strings.TrimSpace(search); search != "" {
		q.Set("search", search)
	}
	return q
}

// BadgeInfo is the tooltip text of each badge.
var BadgeInfo = map[string]string{
	"Top Selling": "This product is among the most popular and frequently purchased.",
	"Seasonal":    "Available only during certain seasons for peak freshness.",
	"Newly Added": "This product was recently added to our marketplace.",
}

type SortOption struct {
	Value Sort
	Label string
}

var SortOptions = []SortOption{
	{SortPriceAsc, "Price: Low to High"},
	{SortPriceDesc, "Price: High to Low"},
	{SortRatingDesc, "Rating: High to Low"},
	{SortNewest, "Newest"},
}

// Bounds is the observed price range of the catalog.
type Bounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// DefaultBounds is used until a price range has been observed.
func DefaultBounds() Bounds {
	return Bounds{Min: decimal.Zero, Max: decimal.NewFromInt(10000)}
}

// BoundsFrom computes the price range of products. An empty slice keeps
// the defaults.
func BoundsFrom(products []*backend.Product) Bounds {
	if len(products) == 0 {
		return DefaultBounds()
	}
	b := Bounds{Min: products[0].Price, Max: products[0].Price}
	for _, p := range products[1:] {
		if p.Price.LessThan(b.Min) {
			b.Min = p.Price
		}
		if p.Price.GreaterThan(b.Max) {
			b.Max = p.Price
		}
	}
	return b
}

// Filter is the state of the product listing controls.
type Filter struct {
	Category    string
	Subcategory string
	Province    string
	PriceMin    decimal.Decimal
	PriceMax    decimal.Decimal
	Rating      int
	InStock     bool
	Badge       string
	DateFrom    string
	Search      string
	Sort        Sort
}

// Reset returns a filter with every control cleared and the price range
// at bounds.
func Reset(b Bounds) Filter {
	return Filter{PriceMin: b.Min, PriceMax: b.Max, Sort: SortNewest}
}

// ParseFilter reads the listing form. Missing prices take the bounds and a
// reversed price range is swapped. The subcategory is dropped when the
// category is empty or differs from prev_category.
func ParseFilter(v url.Values, b Bounds) Filter {
	f := Reset(b)
	f.Category = strings.TrimSpace(v.Get("category"))
	f.Subcategory = strings.TrimSpace(v.Get("subcategory"))
	f.Province = strings.TrimSpace(v.Get("province"))
	f.Badge = strings.TrimSpace(v.Get("badge"))
	f.DateFrom = strings.TrimSpace(v.Get("date_from"))
	f.Search = strings.TrimSpace(v.Get("search"))
	if s := Sort(v.Get("sort")); s != "" {
		f.Sort = s
	}
	if r, err := strconv.Atoi(v.Get("rating")); err == nil && r >= 1 && r <= 5 {
		f.Rating = r
	}
	switch v.Get("in_stock") {
	case "true", "on", "1":
		f.InStock = true
	}
	if d, err := decimal.NewFromString(v.Get("price_min")); err == nil {
		f.PriceMin = d
	}
	if d, err := decimal.NewFromString(v.Get("price_max")); err == nil {
		f.PriceMax = d
	}
	if f.PriceMin.GreaterThan(f.PriceMax) {
		f.PriceMin, f.PriceMax = f.PriceMax, f.PriceMin
	}

	if f.Category == "" {
		f.Subcategory = ""
	} else if prev, ok := v["prev_category"]; ok && prev[0] != f.Category {
		f.Subcategory = ""
	}
	return f
}

// WithCategory selects a category and clears the subcategory.
func (f Filter) WithCategory(c string) Filter {
	f.Category = c
	f.Subcategory = ""
	return f
}

func (f Filter) priceActive(b Bounds) bool {
	return !f.PriceMin.Equal(b.Min) || !f.PriceMax.Equal(b.Max)
}

// Query builds the backend listing parameters. Price parameters are sent
// only when they differ from the bounds.
func (f Filter) Query(b Bounds) url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Subcategory != "" {
		q.Set("subcategory", f.Subcategory)
	}
	if f.Province != "" {
		q.Set("province", f.Province)
	}
	if f.Rating > 0 {
		q.Set("rating__gte", strconv.Itoa(f.Rating))
	}
	if f.InStock {
		q.Set("in_stock", "true")
	}
	if f.Badge != "" {
		q.Set("badge", f.Badge)
	}
	if !f.PriceMin.Equal(b.Min) {
		q.Set("price__gte", f.PriceMin.String())
	}
	if !f.PriceMax.Equal(b.Max) {
		q.Set("price__lte", f.PriceMax.String())
	}
	if f.DateFrom != "" {
		q.Set("date_added__gte", f.DateFrom)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	q.Set("ordering", f.Sort.Ordering())
	return q
}

// Values encodes f back into listing form parameters, omitting defaults.
func (f Filter) Values(b Bounds) url.Values {
	v := url.Values{}
	if f.Category != "" {
		v.Set("category", f.Category)
		v.Set("prev_category", f.Category)
	}
	if f.Subcategory != "" {
		v.Set("subcategory", f.Subcategory)
	}
	if f.Province != "" {
		v.Set("province", f.Province)
	}
	if f.Rating > 0 {
		v.Set("rating", strconv.Itoa(f.Rating))
	}
	if f.InStock {
		v.Set("in_stock", "true")
	}
	if f.Badge != "" {
		v.Set("badge", f.Badge)
	}
	if f.priceActive(b) {
		v.Set("price_min", f.PriceMin.String())
		v.Set("price_max", f.PriceMax.String())
	}
	if f.DateFrom != "" {
		v.Set("date_from", f.DateFrom)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Sort != "" && f.Sort != SortNewest {
		v.Set("sort", string(f.Sort))
	}
	return v
}

// Chip is one active filter with the listing query that removes it.
type Chip struct {
	Label  string
	Remove string
}

// Chips lists the active filters in display order.
func (f Filter) Chips(b Bounds) []Chip {
	var chips []Chip
	add := func(label string, without Filter) {
		chips = append(chips, Chip{Label: label, Remove: without.Values(b).Encode()})
	}
	if f.Category != "" {
		g := f.WithCategory("")
		add(f.Category, g)
	}
	if f.Subcategory != "" {
		g := f
		g.Subcategory = ""
		add(f.Subcategory, g)
	}
	if f.Province != "" {
		g := f
		g.Province = ""
		add(f.Province, g)
	}
	if f.Rating > 0 {
		g := f
		g.Rating = 0
		add(fmt.Sprintf("%d★ & up", f.Rating), g)
	}
	if f.InStock {
		g := f
		g.InStock = false
		add("In Stock", g)
	}
	if f.Badge != "" {
		g := f
		g.Badge = ""
		add(f.Badge, g)
	}
	if f.priceActive(b) {
		g := f
		g.PriceMin, g.PriceMax = b.Min, b.Max
		add(fmt.Sprintf("Price: %s%s-%s%s", money.Symbol, f.PriceMin.String(), money.Symbol, f.PriceMax.String()), g)
	}
	if f.DateFrom != "" {
		g := f
		g.DateFrom = ""
		add("Uploaded from "+f.DateFrom, g)
	}
	return chips
}
