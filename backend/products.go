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

package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

// ProductInput is the multipart body of a farmer creating or editing a
// listing. Empty optional fields are left out so a PATCH keeps them.
type ProductInput struct {
	Name           string
	Category       string
	Subcategory    string
	Price          decimal.Decimal
	MinOrder       int
	Unit           string
	Province       string
	ProductAddress string
	Description    string
	Stock          int
	Status         string
	Image          *Upload
}

func (in ProductInput) parts() []formPart {
	parts := []formPart{
		{name: "name", value: in.Name},
		{name: "category", value: in.Category},
		{name: "price", value: in.Price.StringFixed(2)},
		{name: "unit", value: in.Unit},
		{name: "province", value: in.Province},
		{name: "stock", value: strconv.Itoa(in.Stock)},
	}
	optional := []struct{ name, value string }{
		{"subcategory", in.Subcategory},
		{"product_address", in.ProductAddress},
		{"description", in.Description},
		{"status", in.Status},
	}
	for _, o := range optional {
		if o.value != "" {
			parts = append(parts, formPart{name: o.name, value: o.value})
		}
	}
	if in.MinOrder > 0 {
		parts = append(parts, formPart{name: "min_order", value: strconv.Itoa(in.MinOrder)})
	}
	if in.Image != nil {
		parts = append(parts, formPart{name: "image", file: in.Image})
	}
	return parts
}

// FarmerProduct calls GET /api/products/{id}/.
func (c *Client) FarmerProduct(ctx context.Context, token string, id int) (*Product, error) {
	var p Product
	if err := c.getJSON(ctx, fmt.Sprintf("/api/products/%d/", id), nil, token, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct calls POST /api/products/. The backend assigns the listing
// to the signed-in farmer.
func (c *Client) CreateProduct(ctx context.Context, token string, in ProductInput) (*Product, error) {
	var p Product
	if err := c.sendMultipart(ctx, http.MethodPost, "/api/products/", token, in.parts(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct calls PATCH /api/products/{id}/.
func (c *Client) UpdateProduct(ctx context.Context, token string, id int, in ProductInput) (*Product, error) {
	var p Product
	if err := c.sendMultipart(ctx, http.MethodPatch, fmt.Sprintf("/api/products/%d/", id), token, in.parts(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct calls DELETE /api/products/{id}/.
func (c *Client) DeleteProduct(ctx context.Context, token string, id int) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/products/%d/", id), token, nil, nil)
}

// ProductSales is one bar of the best sellers chart.
type ProductSales struct {
	Name     string `json:"product__name"`
	Quantity int    `json:"qty"`
}

// CategoryRevenue is one slice of the revenue by category chart.
type CategoryRevenue struct {
	Category string          `json:"product__category"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// DailySales is the quantity sold on one day.
type DailySales struct {
	Date     string `json:"date"`
	Quantity int    `json:"quantity"`
}

// Growth compares the last 30 days with the 30 before. A nil growth means
// there was nothing to compare against.
type Growth struct {
	SalesLast30   int             `json:"sales_last_30"`
	SalesPrev30   int             `json:"sales_prev_30"`
	SalesGrowth   *float64        `json:"sales_growth"`
	RevenueLast30 decimal.Decimal `json:"revenue_last_30"`
	RevenuePrev30 decimal.Decimal `json:"revenue_prev_30"`
	RevenueGrowth *float64        `json:"revenue_growth"`
}

// RecentSale is one of the latest fulfilled order items.
type RecentSale struct {
	ID       int             `json:"id"`
	Product  string          `json:"product"`
	Quantity int             `json:"qty"`
	Buyer    User            `json:"buyer"`
	Status   string          `json:"status"`
	Date     string          `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
}

// FarmerAnalytics is the body of GET /api/farmer-analytics/. Every figure is
// aggregated by the backend.
type FarmerAnalytics struct {
	TotalOrders         int               `json:"total_orders"`
	TotalSalesQuantity  int               `json:"total_sales_quantity"`
	TotalRevenue        decimal.Decimal   `json:"total_revenue"`
	BestSeller          *string           `json:"best_seller"`
	ActiveListings      int               `json:"active_listings"`
	CustomerCount       int               `json:"customer_count"`
	SalesOverTime       []DailySales      `json:"sales_over_time"`
	BestSellingProducts []ProductSales    `json:"best_selling_products"`
	RevenueByCategory   []CategoryRevenue `json:"revenue_by_category"`
	Growth              Growth            `json:"growth_metrics"`
	PendingOrders       int               `json:"pending_orders"`
	AverageRating       float64           `json:"avg_rating"`
	RecentOrders        []RecentSale      `json:"recent_orders"`
}

// FarmerAnalytics calls GET /api/farmer-analytics/.
func (c *Client) FarmerAnalytics(ctx context.Context, token string) (*FarmerAnalytics, error) {
	var a FarmerAnalytics
	if err := c.getJSON(ctx, "/api/farmer-analytics/", nil, token, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
