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
	"net/url"
	"sort"
	"strconv"
)

// BrowseProducts calls GET /api/browse-products/ with listing parameters.
func (c *Client) BrowseProducts(ctx context.Context, token string, query url.Values) ([]*Product, error) {
	var out listOf[*Product]
	if err := c.getJSON(ctx, "/api/browse-products/", query, token, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Product calls GET /api/browse-products/{id}/.
func (c *Client) Product(ctx context.Context, token string, id int) (*Product, error) {
	var p Product
	if err := c.getJSON(ctx, fmt.Sprintf("/api/browse-products/%d/", id), nil, token, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// InventoryProduct calls GET /api/inventory/{id}/.
func (c *Client) InventoryProduct(ctx context.Context, token string, id int) (*Product, error) {
	var p Product
	if err := c.getJSON(ctx, fmt.Sprintf("/api/inventory/%d/", id), nil, token, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// InventoryProducts calls GET /api/inventory/.
func (c *Client) InventoryProducts(ctx context.Context, query url.Values) ([]*Product, error) {
	var out listOf[*Product]
	if err := c.getJSON(ctx, "/api/inventory/", query, "", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// SimilarProducts calls GET /api/browse-products/{id}/similar/.
func (c *Client) SimilarProducts(ctx context.Context, token string, id int) ([]*Product, error) {
	var out listOf[*Product]
	if err := c.getJSON(ctx, fmt.Sprintf("/api/browse-products/%d/similar/", id), nil, token, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Subcategories calls GET /api/browse-products/subcategories/?category=.
func (c *Client) Subcategories(ctx context.Context, token, category string) ([]string, error) {
	var out struct {
		Subcategories []string `json:"subcategories"`
	}
	q := url.Values{"category": {category}}
	if err := c.getJSON(ctx, "/api/browse-products/subcategories/", q, token, &out); err != nil {
		return nil, err
	}
	return out.Subcategories, nil
}

// FarmerProducts calls GET /api/products/ (the farmer's own listings).
func (c *Client) FarmerProducts(ctx context.Context, token string, query url.Values) ([]*Product, error) {
	var out listOf[*Product]
	if err := c.getJSON(ctx, "/api/products/", query, token, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Reviews lists the reviews of a product.
func (c *Client) Reviews(ctx context.Context, token string, kind ReviewKind, productID int) ([]*Review, error) {
	var out listOf[*Review]
	q := url.Values{"product": {strconv.Itoa(productID)}}
	if err := c.getJSON(ctx, "/api/"+string(kind)+"/", q, token, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// RecentReviews lists the newest reviews, used as homepage testimonials.
func (c *Client) RecentReviews(ctx context.Context, kind ReviewKind, limit int) ([]*Review, error) {
	var out listOf[*Review]
	q := url.Values{"ordering": {"-date"}, "page_size": {strconv.Itoa(limit)}}
	if err := c.getJSON(ctx, "/api/"+string(kind)+"/", q, "", &out); err != nil {
		return nil, err
	}
	if len(out.Items) > limit {
		out.Items = out.Items[:limit]
	}
	return out.Items, nil
}

// RatingBucket is one star level of a rating distribution.
type RatingBucket struct {
	Stars int
	Count int
}

// RatingDistribution calls …/rating_distribution/?product= and returns the
// buckets ordered from five stars down.
func (c *Client) RatingDistribution(ctx context.Context, token string, kind ReviewKind, productID int) ([]RatingBucket, error) {
	var out map[string]int
	q := url.Values{"product": {strconv.Itoa(productID)}}
	if err := c.getJSON(ctx, "/api/"+string(kind)+"/rating_distribution/", q, token, &out); err != nil {
		return nil, err
	}
	buckets := make([]RatingBucket, 0, len(out))
	for k, v := range out {
		stars, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		buckets = append(buckets, RatingBucket{Stars: stars, Count: v})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Stars > buckets[j].Stars })
	return buckets, nil
}

func reviewParts(in ReviewInput, withProduct bool) []formPart {
	var parts []formPart
	if withProduct {
		parts = append(parts, formPart{name: "product", value: strconv.Itoa(in.ProductID)})
	}
	parts = append(parts,
		formPart{name: "rating", value: strconv.Itoa(in.Rating)},
		formPart{name: "review", value: in.Review},
	)
	if in.Image != nil {
		parts = append(parts, formPart{name: "image", file: in.Image})
	}
	return parts
}

// CreateReview posts a new review.
func (c *Client) CreateReview(ctx context.Context, token string, kind ReviewKind, in ReviewInput) (*Review, error) {
	var r Review
	if err := c.sendMultipart(ctx, http.MethodPost, "/api/"+string(kind)+"/", token, reviewParts(in, true), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReview edits rating, text and optionally the image of a review.
func (c *Client) UpdateReview(ctx context.Context, token string, kind ReviewKind, id int, in ReviewInput) (*Review, error) {
	var r Review
	path := fmt.Sprintf("/api/%s/%d/", kind, id)
	if err := c.sendMultipart(ctx, http.MethodPatch, path, token, reviewParts(in, false), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteReview removes a review.
func (c *Client) DeleteReview(ctx context.Context, token string, kind ReviewKind, id int) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/%s/%d/", kind, id), token, nil, nil)
}

// React applies like/dislike/unlike and returns the updated review.
func (c *Client) React(ctx context.Context, token string, kind ReviewKind, id int, action Reaction) (*Review, error) {
	var r Review
	path := fmt.Sprintf("/api/%s/%d/%s/", kind, id, action)
	if err := c.sendJSON(ctx, http.MethodPost, path, token, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
