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
)

// Cart calls GET /api/cart/.
func (c *Client) Cart(ctx context.Context, token string) (*Cart, error) {
	var cart Cart
	if err := c.getJSON(ctx, "/api/cart/", nil, token, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddCartItem calls POST /api/cart/items/.
func (c *Client) AddCartItem(ctx context.Context, token string, in AddCartItemRequest) (*CartItem, error) {
	var item CartItem
	if err := c.sendJSON(ctx, http.MethodPost, "/api/cart/items/", token, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateCartItem calls PATCH /api/cart/items/{id}/ and returns the server's
// copy of the line.
func (c *Client) UpdateCartItem(ctx context.Context, token string, id int, patch CartItemPatch) (*CartItem, error) {
	var item CartItem
	if err := c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("/api/cart/items/%d/", id), token, patch, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveCartItem calls DELETE /api/cart/items/{id}/.
func (c *Client) RemoveCartItem(ctx context.Context, token string, id int) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/cart/items/%d/", id), token, nil, nil)
}

// Orders calls GET /api/orders/. An empty or "all" status means no filter.
func (c *Client) Orders(ctx context.Context, token string, status string, ordering string) ([]*Order, error) {
	q := url.Values{}
	if status != "" && status != "all" {
		q.Set("status", status)
	}
	if ordering != "" {
		q.Set("ordering", ordering)
	}
	var out listOf[*Order]
	if err := c.getJSON(ctx, "/api/orders/", q, token, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// PlaceOrder calls POST /api/orders/.
func (c *Client) PlaceOrder(ctx context.Context, token string, in OrderRequest) (*Order, error) {
	var o Order
	if err := c.sendJSON(ctx, http.MethodPost, "/api/orders/", token, in, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CancelOrder asks the backend to move an order to cancelled.
func (c *Client) CancelOrder(ctx context.Context, token string, id int) error {
	in := map[string]OrderStatus{"status": StatusCancelled}
	return c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("/api/orders/%d/", id), token, in, nil)
}

// FarmerOrderItems calls GET /api/farmer-order-items/.
func (c *Client) FarmerOrderItems(ctx context.Context, token string) ([]*OrderItem, error) {
	var out listOf[*OrderItem]
	if err := c.getJSON(ctx, "/api/farmer-order-items/", nil, token, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// SetOrderItemStatus lets a farmer accept/ship/deliver one order item.
func (c *Client) SetOrderItemStatus(ctx context.Context, token string, id int, status OrderStatus) error {
	in := map[string]OrderStatus{"status": status}
	return c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("/api/farmer-order-items/%d/", id), token, in, nil)
}

// DeleteOrderItem calls DELETE /api/farmer-order-items/{id}/.
func (c *Client) DeleteOrderItem(ctx context.Context, token string, id int) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/farmer-order-items/%d/", id), token, nil, nil)
}
