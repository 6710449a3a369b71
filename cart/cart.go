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

// Package cart holds the storefront side of the shopping cart: quantity
// bounds, line selection, the summary box and order assembly. The backend
// stays authoritative for stock and prices.
package cart

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/money"
)

var ErrNothingSelected = errors.New("Please select at least one item to order.")

// StockError rejects an order line asking for more than is in stock.
type StockError struct {
	Name  string
	Stock int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Cannot order more than available stock for \"%s\" (max: %d).", e.Name, e.Stock)
}

// MinOrder returns the product's minimum order quantity, at least 1.
func MinOrder(p *backend.Product) int {
	if p == nil || p.MinOrder < 1 {
		return 1
	}
	return p.MinOrder
}

// ClampQuantity applies delta to current. Decrements stop at minOrder and
// an increment past stock leaves current unchanged.
func ClampQuantity(current, delta, minOrder, stock int) int {
	if minOrder < 1 {
		minOrder = 1
	}
	next := current + delta
	switch {
	case delta < 0 && next < minOrder:
		return minOrder
	case delta > 0 && next > stock:
		return current
	}
	return next
}

// ClampOrderQuantity bounds a typed-in quantity to [minOrder, stock]. Stock
// wins when it is below minOrder.
func ClampOrderQuantity(q, minOrder, stock int) int {
	if q < minOrder {
		q = minOrder
	}
	if q > stock {
		q = stock
	}
	return q
}

// Selection is the set of checked cart line ids.
type Selection map[int]bool

// SelectAll checks every line. The cart page starts from this state each
// time the cart is loaded.
func SelectAll(items []*backend.CartItem) Selection {
	s := make(Selection, len(items))
	for _, it := range items {
		s[it.ID] = true
	}
	return s
}

// ParseSelection reads checkbox values; malformed ids are ignored.
func ParseSelection(values []string) Selection {
	s := make(Selection, len(values))
	for _, v := range values {
		if id, err := strconv.Atoi(v); err == nil {
			s[id] = true
		}
	}
	return s
}

// AllSelected reports whether every line of items is checked.
func (s Selection) AllSelected(items []*backend.CartItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if !s[it.ID] {
			return false
		}
	}
	return true
}

// Filter returns the selected lines in cart order.
func (s Selection) Filter(items []*backend.CartItem) []*backend.CartItem {
	var out []*backend.CartItem
	for _, it := range items {
		if s[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// Subtotal sums price × quantity over items.
func Subtotal(items []*backend.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		p := it.Item()
		if p == nil {
			continue
		}
		line, err := money.Line(p.Price, it.Quantity)
		if err != nil {
			continue
		}
		sum = sum.Add(line)
	}
	return sum
}

// Summarize computes subtotal, 5% tax and total for items.
func Summarize(items []*backend.CartItem) money.Summary {
	return money.Summarize(Subtotal(items))
}

// UniqueCount is the navbar cart badge: number of distinct lines.
func UniqueCount(c *backend.Cart) int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// CheckStock returns a *StockError for the first line whose quantity
// exceeds its product's stock.
func CheckStock(items []*backend.CartItem) error {
	for _, it := range items {
		p := it.Item()
		if p == nil {
			continue
		}
		if it.Quantity > p.Stock {
			return &StockError{Name: p.Name, Stock: p.Stock}
		}
	}
	return nil
}

// OrderLine converts a cart line into an order line. Lines without a
// product are skipped (ok is false).
func OrderLine(it *backend.CartItem) (backend.OrderLine, bool) {
	switch {
	case it.Product != nil && it.Product.ID != 0:
		l := backend.OrderLine{ProductID: it.Product.ID, Quantity: it.Quantity, Note: it.Note}
		if it.Product.Farmer != nil {
			l.FarmerID = it.Product.Farmer.ID
		}
		return l, true
	case it.InventoryProduct != nil && it.InventoryProduct.ID != 0:
		return backend.OrderLine{InventoryProductID: it.InventoryProduct.ID, Quantity: it.Quantity, Note: it.Note}, true
	}
	return backend.OrderLine{}, false
}

// BuildOrder assembles the order request for the selected lines.
func BuildOrder(selected []*backend.CartItem, address, note string) (backend.OrderRequest, error) {
	if len(selected) == 0 {
		return backend.OrderRequest{}, ErrNothingSelected
	}
	if err := CheckStock(selected); err != nil {
		return backend.OrderRequest{}, err
	}
	req := backend.OrderRequest{ShippingAddress: address, Note: note}
	for _, it := range selected {
		if l, ok := OrderLine(it); ok {
			req.Items = append(req.Items, l)
		}
	}
	if len(req.Items) == 0 {
		return backend.OrderRequest{}, ErrNothingSelected
	}
	return req, nil
}
