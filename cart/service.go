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

package cart

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/krishikarobar/storefront/backend"
)

// API is the slice of the marketplace client the cart needs.
type API interface {
	Cart(ctx context.Context, token string) (*backend.Cart, error)
	UpdateCartItem(ctx context.Context, token string, id int, patch backend.CartItemPatch) (*backend.CartItem, error)
	RemoveCartItem(ctx context.Context, token string, id int) error
	Profile(ctx context.Context, token string) (*backend.Profile, error)
	PlaceOrder(ctx context.Context, token string, in backend.OrderRequest) (*backend.Order, error)
}

// ErrItemNotFound is returned when a line id is not part of the cart.
var ErrItemNotFound = errors.New("Cart item not found.")

type Service struct {
	api API
	log logrus.FieldLogger
}

func NewService(api API, log logrus.FieldLogger) *Service {
	return &Service{api: api, log: log}
}

// Load fetches the cart with every line selected.
func (s *Service) Load(ctx context.Context, token string) (*backend.Cart, Selection, error) {
	c, err := s.api.Cart(ctx, token)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not retrieve cart")
	}
	return c, SelectAll(c.Items), nil
}

func find(c *backend.Cart, id int) (int, *backend.CartItem) {
	if c == nil {
		return -1, nil
	}
	for i, it := range c.Items {
		if it.ID == id {
			return i, it
		}
	}
	return -1, nil
}

// merge lays the server's copy of a line over the local one. Product
// blocks missing from the response are kept.
func merge(local, updated *backend.CartItem) *backend.CartItem {
	out := *updated
	if out.Product == nil && out.InventoryProduct == nil {
		out.Product = local.Product
		out.InventoryProduct = local.InventoryProduct
	}
	return &out
}

// ChangeQuantity steps the quantity of line id by delta within the line's
// bounds and saves it. A step hitting a bound makes no backend call.
func (s *Service) ChangeQuantity(ctx context.Context, token string, c *backend.Cart, id, delta int) (*backend.CartItem, error) {
	i, it := find(c, id)
	if it == nil {
		return nil, ErrItemNotFound
	}
	p := it.Item()
	stock := 0
	if p != nil {
		stock = p.Stock
	}
	q := ClampQuantity(it.Quantity, delta, MinOrder(p), stock)
	if q == it.Quantity {
		return it, nil
	}
	updated, err := s.api.UpdateCartItem(ctx, token, id, backend.CartItemPatch{Quantity: &q})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to update quantity.")
	}
	c.Items[i] = merge(it, updated)
	s.log.WithField("item", id).WithField("quantity", c.Items[i].Quantity).Debug("cart quantity updated")
	return c.Items[i], nil
}

// SetNote saves the note of line id.
func (s *Service) SetNote(ctx context.Context, token string, c *backend.Cart, id int, note string) (*backend.CartItem, error) {
	i, it := find(c, id)
	if it == nil {
		return nil, ErrItemNotFound
	}
	updated, err := s.api.UpdateCartItem(ctx, token, id, backend.CartItemPatch{Note: &note})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to update note.")
	}
	c.Items[i] = merge(it, updated)
	return c.Items[i], nil
}

// Remove deletes line id from the server cart and from c.
func (s *Service) Remove(ctx context.Context, token string, c *backend.Cart, id int) error {
	i, it := find(c, id)
	if it == nil {
		return ErrItemNotFound
	}
	if err := s.api.RemoveCartItem(ctx, token, id); err != nil {
		return errors.Wrap(err, "Failed to remove item.")
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return nil
}

// Checkout places an order for the selected lines of c. Selection and stock
// are checked before any backend call; the shipping address comes from the
// profile.
func (s *Service) Checkout(ctx context.Context, token string, c *backend.Cart, sel Selection) (*backend.Order, error) {
	var items []*backend.CartItem
	if c != nil {
		items = sel.Filter(c.Items)
	}
	if _, err := BuildOrder(items, "", ""); err != nil {
		return nil, err
	}
	return s.place(ctx, token, items)
}

// OrderNow places a single-line order for product straight from its page.
// quantity is clamped to the product's bounds first.
func (s *Service) OrderNow(ctx context.Context, token string, p *backend.Product, inventory bool, quantity int, note string) (*backend.Order, error) {
	if p == nil {
		return nil, ErrNothingSelected
	}
	it := &backend.CartItem{Quantity: ClampOrderQuantity(quantity, MinOrder(p), p.Stock), Note: note}
	if inventory {
		it.InventoryProduct = p
	} else {
		it.Product = p
	}
	if it.Quantity < 1 {
		return nil, &StockError{Name: p.Name, Stock: p.Stock}
	}
	items := []*backend.CartItem{it}
	if _, err := BuildOrder(items, "", ""); err != nil {
		return nil, err
	}
	return s.place(ctx, token, items)
}

func (s *Service) place(ctx context.Context, token string, items []*backend.CartItem) (*backend.Order, error) {
	profile, err := s.api.Profile(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to fetch profile")
	}
	req, err := BuildOrder(items, profile.Details.Address, "")
	if err != nil {
		return nil, err
	}
	order, err := s.api.PlaceOrder(ctx, token, req)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to place order.")
	}
	s.log.WithField("order", order.ID).WithField("lines", len(req.Items)).Info("order placed")
	return order, nil
}
