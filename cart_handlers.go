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

package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/cart"
	"github.com/krishikarobar/storefront/session"
	"github.com/krishikarobar/storefront/validator"
)

// userMessage picks the toast text for a failed mutation: local validation
// errors verbatim, otherwise the backend's detail or fallback.
func userMessage(err error, fallback string) string {
	var se *cart.StockError
	switch {
	case errors.As(err, &se):
		return se.Error()
	case errors.Is(err, cart.ErrNothingSelected), errors.Is(err, cart.ErrItemNotFound):
		return errors.Cause(err).Error()
	}
	return backend.Detail(err, fallback)
}

func (fe *frontendServer) viewCartHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	log.Debug("view user cart")

	if !auth.IsCustomer() {
		renderTemplate(w, r, "cart", map[string]interface{}{
			"items":   []*backend.CartItem{},
			"summary": cart.Summarize(nil),
		})
		return
	}

	c, sel, err := fe.cart.Load(r.Context(), auth.Token)
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusInternalServerError)
		return
	}
	// the summary can be recomputed for a subset of lines without refetching
	if q := r.URL.Query(); q.Has("selection") {
		sel = cart.ParseSelection(q["selected"])
	}

	renderTemplate(w, r, "cart", map[string]interface{}{
		"items":        c.Items,
		"selected":     sel,
		"all_selected": sel.AllSelected(c.Items),
		"summary":      cart.Summarize(sel.Filter(c.Items)),
		"count":        len(sel.Filter(c.Items)),
	})
}

// loadProduct fetches a farmer product or an inventory product.
func (fe *frontendServer) loadProduct(ctx context.Context, token string, productID, inventoryID int) (*backend.Product, bool, error) {
	if inventoryID != 0 {
		p, err := fe.api.InventoryProduct(ctx, token, inventoryID)
		return p, true, err
	}
	p, err := fe.api.Product(ctx, token, productID)
	return p, false, err
}

func formInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.FormValue(key))
	return n
}

func (fe *frontendServer) addToCartHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	payload := validator.AddToCartPayload{
		ProductID:          formInt(r, "product_id"),
		InventoryProductID: formInt(r, "inventory_product_id"),
		Quantity:           formInt(r, "quantity"),
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}

	p, _, err := fe.loadProduct(r.Context(), auth.Token, payload.ProductID, payload.InventoryProductID)
	if err != nil {
		log.WithField("error", err).Warn("could not retrieve product")
		setFlash(w, flashError, backend.Detail(err, "Failed to add to cart."))
		back(w, r, "/products")
		return
	}
	if p.Stock <= 0 {
		setFlash(w, flashError, "Out of stock.")
		back(w, r, "/products")
		return
	}
	log.WithField("product", p.ID).WithField("quantity", payload.Quantity).Debug("adding to cart")

	if _, err := fe.api.AddCartItem(r.Context(), auth.Token, backend.AddCartItemRequest{
		ProductID:          payload.ProductID,
		InventoryProductID: payload.InventoryProductID,
		Quantity:           cart.ClampOrderQuantity(payload.Quantity, cart.MinOrder(p), p.Stock),
	}); err != nil {
		log.WithField("error", err).Warn("failed to add to cart")
		setFlash(w, flashError, backend.Detail(err, "Failed to add to cart."))
		back(w, r, "/products")
		return
	}
	setFlash(w, flashSuccess, p.Name+" added to cart!")
	back(w, r, "/cart")
}

// withCartLine loads the cart and the line id from the route, then runs fn.
// Failures are flashed and the browser returns to the cart.
func (fe *frontendServer) withCartLine(w http.ResponseWriter, r *http.Request, fallback string,
	fn func(ctx context.Context, token string, c *backend.Cart, id int) error) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	c, _, err := fe.cart.Load(r.Context(), auth.Token)
	if err == nil {
		err = fn(r.Context(), auth.Token, c, id)
	}
	if err != nil {
		log.WithField("error", err).WithField("item", id).Warn("cart update failed")
		setFlash(w, flashError, userMessage(err, fallback))
	}
	redirect(w, r, "/cart")
}

func (fe *frontendServer) updateQuantityHandler(w http.ResponseWriter, r *http.Request) {
	delta := formInt(r, "delta")
	fe.withCartLine(w, r, "Failed to update quantity.", func(ctx context.Context, token string, c *backend.Cart, id int) error {
		_, err := fe.cart.ChangeQuantity(ctx, token, c, id, delta)
		return err
	})
}

func (fe *frontendServer) updateNoteHandler(w http.ResponseWriter, r *http.Request) {
	note := r.FormValue("note")
	fe.withCartLine(w, r, "Failed to update note.", func(ctx context.Context, token string, c *backend.Cart, id int) error {
		_, err := fe.cart.SetNote(ctx, token, c, id, note)
		return err
	})
}

func (fe *frontendServer) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	fe.withCartLine(w, r, "Failed to remove item.", func(ctx context.Context, token string, c *backend.Cart, id int) error {
		if err := fe.cart.Remove(ctx, token, c, id); err != nil {
			return err
		}
		setFlash(w, flashSuccess, "Item removed from cart.")
		return nil
	})
}

// placeOrderHandler orders the checked lines of the cart.
func (fe *frontendServer) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	log.Debug("placing order")

	if err := r.ParseForm(); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not parse checkout form"), http.StatusBadRequest)
		return
	}
	c, _, err := fe.cart.Load(r.Context(), auth.Token)
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusInternalServerError)
		return
	}
	order, err := fe.cart.Checkout(r.Context(), auth.Token, c, cart.ParseSelection(r.PostForm["selected"]))
	if err != nil {
		log.WithField("error", err).Warn("checkout rejected")
		setFlash(w, flashError, userMessage(err, "Failed to place order."))
		redirect(w, r, "/cart")
		return
	}
	log.WithField("order", order.ID).Info("order placed")
	setFlash(w, flashSuccess, "Order placed successfully!")
	redirect(w, r, "/my-orders")
}
