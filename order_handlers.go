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
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/session"
	"github.com/krishikarobar/storefront/validator"
)

var orderStatuses = []backend.OrderStatus{
	backend.StatusPending,
	backend.StatusAccepted,
	backend.StatusShipped,
	backend.StatusDelivered,
	backend.StatusCancelled,
}

func (fe *frontendServer) ordersHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "all"
	}

	orders, err := fe.api.Orders(r.Context(), auth.Token, status, "-created_at")
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusInternalServerError)
		return
	}
	renderTemplate(w, r, "orders", map[string]interface{}{
		"orders":   orders,
		"status":   status,
		"statuses": orderStatuses,
	})
}

func (fe *frontendServer) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	if err := fe.api.CancelOrder(r.Context(), auth.Token, id); err != nil {
		log.WithField("error", err).WithField("order", id).Warn("cancel failed")
		setFlash(w, flashError, backend.Detail(err, "Failed to cancel order."))
	} else {
		log.WithField("order", id).Info("order cancelled")
		setFlash(w, flashSuccess, "Order cancelled.")
	}
	back(w, r, "/my-orders")
}

// orderNowHandler places a one-line order from a product page.
func (fe *frontendServer) orderNowHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	payload := validator.OrderNowPayload{
		ProductID:          formInt(r, "product_id"),
		InventoryProductID: formInt(r, "inventory_product_id"),
		Quantity:           formInt(r, "quantity"),
		Note:               r.FormValue("note"),
	}
	if err := payload.Validate(); err != nil {
		setFlash(w, flashError, validator.Message(err))
		back(w, r, "/products")
		return
	}

	p, inventory, err := fe.loadProduct(r.Context(), auth.Token, payload.ProductID, payload.InventoryProductID)
	if err != nil {
		log.WithField("error", err).Warn("could not retrieve product")
		setFlash(w, flashError, backend.Detail(err, "Failed to place order."))
		back(w, r, "/products")
		return
	}
	order, err := fe.cart.OrderNow(r.Context(), auth.Token, p, inventory, payload.Quantity, payload.Note)
	if err != nil {
		log.WithField("error", err).Warn("order now rejected")
		setFlash(w, flashError, userMessage(err, "Failed to place order."))
		back(w, r, "/products")
		return
	}
	log.WithField("order", order.ID).Info("order placed")
	setFlash(w, flashSuccess, "Order placed successfully!")
	redirect(w, r, "/my-orders")
}
