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
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/catalog"
	"github.com/krishikarobar/storefront/session"
	"github.com/krishikarobar/storefront/validator"
)

func (fe *frontendServer) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	q := r.URL.Query()

	renderTemplate(w, r, "dashboard", map[string]interface{}{
		"dashboard":  fe.getDashboard(r.Context(), log, auth, q),
		"profile":    auth.Profile,
		"categories": catalog.Categories,
		"statuses":   catalog.ProductStatuses,
		"sorts":      catalog.InventorySorts,
		"status":     q.Get("status"),
		"category":   q.Get("category"),
		"search":     q.Get("search"),
		"sort":       q.Get("sort"),
	})
}

// orderItemStatusHandler moves one incoming order item along; the backend
// decides whether the transition is allowed.
func (fe *frontendServer) orderItemStatusHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	payload := validator.OrderItemStatusPayload{Status: r.FormValue("status")}
	if err := payload.Validate(); err != nil {
		setFlash(w, flashError, validator.Message(err))
		redirect(w, r, "/dashboard")
		return
	}
	if err := fe.api.SetOrderItemStatus(r.Context(), auth.Token, id, backend.OrderStatus(payload.Status)); err != nil {
		log.WithField("error", err).WithField("item", id).Warn("status update failed")
		setFlash(w, flashError, backend.Detail(err, "Failed to update order status."))
	} else {
		log.WithField("item", id).WithField("status", payload.Status).Info("order item updated")
		setFlash(w, flashSuccess, "Order status updated.")
	}
	redirect(w, r, "/dashboard")
}

func (fe *frontendServer) deleteOrderItemHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	if err := fe.api.DeleteOrderItem(r.Context(), auth.Token, id); err != nil {
		log.WithField("error", err).WithField("item", id).Warn("order item delete failed")
		setFlash(w, flashError, backend.Detail(err, "Failed to delete order item."))
	} else {
		setFlash(w, flashSuccess, "Order item deleted.")
	}
	redirect(w, r, "/dashboard")
}

func productForm(r *http.Request) validator.ProductPayload {
	v := func(k string) string { return strings.TrimSpace(r.FormValue(k)) }
	return validator.ProductPayload{
		Name:           v("name"),
		Category:       v("category"),
		Subcategory:    v("subcategory"),
		Price:          v("price"),
		MinOrder:       v("min_order"),
		Unit:           v("unit"),
		Stock:          v("stock"),
		Status:         v("status"),
		Province:       v("province"),
		ProductAddress: v("product_address"),
		Description:    v("description"),
	}
}

// productInput converts a validated form.
func productInput(p validator.ProductPayload, image *backend.Upload) backend.ProductInput {
	price, _ := decimal.NewFromString(p.Price)
	stock, _ := strconv.Atoi(p.Stock)
	minOrder, _ := strconv.Atoi(p.MinOrder)
	return backend.ProductInput{
		Name:           p.Name,
		Category:       p.Category,
		Subcategory:    p.Subcategory,
		Price:          price,
		MinOrder:       minOrder,
		Unit:           p.Unit,
		Province:       p.Province,
		ProductAddress: p.ProductAddress,
		Description:    p.Description,
		Stock:          stock,
		Status:         p.Status,
		Image:          image,
	}
}

func productFormFrom(p *backend.Product) validator.ProductPayload {
	f := validator.ProductPayload{
		Name:           p.Name,
		Category:       p.Category,
		Subcategory:    p.Subcategory,
		Price:          p.Price.StringFixed(2),
		Unit:           p.Unit,
		Stock:          strconv.Itoa(p.Stock),
		Status:         p.Status,
		Province:       p.Province,
		ProductAddress: p.ProductAddress,
		Description:    p.Description,
	}
	if p.MinOrder > 0 {
		f.MinOrder = strconv.Itoa(p.MinOrder)
	}
	return f
}

type productFormView struct {
	ID      int
	Image   string
	Form    validator.ProductPayload
	Errors  map[string]string
	Message string
}

func renderProductForm(w http.ResponseWriter, r *http.Request, v productFormView) {
	renderTemplate(w, r, "product_form", map[string]interface{}{
		"product":    v,
		"form":       v.Form,
		"errors":     v.Errors,
		"categories": catalog.Categories,
		"units":      catalog.Units,
		"statuses":   catalog.ProductStatuses,
		"provinces":  catalog.Provinces,
	})
}

func (fe *frontendServer) newProductHandler(w http.ResponseWriter, r *http.Request) {
	renderProductForm(w, r, productFormView{Form: validator.ProductPayload{Status: catalog.ProductStatuses[0]}})
}

// saveProduct validates the submitted form and creates (id == 0) or updates
// the listing. A rejected form is rendered again with the input kept.
func (fe *frontendServer) saveProduct(w http.ResponseWriter, r *http.Request, id int) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not parse product form"), http.StatusBadRequest)
		return
	}

	view := productFormView{ID: id, Form: productForm(r)}
	if err := view.Form.Validate(); err != nil {
		view.Errors = validator.FieldErrors(err)
		view.Message = "Please fill all required fields."
		renderProductForm(w, r, view)
		return
	}
	image, err := readUpload(r, "image")
	if err != nil {
		view.Message = "Could not read the product image."
		renderProductForm(w, r, view)
		return
	}

	in := productInput(view.Form, image)
	if id == 0 {
		_, err = fe.api.CreateProduct(r.Context(), auth.Token, in)
	} else {
		_, err = fe.api.UpdateProduct(r.Context(), auth.Token, id, in)
	}
	if err != nil {
		log.WithField("error", err).WithField("product", id).Warn("product save failed")
		fallback := "Failed to add product. Please try again."
		if id != 0 {
			fallback = "Failed to update product."
		}
		view.Message = backend.Detail(err, fallback)
		renderProductForm(w, r, view)
		return
	}

	if id == 0 {
		log.WithField("name", in.Name).Info("product added")
		setFlash(w, flashSuccess, "Product added successfully!")
	} else {
		log.WithField("product", id).Info("product updated")
		setFlash(w, flashSuccess, "Product updated successfully!")
	}
	redirect(w, r, "/dashboard")
}

func (fe *frontendServer) createProductHandler(w http.ResponseWriter, r *http.Request) {
	fe.saveProduct(w, r, 0)
}

func (fe *frontendServer) editProductHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	p, err := fe.api.FarmerProduct(r.Context(), auth.Token, id)
	if err != nil {
		code := http.StatusInternalServerError
		if backend.IsStatus(err, http.StatusNotFound) {
			code = http.StatusNotFound
		}
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve product"), code)
		return
	}
	renderProductForm(w, r, productFormView{ID: id, Image: p.ImageURL(), Form: productFormFrom(p)})
}

func (fe *frontendServer) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	fe.saveProduct(w, r, id)
}

func (fe *frontendServer) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	if err := fe.api.DeleteProduct(r.Context(), auth.Token, id); err != nil {
		log.WithField("error", err).WithField("product", id).Warn("product delete failed")
		setFlash(w, flashError, backend.Detail(err, "Failed to delete product."))
	} else {
		log.WithField("product", id).Info("product deleted")
		setFlash(w, flashSuccess, "Product deleted successfully!")
	}
	back(w, r, "/dashboard")
}

// bulkDeleteProductsHandler deletes every selected listing concurrently and
// reports the first failure.
func (fe *frontendServer) bulkDeleteProductsHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not parse selection"), http.StatusBadRequest)
		return
	}

	var payload validator.BulkDeletePayload
	for _, s := range r.Form["selected"] {
		if id, err := strconv.Atoi(s); err == nil {
			payload.IDs = append(payload.IDs, id)
		}
	}
	if err := payload.Validate(); err != nil {
		setFlash(w, flashError, validator.Message(err))
		back(w, r, "/dashboard")
		return
	}

	g, ctx := errgroup.WithContext(r.Context())
	for _, id := range payload.IDs {
		id := id
		g.Go(func() error {
			return errors.Wrapf(fe.api.DeleteProduct(ctx, auth.Token, id), "product %d", id)
		})
	}
	if err := g.Wait(); err != nil {
		log.WithField("error", err).Warn("bulk delete failed")
		setFlash(w, flashError, backend.Detail(err, "Failed to delete product(s)."))
	} else {
		log.WithField("count", len(payload.IDs)).Info("products deleted")
		setFlash(w, flashSuccess, "Product deleted successfully!")
	}
	back(w, r, "/dashboard")
}
