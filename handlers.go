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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/cart"
	"github.com/krishikarobar/storefront/catalog"
	"github.com/krishikarobar/storefront/money"
	"github.com/krishikarobar/storefront/session"
	"github.com/krishikarobar/storefront/validator"
)

var (
	templates = template.Must(template.New("").
			Funcs(template.FuncMap{
			"renderMoney": renderMoney,
			"renderWhole": money.RenderWhole,
			"initials":    initials,
			"stars":       stars,
			"deref":       deref,
			"percent":     percent,
			"minOrder":    cart.MinOrder,
			"lineTotal":   lineTotal,
			"dict":        dict,
			"float":       func(i int) float64 { return float64(i) },
			"add":         func(a, b int) int { return a + b },
			"fieldError":  func(errs map[string]string, field string) string { return errs[field] },
			"km":          km,
			"growth":      growth,
		}).ParseGlob("templates/*.html"))
)

func (fe *frontendServer) homeHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	log.Debug("home")

	d := fe.getHomeData(r.Context(), log, auth)
	renderTemplate(w, r, "home", map[string]interface{}{
		"home":        d,
		"categories":  catalog.Categories,
		"show_search": true,
	})
}

func (fe *frontendServer) productsHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())

	bounds := fe.getPriceBounds(r.Context(), log, auth.Token)
	f := catalog.ParseFilter(r.URL.Query(), bounds)
	log.WithField("filter", f.Query(bounds).Encode()).Debug("browsing products")

	var (
		products      []*backend.Product
		listErr       string
		subcategories []string
	)
	var g errgroup.Group
	g.Go(func() error {
		ps, err := fe.api.BrowseProducts(r.Context(), auth.Token, f.Query(bounds))
		if err != nil {
			log.WithField("error", err).Warn("failed to browse products")
			listErr = "Failed to load products. Please try again later."
		}
		products = ps
		return nil
	})
	if f.Category != "" {
		g.Go(func() error {
			subcategories = fe.getSubcategories(r.Context(), log, auth.Token, f.Category)
			return nil
		})
	}
	g.Wait()

	renderTemplate(w, r, "products", map[string]interface{}{
		"products":      products,
		"list_error":    listErr,
		"filter":        f,
		"bounds":        bounds,
		"chips":         f.Chips(bounds),
		"categories":    catalog.Categories,
		"subcategories": subcategories,
		"provinces":     catalog.Provinces,
		"badges":        catalog.Badges,
		"badge_info":    catalog.BadgeInfo,
		"sort_options":  catalog.SortOptions,
	})
}

// liveSearchHandler serves the filter form's as-you-type requests. A newer
// request from the same session cancels this one; superseded requests answer
// 204 so the page keeps the fresher result.
func (fe *frontendServer) liveSearchHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())

	key := sessionID(r)
	ctx, version, done := fe.tracker.Begin(r.Context(), key)
	defer done()
	w.Header().Set("X-Filter-Version", strconv.FormatUint(version, 10))

	q := r.URL.Query()
	var bounds catalog.Bounds
	bmin, errMin := decimal.NewFromString(q.Get("bounds_min"))
	bmax, errMax := decimal.NewFromString(q.Get("bounds_max"))
	if errMin == nil && errMax == nil {
		bounds = catalog.Bounds{Min: bmin, Max: bmax}
	} else {
		bounds = fe.getPriceBounds(ctx, log, auth.Token)
	}
	f := catalog.ParseFilter(q, bounds)

	products, err := fe.api.BrowseProducts(ctx, auth.Token, f.Query(bounds))
	if ctx.Err() != nil || !fe.tracker.Current(key, version) {
		log.WithField("version", version).Debug("superseded filter request")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	resp := struct {
		Version uint64         `json:"version"`
		Count   int            `json:"count"`
		HTML    string         `json:"html"`
		Chips   []catalog.Chip `json:"chips"`
		Query   string         `json:"query"`
		Error   string         `json:"error,omitempty"`
	}{
		Version: version,
		Count:   len(products),
		Chips:   f.Chips(bounds),
		Query:   f.Values(bounds).Encode(),
	}
	if err != nil {
		log.WithField("error", err).Warn("failed to browse products")
		resp.Error = "Failed to load products. Please try again later."
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "product_grid", injectCommonTemplateData(r, map[string]interface{}{
		"products": products,
	})); err != nil {
		log.Error(err)
	}
	resp.HTML = buf.String()
	writeJSON(w, log, http.StatusOK, resp)
}

func (fe *frontendServer) getSubcategories(ctx context.Context, log logrus.FieldLogger, token, category string) []string {
	subs, err := fe.api.Subcategories(ctx, token, category)
	if err != nil {
		log.WithField("error", err).Warn("failed to get subcategories")
		return []string{}
	}
	return subs
}

func (fe *frontendServer) subcategoriesHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	subs := []string{}
	if c := r.URL.Query().Get("category"); c != "" {
		subs = fe.getSubcategories(r.Context(), log, auth.Token, c)
	}
	writeJSON(w, log, http.StatusOK, map[string][]string{"subcategories": subs})
}

func (fe *frontendServer) productHandler(inventory bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
		auth := session.FromContext(r.Context())
		id, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil {
			renderHTTPError(log, r, w, errors.New("product id not specified"), http.StatusBadRequest)
			return
		}
		log.WithField("id", id).WithField("inventory", inventory).Debug("serving product page")

		pg, err := fe.getProductPage(r.Context(), log, auth.Token, id, inventory)
		if err != nil {
			code := http.StatusInternalServerError
			if backend.IsStatus(err, http.StatusNotFound) {
				code = http.StatusNotFound
			}
			renderHTTPError(log, r, w, err, code)
			return
		}

		renderTemplate(w, r, "product", map[string]interface{}{
			"page":        pg,
			"product":     pg.Product,
			"min_order":   cart.MinOrder(pg.Product),
			"can_add":     auth.IsCustomer() && pg.Product.Stock > 0,
			"review_kind": string(pg.Kind),
		})
	}
}

func (fe *frontendServer) aboutHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	stats, err := fe.api.Stats(r.Context())
	if err != nil {
		log.WithField("error", err).Warn("failed to get stats")
		stats = &backend.Stats{}
	}
	renderTemplate(w, r, "about", map[string]interface{}{
		"stats": stats,
	})
}

func (fe *frontendServer) contactPageHandler(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "contact", map[string]interface{}{
		"form": validator.ContactPayload{},
	})
}

// contactSubmitHandler validates the form and acknowledges it; messages are
// not forwarded anywhere.
func (fe *frontendServer) contactSubmitHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	payload := validator.ContactPayload{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Subject: strings.TrimSpace(r.FormValue("subject")),
		Message: strings.TrimSpace(r.FormValue("message")),
	}
	if err := payload.Validate(); err != nil {
		renderTemplate(w, r, "contact", map[string]interface{}{
			"form":   payload,
			"errors": validator.FieldErrors(err),
		})
		return
	}
	log.WithField("subject", payload.Subject).Info("contact message received")
	setFlash(w, flashSuccess, "Thank you for your message! We'll get back to you soon.")
	redirect(w, r, "/contact")
}

func renderTemplate(w http.ResponseWriter, r *http.Request, name string, payload map[string]interface{}) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	data := injectCommonTemplateData(r, payload)
	if f := popFlash(w, r); f != nil {
		data["flash"] = f
	}
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error(err)
	}
}

func renderHTTPError(log logrus.FieldLogger, r *http.Request, w http.ResponseWriter, err error, code int) {
	log.WithField("error", err).Error("request error")
	errMsg := fmt.Sprintf("%+v", err)

	w.WriteHeader(code)

	if templateErr := templates.ExecuteTemplate(w, "error", injectCommonTemplateData(r, map[string]interface{}{
		"error":       errMsg,
		"message":     backend.Detail(err, http.StatusText(code)),
		"status_code": code,
		"status":      http.StatusText(code),
	})); templateErr != nil {
		log.Println(templateErr)
	}
}

func injectCommonTemplateData(r *http.Request, payload map[string]interface{}) map[string]interface{} {
	auth := session.FromContext(r.Context())
	data := map[string]interface{}{
		"session_id":  sessionID(r),
		"request_id":  r.Context().Value(ctxKeyRequestID{}),
		"currentYear": time.Now().Year(),
		"baseUrl":     baseUrl,
		"theme":       currentTheme(r),
		"auth":        auth,
		"logged_in":   auth.IsAuthenticated(),
		"is_farmer":   auth.IsFarmer(),
		"is_customer": auth.IsCustomer(),
		"username":    auth.Username(),
		"path":        r.URL.Path,
	}

	for k, v := range payload {
		data[k] = v
	}

	return data
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithField("error", err).Warn("failed to write json response")
	}
}

func sessionID(r *http.Request) string {
	v := r.Context().Value(ctxKeySessionID{})
	if v != nil {
		return v.(string)
	}
	return ""
}

func renderMoney(d decimal.Decimal) string {
	return money.Render(d)
}

func lineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return money.Must(money.Line(price, quantity))
}

// initials renders the avatar fallback: "AB", "A" or "?".
func initials(first, last string) string {
	var out []rune
	for _, name := range []string{first, last} {
		for _, c := range strings.TrimSpace(name) {
			out = append(out, unicode.ToUpper(c))
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// stars returns five flags, true for each filled star of rating.
func stars(rating float64) []bool {
	n := int(math.Round(rating))
	out := make([]bool, 5)
	for i := range out {
		out[i] = i < n
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// dict builds the argument map of a nested template call.
func dict(kv ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			m[k] = kv[i+1]
		}
	}
	return m
}

// km renders a distance, empty when unknown.
func km(d *float64) string {
	if d == nil {
		return ""
	}
	return strconv.FormatFloat(*d, 'f', 1, 64) + " km"
}

// growth renders a period-over-period change; nil means no earlier period.
func growth(g *float64) string {
	if g == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*g, 'f', 1, 64) + "%"
}

func percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return count * 100 / total
}
