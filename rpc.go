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
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/catalog"
	"github.com/krishikarobar/storefront/live"
	"github.com/krishikarobar/storefront/session"
)

type homeData struct {
	Stats        *backend.Stats
	Fresh        []*backend.Product
	Top          []*backend.Product
	Featured     []*backend.Product
	Farmers      []*backend.FarmerEntry
	Testimonials []*backend.Review
	PastFarmers  []*backend.FarmerDetails
}

// getHomeData loads every homepage widget concurrently. A failing widget is
// logged and left empty.
func (fe *frontendServer) getHomeData(ctx context.Context, log logrus.FieldLogger, auth session.Auth) *homeData {
	var d homeData
	var g errgroup.Group
	widget := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				log.WithField("error", err).WithField("widget", name).Warn("homepage widget unavailable")
			}
			return nil
		})
	}

	widget("stats", func() (err error) {
		d.Stats, err = fe.api.Stats(ctx)
		return
	})
	widget("fresh", func() error {
		ps, err := fe.api.BrowseProducts(ctx, auth.Token, url.Values{"ordering": {"-date_added"}, "page_size": {"8"}})
		d.Fresh = head(ps, 4)
		return err
	})
	widget("top", func() error {
		ps, err := fe.api.BrowseProducts(ctx, auth.Token, url.Values{"ordering": {"-review_count"}, "page_size": {"8"}})
		d.Top = head(ps, 3)
		return err
	})
	widget("featured", func() error {
		ps, err := fe.api.BrowseProducts(ctx, auth.Token, url.Values{"page_size": {"24"}})
		rand.Shuffle(len(ps), func(i, j int) { ps[i], ps[j] = ps[j], ps[i] })
		d.Featured = head(ps, 8)
		return err
	})
	widget("farmers", func() error {
		fs, err := fe.api.Farmers(ctx, nil, nil)
		d.Farmers = head(fs, 3)
		return err
	})
	widget("testimonials", func() (err error) {
		d.Testimonials, err = fe.api.RecentReviews(ctx, backend.InventoryReviews, 6)
		return
	})
	if auth.IsCustomer() {
		widget("past_farmers", func() error {
			orders, err := fe.api.Orders(ctx, auth.Token, "", "")
			d.PastFarmers = head(pastFarmers(orders), 4)
			return err
		})
	}
	g.Wait()
	return &d
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// pastFarmers collects the distinct farmers of a customer's order history in
// order of first appearance.
func pastFarmers(orders []*backend.Order) []*backend.FarmerDetails {
	seen := make(map[string]bool)
	var out []*backend.FarmerDetails
	for _, o := range orders {
		for _, it := range o.Items {
			fd := it.FarmerDetails
			if fd == nil {
				continue
			}
			key := fmt.Sprintf("id:%d", fd.ID)
			if fd.ID == 0 {
				key = strings.Join([]string{fd.FirstName, fd.LastName, fd.FarmName}, "-")
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, fd)
		}
	}
	return out
}

// getPriceBounds observes the catalog's price range. Any failure keeps the
// default bounds.
func (fe *frontendServer) getPriceBounds(ctx context.Context, log logrus.FieldLogger, token string) catalog.Bounds {
	ps, err := fe.api.BrowseProducts(ctx, token, url.Values{"ordering": {"price"}})
	if err != nil {
		log.WithField("error", err).Warn("failed to observe price range")
		return catalog.DefaultBounds()
	}
	return catalog.BoundsFrom(ps)
}

type productPage struct {
	Product      *backend.Product
	Inventory    bool
	Kind         backend.ReviewKind
	Similar      []*backend.Product
	Reviews      []*backend.Review
	ReviewsError string
	Distribution []backend.RatingBucket
	RatingTotal  int
}

// getProductPage loads a product and its satellites. Only the product itself
// is fatal.
func (fe *frontendServer) getProductPage(ctx context.Context, log logrus.FieldLogger, token string, id int, inventory bool) (*productPage, error) {
	pg := &productPage{Inventory: inventory, Kind: backend.ProductReviews}
	if inventory {
		pg.Kind = backend.InventoryReviews
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if inventory {
			pg.Product, err = fe.api.InventoryProduct(gctx, token, id)
		} else {
			pg.Product, err = fe.api.Product(gctx, token, id)
		}
		return errors.Wrapf(err, "could not retrieve product #%d", id)
	})
	if !inventory {
		g.Go(func() error {
			similar, err := fe.api.SimilarProducts(gctx, token, id)
			if err != nil {
				log.WithField("error", err).Warn("failed to get similar products")
			}
			pg.Similar = similar
			return nil
		})
	}
	g.Go(func() error {
		reviews, err := fe.api.Reviews(gctx, token, pg.Kind, id)
		switch {
		case backend.IsStatus(err, http.StatusForbidden):
			pg.ReviewsError = "Access denied. Please log in."
		case err != nil:
			log.WithField("error", err).Warn("failed to get reviews")
			pg.ReviewsError = "Failed to load reviews."
		}
		pg.Reviews = reviews
		return nil
	})
	g.Go(func() error {
		dist, err := fe.api.RatingDistribution(gctx, token, pg.Kind, id)
		if err != nil {
			log.WithField("error", err).Warn("failed to get rating distribution")
			return nil
		}
		pg.Distribution = dist
		for _, b := range dist {
			pg.RatingTotal += b.Count
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pg, nil
}

type customerProfilePage struct {
	Orders     []*backend.Order
	Recent     []*backend.Order
	TotalSpent decimal.Decimal
	OrdersErr  bool
}

func (fe *frontendServer) getCustomerProfile(ctx context.Context, log logrus.FieldLogger, token string) *customerProfilePage {
	pg := &customerProfilePage{TotalSpent: decimal.Zero}
	orders, err := fe.api.Orders(ctx, token, "", "-created_at")
	if err != nil {
		log.WithField("error", err).Warn("failed to get order history")
		pg.OrdersErr = true
		return pg
	}
	pg.Orders = orders
	pg.Recent = head(orders, 3)
	for _, o := range orders {
		pg.TotalSpent = pg.TotalSpent.Add(o.TotalPrice)
	}
	return pg
}

// getFarmerProducts lists a farmer's own listings, newest first.
func (fe *frontendServer) getFarmerProducts(ctx context.Context, token, username string) ([]*backend.Product, error) {
	return fe.api.FarmerProducts(ctx, token, catalog.InventoryQuery(username, "", "", "", ""))
}

type dashboardPage struct {
	Products     []*backend.Product
	ProductsErr  string
	OrderItems   []*backend.OrderItem
	OrdersErr    string
	Analytics    *backend.FarmerAnalytics
	AnalyticsErr string
}

// getDashboard loads the farmer's listings (filtered by q), incoming order
// items and backend analytics concurrently.
func (fe *frontendServer) getDashboard(ctx context.Context, log logrus.FieldLogger, auth session.Auth, q url.Values) *dashboardPage {
	pg := &dashboardPage{}
	var g errgroup.Group
	g.Go(func() error {
		query := catalog.InventoryQuery(auth.Username(), q.Get("status"), q.Get("category"), q.Get("search"), q.Get("sort"))
		ps, err := fe.api.FarmerProducts(ctx, auth.Token, query)
		if err != nil {
			log.WithField("error", err).Warn("failed to get farmer products")
			pg.ProductsErr = "Failed to load products."
		}
		pg.Products = ps
		return nil
	})
	g.Go(func() error {
		items, err := fe.api.FarmerOrderItems(ctx, auth.Token)
		if err != nil {
			log.WithField("error", err).Warn("failed to get order items")
			pg.OrdersErr = "Failed to load orders."
		}
		pg.OrderItems = items
		return nil
	})
	g.Go(func() error {
		a, err := fe.api.FarmerAnalytics(ctx, auth.Token)
		if err != nil {
			log.WithField("error", err).Warn("failed to get analytics")
			pg.AnalyticsErr = "Failed to load analytics."
		}
		pg.Analytics = a
		return nil
	})
	g.Wait()
	return pg
}

type inboxPage struct {
	Conversations []*backend.Conversation
	Selected      *backend.Conversation
	Messages      []*backend.Message
	Err           string
}

func conversationKey(token string, id int) string {
	return fmt.Sprintf("%s%d", conversationPrefix(token), id)
}

func conversationPrefix(token string) string {
	return "conversation:" + token + ":"
}

// getInbox lists the session's conversations and the messages of the
// selected one (the first when selected is zero).
func (fe *frontendServer) getInbox(ctx context.Context, log logrus.FieldLogger, auth session.Auth, selected int) *inboxPage {
	pg := &inboxPage{}
	set := backend.WithFarmer
	if auth.IsFarmer() {
		set = backend.WithCustomer
	}
	convs, err := fe.api.Conversations(ctx, auth.Token, set)
	if auth.IsFarmer() && (err != nil || len(convs) == 0) {
		convs, err = fe.api.Conversations(ctx, auth.Token, backend.AllConversations)
	}
	if err != nil {
		log.WithField("error", err).Warn("failed to get conversations")
		pg.Err = "Failed to load conversations."
		return pg
	}
	pg.Conversations = convs
	for _, c := range convs {
		if c.ID == selected {
			pg.Selected = c
		}
	}
	if pg.Selected == nil && len(convs) > 0 {
		pg.Selected = convs[0]
	}
	if pg.Selected == nil {
		return pg
	}

	id := pg.Selected.ID
	msgs, err := fe.conversations.Snapshot(ctx, conversationKey(auth.Token, id), live.MessagesFetcher(fe.api, auth.Token, id))
	if err != nil {
		log.WithField("error", err).Warn("failed to get messages")
		pg.Err = "Failed to load messages."
	}
	pg.Messages = msgs
	return pg
}

// sortFarmers orders the directory by distance (unknown distances last) or
// by name.
func sortFarmers(farmers []*backend.FarmerEntry, by string) {
	switch by {
	case "name":
		sort.SliceStable(farmers, func(i, j int) bool {
			a, b := farmers[i].User, farmers[j].User
			if a.FirstName != b.FirstName {
				return a.FirstName < b.FirstName
			}
			return a.LastName < b.LastName
		})
	case "join_date":
		sort.SliceStable(farmers, func(i, j int) bool { return farmers[i].JoinDate > farmers[j].JoinDate })
	default:
		sort.SliceStable(farmers, func(i, j int) bool {
			a, b := farmers[i].Distance, farmers[j].Distance
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			}
			return *a < *b
		})
	}
}
