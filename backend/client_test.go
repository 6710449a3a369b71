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

package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	log := logrus.New()
	log.Out = io.Discard
	c, err := New(srv.URL, WithHTTPClient(srv.Client()), WithLogger(log))
	require.NoError(t, err)
	return c
}

func TestNewAddsScheme(t *testing.T) {
	c, err := New("localhost:8000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/cart/", c.URL("/api/cart/", nil))

	_, err = New("")
	assert.Error(t, err)
}

func TestTokenHeader(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"farmers": 3, "customers": 7}`))
	})

	_, err := c.Cart(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Token abc", got)

	s, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got)
	assert.Equal(t, 3, s.Farmers)
	assert.Equal(t, 7, s.Customers)
}

func TestListAcceptsArrayAndResults(t *testing.T) {
	bodies := []string{
		`[{"id": 1, "name": "Tomato", "price": "50.00"}]`,
		`{"count": 1, "results": [{"id": 1, "name": "Tomato", "price": "50.00"}]}`,
	}
	for _, body := range bodies {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		ps, err := c.BrowseProducts(context.Background(), "", nil)
		require.NoError(t, err)
		require.Len(t, ps, 1)
		assert.Equal(t, "Tomato", ps[0].Name)
		assert.True(t, decimal.NewFromInt(50).Equal(ps[0].Price))
	}
}

func TestStatusErrorDetail(t *testing.T) {
	tests := []struct {
		body   string
		detail string
	}{
		{`{"detail": "Authentication credentials were not provided."}`, "Authentication credentials were not provided."},
		{`{"error": "Insufficient stock"}`, "Insufficient stock"},
		{`{"username": ["A user with that username already exists."], "email": ["Enter a valid email address."]}`,
			"Enter a valid email address. A user with that username already exists."},
		{`not json`, ""},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(tt.body))
		})
		_, err := c.Orders(context.Background(), "t", "", "")
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusBadRequest))
		assert.Equal(t, tt.detail, Detail(err, ""))
	}
}

func TestDetailFallback(t *testing.T) {
	assert.Equal(t, "fallback", Detail(io.EOF, "fallback"))
	assert.False(t, IsStatus(io.EOF, http.StatusNotFound))
}

func TestProfileNormalization(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"envelope", `{"userType": "farmer", "profile": {"farm_name": "Green Acres", "user": {"username": "ram"}}}`},
		{"nested", `{"profile": {"userType": "farmer", "farm_name": "Green Acres", "user": {"username": "ram"}}}`},
		{"bare", `{"userType": "farmer", "farm_name": "Green Acres", "user": {"username": "ram"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/profile/", r.URL.Path)
				w.Write([]byte(tt.body))
			})
			p, err := c.Profile(context.Background(), "tok")
			require.NoError(t, err)
			assert.Equal(t, Farmer, p.UserType)
			assert.Equal(t, "Green Acres", p.Details.FarmName)
			assert.Equal(t, "ram", p.Details.User.Username)
		})
	}
}

func TestLoginWithoutToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err := c.Login(context.Background(), "ram", "pw")
	assert.Error(t, err)
}

func TestUpdateCartItemSendsPatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/cart/items/9/", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"quantity": float64(3)}, body)
		w.Write([]byte(`{"id": 9, "quantity": 3, "product": {"id": 1, "name": "Tomato", "price": "50.00", "stock": 10}}`))
	})
	q := 3
	item, err := c.UpdateCartItem(context.Background(), "t", 9, CartItemPatch{Quantity: &q})
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, "Tomato", item.Item().Name)
}

func TestCreateReviewMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inventory-reviews/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "4", r.FormValue("product"))
		assert.Equal(t, "5", r.FormValue("rating"))
		assert.Equal(t, "Fresh", r.FormValue("review"))
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "photo.jpg", hdr.Filename)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 11, "rating": 5, "review": "Fresh"}`))
	})
	rv, err := c.CreateReview(context.Background(), "t", InventoryReviews, ReviewInput{
		ProductID: 4, Rating: 5, Review: "Fresh",
		Image: &Upload{Filename: "photo.jpg", Data: []byte("jpeg")},
	})
	require.NoError(t, err)
	assert.Equal(t, 11, rv.ID)
}

func TestRatingDistributionOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("product"))
		w.Write([]byte(`{"1": 0, "5": 4, "3": 1, "4": 2, "2": 0}`))
	})
	b, err := c.RatingDistribution(context.Background(), "", ProductReviews, 7)
	require.NoError(t, err)
	require.Len(t, b, 5)
	assert.Equal(t, RatingBucket{Stars: 5, Count: 4}, b[0])
	assert.Equal(t, RatingBucket{Stars: 1, Count: 0}, b[4])
}

func TestDeleteNoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.RemoveCartItem(context.Background(), "t", 3))
}

func TestOrdersStatusFilter(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`[]`))
	})
	_, err := c.Orders(context.Background(), "t", "all", "")
	require.NoError(t, err)
	assert.Equal(t, "", query)
	_, err = c.Orders(context.Background(), "t", "shipped", "")
	require.NoError(t, err)
	assert.Equal(t, "status=shipped", query)
}
