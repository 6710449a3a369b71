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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishikarobar/storefront/backend"
)

func TestFlashRoundTrip(t *testing.T) {
	rr := httptest.NewRecorder()
	setFlash(rr, flashSuccess, "Order placed successfully!\nThanks")

	req := httptest.NewRequest(http.MethodGet, "/my-orders", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	out := httptest.NewRecorder()
	f := popFlash(out, req)
	require.NotNil(t, f)
	assert.Equal(t, flashSuccess, f.Kind)
	assert.Equal(t, "Order placed successfully!\nThanks", f.Message)

	c := responseCookie(out, cookieFlash)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
}

func TestPopFlashIgnoresGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, popFlash(httptest.NewRecorder(), req))

	req.AddCookie(&http.Cookie{Name: cookieFlash, Value: "!!not-base64"})
	assert.Nil(t, popFlash(httptest.NewRecorder(), req))
}

func TestBack(t *testing.T) {
	tests := []struct {
		name    string
		referer string
		want    string
	}{
		{"same host", "http://example.com/products/3?tab=reviews", "/products/3?tab=reviews"},
		{"relative", "/cart", "/cart"},
		{"other host", "http://evil.example.org/phish", "/products"},
		{"missing", "", "/products"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://example.com/reviews/x/1/like", nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			rr := httptest.NewRecorder()
			back(rr, req, "/products")
			assert.Equal(t, http.StatusFound, rr.Code)
			assert.Equal(t, tt.want, rr.Header().Get("Location"))
		})
	}
}

func TestPastFarmersDedupes(t *testing.T) {
	bob := &backend.FarmerDetails{ID: 9, FirstName: "Bob"}
	anon := &backend.FarmerDetails{FirstName: "Sita", LastName: "KC", FarmName: "Hill Farm"}
	orders := []*backend.Order{
		{Items: []*backend.OrderItem{{FarmerDetails: bob}, {FarmerDetails: anon}}},
		{Items: []*backend.OrderItem{{FarmerDetails: &backend.FarmerDetails{ID: 9, FirstName: "Bob"}}, {}}},
		{Items: []*backend.OrderItem{{FarmerDetails: &backend.FarmerDetails{FirstName: "Sita", LastName: "KC", FarmName: "Hill Farm"}}}},
	}
	got := pastFarmers(orders)
	require.Len(t, got, 2)
	assert.Same(t, bob, got[0])
	assert.Same(t, anon, got[1])
}

func TestSortFarmers(t *testing.T) {
	near, far := 1.5, 20.0
	farmers := func() []*backend.FarmerEntry {
		return []*backend.FarmerEntry{
			{User: backend.User{FirstName: "Sita"}, JoinDate: "2023-01-01"},
			{User: backend.User{FirstName: "Ram"}, Distance: &far, JoinDate: "2024-05-01"},
			{User: backend.User{FirstName: "Hari"}, Distance: &near, JoinDate: "2022-03-01"},
		}
	}
	names := func(fs []*backend.FarmerEntry) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.User.FirstName)
		}
		return out
	}

	fs := farmers()
	sortFarmers(fs, "distance")
	assert.Equal(t, []string{"Hari", "Ram", "Sita"}, names(fs))

	fs = farmers()
	sortFarmers(fs, "name")
	assert.Equal(t, []string{"Hari", "Ram", "Sita"}, names(fs))

	fs = farmers()
	sortFarmers(fs, "join_date")
	assert.Equal(t, []string{"Ram", "Sita", "Hari"}, names(fs))
}

func TestHead(t *testing.T) {
	assert.Equal(t, []int{1, 2}, head([]int{1, 2, 3}, 2))
	assert.Equal(t, []int{1}, head([]int{1}, 4))
	assert.Empty(t, head([]int(nil), 3))
}
