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
	"net/url"
	"strconv"
)

// Farmers calls GET /api/users/farmers/. When lat/lon are given the
// backend fills in each farmer's distance in km.
func (c *Client) Farmers(ctx context.Context, lat, lon *float64) ([]*FarmerEntry, error) {
	q := url.Values{}
	if lat != nil && lon != nil {
		q.Set("lat", strconv.FormatFloat(*lat, 'f', -1, 64))
		q.Set("lon", strconv.FormatFloat(*lon, 'f', -1, 64))
	}
	var out listOf[*FarmerEntry]
	if err := c.getJSON(ctx, "/api/users/farmers/", q, "", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Stats calls GET /api/users/stats/.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.getJSON(ctx, "/api/users/stats/", nil, "", &s); err != nil {
		return nil, err
	}
	return &s, nil
}
