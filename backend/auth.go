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
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

// Login calls POST /api/login/.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	in := map[string]string{"username": username, "password": password}
	var out LoginResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/login/", "", in, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("login failed")
	}
	return &out, nil
}

// Register calls POST /api/register/ with a multipart body carrying the
// role-specific fields.
func (c *Client) Register(ctx context.Context, r RegisterRequest) error {
	parts := []formPart{
		{name: "userType", value: string(r.UserType)},
		{name: "username", value: r.Username},
		{name: "email", value: r.Email},
		{name: "password", value: r.Password},
		{name: "first_name", value: r.FirstName},
		{name: "last_name", value: r.LastName},
		{name: "phone", value: r.Phone},
		{name: "province", value: r.Province},
		{name: "address", value: r.Address},
	}
	if r.Latitude != "" {
		parts = append(parts, formPart{name: "latitude", value: r.Latitude})
	}
	if r.Longitude != "" {
		parts = append(parts, formPart{name: "longitude", value: r.Longitude})
	}
	if r.ProfilePicture != nil {
		parts = append(parts, formPart{name: "profile_picture", file: r.ProfilePicture})
	}
	if r.UserType == Farmer {
		parts = append(parts,
			formPart{name: "farm_name", value: r.FarmName},
			formPart{name: "farm_size", value: r.FarmSize},
			formPart{name: "farming_experience", value: r.FarmingExperience},
			formPart{name: "crop_types", value: r.CropTypes},
		)
	} else {
		parts = append(parts,
			formPart{name: "business_name", value: r.BusinessName},
			formPart{name: "business_type", value: r.BusinessType},
		)
	}
	return c.sendMultipart(ctx, http.MethodPost, "/api/register/", "", parts, nil)
}

// Profile calls GET /api/profile/ (the "whoami" endpoint).
func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/profile/", nil, token, &raw); err != nil {
		return nil, err
	}
	return parseProfile(raw)
}

// UpdateProfile calls PUT /api/profile/ with a multipart body. Only the
// given fields are sent; picture is optional.
func (c *Client) UpdateProfile(ctx context.Context, token string, fields map[string]string, picture *Upload) (*Profile, error) {
	parts := make([]formPart, 0, len(fields)+1)
	for _, k := range sortedKeys(fields) {
		parts = append(parts, formPart{name: k, value: fields[k]})
	}
	if picture != nil {
		parts = append(parts, formPart{name: "profile_picture", file: picture})
	}
	var raw json.RawMessage
	if err := c.sendMultipart(ctx, http.MethodPut, "/api/profile/", token, parts, &raw); err != nil {
		return nil, err
	}
	return parseProfile(raw)
}

// parseProfile accepts {"userType": .., "profile": {..}} as well as a bare
// profile object carrying its own userType.
func parseProfile(raw json.RawMessage) (*Profile, error) {
	var envelope struct {
		UserType UserType        `json:"userType"`
		Profile  json.RawMessage `json:"profile"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}
	body := envelope.Profile
	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		body = raw
	}
	p := &Profile{Raw: body}
	if err := json.Unmarshal(body, &p.Details); err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}
	p.UserType = envelope.UserType
	if p.UserType == "" {
		p.UserType = p.Details.UserType
	}
	return p, nil
}
