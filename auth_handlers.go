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
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/catalog"
	"github.com/krishikarobar/storefront/session"
	"github.com/krishikarobar/storefront/validator"
)

const maxUploadSize = 10 << 20

// loginPageHandler renders the login page (GET /login).
func (fe *frontendServer) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).IsAuthenticated() {
		redirect(w, r, profilePath(session.FromContext(r.Context())))
		return
	}
	renderTemplate(w, r, "login", map[string]interface{}{
		"form": validator.LoginPayload{},
	})
}

// loginSubmitHandler handles the login form submission (POST /login).
func (fe *frontendServer) loginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	payload := validator.LoginPayload{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	fail := func(msg string) {
		renderTemplate(w, r, "login", map[string]interface{}{
			"login_error": msg,
			"form":        payload,
		})
	}
	if err := payload.Validate(); err != nil {
		fail(validator.Message(err))
		return
	}

	result, err := fe.api.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		log.WithField("error", err).Warn("login failed")
		fail(backend.Detail(err, "Login failed"))
		return
	}

	// a new id per login, so an id planted before login is never promoted
	sid := newSessionID()
	setSessionCookie(w, sid, fe.cfg.CookieMaxAge)
	if old := sessionID(r); old != "" {
		if _, err := fe.sessions.Logout(r.Context(), old); err != nil {
			log.WithField("error", err).Debug("could not forget previous session")
		}
	}
	auth, err := fe.sessions.Login(r.Context(), sid, result.Token)
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusInternalServerError)
		return
	}
	if !auth.IsAuthenticated() {
		fail("Login failed")
		return
	}
	log.WithField("username", auth.Username()).WithField("user_type", auth.UserType).Info("user logged in successfully")
	redirect(w, r, profilePath(auth))
}

func profilePath(a session.Auth) string {
	if a.IsFarmer() {
		return "/farmer-profile"
	}
	return "/customer-profile"
}

// registerPageHandler renders the registration page (GET /register).
func (fe *frontendServer) registerPageHandler(w http.ResponseWriter, r *http.Request) {
	tab := backend.Customer
	if r.URL.Query().Get("as") == string(backend.Farmer) {
		tab = backend.Farmer
	}
	renderTemplate(w, r, "register", map[string]interface{}{
		"tab":       string(tab),
		"provinces": catalog.Provinces,
		"form":      validator.RegisterPayload{UserType: string(tab)},
	})
}

// registerSubmitHandler handles the registration form submission (POST /register).
func (fe *frontendServer) registerSubmitHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not parse registration form"), http.StatusBadRequest)
		return
	}

	payload := validator.RegisterPayload{
		UserType:        r.FormValue("userType"),
		Username:        strings.TrimSpace(r.FormValue("username")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		FirstName:       strings.TrimSpace(r.FormValue("first_name")),
		LastName:        strings.TrimSpace(r.FormValue("last_name")),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
		Phone:           strings.TrimSpace(r.FormValue("phone")),
		Province:        r.FormValue("province"),
		Address:         strings.TrimSpace(r.FormValue("address")),
		FarmName:        strings.TrimSpace(r.FormValue("farm_name")),
	}
	fail := func(general string, fields map[string]string) {
		tab := payload.UserType
		if tab != string(backend.Farmer) {
			tab = string(backend.Customer)
		}
		renderTemplate(w, r, "register", map[string]interface{}{
			"tab":            tab,
			"provinces":      catalog.Provinces,
			"form":           payload,
			"errors":         fields,
			"register_error": general,
		})
	}
	if err := payload.Validate(); err != nil {
		fail("", validator.FieldErrors(err))
		return
	}

	picture, err := readUpload(r, "profile_picture")
	if err != nil {
		fail("Could not read the profile picture.", nil)
		return
	}

	req := backend.RegisterRequest{
		UserType:          backend.UserType(payload.UserType),
		Username:          payload.Username,
		Email:             payload.Email,
		Password:          payload.Password,
		FirstName:         payload.FirstName,
		LastName:          payload.LastName,
		Phone:             payload.Phone,
		Province:          payload.Province,
		Address:           payload.Address,
		Latitude:          r.FormValue("latitude"),
		Longitude:         r.FormValue("longitude"),
		FarmName:          payload.FarmName,
		FarmSize:          r.FormValue("farm_size"),
		FarmingExperience: r.FormValue("farming_experience"),
		CropTypes:         r.FormValue("crop_types"),
		BusinessName:      r.FormValue("business_name"),
		BusinessType:      r.FormValue("business_type"),
		ProfilePicture:    picture,
	}
	if err := fe.api.Register(r.Context(), req); err != nil {
		log.WithField("error", err).Warn("registration failed")
		fail(backend.Detail(err, "Registration failed. Please try again."), nil)
		return
	}

	log.WithField("username", req.Username).WithField("user_type", req.UserType).Info("user registered successfully")
	setFlash(w, flashSuccess, "Registration successful! Please log in.")
	redirect(w, r, "/login")
}

// logoutHandler forgets the session token and returns home.
func (fe *frontendServer) logoutHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	log.Debug("logging out")
	token := session.FromContext(r.Context()).Token
	if _, err := fe.sessions.Logout(r.Context(), sessionID(r)); err != nil {
		log.WithField("error", err).Warn("logout failed")
	}
	if n := fe.endLiveStreams(token); n > 0 {
		log.WithField("streams", n).Debug("live streams ended")
	}
	redirect(w, r, "/")
}

// readUpload returns the named file of a multipart form, or nil when the
// field is absent or empty.
func readUpload(r *http.Request, field string) (*backend.Upload, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return &backend.Upload{Filename: hdr.Filename, Data: b}, nil
}
