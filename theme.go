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

	"github.com/sirupsen/logrus"

	"github.com/krishikarobar/storefront/validator"
)

const defaultTheme = "light"

// currentTheme is read per request; there is no server-side theme state.
func currentTheme(r *http.Request) string {
	c, _ := r.Cookie(cookieTheme)
	if c != nil && (c.Value == "light" || c.Value == "dark") {
		return c.Value
	}
	return defaultTheme
}

func (fe *frontendServer) setThemeHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	payload := validator.SetThemePayload{Theme: r.FormValue("theme")}
	if payload.Theme == "" {
		// toggle
		payload.Theme = "dark"
		if currentTheme(r) == "dark" {
			payload.Theme = "light"
		}
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:   cookieTheme,
		Value:  payload.Theme,
		MaxAge: fe.cfg.CookieMaxAge,
		Path:   "/",
	})
	log.WithField("theme", payload.Theme).Debug("theme changed")
	back(w, r, "/")
}
