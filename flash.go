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
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
)

type flashKind string

const (
	flashSuccess flashKind = "success"
	flashError   flashKind = "error"
	flashInfo    flashKind = "info"
)

// flash is a one-shot toast carried by a cookie across a redirect.
type flash struct {
	Kind    flashKind
	Message string
}

func setFlash(w http.ResponseWriter, kind flashKind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieFlash,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(string(kind) + "\n" + msg)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending toast, if any, and expires its cookie.
func popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(cookieFlash)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: cookieFlash, Value: "", MaxAge: -1, Path: "/"})
	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(string(b), "\n")
	if !ok {
		return nil
	}
	return &flash{Kind: flashKind(kind), Message: msg}
}

// back redirects to the page the form was posted from, or fallback when the
// referer is missing or points elsewhere.
func back(w http.ResponseWriter, r *http.Request, fallback string) {
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" && (ref.Host == "" || ref.Host == r.Host) {
		target := ref.Path
		if ref.RawQuery != "" {
			target += "?" + ref.RawQuery
		}
		w.Header().Set("Location", target)
		w.WriteHeader(http.StatusFound)
		return
	}
	redirect(w, r, fallback)
}
