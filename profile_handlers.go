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
	"github.com/sirupsen/logrus"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/catalog"
	"github.com/krishikarobar/storefront/session"
)

// profileFields are the form fields forwarded on a profile update.
var profileFields = []string{
	"first_name", "last_name", "email", "phone", "province", "address",
	"farm_name", "farm_size", "farming_experience", "crop_types",
	"business_name", "business_type",
}

func (fe *frontendServer) customerProfileHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	if auth.IsFarmer() {
		redirect(w, r, "/farmer-profile")
		return
	}
	renderTemplate(w, r, "customer_profile", map[string]interface{}{
		"profile":   auth.Profile,
		"orders":    fe.getCustomerProfile(r.Context(), log, auth.Token),
		"provinces": catalog.Provinces,
		"editing":   r.URL.Query().Get("edit") == "1",
	})
}

func (fe *frontendServer) farmerProfileHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	if !auth.IsFarmer() {
		redirect(w, r, "/customer-profile")
		return
	}
	products, err := fe.getFarmerProducts(r.Context(), auth.Token, auth.Username())
	if err != nil {
		log.WithField("error", err).Warn("failed to get farmer products")
	}
	renderTemplate(w, r, "farmer_profile", map[string]interface{}{
		"profile":   auth.Profile,
		"products":  head(products, 3),
		"provinces": catalog.Provinces,
		"editing":   r.URL.Query().Get("edit") == "1",
	})
}

func (fe *frontendServer) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	target := profilePath(auth)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not parse profile form"), http.StatusBadRequest)
		return
	}
	fields := make(map[string]string)
	for _, k := range profileFields {
		if _, ok := r.Form[k]; ok {
			fields[k] = strings.TrimSpace(r.FormValue(k))
		}
	}
	picture, err := readUpload(r, "profile_picture")
	if err != nil {
		setFlash(w, flashError, "Could not read the profile picture.")
		redirect(w, r, target)
		return
	}

	if _, err := fe.api.UpdateProfile(r.Context(), auth.Token, fields, picture); err != nil {
		log.WithField("error", err).Warn("profile update failed")
		setFlash(w, flashError, backend.Detail(err, "Failed to update profile."))
		redirect(w, r, target+"?edit=1")
		return
	}
	log.Info("profile updated")
	setFlash(w, flashSuccess, "Profile updated successfully!")
	redirect(w, r, target)
}

func parseCoord(s string) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// farmersHandler lists farmers, nearest first when the browser shared its
// location.
func (fe *frontendServer) farmersHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	q := r.URL.Query()
	lat, lon := parseCoord(q.Get("lat")), parseCoord(q.Get("lon"))
	sortBy := q.Get("sort")
	if sortBy == "" {
		sortBy = "distance"
	}

	farmers, err := fe.api.Farmers(r.Context(), lat, lon)
	listErr := ""
	if err != nil {
		log.WithField("error", err).Warn("failed to fetch farmers")
		listErr = "Failed to load farmers. Please try again later."
	}
	if search := strings.ToLower(strings.TrimSpace(q.Get("search"))); search != "" {
		var matched []*backend.FarmerEntry
		for _, f := range farmers {
			hay := strings.ToLower(strings.Join([]string{f.User.FirstName, f.User.LastName, f.FarmName, f.Province, f.CropTypes}, " "))
			if strings.Contains(hay, search) {
				matched = append(matched, f)
			}
		}
		farmers = matched
	}
	sortFarmers(farmers, sortBy)

	renderTemplate(w, r, "farmers", map[string]interface{}{
		"farmers":      farmers,
		"list_error":   listErr,
		"sort":         sortBy,
		"search":       q.Get("search"),
		"has_location": lat != nil && lon != nil,
	})
}

func (fe *frontendServer) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	ns, err := fe.api.Notifications(r.Context(), auth.Token)
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusInternalServerError)
		return
	}
	unread := 0
	for _, n := range ns {
		if !n.IsRead {
			unread++
		}
	}
	renderTemplate(w, r, "notifications", map[string]interface{}{
		"notifications": ns,
		"unread":        unread,
	})
}

func (fe *frontendServer) markNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := fe.api.MarkNotificationRead(r.Context(), auth.Token, id); err != nil {
		log.WithField("error", err).WithField("notification", id).Warn("mark read failed")
		setFlash(w, flashError, backend.Detail(err, "Failed to update notification."))
	}
	redirect(w, r, "/notifications")
}

func (fe *frontendServer) clearNotificationHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := fe.api.ClearNotification(r.Context(), auth.Token, id); err != nil {
		log.WithField("error", err).WithField("notification", id).Warn("clear failed")
		setFlash(w, flashError, backend.Detail(err, "Failed to clear notification."))
	}
	redirect(w, r, "/notifications")
}
