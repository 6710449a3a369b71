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
	"github.com/sirupsen/logrus"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/session"
	"github.com/krishikarobar/storefront/validator"
)

func reviewKind(r *http.Request) (backend.ReviewKind, bool) {
	switch k := backend.ReviewKind(mux.Vars(r)["kind"]); k {
	case backend.ProductReviews, backend.InventoryReviews:
		return k, true
	}
	return "", false
}

func productPath(kind backend.ReviewKind, id int) string {
	if kind == backend.InventoryReviews {
		return "/inventory/" + strconv.Itoa(id)
	}
	return "/products/" + strconv.Itoa(id)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// reviewInput reads the review form, including an optional image.
func reviewInput(r *http.Request) (backend.ReviewInput, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && err != http.ErrNotMultipart {
		return backend.ReviewInput{}, err
	}
	payload := validator.ReviewPayload{
		Rating: formInt(r, "rating"),
		Review: strings.TrimSpace(r.FormValue("review")),
	}
	if err := payload.Validate(); err != nil {
		return backend.ReviewInput{}, err
	}
	img, err := readUpload(r, "image")
	if err != nil {
		return backend.ReviewInput{}, err
	}
	return backend.ReviewInput{Rating: payload.Rating, Review: payload.Review, Image: img}, nil
}

func (fe *frontendServer) createReviewHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	kind, ok := reviewKind(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	productID, _ := strconv.Atoi(mux.Vars(r)["product"])

	in, err := reviewInput(r)
	if err != nil {
		setFlash(w, flashError, validator.Message(err))
		redirect(w, r, productPath(kind, productID))
		return
	}
	in.ProductID = productID
	if _, err := fe.api.CreateReview(r.Context(), auth.Token, kind, in); err != nil {
		log.WithField("error", err).Warn("failed to submit review")
		setFlash(w, flashError, backend.Detail(err, "Failed to submit review."))
	} else {
		setFlash(w, flashSuccess, "Review submitted!")
	}
	redirect(w, r, productPath(kind, productID))
}

func (fe *frontendServer) editReviewHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	kind, ok := reviewKind(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	in, err := reviewInput(r)
	if err != nil {
		setFlash(w, flashError, validator.Message(err))
		back(w, r, "/products")
		return
	}
	if _, err := fe.api.UpdateReview(r.Context(), auth.Token, kind, id, in); err != nil {
		log.WithField("error", err).WithField("review", id).Warn("failed to update review")
		setFlash(w, flashError, backend.Detail(err, "Failed to update review."))
	} else {
		setFlash(w, flashSuccess, "Review updated!")
	}
	back(w, r, "/products")
}

func (fe *frontendServer) deleteReviewHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	kind, ok := reviewKind(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	if err := fe.api.DeleteReview(r.Context(), auth.Token, kind, id); err != nil {
		log.WithField("error", err).WithField("review", id).Warn("failed to delete review")
		setFlash(w, flashError, backend.Detail(err, "Failed to delete review."))
	} else {
		setFlash(w, flashSuccess, "Review deleted.")
	}
	back(w, r, "/products")
}

// reactReviewHandler likes, dislikes or clears a reaction. Script callers
// get the updated review back to merge in place.
func (fe *frontendServer) reactReviewHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	kind, ok := reviewKind(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	vars := mux.Vars(r)
	id, _ := strconv.Atoi(vars["id"])
	action := backend.Reaction(vars["action"])

	review, err := fe.api.React(r.Context(), auth.Token, kind, id, action)
	if err != nil {
		log.WithField("error", err).WithField("review", id).Warn("reaction failed")
		if wantsJSON(r) {
			writeJSON(w, log, http.StatusBadGateway, map[string]string{"error": backend.Detail(err, "Failed to update reaction.")})
			return
		}
		setFlash(w, flashError, backend.Detail(err, "Failed to update reaction."))
		back(w, r, "/products")
		return
	}
	if wantsJSON(r) {
		writeJSON(w, log, http.StatusOK, review)
		return
	}
	back(w, r, "/products")
}
