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
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/session"
)

type ctxKeyLog struct{}
type ctxKeyRequestID struct{}

const msgCustomerOnly = "You have to be logged in as a customer to perform this action."

type logHandler struct {
	log  *logrus.Logger
	next http.Handler
}

type responseRecorder struct {
	b      int
	status int
	w      http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header { return r.w.Header() }

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.w.Write(p)
	r.b += n
	return n, err
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.w.WriteHeader(statusCode)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.w.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (lh *logHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, _ := uuid.NewRandom()
	ctx = context.WithValue(ctx, ctxKeyRequestID{}, requestID.String())

	start := time.Now()
	rr := &responseRecorder{w: w}
	log := lh.log.WithFields(logrus.Fields{
		"http.req.path":   r.URL.Path,
		"http.req.method": r.Method,
		"http.req.id":     requestID.String(),
	})
	if v, ok := r.Context().Value(ctxKeySessionID{}).(string); ok {
		log = log.WithField("session", v)
	}
	log.Debug("request started")
	defer func() {
		log.WithFields(logrus.Fields{
			"http.resp.took_ms": int64(time.Since(start) / time.Millisecond),
			"http.resp.status":  rr.status,
			"http.resp.bytes":   rr.b}).Debugf("request complete")
	}()

	ctx = context.WithValue(ctx, ctxKeyLog{}, log)
	r = r.WithContext(ctx)
	lh.next.ServeHTTP(rr, r)
}

func newSessionID() string {
	u, _ := uuid.NewRandom()
	return u.String()
}

func setSessionCookie(w http.ResponseWriter, sid string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieSessionID,
		Value:    sid,
		MaxAge:   maxAge,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ensureSessionID(next http.Handler, maxAge int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		c, err := r.Cookie(cookieSessionID)
		if err == http.ErrNoCookie || (err == nil && c.Value == "") {
			sessionID = newSessionID()
			setSessionCookie(w, sessionID, maxAge)
		} else if err != nil {
			return
		} else {
			sessionID = c.Value
		}
		ctx := context.WithValue(r.Context(), ctxKeySessionID{}, sessionID)
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	}
}

// authenticate resolves the session's token into an auth snapshot carried by
// the request context.
func (fe *frontendServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := fe.sessions.Resolve(r.Context(), sessionID(r))
		ctx := session.NewContext(r.Context(), auth)
		if log, ok := ctx.Value(ctxKeyLog{}).(logrus.FieldLogger); ok && auth.IsAuthenticated() {
			ctx = context.WithValue(ctx, ctxKeyLog{}, log.WithField("user_type", auth.UserType))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).IsAuthenticated() {
			redirect(w, r, "/login")
			return
		}
		next(w, r)
	})
}

// requireUserType admits only sessions signed in as ut. Anyone else is sent
// to fallback, with msg flashed when set.
func requireUserType(ut backend.UserType, fallback, msg string) func(http.HandlerFunc) http.Handler {
	return func(next http.HandlerFunc) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := session.FromContext(r.Context())
			if !auth.IsAuthenticated() {
				if msg != "" {
					setFlash(w, flashError, msg)
				}
				redirect(w, r, "/login")
				return
			}
			if auth.UserType != ut {
				if msg != "" {
					setFlash(w, flashError, msg)
				}
				redirect(w, r, fallback)
				return
			}
			next(w, r)
		})
	}
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	w.Header().Set("Location", baseUrl+path)
	w.WriteHeader(http.StatusFound)
}
