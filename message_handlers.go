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
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/live"
	"github.com/krishikarobar/storefront/session"
	"github.com/krishikarobar/storefront/validator"
)

const writeWait = 10 * time.Second

func (fe *frontendServer) messagesHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	q := r.URL.Query()
	selected, _ := strconv.Atoi(q.Get("c"))

	inbox := fe.getInbox(r.Context(), log, auth, selected)
	data := map[string]interface{}{
		"inbox": inbox,
		"me":    auth.Profile.Details.User.ID,
	}
	// a product page can open a new conversation with its farmer
	if to, _ := strconv.Atoi(q.Get("to")); to > 0 {
		data["compose_to"] = to
		data["compose_name"] = q.Get("name")
		data["compose_product"] = q.Get("product")
		data["compose_subject"] = q.Get("subject")
	}
	renderTemplate(w, r, "messages", data)
}

func (fe *frontendServer) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	target := "/messages"
	if c := r.FormValue("conversation"); c != "" {
		target += "?c=" + c
	}

	content := strings.TrimSpace(r.FormValue("content"))
	if content == "" {
		redirect(w, r, target)
		return
	}
	payload := validator.SendMessagePayload{
		ReceiverID: formInt(r, "receiver_id"),
		Content:    content,
	}
	if err := payload.Validate(); err != nil {
		setFlash(w, flashError, validator.Message(err))
		redirect(w, r, target)
		return
	}
	req := backend.SendMessageRequest{
		ReceiverID: payload.ReceiverID,
		Content:    payload.Content,
		Subject:    r.FormValue("subject"),
	}
	if pid := formInt(r, "product_id"); pid > 0 {
		req.ProductID = &pid
	}
	if _, err := fe.api.SendMessage(r.Context(), auth.Token, req); err != nil {
		log.WithField("error", err).Warn("failed to send message")
		setFlash(w, flashError, backend.Detail(err, "Failed to send message."))
	}
	redirect(w, r, target)
}

// liveSocketHandler streams the navbar counters of the session.
func (fe *frontendServer) liveSocketHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())

	conn, err := fe.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("error", err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := fe.counters.Subscribe(live.CountersKey(auth.Token),
		live.CountersFetcher(fe.api, auth.Token, auth.UserType, log))
	defer cancel()
	pump(conn, log, updates, func(c live.Counters) interface{} {
		return struct {
			Type string `json:"type"`
			live.Counters
		}{"counters", c}
	})
}

// conversationSocketHandler streams the messages of one conversation.
func (fe *frontendServer) conversationSocketHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	conn, err := fe.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("error", err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := fe.conversations.Subscribe(conversationKey(auth.Token, id),
		live.MessagesFetcher(fe.api, auth.Token, id))
	defer cancel()
	pump(conn, log.WithField("conversation", id), updates, func(msgs []*backend.Message) interface{} {
		return struct {
			Type     string             `json:"type"`
			Messages []*backend.Message `json:"messages"`
		}{"messages", msgs}
	})
}

// pump writes hub updates to conn until the peer goes away or the hub
// closes. Failed polls are skipped so the page keeps its last state.
func pump[T any](conn *websocket.Conn, log logrus.FieldLogger, updates <-chan live.Update[T], frame func(T) interface{}) {
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			log.Debug("websocket closed by peer")
			return
		case u, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream ended"),
					time.Now().Add(writeWait))
				return
			}
			if u.Err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame(u.Value)); err != nil {
				log.WithField("error", err).Debug("websocket write failed")
				return
			}
		}
	}
}

// endLiveStreams stops every poller running on token. Open sockets of the
// session see their stream close.
func (fe *frontendServer) endLiveStreams(token string) int {
	if token == "" {
		return 0
	}
	counters, prefix := live.CountersKey(token), conversationPrefix(token)
	n := fe.counters.Drop(func(k string) bool { return k == counters })
	n += fe.conversations.Drop(func(k string) bool { return strings.HasPrefix(k, prefix) })
	return n
}

// liveSnapshotHandler is the polling fallback for browsers without
// websockets.
func (fe *frontendServer) liveSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	auth := session.FromContext(r.Context())
	c, err := fe.counters.Snapshot(r.Context(), live.CountersKey(auth.Token),
		live.CountersFetcher(fe.api, auth.Token, auth.UserType, log))
	if err != nil {
		writeJSON(w, log, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, log, http.StatusOK, c)
}
