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
	"net/http"
	"net/url"
	"strconv"
)

// Conversations lists the inbox of the token's user.
func (c *Client) Conversations(ctx context.Context, token string, set ConversationSet) ([]*Conversation, error) {
	var out listOf[*Conversation]
	if err := c.getJSON(ctx, "/api/conversations/"+string(set)+"/", nil, token, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ConversationMessages lists the messages of one conversation.
func (c *Client) ConversationMessages(ctx context.Context, token string, conversationID int) ([]*Message, error) {
	var out listOf[*Message]
	q := url.Values{"conversation_id": {strconv.Itoa(conversationID)}}
	if err := c.getJSON(ctx, "/api/messages/conversation_messages/", q, token, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// SendMessage calls POST /api/messages/send_message/.
func (c *Client) SendMessage(ctx context.Context, token string, in SendMessageRequest) (*Message, error) {
	var m Message
	if err := c.sendJSON(ctx, http.MethodPost, "/api/messages/send_message/", token, in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Notifications calls GET /api/notifications/.
func (c *Client) Notifications(ctx context.Context, token string) ([]*Notification, error) {
	var out listOf[*Notification]
	if err := c.getJSON(ctx, "/api/notifications/", nil, token, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// MarkNotificationRead calls POST /api/notifications/mark_read/.
func (c *Client) MarkNotificationRead(ctx context.Context, token string, id int) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/notifications/mark_read/", token, map[string]int{"id": id}, nil)
}

// ClearNotification calls POST /api/notifications/clear/.
func (c *Client) ClearNotification(ctx context.Context, token string, id int) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/notifications/clear/", token, map[string]int{"id": id}, nil)
}
