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

package live

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/krishikarobar/storefront/backend"
)

// Counters are the navbar badges.
type Counters struct {
	Notifications int `json:"notifications"`
	Cart          int `json:"cart"`
	Messages      int `json:"messages"`
}

// CounterSource is the part of the backend client the counters read.
type CounterSource interface {
	Notifications(ctx context.Context, token string) ([]*backend.Notification, error)
	Cart(ctx context.Context, token string) (*backend.Cart, error)
	Conversations(ctx context.Context, token string, set backend.ConversationSet) ([]*backend.Conversation, error)
}

// MessageSource loads one conversation.
type MessageSource interface {
	ConversationMessages(ctx context.Context, token string, conversationID int) ([]*backend.Message, error)
}

// CountersFetcher returns a FetchFunc computing the badges for token. Each
// badge is fetched concurrently and falls back to zero on failure; the cart
// badge is only computed for customers.
func CountersFetcher(src CounterSource, token string, userType backend.UserType, log logrus.FieldLogger) FetchFunc[Counters] {
	return func(ctx context.Context) (Counters, error) {
		var c Counters
		var g errgroup.Group

		g.Go(func() error {
			ns, err := src.Notifications(ctx, token)
			if err != nil {
				log.WithField("error", err).Debug("notifications counter unavailable")
				return nil
			}
			for _, n := range ns {
				if !n.IsRead {
					c.Notifications++
				}
			}
			return nil
		})
		if userType == backend.Customer {
			g.Go(func() error {
				cart, err := src.Cart(ctx, token)
				if err != nil {
					log.WithField("error", err).Debug("cart counter unavailable")
					return nil
				}
				c.Cart = len(cart.Items)
				return nil
			})
		}
		g.Go(func() error {
			set := backend.WithCustomer
			if userType == backend.Customer {
				set = backend.WithFarmer
			}
			convs, err := src.Conversations(ctx, token, set)
			if err != nil {
				log.WithField("error", err).Debug("messages counter unavailable")
				return nil
			}
			for _, cv := range convs {
				c.Messages += cv.UnreadCount
			}
			return nil
		})
		g.Wait()
		return c, nil
	}
}

// CountersKey is the hub key for a session's badges.
func CountersKey(token string) string { return "counters:" + token }

// MessagesFetcher polls the messages of one conversation.
func MessagesFetcher(src MessageSource, token string, conversationID int) FetchFunc[[]*backend.Message] {
	return func(ctx context.Context) ([]*backend.Message, error) {
		return src.ConversationMessages(ctx, token, conversationID)
	}
}
