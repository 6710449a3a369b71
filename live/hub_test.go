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

package live

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishikarobar/storefront/backend"
)

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func counting(n *int64) FetchFunc[int64] {
	return func(ctx context.Context) (int64, error) {
		return atomic.AddInt64(n, 1), nil
	}
}

func recv[T any](t *testing.T, ch <-chan Update[T]) Update[T] {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "channel closed")
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no update")
	}
	panic("unreachable")
}

func TestSharedPollerPerKey(t *testing.T) {
	h := NewHub[int64]("test", 10*time.Millisecond, quietLog())
	defer h.Close()

	var fetches int64
	ch1, cancel1 := h.Subscribe("k", counting(&fetches))
	recv(t, ch1)
	ch2, cancel2 := h.Subscribe("k", counting(&fetches))
	defer cancel2()
	defer cancel1()

	// the second subscriber starts from the last value
	first := recv(t, ch2)
	assert.GreaterOrEqual(t, first.Value, int64(1))
	assert.Equal(t, 1, h.Active())

	recv(t, ch1)
	recv(t, ch2)
}

func TestLastUnsubscribeStopsFetching(t *testing.T) {
	h := NewHub[int64]("test", 5*time.Millisecond, quietLog())
	defer h.Close()

	var fetches int64
	ch, cancel := h.Subscribe("k", counting(&fetches))
	recv(t, ch)
	recv(t, ch)
	cancel()

	assert.Equal(t, 0, h.Active())
	after := atomic.LoadInt64(&fetches)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&fetches))

	for range ch {
	}
	cancel()
}

func TestPartialUnsubscribeKeepsPolling(t *testing.T) {
	h := NewHub[int64]("test", 5*time.Millisecond, quietLog())
	defer h.Close()

	var fetches int64
	ch1, cancel1 := h.Subscribe("k", counting(&fetches))
	_, cancel2 := h.Subscribe("k", counting(&fetches))
	defer cancel1()
	cancel2()

	a := recv(t, ch1)
	b := recv(t, ch1)
	assert.Greater(t, b.Value, a.Value)
	assert.Equal(t, 1, h.Active())
}

func TestErrorsAreDelivered(t *testing.T) {
	h := NewHub[int]("test", time.Hour, quietLog())
	defer h.Close()
	ch, cancel := h.Subscribe("k", func(context.Context) (int, error) { return 0, errors.New("down") })
	defer cancel()
	u := recv(t, ch)
	assert.EqualError(t, u.Err, "down")
}

func TestSnapshot(t *testing.T) {
	h := NewHub[int64]("test", time.Hour, quietLog())
	defer h.Close()

	var fetches int64
	v, err := h.Snapshot(context.Background(), "k", counting(&fetches))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	ch, cancel := h.Subscribe("k", counting(&fetches))
	defer cancel()
	u := recv(t, ch)
	v, err = h.Snapshot(context.Background(), "k", counting(&fetches))
	require.NoError(t, err)
	assert.Equal(t, u.Value, v)
	assert.Equal(t, int64(2), atomic.LoadInt64(&fetches))
}

func TestCloseStopsEverything(t *testing.T) {
	h := NewHub[int64]("test", 5*time.Millisecond, quietLog())
	var fetches int64
	ch, cancel := h.Subscribe("a", counting(&fetches))
	h.Subscribe("b", counting(&fetches))
	recv(t, ch)
	h.Close()
	cancel()

	after := atomic.LoadInt64(&fetches)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&fetches))

	ch2, _ := h.Subscribe("a", counting(&fetches))
	_, ok := <-ch2
	assert.False(t, ok)
}

type fakeSource struct {
	cartErr error
}

func (f *fakeSource) Notifications(context.Context, string) ([]*backend.Notification, error) {
	return []*backend.Notification{{IsRead: false}, {IsRead: true}, {IsRead: false}}, nil
}

func (f *fakeSource) Cart(context.Context, string) (*backend.Cart, error) {
	if f.cartErr != nil {
		return nil, f.cartErr
	}
	return &backend.Cart{Items: []*backend.CartItem{{ID: 1, Quantity: 5}, {ID: 2, Quantity: 1}}}, nil
}

func (f *fakeSource) Conversations(_ context.Context, _ string, set backend.ConversationSet) ([]*backend.Conversation, error) {
	if set != backend.WithFarmer {
		return []*backend.Conversation{{UnreadCount: 9}}, nil
	}
	return []*backend.Conversation{{UnreadCount: 2}, {UnreadCount: 1}}, nil
}

func TestCountersFetcher(t *testing.T) {
	c, err := CountersFetcher(&fakeSource{}, "t", backend.Customer, quietLog())(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counters{Notifications: 2, Cart: 2, Messages: 3}, c)

	c, err = CountersFetcher(&fakeSource{cartErr: errors.New("x")}, "t", backend.Customer, quietLog())(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Cart)

	c, err = CountersFetcher(&fakeSource{}, "t", backend.Farmer, quietLog())(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counters{Notifications: 2, Messages: 9}, c)
}

func TestDropStopsMatchingPollers(t *testing.T) {
	h := NewHub[int64]("test", 5*time.Millisecond, quietLog())
	defer h.Close()

	var dropped, kept int64
	a, cancelA := h.Subscribe("conversation:tok:1", counting(&dropped))
	b, cancelB := h.Subscribe("conversation:tok:2", counting(&dropped))
	c, cancelC := h.Subscribe("conversation:other:1", counting(&kept))
	defer cancelA()
	defer cancelB()
	defer cancelC()
	recv(t, a)
	recv(t, b)
	recv(t, c)

	n := h.Drop(func(k string) bool { return strings.HasPrefix(k, "conversation:tok:") })
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, h.Active())

	for range a {
	}
	for range b {
	}
	after := atomic.LoadInt64(&dropped)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&dropped))

	// other keys keep polling
	x := recv(t, c)
	y := recv(t, c)
	assert.Greater(t, y.Value, x.Value)

	// a dropped key can be subscribed again
	again, cancel := h.Subscribe("conversation:tok:1", counting(&dropped))
	defer cancel()
	recv(t, again)
	assert.Equal(t, 0, h.Drop(func(string) bool { return false }))
}
