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

// Package live polls the backend on behalf of connected browsers. Every
// consumer of the same key shares one poller; the poller stops when the
// last consumer leaves.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Update is one poll result.
type Update[T any] struct {
	Value T
	Err   error
	At    time.Time
}

// FetchFunc loads the current value for a key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

type poller[T any] struct {
	subs   map[int]chan Update[T]
	nextID int
	last   *Update[T]
	cancel context.CancelFunc
	done   chan struct{}
}

// Hub multiplexes subscribers onto one ticker per key.
type Hub[T any] struct {
	name     string
	interval time.Duration
	log      logrus.FieldLogger

	mu      sync.Mutex
	closed  bool
	pollers map[string]*poller[T]
}

func NewHub[T any](name string, interval time.Duration, log logrus.FieldLogger) *Hub[T] {
	return &Hub[T]{
		name:     name,
		interval: interval,
		log:      log.WithField("hub", name),
		pollers:  make(map[string]*poller[T]),
	}
}

// Subscribe joins the poller for key, starting it with fetch if none runs.
// The channel holds at most the freshest update. cancel must be called
// when the consumer goes away; it closes the channel.
func (h *Hub[T]) Subscribe(key string, fetch FetchFunc[T]) (<-chan Update[T], func()) {
	ch := make(chan Update[T], 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	p, ok := h.pollers[key]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		p = &poller[T]{subs: make(map[int]chan Update[T]), cancel: cancel, done: make(chan struct{})}
		h.pollers[key] = p
		go h.run(ctx, key, p, fetch)
	}
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	if p.last != nil {
		ch <- *p.last
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() { once.Do(func() { h.unsubscribe(key, p, id) }) }
}

func (h *Hub[T]) unsubscribe(key string, p *poller[T], id int) {
	h.mu.Lock()
	ch, ok := p.subs[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(p.subs, id)
	close(ch)
	stop := len(p.subs) == 0
	if stop {
		if h.pollers[key] == p {
			delete(h.pollers, key)
		}
		p.cancel()
	}
	h.mu.Unlock()

	if stop {
		<-p.done
		h.log.Debug("poller stopped")
	}
}

func (h *Hub[T]) run(ctx context.Context, key string, p *poller[T], fetch FetchFunc[T]) {
	defer close(p.done)
	t := time.NewTicker(h.interval)
	defer t.Stop()

	h.poll(ctx, p, fetch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.poll(ctx, p, fetch)
		}
	}
}

func (h *Hub[T]) poll(ctx context.Context, p *poller[T], fetch FetchFunc[T]) {
	if ctx.Err() != nil {
		return
	}
	v, err := fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	u := Update[T]{Value: v, Err: err, At: time.Now()}
	if err != nil {
		h.log.WithField("error", err).Debug("poll failed")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	p.last = &u
	for _, ch := range p.subs {
		// drop the stale value a slow consumer has not read yet
		select {
		case <-ch:
		default:
		}
		ch <- u
	}
}

// Snapshot returns the last polled value for key, or fetches once when no
// poller runs.
func (h *Hub[T]) Snapshot(ctx context.Context, key string, fetch FetchFunc[T]) (T, error) {
	h.mu.Lock()
	if p, ok := h.pollers[key]; ok && p.last != nil {
		u := *p.last
		h.mu.Unlock()
		return u.Value, u.Err
	}
	h.mu.Unlock()
	return fetch(ctx)
}

// Active returns the number of running pollers.
func (h *Hub[T]) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pollers)
}

// Drop stops the pollers whose key satisfies match and closes their
// subscriber channels. A later Subscribe for a dropped key starts afresh.
func (h *Hub[T]) Drop(match func(key string) bool) int {
	h.mu.Lock()
	var dropped []*poller[T]
	for key, p := range h.pollers {
		if match(key) {
			delete(h.pollers, key)
			dropped = append(dropped, p)
		}
	}
	h.mu.Unlock()

	h.stop(dropped)
	if len(dropped) > 0 {
		h.log.WithField("pollers", len(dropped)).Debug("pollers dropped")
	}
	return len(dropped)
}

// Close stops every poller and closes all subscriber channels.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	h.closed = true
	pollers := make([]*poller[T], 0, len(h.pollers))
	for _, p := range h.pollers {
		pollers = append(pollers, p)
	}
	h.pollers = make(map[string]*poller[T])
	h.mu.Unlock()

	h.stop(pollers)
}

func (h *Hub[T]) stop(pollers []*poller[T]) {
	h.mu.Lock()
	for _, p := range pollers {
		for id, ch := range p.subs {
			delete(p.subs, id)
			close(ch)
		}
	}
	h.mu.Unlock()

	for _, p := range pollers {
		p.cancel()
		<-p.done
	}
}
