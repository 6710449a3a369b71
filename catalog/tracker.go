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

package catalog

import (
	"context"
	"sync"
)

type inflight struct {
	version uint64
	cancel  context.CancelFunc
}

// Tracker makes sure only the newest listing request per key is served.
// Starting a request cancels the previous one for the same key.
type Tracker struct {
	mu      sync.Mutex
	version uint64
	running map[string]inflight
}

func NewTracker() *Tracker {
	return &Tracker{running: make(map[string]inflight)}
}

// Begin cancels any in-flight request for key and returns a context for the
// new one with its version. done must be called when the request ends.
func (t *Tracker) Begin(ctx context.Context, key string) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	if prev, ok := t.running[key]; ok {
		prev.cancel()
	}
	t.version++
	v := t.version
	t.running[key] = inflight{version: v, cancel: cancel}
	t.mu.Unlock()

	done := func() {
		cancel()
		t.mu.Lock()
		if cur, ok := t.running[key]; ok && cur.version == v {
			delete(t.running, key)
		}
		t.mu.Unlock()
	}
	return ctx, v, done
}

// Current reports whether version is the newest request started for key.
func (t *Tracker) Current(key string, version uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.running[key]
	return ok && cur.version == version
}
