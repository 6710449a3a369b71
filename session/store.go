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

package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront:session:"

type memoryEntry struct {
	token   string
	expires time.Time
}

// MemoryStore keeps tokens in process. Entries expire after ttl.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, sid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sid]
	if !ok {
		return "", ErrNoToken
	}
	if s.ttl > 0 && s.now().After(e.expires) {
		delete(s.entries, sid)
		return "", ErrNoToken
	}
	return e.token, nil
}

func (s *MemoryStore) Set(_ context.Context, sid, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sid] = memoryEntry{token: token, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sid)
	return nil
}

// RedisStore keeps tokens in Redis so several storefront replicas share
// sessions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redisURL (redis://…) and pings it.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(sid string) string { return redisKeyPrefix + sid }

func (s *RedisStore) Get(ctx context.Context, sid string) (string, error) {
	token, err := s.client.Get(ctx, s.key(sid)).Result()
	if err == redis.Nil {
		return "", ErrNoToken
	}
	if err != nil {
		return "", errors.Wrap(err, "redis get")
	}
	return token, nil
}

func (s *RedisStore) Set(ctx context.Context, sid, token string) error {
	return errors.Wrap(s.client.Set(ctx, s.key(sid), token, s.ttl).Err(), "redis set")
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	return errors.Wrap(s.client.Del(ctx, s.key(sid)).Err(), "redis del")
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
