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

package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishikarobar/storefront/backend"
)

type fakeProfiles struct {
	mu    sync.Mutex
	calls int
	err   error
	p     *backend.Profile
}

func (f *fakeProfiles) Profile(_ context.Context, token string) (*backend.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.p, nil
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func farmerProfile() *backend.Profile {
	p := &backend.Profile{UserType: backend.Farmer}
	p.Details.User.Username = "ram"
	return p
}

func TestLoginResolveLogout(t *testing.T) {
	ctx := context.Background()
	profiles := &fakeProfiles{p: farmerProfile()}
	m := NewManager(NewMemoryStore(time.Hour), profiles, quietLog())

	a, err := m.Login(ctx, "sid", "tok")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, a.State)
	assert.True(t, a.IsFarmer())
	assert.False(t, a.IsCustomer())
	assert.Equal(t, "ram", a.Username())

	a = m.Resolve(ctx, "sid")
	assert.True(t, a.IsAuthenticated())
	assert.Equal(t, 2, profiles.calls)

	a, err = m.Logout(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, a.State)

	a = m.Resolve(ctx, "sid")
	assert.Equal(t, Unauthenticated, a.State)
	assert.Equal(t, 2, profiles.calls, "no profile fetch after logout")
}

func TestResolveWithoutTokenSkipsBackend(t *testing.T) {
	profiles := &fakeProfiles{p: farmerProfile()}
	m := NewManager(NewMemoryStore(time.Hour), profiles, quietLog())
	a := m.Resolve(context.Background(), "unknown")
	assert.Equal(t, Unauthenticated, a.State)
	assert.Equal(t, "", a.Token)
	assert.Equal(t, 0, profiles.calls)
}

func TestFailedProfileKeepsToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	profiles := &fakeProfiles{err: errors.New("401")}
	m := NewManager(store, profiles, quietLog())

	a, err := m.Login(ctx, "sid", "stale")
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, a.State)
	assert.Equal(t, "stale", a.Token)

	tok, err := store.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "stale", tok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(ctx, "sid", "tok"))

	now = now.Add(30 * time.Second)
	tok, err := s.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "sid")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	defer s.Close()

	_, err := s.Get(ctx, "sid")
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.Set(ctx, "sid", "tok"))
	assert.True(t, mr.Exists("storefront:session:sid"))
	assert.Equal(t, time.Hour, mr.TTL("storefront:session:sid"))

	tok, err := s.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	require.NoError(t, s.Delete(ctx, "sid"))
	_, err = s.Get(ctx, "sid")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestNewRedisStoreURL(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	defer s.Close()

	_, err = NewRedisStore(context.Background(), "://bad", time.Hour)
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	assert.Equal(t, Unauthenticated, FromContext(context.Background()).State)
	ctx := NewContext(context.Background(), Auth{State: Authenticated, UserType: backend.Customer})
	assert.True(t, FromContext(ctx).IsCustomer())
}
