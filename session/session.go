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

// Package session tracks who is signed in for each browser session. The
// token is kept server side in a Store keyed by the session-id cookie; the
// profile is fetched again on every page request.
package session

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/krishikarobar/storefront/backend"
)

// ErrNoToken is returned by a Store when the session has no token.
var ErrNoToken = errors.New("session: no token")

type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Auth is the snapshot of one session's authentication.
type Auth struct {
	State    State
	UserType backend.UserType
	Profile  *backend.Profile
	// Token stays set after a failed profile fetch; only Logout clears it.
	Token string
}

func (a Auth) IsAuthenticated() bool { return a.State == Authenticated }
func (a Auth) IsFarmer() bool        { return a.IsAuthenticated() && a.UserType == backend.Farmer }
func (a Auth) IsCustomer() bool      { return a.IsAuthenticated() && a.UserType == backend.Customer }

// Username returns the signed-in username or "".
func (a Auth) Username() string {
	if a.Profile == nil {
		return ""
	}
	return a.Profile.Details.User.Username
}

// Store persists session tokens.
type Store interface {
	Get(ctx context.Context, sid string) (string, error)
	Set(ctx context.Context, sid, token string) error
	Delete(ctx context.Context, sid string) error
}

// ProfileFetcher loads the profile behind a token.
type ProfileFetcher interface {
	Profile(ctx context.Context, token string) (*backend.Profile, error)
}

// Manager drives the loading → authenticated / unauthenticated transitions.
type Manager struct {
	store    Store
	profiles ProfileFetcher
	log      logrus.FieldLogger
}

func NewManager(store Store, profiles ProfileFetcher, log logrus.FieldLogger) *Manager {
	return &Manager{store: store, profiles: profiles, log: log}
}

// Resolve runs on every page request. Without a stored token the session is
// unauthenticated and no backend call is made.
func (m *Manager) Resolve(ctx context.Context, sid string) Auth {
	if sid == "" {
		return Auth{State: Unauthenticated}
	}
	token, err := m.store.Get(ctx, sid)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			m.log.WithField("error", err).Warn("failed to read session token")
		}
		return Auth{State: Unauthenticated}
	}
	return m.authenticate(ctx, token)
}

// Login persists token for sid and fetches the profile. A failed fetch
// leaves the session unauthenticated but keeps the token stored.
func (m *Manager) Login(ctx context.Context, sid, token string) (Auth, error) {
	if err := m.store.Set(ctx, sid, token); err != nil {
		return Auth{State: Unauthenticated}, errors.Wrap(err, "could not store session token")
	}
	return m.authenticate(ctx, token), nil
}

// Logout forgets the session's token.
func (m *Manager) Logout(ctx context.Context, sid string) (Auth, error) {
	if err := m.store.Delete(ctx, sid); err != nil {
		return Auth{State: Unauthenticated}, errors.Wrap(err, "could not delete session token")
	}
	return Auth{State: Unauthenticated}, nil
}

func (m *Manager) authenticate(ctx context.Context, token string) Auth {
	a := Auth{State: Loading, Token: token}
	p, err := m.profiles.Profile(ctx, token)
	if err != nil {
		m.log.WithField("error", err).Debug("profile fetch failed")
		a.State = Unauthenticated
		return a
	}
	a.State = Authenticated
	a.Profile = p
	a.UserType = p.UserType
	return a
}

type ctxKeyAuth struct{}

// NewContext returns ctx carrying a.
func NewContext(ctx context.Context, a Auth) context.Context {
	return context.WithValue(ctx, ctxKeyAuth{}, a)
}

// FromContext returns the Auth stored in ctx, unauthenticated if none.
func FromContext(ctx context.Context) Auth {
	if a, ok := ctx.Value(ctxKeyAuth{}).(Auth); ok {
		return a
	}
	return Auth{State: Unauthenticated}
}
