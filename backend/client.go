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

// Package backend is the storefront's only door to the marketplace REST API.
// It builds absolute URLs from a fixed origin and attaches the session token.
// There is no retry, caching or batching here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Method string
	Path   string
	Code   int
	// Detail is the backend's "detail" or "error" field when it sent one.
	Detail string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// Detail returns the backend-provided message of err, or fallback.
func Detail(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return fallback
}

// Client talks to the marketplace API.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	log        logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a client for the API rooted at baseURL (e.g.
// "http://localhost:8000"). A scheme-less address gets "http://".
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend: empty base url")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "backend: invalid base url")
	}
	c := &Client{
		base: u,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// URL builds the absolute URL of an API path.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type request struct {
	method      string
	path        string
	query       url.Values
	token       string
	body        io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.URL(r.path, r.query), r.body)
	if err != nil {
		return err
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Token "+r.token)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", r.method, r.path)
	}
	defer resp.Body.Close()
	c.log.WithFields(logrus.Fields{
		"backend.method": r.method,
		"backend.path":   r.path,
		"backend.status": resp.StatusCode,
		"backend.took":   time.Since(start).Milliseconds(),
	}).Debug("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{
			Method: r.method,
			Path:   r.path,
			Code:   resp.StatusCode,
			Detail: errorDetail(body),
			Body:   strings.TrimSpace(string(body)),
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.Wrapf(err, "%s %s: decode response", r.method, r.path)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, token string, out interface{}) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query, token: token}, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	return c.do(ctx, request{
		method:      method,
		path:        path,
		token:       token,
		body:        body,
		contentType: "application/json",
	}, out)
}

type formPart struct {
	name  string
	value string
	file  *Upload
}

func (c *Client) sendMultipart(ctx context.Context, method, path, token string, parts []formPart, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.file != nil {
			fw, err := mw.CreateFormFile(p.name, p.file.Filename)
			if err != nil {
				return err
			}
			if _, err := fw.Write(p.file.Data); err != nil {
				return err
			}
			continue
		}
		if err := mw.WriteField(p.name, p.value); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return c.do(ctx, request{
		method:      method,
		path:        path,
		token:       token,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, out)
}

// errorDetail pulls a human message out of a DRF error body:
// {"detail": ".."}, {"error": ".."} or {"field": ["msg", ..], ..}.
func errorDetail(body []byte) string {
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	for _, k := range []string{"detail", "error"} {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var msgs []string
	for _, k := range keys {
		switch t := m[k].(type) {
		case string:
			msgs = append(msgs, t)
		case []interface{}:
			for _, e := range t {
				if s, ok := e.(string); ok {
					msgs = append(msgs, s)
				}
			}
		}
	}
	return strings.Join(msgs, " ")
}

// listOf decodes either a bare JSON array or a paginated {"results": [...]}.
type listOf[T any] struct {
	Items []T
}

func (l *listOf[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, &l.Items)
	}
	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(b, &page); err != nil {
		return err
	}
	l.Items = page.Results
	return nil
}
