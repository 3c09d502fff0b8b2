/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pagesnap/internal/replay"
	"pagesnap/internal/storage"
)

// Client talks to a Server. It satisfies storage.RunStore so the CLI can point
// `runs` commands at a remote store.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// Token is the response of POST /api/auth/token.
type Token struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet && strings.HasPrefix(u.Path, "/api/runs/") {
		return fmt.Errorf("%w: %s", storage.ErrRunNotFound, strings.TrimPrefix(u.Path, "/api/runs/"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("server %s %s: %s: %s", method, u.Path, resp.Status, e.Error)
		}
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// Login requests a token for subject and stores it on the client.
func (c *Client) Login(ctx context.Context, subject string, ttl time.Duration) (Token, error) {
	b, err := json.Marshal(map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)})
	if err != nil {
		return Token{}, err
	}
	var tok Token
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", bytes.NewReader(b), &tok); err != nil {
		return Token{}, err
	}
	c.Token = tok.Token
	return tok, nil
}

func (c *Client) ListRuns(ctx context.Context, limit int) ([]storage.RunSummary, error) {
	path := "/api/runs"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var list []storage.RunSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetRun(ctx context.Context, id string) (*replay.Run, error) {
	var run replay.Run
	if err := c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) SaveRun(ctx context.Context, run *replay.Run) error {
	b, err := storage.EncodeRun(run)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/runs", bytes.NewReader(b), nil)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

var _ storage.RunStore = (*Client)(nil)
