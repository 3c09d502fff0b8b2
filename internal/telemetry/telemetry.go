/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous gesture statistics and crash reports.
// Nothing leaves the machine unless the user opted in and an endpoint is set.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "pagesnap/internal/log"
	"pagesnap/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
//
// Environment variables (read by FromEnv):
//   - PAGESNAP_TELEMETRY_OPT_IN: "1", "true", "yes" to enable
//   - PAGESNAP_TELEMETRY_URL: endpoint receiving JSON events
//   - PAGESNAP_CRASH_UPLOAD_URL: endpoint receiving crash reports
//   - PAGESNAP_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
}

func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv("PAGESNAP_TELEMETRY_OPT_IN")),
		EventsURL: strings.TrimSpace(os.Getenv("PAGESNAP_TELEMETRY_URL")),
		CrashURL:  strings.TrimSpace(os.Getenv("PAGESNAP_CRASH_UPLOAD_URL")),
		Timeout:   1500 * time.Millisecond,
	}
	if ms := strings.TrimSpace(os.Getenv("PAGESNAP_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// GestureSummary is the only payload shape emitted for gestures. It carries
// counters, never element IDs or coordinates.
type GestureSummary struct {
	Kind      string        `json:"kind"` // "move" | "resize"
	Updates   int           `json:"updates"`
	SnappedX  int           `json:"snapped_x"`
	SnappedY  int           `json:"snapped_y"`
	Targets   int           `json:"targets"`
	Duration  time.Duration `json:"duration_ns"`
	Cancelled bool          `json:"cancelled"`
}

// Client is a minimal async sender. Events are dropped on errors or when the
// bounded queue is full, so callers never block on the network.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan map[string]any
	once    sync.Once
	closed  chan struct{}

	mu      sync.Mutex
	stopped bool
	pending int
	// drained is closed whenever pending is zero.
	drained chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the package-level client, built from env on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault installs c as the package-level client and closes the previous one.
func SetDefault(c *Client) {
	defaultMu.Lock()
	prev := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if prev != nil && prev != c {
		prev.Close()
	}
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:       make(chan map[string]any, 64),
		closed:  make(chan struct{}),
		drained: make(chan struct{}),
	}
	close(c.drained)
	go c.loop()
	return c
}

// Enabled reports whether events would be sent. A closed client is disabled.
func (c *Client) Enabled() bool {
	if c == nil || !c.cfg.OptIn || c.cfg.EventsURL == "" {
		return false
	}
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

// Event queues a small JSON event. Safe on a nil or disabled client.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	select {
	case c.q <- payload:
		if c.pending == 0 {
			c.drained = make(chan struct{})
		}
		c.pending++
	default:
	}
}

func (c *Client) done() {
	c.mu.Lock()
	c.pending--
	if c.pending == 0 {
		close(c.drained)
	}
	c.mu.Unlock()
}

// Gesture reports one finished gesture.
func (c *Client) Gesture(s GestureSummary) {
	if !c.Enabled() {
		return
	}
	c.Event("gesture_end", map[string]any{
		"kind":        s.Kind,
		"updates":     s.Updates,
		"snapped_x":   s.SnappedX,
		"snapped_y":   s.SnappedY,
		"targets":     s.Targets,
		"duration_ms": s.Duration.Milliseconds(),
		"cancelled":   s.Cancelled,
	})
}

// Flush waits until queued events were sent or ctx is done.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	drained := c.drained
	c.mu.Unlock()
	select {
	case <-drained:
	case <-ctx.Done():
	}
}

// Close stops the sender goroutine. Queued events are discarded.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		c.mu.Lock()
		c.stopped = true
		c.mu.Unlock()
		close(c.closed)
	})
}

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			// nothing is queued after stopped is set
			for {
				select {
				case <-c.q:
					c.done()
				default:
					return
				}
			}
		case item := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", mustJSON(item))
			c.done()
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (c *Client) post(url, contentType string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		c.log.Debug("telemetry post failed", slog.String("url", url), slog.Any("err", err))
		return
	}
	_ = resp.Body.Close()
}

// UploadCrash posts a serialized crash report when opted in. It blocks for at
// most the configured timeout since it runs on the way out of a panic.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report)
}

// Event sends through the default client.
func Event(name string, props map[string]any) { Default().Event(name, props) }

// UploadCrash uploads through the default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }
