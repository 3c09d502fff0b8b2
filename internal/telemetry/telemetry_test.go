/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type sink struct {
	mu      sync.Mutex
	events  [][]byte
	crashes [][]byte
}

func (s *sink) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.events = append(s.events, b)
		s.mu.Unlock()
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.crashes = append(s.crashes, b)
		s.mu.Unlock()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GestureAndCrash(t *testing.T) {
	var s sink
	srv := s.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()

	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}
	c.Gesture(GestureSummary{Kind: "move", Updates: 5, SnappedX: 2, Targets: 3, Duration: 1500 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c.Flush(ctx)

	s.mu.Lock()
	events := append([][]byte(nil), s.events...)
	s.mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	var m map[string]any
	if err := json.Unmarshal(events[0], &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "gesture_end" || m["kind"] != "move" || m["updates"] != float64(5) || m["duration_ms"] != float64(1500) {
		t.Fatalf("unexpected payload: %v", m)
	}

	c.UploadCrash([]byte("STACKTRACE"))
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.crashes) != 1 || string(s.crashes[0]) != "STACKTRACE" {
		t.Fatalf("crash upload mismatch: %q", s.crashes)
	}
}

func TestDisabledClientIsSilent(t *testing.T) {
	var s sink
	srv := s.server(t)
	c := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash"})
	defer c.Close()

	c.Event("x", nil)
	c.Gesture(GestureSummary{Kind: "resize"})
	c.UploadCrash([]byte("nope"))
	c.Flush(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) != 0 || len(s.crashes) != 0 {
		t.Fatalf("disabled client sent data: %d events, %d crashes", len(s.events), len(s.crashes))
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	c.Event("x", nil)
	c.Gesture(GestureSummary{})
	c.UploadCrash(nil)
	c.Flush(context.Background())
	c.Close()
	if c.Enabled() {
		t.Fatalf("nil client reports enabled")
	}
}

func TestFromEnvAndDefault(t *testing.T) {
	t.Setenv("PAGESNAP_TELEMETRY_OPT_IN", "true")
	t.Setenv("PAGESNAP_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("PAGESNAP_CRASH_UPLOAD_URL", "")
	t.Setenv("PAGESNAP_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	SetDefault(New(cfg))
	t.Cleanup(func() { SetDefault(nil) })
	if !Default().Enabled() {
		t.Fatalf("default client should be enabled")
	}
}

func TestFlushAfterCloseReturnsPromptly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})

	for i := 0; i < 5; i++ {
		c.Event("e", nil)
	}
	c.Close()
	if c.Enabled() {
		t.Fatalf("closed client reports enabled")
	}
	c.Event("late", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c.Flush(ctx)
	if err := ctx.Err(); err != nil {
		t.Fatalf("flush after close waited for the deadline: %v", err)
	}
}

func TestEventAndFlushConcurrently(t *testing.T) {
	var s sink
	srv := s.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				c.Event("e", nil)
			}
		}()
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			c.Flush(ctx)
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c.Flush(ctx)
	if err := ctx.Err(); err != nil {
		t.Fatalf("final flush: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) != 20 {
		t.Fatalf("events = %d, want 20", len(s.events))
	}
}
