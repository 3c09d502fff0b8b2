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
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	applog "pagesnap/internal/log"
	"pagesnap/internal/replay"
	"pagesnap/internal/scene"
	"pagesnap/internal/storage"
)

func sampleRun(t *testing.T) *replay.Run {
	t.Helper()
	s, err := scene.Load(filepath.Join("..", "scene", "testdata", "resize.toml"))
	if err != nil {
		t.Fatalf("load scene: %v", err)
	}
	run, err := replay.Play(context.Background(), s, replay.Options{Logger: applog.Discard(), Start: time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	return run
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.SQLiteStore) {
	t.Helper()
	st, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "runs.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	srv := httptest.NewServer(NewServer(st, "test-secret").Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func TestServerHealthAndVersion(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, p := range []string{"/healthz", "/readyz", "/version"} {
		resp, err := http.Get(srv.URL + p)
		if err != nil {
			t.Fatalf("get %s: %v", p, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status %d", p, resp.StatusCode)
		}
	}
}

func TestServerRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, "")
	if _, err := c.ListRuns(context.Background(), 0); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401, got %v", err)
	}
	c.Token = "garbage"
	if _, err := c.ListRuns(context.Background(), 0); err == nil {
		t.Fatalf("expected error for invalid token")
	}
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv, st := newTestServer(t)
	c := NewClient(srv.URL+"/", "")
	tok, err := c.Login(ctx, "ci", time.Hour)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok.Token == "" || c.Token != tok.Token {
		t.Fatalf("token not stored: %+v", tok)
	}

	list, err := c.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}

	run := sampleRun(t)
	if err := c.SaveRun(ctx, run); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := st.GetRun(ctx, run.ID); err != nil {
		t.Fatalf("run not persisted: %v", err)
	}

	list, err = c.ListRuns(ctx, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != run.ID || list[0].Scene != "resize" {
		t.Fatalf("unexpected list %+v", list)
	}
	got, err := c.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Frames) != len(run.Frames) || !got.StartedAt.Equal(run.StartedAt) {
		t.Fatalf("remote run differs: %+v", got)
	}
	if _, err := c.GetRun(ctx, "nope"); !errors.Is(err, storage.ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
}

func TestServerRejectsBadLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, "")
	if _, err := c.Login(context.Background(), "", 0); err != nil {
		t.Fatalf("login: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/runs?limit=-3", nil)
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}
