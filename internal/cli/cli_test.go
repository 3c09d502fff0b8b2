/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"pagesnap/internal/config"
	"pagesnap/internal/storage"
)

const alignScene = "../scene/testdata/align.yaml"

// newTestCLI returns a CLI whose run store is a temp SQLite file.
func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	c := New(&out, config.Defaults())
	dbPath := filepath.Join(t.TempDir(), "runs.sqlite")
	c.OpenStore = func(context.Context) (storage.RunStore, error) { return storage.OpenSQLite(dbPath) }
	return c, &out
}

func TestVersionCommand(t *testing.T) {
	c, out := newTestCLI(t)
	if err := c.Execute(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "pagesnap ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestValidate(t *testing.T) {
	c, out := newTestCLI(t)
	if err := c.Execute(context.Background(), []string{"validate", alignScene, "../scene/testdata/group.json"}); err != nil {
		t.Fatalf("validate: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "4 elements") || !strings.Contains(out.String(), "1 resizes") {
		t.Fatalf("summary missing:\n%s", out.String())
	}

	out.Reset()
	err := c.Execute(context.Background(), []string{"validate", alignScene, "../scene/testdata/invalid.yaml"})
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("expected one invalid file, got %v", err)
	}
	if !strings.Contains(out.String(), "duplicate") {
		t.Fatalf("issues not listed:\n%s", out.String())
	}
}

func TestSchemaCommand(t *testing.T) {
	c, out := newTestCLI(t)
	if err := c.Execute(context.Background(), []string{"schema"}); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !json.Valid(out.Bytes()) {
		t.Fatalf("schema output is not JSON")
	}
}

func TestReplayExportAndSave(t *testing.T) {
	c, out := newTestCLI(t)
	dir := filepath.Join(t.TempDir(), "board")
	err := c.Execute(context.Background(), []string{"replay", alignScene, "--export", "svg", "--out", dir, "--save"})
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out.String())
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.svg"))
	if len(files) != 4 {
		t.Fatalf("expected 4 svg frames, got %v", files)
	}
	if !strings.Contains(out.String(), "saved run") {
		t.Fatalf("save not reported:\n%s", out.String())
	}

	out.Reset()
	if err := c.Execute(context.Background(), []string{"runs", "list"}); err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if !strings.Contains(out.String(), "align") || strings.Contains(out.String(), "no runs") {
		t.Fatalf("run not listed:\n%s", out.String())
	}

	st, err := c.OpenStore(context.Background())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	list, err := st.ListRuns(context.Background(), 1)
	_ = st.Close()
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}

	out.Reset()
	if err := c.Execute(context.Background(), []string{"runs", "show", list[0].ID, "--json"}); err != nil {
		t.Fatalf("runs show: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("show --json output: %v", err)
	}
	if doc["id"] != list[0].ID {
		t.Fatalf("wrong run: %v", doc["id"])
	}

	if err := c.Execute(context.Background(), []string{"runs", "show", "nope"}); err == nil || !strings.Contains(err.Error(), "no run") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestReplayFailsOnMismatch(t *testing.T) {
	c, out := newTestCLI(t)
	path := filepath.Join(t.TempDir(), "wrong.yaml")
	data := `name: wrong
canvas: {width: 200, height: 200}
elements:
  - id: A
    bounds: {x: 0, y: 0, width: 10, height: 10}
gestures:
  - kind: move
    target: A
    steps:
      - {dx: 5, dy: 0}
    expect:
      bounds: {x: 50, y: 0, width: 10, height: 10}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	err := c.Execute(context.Background(), []string{"replay", path})
	if !errors.Is(err, ErrExpectations) {
		t.Fatalf("want ErrExpectations, got %v", err)
	}
	if !strings.Contains(out.String(), "gesture 1 move A") {
		t.Fatalf("outcome missing:\n%s", out.String())
	}
}

func TestReplayRejectsUnknownFormat(t *testing.T) {
	c, _ := newTestCLI(t)
	if err := c.Execute(context.Background(), []string{"replay", alignScene, "--export", "gif"}); err == nil {
		t.Fatalf("expected format error")
	}
}

type memSecrets map[string]string

func (m memSecrets) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (m memSecrets) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}

func (m memSecrets) Delete(service, key string) error {
	if _, ok := m[service+"/"+key]; !ok {
		return keyring.ErrNotFound
	}
	delete(m, service+"/"+key)
	return nil
}

func TestBackendSetDSN(t *testing.T) {
	restore := config.SetSecretStore(memSecrets{})
	t.Cleanup(restore)
	c, out := newTestCLI(t)

	if err := c.Execute(context.Background(), []string{"backend", "set-dsn", "postgres://u:p@db/pagesnap"}); err != nil {
		t.Fatalf("set-dsn: %v", err)
	}
	if got, _ := config.PostgresDSN(); got != "postgres://u:p@db/pagesnap" {
		t.Fatalf("keyring DSN = %q", got)
	}
	if !strings.Contains(out.String(), "storage.driver") {
		t.Fatalf("driver hint missing:\n%s", out.String())
	}
	if err := c.Execute(context.Background(), []string{"backend", "set-dsn", "--clear"}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := config.PostgresDSN(); got != "" {
		t.Fatalf("DSN not cleared: %q", got)
	}
}

func TestStoreSelection(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Driver = "postgres"
	c := New(&bytes.Buffer{}, cfg)
	if _, err := c.store(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "set-dsn") {
		t.Fatalf("expected missing DSN hint, got %v", err)
	}
	c.Config.Storage.Driver = "mongo"
	if _, err := c.store(context.Background(), ""); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	c.Config.Storage.Driver = "sqlite"
	c.Config.Storage.Path = filepath.Join(t.TempDir(), "x.sqlite")
	st, err := c.store(context.Background(), "")
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	_ = st.Close()
}

func TestConfigShowMarksEnvOverrides(t *testing.T) {
	t.Setenv(config.EnvSnapThreshold, "12")
	c, out := newTestCLI(t)
	if err := c.Execute(context.Background(), []string{"config", "show"}); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out.String(), config.EnvSnapThreshold) {
		t.Fatalf("override not marked:\n%s", out.String())
	}
}
