/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pagesnap/internal/config"
	applog "pagesnap/internal/log"
	"pagesnap/internal/replay"
	"pagesnap/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// DefaultFileName is the run database inside the per-user config dir.
	DefaultFileName = "runs.sqlite"

	// schemaVersion tracks the local SQLite schema.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// DefaultPath returns the run database used when storage.path is empty.
func DefaultPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFileName), nil
}

// SQLiteStore is the local RunStore.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// OpenSQLite creates or opens the database at path, enables WAL mode and brings
// the schema up to date.
func OpenSQLite(path string) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create db dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureRunSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure run schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("run store ready")
	return &SQLiteStore{db: db, path: path, log: applog.WithComponent("storage")}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SchemaVersion reports the version row, for diagnostics.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Check runs PRAGMA quick_check and returns an error unless SQLite reports ok.
func (s *SQLiteStore) Check(ctx context.Context) error {
	var res string
	if err := s.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&res); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(res), "ok") {
		return fmt.Errorf("quick_check: %s", res)
	}
	return nil
}

// SaveRun inserts or replaces a run together with its frame rows.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *replay.Run) error {
	doc, err := EncodeRun(run)
	if err != nil {
		return err
	}
	sum := Summarize(run)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM frames WHERE run_id=?`, run.ID); err != nil {
		return fmt.Errorf("clear frames: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id, scene, threshold, started_at, frames, snapped, gestures, cancelled, mismatches, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET scene=excluded.scene, threshold=excluded.threshold, started_at=excluded.started_at,
			frames=excluded.frames, snapped=excluded.snapped, gestures=excluded.gestures,
			cancelled=excluded.cancelled, mismatches=excluded.mismatches, doc=excluded.doc`,
		sum.ID, sum.Scene, sum.Threshold, sum.StartedAt.Format(time.RFC3339Nano),
		sum.Frames, sum.Snapped, sum.Gestures, sum.Cancelled, sum.Mismatches, doc); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO frames (run_id, idx, gesture, step, kind, moving_id, snapped_x, snapped_y, guides, x, y, w, h)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare frames: %w", err)
	}
	defer stmt.Close()
	for i, f := range run.Frames {
		r := f.Result
		if _, err := stmt.ExecContext(ctx, run.ID, i, f.Gesture, f.Step, f.Kind, f.MovingID,
			boolInt(f.SnappedX), boolInt(f.SnappedY), len(f.Guides), r.X, r.Y, r.Width, r.Height); err != nil {
			return fmt.Errorf("insert frame %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	s.log.Debug("run saved", slog.String("id", run.ID), slog.Int("frames", len(run.Frames)))
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*replay.Run, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM runs WHERE id=?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	return DecodeRun(doc)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	q := `SELECT id, scene, threshold, started_at, frames, snapped, gestures, cancelled, mismatches
		FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []RunSummary
	for rows.Next() {
		var (
			r  RunSummary
			ts string
		)
		if err := rows.Scan(&r.ID, &r.Scene, &r.Threshold, &ts, &r.Frames, &r.Snapped, &r.Gestures, &r.Cancelled, &r.Mismatches); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", ts, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SceneStat aggregates the frame rows of every stored run of one scene.
type SceneStat struct {
	Scene   string
	Runs    int
	Frames  int
	Snapped int
}

// SceneStats groups stored frames by scene name, ordered by name.
func (s *SQLiteStore) SceneStats(ctx context.Context) ([]SceneStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.scene, COUNT(DISTINCT r.id), COUNT(f.idx),
			COALESCE(SUM(CASE WHEN f.snapped_x=1 OR f.snapped_y=1 THEN 1 ELSE 0 END), 0)
		FROM runs r LEFT JOIN frames f ON f.run_id = r.id
		GROUP BY r.scene ORDER BY r.scene`)
	if err != nil {
		return nil, fmt.Errorf("scene stats: %w", err)
	}
	defer rows.Close()
	var out []SceneStat
	for rows.Next() {
		var st SceneStat
		if err := rows.Scan(&st.Scene, &st.Runs, &st.Frames, &st.Snapped); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// a fresh file starts at schema 1 and migrates forward like any other
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureRunSchema creates the schema-1 tables.
func ensureRunSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT    PRIMARY KEY,
			scene       TEXT    NOT NULL,
			threshold   REAL    NOT NULL,
			started_at  TEXT    NOT NULL,
			frames      INTEGER NOT NULL,
			snapped     INTEGER NOT NULL,
			gestures    INTEGER NOT NULL,
			cancelled   INTEGER NOT NULL,
			mismatches  INTEGER NOT NULL,
			doc         BLOB    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
		`CREATE TABLE IF NOT EXISTS frames (
			run_id     TEXT    NOT NULL,
			idx        INTEGER NOT NULL,
			gesture    INTEGER NOT NULL,
			step       INTEGER NOT NULL,
			kind       TEXT    NOT NULL,
			moving_id  TEXT    NOT NULL,
			snapped_x  INTEGER NOT NULL,
			snapped_y  INTEGER NOT NULL,
			guides     INTEGER NOT NULL,
			x REAL NOT NULL, y REAL NOT NULL, w REAL NOT NULL, h REAL NOT NULL,
			PRIMARY KEY(run_id, idx),
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure run schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	// never downgrade
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_runs_scene ON runs(scene, started_at);`,
				`CREATE INDEX IF NOT EXISTS idx_frames_moving ON frames(run_id, moving_id);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

var _ RunStore = (*SQLiteStore)(nil)
