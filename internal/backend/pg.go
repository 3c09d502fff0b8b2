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
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	applog "pagesnap/internal/log"
	"pagesnap/internal/replay"
	"pagesnap/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PGStore is the shared RunStore backed by Postgres.
type PGStore struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenPostgres connects through the pgx stdlib driver, pings and applies the
// embedded migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	l := applog.WithComponent("backend")
	if err := applyMigrations(ctx, db, l); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PGStore{db: db, log: l}, nil
}

func (s *PGStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PGStore) SaveRun(ctx context.Context, run *replay.Run) error {
	doc, err := storage.EncodeRun(run)
	if err != nil {
		return err
	}
	sum := storage.Summarize(run)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id, scene, threshold, started_at, frames, snapped, gestures, cancelled, mismatches, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET scene=EXCLUDED.scene, threshold=EXCLUDED.threshold, started_at=EXCLUDED.started_at,
			frames=EXCLUDED.frames, snapped=EXCLUDED.snapped, gestures=EXCLUDED.gestures,
			cancelled=EXCLUDED.cancelled, mismatches=EXCLUDED.mismatches, doc=EXCLUDED.doc, saved_at=now()`,
		sum.ID, sum.Scene, sum.Threshold, sum.StartedAt, sum.Frames, sum.Snapped, sum.Gestures, sum.Cancelled, sum.Mismatches, string(doc)); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM frames WHERE run_id=$1`, run.ID); err != nil {
		return fmt.Errorf("clear frames: %w", err)
	}
	for i, f := range run.Frames {
		r := f.Result
		if _, err := tx.ExecContext(ctx, `INSERT INTO frames (run_id, idx, gesture, step, kind, moving_id, snapped_x, snapped_y, guides, x, y, w, h)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			run.ID, i, f.Gesture, f.Step, f.Kind, f.MovingID, f.SnappedX, f.SnappedY, len(f.Guides), r.X, r.Y, r.Width, r.Height); err != nil {
			return fmt.Errorf("insert frame %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	s.log.Debug("run saved", slog.String("id", run.ID))
	return nil
}

func (s *PGStore) GetRun(ctx context.Context, id string) (*replay.Run, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM runs WHERE id=$1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	return storage.DecodeRun(doc)
}

func (s *PGStore) ListRuns(ctx context.Context, limit int) ([]storage.RunSummary, error) {
	q := `SELECT id, scene, threshold, started_at, frames, snapped, gestures, cancelled, mismatches
		FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []storage.RunSummary
	for rows.Next() {
		var r storage.RunSummary
		if err := rows.Scan(&r.ID, &r.Scene, &r.Threshold, &r.StartedAt, &r.Frames, &r.Snapped, &r.Gestures, &r.Cancelled, &r.Mismatches); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = r.StartedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each one in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB, l *slog.Logger) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		sqlText := string(b)
		if strings.TrimSpace(sqlText) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, sqlText); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, ok := strings.Cut(base, "_")
	if !ok {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

var _ storage.RunStore = (*PGStore)(nil)
