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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pagesnap/internal/replay"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// RunStore is implemented by the SQLite store here and the Postgres store in internal/backend.
type RunStore interface {
	SaveRun(ctx context.Context, run *replay.Run) error
	GetRun(ctx context.Context, id string) (*replay.Run, error)
	// ListRuns returns the newest runs first. limit <= 0 means no limit.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}

// RunSummary is one row of a run listing.
type RunSummary struct {
	ID         string    `json:"id"`
	Scene      string    `json:"scene"`
	Threshold  float32   `json:"threshold"`
	StartedAt  time.Time `json:"started_at"`
	Frames     int       `json:"frames"`
	Snapped    int       `json:"snapped"`
	Gestures   int       `json:"gestures"`
	Cancelled  int       `json:"cancelled"`
	Mismatches int       `json:"mismatches"`
}

// Passed reports whether every gesture met its expectation.
func (s RunSummary) Passed() bool { return s.Mismatches == 0 }

// Summarize derives the listing row for run.
func Summarize(run *replay.Run) RunSummary {
	st := run.Stats()
	return RunSummary{
		ID:         run.ID,
		Scene:      run.Scene,
		Threshold:  run.Threshold,
		StartedAt:  run.StartedAt.UTC(),
		Frames:     st.Frames,
		Snapped:    st.Snapped,
		Gestures:   st.Gestures,
		Cancelled:  st.Cancelled,
		Mismatches: st.Mismatches,
	}
}

// EncodeRun and DecodeRun define the document format shared by both stores.
func EncodeRun(run *replay.Run) ([]byte, error) {
	if run == nil || run.ID == "" {
		return nil, errors.New("run id is required")
	}
	b, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	return b, nil
}

func DecodeRun(b []byte) (*replay.Run, error) {
	var run replay.Run
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}
