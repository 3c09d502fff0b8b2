/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package snap implements the snap and alignment engine used during move and
// resize gestures. It is UI-agnostic and deterministic: hosts register the
// bounds of sibling elements, query on every pointer move, and apply the
// returned geometry to their own model.
//
// One Engine belongs to one editor session. There is no package-level state.
package snap

import (
	"log/slog"
	"sync"

	"pagesnap/internal/geom"
	applog "pagesnap/internal/log"
)

// GroupID is the conventional id for a multi-selection's bounding box.
// The engine does not treat it specially.
const GroupID = "GROUP"

// DefaultThreshold is the snap distance in pixels when Config leaves it unset.
const DefaultThreshold float32 = 8

// Config is fixed at construction; the threshold is per engine, not per query.
type Config struct {
	Threshold float32
	Logger    *slog.Logger
}

// Options narrows the targets of one move query.
type Options struct {
	// ExcludeIDs never act as snap targets, e.g. the members of a moving group.
	ExcludeIDs []string
}

// Engine holds the element registry and the guides of the latest query.
// Queries are synchronous and cheap; the mutex only serialises them against
// hosts that run cleanup from a timer goroutine.
type Engine struct {
	mu        sync.Mutex
	threshold float32
	log       *slog.Logger
	reg       registry
	guides    []Guide
}

// New creates an engine. A non-positive threshold falls back to DefaultThreshold.
func New(cfg Config) *Engine {
	if !(cfg.Threshold > 0) {
		cfg.Threshold = DefaultThreshold
	}
	l := cfg.Logger
	if l == nil {
		l = applog.WithComponent("snap")
	}
	return &Engine{threshold: cfg.Threshold, log: l, reg: newRegistry()}
}

// Threshold returns the configured snap distance.
func (e *Engine) Threshold() float32 { return e.threshold }

// RegisterElement upserts the bounds for id. Elements without a measurable area
// (or with non-finite values) are ignored: they are not mounted yet and must
// not attract other elements.
func (e *Engine) RegisterElement(id string, b geom.Bounds) {
	if b.IsDegenerate() || !b.Finite() {
		e.log.Debug("register ignored", slog.String("id", id), slog.Any("bounds", b))
		return
	}
	e.mu.Lock()
	e.reg.upsert(id, b)
	e.mu.Unlock()
}

// CleanupTrackedElements empties the registry. Safe on a nil or empty engine.
func (e *Engine) CleanupTrackedElements() {
	if e == nil {
		return
	}
	e.mu.Lock()
	n := e.reg.len()
	e.reg.clear()
	e.mu.Unlock()
	if n > 0 {
		e.log.Debug("tracked elements cleaned up", slog.Int("count", n))
	}
}

// TrackedCount returns the number of registered elements.
func (e *Engine) TrackedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.len()
}

// Tracked returns the registered bounds for id.
func (e *Engine) Tracked(id string) (geom.Bounds, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.get(id)
}

// targetsLocked returns the snap candidates for a query. Callers hold mu.
func (e *Engine) targetsLocked(movingID string, exclude []string) []TrackedElement {
	return e.reg.snapshot(movingID, exclude)
}
