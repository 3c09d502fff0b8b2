/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"slices"

	"pagesnap/internal/geom"
)

// TrackedElement is a snap target registered for the current gesture.
type TrackedElement struct {
	ID     string
	Bounds geom.Bounds
}

// registry is an insertion-ordered id -> bounds map. Re-registering an id keeps
// its original position so tie-breaking by registration order stays stable
// across re-measurements within a gesture.
type registry struct {
	entries []TrackedElement
	index   map[string]int
}

func newRegistry() registry {
	return registry{index: make(map[string]int)}
}

func (r *registry) upsert(id string, b geom.Bounds) {
	if i, ok := r.index[id]; ok {
		r.entries[i].Bounds = b
		return
	}
	r.index[id] = len(r.entries)
	r.entries = append(r.entries, TrackedElement{ID: id, Bounds: b})
}

func (r *registry) get(id string) (geom.Bounds, bool) {
	i, ok := r.index[id]
	if !ok {
		return geom.Bounds{}, false
	}
	return r.entries[i].Bounds, true
}

// snapshot returns all entries except movingID and the excluded ids, in
// registration order. The returned slice is owned by the caller.
func (r *registry) snapshot(movingID string, exclude []string) []TrackedElement {
	out := make([]TrackedElement, 0, len(r.entries))
	for _, te := range r.entries {
		if te.ID == movingID || slices.Contains(exclude, te.ID) {
			continue
		}
		out = append(out, te)
	}
	return out
}

func (r *registry) len() int { return len(r.entries) }

func (r *registry) clear() {
	r.entries = r.entries[:0]
	clear(r.index)
}
