/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import "pagesnap/internal/geom"

// Axis is the axis a guide constrains. An x guide is a vertical line at X=Position.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Kind tells renderers which features aligned.
type Kind string

const (
	KindEdge   Kind = "edge"
	KindCenter Kind = "center"
)

// Guide describes one active alignment line.
// Start and End give the extent along the other axis, covering both the moving
// rectangle and the target, so renderers can draw the line without a lookup.
type Guide struct {
	Axis     Axis    `json:"axis"`
	Position float32 `json:"position"`
	SourceID string  `json:"source_id"`
	Kind     Kind    `json:"kind"`
	Start    float32 `json:"start"`
	End      float32 `json:"end"`
}

func guideFor(axis Axis, pos float32, kind Kind, moving geom.Bounds, target TrackedElement) Guide {
	g := Guide{Axis: axis, Position: pos, SourceID: target.ID, Kind: kind}
	if axis == AxisX {
		g.Start = min(moving.Top(), target.Bounds.Top())
		g.End = max(moving.Bottom(), target.Bounds.Bottom())
	} else {
		g.Start = min(moving.Left(), target.Bounds.Left())
		g.End = max(moving.Right(), target.Bounds.Right())
	}
	return g
}

// Guides returns a copy of the guides produced by the most recent query.
func (e *Engine) Guides() []Guide {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Guide(nil), e.guides...)
}

// ClearSnapIndicators drops the active guides. Safe on a nil engine and when
// no gesture is active.
func (e *Engine) ClearSnapIndicators() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.guides = nil
	e.mu.Unlock()
}

// setGuidesLocked replaces the tracked set and returns a caller-owned copy. Callers hold mu.
func (e *Engine) setGuidesLocked(gs []Guide) []Guide {
	if len(gs) == 0 {
		e.guides = nil
		return []Guide{}
	}
	e.guides = gs
	return append([]Guide(nil), gs...)
}
