/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"fmt"

	"pagesnap/internal/geom"
)

// ResizeResult is the outcome of a resize query.
type ResizeResult struct {
	Bounds  geom.Bounds `json:"bounds"`
	Snapped bool        `json:"snapped"`
	Guides  []Guide     `json:"guides"`
}

// GetResizeSnapPosition snaps only the edges the handle dir may move. Edges on
// an axis without a free edge are copied from intended; a free axis starts
// from newWidth/newHeight. Targets offer their parallel edges only, never
// centers. A snap that would leave a non-positive size is dropped for that edge.
//
// An invalid dir is a programmer error and panics.
func (e *Engine) GetResizeSnapPosition(movingID string, dir geom.Direction, intended geom.Bounds, newWidth, newHeight float32) ResizeResult {
	edges := dir.FreeEdges()
	if edges == nil {
		panic(fmt.Sprintf("snap: invalid resize direction %q", dir))
	}

	out := intended
	for _, ed := range edges {
		if ed.Horizontal() {
			out.Width = newWidth
		} else {
			out.Height = newHeight
		}
	}
	right := intended.X + newWidth
	bottom := intended.Y + newHeight

	e.mu.Lock()
	defer e.mu.Unlock()
	res := ResizeResult{Bounds: out}
	if !intended.Finite() || !out.Finite() {
		res.Guides = e.setGuidesLocked(nil)
		return res
	}

	targets := e.targetsLocked(movingID, nil)
	type snappedEdge struct {
		edge geom.Edge
		c    candidate
	}
	var hits []snappedEdge
	for _, ed := range edges {
		var line float32
		switch ed {
		case geom.EdgeLeft:
			line = intended.X
		case geom.EdgeRight:
			line = right
		case geom.EdgeTop:
			line = intended.Y
		case geom.EdgeBottom:
			line = bottom
		}
		c := e.bestEdge(line, ed.Horizontal(), targets)
		if !c.found {
			continue
		}
		switch ed {
		case geom.EdgeLeft:
			if right-c.pos <= 0 {
				continue
			}
			out.X = c.pos
			out.Width = right - c.pos
		case geom.EdgeRight:
			if c.pos-out.X <= 0 {
				continue
			}
			out.Width = c.pos - out.X
		case geom.EdgeTop:
			if bottom-c.pos <= 0 {
				continue
			}
			out.Y = c.pos
			out.Height = bottom - c.pos
		case geom.EdgeBottom:
			if c.pos-out.Y <= 0 {
				continue
			}
			out.Height = c.pos - out.Y
		}
		hits = append(hits, snappedEdge{edge: ed, c: c})
	}

	var gs []Guide
	for _, h := range hits {
		axis := AxisY
		if h.edge.Horizontal() {
			axis = AxisX
		}
		gs = append(gs, guideFor(axis, h.c.pos, KindEdge, out, h.c.target))
	}
	res.Bounds = out
	res.Snapped = len(hits) > 0
	res.Guides = e.setGuidesLocked(gs)
	return res
}

// bestEdge finds the nearest parallel target edge for a single moving line.
func (e *Engine) bestEdge(line float32, horizontal bool, targets []TrackedElement) candidate {
	var best candidate
	m := refLine{pos: line}
	for _, te := range targets {
		var a, b float32
		if horizontal {
			a, b = te.Bounds.Left(), te.Bounds.Right()
		} else {
			a, b = te.Bounds.Top(), te.Bounds.Bottom()
		}
		best.consider(m, refLine{pos: a}, te, e.threshold)
		best.consider(m, refLine{pos: b}, te, e.threshold)
	}
	return best
}
