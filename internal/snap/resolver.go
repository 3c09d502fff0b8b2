/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import "pagesnap/internal/geom"

// MoveResult is the outcome of a move query.
type MoveResult struct {
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
	SnappedX bool    `json:"snapped_x"`
	SnappedY bool    `json:"snapped_y"`
	Guides   []Guide `json:"guides"`
}

// refLine is one reference line of a rectangle on a single axis.
type refLine struct {
	pos    float32
	center bool
}

func xLines(b geom.Bounds) [3]refLine {
	return [3]refLine{{pos: b.Left()}, {pos: b.Right()}, {pos: b.CenterX(), center: true}}
}

func yLines(b geom.Bounds) [3]refLine {
	return [3]refLine{{pos: b.Top()}, {pos: b.Bottom()}, {pos: b.CenterY(), center: true}}
}

// candidate tracks the best alignment seen so far on one axis.
// Targets are visited in registration order and pairs in a fixed order, so a
// strict comparison keeps the earliest candidate on a full tie.
type candidate struct {
	found  bool
	delta  float32
	dist   float32
	edge   bool
	pos    float32
	target TrackedElement
}

func (c *candidate) consider(moving, target refLine, te TrackedElement, threshold float32) {
	delta := target.pos - moving.pos
	dist := geom.Abs(delta)
	if !(dist <= threshold) {
		return
	}
	edge := !moving.center && !target.center
	switch {
	case !c.found, dist < c.dist:
	case dist == c.dist && edge && !c.edge:
	default:
		return
	}
	*c = candidate{found: true, delta: delta, dist: dist, edge: edge, pos: target.pos, target: te}
}

func (c candidate) kind() Kind {
	if c.edge {
		return KindEdge
	}
	return KindCenter
}

// GetSnapPosition decides whether a proposed top-left position should be pulled
// into alignment with a registered element. X and Y are resolved independently.
// It never fails: without a candidate the input position comes back unsnapped.
func (e *Engine) GetSnapPosition(movingID string, x, y, width, height float32, opts Options) MoveResult {
	res := MoveResult{X: x, Y: y}
	moving := geom.B(x, y, width, height)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !moving.Finite() {
		res.Guides = e.setGuidesLocked(nil)
		return res
	}

	var bestX, bestY candidate
	mx, my := xLines(moving), yLines(moving)
	for _, te := range e.targetsLocked(movingID, opts.ExcludeIDs) {
		tx, ty := xLines(te.Bounds), yLines(te.Bounds)
		for _, m := range mx {
			for _, t := range tx {
				bestX.consider(m, t, te, e.threshold)
			}
		}
		for _, m := range my {
			for _, t := range ty {
				bestY.consider(m, t, te, e.threshold)
			}
		}
	}

	if bestX.found {
		res.X = x + bestX.delta
		res.SnappedX = true
	}
	if bestY.found {
		res.Y = y + bestY.delta
		res.SnappedY = true
	}

	// Guide extents use the corrected rectangle.
	final := geom.B(res.X, res.Y, width, height)
	var gs []Guide
	if bestX.found {
		gs = append(gs, guideFor(AxisX, bestX.pos, bestX.kind(), final, bestX.target))
	}
	if bestY.found {
		gs = append(gs, guideFor(AxisY, bestY.pos, bestY.kind(), final, bestY.target))
	}
	res.Guides = e.setGuidesLocked(gs)
	return res
}
