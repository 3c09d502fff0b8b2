/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"fmt"
	"strings"
)

// Direction names the resize handle being dragged, i.e. which edges are free.
type Direction string

const (
	N  Direction = "n"
	S  Direction = "s"
	E  Direction = "e"
	W  Direction = "w"
	NE Direction = "ne"
	NW Direction = "nw"
	SE Direction = "se"
	SW Direction = "sw"
)

// Directions lists all handles in a stable order (clockwise from north).
var Directions = []Direction{N, NE, E, SE, S, SW, W, NW}

// Edge identifies one side of a rectangle.
type Edge int

const (
	EdgeLeft Edge = iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

func (e Edge) String() string {
	switch e {
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	default:
		return fmt.Sprintf("edge(%d)", int(e))
	}
}

// Horizontal reports whether the edge moves along the X axis (left/right).
func (e Edge) Horizontal() bool { return e == EdgeLeft || e == EdgeRight }

// ParseDirection converts untrusted input (scene files, CLI flags) into a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("invalid resize direction %q", s)
	}
	return d, nil
}

// Valid reports whether d is one of the eight handles.
func (d Direction) Valid() bool {
	switch d {
	case N, S, E, W, NE, NW, SE, SW:
		return true
	}
	return false
}

// FreeEdges returns the edges a handle may move; horizontal edge first.
// It returns nil for an invalid direction.
func (d Direction) FreeEdges() []Edge {
	switch d {
	case E:
		return []Edge{EdgeRight}
	case W:
		return []Edge{EdgeLeft}
	case S:
		return []Edge{EdgeBottom}
	case N:
		return []Edge{EdgeTop}
	case SE:
		return []Edge{EdgeRight, EdgeBottom}
	case SW:
		return []Edge{EdgeLeft, EdgeBottom}
	case NE:
		return []Edge{EdgeRight, EdgeTop}
	case NW:
		return []Edge{EdgeLeft, EdgeTop}
	}
	return nil
}

// Apply resizes b by dragging this handle by dx,dy. The opposite edges stay put.
// Hosts use it to turn pointer deltas into intended bounds before snapping.
func (d Direction) Apply(b Bounds, dx, dy float32) Bounds {
	out := b
	for _, e := range d.FreeEdges() {
		switch e {
		case EdgeRight:
			out.Width = b.Width + dx
		case EdgeLeft:
			out.X = b.X + dx
			out.Width = b.Width - dx
		case EdgeBottom:
			out.Height = b.Height + dy
		case EdgeTop:
			out.Y = b.Y + dy
			out.Height = b.Height - dy
		}
	}
	return out
}
