/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the axis-aligned rectangle type shared by the snap engine
// and its hosts. All values are canvas-relative pixels in one coordinate frame.
// Float values use float32 to line up with the UI toolkit.
package geom

import "math"

// Bounds is an axis-aligned rectangle defined by its top-left corner and size.
type Bounds struct {
	X      float32 `json:"x" yaml:"x" toml:"x"`
	Y      float32 `json:"y" yaml:"y" toml:"y"`
	Width  float32 `json:"width" yaml:"width" toml:"width"`
	Height float32 `json:"height" yaml:"height" toml:"height"`
}

func B(x, y, w, h float32) Bounds { return Bounds{X: x, Y: y, Width: w, Height: h} }

func (b Bounds) Left() float32    { return b.X }
func (b Bounds) Right() float32   { return b.X + b.Width }
func (b Bounds) Top() float32     { return b.Y }
func (b Bounds) Bottom() float32  { return b.Y + b.Height }
func (b Bounds) CenterX() float32 { return b.X + b.Width/2 }
func (b Bounds) CenterY() float32 { return b.Y + b.Height/2 }

// IsDegenerate reports whether the rectangle has no measurable area.
func (b Bounds) IsDegenerate() bool { return b.Width <= 0 || b.Height <= 0 }

// Finite reports whether every field is a real number (no NaN/Inf).
func (b Bounds) Finite() bool {
	return finite(b.X) && finite(b.Y) && finite(b.Width) && finite(b.Height)
}

// Union returns the minimal bounds containing both.
func (b Bounds) Union(o Bounds) Bounds {
	minX := min(b.X, o.X)
	minY := min(b.Y, o.Y)
	maxX := max(b.Right(), o.Right())
	maxY := max(b.Bottom(), o.Bottom())
	return Bounds{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// UnionAll returns the bounding box of all rectangles; ok is false for an empty input.
func UnionAll(bs []Bounds) (Bounds, bool) {
	if len(bs) == 0 {
		return Bounds{}, false
	}
	u := bs[0]
	for _, b := range bs[1:] {
		u = u.Union(b)
	}
	return u, true
}

// Contains reports whether the point lies inside or on the edge of b.
func (b Bounds) Contains(x, y float32) bool {
	return x >= b.X && y >= b.Y && x <= b.Right() && y <= b.Bottom()
}

// Translate returns b moved by dx,dy.
func (b Bounds) Translate(dx, dy float32) Bounds {
	return Bounds{X: b.X + dx, Y: b.Y + dy, Width: b.Width, Height: b.Height}
}

// Abs returns |v|.
func Abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float32, places int) float32 {
	if places < 0 {
		return v
	}
	pow := float32(math.Pow(10, float64(places)))
	return float32(math.Round(float64(v*pow))) / pow
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
