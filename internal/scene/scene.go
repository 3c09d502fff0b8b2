/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene reads scripted editing sessions: a canvas, its elements and
// a list of move/resize gestures to replay against the snap engine.
package scene

import (
	"fmt"
	"slices"

	"pagesnap/internal/geom"
	"pagesnap/internal/layout"
	"pagesnap/internal/undo"
)

type Canvas struct {
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

type Element struct {
	ID     string      `json:"id"`
	Label  string      `json:"label,omitempty"`
	Bounds geom.Bounds `json:"bounds"`
}

// Step is one pointer move, relative to where the gesture started.
type Step struct {
	DX     float32 `json:"dx"`
	DY     float32 `json:"dy"`
	NoSnap bool    `json:"no_snap,omitempty"`
}

// Expect is checked against the last update of a gesture.
type Expect struct {
	Bounds   *geom.Bounds `json:"bounds,omitempty"`
	SnappedX *bool        `json:"snapped_x,omitempty"`
	SnappedY *bool        `json:"snapped_y,omitempty"`
}

type Gesture struct {
	Kind      string         `json:"kind"`
	Target    string         `json:"target"`
	Members   []string       `json:"members,omitempty"`
	Direction geom.Direction `json:"direction,omitempty"`
	Steps     []Step         `json:"steps"`
	Cancel    bool           `json:"cancel,omitempty"`
	Expect    *Expect        `json:"expect,omitempty"`
}

type Scene struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Threshold   float32   `json:"threshold,omitempty"`
	Canvas      Canvas    `json:"canvas"`
	Elements    []Element `json:"elements"`
	Gestures    []Gesture `json:"gestures,omitempty"`
}

// check reports the semantic problems a schema cannot express.
func (s *Scene) check() []string {
	var issues []string
	seen := map[string]bool{}
	for _, e := range s.Elements {
		if seen[e.ID] {
			issues = append(issues, fmt.Sprintf("duplicate element id %q", e.ID))
		}
		seen[e.ID] = true
		if !e.Bounds.Finite() {
			issues = append(issues, fmt.Sprintf("element %q has non-finite bounds", e.ID))
		}
	}
	for i, g := range s.Gestures {
		where := fmt.Sprintf("gesture %d (%s %s)", i+1, g.Kind, g.Target)
		if !seen[g.Target] {
			issues = append(issues, fmt.Sprintf("%s: unknown target", where))
		}
		for _, m := range g.Members {
			if !seen[m] {
				issues = append(issues, fmt.Sprintf("%s: unknown member %q", where, m))
			}
		}
		switch g.Kind {
		case "resize":
			if !g.Direction.Valid() {
				issues = append(issues, fmt.Sprintf("%s: resize needs a direction", where))
			}
			if len(g.Members) > 0 {
				issues = append(issues, fmt.Sprintf("%s: resize does not take members", where))
			}
		case "move":
			if g.Direction != "" {
				issues = append(issues, fmt.Sprintf("%s: move does not take a direction", where))
			}
			if slices.Contains(g.Members, g.Target) {
				issues = append(issues, fmt.Sprintf("%s: target listed as its own member", where))
			}
		}
	}
	return issues
}

// Document builds the editable page for this scene. hist may be nil.
func (s *Scene) Document(hist *undo.Manager) (*layout.Document, error) {
	d := layout.New(s.Name, s.Canvas.Width, s.Canvas.Height, hist)
	for _, e := range s.Elements {
		if err := d.Add(layout.Element{ID: e.ID, Label: e.Label, Bounds: e.Bounds}); err != nil {
			return nil, err
		}
	}
	return d, nil
}
