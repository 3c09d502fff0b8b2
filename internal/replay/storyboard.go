/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package replay

import (
	"fmt"

	"pagesnap/internal/layout"
)

// Panel is the full page state at one frame, ready to draw.
type Panel struct {
	Title    string
	Frame    Frame
	Elements []layout.Element
	// Moving marks the ids whose bounds come from the gesture in flight.
	Moving map[string]bool
}

// LayoutAt rebuilds the page as it looked at frame i: the initial layout,
// every earlier committed gesture, and the in-flight geometry of frame i.
func (r *Run) LayoutAt(i int) ([]layout.Element, error) {
	if i < 0 || i >= len(r.Frames) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", i, len(r.Frames))
	}
	f := r.Frames[i]
	elems := append([]layout.Element(nil), r.Initial...)
	pos := make(map[string]int, len(elems))
	for k, e := range elems {
		pos[e.ID] = k
	}
	for _, o := range r.Outcomes {
		if o.Gesture >= f.Gesture {
			break
		}
		if o.Cancelled {
			continue
		}
		frames := r.FramesOf(o.Gesture)
		if len(frames) == 0 {
			continue
		}
		for id, b := range frames[len(frames)-1].Members {
			if k, ok := pos[id]; ok {
				elems[k].Bounds = b
			}
		}
	}
	for id, b := range f.Members {
		if k, ok := pos[id]; ok {
			elems[k].Bounds = b
		}
	}
	return elems, nil
}

// Storyboard returns one panel per frame, or only the listed frames.
func (r *Run) Storyboard(frames ...int) ([]Panel, error) {
	if len(frames) == 0 {
		frames = make([]int, len(r.Frames))
		for i := range frames {
			frames[i] = i
		}
	}
	panels := make([]Panel, 0, len(frames))
	for _, i := range frames {
		elems, err := r.LayoutAt(i)
		if err != nil {
			return nil, err
		}
		f := r.Frames[i]
		moving := make(map[string]bool, len(f.Members))
		for id := range f.Members {
			moving[id] = true
		}
		panels = append(panels, Panel{
			Title:    fmt.Sprintf("%s: gesture %d step %d (%s %s)", r.Scene, f.Gesture+1, f.Step+1, f.Kind, f.MovingID),
			Frame:    f,
			Elements: elems,
			Moving:   moving,
		})
	}
	return panels, nil
}
