/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout is the page document edited by gestures: an ordered list of
// rectangular elements plus undo/redo of committed geometry.
package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"pagesnap/internal/geom"
	"pagesnap/internal/undo"
)

var (
	ErrDuplicateID    = errors.New("duplicate element id")
	ErrUnknownElement = errors.New("unknown element")
)

type Element struct {
	ID     string      `json:"id"`
	Label  string      `json:"label,omitempty"`
	Bounds geom.Bounds `json:"bounds"`
}

// Snapshot is the serialisable state of a document.
type Snapshot struct {
	Page     string    `json:"page"`
	Width    float32   `json:"width"`
	Height   float32   `json:"height"`
	Elements []Element `json:"elements"`
}

// Document is safe for concurrent use.
type Document struct {
	mu     sync.RWMutex
	page   string
	width  float32
	height float32
	elems  []Element
	index  map[string]int
	hist   *undo.Manager
	now    func() time.Time
}

// New creates an empty page. hist may be nil, which disables undo.
func New(page string, width, height float32, hist *undo.Manager) *Document {
	return &Document{page: page, width: width, height: height, index: map[string]int{}, hist: hist, now: time.Now}
}

// SetClock replaces the time source used to stamp history entries.
func (d *Document) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

func (d *Document) Page() string { return d.page }

func (d *Document) Size() (w, h float32) { return d.width, d.height }

// Add appends an element; ids must be unique within the page.
func (d *Document) Add(e Element) error {
	if e.ID == "" {
		return errors.New("element id is empty")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.index[e.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	d.index[e.ID] = len(d.elems)
	d.elems = append(d.elems, e)
	return nil
}

// Elements returns a copy in insertion order.
func (d *Document) Elements() []Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Element(nil), d.elems...)
}

func (d *Document) ElementIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, len(d.elems))
	for i, e := range d.elems {
		ids[i] = e.ID
	}
	return ids
}

func (d *Document) ElementBounds(id string) (geom.Bounds, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[id]
	if !ok {
		return geom.Bounds{}, false
	}
	return d.elems[i].Bounds, true
}

// HitTest returns the topmost element containing the point.
func (d *Document) HitTest(x, y float32) (Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := len(d.elems) - 1; i >= 0; i-- {
		if d.elems[i].Bounds.Contains(x, y) {
			return d.elems[i], true
		}
	}
	return Element{}, false
}

// Apply commits new bounds for a set of elements as one undoable change.
func (d *Document) Apply(label string, bounds map[string]geom.Bounds) error {
	if len(bounds) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	before := make(map[string]geom.Bounds, len(bounds))
	for id := range bounds {
		i, ok := d.index[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownElement, id)
		}
		before[id] = d.elems[i].Bounds
	}
	if d.hist != nil {
		b, err := json.Marshal(before)
		if err != nil {
			return err
		}
		a, err := json.Marshal(bounds)
		if err != nil {
			return err
		}
		d.hist.Push(undo.Change{Page: d.page, Label: label, Before: b, After: a, TS: d.now()})
	}
	d.setLocked(bounds)
	return nil
}

// Undo reverts the newest change. It reports false when there was none.
func (d *Document) Undo() (bool, error) {
	if d.hist == nil {
		return false, nil
	}
	c, ok := d.hist.Undo(d.page)
	if !ok {
		return false, nil
	}
	return true, d.restore(c.Before)
}

// Redo re-applies the last undone change.
func (d *Document) Redo() (bool, error) {
	if d.hist == nil {
		return false, nil
	}
	c, ok := d.hist.Redo(d.page)
	if !ok {
		return false, nil
	}
	return true, d.restore(c.After)
}

func (d *Document) restore(blob []byte) error {
	var bs map[string]geom.Bounds
	if err := json.Unmarshal(blob, &bs); err != nil {
		return fmt.Errorf("decode history entry: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setLocked(bs)
	return nil
}

// setLocked ignores ids that were removed since the change was recorded.
func (d *Document) setLocked(bounds map[string]geom.Bounds) {
	for id, b := range bounds {
		if i, ok := d.index[id]; ok {
			d.elems[i].Bounds = b
		}
	}
}

// Snapshot captures the current state.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{Page: d.page, Width: d.width, Height: d.height, Elements: append([]Element(nil), d.elems...)}
}

// WriteJSON writes the snapshot as indented JSON.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d.Snapshot())
}
