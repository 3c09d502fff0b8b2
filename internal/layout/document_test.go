/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pagesnap/internal/geom"
	"pagesnap/internal/gesture"
	"pagesnap/internal/undo"
)

var _ gesture.Model = (*Document)(nil)

func newDoc(t *testing.T) *Document {
	t.Helper()
	d := New("p1", 800, 600, undo.NewManager(undo.Config{MaxPerPage: 50}))
	ts := time.Unix(0, 0)
	d.SetClock(func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	})
	for _, e := range []Element{
		{ID: "a", Label: "A", Bounds: geom.B(0, 0, 10, 10)},
		{ID: "b", Bounds: geom.B(20, 0, 10, 10)},
		{ID: "c", Bounds: geom.B(5, 5, 10, 10)},
	} {
		if err := d.Add(e); err != nil {
			t.Fatalf("Add(%s): %v", e.ID, err)
		}
	}
	return d
}

func TestAddRejectsDuplicates(t *testing.T) {
	d := newDoc(t)
	if err := d.Add(Element{ID: "a"}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate add: %v", err)
	}
	if err := d.Add(Element{}); err == nil {
		t.Fatalf("empty id accepted")
	}
	if got := d.ElementIDs(); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("ids = %v", got)
	}
}

func TestApplyUndoRedo(t *testing.T) {
	d := newDoc(t)
	if err := d.Apply("move", map[string]geom.Bounds{"a": geom.B(40, 40, 10, 10), "b": geom.B(60, 40, 10, 10)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := d.Apply("resize", map[string]geom.Bounds{"a": geom.B(40, 40, 30, 10)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if ok, err := d.Undo(); !ok || err != nil {
		t.Fatalf("Undo: %v %v", ok, err)
	}
	if b, _ := d.ElementBounds("a"); b != geom.B(40, 40, 10, 10) {
		t.Fatalf("after first undo a = %+v", b)
	}
	if ok, _ := d.Undo(); !ok {
		t.Fatalf("second undo failed")
	}
	if b, _ := d.ElementBounds("b"); b != geom.B(20, 0, 10, 10) {
		t.Fatalf("after second undo b = %+v", b)
	}
	if ok, _ := d.Undo(); ok {
		t.Fatalf("nothing left to undo")
	}
	if ok, _ := d.Redo(); !ok {
		t.Fatalf("redo failed")
	}
	if b, _ := d.ElementBounds("b"); b != geom.B(60, 40, 10, 10) {
		t.Fatalf("after redo b = %+v", b)
	}
}

func TestApplyUnknownElement(t *testing.T) {
	d := newDoc(t)
	err := d.Apply("move", map[string]geom.Bounds{"zz": geom.B(0, 0, 1, 1)})
	if !errors.Is(err, ErrUnknownElement) {
		t.Fatalf("err = %v", err)
	}
}

func TestHitTestPrefersTopmost(t *testing.T) {
	d := newDoc(t)
	e, ok := d.HitTest(7, 7)
	if !ok || e.ID != "c" {
		t.Fatalf("hit = %+v %v", e, ok)
	}
	if _, ok := d.HitTest(500, 500); ok {
		t.Fatalf("expected miss")
	}
}

func TestWriteJSON(t *testing.T) {
	d := newDoc(t)
	var buf bytes.Buffer
	if err := d.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	var s Snapshot
	if err := json.Unmarshal(buf.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Page != "p1" || s.Width != 800 || len(s.Elements) != 3 || s.Elements[0].Label != "A" {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestNoHistory(t *testing.T) {
	d := New("p", 10, 10, nil)
	_ = d.Add(Element{ID: "x", Bounds: geom.B(0, 0, 1, 1)})
	if err := d.Apply("move", map[string]geom.Bounds{"x": geom.B(2, 2, 1, 1)}); err != nil {
		t.Fatal(err)
	}
	if ok, err := d.Undo(); ok || err != nil {
		t.Fatalf("undo without history: %v %v", ok, err)
	}
}
