/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pagesnap/internal/config"
	"pagesnap/internal/geom"
	"pagesnap/internal/gesture"
	"pagesnap/internal/layout"
	"pagesnap/internal/snap"
)

func newTestPlayground(t *testing.T) (*Playground, *gesture.ManualScheduler) {
	t.Helper()
	doc, _, err := OpenDocument("", newHistory())
	if err != nil {
		t.Fatalf("demo document: %v", err)
	}
	sched := gesture.NewManualScheduler(time.Unix(0, 0))
	return NewPlayground(doc, PlaygroundConfig{Threshold: 8, Scheduler: sched}), sched
}

func TestPlaygroundMoveSnapsAndCommits(t *testing.T) {
	p, sched := newTestPlayground(t)

	p.Press(100, 200, false)
	if sel := p.Selection(); len(sel) != 1 || sel[0] != "photo" {
		t.Fatalf("selection = %v", sel)
	}
	// photo's right edge lands 3px short of caption's left edge
	u, err := p.Drag(137, 200)
	if err != nil {
		t.Fatalf("drag: %v", err)
	}
	if u.Bounds.X != 80 || !u.SnappedX {
		t.Fatalf("expected snap to x=80, got %+v", u)
	}
	if len(p.Guides()) == 0 {
		t.Fatalf("expected guides while dragging")
	}
	if b, _ := p.Bounds("photo"); b.X != 80 {
		t.Fatalf("live bounds not previewed: %+v", b)
	}
	if b, _ := p.Document().ElementBounds("photo"); b.X != 40 {
		t.Fatalf("document changed before release: %+v", b)
	}
	if !strings.Contains(p.Status(), "snapped x") {
		t.Fatalf("status = %q", p.Status())
	}

	if _, ok, err := p.Release(); !ok || err != nil {
		t.Fatalf("release: ok=%v err=%v", ok, err)
	}
	if b, _ := p.Document().ElementBounds("photo"); b.X != 80 {
		t.Fatalf("release did not commit: %+v", b)
	}
	if p.Guides() != nil {
		t.Fatalf("guides left after release")
	}
	sched.Advance(time.Second)
	if n := p.Engine().TrackedCount(); n != 0 {
		t.Fatalf("registry not cleaned: %d", n)
	}

	if ok, err := p.Undo(); !ok || err != nil {
		t.Fatalf("undo: ok=%v err=%v", ok, err)
	}
	if b, _ := p.Document().ElementBounds("photo"); b.X != 40 {
		t.Fatalf("undo did not restore: %+v", b)
	}
	if ok, err := p.Redo(); !ok || err != nil {
		t.Fatalf("redo: ok=%v err=%v", ok, err)
	}
	if b, _ := p.Document().ElementBounds("photo"); b.X != 80 {
		t.Fatalf("redo did not reapply: %+v", b)
	}
}

func TestPlaygroundSnapToggleAndModifier(t *testing.T) {
	p, _ := newTestPlayground(t)

	p.SetSnapEnabled(false)
	p.Press(100, 200, false)
	u, err := p.Drag(137, 200)
	if err != nil {
		t.Fatalf("drag: %v", err)
	}
	if u.Bounds.X != 77 || u.SnappedX || len(u.Guides) != 0 {
		t.Fatalf("snap toggle ignored: %+v", u)
	}
	p.Escape()

	p.SetSnapEnabled(true)
	p.SetModifier(true)
	p.Press(100, 200, false)
	if u, _ = p.Drag(137, 200); u.SnappedX {
		t.Fatalf("modifier ignored: %+v", u)
	}
	p.Escape()

	p.SetModifier(false)
	p.Press(100, 200, false)
	if u, _ = p.Drag(137, 200); !u.SnappedX {
		t.Fatalf("snapping not restored: %+v", u)
	}
}

func TestPlaygroundShiftSelectMovesGroup(t *testing.T) {
	p, _ := newTestPlayground(t)

	p.Press(100, 200, false)
	if _, ok, _ := p.Release(); ok {
		t.Fatalf("release without drag should not commit")
	}
	p.Press(400, 180, true)
	if sel := p.Selection(); len(sel) != 2 || sel[0] != "caption" || sel[1] != "photo" {
		t.Fatalf("selection = %v", sel)
	}
	if h := p.Handles(); h != nil {
		t.Fatalf("groups have no resize handles, got %d", len(h))
	}
	u, err := p.Drag(410, 180)
	if err != nil {
		t.Fatalf("drag: %v", err)
	}
	if u.ID != snap.GroupID {
		t.Fatalf("moving id = %q", u.ID)
	}
	if u.Members["photo"].X != 50 || u.Members["caption"].X != 330 {
		t.Fatalf("members = %+v", u.Members)
	}
	if _, _, err := p.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if b, _ := p.Document().ElementBounds("caption"); b.X != 330 {
		t.Fatalf("caption not committed: %+v", b)
	}

	// shift on a selected element drops it again
	p.Press(400, 180, true)
	if sel := p.Selection(); len(sel) != 1 || sel[0] != "photo" {
		t.Fatalf("selection after toggle = %v", sel)
	}
}

func TestPlaygroundResizeFromHandle(t *testing.T) {
	p, _ := newTestPlayground(t)

	p.Press(500, 380, false)
	p.Release()
	hs := p.Handles()
	if len(hs) != 8 {
		t.Fatalf("expected 8 handles, got %d", len(hs))
	}
	// west grip of card sits on its left edge at x=420
	p.Press(420, 380, false)
	u, err := p.Drag(365, 380)
	if err != nil {
		t.Fatalf("drag: %v", err)
	}
	if u.Bounds.X != 360 || u.Bounds.Width != 220 || !u.SnappedX {
		t.Fatalf("expected left edge snapped to title's right edge, got %+v", u)
	}
	if u.Bounds.Y != 300 || u.Bounds.Height != 160 {
		t.Fatalf("fixed axis changed: %+v", u.Bounds)
	}
	if _, _, err := p.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if b, _ := p.Document().ElementBounds("card"); b.Width != 220 {
		t.Fatalf("resize not committed: %+v", b)
	}
}

func TestPlaygroundEscapeLeavesDocument(t *testing.T) {
	p, _ := newTestPlayground(t)

	p.Press(100, 200, false)
	if _, err := p.Drag(137, 230); err != nil {
		t.Fatalf("drag: %v", err)
	}
	p.Escape()
	if p.Controller().Active() != "" {
		t.Fatalf("gesture still active")
	}
	if b, _ := p.Document().ElementBounds("photo"); b.X != 40 || b.Y != 140 {
		t.Fatalf("escape changed the document: %+v", b)
	}
	if !p.Controller().Summary().Cancelled {
		t.Fatalf("summary should be marked cancelled")
	}
	if ok, _ := p.Undo(); ok {
		t.Fatalf("nothing should be undoable")
	}
}

func TestPlaygroundEmptyPressClearsSelection(t *testing.T) {
	p, _ := newTestPlayground(t)

	p.Press(100, 200, false)
	p.Press(10, 10, false)
	if len(p.Selection()) != 0 {
		t.Fatalf("selection = %v", p.Selection())
	}
	if _, err := p.Drag(20, 20); !errors.Is(err, gesture.ErrNoGesture) {
		t.Fatalf("expected ErrNoGesture, got %v", err)
	}
	if p.Status() != "Ready" {
		t.Fatalf("status = %q", p.Status())
	}
}

func TestPlaygroundNudge(t *testing.T) {
	p, _ := newTestPlayground(t)

	if _, err := p.Nudge(1, 0); !errors.Is(err, gesture.ErrNoGesture) {
		t.Fatalf("nudge without selection: %v", err)
	}
	p.Press(500, 380, false)
	p.Release()
	u, err := p.Nudge(0, -1)
	if err != nil {
		t.Fatalf("nudge: %v", err)
	}
	if b, _ := p.Document().ElementBounds("card"); b != u.Bounds || b.Y != 299 {
		t.Fatalf("nudge committed %+v, doc has %+v", u.Bounds, b)
	}
}

func TestPlaygroundAutosave(t *testing.T) {
	p, _ := newTestPlayground(t)

	path, err := p.Autosave(t.TempDir())
	if err != nil {
		t.Fatalf("autosave: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read autosave: %v", err)
	}
	if !strings.Contains(string(b), `"caption"`) {
		t.Fatalf("autosave misses elements: %s", b)
	}
}

func TestPlaygroundAutosaveSanitizesPageName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Landing page / v2", "../escaped"} {
		doc := layout.New(name, 800, 600, newHistory())
		if err := doc.Add(layout.Element{ID: "box", Bounds: geom.B(10, 10, 50, 50)}); err != nil {
			t.Fatalf("add: %v", err)
		}
		p := NewPlayground(doc, PlaygroundConfig{Threshold: 8, Scheduler: gesture.NewManualScheduler(time.Unix(0, 0))})

		path, err := p.Autosave(dir)
		if err != nil {
			t.Fatalf("autosave %q: %v", name, err)
		}
		if filepath.Dir(path) != dir {
			t.Fatalf("autosave %q wrote outside %s: %s", name, dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("autosave %q: %v", name, err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 autosave files, got %d", len(entries))
	}
}

func TestOptionsPlayground(t *testing.T) {
	cfg := config.Defaults()
	cfg.Snap.Threshold = 12

	p, err := Options{Config: cfg}.Playground()
	if err != nil {
		t.Fatalf("demo playground: %v", err)
	}
	if got := p.Engine().Threshold(); got != 12 {
		t.Fatalf("threshold = %v, want configured 12", got)
	}

	p, err = Options{ScenePath: "../scene/testdata/align.yaml", Config: cfg}.Playground()
	if err != nil {
		t.Fatalf("scene playground: %v", err)
	}
	if p.Document().Page() != "align" || len(p.Document().ElementIDs()) != 4 {
		t.Fatalf("unexpected document %q with %v", p.Document().Page(), p.Document().ElementIDs())
	}
	if got := p.Engine().Threshold(); got != 8 {
		t.Fatalf("scene threshold should win, got %v", got)
	}

	if _, err := (Options{ScenePath: "../scene/testdata/invalid.yaml"}).Playground(); err == nil {
		t.Fatalf("expected error for invalid scene")
	}
}
