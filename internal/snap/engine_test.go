/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"pagesnap/internal/geom"
)

func newTestEngine(threshold float32) *Engine {
	return New(Config{Threshold: threshold, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func TestEmptyRegistryReturnsInputUnchanged(t *testing.T) {
	e := newTestEngine(8)
	res := e.GetSnapPosition("M", 13, 27, 40, 20, Options{})
	if res.X != 13 || res.Y != 27 || res.SnappedX || res.SnappedY {
		t.Fatalf("expected unchanged unsnapped result, got %+v", res)
	}
	if res.Guides == nil || len(res.Guides) != 0 {
		t.Fatalf("expected empty non-nil guides, got %#v", res.Guides)
	}
}

func TestNarrowMovingElementSnapsLeftEdges(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("E1", geom.B(100, 100, 50, 50))

	// Narrow element: only the left edges are within reach (delta 6).
	res := e.GetSnapPosition("M", 106, 250, 10, 20, Options{})
	if !res.SnappedX || res.X != 100 {
		t.Fatalf("expected x snapped to 100, got %+v", res)
	}
	if res.SnappedY || res.Y != 250 {
		t.Fatalf("expected y unsnapped at 250, got %+v", res)
	}
	if len(res.Guides) != 1 || res.Guides[0].Axis != AxisX || res.Guides[0].Position != 100 || res.Guides[0].SourceID != "E1" || res.Guides[0].Kind != KindEdge {
		t.Fatalf("unexpected guides: %+v", res.Guides)
	}
}

// Same target and drop point as the narrow case; the 40x20 element lands at 105.
func TestWideMovingElementSnapsCentersBeforeLeftEdges(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("E1", geom.B(100, 100, 50, 50))

	// With width 40 the left (6), right (4) and center (1) lines are all in
	// reach; the nearest pair wins even though it is center-to-center.
	res := e.GetSnapPosition("M", 106, 250, 40, 20, Options{})
	if !res.SnappedX || res.X != 105 {
		t.Fatalf("expected x snapped to 105 via centers, got %+v", res)
	}
	if res.SnappedY {
		t.Fatalf("expected no y snap, got %+v", res)
	}
	if res.Guides[0].Kind != KindCenter || res.Guides[0].Position != 125 {
		t.Fatalf("expected center guide at 125, got %+v", res.Guides[0])
	}
}

func TestEdgeBeatsCenterOnTie(t *testing.T) {
	e := newTestEngine(8)
	// C is registered first and offers a center-center match at distance 3.
	e.RegisterElement("C", geom.B(100, 0, 40, 50))
	// E offers an edge-edge match at distance 3 (moving right 127 -> 130).
	e.RegisterElement("E", geom.B(130, 0, 50, 50))

	res := e.GetSnapPosition("M", 107, 500, 20, 10, Options{})
	if !res.SnappedX || res.X != 110 {
		t.Fatalf("expected x=110 from edge match, got %+v", res)
	}
	if len(res.Guides) != 1 || res.Guides[0].SourceID != "E" || res.Guides[0].Kind != KindEdge {
		t.Fatalf("expected edge guide from E, got %+v", res.Guides)
	}
}

func TestTieBreaksByRegistrationOrder(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("A", geom.B(0, 0, 50, 50))
	e.RegisterElement("B", geom.B(54, 0, 20, 50))
	// Re-registering A must not move it behind B.
	e.RegisterElement("A", geom.B(0, 0, 50, 50))

	// moving left 52: A right 50 (delta -2) and B left 54 (delta +2), both edges.
	res := e.GetSnapPosition("M", 52, 500, 10, 10, Options{})
	if res.X != 50 || res.Guides[0].SourceID != "A" {
		t.Fatalf("expected earliest registered target A to win, got %+v", res)
	}
}

func TestZeroSizeMovingElement(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("E1", geom.B(100, 100, 50, 50))
	res := e.GetSnapPosition("M", 99, 98, 0, 0, Options{})
	if res.X != 100 || res.Y != 100 || !res.SnappedX || !res.SnappedY {
		t.Fatalf("expected point to snap onto the corner, got %+v", res)
	}
	for _, g := range res.Guides {
		if g.Kind != KindEdge {
			t.Fatalf("edge pair should win over collapsed center line: %+v", g)
		}
	}
}

func TestAxesAreIndependent(t *testing.T) {
	e := newTestEngine(5)
	e.RegisterElement("L", geom.B(0, 0, 100, 100))
	e.RegisterElement("R", geom.B(300, 0, 100, 100))
	res := e.GetSnapPosition("M", 2, 97, 80, 80, Options{})
	if res.X != 0 || res.Y != 100 {
		t.Fatalf("expected (0,100), got %+v", res)
	}
	if len(res.Guides) != 2 || res.Guides[0].Axis != AxisX || res.Guides[1].Axis != AxisY {
		t.Fatalf("expected x guide then y guide, got %+v", res.Guides)
	}
}

func TestThresholdPreventsSnap(t *testing.T) {
	e := newTestEngine(5)
	e.RegisterElement("P", geom.B(0, 0, 200, 100))
	res := e.GetSnapPosition("M", 10, 10, 50, 20, Options{})
	if res.SnappedX || res.SnappedY || res.X != 10 || res.Y != 10 {
		t.Fatalf("expected no snap outside threshold, got %+v", res)
	}
}

func TestCleanupDropsAllTargets(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("E1", geom.B(100, 100, 50, 50))
	e.CleanupTrackedElements()
	e.CleanupTrackedElements() // idempotent
	res := e.GetSnapPosition("M", 101, 101, 50, 50, Options{})
	if res.SnappedX || res.SnappedY {
		t.Fatalf("expected no snap after cleanup, got %+v", res)
	}
	if e.TrackedCount() != 0 {
		t.Fatalf("expected empty registry, got %d", e.TrackedCount())
	}
}

func TestRegisterIsIdempotentUpsert(t *testing.T) {
	e := newTestEngine(8)
	b1 := geom.B(0, 0, 10, 10)
	b2 := geom.B(40, 40, 20, 20)
	e.RegisterElement("E1", b1)
	e.RegisterElement("E1", b2)
	if e.TrackedCount() != 1 {
		t.Fatalf("expected one entry, got %d", e.TrackedCount())
	}
	got, ok := e.Tracked("E1")
	if !ok || got != b2 {
		t.Fatalf("expected bounds %+v, got %+v ok=%v", b2, got, ok)
	}
}

func TestRegisterIgnoresDegenerateBounds(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("zeroW", geom.B(0, 0, 0, 10))
	e.RegisterElement("negH", geom.B(0, 0, 10, -3))
	e.RegisterElement("nan", geom.B(float32(math.NaN()), 0, 10, 10))
	if e.TrackedCount() != 0 {
		t.Fatalf("degenerate bounds must not be registered, got %d", e.TrackedCount())
	}
}

func TestExcludeIDsNeverProduceGuides(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("A", geom.B(0, 0, 50, 50))
	e.RegisterElement("B", geom.B(60, 0, 50, 50))
	e.RegisterElement("C", geom.B(200, 0, 50, 50))

	// Group box spanning A and B, moved so its left edge nears C's left edge.
	res := e.GetSnapPosition(GroupID, 198, 2, 110, 50, Options{ExcludeIDs: []string{"A", "B"}})
	if res.X != 200 {
		t.Fatalf("expected group to snap to C at x=200, got %+v", res)
	}
	for _, g := range res.Guides {
		if g.SourceID == "A" || g.SourceID == "B" {
			t.Fatalf("excluded id produced a guide: %+v", g)
		}
	}

	// Excluding the only nearby target leaves nothing to snap to.
	res = e.GetSnapPosition("M", 2, 2, 10, 10, Options{ExcludeIDs: []string{"A"}})
	for _, g := range res.Guides {
		if g.SourceID == "A" {
			t.Fatalf("excluded id produced a guide: %+v", g)
		}
	}
}

func TestMovingElementNeverSnapsToItself(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("M", geom.B(100, 100, 50, 50))
	res := e.GetSnapPosition("M", 103, 103, 50, 50, Options{})
	if res.SnappedX || res.SnappedY {
		t.Fatalf("element snapped to its own registration: %+v", res)
	}
}

func TestGuidesReplacedOnEveryQuery(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("E1", geom.B(100, 100, 50, 50))
	_ = e.GetSnapPosition("M", 101, 101, 50, 50, Options{})
	if len(e.Guides()) != 2 {
		t.Fatalf("expected two active guides, got %+v", e.Guides())
	}
	_ = e.GetSnapPosition("M", 400, 400, 50, 50, Options{})
	if len(e.Guides()) != 0 {
		t.Fatalf("expected guides replaced by empty set, got %+v", e.Guides())
	}
	_ = e.GetSnapPosition("M", 101, 101, 50, 50, Options{})
	e.ClearSnapIndicators()
	e.ClearSnapIndicators()
	if len(e.Guides()) != 0 {
		t.Fatalf("expected cleared guides")
	}
}

func TestNilEngineIsSafeToClear(t *testing.T) {
	var e *Engine
	e.ClearSnapIndicators()
	e.CleanupTrackedElements()
}

func TestGuideExtentsCoverBothRects(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("T", geom.B(100, 0, 50, 40))
	res := e.GetSnapPosition("M", 102, 300, 20, 20, Options{})
	if len(res.Guides) != 1 {
		t.Fatalf("expected one guide, got %+v", res.Guides)
	}
	g := res.Guides[0]
	if g.Start != 0 || g.End != 320 {
		t.Fatalf("expected extent 0..320, got %v..%v", g.Start, g.End)
	}
}

func TestNonFiniteQueryFailsOpen(t *testing.T) {
	e := newTestEngine(8)
	e.RegisterElement("E1", geom.B(100, 100, 50, 50))
	nan := float32(math.NaN())
	res := e.GetSnapPosition("M", nan, 101, 50, 50, Options{})
	if res.SnappedX || res.SnappedY || len(res.Guides) != 0 {
		t.Fatalf("expected unsnapped result, got %+v", res)
	}
}

func TestDefaultThreshold(t *testing.T) {
	e := New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if e.Threshold() != DefaultThreshold {
		t.Fatalf("expected default threshold %v, got %v", DefaultThreshold, e.Threshold())
	}
}
