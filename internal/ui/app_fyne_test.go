//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne canvas. They are gated behind the "fyne"
// build tag so headless CI does not need Fyne or a display. To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
)

func almostEqual(a, b, eps float32) bool {
	if a > b {
		return a-b <= eps
	}
	return b-a <= eps
}

func TestPlaygroundCanvas_Defaults(t *testing.T) {
	p, _ := newTestPlayground(t)
	pc := NewPlaygroundCanvas(p)
	if pc.zoom != 1 {
		t.Fatalf("expected default zoom 1, got %v", pc.zoom)
	}
	sz := pc.PreferredSize()
	if sz.Width != 800 || sz.Height != 600 {
		t.Fatalf("unexpected PreferredSize: %v", sz)
	}
}

func TestPlaygroundCanvas_PageCentered(t *testing.T) {
	test.NewApp()
	p, _ := newTestPlayground(t)
	pc := NewPlaygroundCanvas(p)
	pc.Resize(fyne.NewSize(1000, 800))

	// demo page is 800x600 at zoom 1
	cx, cy := pc.origin()
	if !almostEqual(cx, 100, 0.01) || !almostEqual(cy, 100, 0.01) {
		t.Fatalf("origin = (%v,%v), want (100,100)", cx, cy)
	}
	x, y := pc.toPage(fyne.NewPos(240, 340))
	if !almostEqual(x, 140, 0.01) || !almostEqual(y, 240, 0.01) {
		t.Fatalf("toPage = (%v,%v)", x, y)
	}
}

func TestPlaygroundCanvas_RendersGuidesWhileDragging(t *testing.T) {
	test.NewApp()
	p, _ := newTestPlayground(t)
	pc := NewPlaygroundCanvas(p)
	pc.Resize(fyne.NewSize(1000, 800))
	r := test.WidgetRenderer(pc).(*playgroundRenderer)
	idle := len(r.Objects())

	p.Press(100, 200, false)
	if _, err := p.Drag(137, 200); err != nil {
		t.Fatalf("drag: %v", err)
	}
	r.Layout(pc.Size())
	if got := len(r.Objects()); got <= idle {
		t.Fatalf("expected guide and selection objects, had %d now %d", idle, got)
	}
}
