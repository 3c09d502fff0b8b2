/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"pagesnap/internal/export"
	"pagesnap/internal/geom"
	"pagesnap/internal/gesture"
	"pagesnap/internal/layout"
	applog "pagesnap/internal/log"
	"pagesnap/internal/snap"
)

// DefaultHandleSize is the edge length of a resize handle in page units at zoom 1.
const DefaultHandleSize float32 = 8

// pressMode is what the next drag will do.
// pressNone: idle or pressed on empty page; pressMove: move the selection;
// pressResize: drag one handle of a single selected element.
type pressMode int

const (
	pressNone pressMode = iota
	pressMove
	pressResize
)

// Handle is one resize grip of the selected element.
type Handle struct {
	Dir  geom.Direction
	Rect geom.Bounds
}

// Playground translates pointer and key input, in page coordinates, into
// gesture controller calls. It keeps no toolkit state and is not safe for
// concurrent use; hosts drive it from their event goroutine.
type Playground struct {
	doc    *layout.Document
	engine *snap.Engine
	ctl    *gesture.Controller
	log    *slog.Logger

	// HandleSize is the grip size in page units; hosts divide by zoom.
	HandleSize float32

	selection []string
	mode      pressMode
	dir       geom.Direction
	pressX    float32
	pressY    float32
	last      gesture.Update
	forceFree bool
	userFree  bool
}

func NewPlayground(doc *layout.Document, cfg PlaygroundConfig) *Playground {
	l := applog.WithComponent("ui")
	eng := snap.New(snap.Config{Threshold: cfg.Threshold})
	ctl := gesture.New(gesture.Config{
		Engine:       eng,
		Model:        doc,
		Scheduler:    cfg.Scheduler,
		CleanupDelay: cfg.CleanupDelay,
		MinSize:      cfg.MinSize,
		Telemetry:    cfg.Telemetry,
	})
	return &Playground{doc: doc, engine: eng, ctl: ctl, log: l, HandleSize: DefaultHandleSize}
}

func (p *Playground) Document() *layout.Document { return p.doc }

func (p *Playground) Engine() *snap.Engine { return p.engine }

func (p *Playground) Controller() *gesture.Controller { return p.ctl }

// Selection returns the selected ids; the first one is the pressed element.
func (p *Playground) Selection() []string { return slices.Clone(p.selection) }

// SetSnapEnabled is the user-facing snap toggle.
func (p *Playground) SetSnapEnabled(on bool) {
	p.userFree = !on
	p.ctl.SetSnapDisabled(p.userFree || p.forceFree)
}

// SetModifier reflects a held snap-bypass key (Alt in the desktop host).
func (p *Playground) SetModifier(held bool) {
	p.forceFree = held
	p.ctl.SetSnapDisabled(p.userFree || p.forceFree)
}

// Press starts an interaction at page point x,y. With shift the element under
// the pointer is toggled in the selection instead of replacing it.
func (p *Playground) Press(x, y float32, shift bool) {
	if p.ctl.Active() != "" {
		// a release got lost, e.g. the pointer left the window
		p.ctl.Cancel()
	}
	p.mode, p.last = pressNone, gesture.Update{}
	p.pressX, p.pressY = x, y

	if len(p.selection) == 1 && !shift {
		for _, h := range p.Handles() {
			if h.Rect.Contains(x, y) {
				p.mode, p.dir = pressResize, h.Dir
				return
			}
		}
	}
	e, ok := p.doc.HitTest(x, y)
	switch {
	case !ok:
		if !shift {
			p.selection = nil
		}
		return
	case shift:
		if i := slices.Index(p.selection, e.ID); i >= 0 {
			p.selection = slices.Delete(p.selection, i, i+1)
			return
		}
		p.selection = append([]string{e.ID}, p.selection...)
	case slices.Contains(p.selection, e.ID):
		p.selection = moveToFront(p.selection, e.ID)
	default:
		p.selection = []string{e.ID}
	}
	p.mode = pressMove
}

// Drag feeds the pointer position. The first drag after Press begins the
// gesture; later ones update it relative to the press point.
func (p *Playground) Drag(x, y float32) (gesture.Update, error) {
	if p.mode == pressNone || len(p.selection) == 0 {
		return gesture.Update{}, gesture.ErrNoGesture
	}
	if p.ctl.Active() == "" {
		var err error
		if p.mode == pressResize {
			_, err = p.ctl.BeginResize(p.selection[0], p.dir)
		} else {
			_, err = p.ctl.BeginMove(p.selection[0], p.selection[1:]...)
		}
		if err != nil {
			p.mode = pressNone
			return gesture.Update{}, err
		}
	}
	dx, dy := x-p.pressX, y-p.pressY
	var (
		u   gesture.Update
		err error
	)
	if p.mode == pressResize {
		u, err = p.ctl.ResizeBy(dx, dy)
	} else {
		u, err = p.ctl.MoveBy(dx, dy)
	}
	if err != nil {
		return gesture.Update{}, err
	}
	p.last = u
	return u, nil
}

// Release commits a running gesture. ok is false when nothing was dragged.
func (p *Playground) Release() (u gesture.Update, ok bool, err error) {
	p.mode = pressNone
	p.last = gesture.Update{}
	if p.ctl.Active() == "" {
		return gesture.Update{}, false, nil
	}
	u, err = p.ctl.End()
	if err != nil {
		p.log.Warn("commit gesture failed", slog.Any("err", err))
	}
	return u, true, err
}

// Escape abandons a running gesture and leaves the document untouched.
func (p *Playground) Escape() {
	p.mode = pressNone
	p.last = gesture.Update{}
	p.ctl.Cancel()
}

// Nudge moves the selection by one keyboard step as a complete gesture.
func (p *Playground) Nudge(dx, dy float32) (gesture.Update, error) {
	if len(p.selection) == 0 {
		return gesture.Update{}, gesture.ErrNoGesture
	}
	p.Escape()
	if _, err := p.ctl.BeginMove(p.selection[0], p.selection[1:]...); err != nil {
		return gesture.Update{}, err
	}
	if _, err := p.ctl.MoveBy(dx, dy); err != nil {
		p.ctl.Cancel()
		return gesture.Update{}, err
	}
	return p.ctl.End()
}

// Undo reverts the last committed gesture, cancelling a running one first.
func (p *Playground) Undo() (bool, error) {
	p.Escape()
	return p.doc.Undo()
}

func (p *Playground) Redo() (bool, error) {
	p.Escape()
	return p.doc.Redo()
}

// Bounds returns the live geometry of id, including an uncommitted gesture.
func (p *Playground) Bounds(id string) (geom.Bounds, bool) {
	if p.ctl.Active() != "" {
		if b, ok := p.last.Members[id]; ok {
			return b, true
		}
	}
	return p.doc.ElementBounds(id)
}

// Moving reports whether id is part of the running gesture.
func (p *Playground) Moving(id string) bool {
	if p.ctl.Active() == "" {
		return false
	}
	_, ok := p.last.Members[id]
	return ok
}

// Guides returns the alignment lines of the latest update while dragging.
func (p *Playground) Guides() []snap.Guide {
	if p.ctl.Active() == "" {
		return nil
	}
	return p.last.Guides
}

// SelectionBounds is the box around every selected element.
func (p *Playground) SelectionBounds() (geom.Bounds, bool) {
	boxes := make([]geom.Bounds, 0, len(p.selection))
	for _, id := range p.selection {
		if b, ok := p.Bounds(id); ok {
			boxes = append(boxes, b)
		}
	}
	return geom.UnionAll(boxes)
}

// Handles returns the eight grips of a single selection; groups only move.
func (p *Playground) Handles() []Handle {
	if len(p.selection) != 1 {
		return nil
	}
	b, ok := p.Bounds(p.selection[0])
	if !ok {
		return nil
	}
	s := p.HandleSize
	if s <= 0 {
		s = DefaultHandleSize
	}
	out := make([]Handle, 0, len(geom.Directions))
	for _, d := range geom.Directions {
		x, y := b.CenterX(), b.CenterY()
		if strings.ContainsRune(string(d), 'w') {
			x = b.Left()
		} else if strings.ContainsRune(string(d), 'e') {
			x = b.Right()
		}
		if strings.ContainsRune(string(d), 'n') {
			y = b.Top()
		} else if strings.ContainsRune(string(d), 's') {
			y = b.Bottom()
		}
		out = append(out, Handle{Dir: d, Rect: geom.B(x-s/2, y-s/2, s, s)})
	}
	return out
}

// Status is a one-line description for the status bar.
func (p *Playground) Status() string {
	if k := p.ctl.Active(); k != "" {
		b := p.last.Bounds
		s := fmt.Sprintf("%s %s  x=%.0f y=%.0f w=%.0f h=%.0f", k, p.last.ID, b.X, b.Y, b.Width, b.Height)
		switch {
		case p.last.SnappedX && p.last.SnappedY:
			s += "  snapped x,y"
		case p.last.SnappedX:
			s += "  snapped x"
		case p.last.SnappedY:
			s += "  snapped y"
		}
		return s
	}
	switch len(p.selection) {
	case 0:
		return "Ready"
	case 1:
		b, _ := p.Bounds(p.selection[0])
		return fmt.Sprintf("%s  x=%.0f y=%.0f w=%.0f h=%.0f", p.selection[0], b.X, b.Y, b.Width, b.Height)
	default:
		return fmt.Sprintf("%d selected", len(p.selection))
	}
}

// Autosave writes the committed page as JSON into dir (os.TempDir when empty)
// and returns the file path. It backs the crash handler.
func (p *Playground) Autosave(dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("pagesnap-autosave-%s.json", export.FileStem(p.doc.Page())))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	werr := p.doc.WriteJSON(f)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return "", err
	}
	return path, nil
}

func moveToFront(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	out = append(out, id)
	for _, s := range ids {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}
