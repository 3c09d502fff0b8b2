//go:build fyne && cgo

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
	"encoding/json"
	"errors"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"pagesnap/internal/crash"
	"pagesnap/internal/export"
	"pagesnap/internal/geom"
	"pagesnap/internal/gesture"
	applog "pagesnap/internal/log"
	"pagesnap/internal/snap"
	"pagesnap/internal/version"
)

// Run opens the playground window and blocks until it is closed.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("scene", opts.ScenePath))

	pg, err := opts.Playground()
	if err != nil {
		return err
	}
	pc := NewPlaygroundCanvas(pg)
	defer crash.Recover(&crash.Context{
		Scene:    opts.ScenePath,
		Autosave: func() (string, error) { return pc.pg.Autosave("") },
	})

	fyneApp := app.NewWithID("pagesnap")
	w := fyneApp.NewWindow("PageSnap " + version.String())
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1100)
	winH := prefs.IntWithFallback("window.height", 800)
	w.Resize(fyne.NewSize(float32(max(winW, 640)), float32(max(winH, 480))))

	status := widget.NewLabel("Ready")
	pc.OnChange = func() { status.SetText(pc.pg.Status()) }

	snapCheck := widget.NewCheck("Snap", func(on bool) {
		pc.pg.SetSnapEnabled(on)
		prefs.SetBool("snap.enabled", on)
		l.Info("toggle snapping", slog.Bool("enabled", on))
	})
	snapCheck.SetChecked(prefs.BoolWithFallback("snap.enabled", true))

	openScene := func(path string) {
		next, err := Options{ScenePath: path, Config: opts.Config, Telemetry: opts.Telemetry}.Playground()
		if err != nil {
			l.Error("open scene failed", slog.String("path", path), slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		next.SetSnapEnabled(snapCheck.Checked)
		pc.SetPlayground(next)
		addRecentScene(prefs, path)
		w.SetTitle("PageSnap - " + filepath.Base(path))
		status.SetText("Opened " + path)
	}

	openItem := fyne.NewMenuItem("Open Scene…", func() {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			path := rc.URI().Path()
			_ = rc.Close()
			openScene(path)
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json", ".yaml", ".yml", ".toml"}))
		fd.Show()
	})
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}

	recentItem := fyne.NewMenuItem("Open Recent", nil)
	var recentItems []*fyne.MenuItem
	for _, p := range loadRecentScenes(prefs) {
		recentItems = append(recentItems, fyne.NewMenuItem(p, func() { openScene(p) }))
	}
	if len(recentItems) == 0 {
		none := fyne.NewMenuItem("(none)", nil)
		none.Disabled = true
		recentItems = append(recentItems, none)
	}
	recentItem.ChildMenu = fyne.NewMenu("Open Recent", recentItems...)

	exportItem := fyne.NewMenuItem("Export Page as SVG…", func() {
		fd := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if wc == nil {
				return
			}
			defer wc.Close()
			if err := export.WriteDocumentSVG(wc, pc.pg.Document(), export.Options{Labels: true}); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported " + wc.URI().Path())
		}, w)
		fd.SetFileName(pc.pg.Document().Page() + ".svg")
		fd.Show()
	})
	fileMenu := fyne.NewMenu("File", openItem, recentItem, fyne.NewMenuItemSeparator(), exportItem)

	undoItem := fyne.NewMenuItem("Undo", func() { pc.undo(w) })
	undoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl}
	redoItem := fyne.NewMenuItem("Redo", func() { pc.redo(w) })
	redoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierControl}
	editMenu := fyne.NewMenu("Edit", undoItem, redoItem)

	aboutItem := fyne.NewMenuItem("About", func() {
		dialog.ShowInformation("About", "PageSnap "+version.String()+"\n\nDrag to move, Shift+click to group, drag a handle to resize.\nHold Alt to move freely, Esc cancels.", w)
	})
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, fyne.NewMenu("Help", aboutItem)))

	w.Canvas().AddShortcut(undoItem.Shortcut, func(fyne.Shortcut) { pc.undo(w) })
	w.Canvas().AddShortcut(redoItem.Shortcut, func(fyne.Shortcut) { pc.redo(w) })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl | fyne.KeyModifierShift}, func(fyne.Shortcut) { pc.redo(w) })

	toolbar := container.NewHBox(snapCheck, widget.NewLabel("Alt: free move · Esc: cancel"))
	w.SetContent(container.NewBorder(toolbar, status, nil, nil, pc))
	w.Canvas().Focus(pc)

	w.SetCloseIntercept(func() {
		pc.pg.Escape()
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})
	if opts.ScenePath != "" {
		addRecentScene(prefs, opts.ScenePath)
	}
	w.ShowAndRun()
	return nil
}

// PlaygroundCanvas draws a Playground and feeds it pointer and key events.
type PlaygroundCanvas struct {
	widget.BaseWidget
	pg      *Playground
	style   export.Style
	zoom    float32
	offsetX float32
	offsetY float32
	panning bool

	// OnChange runs after every interaction that changed what is shown.
	OnChange func()
}

var (
	_ fyne.Draggable    = (*PlaygroundCanvas)(nil)
	_ fyne.Scrollable   = (*PlaygroundCanvas)(nil)
	_ desktop.Mouseable = (*PlaygroundCanvas)(nil)
	_ desktop.Keyable   = (*PlaygroundCanvas)(nil)
)

func NewPlaygroundCanvas(pg *Playground) *PlaygroundCanvas {
	pc := &PlaygroundCanvas{pg: pg, style: export.DefaultStyle(), zoom: 1}
	pc.ExtendBaseWidget(pc)
	return pc
}

// SetPlayground swaps the edited page, abandoning any running gesture.
func (p *PlaygroundCanvas) SetPlayground(pg *Playground) {
	p.pg.Escape()
	p.pg = pg
	p.offsetX, p.offsetY = 0, 0
	p.changed()
}

func (p *PlaygroundCanvas) changed() {
	p.Refresh()
	if p.OnChange != nil {
		p.OnChange()
	}
}

func (p *PlaygroundCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

func (p *PlaygroundCanvas) origin() (cx, cy float32) {
	w, h := p.pg.Document().Size()
	sz := p.Size()
	return sz.Width/2 - w*p.zoom/2 + p.offsetX, sz.Height/2 - h*p.zoom/2 + p.offsetY
}

func (p *PlaygroundCanvas) toPage(pos fyne.Position) (x, y float32) {
	cx, cy := p.origin()
	return (pos.X - cx) / p.zoom, (pos.Y - cy) / p.zoom
}

func (p *PlaygroundCanvas) toScreen(b geom.Bounds) (fyne.Position, fyne.Size) {
	cx, cy := p.origin()
	return fyne.NewPos(cx+b.X*p.zoom, cy+b.Y*p.zoom), fyne.NewSize(b.Width*p.zoom, b.Height*p.zoom)
}

func (p *PlaygroundCanvas) MouseDown(e *desktop.MouseEvent) {
	if c := fyne.CurrentApp().Driver().CanvasForObject(p); c != nil {
		c.Focus(p)
	}
	p.pg.HandleSize = DefaultHandleSize / p.zoom
	x, y := p.toPage(e.Position)
	p.pg.Press(x, y, e.Modifier&fyne.KeyModifierShift != 0)
	p.panning = false
	p.changed()
}

func (p *PlaygroundCanvas) MouseUp(*desktop.MouseEvent) { p.release() }

func (p *PlaygroundCanvas) Dragged(e *fyne.DragEvent) {
	if p.panning {
		p.offsetX += e.Dragged.DX
		p.offsetY += e.Dragged.DY
		p.Refresh()
		return
	}
	x, y := p.toPage(e.Position)
	if _, err := p.pg.Drag(x, y); err != nil {
		if errors.Is(err, gesture.ErrNoGesture) {
			p.panning = true
			return
		}
		applog.WithComponent("ui").Warn("drag failed", slog.Any("err", err))
	}
	p.changed()
}

func (p *PlaygroundCanvas) DragEnd() { p.release() }

func (p *PlaygroundCanvas) release() {
	p.panning = false
	if _, ok, _ := p.pg.Release(); ok {
		p.changed()
	}
}

func (p *PlaygroundCanvas) Scrolled(e *fyne.ScrollEvent) {
	p.zoom = min(max(p.zoom+e.Scrolled.DY*0.01, 0.1), 4)
	p.Refresh()
}

func (p *PlaygroundCanvas) FocusGained() {}

// FocusLost cancels like a pointer leaving the window would.
func (p *PlaygroundCanvas) FocusLost() {
	p.pg.SetModifier(false)
	p.pg.Escape()
	p.changed()
}

func (p *PlaygroundCanvas) TypedRune(rune) {}

func (p *PlaygroundCanvas) TypedKey(e *fyne.KeyEvent) {
	var dx, dy float32
	switch e.Name {
	case fyne.KeyEscape:
		p.pg.Escape()
		p.changed()
		return
	case fyne.KeyLeft:
		dx = -1
	case fyne.KeyRight:
		dx = 1
	case fyne.KeyUp:
		dy = -1
	case fyne.KeyDown:
		dy = 1
	default:
		return
	}
	if _, err := p.pg.Nudge(dx, dy); err == nil {
		p.changed()
	}
}

func (p *PlaygroundCanvas) KeyDown(e *fyne.KeyEvent) {
	if e.Name == desktop.KeyAltLeft || e.Name == desktop.KeyAltRight {
		p.pg.SetModifier(true)
	}
}

func (p *PlaygroundCanvas) KeyUp(e *fyne.KeyEvent) {
	if e.Name == desktop.KeyAltLeft || e.Name == desktop.KeyAltRight {
		p.pg.SetModifier(false)
	}
}

func (p *PlaygroundCanvas) undo(w fyne.Window) {
	ok, err := p.pg.Undo()
	switch {
	case err != nil:
		dialog.ShowError(err, w)
	case !ok:
		dialog.ShowInformation("Undo", "Nothing to undo.", w)
	default:
		p.changed()
	}
}

func (p *PlaygroundCanvas) redo(w fyne.Window) {
	ok, err := p.pg.Redo()
	switch {
	case err != nil:
		dialog.ShowError(err, w)
	case !ok:
		dialog.ShowInformation("Redo", "Nothing to redo.", w)
	default:
		p.changed()
	}
}

func (p *PlaygroundCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &playgroundRenderer{
		pc:   p,
		bg:   canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255}),
		page: canvas.NewRectangle(p.style.Background),
		bbox: canvas.NewRectangle(color.Transparent),
	}
	r.bbox.StrokeColor = p.style.Moving
	r.bbox.StrokeWidth = 1
	r.Layout(p.Size())
	return r
}

// playgroundRenderer rebuilds its object list on each layout since the number
// of guides changes with every drag event.
type playgroundRenderer struct {
	pc       *PlaygroundCanvas
	bg, page *canvas.Rectangle
	bbox     *canvas.Rectangle
	objects  []fyne.CanvasObject
}

func (r *playgroundRenderer) Destroy()                     {}
func (r *playgroundRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *playgroundRenderer) MinSize() fyne.Size           { return r.pc.PreferredSize() }
func (r *playgroundRenderer) Refresh()                     { r.Layout(r.pc.Size()); canvas.Refresh(r.pc) }

func (r *playgroundRenderer) Layout(size fyne.Size) {
	p := r.pc
	st := p.style
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	pw, ph := p.pg.Document().Size()
	pos, sz := p.toScreen(geom.B(0, 0, pw, ph))
	r.page.Move(pos)
	r.page.Resize(sz)
	objs := []fyne.CanvasObject{r.bg, r.page}

	for _, e := range p.pg.Document().Elements() {
		b, _ := p.pg.Bounds(e.ID)
		pos, sz := p.toScreen(b)
		rc := canvas.NewRectangle(color.RGBA{R: 0xf4, G: 0xf4, B: 0xf4, A: 0xff})
		rc.StrokeColor = st.Element
		if p.pg.Moving(e.ID) {
			rc.StrokeColor = st.Moving
		}
		rc.StrokeWidth = 1.5
		rc.Move(pos)
		rc.Resize(sz)
		label := e.Label
		if label == "" {
			label = e.ID
		}
		txt := canvas.NewText(label, st.Element)
		txt.TextSize = max(9, 12*p.zoom)
		txt.Move(pos.Add(fyne.NewPos(4, 2)))
		objs = append(objs, rc, txt)
	}

	for _, g := range p.pg.Guides() {
		ln := canvas.NewLine(st.EdgeGuide)
		if g.Kind == snap.KindCenter {
			ln.StrokeColor = st.CenterGuide
		}
		ln.StrokeWidth = 1
		var seg geom.Bounds
		if g.Axis == snap.AxisX {
			seg = geom.B(g.Position, g.Start, 0, g.End-g.Start)
		} else {
			seg = geom.B(g.Start, g.Position, g.End-g.Start, 0)
		}
		pos, sz := p.toScreen(seg)
		ln.Position1 = pos
		ln.Position2 = pos.Add(fyne.NewPos(sz.Width, sz.Height))
		objs = append(objs, ln)
	}

	if sel, ok := p.pg.SelectionBounds(); ok {
		pos, sz := p.toScreen(sel)
		r.bbox.Move(pos)
		r.bbox.Resize(sz)
		objs = append(objs, r.bbox)
		for _, h := range p.pg.Handles() {
			pos, _ := p.toScreen(geom.B(h.Rect.CenterX(), h.Rect.CenterY(), 0, 0))
			hr := canvas.NewRectangle(st.Background)
			hr.StrokeColor = st.Moving
			hr.StrokeWidth = 1
			hr.Resize(fyne.NewSize(DefaultHandleSize, DefaultHandleSize))
			hr.Move(pos.Subtract(fyne.NewPos(DefaultHandleSize/2, DefaultHandleSize/2)))
			objs = append(objs, hr)
		}
	}
	r.objects = objs
}

// Recent scene persistence
const recentPrefsKey = "recent.scenes"
const recentMax = 10

func loadRecentScenes(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentScenes(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentScene(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	out := []string{abs}
	for _, s := range loadRecentScenes(p) {
		// de-dup (case-insensitive on Windows)
		if !strings.EqualFold(s, abs) {
			out = append(out, s)
		}
	}
	saveRecentScenes(p, out)
}
