/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture drives a snap engine through the move/resize lifecycle:
// register siblings, query on every pointer move, apply the final geometry,
// clear guides and clean the registry up shortly after the gesture ends.
package gesture

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"pagesnap/internal/geom"
	applog "pagesnap/internal/log"
	"pagesnap/internal/snap"
	"pagesnap/internal/telemetry"
)

// DefaultCleanupDelay leaves trailing guide renders valid backing data.
const DefaultCleanupDelay = 100 * time.Millisecond

var (
	ErrGestureActive  = errors.New("gesture already in progress")
	ErrNoGesture      = errors.New("no gesture in progress")
	ErrUnknownElement = errors.New("unknown element")
	ErrWrongGesture   = errors.New("operation does not match the active gesture")
)

// Model is the host document the controller reads from and commits to.
type Model interface {
	// ElementIDs lists elements in registration order.
	ElementIDs() []string
	ElementBounds(id string) (geom.Bounds, bool)
	// Apply stores the final geometry of a gesture.
	Apply(label string, bounds map[string]geom.Bounds) error
}

// HandleProvider is implemented by models that want an opaque per-element
// handle kept alongside the registry, e.g. a widget reference.
type HandleProvider interface {
	Handle(id string) any
}

// Kind names a gesture type.
type Kind string

const (
	KindMove   Kind = "move"
	KindResize Kind = "resize"
)

// Config wires a controller. Engine may be nil; the controller then
// degrades to plain unsnapped moves and resizes.
type Config struct {
	Engine       *snap.Engine
	Model        Model
	Scheduler    Scheduler
	CleanupDelay time.Duration
	// MinSize is applied to free axes before resize queries.
	MinSize      float32
	Telemetry    *telemetry.Client
	Logger       *slog.Logger
}

// Update is the corrected geometry after one pointer event.
type Update struct {
	ID       string       `json:"id"`
	Bounds   geom.Bounds  `json:"bounds"`
	SnappedX bool         `json:"snapped_x"`
	SnappedY bool         `json:"snapped_y"`
	Guides   []snap.Guide `json:"guides"`

	// Members holds the new bounds of every selected element.
	Members map[string]geom.Bounds `json:"members"`
}

type session struct {
	kind      Kind
	movingID  string
	selection []string
	start     geom.Bounds
	members   map[string]geom.Bounds
	dir       geom.Direction
	last      Update
	stats     telemetry.GestureSummary
	began     time.Time
}

// Controller is safe for concurrent use; cleanup callbacks may arrive from
// timer goroutines.
type Controller struct {
	mu       sync.Mutex
	engine   *snap.Engine
	model    Model
	sched    Scheduler
	delay    time.Duration
	minSize  float32
	tel      *telemetry.Client
	log      *slog.Logger
	noSnap   bool
	active   *session
	handles  map[string]any
	gen      uint64
	stopPrev func() bool
	summary  telemetry.GestureSummary
}

func New(cfg Config) *Controller {
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler{}
	}
	if cfg.CleanupDelay <= 0 {
		cfg.CleanupDelay = DefaultCleanupDelay
	}
	l := cfg.Logger
	if l == nil {
		l = applog.WithComponent("gesture")
	}
	return &Controller{
		engine:  cfg.Engine,
		model:   cfg.Model,
		sched:   cfg.Scheduler,
		delay:   cfg.CleanupDelay,
		minSize: cfg.MinSize,
		tel:     cfg.Telemetry,
		log:     l,
		handles: make(map[string]any),
	}
}

// SetSnapDisabled toggles the "snapping off" modifier for following updates.
func (c *Controller) SetSnapDisabled(disabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noSnap = disabled
	if disabled {
		c.engine.ClearSnapIndicators()
	}
}

// Active reports the kind of the running gesture, or "" when idle.
func (c *Controller) Active() Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ""
	}
	return c.active.kind
}

// BeginMove starts moving id together with the optional extra members.
// With more than one element the moving box is the GROUP bounding box and
// the members are never offered as targets.
func (c *Controller) BeginMove(id string, members ...string) (geom.Bounds, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	selection := []string{id}
	for _, m := range members {
		if !slices.Contains(selection, m) {
			selection = append(selection, m)
		}
	}
	s, err := c.beginLocked(KindMove, selection)
	if err != nil {
		return geom.Bounds{}, err
	}
	if len(selection) > 1 {
		boxes := make([]geom.Bounds, 0, len(selection))
		for _, m := range selection {
			boxes = append(boxes, s.members[m])
		}
		s.start, _ = geom.UnionAll(boxes)
		s.movingID = snap.GroupID
	} else {
		s.start = s.members[id]
		s.movingID = id
	}
	s.last = Update{ID: s.movingID, Bounds: s.start, Members: maps.Clone(s.members), Guides: []snap.Guide{}}
	c.active = s
	c.log.Debug("move started", slog.String("id", s.movingID), slog.Int("members", len(selection)))
	return s.start, nil
}

// BeginResize starts resizing id from handle dir.
func (c *Controller) BeginResize(id string, dir geom.Direction) (geom.Bounds, error) {
	if !dir.Valid() {
		return geom.Bounds{}, fmt.Errorf("begin resize %s: invalid direction %q", id, dir)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.beginLocked(KindResize, []string{id})
	if err != nil {
		return geom.Bounds{}, err
	}
	s.dir = dir
	s.movingID = id
	s.start = s.members[id]
	s.last = Update{ID: id, Bounds: s.start, Members: maps.Clone(s.members), Guides: []snap.Guide{}}
	c.active = s
	c.log.Debug("resize started", slog.String("id", id), slog.String("dir", string(dir)))
	return s.start, nil
}

func (c *Controller) beginLocked(kind Kind, selection []string) (*session, error) {
	if c.active != nil {
		return nil, ErrGestureActive
	}
	if c.model == nil {
		return nil, errors.New("gesture controller has no model")
	}
	s := &session{kind: kind, selection: selection, members: make(map[string]geom.Bounds, len(selection))}
	for _, id := range selection {
		b, ok := c.model.ElementBounds(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownElement, id)
		}
		s.members[id] = b
	}

	// a cleanup scheduled by the previous gesture must not wipe this one
	if c.stopPrev != nil {
		c.stopPrev()
		c.stopPrev = nil
	}
	c.gen++
	c.engine.CleanupTrackedElements()
	clear(c.handles)

	hp, _ := c.model.(HandleProvider)
	targets := 0
	for _, id := range c.model.ElementIDs() {
		if hp != nil {
			c.handles[id] = hp.Handle(id)
		}
		if slices.Contains(selection, id) {
			continue
		}
		b, ok := c.model.ElementBounds(id)
		if !ok {
			continue
		}
		if c.engine != nil {
			c.engine.RegisterElement(id, b)
		}
		targets++
	}
	s.began = c.sched.Now()
	s.stats = telemetry.GestureSummary{Kind: string(kind), Targets: targets}
	return s, nil
}

// Move proposes a new top-left for the moving element or group box.
func (c *Controller) Move(x, y float32) (Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.activeLocked(KindMove)
	if err != nil {
		return Update{}, err
	}
	return c.moveLocked(s, x, y), nil
}

// MoveBy moves relative to the gesture's start position.
func (c *Controller) MoveBy(dx, dy float32) (Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.activeLocked(KindMove)
	if err != nil {
		return Update{}, err
	}
	return c.moveLocked(s, s.start.X+dx, s.start.Y+dy), nil
}

// activeLocked returns the running session when it is of the given kind.
func (c *Controller) activeLocked(kind Kind) (*session, error) {
	s := c.active
	if s == nil {
		return nil, ErrNoGesture
	}
	if s.kind != kind {
		return nil, ErrWrongGesture
	}
	return s, nil
}

func (c *Controller) moveLocked(s *session, x, y float32) Update {
	u := Update{ID: s.movingID, Bounds: geom.B(x, y, s.start.Width, s.start.Height), Guides: []snap.Guide{}}
	if c.engine != nil && !c.noSnap {
		opts := snap.Options{}
		if len(s.selection) > 1 {
			opts.ExcludeIDs = s.selection
		}
		r := c.engine.GetSnapPosition(s.movingID, x, y, s.start.Width, s.start.Height, opts)
		u.Bounds.X, u.Bounds.Y = r.X, r.Y
		u.SnappedX, u.SnappedY, u.Guides = r.SnappedX, r.SnappedY, r.Guides
	}
	dx, dy := u.Bounds.X-s.start.X, u.Bounds.Y-s.start.Y
	u.Members = make(map[string]geom.Bounds, len(s.members))
	for id, b := range s.members {
		u.Members[id] = b.Translate(dx, dy)
	}
	c.record(s, u)
	return u
}

// Resize proposes intended bounds for the resized element. Free axes are
// first clamped to the configured minimum size, keeping fixed edges in place.
func (c *Controller) Resize(intended geom.Bounds) (Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.activeLocked(KindResize)
	if err != nil {
		return Update{}, err
	}
	return c.resizeLocked(s, intended), nil
}

// ResizeBy drags the active handle by dx,dy from the gesture's start bounds.
func (c *Controller) ResizeBy(dx, dy float32) (Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.activeLocked(KindResize)
	if err != nil {
		return Update{}, err
	}
	return c.resizeLocked(s, s.dir.Apply(s.start, dx, dy)), nil
}

func (c *Controller) resizeLocked(s *session, intended geom.Bounds) Update {
	intended = clampMin(s.dir, intended, c.minSize)
	u := Update{ID: s.movingID, Bounds: intended, Guides: []snap.Guide{}}
	if c.engine != nil && !c.noSnap {
		r := c.engine.GetResizeSnapPosition(s.movingID, s.dir, intended, intended.Width, intended.Height)
		u.Bounds, u.Guides = r.Bounds, r.Guides
		if r.Snapped {
			for _, g := range r.Guides {
				if g.Axis == snap.AxisX {
					u.SnappedX = true
				} else {
					u.SnappedY = true
				}
			}
		}
	}
	u.Members = map[string]geom.Bounds{s.movingID: u.Bounds}
	c.record(s, u)
	return u
}

func (c *Controller) record(s *session, u Update) {
	s.last = u
	s.stats.Updates++
	if u.SnappedX {
		s.stats.SnappedX++
	}
	if u.SnappedY {
		s.stats.SnappedY++
	}
}

// End commits the last update to the model, clears the guides and schedules
// the registry cleanup. It returns the committed update.
func (c *Controller) End() (Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.active
	if s == nil {
		return Update{}, ErrNoGesture
	}
	c.active = nil
	c.engine.ClearSnapIndicators()
	c.scheduleCleanupLocked()

	var err error
	if s.stats.Updates > 0 {
		if aerr := c.model.Apply(string(s.kind), s.last.Members); aerr != nil {
			err = fmt.Errorf("apply %s of %s: %w", s.kind, s.movingID, aerr)
		}
	}
	c.finishLocked(s, false)
	return s.last, err
}

// Cancel abandons the gesture without touching the model. It is always safe
// to call, also when idle, so hosts can wire it to blur and escape.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.ClearSnapIndicators()
	s := c.active
	if s == nil {
		return
	}
	c.active = nil
	c.scheduleCleanupLocked()
	c.finishLocked(s, true)
}

func (c *Controller) finishLocked(s *session, cancelled bool) {
	s.stats.Cancelled = cancelled
	s.stats.Duration = c.sched.Now().Sub(s.began)
	c.summary = s.stats
	c.tel.Gesture(s.stats)
	c.log.Debug("gesture finished",
		slog.String("kind", string(s.kind)),
		slog.Int("updates", s.stats.Updates),
		slog.Bool("cancelled", cancelled))
}

func (c *Controller) scheduleCleanupLocked() {
	gen := c.gen
	c.stopPrev = c.sched.AfterFunc(c.delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen || c.active != nil {
			return
		}
		c.engine.CleanupTrackedElements()
		clear(c.handles)
		c.stopPrev = nil
	})
}

// Summary returns the stats of the last finished gesture.
func (c *Controller) Summary() telemetry.GestureSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// Handle returns the host handle recorded for id during the current or
// most recent gesture.
func (c *Controller) Handle(id string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[id]
	return h, ok
}

func clampMin(dir geom.Direction, b geom.Bounds, minSize float32) geom.Bounds {
	if minSize <= 0 {
		return b
	}
	for _, e := range dir.FreeEdges() {
		switch e {
		case geom.EdgeRight:
			if b.Width < minSize {
				b.Width = minSize
			}
		case geom.EdgeLeft:
			if b.Width < minSize {
				b.X = b.Right() - minSize
				b.Width = minSize
			}
		case geom.EdgeBottom:
			if b.Height < minSize {
				b.Height = minSize
			}
		case geom.EdgeTop:
			if b.Height < minSize {
				b.Y = b.Bottom() - minSize
				b.Height = minSize
			}
		}
	}
	return b
}
