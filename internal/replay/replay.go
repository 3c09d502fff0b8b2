/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package replay drives the gestures of a scene through a gesture controller
// and snap engine on a virtual clock and records every intermediate frame.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pagesnap/internal/geom"
	"pagesnap/internal/gesture"
	"pagesnap/internal/layout"
	applog "pagesnap/internal/log"
	"pagesnap/internal/scene"
	"pagesnap/internal/snap"
	"pagesnap/internal/telemetry"
	"pagesnap/internal/undo"
)

// Frame is the state after one scripted pointer move.
type Frame struct {
	Gesture  int          `json:"gesture"`
	Step     int          `json:"step"`
	Kind     string       `json:"kind"`
	MovingID string       `json:"moving_id"`
	Proposed geom.Bounds  `json:"proposed"`
	Result   geom.Bounds  `json:"result"`
	SnappedX bool         `json:"snapped_x"`
	SnappedY bool         `json:"snapped_y"`
	NoSnap   bool         `json:"no_snap,omitempty"`
	Guides   []snap.Guide `json:"guides"`

	// Members are the bounds of every selected element at this step.
	Members map[string]geom.Bounds `json:"members"`
}

// Outcome describes how one gesture ended.
type Outcome struct {
	Gesture    int                      `json:"gesture"`
	Kind       string                   `json:"kind"`
	Target     string                   `json:"target"`
	Cancelled  bool                     `json:"cancelled"`
	Final      geom.Bounds              `json:"final"`
	Mismatches []string                 `json:"mismatches,omitempty"`
	Summary    telemetry.GestureSummary `json:"summary"`
}

// Run is the record of one replayed scene.
type Run struct {
	ID        string           `json:"id"`
	Scene     string           `json:"scene"`
	Threshold float32          `json:"threshold"`
	StartedAt time.Time        `json:"started_at"`
	Canvas    scene.Canvas     `json:"canvas"`
	Initial   []layout.Element `json:"initial"`
	Final     []layout.Element `json:"final"`
	Frames    []Frame          `json:"frames"`
	Outcomes  []Outcome        `json:"outcomes"`
}

// Stats summarises a run.
type Stats struct {
	Frames     int `json:"frames"`
	Snapped    int `json:"snapped"`
	Gestures   int `json:"gestures"`
	Cancelled  int `json:"cancelled"`
	Mismatches int `json:"mismatches"`
}

func (r *Run) Stats() Stats {
	s := Stats{Frames: len(r.Frames), Gestures: len(r.Outcomes)}
	for _, f := range r.Frames {
		if f.SnappedX || f.SnappedY {
			s.Snapped++
		}
	}
	for _, o := range r.Outcomes {
		if o.Cancelled {
			s.Cancelled++
		}
		s.Mismatches += len(o.Mismatches)
	}
	return s
}

// SnapRatio is the share of frames with at least one snapped axis.
func (r *Run) SnapRatio() float64 {
	s := r.Stats()
	if s.Frames == 0 {
		return 0
	}
	return float64(s.Snapped) / float64(s.Frames)
}

// Passed reports whether every expectation held.
func (r *Run) Passed() bool { return r.Stats().Mismatches == 0 }

// FramesOf returns the frames of gesture g.
func (r *Run) FramesOf(g int) []Frame {
	var out []Frame
	for _, f := range r.Frames {
		if f.Gesture == g {
			out = append(out, f)
		}
	}
	return out
}

type Options struct {
	// Threshold overrides the scene's threshold when positive.
	Threshold float32
	// StepInterval is the virtual time between pointer moves.
	StepInterval time.Duration
	CleanupDelay time.Duration
	MinSize      float32
	Telemetry    *telemetry.Client
	Logger       *slog.Logger
	// Start is the virtual clock origin; zero means time.Now().
	Start time.Time
}

// Play replays every gesture of s in order. Expectation mismatches are
// recorded on the run, not returned as errors.
func Play(ctx context.Context, s *scene.Scene, opts Options) (*Run, error) {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("replay")
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = s.Threshold
	}
	if threshold <= 0 {
		threshold = snap.DefaultThreshold
	}
	if opts.StepInterval <= 0 {
		opts.StepInterval = 16 * time.Millisecond
	}
	if opts.CleanupDelay <= 0 {
		opts.CleanupDelay = gesture.DefaultCleanupDelay
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now().UTC()
	}

	sched := gesture.NewManualScheduler(opts.Start)
	doc, err := s.Document(undo.NewManager(undo.Config{}))
	if err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}
	doc.SetClock(sched.Now)
	engine := snap.New(snap.Config{Threshold: threshold, Logger: l})
	ctl := gesture.New(gesture.Config{
		Engine:       engine,
		Model:        doc,
		Scheduler:    sched,
		CleanupDelay: opts.CleanupDelay,
		MinSize:      opts.MinSize,
		Telemetry:    opts.Telemetry,
		Logger:       l,
	})

	run := &Run{
		ID:        uuid.NewString(),
		Scene:     s.Name,
		Threshold: threshold,
		StartedAt: opts.Start,
		Canvas:    s.Canvas,
		Initial:   doc.Elements(),
	}
	for gi, g := range s.Gestures {
		if err := ctx.Err(); err != nil {
			ctl.Cancel()
			return nil, err
		}
		out, err := playGesture(ctx, ctl, sched, opts.StepInterval, run, gi, g)
		if err != nil {
			ctl.Cancel()
			return nil, fmt.Errorf("gesture %d (%s %s): %w", gi+1, g.Kind, g.Target, err)
		}
		run.Outcomes = append(run.Outcomes, out)
		// let the registry cleanup fire before the next gesture
		sched.Advance(opts.CleanupDelay)
	}
	run.Final = doc.Elements()
	st := run.Stats()
	l.Info("replay finished",
		slog.String("run", run.ID),
		slog.String("scene", s.Name),
		slog.Int("frames", st.Frames),
		slog.Int("mismatches", st.Mismatches))
	return run, nil
}

func playGesture(ctx context.Context, ctl *gesture.Controller, sched *gesture.ManualScheduler, step time.Duration, run *Run, gi int, g scene.Gesture) (Outcome, error) {
	var (
		start geom.Bounds
		err   error
	)
	switch g.Kind {
	case string(gesture.KindMove):
		start, err = ctl.BeginMove(g.Target, g.Members...)
	case string(gesture.KindResize):
		start, err = ctl.BeginResize(g.Target, g.Direction)
	default:
		err = fmt.Errorf("unknown gesture kind %q", g.Kind)
	}
	if err != nil {
		return Outcome{}, err
	}

	var last gesture.Update
	for si, st := range g.Steps {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		ctl.SetSnapDisabled(st.NoSnap)
		var proposed geom.Bounds
		if g.Kind == string(gesture.KindMove) {
			proposed = start.Translate(st.DX, st.DY)
			last, err = ctl.MoveBy(st.DX, st.DY)
		} else {
			proposed = g.Direction.Apply(start, st.DX, st.DY)
			last, err = ctl.ResizeBy(st.DX, st.DY)
		}
		if err != nil {
			return Outcome{}, err
		}
		run.Frames = append(run.Frames, Frame{
			Gesture:  gi,
			Step:     si,
			Kind:     g.Kind,
			MovingID: last.ID,
			Proposed: proposed,
			Result:   last.Bounds,
			SnappedX: last.SnappedX,
			SnappedY: last.SnappedY,
			NoSnap:   st.NoSnap,
			Guides:   last.Guides,
			Members:  last.Members,
		})
		sched.Advance(step)
	}
	ctl.SetSnapDisabled(false)

	out := Outcome{Gesture: gi, Kind: g.Kind, Target: g.Target, Cancelled: g.Cancel, Final: last.Bounds}
	if g.Cancel {
		out.Final = start
		ctl.Cancel()
	} else if _, err := ctl.End(); err != nil {
		return Outcome{}, err
	}
	out.Summary = ctl.Summary()
	out.Mismatches = check(g.Expect, last)
	return out, nil
}

const tolerance = 1e-3

func check(want *scene.Expect, got gesture.Update) []string {
	if want == nil {
		return nil
	}
	var m []string
	if b := want.Bounds; b != nil {
		if !near(b.X, got.Bounds.X) || !near(b.Y, got.Bounds.Y) || !near(b.Width, got.Bounds.Width) || !near(b.Height, got.Bounds.Height) {
			m = append(m, fmt.Sprintf("bounds = %s, want %s", fmtBounds(got.Bounds), fmtBounds(*b)))
		}
	}
	if want.SnappedX != nil && *want.SnappedX != got.SnappedX {
		m = append(m, fmt.Sprintf("snapped_x = %t, want %t", got.SnappedX, *want.SnappedX))
	}
	if want.SnappedY != nil && *want.SnappedY != got.SnappedY {
		m = append(m, fmt.Sprintf("snapped_y = %t, want %t", got.SnappedY, *want.SnappedY))
	}
	return m
}

func near(a, b float32) bool { return geom.Abs(a-b) <= tolerance }

func fmtBounds(b geom.Bounds) string {
	return fmt.Sprintf("{%g %g %g %g}", b.X, b.Y, b.Width, b.Height)
}
