/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ui hosts the interactive layout playground. The interaction state
// machine in this file set builds everywhere; the Fyne window around it is
// only compiled with -tags fyne.
package ui

import (
	"fmt"
	"time"

	"pagesnap/internal/config"
	"pagesnap/internal/geom"
	"pagesnap/internal/gesture"
	"pagesnap/internal/layout"
	"pagesnap/internal/scene"
	"pagesnap/internal/telemetry"
	"pagesnap/internal/undo"
)

// Options configures Run.
type Options struct {
	// ScenePath is opened on start; empty opens the demo page.
	ScenePath string
	Config    config.AppConfig
	Telemetry *telemetry.Client
}

// demo page used when no scene is given
var demoElements = []layout.Element{
	{ID: "title", Label: "Title", Bounds: geom.B(40, 40, 320, 60)},
	{ID: "photo", Label: "Photo", Bounds: geom.B(40, 140, 240, 180)},
	{ID: "caption", Label: "Caption", Bounds: geom.B(320, 150, 200, 80)},
	{ID: "card", Label: "Card", Bounds: geom.B(420, 300, 160, 160)},
}

func newHistory() *undo.Manager {
	return undo.NewManager(undo.Config{MaxBytes: 8 * 1024 * 1024, MaxPerPage: 100})
}

// OpenDocument loads the scene at path, or the demo page when path is empty.
// The returned threshold is the scene's own snap threshold, zero when unset.
func OpenDocument(path string, hist *undo.Manager) (*layout.Document, float32, error) {
	if path == "" {
		d := layout.New("playground", 800, 600, hist)
		for _, e := range demoElements {
			if err := d.Add(e); err != nil {
				return nil, 0, err
			}
		}
		return d, 0, nil
	}
	sc, err := scene.Load(path)
	if err != nil {
		return nil, 0, err
	}
	d, err := sc.Document(hist)
	if err != nil {
		return nil, 0, fmt.Errorf("build %s: %w", path, err)
	}
	return d, sc.Threshold, nil
}

// Playground opens the configured page and wires a playground around it.
// A scene threshold wins over the configured one.
func (o Options) Playground() (*Playground, error) {
	doc, threshold, err := OpenDocument(o.ScenePath, newHistory())
	if err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = o.Config.Snap.Threshold
	}
	return NewPlayground(doc, PlaygroundConfig{
		Threshold:    threshold,
		MinSize:      o.Config.Gesture.MinSize,
		CleanupDelay: o.Config.Gesture.CleanupDelay(),
		Telemetry:    o.Telemetry,
	}), nil
}

// PlaygroundConfig tunes the engine and controller behind a Playground.
type PlaygroundConfig struct {
	Threshold    float32
	MinSize      float32
	CleanupDelay time.Duration
	// Scheduler defaults to wall-clock timers.
	Scheduler gesture.Scheduler
	Telemetry *telemetry.Client
}
