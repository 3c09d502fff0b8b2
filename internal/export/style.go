/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders replay storyboards: one picture per frame showing
// the page, the element in flight and its active snap guides.
package export

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"pagesnap/internal/replay"
	"pagesnap/internal/snap"
)

// Options controls every exporter. Zero values pick defaults.
type Options struct {
	// Frames limits the export to these frame indexes; empty means all.
	Frames []int
	// Scale is output pixels per canvas unit for raster output.
	Scale float64
	// Labels draws element ids and the frame title.
	Labels bool
	// FontPath is a TrueType/OpenType file for raster labels; empty uses a
	// built-in bitmap face.
	FontPath string
	FontSize float64
	Style    Style
}

type Style struct {
	Element     color.RGBA
	Moving      color.RGBA
	Proposed    color.RGBA
	EdgeGuide   color.RGBA
	CenterGuide color.RGBA
	Background  color.RGBA
}

func DefaultStyle() Style {
	return Style{
		Element:     color.RGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff},
		Moving:      color.RGBA{R: 0x1f, G: 0x6f, B: 0xeb, A: 0xff},
		Proposed:    color.RGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff},
		EdgeGuide:   color.RGBA{R: 0xe0, G: 0x1e, B: 0x5a, A: 0xff},
		CenterGuide: color.RGBA{R: 0x12, G: 0xa1, B: 0x50, A: 0xff},
		Background:  color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Style == (Style{}) {
		o.Style = DefaultStyle()
	}
	return o
}

func (s Style) guide(g snap.Guide) color.RGBA {
	if g.Kind == snap.KindCenter {
		return s.CenterGuide
	}
	return s.EdgeGuide
}

// Format names an output kind.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSVG, FormatPNG, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want svg, png or pdf)", s)
}

// Run writes the storyboard of run into outDir and returns the written files.
// SVG and PNG produce one file per frame; PDF one multi-page document.
func Run(run *replay.Run, f Format, outDir string, opt Options) ([]string, error) {
	opt = opt.withDefaults()
	panels, err := run.Storyboard(opt.Frames...)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	switch f {
	case FormatPDF:
		path := filepath.Join(outDir, fileStem(run)+".pdf")
		if err := WritePDF(path, run, panels, opt); err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatSVG, FormatPNG:
		var files []string
		for _, p := range panels {
			path := filepath.Join(outDir, fmt.Sprintf("%s-g%02d-s%03d.%s", fileStem(run), p.Frame.Gesture+1, p.Frame.Step+1, f))
			var data []byte
			if f == FormatSVG {
				data, err = RenderSVG(run, p, opt)
			} else {
				data, err = RenderPNG(run, p, opt)
			}
			if err != nil {
				return files, err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return files, fmt.Errorf("write %s: %w", f, err)
			}
			files = append(files, path)
		}
		return files, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

func fileStem(run *replay.Run) string { return FileStem(run.Scene) }

// FileStem maps a page or scene name to a safe file name part: anything but
// ASCII letters, digits, '-' and '_' becomes '_'. An empty name yields "scene".
func FileStem(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" {
		name = "scene"
	}
	return name
}
