/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strings"

	"pagesnap/internal/replay"
	"pagesnap/internal/snap"
)

// RenderSVG draws one storyboard panel. The viewBox is the canvas; width and
// height attributes apply Scale.
func RenderSVG(run *replay.Run, p replay.Panel, opt Options) ([]byte, error) {
	opt = opt.withDefaults()
	st := opt.Style
	w, h := float64(run.Canvas.Width), float64(run.Canvas.Height)

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"0 0 %g %g\">\n",
		int(math.Round(w*opt.Scale)), int(math.Round(h*opt.Scale)), w, h)
	if opt.Labels {
		wf("  <title>%s</title>\n", escText(p.Title))
	}
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"1\"/>\n", w, h, svgColor(st.Background), svgColor(st.Element))

	// proposed geometry underneath the corrected one
	pr := p.Frame.Proposed
	if pr != p.Frame.Result {
		wf("  <rect class=\"proposed\" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"none\" stroke=\"%s\" stroke-dasharray=\"4 2\"/>\n",
			pr.X, pr.Y, pr.Width, pr.Height, svgColor(st.Proposed))
	}
	for _, e := range p.Elements {
		b := e.Bounds
		col := st.Element
		if p.Moving[e.ID] {
			col = st.Moving
		}
		wf("  <rect id=\"%s\" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"none\" stroke=\"%s\" stroke-width=\"1\"/>\n",
			escAttr(e.ID), b.X, b.Y, b.Width, b.Height, svgColor(col))
		if opt.Labels {
			wf("  <text x=\"%g\" y=\"%g\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"10\" fill=\"%s\">%s</text>\n",
				b.X+2, b.Y+11, svgColor(col), escText(label(e.ID, e.Label)))
		}
	}
	for _, g := range p.Frame.Guides {
		x1, y1, x2, y2 := guideLine(g)
		wf("  <line class=\"guide %s\" x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" stroke=\"%s\" stroke-width=\"1\"/>\n",
			g.Kind, x1, y1, x2, y2, svgColor(st.guide(g)))
	}
	wf("</svg>\n")
	if werr != nil {
		return nil, fmt.Errorf("build svg: %w", werr)
	}
	return buf.Bytes(), nil
}

// guideLine returns the segment of a guide: vertical for the x axis.
func guideLine(g snap.Guide) (x1, y1, x2, y2 float64) {
	pos, a, b := float64(g.Position), float64(g.Start), float64(g.End)
	if g.Axis == snap.AxisX {
		return pos, a, pos, b
	}
	return a, pos, b, pos
}

func label(id, lbl string) string {
	if lbl == "" {
		return id
	}
	return id + " " + lbl
}

func svgColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var (
	attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", "<", "&lt;", "\n", " ", "\r", "")
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

func escAttr(s string) string { return attrEscaper.Replace(s) }

func escText(s string) string { return textEscaper.Replace(s) }
