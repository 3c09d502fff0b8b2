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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"pagesnap/internal/geom"
	"pagesnap/internal/replay"
)

// RenderPNG rasterises one storyboard panel at opt.Scale pixels per unit.
func RenderPNG(run *replay.Run, p replay.Panel, opt Options) ([]byte, error) {
	opt = opt.withDefaults()
	st := opt.Style
	sc := opt.Scale
	pixW := int(math.Round(float64(run.Canvas.Width) * sc))
	pixH := int(math.Round(float64(run.Canvas.Height) * sc))
	if pixW <= 0 || pixH <= 0 {
		return nil, fmt.Errorf("canvas %gx%g has no pixels at scale %g", run.Canvas.Width, run.Canvas.Height, sc)
	}

	face, err := labelFace(opt.FontPath, opt.FontSize*sc)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: st.Background}, image.Point{}, draw.Src)
	strokeRect(img, 0, 0, pixW-1, pixH-1, st.Element)

	px := func(v float32) int { return int(math.Round(float64(v) * sc)) }
	box := func(b geom.Bounds, col color.RGBA, dashed bool) {
		x0, y0 := px(b.X), px(b.Y)
		x1, y1 := px(b.Right())-1, px(b.Bottom())-1
		if x1 < x0 {
			x1 = x0
		}
		if y1 < y0 {
			y1 = y0
		}
		if dashed {
			dashedRect(img, x0, y0, x1, y1, col)
			return
		}
		strokeRect(img, x0, y0, x1, y1, col)
	}

	if pr := p.Frame.Proposed; pr != p.Frame.Result {
		box(pr, st.Proposed, true)
	}
	for _, e := range p.Elements {
		col := st.Element
		if p.Moving[e.ID] {
			col = st.Moving
		}
		box(e.Bounds, col, false)
		if opt.Labels {
			x0, x1 := px(e.Bounds.X), px(e.Bounds.Right())
			drawLabel(img, face, x0+2, px(e.Bounds.Y)+faceAscent(face)+2, fitLabel(face, label(e.ID, e.Label), x1-x0-4), col)
		}
	}
	for _, g := range p.Frame.Guides {
		x1, y1, x2, y2 := guideLine(g)
		line(img, int(math.Round(x1*sc)), int(math.Round(y1*sc)), int(math.Round(x2*sc)), int(math.Round(y2*sc)), st.guide(g))
	}
	if opt.Labels {
		drawLabel(img, face, 4, pixH-4, fitLabel(face, p.Title, pixW-8), st.Element)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawLabel writes s with its baseline at (x, y).
func drawLabel(img *image.RGBA, face font.Face, x, y int, s string, col color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		setPx(img, x, y0, col)
		setPx(img, x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		setPx(img, x0, y, col)
		setPx(img, x1, y, col)
	}
}

func dashedRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	on := func(i int) bool { return i%6 < 4 }
	for x := x0; x <= x1; x++ {
		if on(x - x0) {
			setPx(img, x, y0, col)
			setPx(img, x, y1, col)
		}
	}
	for y := y0; y <= y1; y++ {
		if on(y - y0) {
			setPx(img, x0, y, col)
			setPx(img, x1, y, col)
		}
	}
}

// line only handles the axis-aligned segments guides produce.
func line(img *image.RGBA, x1, y1, x2, y2 int, col color.RGBA) {
	if x1 == x2 {
		if y2 < y1 {
			y1, y2 = y2, y1
		}
		for y := y1; y <= y2; y++ {
			setPx(img, x1, y, col)
		}
		return
	}
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	for x := x1; x <= x2; x++ {
		setPx(img, x, y1, col)
	}
}

func setPx(img *image.RGBA, x, y int, col color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Rect) {
		img.SetRGBA(x, y, col)
	}
}
