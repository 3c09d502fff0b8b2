/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image/color"

	"github.com/jung-kurt/gofpdf"

	"pagesnap/internal/replay"
)

// pdfMargin leaves room above the canvas for the panel title.
const pdfMargin = 24.0

// WritePDF writes all panels into one document, one page each. Canvas units
// map 1:1 to points.
func WritePDF(path string, run *replay.Run, panels []replay.Panel, opt Options) error {
	opt = opt.withDefaults()
	st := opt.Style
	cw, ch := float64(run.Canvas.Width), float64(run.Canvas.Height)
	size := gofpdf.SizeType{Wd: cw + 2*pdfMargin, Ht: ch + 2*pdfMargin}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	pdf.SetTitle(fmt.Sprintf("%s storyboard", run.Scene), true)
	pdf.SetAuthor("PageSnap", true)
	pdf.SetSubject("run "+run.ID, true)
	pdf.SetFont("Helvetica", "", 10)

	for _, p := range panels {
		pdf.AddPageFormat("", size)
		if opt.Labels {
			setDrawText(pdf, st.Element)
			pdf.Text(pdfMargin, pdfMargin-8, p.Title)
		}
		pdf.SetLineWidth(0.5)
		setDraw(pdf, st.Element)
		pdf.Rect(pdfMargin, pdfMargin, cw, ch, "D")

		if pr := p.Frame.Proposed; pr != p.Frame.Result {
			setDraw(pdf, st.Proposed)
			pdf.SetDashPattern([]float64{4, 2}, 0)
			pdf.Rect(pdfMargin+float64(pr.X), pdfMargin+float64(pr.Y), float64(pr.Width), float64(pr.Height), "D")
			pdf.SetDashPattern([]float64{}, 0)
		}
		for _, e := range p.Elements {
			col := st.Element
			if p.Moving[e.ID] {
				col = st.Moving
			}
			b := e.Bounds
			x, y := pdfMargin+float64(b.X), pdfMargin+float64(b.Y)
			setDraw(pdf, col)
			pdf.Rect(x, y, float64(b.Width), float64(b.Height), "D")
			if opt.Labels {
				setDrawText(pdf, col)
				pdf.Text(x+2, y+10, label(e.ID, e.Label))
			}
		}
		for _, g := range p.Frame.Guides {
			x1, y1, x2, y2 := guideLine(g)
			setDraw(pdf, st.guide(g))
			pdf.Line(pdfMargin+x1, pdfMargin+y1, pdfMargin+x2, pdfMargin+y2)
		}
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setDraw(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setDrawText(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}
