/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"io"

	"pagesnap/internal/layout"
	"pagesnap/internal/replay"
	"pagesnap/internal/scene"
)

// WriteDocumentSVG draws the committed state of a page, without guides.
func WriteDocumentSVG(w io.Writer, doc *layout.Document, opt Options) error {
	s := doc.Snapshot()
	run := &replay.Run{Scene: s.Page, Canvas: scene.Canvas{Width: s.Width, Height: s.Height}}
	p := replay.Panel{Title: s.Page, Elements: s.Elements}
	b, err := RenderSVG(run, p, opt)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
