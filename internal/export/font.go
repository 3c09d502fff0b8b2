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
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

const defaultFontSize = 11

// labelFace loads the raster label face. An empty path gives the 7x13 bitmap
// face, which ignores size.
func labelFace(path string, size float64) (font.Face, error) {
	if path == "" {
		return basicfont.Face7x13, nil
	}
	if size <= 0 {
		size = defaultFontSize
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font %s at %gpt: %w", path, size, err)
	}
	return face, nil
}

func faceAscent(face font.Face) int { return face.Metrics().Ascent.Ceil() }

// fitLabel cuts s and appends "..." until it is at most maxWidth pixels wide.
// Nothing is drawn when even the dots do not fit.
func fitLabel(face font.Face, s string, maxWidth int) string {
	if font.MeasureString(face, s).Ceil() <= maxWidth {
		return s
	}
	r := []rune(s)
	for k := len(r) - 1; k >= 0; k-- {
		if t := string(r[:k]) + "..."; font.MeasureString(face, t).Ceil() <= maxWidth {
			return t
		}
	}
	return ""
}
