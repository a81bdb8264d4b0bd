// Copyright 2023 the pay2order authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package payimage

const (
	pixelBlack = 0x00
	pixelWhite = 0xff
)

// grayPixels expands m into a square grayscale pixel buffer, one
// luminance byte per pixel. Each module becomes a scale x scale block;
// the quiet zone of quiet modules around the matrix is unconditionally
// white.
func grayPixels(m *matrix, scale, quiet int) []byte {
	pix := (m.side + 2*quiet) * scale
	buf := make([]byte, 0, pix*pix)
	for y := 0; y < pix; y++ {
		my := y/scale - quiet
		for x := 0; x < pix; x++ {
			mx := x/scale - quiet
			if mx >= 0 && mx < m.side && my >= 0 && my < m.side && m.isDark(mx, my) {
				buf = append(buf, pixelBlack)
			} else {
				buf = append(buf, pixelWhite)
			}
		}
	}
	return buf
}

// rasterize expands m into filtered scanlines as consumed by the PNG
// data segment: each row of grayPixels prefixed with a single zero
// byte, the filter type "none".
func rasterize(m *matrix, scale, quiet int) []byte {
	pixels := grayPixels(m, scale, quiet)
	pix := (m.side + 2*quiet) * scale
	buf := make([]byte, 0, pix*(pix+1))
	for y := 0; y < pix; y++ {
		buf = append(buf, 0) // filter type "none"
		buf = append(buf, pixels[y*pix:(y+1)*pix]...)
	}
	return buf
}
