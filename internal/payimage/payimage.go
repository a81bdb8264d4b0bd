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

// Package payimage generates payment code images: square matrix
// barcode look-alikes whose data region is keyed by a seed string,
// serialized as grayscale PNG files.
//
// The images are not standards-compliant 2D barcodes: there is no
// error correction and no real data encoding. The matrix carries the
// structural regions a scanner-facing code has (position boxes, timing
// lines) and fills the rest deterministically from the seed, so that
// identical seeds always yield byte-identical files.
//
// Everything below the DEFLATE call is built from first principles:
// the CRC-32 table, the matrix layout, the rasterization and the PNG
// chunk assembly. Only compression is delegated, to
// github.com/klauspost/compress/zlib.
package payimage

import "fmt"

// The constants below are the image format version: changing any of
// them changes every generated image and must happen in lock-step with
// any consumer that inspects the structural regions.
const (
	// Side is the module count per matrix side.
	Side = 29

	// Scale is the pixel edge length of one module.
	Scale = 12

	// Quiet is the width of the light border around the matrix, in
	// modules.
	Quiet = 4

	// PixelSide is the pixel edge length of the generated image.
	PixelSide = (Side + 2*Quiet) * Scale
)

// Generate returns a complete PNG file displaying the payment code
// for seed. Generate is deterministic: two calls with the same seed
// return byte-identical output. It is safe for concurrent use; no
// state is shared between calls.
func Generate(seed string) ([]byte, error) {
	m := buildMatrix(seed, Side)
	rows := rasterize(m, Scale, Quiet)
	b, err := encodePNG(rows, PixelSide, PixelSide)
	if err != nil {
		return nil, fmt.Errorf("encoding payment code: %v", err)
	}
	return b, nil
}

// Raster returns the raw 8-bit grayscale pixel buffer for seed (one
// luminance byte per pixel, row-major, no row filter tags) and the
// pixel side length. It is used for embedding the code into container
// formats other than PNG, e.g. the receipt PDF.
func Raster(seed string) ([]byte, int) {
	m := buildMatrix(seed, Side)
	return grayPixels(m, Scale, Quiet), PixelSide
}
