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

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"testing"
)

// walkChunks splits a PNG file after the signature into its chunks,
// verifying each length and CRC against the standard library while at
// it.
func walkChunks(t *testing.T, b []byte) []struct {
	tag     string
	payload []byte
} {
	t.Helper()
	if !bytes.HasPrefix(b, []byte(pngHeader)) {
		t.Fatalf("output does not start with the PNG signature")
	}
	b = b[len(pngHeader):]
	var chunks []struct {
		tag     string
		payload []byte
	}
	for len(b) > 0 {
		if len(b) < 12 {
			t.Fatalf("trailing garbage: %d bytes left, need at least 12", len(b))
		}
		n := int(binary.BigEndian.Uint32(b[0:4]))
		if len(b) < 12+n {
			t.Fatalf("chunk length %d exceeds remaining %d bytes", n, len(b)-12)
		}
		tag := string(b[4:8])
		payload := b[8 : 8+n]
		want := crc32.ChecksumIEEE(b[4 : 8+n])
		if got := binary.BigEndian.Uint32(b[8+n : 12+n]); got != want {
			t.Fatalf("chunk %q: CRC %#08x, want %#08x", tag, got, want)
		}
		chunks = append(chunks, struct {
			tag     string
			payload []byte
		}{tag, payload})
		b = b[12+n:]
	}
	return chunks
}

func TestGenerateChunkLayout(t *testing.T) {
	b, err := Generate(sampleSeed)
	if err != nil {
		t.Fatal(err)
	}
	chunks := walkChunks(t, b)
	if got, want := len(chunks), 3; got != want {
		t.Fatalf("unexpected chunk count: got %d, want %d", got, want)
	}
	for i, want := range []string{"IHDR", "IDAT", "IEND"} {
		if got := chunks[i].tag; got != want {
			t.Errorf("chunk %d: got %q, want %q", i, got, want)
		}
	}

	ihdr := chunks[0].payload
	if got, want := len(ihdr), 13; got != want {
		t.Fatalf("IHDR payload: got %d bytes, want %d", got, want)
	}
	if got := binary.BigEndian.Uint32(ihdr[0:4]); got != PixelSide {
		t.Errorf("IHDR width: got %d, want %d", got, PixelSide)
	}
	if got := binary.BigEndian.Uint32(ihdr[4:8]); got != PixelSide {
		t.Errorf("IHDR height: got %d, want %d", got, PixelSide)
	}
	for i, want := range map[int]byte{
		8:  8, // bit depth
		9:  0, // color type grayscale
		10: 0, // compression
		11: 0, // filter
		12: 0, // interlace
	} {
		if got := ihdr[i]; got != want {
			t.Errorf("IHDR byte %d: got %d, want %d", i, got, want)
		}
	}

	if got := len(chunks[2].payload); got != 0 {
		t.Errorf("IEND payload: got %d bytes, want 0", got)
	}
}

// TestGenerateDecodes feeds the generated file through the standard
// library decoder and compares the decoded pixels against the raw
// raster.
func TestGenerateDecodes(t *testing.T) {
	b, err := Generate(sampleSeed)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decoding generated image: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("decoded image type %T, want *image.Gray", img)
	}
	bounds := gray.Bounds()
	if bounds.Dx() != PixelSide || bounds.Dy() != PixelSide {
		t.Fatalf("decoded size %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), PixelSide, PixelSide)
	}
	pixels, side := Raster(sampleSeed)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			if got, want := gray.GrayAt(x, y).Y, pixels[y*side+x]; got != want {
				t.Fatalf("decoded pixel (%d,%d): got %#x, want %#x", x, y, got, want)
			}
		}
	}
}

func TestGenerateDeterminism(t *testing.T) {
	a, err := Generate(sampleSeed)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(sampleSeed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("two generations of the same seed differ")
	}
}

func TestGenerateDistinctSeeds(t *testing.T) {
	a, err := Generate("PAYTO:PP|payment_id=1|branch=1|user=1|amount=1.00|ts=1700000000")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate("PAYTO:PP|payment_id=2|branch=1|user=1|amount=1.00|ts=1700000000")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("distinct seeds produced identical files")
	}
}

func BenchmarkGenerate(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Generate(sampleSeed); err != nil {
			b.Fatal(err)
		}
	}
}
