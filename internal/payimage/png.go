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
	"fmt"

	"github.com/klauspost/compress/zlib"
)

const pngHeader = "\x89PNG\r\n\x1a\n"

// encodePNG assembles a grayscale PNG file from filtered scanlines:
// the fixed signature, then the IHDR, IDAT and IEND chunks in that
// order. Each chunk is length-prefixed and followed by the CRC-32 of
// its type tag and payload. The only fallible step is compression;
// its error is propagated unchanged.
func encodePNG(rows []byte, width, height int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(rows)/4 + 1024)
	buf.WriteString(pngHeader)

	// Header chunk: 13 payload bytes.
	var tmp [13]byte
	binary.BigEndian.PutUint32(tmp[0:4], uint32(width))
	binary.BigEndian.PutUint32(tmp[4:8], uint32(height))
	tmp[8] = 8  // bit depth
	tmp[9] = 0  // grayscale, no alpha
	tmp[10] = 0 // deflate
	tmp[11] = 0 // adaptive filtering
	tmp[12] = 0 // no interlace
	writeChunk(&buf, "IHDR", tmp[:13])

	var zbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	if _, err := zw.Write(rows); err != nil {
		zw.Close()
		return nil, fmt.Errorf("compressing image data: %v", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing image data: %v", err)
	}
	writeChunk(&buf, "IDAT", zbuf.Bytes())

	writeChunk(&buf, "IEND", nil)
	return buf.Bytes(), nil
}

// writeChunk appends one chunk to buf: payload length (big-endian),
// 4-byte type tag, payload, CRC-32 over tag and payload.
func writeChunk(buf *bytes.Buffer, tag string, payload []byte) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(payload)))
	buf.Write(tmp[:])
	start := buf.Len()
	buf.WriteString(tag)
	buf.Write(payload)
	binary.BigEndian.PutUint32(tmp[:], crcSum(buf.Bytes()[start:]))
	buf.Write(tmp[:])
}
