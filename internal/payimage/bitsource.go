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
	"crypto/sha256"
	"strconv"
)

// A bitSource is an infinite deterministic bit stream derived from a
// seed string. Block n of the stream is SHA-256(seed || n), with n
// rendered as its decimal string starting at "0". Bits are consumed
// MSB-first within each digest byte.
//
// The decimal counter encoding is part of the image format: existing
// images were generated with it, so it must not change.
//
// A bitSource is owned by exactly one generation call and must not be
// shared across goroutines.
type bitSource struct {
	seed    string
	buf     []byte
	counter int
	pos     int // bit cursor into buf
}

func newBitSource(seed string) *bitSource {
	return &bitSource{seed: seed}
}

// next returns the next bit of the stream, 0 or 1.
func (s *bitSource) next() byte {
	if s.pos>>3 >= len(s.buf) {
		sum := sha256.Sum256([]byte(s.seed + strconv.Itoa(s.counter)))
		s.buf = append(s.buf, sum[:]...)
		s.counter++
	}
	bit := s.buf[s.pos>>3] >> (7 - s.pos&7) & 1
	s.pos++
	return bit
}
