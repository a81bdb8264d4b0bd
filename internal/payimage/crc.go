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

import "sync"

// crcPoly is the CRC-32 polynomial in reflected (LSB-first) form, as
// used by PNG, gzip and zip.
const crcPoly = 0xedb88320

var (
	crcOnce  sync.Once
	crcTable [256]uint32
)

// initCRCTable builds the 256-entry lookup table: each entry is its
// index run through eight shift-and-XOR rounds of crcPoly. The table
// is computed once and never mutated afterwards, so crcSum is safe for
// concurrent use.
func initCRCTable() {
	for i := range crcTable {
		crc := uint32(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ crcPoly
			} else {
				crc >>= 1
			}
		}
		crcTable[i] = crc
	}
}

// crcSum returns the CRC-32 checksum of b. The accumulator starts at
// all-ones and is inverted at the end, so the empty span checksums to
// zero.
func crcSum(b []byte) uint32 {
	crcOnce.Do(initCRCTable)
	crc := ^uint32(0)
	for _, v := range b {
		crc = crcTable[byte(crc)^v] ^ crc>>8
	}
	return ^crc
}
