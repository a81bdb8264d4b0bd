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

// A matrix is a square grid of modules. dark marks the dark modules,
// reserved the structural ones (position boxes with their separators,
// timing lines and the fixed dark module). Reserved cells are never
// written by the seed-derived data fill.
type matrix struct {
	side     int
	dark     []bool
	reserved []bool
}

func newMatrix(side int) *matrix {
	return &matrix{
		side:     side,
		dark:     make([]bool, side*side),
		reserved: make([]bool, side*side),
	}
}

// set sets the module at column x, row y and marks it reserved.
func (m *matrix) set(x, y int, dark bool) {
	m.dark[y*m.side+x] = dark
	m.reserved[y*m.side+x] = true
}

func (m *matrix) isDark(x, y int) bool     { return m.dark[y*m.side+x] }
func (m *matrix) isReserved(x, y int) bool { return m.reserved[y*m.side+x] }

// placeFinder draws a 7x7 position box with its upper left module at
// column x, row y: a dark outer ring, a light ring, and a dark 3x3
// core. The one-module light separator around the box is reserved too,
// where in bounds, so the data fill never touches the margin.
func (m *matrix) placeFinder(x, y int) {
	for dy := -1; dy <= 7; dy++ {
		for dx := -1; dx <= 7; dx++ {
			px, py := x+dx, y+dy
			if px < 0 || py < 0 || px >= m.side || py >= m.side {
				continue
			}
			dark := false
			if dx >= 0 && dx <= 6 && dy >= 0 && dy <= 6 {
				dark = dx == 0 || dx == 6 || dy == 0 || dy == 6 ||
					dx >= 2 && dx <= 4 && dy >= 2 && dy <= 4
			}
			m.set(px, py, dark)
		}
	}
}

// placeTiming draws the two timing lines along row 6 and column 6,
// alternating dark/light with even indices dark, skipping cells
// already reserved by a position box.
func (m *matrix) placeTiming() {
	for i := 0; i < m.side; i++ {
		if !m.isReserved(i, 6) {
			m.set(i, 6, i%2 == 0)
		}
		if !m.isReserved(6, i) {
			m.set(6, i, i%2 == 0)
		}
	}
}

// buildMatrix lays out a payment code matrix of the given side length
// for seed. The structural regions are placed first, in a fixed order,
// and only then is the remainder filled from the seed-derived bit
// stream, so structural modules are identical across all seeds.
func buildMatrix(seed string, side int) *matrix {
	m := newMatrix(side)

	// Position boxes: top left, top right, bottom left.
	m.placeFinder(0, 0)
	m.placeFinder(side-7, 0)
	m.placeFinder(0, side-7)

	m.placeTiming()

	// One lonely dark module above the bottom left position box. It
	// carries no meaning; it is where a real code keeps its
	// format-information anchor.
	m.set(8, side-8, true)

	src := newBitSource(seed)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			if !m.isReserved(x, y) {
				m.dark[y*m.side+x] = src.next() == 1
			}
		}
	}
	return m
}
