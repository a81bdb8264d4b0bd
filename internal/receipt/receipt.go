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

// Package receipt renders printable PDF receipts for payment
// requests: a few lines of order detail above the payment code image,
// sized for 80mm thermal receipt paper.
package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/manit/pay2order"
	"github.com/manit/pay2order/internal/payimage"
)

// escapeText escapes the characters with special meaning inside PDF
// literal strings.
func escapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// contentStream returns the page description: the text lines at the
// top, the payment code image below.
func contentStream(lines []string) []byte {
	var buf bytes.Buffer

	buf.WriteString("BT\n/F1 9 Tf\n12 TL\n")
	fmt.Fprintf(&buf, "20.00 %.2f Td\n", pageHeight-30)
	for _, line := range lines {
		fmt.Fprintf(&buf, "(%s) '\n", escapeText(line))
	}
	buf.WriteString("ET\n")

	// Center the image horizontally, below the text block.
	const size = 180.0
	x := (pageWidth - size) / 2
	fmt.Fprintf(&buf, "q %.2f 0 0 %.2f %.2f %.2f cm /code Do Q\n", size, size, x, 60.0)

	return buf.Bytes()
}

// Generate returns a complete PDF receipt for req. The embedded image
// is pixel-identical to what Generate in the payimage package encodes
// for the same request.
func Generate(req *pay2order.CodeRequest, branch *pay2order.Branch, company *pay2order.Company) ([]byte, error) {
	pixels, side := payimage.Raster(req.Seed())
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(pixels); err != nil {
		zw.Close()
		return nil, fmt.Errorf("compressing image: %v", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing image: %v", err)
	}

	lines := []string{
		company.Name,
		branch.Name,
		"",
		"payment " + req.PaymentID,
		"served by " + req.UserID,
		"amount " + req.Amount,
		req.IssuedAt.Format("2006-01-02 15:04:05"),
		"",
		"Scan the code below to pay.",
	}

	doc := &catalog{
		common: common{objectName: "catalog"},
		pages: &pages{
			common: common{objectName: "pages"},
			kids: []object{
				&page{
					common: common{objectName: "page0"},
					resources: []object{
						&image{
							common: common{
								objectName: "code",
								stream:     compressed.Bytes(),
							},
							width:  side,
							height: side,
						},
					},
					fonts: []object{
						&font{
							common:   common{objectName: "F1"},
							baseFont: "Helvetica",
						},
					},
					parent: "pages",
					contents: []object{
						&common{
							objectName: "content0",
							stream:     contentStream(lines),
						},
					},
				},
			},
		},
	}
	info := &documentInfo{
		common:       common{objectName: "info"},
		creationDate: req.IssuedAt,
		producer:     "pay2order",
	}

	var buf bytes.Buffer
	if err := newEncoder(&buf).encode(doc, info); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
