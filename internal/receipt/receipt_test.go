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

package receipt

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zlib"

	"github.com/manit/pay2order"
	"github.com/manit/pay2order/internal/payimage"
)

func testRequest() (*pay2order.CodeRequest, *pay2order.Branch, *pay2order.Company) {
	req := &pay2order.CodeRequest{
		Target:    "PP",
		PaymentID: "123",
		BranchID:  "1",
		UserID:    "42",
		Amount:    "100.00",
		IssuedAt:  time.Unix(1700000000, 0).UTC(),
	}
	branch := &pay2order.Branch{ID: "1", Name: "Riverside", CompanyID: "acme"}
	company := &pay2order.Company{ID: "acme", Name: "ACME Foods", Target: "PP"}
	return req, branch, company
}

func TestGenerate(t *testing.T) {
	b, err := Generate(testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-1.0\n")) {
		t.Fatalf("output does not start with a PDF header")
	}
	if !bytes.HasSuffix(b, []byte("%%EOF\n")) {
		t.Fatalf("output does not end with the end-of-file marker")
	}
	for _, want := range []string{
		"/Filter /FlateDecode",
		"/ColorSpace /DeviceGray",
		"/BaseFont /Helvetica",
		"(ACME Foods)",
		"(Riverside)",
		"(payment 123)",
		"(amount 100.00)",
		"/code Do",
	} {
		if !bytes.Contains(b, []byte(want)) {
			t.Errorf("output does not contain %q", want)
		}
	}
}

// TestGenerateEmbedsImage verifies the embedded image stream is the
// compressed raster of the same request.
func TestGenerateEmbedsImage(t *testing.T) {
	req, branch, company := testRequest()
	b, err := Generate(req, branch, company)
	if err != nil {
		t.Fatal(err)
	}
	pixels, _ := payimage.Raster(req.Seed())
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(pixels); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(b, compressed.Bytes()) {
		t.Fatalf("output does not contain the compressed payment code raster")
	}
}

func TestEscapeText(t *testing.T) {
	if got, want := escapeText(`a(b)c\d`), `a\(b\)c\\d`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestContentStreamEscapes(t *testing.T) {
	cs := string(contentStream([]string{"Joe's (Grill)"}))
	if !strings.Contains(cs, `(Joe's \(Grill\)) '`) {
		t.Errorf("content stream does not escape parentheses: %s", cs)
	}
}
