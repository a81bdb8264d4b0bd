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
	"fmt"
	"io"
	"strings"
	"time"
)

// This file implements a minimal PDF 1.7 writer, just functional
// enough to create a single receipt-sized page carrying a
// flate-compressed grayscale payment code image and a few lines of
// text.
//
// It follows the standard “PDF 32000-1:2008 PDF 1.7”:
// https://www.adobe.com/content/dam/Adobe/en/devnet/acrobat/pdfs/PDF32000_2008.pdf

// The page is sized for 80mm thermal receipt paper, in points.
const (
	pageWidth  = 226.77
	pageHeight = 396.85
)

func dateString(t time.Time) string {
	return "D:" + t.Format("20060102150405-07'00'")
}

// objectID is a PDF object id.
type objectID int

// String implements fmt.Stringer.
func (o objectID) String() string {
	return fmt.Sprintf("%d 0 R", int(o))
}

// object is implemented by all PDF objects.
type object interface {
	// objects returns all objects which should be encoded into the
	// PDF file.
	objects() []object

	// encode encodes the object into the PDF file w.
	encode(w io.Writer, ids map[string]objectID) error

	// setID updates the object id.
	setID(id objectID)

	// name returns the human-readable object name.
	name() string

	fmt.Stringer
}

// common represents a PDF object.
type common struct {
	objectName string
	id         objectID
	stream     []byte
}

// String implements fmt.Stringer.
func (c *common) String() string {
	return c.id.String()
}

func (c *common) setID(id objectID) {
	c.id = id
}

func (c *common) name() string {
	return c.objectName
}

func (c *common) objects() []object {
	return []object{c}
}

func (c *common) encode(w io.Writer, ids map[string]objectID) error {
	_, err := fmt.Fprintf(w, `
%d 0 obj
<<
  /Length %d
>>
stream
%s
endstream
endobj`, c.id, len(c.stream), c.stream)
	return err
}

// documentInfo represents a PDF document information object.
type documentInfo struct {
	common

	creationDate time.Time
	producer     string
}

func (d *documentInfo) objects() []object {
	return []object{d}
}

func (d *documentInfo) encode(w io.Writer, ids map[string]objectID) error {
	_, err := fmt.Fprintf(w, `
%d 0 obj
<<
  /CreationDate (%s)
  /Producer (%s)
>>
endobj`, int(d.id), dateString(d.creationDate), d.producer)
	return err
}

// catalog represents a PDF catalog object.
type catalog struct {
	common
	pages object
}

func (r *catalog) objects() []object {
	return append([]object{r}, r.pages.objects()...)
}

func (r *catalog) encode(w io.Writer, ids map[string]objectID) error {
	_, err := fmt.Fprintf(w, `
%d 0 obj
<<
  /Type /Catalog
  /Pages %v
>>
endobj`, int(r.id), r.pages)
	return err
}

// pages represents a PDF pages object.
type pages struct {
	common
	kids []object // page
}

func (p *pages) objects() []object {
	result := []object{p}
	for _, o := range p.kids {
		result = append(result, o.objects()...)
	}
	return result
}

func (p *pages) encode(w io.Writer, ids map[string]objectID) error {
	_, err := fmt.Fprintf(w, `
%d 0 obj
<<
  /Kids %v
  /Type /Pages
  /Count %d
>>
endobj`, int(p.id), p.kids, len(p.kids))
	return err
}

// page represents a receipt-sized PDF page object.
type page struct {
	common

	resources []object // image
	fonts     []object // font
	contents  []object // common (streams)

	// parent contains the human-readable name of the parent object,
	// which will be translated into an object ID when encoding.
	parent string
}

func (p *page) objects() []object {
	result := []object{p}
	for _, o := range p.resources {
		result = append(result, o.objects()...)
	}
	for _, o := range p.fonts {
		result = append(result, o.objects()...)
	}
	for _, o := range p.contents {
		result = append(result, o.objects()...)
	}
	return result
}

func (p *page) encode(w io.Writer, ids map[string]objectID) error {
	xObjects := make([]string, len(p.resources))
	for idx, o := range p.resources {
		xObjects[idx] = fmt.Sprintf("/%s %v", o.name(), ids[o.name()])
	}
	fonts := make([]string, len(p.fonts))
	for idx, o := range p.fonts {
		fonts[idx] = fmt.Sprintf("/%s %v", o.name(), ids[o.name()])
	}
	_, err := fmt.Fprintf(w, `
%d 0 obj
<<
  /Resources <<
    /XObject <<
%s
    >>
    /Font <<
%s
    >>
  >>
  /Contents %v
  /Parent %v
  /Type /Page
  /MediaBox [ 0 0 %.2f %.2f ]
>>
endobj`, int(p.id), strings.Join(xObjects, "\n"), strings.Join(fonts, "\n"), p.contents, ids[p.parent], pageWidth, pageHeight)
	return err
}

// image represents a flate-compressed 8-bit grayscale PDF image
// object. stream must hold the zlib-compressed pixel data.
type image struct {
	common

	width  int
	height int
}

func (i *image) objects() []object { return []object{i} }

func (i *image) encode(w io.Writer, ids map[string]objectID) error {
	_, err := fmt.Fprintf(w, `
%d 0 obj
<<
  /Subtype /Image
  /Type /XObject
  /Width %d
  /Filter /FlateDecode
  /Height %d
  /Length %d
  /BitsPerComponent 8
  /ColorSpace /DeviceGray
>>
stream
%s
endstream
endobj`, int(i.common.id), i.width, i.height, len(i.common.stream), i.common.stream)
	return err
}

// font represents a built-in Type1 PDF font object.
type font struct {
	common
	baseFont string
}

func (f *font) objects() []object { return []object{f} }

func (f *font) encode(w io.Writer, ids map[string]objectID) error {
	_, err := fmt.Fprintf(w, `
%d 0 obj
<<
  /Type /Font
  /Subtype /Type1
  /BaseFont /%s
>>
endobj`, int(f.id), f.baseFont)
	return err
}

type countingWriter struct {
	cnt int
	w   io.Writer
}

func (cw *countingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	cw.cnt += n
	return n, err
}

// encoder is a PDF writer.
type encoder struct {
	w *countingWriter
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{
		w: &countingWriter{w: w},
	}
}

// writeXrefTable writes a cross-reference table to e.w. See also “PDF
// 32000-1:2008 PDF 1.7” section “7.5.4 Cross-Reference Table”
func (e *encoder) writeXrefTable(objects []object, xrefOffsets []int) error {
	if _, err := fmt.Fprintf(e.w, "\nxref\n0 %d\n", len(objects)+1); err != nil {
		return err
	}

	// index 0 can never point to a valid object, so print an invalid entry:
	if _, err := fmt.Fprintf(e.w, "%010d %05d %s \n", 0, 65535, "f"); err != nil {
		return err
	}

	const generation = 0
	for _, offset := range xrefOffsets {
		if _, err := fmt.Fprintf(e.w, "%010d %05d %s \n", offset, generation, "n"); err != nil {
			return err
		}
	}
	return nil
}

// encode writes the PDF file represented by the specified catalog.
func (e *encoder) encode(r *catalog, info *documentInfo) error {
	// As per “PDF Explained: How a PDF File is Written”:
	// https://www.geekbooks.me/book/view/pdf-explained

	// (1.) Output the header.

	// Byte sequence 0xE2E3CFD3 as per the recommendation from
	// “Developing with PDF”. See “Chapter 1. PDF Syntax”:
	// https://www.safaribooksonline.com/library/view/developing-with-pdf/9781449327903/ch01.html#_header
	if _, err := e.w.Write(append([]byte("%PDF-1.0\n%"), 0xe2, 0xe3, 0xcf, 0xd3)); err != nil {
		return err
	}

	// Flatten the object graph into a slice
	objects := append(r.objects(), info.objects()...)

	// (3.) Assign ids from 1 to n and store them in a lookup table
	// (some objects need to resolve name references when encoding).
	ids := make(map[string]objectID, len(objects))
	for idx, obj := range objects {
		id := objectID(idx + 1)
		obj.setID(id)
		ids[obj.name()] = id
	}

	// (4.) Output the objects one by one, starting with object number
	// one, recording the byte offset of each for the cross-reference
	// table.
	xrefOffsets := make([]int, len(objects))
	for idx, obj := range objects {
		xrefOffsets[idx] = e.w.cnt + 1
		if err := obj.encode(e.w, ids); err != nil {
			return err
		}
	}

	// (5.) Write the cross-reference table.
	xrefOffset := e.w.cnt

	if err := e.writeXrefTable(objects, xrefOffsets); err != nil {
		return err
	}

	// (6.) Write the trailer, trailer dictionary, and end-of-file marker.
	if _, err := fmt.Fprintf(e.w, `trailer
<<
  /Root %v
  /Size %d
  /Info %v
>>
startxref
%d
%%%%EOF
`, ids["catalog"], len(objects)+1, ids["info"], xrefOffset); err != nil {
		return err
	}

	return nil
}
