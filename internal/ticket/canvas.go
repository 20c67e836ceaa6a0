// Package ticket renders reservation tickets: a fixed-geometry A4 page
// with the main section, a tear-off stub, the purchase conditions and a
// Code-128 barcode footer.
//
// The layout is expressed as draw commands against Canvas so it can be
// checked without producing a PDF; PDFCanvas is the production backend.
package ticket

import "io"

// Page geometry in millimetres.
const (
	PageWidth  = 210.0
	PageHeight = 297.0
)

// Region tags the section a draw command belongs to.
type Region string

const (
	RegionMain       Region = "main"
	RegionStub       Region = "stub"
	RegionConditions Region = "conditions"
	RegionFooter     Region = "footer"
)

// Align is a horizontal text alignment.
type Align string

const (
	AlignLeft    Align = "L"
	AlignCenter  Align = "C"
	AlignRight   Align = "R"
	AlignJustify Align = "J"
)

// Box is an axis-aligned rectangle with its origin at the top-left corner.
type Box struct {
	X, Y, W, H float64
}

// Right is the x coordinate of the right edge.
func (b Box) Right() float64 { return b.X + b.W }

// Bottom is the y coordinate of the bottom edge.
func (b Box) Bottom() float64 { return b.Y + b.H }

// Intersects reports whether the boxes share a region of positive area.
// Touching edges do not count.
func (b Box) Intersects(o Box) bool {
	return b.X < o.Right() && o.X < b.Right() && b.Y < o.Bottom() && o.Y < b.Bottom()
}

// Font selects one of the standard Helvetica faces.
type Font struct {
	Bold bool
	Size float64
}

// Image is a raster asset ready to be placed on the page.
type Image struct {
	Name   string
	Type   string // PNG, JPG or GIF
	Data   []byte
	Width  int // pixels
	Height int // pixels
}

// Canvas places content at absolute page coordinates.
type Canvas interface {
	// BeginRegion tags every following command until the next call.
	BeginRegion(r Region)
	SetFont(f Font)
	// Text draws a single line of text in box.
	Text(b Box, s string, align Align, border bool)
	// TextBlock wraps s inside box using lineHeight per line.
	TextBlock(b Box, lineHeight float64, s string, align Align, border bool)
	Rect(b Box)
	Image(b Box, img *Image)
	// Barcode draws payload as a Code-128 symbol filling box.
	Barcode(b Box, payload string) error
}

// Document is a Canvas that can serialize what was drawn on it.
type Document interface {
	Canvas
	WriteTo(w io.Writer) (int64, error)
}

// Meta is the document information dictionary.
type Meta struct {
	Title   string
	Subject string
}
