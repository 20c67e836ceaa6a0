package ticket

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// PDFCanvas draws on a single A4 page with the core Helvetica font.
type PDFCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewPDF opens a blank portrait A4 document in millimetres.
func NewPDF(meta Meta) (Document, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreator("Sistema de Reservas - Autocares Bravo", true)
	pdf.SetAuthor("Autocares Bravo Palacios", true)
	pdf.SetTitle(meta.Title, true)
	pdf.SetSubject(meta.Subject, true)
	pdf.SetKeywords("billete, reserva, medina azahara, autobus", true)
	pdf.SetCreationDate(time.Now().UTC())
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 10)
	pdf.AddPage()
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderingUnavailable, err)
	}
	return &PDFCanvas{
		pdf: pdf,
		// core fonts are cp1252; translate accents and the euro sign
		tr: pdf.UnicodeTranslatorFromDescriptor(""),
	}, nil
}

func (p *PDFCanvas) BeginRegion(Region) {}

func (p *PDFCanvas) SetFont(f Font) {
	style := ""
	if f.Bold {
		style = "B"
	}
	p.pdf.SetFont("Helvetica", style, f.Size)
}

func (p *PDFCanvas) Text(b Box, s string, align Align, border bool) {
	p.pdf.SetXY(b.X, b.Y)
	p.pdf.CellFormat(b.W, b.H, p.tr(s), borderStr(border), 0, string(align), false, 0, "")
}

func (p *PDFCanvas) TextBlock(b Box, lineHeight float64, s string, align Align, border bool) {
	p.pdf.SetXY(b.X, b.Y)
	p.pdf.MultiCell(b.W, lineHeight, p.tr(s), "", string(align), false)
	if border {
		p.pdf.Rect(b.X, b.Y, b.W, b.H, "D")
	}
}

func (p *PDFCanvas) Rect(b Box) {
	p.pdf.Rect(b.X, b.Y, b.W, b.H, "D")
}

func (p *PDFCanvas) Image(b Box, img *Image) {
	opts := fpdf.ImageOptions{ImageType: img.Type}
	p.pdf.RegisterImageOptionsReader(img.Name, opts, bytes.NewReader(img.Data))
	p.pdf.ImageOptions(img.Name, b.X, b.Y, b.W, b.H, false, opts, 0, "")
}

// Barcode fills one rectangle per dark run, so nothing is cached between
// documents.
func (p *PDFCanvas) Barcode(b Box, payload string) error {
	modules, runs, err := code128Bars(payload)
	if err != nil {
		return err
	}
	unit := b.W / float64(modules)
	p.pdf.SetFillColor(0, 0, 0)
	for _, r := range runs {
		p.pdf.Rect(b.X+float64(r.Start)*unit, b.Y, float64(r.Width)*unit, b.H, "F")
	}
	return p.pdf.Error()
}

// WriteTo serializes the document.
func (p *PDFCanvas) WriteTo(w io.Writer) (int64, error) {
	if err := p.pdf.Error(); err != nil {
		return 0, err
	}
	cw := &countingWriter{w: w}
	if err := p.pdf.Output(cw); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func borderStr(border bool) string {
	if border {
		return "1"
	}
	return ""
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
