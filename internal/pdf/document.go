// Package pdf lays out the surgical report and the clinical-history summary.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// Physician is printed in headers and next to the signature line.
type Physician struct {
	Name      string
	Specialty string
	License   string
}

const (
	pageMargin = 16.0
	lineHeight = 5.5
)

// document wraps fpdf with the cp1252 translator and the shared styles.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string, physician Physician, generated time.Time) *document {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetMargins(pageMargin, 28, pageMargin)
	p.SetAutoPageBreak(true, 22)
	p.SetTitle(title, true)
	p.SetAuthor(physician.Name, true)
	p.SetCreationDate(generated)

	d := &document{pdf: p, tr: p.UnicodeTranslatorFromDescriptor("")}

	p.SetHeaderFunc(func() {
		p.SetFont("Helvetica", "B", 15)
		p.SetXY(pageMargin, 10)
		p.CellFormat(0, 8, d.tr(title), "", 1, "L", false, 0, "")
		p.SetFont("Helvetica", "", 9)
		p.CellFormat(0, 5, d.tr(physician.Name+" · "+physician.Specialty), "", 0, "L", false, 0, "")
		p.CellFormat(0, 5, FormatDate(generated)+" "+generated.Format("15:04"), "", 1, "R", false, 0, "")
		y := p.GetY() + 1
		p.Line(pageMargin, y, 210-pageMargin, y)
		p.SetY(y + 3)
	})
	p.SetFooterFunc(func() {
		p.SetY(-12)
		p.SetFont("Helvetica", "", 9)
		p.CellFormat(0, 5, fmt.Sprintf("%d", p.PageNo()), "", 0, "R", false, 0, "")
	})
	p.AddPage()
	return d
}

func (d *document) section(title string) {
	d.pdf.Ln(2)
	d.pdf.SetFont("Helvetica", "B", 12)
	d.pdf.SetFillColor(235, 239, 245)
	d.pdf.CellFormat(0, 7, d.tr(title), "", 1, "L", true, 0, "")
	d.pdf.Ln(1)
}

// field prints "Label: value" with the value in bold.
func (d *document) field(label, value string) {
	d.pdf.SetFont("Helvetica", "", 10)
	lw := d.pdf.GetStringWidth(d.tr(label)) + 2
	d.pdf.CellFormat(lw, lineHeight, d.tr(label), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.MultiCell(0, lineHeight, d.tr(value), "", "L", false)
}

// fieldPair prints two fields side by side.
func (d *document) fieldPair(l1, v1, l2, v2 string) {
	half := (210 - 2*pageMargin) / 2
	d.inline(half, l1, v1, 0)
	d.inline(0, l2, v2, 1)
}

// inline prints label and bold value in a cell of the given width; zero
// extends to the right margin.
func (d *document) inline(width float64, label, value string, ln int) {
	d.pdf.SetFont("Helvetica", "", 10)
	lw := d.pdf.GetStringWidth(d.tr(label)) + 1.5
	d.pdf.CellFormat(lw, lineHeight, d.tr(label), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "B", 10)
	vw := 0.0
	if width > 0 {
		vw = width - lw
	}
	d.pdf.CellFormat(vw, lineHeight, d.tr(value), "", ln, "L", false, 0, "")
}

func (d *document) paragraph(text string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "J", false)
}

func (d *document) muted(text string) {
	d.pdf.SetFont("Helvetica", "I", 9)
	d.pdf.SetTextColor(110, 110, 110)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "L", false)
	d.pdf.SetTextColor(0, 0, 0)
}

// signature draws the signature line with the physician block under it.
func (d *document) signature(physician Physician) {
	if d.pdf.GetY() > 297-60 {
		d.pdf.AddPage()
	}
	d.pdf.Ln(18)
	x := 210 - pageMargin - 70
	y := d.pdf.GetY()
	d.pdf.Line(x, y, x+70, y)
	d.pdf.SetXY(x, y+1)
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.CellFormat(70, 5, "Firma", "", 2, "C", false, 0, "")
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.CellFormat(70, 5, d.tr(physician.Name), "", 2, "C", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.CellFormat(70, 4.5, d.tr(physician.Specialty), "", 2, "C", false, 0, "")
	d.pdf.CellFormat(70, 4.5, d.tr(physician.License), "", 2, "C", false, 0, "")
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}
