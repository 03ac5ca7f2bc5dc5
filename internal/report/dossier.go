// Package report renders product intelligence as a PDF dossier.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/letscience-intel-server/internal/domain"
)

const (
	maxTrialRows    = 20
	maxPatentCards  = 10
	maxTitleLength  = 80
	patentTermYears = 20
)

// Generator renders dossiers
type Generator struct {
	// Compress deflates page streams. Tests turn it off to inspect text.
	Compress bool
	now      func() time.Time
}

// NewGenerator creates a generator with compressed output
func NewGenerator() *Generator {
	return &Generator{Compress: true, now: time.Now}
}

type dossier struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// Generate writes the dossier of a product to w
func (g *Generator) Generate(intel *domain.ProductIntelligence, w io.Writer) error {
	if intel == nil || intel.Product == nil {
		return fmt.Errorf("product intelligence is required")
	}
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	product := intel.Product

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(g.Compress)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("LetScience Intelligence Dossier: "+product.Name, true)
	d := &dossier{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	generated := now().Format("2006-01-02")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, d.tr("LetScience Intelligence Dossier: "+product.Name), "", 1, "R", false, 0, "")
		pdf.Ln(5)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Generated on %s | Page %d", generated, pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 20, d.tr(product.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, "Comprehensive Intelligence Report", "", 1, "C", false, 0, "")
	pdf.Ln(20)

	d.executiveSummary(intel)
	pdf.AddPage()
	d.clinicalDevelopment(intel.Trials)
	d.intellectualProperty(intel.Patents)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering dossier: %w", err)
	}
	return pdf.Output(w)
}

func (d *dossier) chapterTitle(title string) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(4)
	pdf.SetDrawColor(226, 232, 240)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(8)
}

func (d *dossier) body(text string) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(51, 65, 85)
	pdf.MultiCell(0, 7, d.tr(text), "", "L", false)
	pdf.Ln(-1)
}

func (d *dossier) executiveSummary(intel *domain.ProductIntelligence) {
	product := intel.Product
	d.chapterTitle("1. Executive Summary")
	d.body(fmt.Sprintf("%s is a key asset in the current competitive landscape. "+
		"This report aggregates data from %d clinical trials, %d patents, and %d scientific articles "+
		"to provide a 360-degree view of its development status and exclusivity profile.",
		product.Name, len(intel.Trials), len(intel.Patents), len(intel.Articles)))

	pdf := d.pdf
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(40, 10, "Description:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	description := product.Description
	if description == "" {
		description = "No description available."
	}
	pdf.MultiCell(0, 7, d.tr(description), "", "L", false)
	pdf.Ln(10)
}

func (d *dossier) clinicalDevelopment(trials []*domain.Trial) {
	pdf := d.pdf
	d.chapterTitle("2. Clinical Development")
	d.body(fmt.Sprintf("Total Trials Found: %d", len(trials)))

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(241, 245, 249)
	pdf.CellFormat(20, 8, "Phase", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Status", "1", 0, "C", true, 0, "")
	pdf.CellFormat(140, 8, "Title", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for i, t := range trials {
		if i == maxTrialRows {
			break
		}
		pdf.CellFormat(20, 8, d.tr(clip(t.Phase, 8)), "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 8, d.tr(clip(t.Status, 12)), "1", 0, "", false, 0, "")
		pdf.CellFormat(140, 8, d.tr(TruncateTitle(t.Title)), "1", 1, "", false, 0, "")
	}
	pdf.Ln(10)
}

func (d *dossier) intellectualProperty(patents []*domain.Patent) {
	d.chapterTitle("3. Intellectual Property (Patents)")
	for i, p := range patents {
		if i == maxPatentCards {
			break
		}
		d.card("Patent: "+p.SourceID, fmt.Sprintf("Expires: %s | %s", ExpiryYear(p), p.Title))
	}
}

func (d *dossier) card(title, detail string) {
	pdf := d.pdf
	pdf.SetFillColor(248, 250, 252)
	pdf.SetDrawColor(226, 232, 240)
	x, y := pdf.GetX(), pdf.GetY()
	pdf.Rect(x, y, 190, 20, "DF")

	pdf.SetXY(x+2, y+2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 5, d.tr(title), "", 1, "", false, 0, "")
	pdf.SetX(x + 2)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, d.tr(clip(detail, 110)), "", 1, "", false, 0, "")
	pdf.Ln(12)
}

// ExpiryYear returns the expiry year of a patent: the recorded expiry, else
// twenty years after publication, else "Unknown".
func ExpiryYear(p *domain.Patent) string {
	switch {
	case p.ExpiryDate != nil:
		return fmt.Sprint(p.ExpiryDate.Year())
	case p.PublicationDate != nil:
		return fmt.Sprint(p.PublicationDate.Year() + patentTermYears)
	}
	return "Unknown"
}

// TruncateTitle shortens titles longer than 80 characters with "..."
func TruncateTitle(title string) string {
	r := []rune(title)
	if len(r) <= maxTitleLength {
		return title
	}
	return string(r[:maxTitleLength]) + "..."
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
