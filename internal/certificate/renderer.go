// Package certificate renders participation certificates as PDF documents.
package certificate

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"example.com/volunteer/internal/domain"
)

// Config controls the fixed text printed on every certificate.
type Config struct {
	Institution string
	City        string
	Signatories []string
}

// DefaultConfig returns the stock certificate layout.
func DefaultConfig() Config {
	return Config{
		Institution: "Universidad Andina del Cusco",
		City:        "Cusco",
		Signatories: []string{"Coordinador Académico", "Director de Proyección Social"},
	}
}

type rgb struct{ r, g, b int }

var (
	colorGradientStart = rgb{0x66, 0x7e, 0xea}
	colorGradientEnd   = rgb{0x76, 0x4b, 0xa2}
	colorPrimary       = rgb{0x00, 0x3d, 0x7a}
	colorTitle         = rgb{0x1a, 0x1a, 0x1a}
	colorBody          = rgb{0x33, 0x33, 0x33}
	colorMuted         = rgb{0x66, 0x66, 0x66}
)

// PDFRenderer draws an A4 portrait certificate with fpdf.
type PDFRenderer struct {
	cfg Config
}

// NewPDFRenderer builds a renderer. Empty fields fall back to DefaultConfig.
func NewPDFRenderer(cfg Config) *PDFRenderer {
	defaults := DefaultConfig()
	if cfg.Institution == "" {
		cfg.Institution = defaults.Institution
	}
	if cfg.City == "" {
		cfg.City = defaults.City
	}
	if len(cfg.Signatories) == 0 {
		cfg.Signatories = defaults.Signatories
	}
	return &PDFRenderer{cfg: cfg}
}

// Render implements domain.CertificateRenderer.
func (r *PDFRenderer) Render(ctx context.Context, cert domain.Certificate) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(cert.IssuedAt)
	pdf.SetModificationDate(cert.IssuedAt)
	pdf.SetTitle(fmt.Sprintf("Certificado de participación - %s", cert.HolderName), true)
	pdf.SetAuthor(r.cfg.Institution, true)
	pdf.AddPage()

	// Core fonts are cp1252; accents need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width, height := pdf.GetPageSize()

	pdf.LinearGradient(0, 0, width, height,
		colorGradientStart.r, colorGradientStart.g, colorGradientStart.b,
		colorGradientEnd.r, colorGradientEnd.g, colorGradientEnd.b,
		0, 0, 1, 1)

	const margin = 14.0
	cardW, cardH := width-2*margin, height-2*margin
	pdf.SetFillColor(255, 255, 255)
	pdf.SetDrawColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	pdf.SetLineWidth(4)
	pdf.Rect(margin, margin, cardW, cardH, "FD")

	pdf.SetLineWidth(0.8)
	drawCorners(pdf, margin+6, margin+6, cardW-12, cardH-12, 16)

	y := 48.0
	centered := func(family, style string, size float64, color rgb, lineHeight float64, text string) {
		pdf.SetFont(family, style, size)
		pdf.SetTextColor(color.r, color.g, color.b)
		pdf.SetXY(0, y)
		pdf.CellFormat(width, lineHeight, tr(text), "", 0, "C", false, 0, "")
		y += lineHeight
	}

	centered("Helvetica", "B", 20, colorPrimary, 10, r.cfg.Institution)
	y += 14
	centered("Times", "", 40, colorTitle, 16, "CERTIFICADO")
	centered("Times", "I", 20, colorMuted, 10, "DE PARTICIPACIÓN")
	y += 16
	centered("Times", "", 15, colorBody, 8, fmt.Sprintf("La %s otorga el presente certificado a:", r.cfg.Institution))
	y += 10
	centered("Times", "BI", 30, colorPrimary, 14, cert.HolderName)

	pdf.SetDrawColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	pdf.SetLineWidth(0.5)
	pdf.Line(width/2-60, y+2, width/2+60, y+2)
	y += 12

	pdf.SetFont("Times", "", 14)
	pdf.SetTextColor(0x44, 0x44, 0x44)
	pdf.SetXY(34, y)
	pdf.MultiCell(width-68, 7, tr(bodyText(cert.Hours)), "", "C", false)
	y = pdf.GetY() + 14

	centered("Helvetica", "B", 13, colorBody, 8, fmt.Sprintf("%s, %s", r.cfg.City, spanishDate(cert.IssuedAt)))
	y += 4
	centered("Courier", "", 10, colorMuted, 6, fmt.Sprintf("Código de verificación: %s", cert.VerificationCode))

	r.drawSignatures(pdf, tr, width, height-70)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) drawSignatures(pdf *fpdf.Fpdf, tr func(string) string, pageWidth, y float64) {
	const lineWidth = 60.0
	count := float64(len(r.cfg.Signatories))
	gap := (pageWidth - count*lineWidth) / (count + 1)

	for i, title := range r.cfg.Signatories {
		x := gap + float64(i)*(lineWidth+gap)
		pdf.SetDrawColor(colorBody.r, colorBody.g, colorBody.b)
		pdf.SetLineWidth(0.3)
		pdf.Line(x, y, x+lineWidth, y)

		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
		pdf.SetXY(x, y+2)
		pdf.CellFormat(lineWidth, 5, tr(title), "", 0, "C", false, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(colorMuted.r, colorMuted.g, colorMuted.b)
		pdf.SetXY(x, y+7)
		pdf.CellFormat(lineWidth, 5, tr(r.cfg.Institution), "", 0, "C", false, 0, "")
	}
}

func drawCorners(pdf *fpdf.Fpdf, x, y, w, h, size float64) {
	pdf.Line(x, y, x+size, y)
	pdf.Line(x, y, x, y+size)
	pdf.Line(x+w, y, x+w-size, y)
	pdf.Line(x+w, y, x+w, y+size)
	pdf.Line(x, y+h, x+size, y+h)
	pdf.Line(x, y+h, x, y+h-size)
	pdf.Line(x+w, y+h, x+w-size, y+h)
	pdf.Line(x+w, y+h, x+w, y+h-size)
}

func bodyText(hours int64) string {
	return fmt.Sprintf("Por su distinguida participación cumpliendo más de %d horas en los diferentes grupos de voluntariado "+
		"y por dedicar su tiempo y esfuerzo a causas de interés general, sin buscar un beneficio económico, "+
		"con el objetivo de ayudar a la comunidad, al medio ambiente o a colectivos específicos.", hours)
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// spanishDate formats t as "18 de octubre de 2026".
func spanishDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}
