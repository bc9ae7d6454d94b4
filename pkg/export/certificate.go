package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Certificate carries the printable fields of a course completion certificate.
type Certificate struct {
	HolderName  string
	CourseTitle string
	Code        string
	IssuedAt    time.Time
}

// CertificateRenderer draws completion certificates as landscape PDFs.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render returns the PDF bytes for cert.
func (r *CertificateRenderer) Render(cert Certificate) ([]byte, error) {
	if cert.HolderName == "" || cert.CourseTitle == "" || cert.Code == "" {
		return nil, fmt.Errorf("certificate requires holder, course and code")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetY(45)
	pdf.SetFont("Arial", "B", 30)
	pdf.CellFormat(0, 14, "Certificate of Completion", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 24)
	pdf.CellFormat(0, 12, tr(cert.HolderName), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, tr(cert.CourseTitle), "", 1, "C", false, 0, "")

	pdf.SetY(165)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued %s", cert.IssuedAt.UTC().Format("January 2, 2006")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Verification code: %s", cert.Code), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
