package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"whisperasr/internal/domain"
)

const pdfUnicodeFont = "transcript"

// PDFService renders a stored result as a printable transcript. Without a
// UTF-8 font file only Latin-1 text survives; CJK needs PDF_FONT_PATH.
type PDFService struct {
	fontPath string
}

func NewPDFService(fontPath string) *PDFService {
	return &PDFService{fontPath: fontPath}
}

func (s *PDFService) Render(result domain.Result, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Transcript %s", result.ResultID), true)
	pdf.SetAuthor("whisperasr", false)

	family := "Helvetica"
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if s.fontPath != "" {
		pdf.AddUTF8Font(pdfUnicodeFont, "", s.fontPath)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load pdf font: %w", err)
		}
		family = pdfUnicodeFont
		translate = func(text string) string { return text }
	}
	// The unicode font is registered with a regular style only.
	bold := "B"
	if family == pdfUnicodeFont {
		bold = ""
	}

	pdf.AddPage()

	title := strings.TrimSpace(result.Filename)
	if title == "" {
		title = "Transcript"
	}
	pdf.SetFont(family, bold, 18)
	pdf.MultiCell(0, 10, translate(title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(family, "", 11)
	pdf.Cell(0, 6, translate(fmt.Sprintf("Created: %s", result.Timestamp)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Duration: %s    Speakers: %d", formatClock(result.TotalDuration), len(result.Speakers)))
	pdf.Ln(10)

	if len(result.Sentences) == 0 {
		pdf.MultiCell(0, 6, "(empty)", "", "L", false)
	}

	for _, seg := range result.Sentences {
		pdf.SetFont(family, bold, 10)
		pdf.SetTextColor(90, 90, 90)
		header := fmt.Sprintf("[%s - %s] Speaker %d", formatClock(seg.Start), formatClock(seg.End), seg.Speaker)
		pdf.Cell(0, 5, header)
		pdf.Ln(5)

		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont(family, "", 12)
		pdf.MultiCell(0, 6, translate(seg.Text), "", "L", false)

		if other := otherLanguage(seg); other != "" && other != seg.Text {
			pdf.SetTextColor(90, 90, 90)
			pdf.SetFont(family, "", 10)
			pdf.MultiCell(0, 5, translate(other), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func otherLanguage(seg domain.Segment) string {
	if seg.Translation.SourceLang == domain.LangZH {
		return seg.Translation.EN
	}
	return seg.Translation.ZH
}

// formatClock renders seconds as mm:ss, or h:mm:ss past the hour.
func formatClock(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
