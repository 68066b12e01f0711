package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/signintech/gopdf"

	"github.com/dmauro/triago/internal/store"
)

const (
	pdfFontName  = "DejaVu"
	pdfTextWidth = 500
	pdfPageFloor = 790
)

// fontPaths covers the usual DejaVuSans locations across distros.
var fontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

func renderPDF(tr Transcript) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	loaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont(pdfFontName, path); err == nil {
			loaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !loaded {
		return nil, fmt.Errorf("no usable TTF font found for PDF export: %w", fontErr)
	}

	w := &pdfWriter{pdf: &pdf}
	w.setFont(18)
	w.line("Symptom Triage Session Transcript")
	w.space(10)

	w.setFont(11)
	w.line(fmt.Sprintf("Session: %s", tr.Session.ID))
	w.line(fmt.Sprintf("Status: %s", tr.Session.Status))
	w.line(fmt.Sprintf("Started: %s", tr.Session.CreatedAt.Format(time.RFC3339)))
	w.line(fmt.Sprintf("Total turns: %d", len(tr.Turns)))
	if tr.Session.Age != nil {
		w.line(fmt.Sprintf("Patient age: %d", *tr.Session.Age))
	}
	w.space(10)

	for _, turn := range tr.Turns {
		w.writeTurn(turn)
	}

	w.setFont(8)
	w.space(10)
	w.line("Generated by an automated triage assistant. Not a medical diagnosis.")
	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfWriter wraps gopdf with line wrapping, page breaks and sticky errors so
// the rendering code stays linear.
type pdfWriter struct {
	pdf      *gopdf.GoPdf
	fontSize float64
	err      error
}

func (w *pdfWriter) setFont(size float64) {
	if w.err != nil {
		return
	}
	w.fontSize = size
	w.err = w.pdf.SetFont(pdfFontName, "", size)
}

func (w *pdfWriter) line(text string) {
	if w.err != nil {
		return
	}
	lines, err := w.pdf.SplitText(text, pdfTextWidth)
	if err != nil {
		lines = []string{text}
	}
	for _, l := range lines {
		if w.pdf.GetY() > pdfPageFloor {
			w.pdf.AddPage()
			if w.err = w.pdf.SetFont(pdfFontName, "", w.fontSize); w.err != nil {
				return
			}
		}
		if w.err = w.pdf.Cell(nil, l); w.err != nil {
			return
		}
		w.pdf.Br(w.fontSize + 3)
	}
}

func (w *pdfWriter) space(pt float64) {
	if w.err != nil {
		return
	}
	w.pdf.Br(pt)
}

func (w *pdfWriter) writeTurn(turn store.TurnRecord) {
	w.setFont(13)
	w.line(fmt.Sprintf("Turn %d - %s", turn.TurnNumber, turn.Timestamp.Format("2006-01-02 15:04")))

	w.setFont(10)
	w.line("Patient: " + turn.UserMessage)
	w.line(fmt.Sprintf("Urgency: %s", turn.Assessment.Urgency))
	if turn.Assessment.EmergencyWarning != "" {
		w.line("Warning: " + turn.Assessment.EmergencyWarning)
	}
	for _, c := range turn.Assessment.ProbableConditions {
		w.line(fmt.Sprintf("- %s (probability %.2f): %s", c.Name, c.Probability, c.Description))
	}
	if turn.Assessment.Reasoning != "" {
		w.line("Reasoning: " + turn.Assessment.Reasoning)
	}
	for _, r := range turn.Assessment.Recommendations {
		w.line("Recommendation: " + r)
	}
	w.space(8)
}
