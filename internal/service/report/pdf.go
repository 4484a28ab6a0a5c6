package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/format"
)

// Page geometry in millimetres, A4 portrait.
const (
	marginLeft         = 20.0
	marginTop          = 20.0
	contentWidth       = 170.0
	lineHeight         = 6.0
	pageBreakThreshold = 270.0
)

// Document is everything a report needs, loaded before rendering starts.
type Document struct {
	Consultation   *model.Consultation
	Patient        *model.Patient
	Doctor         *model.Profile
	Transcriptions []*model.Transcription
	GeneratedAt    time.Time
	Location       *time.Location
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	y   float64
}

// Render draws the report with fixed-position text. Before each line, if y
// has passed pageBreakThreshold a new page starts and y returns to the top margin.
func Render(doc *Document) ([]byte, int, error) {
	loc := doc.Location
	if loc == nil {
		loc = time.UTC
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Relatório de Consulta", true)
	pdf.SetCreator("practice-api", true)

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	w.newPage()

	w.font("B", 16)
	w.line("Relatório de Consulta")
	w.font("", 9)
	w.line("Gerado em " + doc.GeneratedAt.In(loc).Format("02/01/2006 15:04"))
	if doc.Doctor != nil {
		w.line(fmt.Sprintf("Profissional: %s %s", doc.Doctor.DisplayTitle(), doc.Doctor.FullName))
		if doc.Doctor.CRM != nil {
			w.line("CRM: " + *doc.Doctor.CRM)
		}
	}
	w.gap()

	p := doc.Patient
	w.section("Paciente")
	w.field("Nome", p.FullName)
	w.field("Data de nascimento", fmt.Sprintf("%s (%d anos)", p.BirthDate.Format("02/01/2006"), format.Age(p.BirthDate, doc.GeneratedAt.In(loc))))
	w.field("Gênero", string(p.Gender))
	w.optional("Alergias", p.Allergies)
	w.optional("Medicamentos em uso", p.Medications)
	w.gap()

	c := doc.Consultation
	w.section("Consulta")
	w.field("Início", c.StartedAt.In(loc).Format("02/01/2006 15:04"))
	if c.EndedAt != nil {
		w.field("Término", c.EndedAt.In(loc).Format("02/01/2006 15:04"))
	}
	w.optional("Queixa principal", c.ChiefComplaint)
	w.optional("Notas clínicas", c.ClinicalNotes)
	w.optional("Diagnóstico", c.Diagnosis)
	w.optional("Prescrição", c.Prescription)
	w.gap()

	w.section("Transcrição")
	if len(doc.Transcriptions) == 0 {
		w.paragraph("Nenhuma transcrição registrada.")
	}
	for _, t := range doc.Transcriptions {
		text := t.Content
		if t.Speaker != nil && *t.Speaker != "" {
			text = *t.Speaker + ": " + text
		}
		w.paragraph(fmt.Sprintf("[%s] %s", t.RecordedAt.In(loc).Format("15:04:05"), text))
	}

	if err := pdf.Error(); err != nil {
		return nil, 0, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), pdf.PageCount(), nil
}

func (w *pdfWriter) newPage() {
	w.pdf.AddPage()
	w.y = marginTop
}

func (w *pdfWriter) font(style string, size float64) {
	w.pdf.SetFont("Helvetica", style, size)
}

func (w *pdfWriter) line(s string) {
	if w.y > pageBreakThreshold {
		w.newPage()
	}
	w.pdf.Text(marginLeft, w.y, w.tr(s))
	w.y += lineHeight
}

func (w *pdfWriter) gap() {
	w.y += lineHeight / 2
}

func (w *pdfWriter) section(title string) {
	w.font("B", 12)
	w.line(title)
	w.font("", 10)
}

// paragraph wraps s to the content width, one fixed-position line at a time.
func (w *pdfWriter) paragraph(s string) {
	for _, l := range w.pdf.SplitLines([]byte(w.tr(s)), contentWidth) {
		if w.y > pageBreakThreshold {
			w.newPage()
		}
		w.pdf.Text(marginLeft, w.y, string(l))
		w.y += lineHeight
	}
}

func (w *pdfWriter) field(label, value string) {
	w.paragraph(label + ": " + value)
}

func (w *pdfWriter) optional(label string, value *string) {
	if value != nil && *value != "" {
		w.field(label, *value)
	}
}
