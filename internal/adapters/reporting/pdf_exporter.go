package reporting

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// maxRecentRows caps the recent reports table in the PDF.
const maxRecentRows = 10

// PDFExporter renders the report summary as a printable A4 document.
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportSummary generates the summary PDF with the aggregate figures and
// the most recent reports.
func (e *PDFExporter) ExportSummary(summary *domain.ReportSummary, recent []domain.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Core fonts are latin-1; the translator keeps the French labels intact.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	e.addHeader(pdf, tr, summary)
	e.addTotals(pdf, tr, summary)
	e.addCategoryTable(pdf, tr, summary)
	e.addRecentReports(pdf, tr, recent)
	e.addFooter(pdf, tr, summary)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, tr func(string) string, summary *domain.ReportSummary) {
	// Title
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 90, 60) // Dark green
	pdf.CellFormat(0, 14, tr("Synthèse des signalements"), "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Arial", "", 13)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 8, "imed.dz", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	// Generation line
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	dateStr := tr(fmt.Sprintf("Généré le %s", summary.GeneratedAt.Format("2006-01-02 15:04")))
	if summary.GeneratedBy != "" {
		dateStr += tr(fmt.Sprintf(" par %s", summary.GeneratedBy))
	}
	pdf.CellFormat(0, 6, dateStr, "", 1, "L", false, 0, "")

	pdf.Ln(8)
}

func (e *PDFExporter) addTotals(pdf *gofpdf.Fpdf, tr func(string) string, summary *domain.ReportSummary) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 90, 60)
	pdf.CellFormat(0, 10, tr("Vue d'ensemble"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	stats := []struct {
		label string
		value string
		color []int
	}{
		{"Total", fmt.Sprintf("%d", summary.Total), []int{0, 102, 204}},
		{tr("Dernières 24h"), fmt.Sprintf("%d", summary.Last24h), []int{0, 102, 204}},
		{"Nouveaux", fmt.Sprintf("%d", summary.ByStatus[domain.StatusNew]), []int{0, 102, 204}},
		{tr("Examinés"), fmt.Sprintf("%d", summary.ByStatus[domain.StatusReviewed]), []int{255, 149, 0}},
		{tr("Résolus"), fmt.Sprintf("%d", summary.ByStatus[domain.StatusResolved]), []int{52, 199, 89}},
		{tr("Marqués"), fmt.Sprintf("%d", summary.Flagged), []int{220, 53, 69}},
	}

	// Display in 2 columns
	colWidth := 85.0
	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}

		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(stat.color[0], stat.color[1], stat.color[2])
		pdf.CellFormat(colWidth-50, 7, stat.value, "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}

	pdf.Ln(10)
}

func (e *PDFExporter) addCategoryTable(pdf *gofpdf.Fpdf, tr func(string) string, summary *domain.ReportSummary) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 90, 60)
	pdf.CellFormat(0, 10, tr("Par catégorie"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(summary.ByCategory) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, tr("Aucun signalement enregistré"), "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	// Table header
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)

	pdf.CellFormat(80, 8, tr("Catégorie"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Signalements", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 8, "Part", "1", 1, "C", true, 0, "")

	// Stable row order: count descending, then name
	type row struct {
		category domain.Category
		count    int
	}
	rows := make([]row, 0, len(summary.ByCategory))
	for category, count := range summary.ByCategory {
		rows = append(rows, row{category, count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].category < rows[j].category
	})

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(60, 60, 60)
	for _, r := range rows {
		share := 0.0
		if summary.Total > 0 {
			share = float64(r.count) / float64(summary.Total) * 100
		}
		pdf.CellFormat(80, 7, tr(categoryLabel(r.category)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, fmt.Sprintf("%d", r.count), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 7, fmt.Sprintf("%.1f%%", share), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(8)
}

func (e *PDFExporter) addRecentReports(pdf *gofpdf.Fpdf, tr func(string) string, recent []domain.Report) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 90, 60)
	pdf.CellFormat(0, 10, tr("Signalements récents"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(recent) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, tr("Aucun signalement récent"), "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	// Table header
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)

	pdf.CellFormat(20, 8, "Ref", "1", 0, "C", true, 0, "")
	pdf.CellFormat(32, 8, tr("Catégorie"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Statut", "1", 0, "C", true, 0, "")
	pdf.CellFormat(65, 8, "Adresse", "1", 0, "L", true, 0, "")
	pdf.CellFormat(28, 8, "Date", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for i, rep := range recent {
		if i >= maxRecentRows {
			break
		}
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		ref := rep.ID
		if len(ref) > 8 {
			ref = ref[:8]
		}

		address := rep.Address
		if len(address) > 38 {
			address = address[:35] + "..."
		}

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(20, 7, ref, "1", 0, "C", false, 0, "")
		pdf.CellFormat(32, 7, tr(categoryLabel(rep.Category)), "1", 0, "L", false, 0, "")

		r, g, b := statusColor(rep.Status)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(25, 7, tr(statusLabel(rep.Status)), "1", 0, "C", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(65, 7, tr(address), "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 7, rep.CreatedAt.Format("02/01 15:04"), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(8)
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, tr func(string) string, summary *domain.ReportSummary) {
	pdf.SetY(-20)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	footerText := tr(fmt.Sprintf("imed.dz | Synthèse du %s", summary.GeneratedAt.Format("2006-01-02")))
	pdf.CellFormat(0, 5, footerText, "", 1, "C", false, 0, "")
}

// categoryLabel maps a category slug to its display label.
func categoryLabel(c domain.Category) string {
	switch c {
	case domain.CategoryRoads:
		return "Voirie"
	case domain.CategoryLighting:
		return "Éclairage public"
	case domain.CategoryWater:
		return "Eau"
	case domain.CategoryWaste:
		return "Déchets"
	case domain.CategorySafety:
		return "Sécurité"
	case domain.CategoryOther:
		return "Autre"
	default:
		return string(c)
	}
}

// statusLabel maps a workflow status to its display label.
func statusLabel(s domain.ReportStatus) string {
	switch s {
	case domain.StatusNew:
		return "Nouveau"
	case domain.StatusReviewed:
		return "Examiné"
	case domain.StatusResolved:
		return "Résolu"
	default:
		return string(s)
	}
}

// statusColor returns RGB color based on workflow status.
func statusColor(s domain.ReportStatus) (r, g, b int) {
	switch s {
	case domain.StatusResolved:
		return 52, 199, 89 // Green
	case domain.StatusReviewed:
		return 255, 149, 0 // Orange
	default:
		return 0, 102, 204 // Blue (new)
	}
}
