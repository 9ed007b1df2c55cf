package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// Invoice holds the already formatted values printed on an invoice.
// Amounts are strings so the caller decides on currency and precision.
type Invoice struct {
	ClinicName    string
	ClinicAddress string
	Number        string
	IssueDate     string
	Status        string
	PatientName   string
	PatientDoc    string
	Insurance     string
	Description   string
	Amount        string
	Paid          string
	Balance       string
	Payments      []PaymentLine
}

// PaymentLine is one row of the payments table.
type PaymentLine struct {
	Date      string
	Method    string
	Reference string
	Amount    string
}

var errNoNumber = errors.New("pdf: invoice number is required")

const (
	lineHeight = 6.0
	pageWidth  = 180.0
)

// BuildInvoicePDF renders an A4 invoice and returns the document bytes.
func BuildInvoicePDF(inv Invoice) ([]byte, error) {
	if inv.Number == "" {
		return nil, errNoNumber
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("Invoice "+inv.Number, true)
	pdf.AddPage()

	// Core fonts are cp1252; accented names need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(inv.ClinicName), "", 1, "L", false, 0, "")
	if inv.ClinicAddress != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, tr(inv.ClinicAddress), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(pageWidth/2, 8, tr("Invoice "+inv.Number), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(pageWidth/2, 8, tr("Date: "+inv.IssueDate), "", 1, "R", false, 0, "")
	pdf.Ln(2)

	field := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, lineHeight, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, tr(value), "", "L", false)
	}
	field("Patient", inv.PatientName)
	field("Document", inv.PatientDoc)
	field("Insurance", inv.Insurance)
	field("Status", inv.Status)
	field("Description", inv.Description)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(pageWidth-50, 8, "Amount", "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, tr(inv.Amount), "T", 1, "R", false, 0, "")

	if len(inv.Payments) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(235, 235, 235)
		pdf.CellFormat(35, 7, "Date", "1", 0, "L", true, 0, "")
		pdf.CellFormat(35, 7, "Method", "1", 0, "L", true, 0, "")
		pdf.CellFormat(pageWidth-110, 7, "Reference", "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, 7, "Amount", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, p := range inv.Payments {
			pdf.CellFormat(35, 7, tr(p.Date), "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 7, tr(p.Method), "1", 0, "L", false, 0, "")
			pdf.CellFormat(pageWidth-110, 7, tr(p.Reference), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 7, tr(p.Amount), "1", 1, "R", false, 0, "")
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(pageWidth-50, lineHeight, "Paid", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, lineHeight, tr(inv.Paid), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(pageWidth-50, 8, "Balance", "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, tr(inv.Balance), "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
