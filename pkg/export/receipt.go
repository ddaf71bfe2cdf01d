package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptLine is one concept line on a payment receipt.
type ReceiptLine struct {
	Concepto       string
	Cantidad       int
	PrecioUnitario float64
	Subtotal       float64
}

// Receipt carries everything needed to render a comprobante de pago.
type Receipt struct {
	Empresa            string
	EmpresaNIT         string
	NumeroTransaccion  string
	NumeroComprobante  string
	Estudiante         string
	Programa           string
	FormaPago          string
	FechaPago          time.Time
	Lineas             []ReceiptLine
	MontoTotal         float64
	DescuentoTotal     float64
	MontoFinal         float64
	Observaciones      string
}

// ReceiptRenderer produces payment receipt PDFs.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render writes the comprobante as a compact A5 PDF.
func (r *ReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	if receipt.NumeroTransaccion == "" {
		return nil, fmt.Errorf("receipt requires a transaction number")
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 7, receipt.Empresa, "", 1, "C", false, 0, "")
	if receipt.EmpresaNIT != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, "NIT: "+receipt.EmpresaNIT, "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, "COMPROBANTE DE PAGO", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 9)
	writeField := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(35, 5, label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, value, "", 1, "", false, 0, "")
	}

	writeField("Transaccion:", receipt.NumeroTransaccion)
	writeField("Comprobante:", receipt.NumeroComprobante)
	writeField("Fecha:", receipt.FechaPago.Format("02/01/2006"))
	writeField("Estudiante:", receipt.Estudiante)
	writeField("Programa:", receipt.Programa)
	writeField("Forma de pago:", receipt.FormaPago)
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(58, 6, "Concepto", "1", 0, "", false, 0, "")
	pdf.CellFormat(14, 6, "Cant.", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "P.Unit", "1", 0, "R", false, 0, "")
	pdf.CellFormat(28, 6, "Subtotal", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, line := range receipt.Lineas {
		pdf.CellFormat(58, 6, line.Concepto, "1", 0, "", false, 0, "")
		pdf.CellFormat(14, 6, fmt.Sprintf("%d", line.Cantidad), "1", 0, "C", false, 0, "")
		pdf.CellFormat(28, 6, fmt.Sprintf("%.2f", line.PrecioUnitario), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, fmt.Sprintf("%.2f", line.Subtotal), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(100, 5, "Monto total:", "", 0, "R", false, 0, "")
	pdf.CellFormat(28, 5, fmt.Sprintf("%.2f", receipt.MontoTotal), "", 1, "R", false, 0, "")
	if receipt.DescuentoTotal > 0 {
		pdf.CellFormat(100, 5, "Descuento:", "", 0, "R", false, 0, "")
		pdf.CellFormat(28, 5, fmt.Sprintf("-%.2f", receipt.DescuentoTotal), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(100, 6, "MONTO FINAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(28, 6, fmt.Sprintf("%.2f", receipt.MontoFinal), "", 1, "R", false, 0, "")

	if receipt.Observaciones != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 4, "Obs.: "+receipt.Observaciones, "", "", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
