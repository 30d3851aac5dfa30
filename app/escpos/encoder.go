// Package escpos renders tickets and shift reports as ESC/POS byte streams
// for thermal receipt printers.
package escpos

import (
	"fmt"

	"ComandaPOS/app/models"
)

// Encoder builds command streams for one paper width. It holds no mutable
// state and is safe for concurrent use.
type Encoder struct {
	columns int
	dots    int
}

// New creates an encoder for the given paper width
func New(paper models.PaperWidth) *Encoder {
	return &Encoder{columns: paper.Columns(), dots: paper.Dots()}
}

// Columns returns the character-column budget
func (e *Encoder) Columns() int {
	return e.columns
}

// CashDrawer returns the drawer-kick pulse on pin 2
func CashDrawer() []byte {
	return []byte{ESC, 'p', 0, 25, 250}
}

// Ticket renders a customer receipt
func (e *Encoder) Ticket(t models.Ticket) ([]byte, error) {
	w := newWriter()
	w.init()

	e.header(w, t.Business)

	// Table and timestamp
	w.setAlign(AlignLeft)
	w.line("Mesa: " + t.Table)
	w.line("Fecha: " + t.IssuedAt.Format("02/01/2006"))
	w.line("Hora: " + t.IssuedAt.Format("15:04:05"))
	w.feed(1)

	for _, item := range t.Items {
		w.line(itemLine(item.Quantity, item.Name, item.Subtotal(), e.columns))
	}
	w.line(rule("-", e.columns))

	// Total
	w.setAlign(AlignRight)
	w.setSize(2, 2)
	w.line(fmt.Sprintf("TOTAL: %s", money(t.Total())))
	w.feed(1)

	// Footer
	w.setAlign(AlignCenter)
	w.setSize(1, 1)
	w.line("¡Gracias por su compra!")

	if t.FooterQR != "" {
		if err := w.qrCode(t.FooterQR, e.dots/2, e.dots); err != nil {
			return nil, err
		}
	}

	w.feed(5)
	w.cut()
	return w.bytes(), nil
}

// ShiftSummary renders the end-of-shift (Z) report
func (e *Encoder) ShiftSummary(b models.Business, s models.ShiftSummary) ([]byte, error) {
	w := newWriter()
	w.init()

	w.setAlign(AlignCenter)
	w.setSize(2, 2)
	w.line(b.Name)
	w.setSize(1, 1)
	w.line("CORTE DE CAJA (Z)")
	w.line(s.GeneratedAt.Format("02/01/2006 15:04:05"))
	w.line(rule("=", e.columns))

	w.setAlign(AlignLeft)
	w.line(justify("Total Transacciones:", fmt.Sprintf("%d", s.Transactions), e.columns))
	w.feed(1)
	w.line(justify("Total en Efectivo:", money(s.TotalCash), e.columns))
	w.line(justify("Total en Tarjeta:", money(s.TotalCard), e.columns))
	w.line(rule("=", e.columns))

	w.setAlign(AlignRight)
	w.setEmphasize(true)
	w.setSize(2, 2)
	w.line("VENTA TOTAL: " + money(s.TotalSales))
	w.feed(1)
	w.setSize(1, 1)
	w.setEmphasize(false)

	w.setAlign(AlignCenter)
	w.line("Fin del Reporte")
	w.feed(5)
	w.cut()
	return w.bytes(), nil
}

// header prints the centered business block and the heavy rule
func (e *Encoder) header(w *writer, b models.Business) {
	w.setAlign(AlignCenter)
	w.setSize(2, 2)
	w.line(b.Name)
	w.setSize(1, 1)
	if b.Address != "" {
		w.line(b.Address)
	}
	if b.Phone != "" {
		w.line("Tel: " + b.Phone)
	}
	w.line(rule("=", e.columns))
}
