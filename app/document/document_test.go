package document

import (
	"testing"
	"time"

	"ComandaPOS/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketDocument(t *testing.T) {
	ticket := models.Ticket{
		Business:      models.Business{Name: "La Cantina", Phone: "555-1234"},
		Table:         "Mesa 2",
		Items:         []models.LineItem{{ID: 1, Name: "Soda", Price: 5, Quantity: 2}, {ID: 2, Name: "Burger", Price: 12.5, Quantity: 1}},
		PaymentMethod: models.PaymentCard,
		SplitMode:     models.SplitPerPerson,
		PartySize:     3,
		IssuedAt:      time.Date(2026, 10, 19, 13, 30, 0, 0, time.Local),
	}

	doc, err := Ticket(ticket)
	require.NoError(t, err)

	assert.Equal(t, "Ticket Mesa 2", doc.Title)
	assert.Contains(t, doc.HTML, "<h1>La Cantina</h1>")
	assert.Contains(t, doc.HTML, "Tel: 555-1234")
	assert.Contains(t, doc.HTML, "2x Soda")
	assert.Contains(t, doc.HTML, "TOTAL: $22.50")
	assert.Contains(t, doc.HTML, "Por persona (3): $7.50")
	assert.Contains(t, doc.HTML, "Método de pago: Tarjeta")
	assert.Contains(t, doc.HTML, "19/10/2026 13:30:00")
	assert.Contains(t, doc.HTML, "window.print()")
}

func TestTicketDocumentOmitsOptionalLines(t *testing.T) {
	doc, err := Ticket(models.Ticket{
		Business:  models.Business{Name: "La Cantina"},
		Table:     "Mesa 1",
		Items:     []models.LineItem{{ID: 1, Name: "Agua", Price: 1, Quantity: 1}},
		SplitMode: models.SplitPerPerson,
		PartySize: 1,
	})
	require.NoError(t, err)

	assert.NotContains(t, doc.HTML, "Por persona")
	assert.NotContains(t, doc.HTML, "Método de pago")
	assert.NotContains(t, doc.HTML, "Tel:")
}

func TestTicketDocumentEscapesMarkup(t *testing.T) {
	doc, err := Ticket(models.Ticket{
		Business: models.Business{Name: "Bar"},
		Table:    "<script>alert(1)</script>",
		Items:    []models.LineItem{{ID: 1, Name: "<b>Tapa</b>", Price: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.NotContains(t, doc.HTML, "<b>Tapa</b>")
	assert.Contains(t, doc.HTML, "&lt;b&gt;Tapa&lt;/b&gt;")
}

func TestShiftSummaryDocument(t *testing.T) {
	doc, err := ShiftSummary(models.Business{Name: "La Cantina"}, models.ShiftSummary{
		TotalSales: 40, TotalCash: 25, TotalCard: 15, Transactions: 4,
	})
	require.NoError(t, err)

	assert.Contains(t, doc.HTML, "CORTE DE CAJA (Z)")
	assert.Contains(t, doc.HTML, "VENTA TOTAL: $40.00")
	assert.Contains(t, doc.HTML, "<span>$25.00</span>")
	assert.Contains(t, doc.HTML, "<span>4</span>")
}

func TestMonthlyReportDocument(t *testing.T) {
	report := models.MonthlyReport{
		Year:  2026,
		Month: 10,
		Sales: []models.Sale{
			models.NewSale("s1", "Mesa 1", []models.LineItem{{ID: 1, Name: "Soda", Price: 2, Quantity: 3}}, models.PaymentCash, models.SplitFull, 1, time.Now()),
		},
		Stats: models.SalesStats{TotalSales: 6, Transactions: 1, Average: 6,
			TopProducts: []models.ProductTotal{{Name: "Soda", Quantity: 3, Revenue: 6}}},
	}

	doc, err := MonthlyReport(report)
	require.NoError(t, err)

	assert.Equal(t, "Reporte de Ventas Octubre 2026", doc.Title)
	assert.Contains(t, doc.HTML, "<h2>Octubre 2026</h2>")
	assert.Contains(t, doc.HTML, "3x Soda")
	assert.Contains(t, doc.HTML, "Productos Más Vendidos")
}
