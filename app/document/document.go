// Package document renders tickets and reports as standalone HTML pages for
// printers driven through the system print dialog.
package document

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"ComandaPOS/app/models"
)

// Document is a printable markup page
type Document struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"date":  func(t time.Time) string { return t.Format("02/01/2006") },
	"time":  func(t time.Time) string { return t.Format("15:04:05") },
	"stamp": func(t time.Time) string { return t.Format("02/01/2006 15:04:05") },
	"month": models.MonthName,
}

var (
	ticketTmpl  = template.Must(template.New("ticket").Funcs(funcs).Parse(ticketHTML))
	summaryTmpl = template.Must(template.New("summary").Funcs(funcs).Parse(summaryHTML))
	monthlyTmpl = template.Must(template.New("monthly").Funcs(funcs).Parse(monthlyHTML))
)

type ticketView struct {
	models.Ticket
	GrandTotal   float64
	Share        float64
	ShowShare    bool
	PaymentLabel string
}

// Ticket renders a customer receipt
func Ticket(t models.Ticket) (Document, error) {
	view := ticketView{Ticket: t, GrandTotal: t.Total()}
	view.Share, view.ShowShare = t.PerPerson()
	if t.PaymentMethod != "" {
		view.PaymentLabel = t.PaymentMethod.Label()
	}
	return render(ticketTmpl, "Ticket "+t.Table, view)
}

type summaryView struct {
	Business models.Business
	models.ShiftSummary
}

// ShiftSummary renders the end-of-shift (Z) report
func ShiftSummary(b models.Business, s models.ShiftSummary) (Document, error) {
	return render(summaryTmpl, "Corte de Caja (Z)", summaryView{Business: b, ShiftSummary: s})
}

// MonthlyReport renders the sales report for one month
func MonthlyReport(r models.MonthlyReport) (Document, error) {
	return render(monthlyTmpl, fmt.Sprintf("Reporte de Ventas %s %d", models.MonthName(r.Month), r.Year), r)
}

func render(tmpl *template.Template, title string, data any) (Document, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Document{}, fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return Document{Title: title, HTML: buf.String()}, nil
}
