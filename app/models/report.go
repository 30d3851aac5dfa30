package models

// ProductTotal is the aggregate of one product across a set of sales
type ProductTotal struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// SalesStats summarizes a period of sales
type SalesStats struct {
	TotalSales   float64        `json:"total_sales"`
	Transactions int            `json:"transactions"`
	Average      float64        `json:"average"`
	TopProducts  []ProductTotal `json:"top_products"`
}

// MonthlyReport is the sales report for one calendar month
type MonthlyReport struct {
	Year  int        `json:"year"`
	Month int        `json:"month"` // 1-12
	Sales []Sale     `json:"sales"`
	Stats SalesStats `json:"stats"`
}

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the Spanish month name for 1-12
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}
