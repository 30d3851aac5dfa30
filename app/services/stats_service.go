package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"ComandaPOS/app/document"
	"ComandaPOS/app/models"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
)

const (
	monthlyCacheTTL = 2 * time.Minute
	topProductLimit = 10

	// historyTable groups paid rows that carry no table label
	historyTable = "General"
)

var entryDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

// StatsService builds monthly statistics from the paid rows of the row store
type StatsService struct {
	source     PaidSource
	printerSvc *PrinterService
	cache      *cache.Cache
}

// NewStatsService creates a statistics service
func NewStatsService(source PaidSource, printerSvc *PrinterService) *StatsService {
	return &StatsService{
		source:     source,
		printerSvc: printerSvc,
		cache:      cache.New(monthlyCacheTTL, 2*monthlyCacheTTL),
	}
}

// Invalidate drops cached months so the next read hits the row store
func (s *StatsService) Invalidate() {
	s.cache.Flush()
}

// MonthlySales returns the paid items of one month grouped into one sale per
// table and day. Results are cached for a short time.
func (s *StatsService) MonthlySales(ctx context.Context, year, month int) ([]models.Sale, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}

	key := fmt.Sprintf("%04d-%02d", year, month)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]models.Sale), nil
	}

	items, err := s.source.FetchPaidItems(ctx)
	if err != nil {
		return nil, err
	}
	sales := GroupMonthlySales(items, year, month)
	s.cache.Set(key, sales, cache.DefaultExpiration)
	return sales, nil
}

// GroupMonthlySales keeps the items whose entry date falls in the month and
// groups them by table and day into sales with ids "baserow_<table>__<date>".
// Rows with a malformed date are skipped.
func GroupMonthlySales(items []PaidItem, year, month int) []models.Sale {
	type group struct {
		table string
		day   time.Time
		items []models.LineItem
	}
	groups := map[string]*group{}

	for _, item := range items {
		day, ok := ParseEntryDate(item.EntryDate)
		if !ok || day.Year() != year || int(day.Month()) != month {
			continue
		}
		table := item.Table
		if table == "" {
			table = historyTable
		}
		key := table + "__" + day.Format("2006-01-02")
		g, ok := groups[key]
		if !ok {
			g = &group{table: table, day: day}
			groups[key] = g
		}
		g.items = append(g.items, item.LineItem)
	}

	sales := make([]models.Sale, 0, len(groups))
	for key, g := range groups {
		sales = append(sales, models.NewSale("baserow_"+key, g.table, g.items, models.PaymentUnknown, models.SplitFull, 1, g.day))
	}
	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].CreatedAt.Equal(sales[j].CreatedAt) {
			return sales[i].CreatedAt.Before(sales[j].CreatedAt)
		}
		return sales[i].Table < sales[j].Table
	})
	return sales
}

// ParseEntryDate parses a d/m/yyyy entry date, also accepting ISO dates
func ParseEntryDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if m := entryDatePattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
		if t.Day() != day || int(t.Month()) != month {
			return time.Time{}, false
		}
		return t, true
	}
	if len(text) >= 10 {
		if t, err := time.ParseInLocation("2006-01-02", text[:10], time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Stats summarizes a set of sales
func (s *StatsService) Stats(sales []models.Sale) models.SalesStats {
	return ComputeStats(sales)
}

// ComputeStats returns totals, the average sale and the ten best-selling
// products by quantity
func ComputeStats(sales []models.Sale) models.SalesStats {
	stats := models.SalesStats{
		TotalSales:   lo.SumBy(sales, func(sale models.Sale) float64 { return sale.Total }),
		Transactions: len(sales),
		TopProducts:  []models.ProductTotal{},
	}
	if stats.Transactions > 0 {
		stats.Average = stats.TotalSales / float64(stats.Transactions)
	}

	byName := map[string]*models.ProductTotal{}
	var order []string
	for _, sale := range sales {
		for _, item := range sale.Items {
			p, ok := byName[item.Name]
			if !ok {
				p = &models.ProductTotal{Name: item.Name}
				byName[item.Name] = p
				order = append(order, item.Name)
			}
			p.Quantity += item.Quantity
			p.Revenue += item.Subtotal()
		}
	}

	products := lo.Map(order, func(name string, _ int) models.ProductTotal { return *byName[name] })
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Quantity > products[j].Quantity
	})
	if len(products) > topProductLimit {
		products = products[:topProductLimit]
	}
	stats.TopProducts = append(stats.TopProducts, products...)
	return stats
}

// Report builds the monthly report
func (s *StatsService) Report(ctx context.Context, year, month int) (models.MonthlyReport, error) {
	sales, err := s.MonthlySales(ctx, year, month)
	if err != nil {
		return models.MonthlyReport{}, err
	}
	return models.MonthlyReport{Year: year, Month: month, Sales: sales, Stats: s.Stats(sales)}, nil
}

// CSVFileName returns the export file name for a month
func CSVFileName(year, month int) string {
	return fmt.Sprintf("reporte_ventas_%d_%s.csv", year, models.MonthName(month))
}

// ExportCSV writes one row per sale
func (s *StatsService) ExportCSV(w io.Writer, sales []models.Sale) error {
	if len(sales) == 0 {
		return ErrNothingToReport
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "Fecha", "Mesa", "Items", "Cantidad Total Items", "Total Venta"}); err != nil {
		return err
	}
	for _, sale := range sales {
		items := lo.Map(sale.Items, func(item models.LineItem, _ int) string {
			return fmt.Sprintf("%dx %s", item.Quantity, item.Name)
		})
		record := []string{
			sale.ID,
			sale.CreatedAt.Format("02/01/2006 15:04:05"),
			sale.Table,
			strings.Join(items, "; "),
			strconv.Itoa(sale.ItemCount()),
			strconv.FormatFloat(sale.Total, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PrintMonthlyReport renders the monthly report and opens it for printing
func (s *StatsService) PrintMonthlyReport(ctx context.Context, year, month int) error {
	report, err := s.Report(ctx, year, month)
	if err != nil {
		return err
	}
	if len(report.Sales) == 0 {
		return ErrNothingToReport
	}

	doc, err := document.MonthlyReport(report)
	if err != nil {
		return fmt.Errorf("failed to render monthly report: %w", err)
	}
	return s.printerSvc.PrintDocument(ctx, doc)
}
