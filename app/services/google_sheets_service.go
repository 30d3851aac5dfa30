package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"ComandaPOS/app/config"
	"ComandaPOS/app/models"

	"github.com/samber/lo"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var sheetHeaders = []interface{}{"ID", "Fecha", "Mesa", "Items", "Cantidad Total Items", "Total Venta"}

// GoogleSheetsService exports monthly sales to a spreadsheet
type GoogleSheetsService struct {
	mu  sync.RWMutex
	cfg config.SheetsConfig

	newService func(ctx context.Context, credentialsJSON string) (*sheets.Service, error)
}

// NewGoogleSheetsService creates the export service
func NewGoogleSheetsService() *GoogleSheetsService {
	return &GoogleSheetsService{newService: newSheetsService}
}

func newSheetsService(ctx context.Context, credentialsJSON string) (*sheets.Service, error) {
	creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("invalid service account credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// Configure applies the sheets section of the configuration
func (s *GoogleSheetsService) Configure(cfg *config.AppConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.Sheets
}

func (s *GoogleSheetsService) service(ctx context.Context) (*sheets.Service, config.SheetsConfig, error) {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	if !cfg.Enabled {
		return nil, cfg, errors.New("Google Sheets integration is disabled")
	}
	if cfg.CredentialsJSON == "" || cfg.SpreadsheetID == "" {
		return nil, cfg, errors.New("missing credentials or spreadsheet ID")
	}
	srv, err := s.newService(ctx, cfg.CredentialsJSON)
	return srv, cfg, err
}

// TestConnection checks that the spreadsheet is reachable
func (s *GoogleSheetsService) TestConnection(ctx context.Context) error {
	srv, cfg, err := s.service(ctx)
	if err != nil {
		return err
	}
	if _, err := srv.Spreadsheets.Get(cfg.SpreadsheetID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to access spreadsheet: %w", err)
	}
	return nil
}

// ExportMonthly appends one row per sale plus a totals row and returns the
// number of rows written
func (s *GoogleSheetsService) ExportMonthly(ctx context.Context, year, month int, sales []models.Sale) (int, error) {
	if len(sales) == 0 {
		return 0, ErrNothingToReport
	}
	srv, cfg, err := s.service(ctx)
	if err != nil {
		return 0, err
	}

	if err := ensureHeaders(ctx, srv, cfg); err != nil {
		return 0, fmt.Errorf("failed to ensure headers: %w", err)
	}

	rows := MonthlyRows(year, month, sales)
	valueRange := &sheets.ValueRange{Values: rows}
	_, err = srv.Spreadsheets.Values.Append(cfg.SpreadsheetID, fmt.Sprintf("%s!A:F", cfg.SheetName), valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("unable to append data: %w", err)
	}

	log.Printf("[INFO] Monthly sales exported to Google Sheets | %s %d | %d rows", models.MonthName(month), year, len(rows))
	return len(rows), nil
}

// MonthlyRows builds the sheet rows for a month of sales
func MonthlyRows(year, month int, sales []models.Sale) [][]interface{} {
	rows := make([][]interface{}, 0, len(sales)+1)
	for _, sale := range sales {
		items := lo.Map(sale.Items, func(item models.LineItem, _ int) string {
			return fmt.Sprintf("%dx %s", item.Quantity, item.Name)
		})
		rows = append(rows, []interface{}{
			sale.ID,
			sale.CreatedAt.Format("02/01/2006 15:04"),
			sale.Table,
			strings.Join(items, "; "),
			sale.ItemCount(),
			fmt.Sprintf("%.2f", sale.Total),
		})
	}

	stats := ComputeStats(sales)
	itemCount := lo.SumBy(sales, func(sale models.Sale) int { return sale.ItemCount() })
	rows = append(rows, []interface{}{
		fmt.Sprintf("TOTAL %s %d", models.MonthName(month), year),
		"",
		"",
		fmt.Sprintf("%d transacciones", stats.Transactions),
		itemCount,
		fmt.Sprintf("%.2f", stats.TotalSales),
	})
	return rows
}

// ensureHeaders writes the header row when the sheet has none
func ensureHeaders(ctx context.Context, srv *sheets.Service, cfg config.SheetsConfig) error {
	headerRange := fmt.Sprintf("%s!A1:F1", cfg.SheetName)
	resp, err := srv.Spreadsheets.Values.Get(cfg.SpreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) >= len(sheetHeaders) {
		return nil
	}

	_, err = srv.Spreadsheets.Values.Update(cfg.SpreadsheetID, headerRange, &sheets.ValueRange{
		Values: [][]interface{}{sheetHeaders},
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
