package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"ComandaPOS/app/config"
	"ComandaPOS/app/models"
	"ComandaPOS/app/security"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SaleStore persists sales
type SaleStore interface {
	CreateSale(sale *models.Sale) error
	CurrentShift() ([]models.Sale, error)
	History() ([]models.Sale, error)
	Between(from, to time.Time) ([]models.Sale, error)
	CloseShift(ids []string) (int64, error)
	ClearAll() error
}

// CheckoutRequest describes a payment at one table
type CheckoutRequest struct {
	Table         string               `json:"table"`
	ItemIDs       []int64              `json:"item_ids"` // Items paid when splitting by item
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	SplitMode     models.SplitMode     `json:"split_mode"`
	PartySize     int                  `json:"party_size"`
}

// CheckoutResult reports a completed payment. The sale is final even when
// the remote update, drawer pulse or ticket failed.
type CheckoutResult struct {
	Sale        models.Sale `json:"sale"`
	FailedIDs   []int64     `json:"failed_ids,omitempty"` // Items the remote store did not mark paid
	DrawerErr   error       `json:"-"`
	PrintErr    error       `json:"-"`
	DrawerError string      `json:"drawer_error,omitempty"`
	PrintError  string      `json:"print_error,omitempty"`
}

// SalesService handles checkout and shift operations
type SalesService struct {
	store      SaleStore
	orders     *Reconciler
	marker     PaidMarker
	printerSvc *PrinterService
	stats      *StatsService // optional
	now        func() time.Time

	mu      sync.RWMutex
	pinHash string
}

// NewSalesService creates a sales service
func NewSalesService(store SaleStore, orders *Reconciler, marker PaidMarker, printerSvc *PrinterService, stats *StatsService) *SalesService {
	return &SalesService{
		store:      store,
		orders:     orders,
		marker:     marker,
		printerSvc: printerSvc,
		stats:      stats,
		now:        time.Now,
	}
}

// Configure applies the security section of the configuration
func (s *SalesService) Configure(cfg *config.AppConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinHash = cfg.Security.SupervisorPINHash
}

// Checkout records a payment. The sale is persisted first; if that fails
// nothing else happens. Afterwards the items are marked paid remotely,
// removed locally, the drawer is opened for cash on a thermal printer and the
// ticket is printed. Failures after persistence are reported in the result.
func (s *SalesService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	items, err := s.checkoutItems(req)
	if err != nil {
		return nil, err
	}
	split := req.SplitMode
	if split == "" {
		split = models.SplitFull
	}
	partySize := max(req.PartySize, 1)

	sale := models.NewSale("venta_"+uuid.NewString(), req.Table, items, req.PaymentMethod, split, partySize, s.now())
	if err := s.store.CreateSale(&sale); err != nil {
		log.Printf("[ERROR] Checkout aborted, sale not saved | table: %s | Error: %v", req.Table, err)
		return nil, err
	}
	log.Printf("[INFO] Sale %s saved | table: %s | total: %.2f | %s", sale.ID, sale.Table, sale.Total, sale.PaymentMethod)

	result := &CheckoutResult{Sale: sale}

	ids := models.ItemIDs(items)
	if s.marker != nil {
		result.FailedIDs = s.marker.MarkPaid(ctx, ids)
	}
	s.orders.ApplyCheckout(req.Table, ids)
	if s.stats != nil {
		s.stats.Invalidate()
	}

	if sale.PaymentMethod == models.PaymentCash && s.printerSvc.Target().Kind == models.PrinterThermal {
		if err := s.printerSvc.OpenCashDrawer(ctx); err != nil {
			log.Printf("[WARNING] Cash drawer did not open | Error: %v", err)
			result.DrawerErr = err
			result.DrawerError = err.Error()
		}
	}

	ticket := models.Ticket{
		Business:      s.printerSvc.Business(),
		Table:         sale.Table,
		Items:         sale.Items,
		PaymentMethod: sale.PaymentMethod,
		SplitMode:     sale.SplitMode,
		PartySize:     sale.PartySize,
		IssuedAt:      sale.CreatedAt,
	}
	if err := s.printerSvc.PrintTicket(ctx, ticket); err != nil {
		log.Printf("[WARNING] Ticket for sale %s not printed | Error: %v", sale.ID, err)
		result.PrintErr = err
		result.PrintError = err.Error()
	}
	return result, nil
}

func (s *SalesService) checkoutItems(req CheckoutRequest) ([]models.LineItem, error) {
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidCheckout, req.PaymentMethod)
	}
	if req.SplitMode != "" && !req.SplitMode.Valid() {
		return nil, fmt.Errorf("%w: unknown split mode %q", ErrInvalidCheckout, req.SplitMode)
	}
	if req.PartySize < 0 {
		return nil, fmt.Errorf("%w: party size must be positive", ErrInvalidCheckout)
	}

	order, ok := s.orders.Table(req.Table)
	if !ok || len(order.Items) == 0 {
		return nil, fmt.Errorf("%w: table %q has no open items", ErrInvalidCheckout, req.Table)
	}
	if req.SplitMode != models.SplitByItem {
		return order.Items, nil
	}

	if len(req.ItemIDs) == 0 {
		return nil, fmt.Errorf("%w: no items selected", ErrInvalidCheckout)
	}
	items := make([]models.LineItem, 0, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		i := slices.IndexFunc(order.Items, func(item models.LineItem) bool { return item.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: item %d is not open at %q", ErrInvalidCheckout, id, req.Table)
		}
		if !slices.ContainsFunc(items, func(item models.LineItem) bool { return item.ID == id }) {
			items = append(items, order.Items[i])
		}
	}
	return items, nil
}

// PrintPreBill prints the current bill of a table without payment details
func (s *SalesService) PrintPreBill(ctx context.Context, table string, partySize int) error {
	order, ok := s.orders.Table(table)
	if !ok || len(order.Items) == 0 {
		return fmt.Errorf("%w: table %q has no open items", ErrInvalidCheckout, table)
	}

	ticket := models.Ticket{
		Business:  s.printerSvc.Business(),
		Table:     order.Table,
		Items:     order.Items,
		PartySize: max(partySize, 1),
		IssuedAt:  s.now(),
	}
	if partySize > 1 {
		ticket.SplitMode = models.SplitPerPerson
	}
	return s.printerSvc.PrintTicket(ctx, ticket)
}

// CurrentShift returns the sales since the last Z report
func (s *SalesService) CurrentShift() ([]models.Sale, error) {
	return s.store.CurrentShift()
}

// History returns the sales of closed shifts
func (s *SalesService) History() ([]models.Sale, error) {
	return s.store.History()
}

// MonthSales returns the locally recorded sales of one calendar month, current
// shift and history alike, oldest first
func (s *SalesService) MonthSales(year, month int) ([]models.Sale, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	return s.store.Between(from, from.AddDate(0, 1, 0))
}

// Summary aggregates the current shift
func (s *SalesService) Summary() (models.ShiftSummary, error) {
	sales, err := s.store.CurrentShift()
	if err != nil {
		return models.ShiftSummary{}, err
	}
	return models.SummarizeShift(sales, s.now()), nil
}

// CloseShift prints the Z report and, once printed, moves the reported sales
// into history. Sales recorded while the report prints stay in the next shift.
func (s *SalesService) CloseShift(ctx context.Context) (models.ShiftSummary, error) {
	sales, err := s.store.CurrentShift()
	if err != nil {
		return models.ShiftSummary{}, err
	}
	if len(sales) == 0 {
		return models.ShiftSummary{}, ErrNothingToReport
	}

	summary := models.SummarizeShift(sales, s.now())
	if err := s.printerSvc.PrintShiftSummary(ctx, summary); err != nil {
		return summary, fmt.Errorf("shift not closed, report could not be printed: %w", err)
	}

	ids := lo.Map(sales, func(sale models.Sale, _ int) string { return sale.ID })
	moved, err := s.store.CloseShift(ids)
	if err != nil {
		return summary, err
	}
	log.Printf("[INFO] Shift closed | %d sales | total: %.2f", moved, summary.TotalSales)
	return summary, nil
}

// ClearAll deletes the current shift and the whole history. When a supervisor
// PIN is configured it must be given.
func (s *SalesService) ClearAll(pin string) error {
	s.mu.RLock()
	hash := s.pinHash
	s.mu.RUnlock()

	if hash != "" {
		if pin == "" {
			return ErrPINRequired
		}
		if err := security.CheckPIN(hash, pin); err != nil {
			if errors.Is(err, security.ErrPINMismatch) {
				log.Printf("[WARNING] Sales wipe rejected, wrong supervisor PIN")
				return ErrInvalidPIN
			}
			return err
		}
	}

	if err := s.store.ClearAll(); err != nil {
		return err
	}
	if s.stats != nil {
		s.stats.Invalidate()
	}
	log.Printf("[WARNING] All sales data cleared")
	return nil
}
