package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"ComandaPOS/app/config"
	"ComandaPOS/app/models"
)

// ReportSchedulerService exports the previous month to Google Sheets on the
// first day of every month
type ReportSchedulerService struct {
	stats  *StatsService
	sheets *GoogleSheetsService

	mu       sync.Mutex
	cfg      config.SheetsConfig
	stopChan chan struct{}
	done     chan struct{}
	running  bool
	lastRun  time.Time
	lastErr  error

	now func() time.Time
}

// SchedulerStatus is the scheduler state shown in settings
type SchedulerStatus struct {
	Running   bool      `json:"running"`
	Enabled   bool      `json:"enabled"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

func NewReportSchedulerService(stats *StatsService, sheets *GoogleSheetsService) *ReportSchedulerService {
	return &ReportSchedulerService{
		stats:  stats,
		sheets: sheets,
		now:    time.Now,
	}
}

// Configure applies the sheets settings and restarts the scheduler when needed
func (s *ReportSchedulerService) Configure(cfg *config.AppConfig) {
	s.Stop()

	s.mu.Lock()
	s.cfg = cfg.Sheets
	s.mu.Unlock()

	if err := s.Start(); err != nil {
		log.Printf("[WARNING] Report scheduler not started | %v", err)
	}
}

// Start begins the scheduler
func (s *ReportSchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler is already running")
	}
	if !s.cfg.Enabled || !s.cfg.AutoExport {
		log.Println("[INFO] Google Sheets auto-export is disabled")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stopChan, s.done)

	log.Println("[INFO] Report scheduler started")
	return nil
}

// Stop stops the scheduler and waits for the loop to exit
func (s *ReportSchedulerService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stop, done := s.stopChan, s.done
	s.running = false
	s.mu.Unlock()

	close(stop)
	<-done
	log.Println("[INFO] Report scheduler stopped")
}

func (s *ReportSchedulerService) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		s.mu.Lock()
		exportTime := s.cfg.ExportTime
		s.mu.Unlock()

		now := s.now()
		wait := nextMonthlyRun(now, exportTime).Sub(now)
		log.Printf("[INFO] Next Google Sheets export scheduled in %v", wait.Round(time.Minute))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			if err := s.ExportPreviousMonth(ctx); err != nil {
				log.Printf("[ERROR] Scheduled export failed | %v", err)
			}
			cancel()
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// ExportPreviousMonth sends the month before the current one to the sheet
func (s *ReportSchedulerService) ExportPreviousMonth(ctx context.Context) error {
	now := s.now()
	prev := now.AddDate(0, 0, 1-now.Day()).AddDate(0, -1, 0)
	year, month := prev.Year(), int(prev.Month())

	sales, err := s.stats.MonthlySales(ctx, year, month)
	if err == nil {
		_, err = s.sheets.ExportMonthly(ctx, year, month, sales)
	}
	if errors.Is(err, ErrNothingToReport) {
		log.Printf("[INFO] No sales to export for %s %d", models.MonthName(month), year)
		err = nil
	}

	s.mu.Lock()
	s.lastRun = s.now()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// GetStatus returns the current scheduler status
func (s *ReportSchedulerService) GetStatus() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		Running: s.running,
		Enabled: s.cfg.Enabled && s.cfg.AutoExport,
		LastRun: s.lastRun,
	}
	if status.Enabled {
		status.NextRun = nextMonthlyRun(s.now(), s.cfg.ExportTime)
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

// nextMonthlyRun returns the next first-of-month instant at the "HH:MM" time
func nextMonthlyRun(now time.Time, exportTime string) time.Time {
	at, err := time.Parse("15:04", exportTime)
	if err != nil {
		log.Printf("[WARNING] Invalid export time %q, using 06:00", exportTime)
		at, _ = time.Parse("15:04", "06:00")
	}

	target := time.Date(now.Year(), now.Month(), 1, at.Hour(), at.Minute(), 0, 0, now.Location())
	if !now.Before(target) {
		target = target.AddDate(0, 1, 0)
	}
	return target
}
