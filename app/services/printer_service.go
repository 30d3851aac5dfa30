package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ComandaPOS/app/config"
	"ComandaPOS/app/document"
	"ComandaPOS/app/escpos"
	"ComandaPOS/app/models"
	"ComandaPOS/app/printer"
)

// defaultDiscoveryTimeout bounds an mDNS browse when the caller gives none
const defaultDiscoveryTimeout = 3 * time.Second

// PrinterStatus describes the configured target and connected device
type PrinterStatus struct {
	Kind      models.PrinterKind  `json:"kind"`
	Paper     models.PaperWidth   `json:"paper"`
	Connected bool                `json:"connected"`
	Device    *printer.DeviceInfo `json:"device,omitempty"`
}

// PrinterService routes tickets to the thermal device or to the document sink
// according to the configured printer kind.
type PrinterService struct {
	handle   *printer.DeviceHandle
	sink     printer.DocumentSink
	detector printer.Detector

	dial     func(ctx context.Context, address string) (printer.Transport, printer.DeviceInfo, error)
	discover func(ctx context.Context, timeout time.Duration) ([]printer.NetworkPrinter, error)

	mu        sync.RWMutex
	target    models.PrinterTarget
	business  models.Business
	receiptQR string
}

// NewPrinterService creates a printer service. detector may be nil when USB
// printing is unavailable.
func NewPrinterService(handle *printer.DeviceHandle, sink printer.DocumentSink, detector printer.Detector) *PrinterService {
	return &PrinterService{
		handle:   handle,
		sink:     sink,
		detector: detector,
		dial: func(ctx context.Context, address string) (printer.Transport, printer.DeviceInfo, error) {
			return printer.DialNetwork(ctx, address)
		},
		discover: printer.Discover,
		target:   models.PrinterTarget{Kind: models.PrinterGeneric, Paper: models.Paper80mm},
	}
}

// Configure applies the printer and business sections of the configuration
func (s *PrinterService) Configure(cfg *config.AppConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.target = cfg.PrinterTarget()
	s.business = cfg.BusinessInfo()
	s.receiptQR = cfg.Printer.ReceiptQR
}

// Target returns the configured rendering target
func (s *PrinterService) Target() models.PrinterTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// Business returns the configured ticket header
func (s *PrinterService) Business() models.Business {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.business
}

// useDevice reports whether byte commands should go to the device
func (s *PrinterService) useDevice(job string) bool {
	if s.Target().Kind != models.PrinterThermal {
		return false
	}
	if !s.handle.Connected() {
		log.Printf("[WARNING] Thermal printer not connected, printing %s as document", job)
		return false
	}
	return true
}

// PrintTicket prints a receipt or pre-bill
func (s *PrinterService) PrintTicket(ctx context.Context, t models.Ticket) error {
	s.mu.RLock()
	if t.Business == (models.Business{}) {
		t.Business = s.business
	}
	if t.FooterQR == "" {
		t.FooterQR = s.receiptQR
	}
	paper := s.target.Paper
	s.mu.RUnlock()

	if s.useDevice("ticket") {
		data, err := escpos.New(paper).Ticket(t)
		if err != nil {
			return fmt.Errorf("failed to encode ticket: %w", err)
		}
		return s.handle.Send(ctx, data)
	}

	doc, err := document.Ticket(t)
	if err != nil {
		return fmt.Errorf("failed to render ticket: %w", err)
	}
	return s.sink.Show(ctx, doc)
}

// PrintShiftSummary prints the end-of-shift (Z) report
func (s *PrinterService) PrintShiftSummary(ctx context.Context, summary models.ShiftSummary) error {
	business := s.Business()

	if s.useDevice("shift summary") {
		data, err := escpos.New(s.Target().Paper).ShiftSummary(business, summary)
		if err != nil {
			return fmt.Errorf("failed to encode shift summary: %w", err)
		}
		return s.handle.Send(ctx, data)
	}

	doc, err := document.ShiftSummary(business, summary)
	if err != nil {
		return fmt.Errorf("failed to render shift summary: %w", err)
	}
	return s.sink.Show(ctx, doc)
}

// PrintDocument sends a rendered document to the print surface
func (s *PrinterService) PrintDocument(ctx context.Context, doc document.Document) error {
	return s.sink.Show(ctx, doc)
}

// OpenCashDrawer pulses the drawer through the thermal printer. It fails
// without sending anything when the configured printer is generic.
func (s *PrinterService) OpenCashDrawer(ctx context.Context) error {
	if s.Target().Kind != models.PrinterThermal {
		return printer.ErrDrawerUnsupported
	}
	return s.handle.Send(ctx, escpos.CashDrawer())
}

// ListUSB returns attached printers from the vendor allow-list
func (s *PrinterService) ListUSB(ctx context.Context) ([]printer.Candidate, error) {
	if s.detector == nil {
		return nil, printer.ErrNoDeviceFound
	}
	return s.detector.List(ctx)
}

// ConnectUSB runs the handshake with one candidate and makes it the active
// device, replacing any previous connection.
func (s *PrinterService) ConnectUSB(ctx context.Context, c printer.Candidate) (printer.DeviceInfo, error) {
	if s.detector == nil {
		return printer.DeviceInfo{}, printer.ErrNoDeviceFound
	}
	transport, info, err := s.detector.Open(ctx, c)
	if err != nil {
		log.Printf("[ERROR] USB printer handshake failed | %s | Error: %v", c, err)
		return printer.DeviceInfo{}, err
	}
	s.handle.Connect(transport, info)
	return info, nil
}

// DetectUSB connects to the first attached allow-listed printer. Calling it
// while connected re-runs the whole handshake.
func (s *PrinterService) DetectUSB(ctx context.Context) (printer.DeviceInfo, error) {
	candidates, err := s.ListUSB(ctx)
	if err != nil {
		return printer.DeviceInfo{}, err
	}
	if len(candidates) == 0 {
		return printer.DeviceInfo{}, printer.ErrNoDeviceFound
	}

	var errs []error
	for _, c := range candidates {
		info, err := s.ConnectUSB(ctx, c)
		if err == nil {
			return info, nil
		}
		errs = append(errs, err)
	}
	return printer.DeviceInfo{}, errors.Join(errs...)
}

// ConnectNetwork connects to a raw-port network printer
func (s *PrinterService) ConnectNetwork(ctx context.Context, address string) (printer.DeviceInfo, error) {
	if address == "" {
		return printer.DeviceInfo{}, errors.New("network printer address is required")
	}
	transport, info, err := s.dial(ctx, address)
	if err != nil {
		log.Printf("[ERROR] Network printer connection failed | %s | Error: %v", address, err)
		return printer.DeviceInfo{}, err
	}
	s.handle.Connect(transport, info)
	return info, nil
}

// DiscoverNetwork browses the local network for raw-port printers
func (s *PrinterService) DiscoverNetwork(ctx context.Context, timeout time.Duration) ([]printer.NetworkPrinter, error) {
	if timeout <= 0 {
		timeout = defaultDiscoveryTimeout
	}
	return s.discover(ctx, timeout)
}

// Reconnect restores the configured network connection, if any
func (s *PrinterService) Reconnect(ctx context.Context, cfg *config.AppConfig) error {
	if cfg.Printer.Kind != models.PrinterThermal || cfg.Printer.Connection != "network" {
		return nil
	}
	_, err := s.ConnectNetwork(ctx, cfg.Printer.NetworkAddress)
	return err
}

// Status returns the printer target and connection state
func (s *PrinterService) Status() PrinterStatus {
	target := s.Target()
	status := PrinterStatus{Kind: target.Kind, Paper: target.Paper}
	if info, ok := s.handle.Info(); ok {
		status.Connected = true
		status.Device = &info
	}
	return status
}

// Close disconnects the device
func (s *PrinterService) Close() error {
	return s.handle.Close()
}
