package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ComandaPOS/app/config"
	"ComandaPOS/app/document"
	"ComandaPOS/app/escpos"
	"ComandaPOS/app/models"
	"ComandaPOS/app/printer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryTransport struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
	closed bool
}

func (m *memoryTransport) Write(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, append([]byte(nil), data...))
	return nil
}

func (m *memoryTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memoryTransport) written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type memorySink struct {
	mu   sync.Mutex
	docs []document.Document
	err  error
}

func (m *memorySink) Show(ctx context.Context, doc document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs = append(m.docs, doc)
	return nil
}

func (m *memorySink) shown() []document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs
}

type fakeDetector struct {
	candidates []printer.Candidate
	listErr    error
	open       func(c printer.Candidate) (printer.Transport, printer.DeviceInfo, error)
}

func (f *fakeDetector) List(ctx context.Context) ([]printer.Candidate, error) {
	return f.candidates, f.listErr
}

func (f *fakeDetector) Open(ctx context.Context, c printer.Candidate) (printer.Transport, printer.DeviceInfo, error) {
	return f.open(c)
}

func printerConfig(kind models.PrinterKind) *config.AppConfig {
	cfg := &config.AppConfig{
		Business: config.BusinessConfig{Name: "La Esquina", Phone: "555-0101"},
		Printer:  config.PrinterConfig{Kind: kind, PaperWidth: models.Paper80mm},
	}
	cfg.ApplyDefaults()
	return cfg
}

func newTestPrinter(t *testing.T, kind models.PrinterKind) (*PrinterService, *memorySink, *printer.DeviceHandle) {
	t.Helper()
	sink := &memorySink{}
	handle := printer.NewDeviceHandle()
	t.Cleanup(func() { handle.Close() })
	svc := NewPrinterService(handle, sink, nil)
	svc.Configure(printerConfig(kind))
	return svc, sink, handle
}

func testTicket() models.Ticket {
	return models.Ticket{
		Table:    "Mesa 1",
		Items:    []models.LineItem{sodaMesa1, burgerMesa1},
		IssuedAt: time.Date(2026, 3, 14, 20, 15, 0, 0, time.Local),
	}
}

func TestPrintTicketThermal(t *testing.T) {
	svc, sink, handle := newTestPrinter(t, models.PrinterThermal)
	transport := &memoryTransport{}
	handle.Connect(transport, printer.DeviceInfo{Name: "TM-T20"})

	require.NoError(t, svc.PrintTicket(context.Background(), testTicket()))

	require.Len(t, transport.written(), 1)
	assert.Contains(t, string(transport.written()[0]), "TOTAL: $22.50")
	assert.Contains(t, string(transport.written()[0]), "La Esquina")
	assert.Empty(t, sink.shown())
}

func TestPrintTicketGeneric(t *testing.T) {
	svc, sink, _ := newTestPrinter(t, models.PrinterGeneric)

	require.NoError(t, svc.PrintTicket(context.Background(), testTicket()))

	docs := sink.shown()
	require.Len(t, docs, 1)
	assert.Equal(t, "Ticket Mesa 1", docs[0].Title)
	assert.Contains(t, docs[0].HTML, "La Esquina")
}

func TestPrintTicketThermalWithoutDeviceFallsBack(t *testing.T) {
	svc, sink, _ := newTestPrinter(t, models.PrinterThermal)

	require.NoError(t, svc.PrintTicket(context.Background(), testTicket()))
	assert.Len(t, sink.shown(), 1)
}

func TestPrintTicketSurfacesTransportError(t *testing.T) {
	svc, _, handle := newTestPrinter(t, models.PrinterThermal)
	handle.Connect(&memoryTransport{err: printer.ErrAccessDenied}, printer.DeviceInfo{})

	err := svc.PrintTicket(context.Background(), testTicket())
	assert.ErrorIs(t, err, printer.ErrAccessDenied)
}

func TestPrintShiftSummary(t *testing.T) {
	summary := models.ShiftSummary{TotalSales: 30, TotalCash: 20, TotalCard: 10, Transactions: 3, GeneratedAt: time.Now()}

	svc, sink, _ := newTestPrinter(t, models.PrinterGeneric)
	require.NoError(t, svc.PrintShiftSummary(context.Background(), summary))
	require.Len(t, sink.shown(), 1)
	assert.Equal(t, "Corte de Caja (Z)", sink.shown()[0].Title)

	svc, _, handle := newTestPrinter(t, models.PrinterThermal)
	transport := &memoryTransport{}
	handle.Connect(transport, printer.DeviceInfo{})
	require.NoError(t, svc.PrintShiftSummary(context.Background(), summary))
	require.Len(t, transport.written(), 1)
	assert.Contains(t, string(transport.written()[0]), "VENTA TOTAL: $30.00")
}

func TestOpenCashDrawer(t *testing.T) {
	svc, _, handle := newTestPrinter(t, models.PrinterGeneric)
	transport := &memoryTransport{}
	handle.Connect(transport, printer.DeviceInfo{})

	assert.ErrorIs(t, svc.OpenCashDrawer(context.Background()), printer.ErrDrawerUnsupported)
	assert.Empty(t, transport.written())

	svc, _, _ = newTestPrinter(t, models.PrinterThermal)
	assert.ErrorIs(t, svc.OpenCashDrawer(context.Background()), printer.ErrNotConnected)

	svc, _, handle = newTestPrinter(t, models.PrinterThermal)
	transport = &memoryTransport{}
	handle.Connect(transport, printer.DeviceInfo{})
	require.NoError(t, svc.OpenCashDrawer(context.Background()))
	require.Len(t, transport.written(), 1)
	assert.True(t, bytes.Equal(escpos.CashDrawer(), transport.written()[0]))
}

func TestDetectUSB(t *testing.T) {
	sink := &memorySink{}
	handle := printer.NewDeviceHandle()
	defer handle.Close()

	epson := printer.Candidate{Bus: 1, Address: 4, VendorID: 0x04b8, Vendor: "Epson"}
	star := printer.Candidate{Bus: 1, Address: 5, VendorID: 0x0519, Vendor: "Star Micronics"}
	detector := &fakeDetector{
		candidates: []printer.Candidate{epson, star},
		open: func(c printer.Candidate) (printer.Transport, printer.DeviceInfo, error) {
			if c.VendorID == 0x04b8 {
				return nil, printer.DeviceInfo{}, printer.ErrAccessDenied
			}
			return &memoryTransport{}, printer.DescribeDevice("", "Star"), nil
		},
	}
	svc := NewPrinterService(handle, sink, detector)

	info, err := svc.DetectUSB(context.Background())
	require.NoError(t, err)
	assert.Equal(t, printer.DefaultDeviceName, info.Name)
	assert.Equal(t, "Star", info.Vendor)

	status := svc.Status()
	assert.True(t, status.Connected)
	require.NotNil(t, status.Device)
	assert.Equal(t, "Star", status.Device.Vendor)

	detector.candidates = nil
	_, err = svc.DetectUSB(context.Background())
	assert.ErrorIs(t, err, printer.ErrNoDeviceFound)

	detector.candidates = []printer.Candidate{epson}
	_, err = svc.DetectUSB(context.Background())
	assert.ErrorIs(t, err, printer.ErrAccessDenied)

	_, err = NewPrinterService(handle, sink, nil).DetectUSB(context.Background())
	assert.ErrorIs(t, err, printer.ErrNoDeviceFound)
}

func TestConnectNetwork(t *testing.T) {
	svc, _, _ := newTestPrinter(t, models.PrinterThermal)
	transport := &memoryTransport{}
	svc.dial = func(ctx context.Context, address string) (printer.Transport, printer.DeviceInfo, error) {
		if address == "10.0.0.9:9100" {
			return transport, printer.DeviceInfo{Name: "Impresora de Red", Connection: "network", Address: address}, nil
		}
		return nil, printer.DeviceInfo{}, errors.New("connection refused")
	}

	_, err := svc.ConnectNetwork(context.Background(), "")
	assert.Error(t, err)
	_, err = svc.ConnectNetwork(context.Background(), "10.0.0.1:9100")
	assert.Error(t, err)
	assert.False(t, svc.Status().Connected)

	info, err := svc.ConnectNetwork(context.Background(), "10.0.0.9:9100")
	require.NoError(t, err)
	assert.Equal(t, "network", info.Connection)

	require.NoError(t, svc.OpenCashDrawer(context.Background()))
	assert.Len(t, transport.written(), 1)

	require.NoError(t, svc.Close())
	assert.True(t, transport.closed)
}

func TestDiscoverNetworkDefaultsTimeout(t *testing.T) {
	svc, _, _ := newTestPrinter(t, models.PrinterThermal)
	var got time.Duration
	svc.discover = func(ctx context.Context, timeout time.Duration) ([]printer.NetworkPrinter, error) {
		got = timeout
		return []printer.NetworkPrinter{{Name: "TM-T88", Address: "10.0.0.9:9100"}}, nil
	}

	found, err := svc.DiscoverNetwork(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, defaultDiscoveryTimeout, got)
}
