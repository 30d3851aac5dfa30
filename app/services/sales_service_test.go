package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ComandaPOS/app/config"
	"ComandaPOS/app/database"
	"ComandaPOS/app/document"
	"ComandaPOS/app/models"
	"ComandaPOS/app/printer"
	"ComandaPOS/app/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarker struct {
	mu     sync.Mutex
	calls  [][]int64
	failed []int64
}

func (f *fakeMarker) MarkPaid(ctx context.Context, ids []int64) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ids)
	return f.failed
}

type failingStore struct {
	*database.Store
}

func (failingStore) CreateSale(*models.Sale) error {
	return errors.New("disk full")
}

type salesFixture struct {
	svc       *SalesService
	store     *database.Store
	orders    *Reconciler
	marker    *fakeMarker
	sink      *memorySink
	handle    *printer.DeviceHandle
	printer   *PrinterService
	transport *memoryTransport
}

func newSalesFixture(t *testing.T, kind models.PrinterKind) *salesFixture {
	t.Helper()

	store, err := database.Open(database.Options{Path: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	source := &fakeSource{fetch: func(context.Context) ([]models.LineItem, error) {
		return []models.LineItem{sodaMesa1, burgerMesa1, cafeMesa2}, nil
	}}
	orders := NewReconciler(source, nil, time.Hour)
	require.NoError(t, orders.Refresh(context.Background()))

	printerSvc, sink, handle := newTestPrinter(t, kind)
	transport := &memoryTransport{}
	if kind == models.PrinterThermal {
		handle.Connect(transport, printer.DeviceInfo{Name: "TM-T20"})
	}

	marker := &fakeMarker{}
	svc := NewSalesService(store, orders, marker, printerSvc, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC) }

	return &salesFixture{
		svc: svc, store: store, orders: orders, marker: marker,
		sink: sink, handle: handle, printer: printerSvc, transport: transport,
	}
}

func TestCheckoutFullTable(t *testing.T) {
	f := newSalesFixture(t, models.PrinterGeneric)

	result, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		Table:         "Mesa 1",
		PaymentMethod: models.PaymentCard,
	})
	require.NoError(t, err)

	assert.Regexp(t, `^venta_[0-9a-f-]{36}$`, result.Sale.ID)
	assert.Equal(t, 22.5, result.Sale.Total)
	assert.Equal(t, models.SplitFull, result.Sale.SplitMode)
	assert.Equal(t, 1, result.Sale.PartySize)
	assert.Nil(t, result.PrintErr)
	assert.Nil(t, result.DrawerErr)

	current, err := f.svc.CurrentShift()
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, result.Sale.ID, current[0].ID)

	require.Len(t, f.marker.calls, 1)
	assert.ElementsMatch(t, []int64{1, 2}, f.marker.calls[0])

	_, ok := f.orders.Table("Mesa 1")
	assert.False(t, ok)

	docs := f.sink.shown()
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].HTML, "Tarjeta")
}

func TestCheckoutByItem(t *testing.T) {
	f := newSalesFixture(t, models.PrinterGeneric)

	result, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		Table:         "Mesa 1",
		ItemIDs:       []int64{2, 2},
		PaymentMethod: models.PaymentCash,
		SplitMode:     models.SplitByItem,
	})
	require.NoError(t, err)
	assert.Equal(t, 12.5, result.Sale.Total)
	require.Len(t, result.Sale.Items, 1)

	order, ok := f.orders.Table("Mesa 1")
	require.True(t, ok)
	assert.Equal(t, []int64{1}, models.ItemIDs(order.Items))
}

func TestCheckoutValidation(t *testing.T) {
	f := newSalesFixture(t, models.PrinterGeneric)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CheckoutRequest
	}{
		{"unknown table", CheckoutRequest{Table: "Mesa 9", PaymentMethod: models.PaymentCash}},
		{"unknown method", CheckoutRequest{Table: "Mesa 1", PaymentMethod: models.PaymentUnknown}},
		{"unknown split", CheckoutRequest{Table: "Mesa 1", PaymentMethod: models.PaymentCash, SplitMode: "halves"}},
		{"negative party", CheckoutRequest{Table: "Mesa 1", PaymentMethod: models.PaymentCash, PartySize: -2}},
		{"no items selected", CheckoutRequest{Table: "Mesa 1", PaymentMethod: models.PaymentCash, SplitMode: models.SplitByItem}},
		{"item from another table", CheckoutRequest{Table: "Mesa 1", PaymentMethod: models.PaymentCash, SplitMode: models.SplitByItem, ItemIDs: []int64{3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Checkout(ctx, tt.req)
			assert.ErrorIs(t, err, ErrInvalidCheckout)
		})
	}

	current, err := f.svc.CurrentShift()
	require.NoError(t, err)
	assert.Empty(t, current)
	assert.Empty(t, f.marker.calls)
}

func TestCheckoutAbortsWhenSaleIsNotSaved(t *testing.T) {
	f := newSalesFixture(t, models.PrinterThermal)
	f.svc.store = failingStore{f.store}

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{Table: "Mesa 1", PaymentMethod: models.PaymentCash})
	assert.EqualError(t, err, "disk full")

	assert.Empty(t, f.marker.calls)
	assert.Empty(t, f.transport.written())
	order, ok := f.orders.Table("Mesa 1")
	require.True(t, ok)
	assert.Len(t, order.Items, 2)
}

func TestCheckoutCashOnThermalOpensDrawerThenPrints(t *testing.T) {
	f := newSalesFixture(t, models.PrinterThermal)

	result, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		Table:         "Mesa 1",
		PaymentMethod: models.PaymentCash,
		SplitMode:     models.SplitPerPerson,
		PartySize:     3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Sale.PartySize)

	writes := f.transport.written()
	require.Len(t, writes, 2)
	assert.Equal(t, []byte{0x1b, 0x70, 0x00, 0x19, 0xfa}, writes[0])
	assert.Contains(t, string(writes[1]), "TOTAL: $22.50")
}

func TestCheckoutKeepsSaleWhenPrintFails(t *testing.T) {
	f := newSalesFixture(t, models.PrinterThermal)
	f.handle.Connect(&memoryTransport{err: printer.ErrAccessDenied}, printer.DeviceInfo{})
	f.marker.failed = []int64{2}

	result, err := f.svc.Checkout(context.Background(), CheckoutRequest{Table: "Mesa 1", PaymentMethod: models.PaymentCash})
	require.NoError(t, err)
	assert.ErrorIs(t, result.DrawerErr, printer.ErrAccessDenied)
	assert.ErrorIs(t, result.PrintErr, printer.ErrAccessDenied)
	assert.NotEmpty(t, result.PrintError)
	assert.Equal(t, []int64{2}, result.FailedIDs)

	current, err := f.svc.CurrentShift()
	require.NoError(t, err)
	assert.Len(t, current, 1)
}

func TestPrintPreBill(t *testing.T) {
	f := newSalesFixture(t, models.PrinterGeneric)

	require.NoError(t, f.svc.PrintPreBill(context.Background(), "Mesa 1", 2))
	docs := f.sink.shown()
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].HTML, "Por persona (2): $11.25")
	assert.NotContains(t, docs[0].HTML, "Método de pago")

	assert.ErrorIs(t, f.svc.PrintPreBill(context.Background(), "Mesa 9", 1), ErrInvalidCheckout)
}

func TestCloseShift(t *testing.T) {
	f := newSalesFixture(t, models.PrinterGeneric)
	ctx := context.Background()

	_, err := f.svc.CloseShift(ctx)
	assert.ErrorIs(t, err, ErrNothingToReport)

	_, err = f.svc.Checkout(ctx, CheckoutRequest{Table: "Mesa 1", PaymentMethod: models.PaymentCash})
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, CheckoutRequest{Table: "Mesa 2", PaymentMethod: models.PaymentCard})
	require.NoError(t, err)

	summary, err := f.svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Transactions)
	assert.Equal(t, 22.5, summary.TotalCash)
	assert.Equal(t, 2.0, summary.TotalCard)

	f.sink.err = errors.New("window blocked")
	_, err = f.svc.CloseShift(ctx)
	assert.Error(t, err)
	current, err := f.svc.CurrentShift()
	require.NoError(t, err)
	assert.Len(t, current, 2)

	f.sink.err = nil
	closed, err := f.svc.CloseShift(ctx)
	require.NoError(t, err)
	assert.Equal(t, 24.5, closed.TotalSales)

	current, err = f.svc.CurrentShift()
	require.NoError(t, err)
	assert.Empty(t, current)
	history, err := f.svc.History()
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

// hookSink runs onShow before recording the document
type hookSink struct {
	memorySink
	onShow func()
}

func (h *hookSink) Show(ctx context.Context, doc document.Document) error {
	if h.onShow != nil {
		h.onShow()
	}
	return h.memorySink.Show(ctx, doc)
}

func TestCloseShiftKeepsSalesRecordedWhilePrinting(t *testing.T) {
	f := newSalesFixture(t, models.PrinterGeneric)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, CheckoutRequest{Table: "Mesa 1", PaymentMethod: models.PaymentCash})
	require.NoError(t, err)

	late := models.NewSale("venta_tarde", "Mesa 2", []models.LineItem{cafeMesa2}, models.PaymentCard, models.SplitFull, 1, f.svc.now())
	sink := &hookSink{onShow: func() {
		assert.NoError(t, f.store.CreateSale(&late))
	}}
	handle := printer.NewDeviceHandle()
	t.Cleanup(func() { handle.Close() })
	printerSvc := NewPrinterService(handle, sink, nil)
	printerSvc.Configure(printerConfig(models.PrinterGeneric))
	svc := NewSalesService(f.store, f.orders, f.marker, printerSvc, nil)
	svc.now = f.svc.now

	summary, err := svc.CloseShift(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Transactions)
	assert.Equal(t, 22.5, summary.TotalSales)
	assert.Len(t, sink.shown(), 1)

	history, err := svc.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEqual(t, "venta_tarde", history[0].ID)

	current, err := svc.CurrentShift()
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "venta_tarde", current[0].ID)
}

func TestMonthSales(t *testing.T) {
	f := newSalesFixture(t, models.PrinterGeneric)
	march := time.Date(2026, 3, 20, 13, 0, 0, 0, time.Local)
	april := time.Date(2026, 4, 2, 13, 0, 0, 0, time.Local)

	for _, sale := range []models.Sale{
		models.NewSale("venta_marzo_1", "Mesa 1", []models.LineItem{sodaMesa1}, models.PaymentCash, models.SplitFull, 1, march),
		models.NewSale("venta_marzo_2", "Mesa 2", []models.LineItem{cafeMesa2}, models.PaymentCard, models.SplitFull, 1, march.Add(time.Hour)),
		models.NewSale("venta_abril", "Mesa 1", []models.LineItem{burgerMesa1}, models.PaymentCash, models.SplitFull, 1, april),
	} {
		require.NoError(t, f.store.CreateSale(&sale))
	}
	_, err := f.store.CloseShift([]string{"venta_marzo_1"})
	require.NoError(t, err)

	sales, err := f.svc.MonthSales(2026, 3)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "venta_marzo_1", sales[0].ID)
	assert.Equal(t, "venta_marzo_2", sales[1].ID)

	_, err = f.svc.MonthSales(2026, 13)
	assert.Error(t, err)
}

func TestClearAllRequiresPIN(t *testing.T) {
	f := newSalesFixture(t, models.PrinterGeneric)
	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{Table: "Mesa 1", PaymentMethod: models.PaymentCash})
	require.NoError(t, err)

	hash, err := security.HashPIN("2468")
	require.NoError(t, err)
	f.svc.Configure(&config.AppConfig{Security: config.SecurityConfig{SupervisorPINHash: hash}})

	assert.ErrorIs(t, f.svc.ClearAll(""), ErrPINRequired)
	assert.ErrorIs(t, f.svc.ClearAll("1111"), ErrInvalidPIN)
	current, err := f.svc.CurrentShift()
	require.NoError(t, err)
	assert.Len(t, current, 1)

	require.NoError(t, f.svc.ClearAll("2468"))
	current, err = f.svc.CurrentShift()
	require.NoError(t, err)
	assert.Empty(t, current)
}

func TestClearAllWithoutPINConfigured(t *testing.T) {
	f := newSalesFixture(t, models.PrinterGeneric)
	assert.NoError(t, f.svc.ClearAll(""))
}
