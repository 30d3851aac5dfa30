package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ComandaPOS/app/config"
	"ComandaPOS/app/database"
	"ComandaPOS/app/models"
	"ComandaPOS/app/printer"
	"ComandaPOS/app/printer/usb"
	"ComandaPOS/app/services"

	"github.com/joho/godotenv"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

//go:embed all:frontend/dist
var assets embed.FS

// App struct
type App struct {
	ctx    context.Context
	bridge *wailsBridge

	LoggerService          *services.LoggerService
	ConfigManagerService   *services.ConfigManagerService
	Orders                 *services.BaserowOrders
	Reconciler             *services.Reconciler
	PrinterService         *services.PrinterService
	SalesService           *services.SalesService
	StatsService           *services.StatsService
	GoogleSheetsService    *services.GoogleSheetsService
	ReportSchedulerService *services.ReportSchedulerService
	Store                  *database.Store
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{bridge: &wailsBridge{}}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.bridge.attach(ctx)

	runtime.WindowMaximise(a.ctx)

	cfg, err := a.ConfigManagerService.GetConfig()
	if err != nil {
		a.LoggerService.LogError("Could not load config at startup", err)
		return
	}
	go func() {
		defer a.LoggerService.RecoverPanic()
		if err := a.PrinterService.Reconnect(ctx, cfg); err != nil {
			a.LoggerService.LogWarning("Network printer not reachable", err.Error())
		}
	}()
}

// domReady is called after front-end resources have been loaded
func (a *App) domReady(ctx context.Context) {}

// beforeClose is called when the application is about to quit,
// either by clicking the window close button or calling runtime.Quit.
func (a *App) beforeClose(ctx context.Context) (prevent bool) {
	a.LoggerService.LogInfo("Application closing")

	a.Reconciler.Stop()
	a.ReportSchedulerService.Stop()

	if err := a.PrinterService.Close(); err != nil {
		a.LoggerService.LogWarning("Error closing printer", err.Error())
	}
	if err := a.Store.Close(); err != nil {
		a.LoggerService.LogError("Error closing database", err)
	}
	return false
}

// shutdown is called at application termination
func (a *App) shutdown(ctx context.Context) {
	a.LoggerService.LogInfo("Application shutdown complete")
}

// configure pushes a configuration to every service
func (a *App) configure(cfg *config.AppConfig) {
	a.Orders.Configure(cfg)
	a.PrinterService.Configure(cfg)
	a.SalesService.Configure(cfg)
	a.GoogleSheetsService.Configure(cfg)
	a.ReportSchedulerService.Configure(cfg)
	a.StatsService.Invalidate()
}

// Orders screen bindings

// EnterOrdersScreen starts polling the open orders
func (a *App) EnterOrdersScreen() error {
	cfg, err := a.ConfigManagerService.GetConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.Reconciler.Start(a.ctx)
	return nil
}

// LeaveOrdersScreen stops polling; late poll results are discarded
func (a *App) LeaveOrdersScreen() {
	a.Reconciler.Stop()
}

// RefreshOrders polls once and returns the snapshot
func (a *App) RefreshOrders() ([]models.TableOrder, error) {
	if err := a.Reconciler.Refresh(a.ctx); err != nil {
		return nil, err
	}
	return a.Reconciler.Snapshot(), nil
}

// GetOrders returns the last known open orders
func (a *App) GetOrders() []models.TableOrder {
	return a.Reconciler.Snapshot()
}

// Sales bindings

func (a *App) Checkout(req services.CheckoutRequest) (*services.CheckoutResult, error) {
	return a.SalesService.Checkout(a.ctx, req)
}

func (a *App) PrintPreBill(table string, partySize int) error {
	return a.SalesService.PrintPreBill(a.ctx, table, partySize)
}

func (a *App) GetCurrentShift() ([]models.Sale, error) {
	return a.SalesService.CurrentShift()
}

func (a *App) GetSalesHistory() ([]models.Sale, error) {
	return a.SalesService.History()
}

// GetLocalMonthSales returns the sales recorded on this terminal in one month
func (a *App) GetLocalMonthSales(year, month int) ([]models.Sale, error) {
	return a.SalesService.MonthSales(year, month)
}

// GetLocalMonthStats summarizes the sales recorded on this terminal in one month
func (a *App) GetLocalMonthStats(year, month int) (models.SalesStats, error) {
	sales, err := a.SalesService.MonthSales(year, month)
	if err != nil {
		return models.SalesStats{}, err
	}
	return a.StatsService.Stats(sales), nil
}

func (a *App) GetShiftSummary() (models.ShiftSummary, error) {
	return a.SalesService.Summary()
}

// CloseShift prints the Z report and archives the shift
func (a *App) CloseShift() (models.ShiftSummary, error) {
	return a.SalesService.CloseShift(a.ctx)
}

// ClearAllSales wipes every stored sale
func (a *App) ClearAllSales(pin string) error {
	return a.SalesService.ClearAll(pin)
}

// Printer bindings

func (a *App) GetPrinterStatus() services.PrinterStatus {
	return a.PrinterService.Status()
}

func (a *App) ListUSBPrinters() ([]printer.Candidate, error) {
	return a.PrinterService.ListUSB(a.ctx)
}

func (a *App) DetectUSBPrinter() (printer.DeviceInfo, error) {
	return a.PrinterService.DetectUSB(a.ctx)
}

func (a *App) ConnectNetworkPrinter(address string) (printer.DeviceInfo, error) {
	return a.PrinterService.ConnectNetwork(a.ctx, address)
}

// DiscoverNetworkPrinters browses the LAN for a few seconds
func (a *App) DiscoverNetworkPrinters() ([]printer.NetworkPrinter, error) {
	return a.PrinterService.DiscoverNetwork(a.ctx, 0)
}

func (a *App) OpenCashDrawer() error {
	return a.PrinterService.OpenCashDrawer(a.ctx)
}

// Reports bindings

func (a *App) GetMonthlySales(year, month int) ([]models.Sale, error) {
	return a.StatsService.MonthlySales(a.ctx, year, month)
}

func (a *App) GetMonthlyReport(year, month int) (models.MonthlyReport, error) {
	return a.StatsService.Report(a.ctx, year, month)
}

func (a *App) PrintMonthlyReport(year, month int) error {
	return a.StatsService.PrintMonthlyReport(a.ctx, year, month)
}

// ExportMonthlyCSV asks for a destination and writes the month as CSV. An
// empty path means the dialog was cancelled.
func (a *App) ExportMonthlyCSV(year, month int) (string, error) {
	sales, err := a.StatsService.MonthlySales(a.ctx, year, month)
	if err != nil {
		return "", err
	}
	if len(sales) == 0 {
		return "", services.ErrNothingToReport
	}

	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Exportar ventas",
		DefaultFilename: services.CSVFileName(year, month),
		Filters:         []runtime.FileFilter{{DisplayName: "CSV (*.csv)", Pattern: "*.csv"}},
	})
	if err != nil || path == "" {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("could not create %s: %w", path, err)
	}
	defer f.Close()

	if err := a.StatsService.ExportCSV(f, sales); err != nil {
		return "", err
	}
	a.LoggerService.LogInfo("Monthly sales exported", path)
	return path, nil
}

// ExportMonthToSheets appends the month to the configured spreadsheet
func (a *App) ExportMonthToSheets(year, month int) (int, error) {
	sales, err := a.StatsService.MonthlySales(a.ctx, year, month)
	if err != nil {
		return 0, err
	}
	return a.GoogleSheetsService.ExportMonthly(a.ctx, year, month, sales)
}

func (a *App) TestSheetsConnection() error {
	return a.GoogleSheetsService.TestConnection(a.ctx)
}

func (a *App) GetSheetsSchedulerStatus() services.SchedulerStatus {
	return a.ReportSchedulerService.GetStatus()
}

// Configuration bindings

func (a *App) GetConfig() (*config.AppConfig, error) {
	return a.ConfigManagerService.GetConfig()
}

func (a *App) IsConfigured() bool {
	return a.ConfigManagerService.IsConfigured()
}

// SaveConfig persists the settings and applies them to the running services.
// A database change takes effect on the next start.
func (a *App) SaveConfig(cfg *config.AppConfig) error {
	return a.ConfigManagerService.SaveConfig(cfg)
}

func (a *App) SetSupervisorPIN(pin string) error {
	return a.ConfigManagerService.SetSupervisorPIN(pin)
}

func (a *App) TestRowStoreConnection(rs config.RowStoreConfig) error {
	ctx, cancel := context.WithTimeout(a.ctx, 15*time.Second)
	defer cancel()
	return a.ConfigManagerService.TestRowStore(ctx, rs)
}

func (a *App) TestDatabaseConnection(db config.DatabaseConfig) error {
	return a.ConfigManagerService.TestDatabaseConnection(db)
}

// openStore opens the configured database, falling back to the local SQLite
// file when a remote database is unreachable
func openStore(cfg *config.AppConfig, logger *services.LoggerService) (*database.Store, error) {
	dir, err := config.AppDir()
	if err != nil {
		return nil, err
	}
	local := database.Options{Driver: "sqlite", Path: filepath.Join(dir, "data", "sales.db")}

	opts := local
	switch cfg.Database.Driver {
	case "postgres":
		opts = database.Options{Driver: "postgres", DSN: cfg.Database.DSN}
	case "sqlite", "":
		if cfg.Database.Path != "" {
			opts.Path = cfg.Database.Path
		}
	}

	store, err := database.Open(opts)
	if err == nil || opts == local {
		return store, err
	}
	logger.LogError("Configured database unavailable, using local file", err, "Driver: "+opts.Driver)
	return database.Open(local)
}

func main() {
	loggerService := services.NewLoggerService()
	if loggerService == nil {
		fmt.Println("CRITICAL: Logger service failed to initialize")
		os.Exit(1)
	}
	defer loggerService.Close()

	defer func() {
		if r := recover(); r != nil {
			loggerService.LogPanic(r)
			os.Exit(1)
		}
	}()

	loggerService.LogInfo("Application starting", "ComandaPOS")
	if err := loggerService.CleanOldLogs(30); err != nil {
		loggerService.LogWarning("Could not clean old logs", err.Error())
	}

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		loggerService.LogWarning("Could not read .env file", err.Error())
	}

	app := NewApp()
	app.LoggerService = loggerService
	app.ConfigManagerService = services.NewConfigManagerService(func(cfg *config.AppConfig) {
		loggerService.LogInfo("Configuration saved, applying to services")
		app.configure(cfg)
	})

	cfg, err := app.ConfigManagerService.GetConfig()
	if err != nil {
		loggerService.LogError("Could not load configuration", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		loggerService.LogWarning("Configuration incomplete, settings screen will be shown", err.Error())
	}

	store, err := openStore(cfg, loggerService)
	if err != nil {
		loggerService.LogError("Could not open sales database", err)
		os.Exit(1)
	}
	app.Store = store

	loggerService.LogInfo("Initializing services")
	app.Orders = services.NewBaserowOrdersFromConfig(cfg)
	app.Reconciler = services.NewReconciler(
		app.Orders,
		wailsNotifier{bridge: app.bridge},
		time.Duration(cfg.RowStore.PollIntervalSeconds)*time.Second,
	)
	app.PrinterService = services.NewPrinterService(
		printer.NewDeviceHandle(),
		wailsDocumentSink{bridge: app.bridge, fallback: printer.NewBrowserSink()},
		usb.NewDetector(),
	)
	app.StatsService = services.NewStatsService(app.Orders, app.PrinterService)
	app.SalesService = services.NewSalesService(store, app.Reconciler, app.Orders, app.PrinterService, app.StatsService)
	app.GoogleSheetsService = services.NewGoogleSheetsService()
	app.ReportSchedulerService = services.NewReportSchedulerService(app.StatsService, app.GoogleSheetsService)
	app.configure(cfg)

	err = wails.Run(&options.App{
		Title:  "ComandaPOS",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup:        app.startup,
		OnDomReady:       app.domReady,
		OnBeforeClose:    app.beforeClose,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
			app.LoggerService,
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			DisableWindowIcon:    false,
		},
	})

	if err != nil {
		loggerService.LogError("Wails application error", err)
		println("Error:", err.Error())
	}
}
