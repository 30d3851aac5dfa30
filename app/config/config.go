package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ComandaPOS/app/models"
	"ComandaPOS/app/security"
)

// AppDirName is the per-user directory holding config, key, logs and data
const AppDirName = "ComandaPOS"

// ErrNotConfigured is returned when the remote row store settings are incomplete
var ErrNotConfigured = errors.New("configuration incomplete")

// AppConfig holds all application configuration
type AppConfig struct {
	// Ticket header
	Business BusinessConfig `json:"business"`

	// Receipt printer
	Printer PrinterConfig `json:"printer"`

	// Remote row store holding open orders
	RowStore RowStoreConfig `json:"row_store"`

	// Local sales storage
	Database DatabaseConfig `json:"database"`

	// Google Sheets export
	Sheets SheetsConfig `json:"sheets"`

	// Supervisor protection for destructive operations
	Security SecurityConfig `json:"security"`
}

// BusinessConfig holds business information printed on tickets
type BusinessConfig struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// PrinterConfig holds printer settings
type PrinterConfig struct {
	Kind           models.PrinterKind `json:"kind"`            // "thermal" or "generic"
	PaperWidth     models.PaperWidth  `json:"paper_width"`     // "58mm" or "80mm"
	Connection     string             `json:"connection"`      // "usb" or "network"
	NetworkAddress string             `json:"network_address"` // host[:port]
	ReceiptQR      string             `json:"receipt_qr"`      // Optional QR text printed under the ticket footer
}

// RowStoreConfig holds the Baserow connection and field mapping
type RowStoreConfig struct {
	BaseURL             string      `json:"base_url"`
	APIToken            string      `json:"api_token"`
	TableID             string      `json:"table_id"`
	Fields              FieldConfig `json:"fields"`
	PollIntervalSeconds int         `json:"poll_interval_seconds"`
	HistoryPageSize     int         `json:"history_page_size"`
	RequestsPerSecond   float64     `json:"requests_per_second"`
}

// FieldConfig maps logical fields to Baserow field ids
type FieldConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	Table       string `json:"table"`
	Finished    string `json:"finished"`
	Paid        string `json:"paid"`
	EntryDate   string `json:"entry_date"`
}

// DatabaseConfig holds local storage settings
type DatabaseConfig struct {
	Driver string `json:"driver"` // "sqlite" or "postgres"
	Path   string `json:"path"`   // SQLite file
	DSN    string `json:"dsn"`    // PostgreSQL connection string
}

// SheetsConfig holds the Google Sheets export settings
type SheetsConfig struct {
	Enabled         bool   `json:"enabled"`
	SpreadsheetID   string `json:"spreadsheet_id"`
	SheetName       string `json:"sheet_name"`
	CredentialsJSON string `json:"credentials_json"`
	AutoExport      bool   `json:"auto_export"` // Export the previous month on the 1st
	ExportTime      string `json:"export_time"` // "HH:MM", local time
}

// SecurityConfig holds the supervisor PIN hash
type SecurityConfig struct {
	SupervisorPINHash string `json:"supervisor_pin_hash"`
}

// AppDir returns the per-user application directory, creating it if needed
func AppDir() (string, error) {
	return security.AppDir(AppDirName)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig loads configuration from config.json, decrypts sensitive fields
// and applies environment overrides
func LoadConfig() (*AppConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found")
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	if err := cfg.decryptSensitiveFields(); err != nil {
		return nil, fmt.Errorf("could not decrypt sensitive fields: %w", err)
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	return &cfg, nil
}

// SaveConfig saves configuration to config.json after encrypting sensitive fields
func SaveConfig(cfg *AppConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Encrypt a copy so the caller keeps plaintext values
	cfgCopy := *cfg
	if err := cfgCopy.encryptSensitiveFields(); err != nil {
		return fmt.Errorf("could not encrypt sensitive fields: %w", err)
	}

	data, err := json.MarshalIndent(&cfgCopy, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}
	return nil
}

// ConfigExists checks if config file exists
func ConfigExists() (bool, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateDefaultConfig creates and saves a default configuration file
func CreateDefaultConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Business: BusinessConfig{Name: "Mi Restaurante"},
		Printer: PrinterConfig{
			Kind:       models.PrinterGeneric,
			PaperWidth: models.Paper80mm,
			Connection: "usb",
		},
		Database: DatabaseConfig{Driver: "sqlite"},
	}
	cfg.ApplyDefaults()

	if err := SaveConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset values
func (cfg *AppConfig) ApplyDefaults() {
	if cfg.Printer.Kind == "" {
		cfg.Printer.Kind = models.PrinterGeneric
	}
	if cfg.Printer.PaperWidth == "" {
		cfg.Printer.PaperWidth = models.Paper80mm
	}
	if cfg.Printer.Connection == "" {
		cfg.Printer.Connection = "usb"
	}
	if cfg.RowStore.BaseURL == "" {
		cfg.RowStore.BaseURL = "https://api.baserow.io"
	}
	if cfg.RowStore.PollIntervalSeconds <= 0 {
		cfg.RowStore.PollIntervalSeconds = 5
	}
	if cfg.RowStore.HistoryPageSize <= 0 {
		cfg.RowStore.HistoryPageSize = 200
	}
	if cfg.RowStore.RequestsPerSecond <= 0 {
		cfg.RowStore.RequestsPerSecond = 5
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Sheets.SheetName == "" {
		cfg.Sheets.SheetName = "Ventas"
	}
	if cfg.Sheets.ExportTime == "" {
		cfg.Sheets.ExportTime = "06:00"
	}
}

// Validate reports the missing mandatory settings
func (cfg *AppConfig) Validate() error {
	var missing []string
	check := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	check(cfg.Business.Name, "business name")
	check(cfg.RowStore.APIToken, "API token")
	check(cfg.RowStore.TableID, "table id")
	check(cfg.RowStore.Fields.Name, "name field")
	check(cfg.RowStore.Fields.Price, "price field")
	check(cfg.RowStore.Fields.Quantity, "quantity field")
	check(cfg.RowStore.Fields.Table, "table field")
	check(cfg.RowStore.Fields.Finished, "finished field")
	check(cfg.RowStore.Fields.Paid, "paid field")

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}

	switch cfg.Printer.Kind {
	case models.PrinterThermal, models.PrinterGeneric:
	default:
		return fmt.Errorf("unknown printer kind %q", cfg.Printer.Kind)
	}
	switch cfg.Printer.PaperWidth {
	case models.Paper58mm, models.Paper80mm:
	default:
		return fmt.Errorf("unknown paper width %q", cfg.Printer.PaperWidth)
	}
	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("%w: missing postgres dsn", ErrNotConfigured)
		}
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	return nil
}

// BusinessInfo returns the ticket header
func (cfg *AppConfig) BusinessInfo() models.Business {
	return models.Business{
		Name:    cfg.Business.Name,
		Address: cfg.Business.Address,
		Phone:   cfg.Business.Phone,
	}
}

// PrinterTarget returns the configured rendering target
func (cfg *AppConfig) PrinterTarget() models.PrinterTarget {
	return models.PrinterTarget{Kind: cfg.Printer.Kind, Paper: cfg.Printer.PaperWidth}
}

// applyEnv lets environment variables (usually from .env) override secrets
func (cfg *AppConfig) applyEnv() {
	if token := os.Getenv("BASEROW_API_TOKEN"); token != "" {
		cfg.RowStore.APIToken = token
	}
	if baseURL := os.Getenv("BASEROW_URL"); baseURL != "" {
		cfg.RowStore.BaseURL = baseURL
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.DSN = dsn
	}
}

// sensitiveFields lists the values encrypted at rest
func (cfg *AppConfig) sensitiveFields() map[string]*string {
	return map[string]*string{
		"API token":          &cfg.RowStore.APIToken,
		"database dsn":       &cfg.Database.DSN,
		"sheets credentials": &cfg.Sheets.CredentialsJSON,
	}
}

// encryptSensitiveFields encrypts sensitive configuration fields
func (cfg *AppConfig) encryptSensitiveFields() error {
	for name, field := range cfg.sensitiveFields() {
		if *field == "" {
			continue
		}
		encrypted, err := security.Encrypt(*field)
		if err != nil {
			return fmt.Errorf("could not encrypt %s: %w", name, err)
		}
		*field = encrypted
	}
	return nil
}

// decryptSensitiveFields decrypts sensitive configuration fields.
// Values that fail to decrypt are kept as plain text (hand-edited config).
func (cfg *AppConfig) decryptSensitiveFields() error {
	for _, field := range cfg.sensitiveFields() {
		if *field == "" {
			continue
		}
		if decrypted, err := security.Decrypt(*field); err == nil {
			*field = decrypted
		}
	}
	return nil
}
