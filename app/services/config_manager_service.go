package services

import (
	"context"
	"fmt"
	"log"

	"ComandaPOS/app/config"
	"ComandaPOS/app/database"
	"ComandaPOS/app/rowstore"
	"ComandaPOS/app/security"
)

// ConfigManagerService loads, validates and saves the application
// configuration, and pushes saved changes to the running services.
type ConfigManagerService struct {
	onSave func(cfg *config.AppConfig)
}

// NewConfigManagerService creates the service. onSave runs after every
// successful save and may be nil.
func NewConfigManagerService(onSave func(cfg *config.AppConfig)) *ConfigManagerService {
	return &ConfigManagerService{onSave: onSave}
}

// GetConfig returns the current configuration, creating the default one on
// first run
func (s *ConfigManagerService) GetConfig() (*config.AppConfig, error) {
	exists, err := config.ConfigExists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return config.CreateDefaultConfig()
	}
	return config.LoadConfig()
}

// IsConfigured reports whether the row store settings are complete
func (s *ConfigManagerService) IsConfigured() bool {
	cfg, err := s.GetConfig()
	if err != nil {
		return false
	}
	return cfg.Validate() == nil
}

// SaveConfig validates and persists the configuration. The stored PIN hash
// is kept; use SetSupervisorPIN to change it.
func (s *ConfigManagerService) SaveConfig(cfg *config.AppConfig) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if current, err := s.GetConfig(); err == nil {
		cfg.Security = current.Security
	}
	return s.save(cfg)
}

// SetSupervisorPIN sets the PIN that guards the sales wipe. An empty PIN
// removes the protection.
func (s *ConfigManagerService) SetSupervisorPIN(pin string) error {
	cfg, err := s.GetConfig()
	if err != nil {
		return err
	}

	if pin == "" {
		cfg.Security.SupervisorPINHash = ""
	} else {
		hash, err := security.HashPIN(pin)
		if err != nil {
			return err
		}
		cfg.Security.SupervisorPINHash = hash
	}
	return s.save(cfg)
}

func (s *ConfigManagerService) save(cfg *config.AppConfig) error {
	if err := config.SaveConfig(cfg); err != nil {
		return err
	}
	log.Printf("[INFO] Configuration saved")
	if s.onSave != nil {
		s.onSave(cfg)
	}
	return nil
}

// TestRowStore checks the token and table id by reading one page of rows
func (s *ConfigManagerService) TestRowStore(ctx context.Context, rs config.RowStoreConfig) error {
	if rs.APIToken == "" || rs.TableID == "" {
		return fmt.Errorf("%w: missing API token or table id", config.ErrNotConfigured)
	}
	client := rowstore.NewClient(rowstore.Options{
		BaseURL:           rs.BaseURL,
		Token:             rs.APIToken,
		RequestsPerSecond: rs.RequestsPerSecond,
	})
	if _, err := client.ListRows(ctx, rs.TableID, rowstore.Query{Size: 1, MaxPages: 1}); err != nil {
		return fmt.Errorf("row store connection failed: %w", err)
	}
	return nil
}

// TestDatabaseConnection opens and pings the given database
func (s *ConfigManagerService) TestDatabaseConnection(db config.DatabaseConfig) error {
	store, err := database.Open(database.Options{Driver: db.Driver, Path: db.Path, DSN: db.DSN})
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Ping()
}
