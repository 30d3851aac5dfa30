// Package database persists sales with gorm. SQLite is the default store;
// PostgreSQL can be configured for a shared install.
package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"ComandaPOS/app/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options selects the backing database
type Options struct {
	Driver string // "sqlite" or "postgres"
	Path   string // SQLite file or DSN such as "file::memory:"
	DSN    string // PostgreSQL connection string
}

// Store persists current-shift and historical sales
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and runs migrations
func Open(opts Options) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var db *gorm.DB
	var err error
	switch opts.Driver {
	case "", "sqlite":
		if opts.Path == "" {
			return nil, errors.New("sqlite path is required")
		}
		if !isMemory(opts.Path) {
			if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err = gorm.Open(sqlite.Open(opts.Path), gormConfig)
	case "postgres":
		gormConfig.PrepareStmt = true
		db, err = gorm.Open(postgres.Open(opts.DSN), gormConfig)
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if opts.Driver == "postgres" {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	store, err := NewStore(db)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	log.Printf("[INFO] Sales database ready | driver=%s", driverName(opts.Driver))
	return store, nil
}

// NewStore wraps an open connection and migrates the sales table
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.Sale{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateSale appends a sale to the current shift
func (s *Store) CreateSale(sale *models.Sale) error {
	// Stored in UTC so text-encoded timestamps compare in order
	sale.CreatedAt = sale.CreatedAt.UTC()
	if err := s.db.Create(sale).Error; err != nil {
		return fmt.Errorf("failed to save sale %s: %w", sale.ID, err)
	}
	return nil
}

// CurrentShift returns the sales not yet included in a Z report, oldest first
func (s *Store) CurrentShift() ([]models.Sale, error) {
	return s.find(s.db.Where("shift_closed = ?", false))
}

// History returns the sales of closed shifts, newest first
func (s *Store) History() ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.Where("shift_closed = ?", true).Order("created_at DESC").Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load sales history: %w", err)
	}
	return sales, nil
}

// Between returns every sale created in [from, to), oldest first
func (s *Store) Between(from, to time.Time) ([]models.Sale, error) {
	return s.find(s.db.Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()))
}

// CloseShift moves the given current-shift sales into history and returns
// the number of sales moved. Sales not listed stay in the current shift.
func (s *Store) CloseShift(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.Model(&models.Sale{}).
		Where("id IN ? AND shift_closed = ?", ids, false).
		Update("shift_closed", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to close shift: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ClearAll deletes every sale, current and historical
func (s *Store) ClearAll() error {
	err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Sale{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear sales: %w", err)
	}
	return nil
}

// Close closes the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) find(query *gorm.DB) ([]models.Sale, error) {
	var sales []models.Sale
	if err := query.Order("created_at ASC").Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	return sales, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || len(path) >= 13 && path[:13] == "file::memory:"
}

func driverName(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}

// Ping verifies the connection is alive
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
