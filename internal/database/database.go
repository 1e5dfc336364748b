package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"wbanalytics/internal/logger"
)

const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type Database struct {
	DB *gorm.DB
}

// New opens the store named by databaseURL. "sqlite://" and "mysql://" prefixes
// select those drivers; anything else is handed to postgres.
func New(databaseURL string, log *logger.Logger) (*Database, error) {
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dialector = sqlite.Open(sqliteDSN(strings.TrimPrefix(databaseURL, "sqlite://")))
	case strings.HasPrefix(databaseURL, "mysql://"):
		dsn, err := normalizeMySQLDSN(strings.TrimPrefix(databaseURL, "mysql://"))
		if err != nil {
			return nil, err
		}
		dialector = mysql.Open(dsn)
	default:
		dialector = postgres.Open(databaseURL)
	}

	return Open(dialector, log)
}

// Open wraps an already constructed dialector, e.g. one bound to a mock connection.
func Open(dialector gorm.Dialector, log *logger.Logger) (*Database, error) {
	cfg := &gorm.Config{SkipDefaultTransaction: true}
	if log != nil {
		cfg.Logger = logger.NewGormLogger(log, 200*time.Millisecond)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if db.Dialector.Name() == DialectSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
		}
		// single writer; in-memory databases exist per connection
		sqlDB.SetMaxOpenConns(1)
	}

	return &Database{DB: db}, nil
}

// Dialect reports which SQL flavour the connection speaks.
func (d *Database) Dialect() string {
	return d.DB.Dialector.Name()
}

// WithTx runs fn inside a transaction that commits when fn returns nil and
// rolls back on error or panic.
func (d *Database) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := d.DB.WithContext(ctx).Transaction(fn); err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// sqliteDSN turns on foreign key enforcement, which sqlite leaves off.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys=") || strings.Contains(path, "_fk=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=1"
}
