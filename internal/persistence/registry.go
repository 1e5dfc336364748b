package persistence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"wbanalytics/internal/database"
	"wbanalytics/internal/logger"
	"wbanalytics/internal/models"
)

type Kind string

const (
	KindDates    Kind = "dates"
	KindProducts Kind = "products"
	KindStocks   Kind = "stocks"
	KindSales    Kind = "sales"
)

const (
	CategoryCatalog = "catalog"
	CategoryReports = "reports"
)

var (
	ErrUnknownKind      = errors.New("unknown table kind")
	ErrMissingRefTable  = errors.New("fact table requires dates and products reference tables")
	ErrUnknownTable     = errors.New("table is not present in the store")
	ErrInvalidTableName = errors.New("invalid table name")
)

var identifier = regexp.MustCompile(`^[a-z0-9_]+$`)

// TableName is the name of a shop's table of the given category and kind.
func TableName(category string, kind Kind, shop string) string {
	return fmt.Sprintf("%s_%s_%s", category, kind, shop)
}

// Registry provisions per-shop tables and remembers the ones it has seen
// for the lifetime of the registry.
type Registry struct {
	db     *database.Database
	logger *logger.Logger

	mu     sync.Mutex
	tables map[string]bool
}

func NewRegistry(db *database.Database, logger *logger.Logger) *Registry {
	return &Registry{
		db:     db,
		logger: logger,
		tables: make(map[string]bool),
	}
}

// Ensure returns the table name for (category, kind, shop), creating the
// table when the store does not list it. Fact kinds need both reference
// table names.
func (r *Registry) Ensure(ctx context.Context, category string, kind Kind, shop, refDates, refProducts string) (string, error) {
	spec, ok := specs[kind]
	if !ok {
		r.logger.Error("Unknown table kind: %s", kind)
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := models.ValidateShopName(shop); err != nil {
		return "", err
	}
	if !identifier.MatchString(category) {
		return "", fmt.Errorf("%w: category %q", ErrInvalidTableName, category)
	}
	if spec.fact {
		if refDates == "" || refProducts == "" {
			r.logger.Error("Missing reference tables for %s_%s_%s", category, kind, shop)
			return "", ErrMissingRefTable
		}
		if !identifier.MatchString(refDates) || !identifier.MatchString(refProducts) {
			return "", fmt.Errorf("%w: references %q, %q", ErrInvalidTableName, refDates, refProducts)
		}
	}

	name := TableName(category, kind, shop)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tables[name] {
		return name, nil
	}

	db := r.db.DB.WithContext(ctx)
	if db.Migrator().HasTable(name) {
		r.logger.Debug("Table %s found in store", name)
		r.tables[name] = true
		return name, nil
	}

	if err := db.Exec(createTableSQL(r.db.Dialect(), kind, name, refDates, refProducts)).Error; err != nil {
		return "", fmt.Errorf("failed to create table %s: %w", name, err)
	}
	r.logger.Info("Table %s created", name)
	r.tables[name] = true
	return name, nil
}

// ensureKind provisions one table of the shop family, along with the
// dimension tables a fact table references.
func (r *Registry) ensureKind(ctx context.Context, kind Kind, shop string) (string, error) {
	spec, ok := specs[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if !spec.fact {
		return r.Ensure(ctx, spec.category, kind, shop, "", "")
	}

	dates, err := r.Ensure(ctx, CategoryCatalog, KindDates, shop, "", "")
	if err != nil {
		return "", err
	}
	products, err := r.Ensure(ctx, CategoryCatalog, KindProducts, shop, "", "")
	if err != nil {
		return "", err
	}
	return r.Ensure(ctx, spec.category, kind, shop, dates, products)
}
