package wildberries

import (
	"context"
	"fmt"
	"time"

	"wbanalytics/internal/logger"
	"wbanalytics/internal/models"
	"wbanalytics/internal/persistence"
	wb "wbanalytics/internal/services/wildberries"
)

// TokenSource hands out and refreshes decrypted shop tokens.
type TokenSource interface {
	Decrypt(ctx context.Context, shop string) (string, error)
	Encrypt(ctx context.Context, shop, token string) error
}

// Fetcher retrieves the two reports for a shop.
type Fetcher interface {
	FetchAllSales(ctx context.Context, asOf time.Time) ([]wb.Order, error)
	FetchAllStock(ctx context.Context, start, end time.Time, pageSize int) ([]wb.StockItem, error)
}

// ClientFactory builds a Fetcher bound to one shop token.
type ClientFactory func(token string) (Fetcher, error)

type Options struct {
	PageLimit     int
	RefreshTokens bool
}

// DayReport is everything fetched and written for one shop and day.
type DayReport struct {
	Shop     string
	Date     time.Time
	RawStock []wb.StockItem
	RawSales []wb.Order
	Stock    []models.StockRecord
	Sales    []models.SalesAggregate
	Products []models.ProductDimension
}

type WildberriesConnector struct {
	tokens      TokenSource
	store       *persistence.Store
	newClient   ClientFactory
	transformer *wb.Transformer
	options     Options
	logger      *logger.Logger
}

func New(tokens TokenSource, store *persistence.Store, newClient ClientFactory, opts Options, logger *logger.Logger) *WildberriesConnector {
	if opts.PageLimit <= 0 {
		opts.PageLimit = wb.DefaultPageLimit
	}
	return &WildberriesConnector{
		tokens:      tokens,
		store:       store,
		newClient:   newClient,
		transformer: wb.NewTransformer(),
		options:     opts,
		logger:      logger,
	}
}

// SyncDay fetches, shapes and persists one day of a shop.
func (wc *WildberriesConnector) SyncDay(ctx context.Context, shop string, date time.Time) (*DayReport, error) {
	reports, err := wc.SyncRange(ctx, shop, []time.Time{date})
	if err != nil {
		return nil, err
	}
	return reports[0], nil
}

// SyncRange runs the day pipeline for each date in order with a single
// token and client. It stops at the first failing day and returns the
// reports of the days already written. The token is re-encrypted once every
// day succeeded.
func (wc *WildberriesConnector) SyncRange(ctx context.Context, shop string, dates []time.Time) ([]*DayReport, error) {
	token, err := wc.tokens.Decrypt(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to get token for %s: %w", shop, err)
	}

	client, err := wc.newClient(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", shop, err)
	}

	reports := make([]*DayReport, 0, len(dates))
	for _, date := range dates {
		report, err := wc.syncDay(ctx, client, shop, models.TruncateDay(date))
		if err != nil {
			return reports, fmt.Errorf("shop %s, %s: %w", shop, date.Format(models.DateLayout), err)
		}
		reports = append(reports, report)
	}

	if wc.options.RefreshTokens {
		if err := wc.tokens.Encrypt(ctx, shop, token); err != nil {
			return reports, fmt.Errorf("failed to refresh token for %s: %w", shop, err)
		}
	}
	return reports, nil
}

func (wc *WildberriesConnector) syncDay(ctx context.Context, client Fetcher, shop string, date time.Time) (*DayReport, error) {
	log := wc.logger.With("shop", shop, "date", date.Format(models.DateLayout))

	sales, err := client.FetchAllSales(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales: %w", err)
	}
	stock, err := client.FetchAllStock(ctx, date, date, wc.options.PageLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stock: %w", err)
	}
	log.Info("Fetched %d stock items and %d orders over two weeks", len(stock), len(sales))

	report := &DayReport{
		Shop:     shop,
		Date:     date,
		RawStock: stock,
		RawSales: sales,
		Stock:    wc.transformer.ShapeStock(stock, date),
		Sales:    wc.transformer.ShapeSales(sales, date),
	}
	report.Products = wc.transformer.Products(report.Stock, sales)

	dateStmt, err := wc.store.BuildDateUpsert(ctx, shop, date)
	if err != nil {
		return nil, err
	}
	productStmt, err := wc.store.BuildProductUpsert(ctx, shop, report.Products)
	if err != nil {
		return nil, err
	}
	stockStmt, err := wc.store.BuildStockUpsert(ctx, shop, report.Stock)
	if err != nil {
		return nil, err
	}
	salesStmt, err := wc.store.BuildSalesUpsert(ctx, shop, report.Sales)
	if err != nil {
		return nil, err
	}

	// dimensions land before the facts that reference them
	if err := wc.store.PersistAll(ctx, dateStmt, productStmt, stockStmt, salesStmt); err != nil {
		return nil, err
	}

	log.Info("Saved %d products, %d stock rows, %d sales rows",
		len(report.Products), len(report.Stock), len(report.Sales))
	return report, nil
}
