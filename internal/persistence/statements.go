package persistence

import (
	"context"
	"time"

	"wbanalytics/internal/models"
)

// Statement is a query ready for execution. Args holds a single tuple;
// a non-nil Batch holds one tuple per row and takes precedence.
type Statement struct {
	Table string
	Query string
	Args  []any
	Batch [][]any
}

// Rows reports how many rows the statement writes.
func (s Statement) Rows() int {
	if s.Batch != nil {
		return len(s.Batch)
	}
	if s.Args != nil {
		return 1
	}
	return 0
}

// BuildDateUpsert prepares the insert of the date dimension row for date.
func (s *Store) BuildDateUpsert(ctx context.Context, shop string, date time.Time) (Statement, error) {
	table, err := s.registry.ensureKind(ctx, KindDates, shop)
	if err != nil {
		return Statement{}, err
	}

	d := models.NewDateDimension(date)
	return Statement{
		Table: table,
		Query: upsertSQL(s.db.Dialect(), table, specs[KindDates]),
		Args:  []any{d.FullDate, d.Day, d.Month, d.Year, d.DayOfWeek},
	}, nil
}

func (s *Store) BuildProductUpsert(ctx context.Context, shop string, rows []models.ProductDimension) (Statement, error) {
	table, err := s.registry.ensureKind(ctx, KindProducts, shop)
	if err != nil {
		return Statement{}, err
	}

	batch := make([][]any, 0, len(rows))
	for _, p := range rows {
		batch = append(batch, []any{int64(p.Article), p.Name})
	}
	return Statement{
		Table: table,
		Query: upsertSQL(s.db.Dialect(), table, specs[KindProducts]),
		Batch: batch,
	}, nil
}

func (s *Store) BuildStockUpsert(ctx context.Context, shop string, rows []models.StockRecord) (Statement, error) {
	table, err := s.registry.ensureKind(ctx, KindStocks, shop)
	if err != nil {
		return Statement{}, err
	}

	batch := make([][]any, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, []any{models.TruncateDay(r.Date), int64(r.ProductID), r.StockCount})
	}
	return Statement{
		Table: table,
		Query: upsertSQL(s.db.Dialect(), table, specs[KindStocks]),
		Batch: batch,
	}, nil
}

func (s *Store) BuildSalesUpsert(ctx context.Context, shop string, rows []models.SalesAggregate) (Statement, error) {
	table, err := s.registry.ensureKind(ctx, KindSales, shop)
	if err != nil {
		return Statement{}, err
	}

	batch := make([][]any, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, []any{models.TruncateDay(r.Date), int64(r.ProductID), r.AverageDailySales})
	}
	return Statement{
		Table: table,
		Query: upsertSQL(s.db.Dialect(), table, specs[KindSales]),
		Batch: batch,
	}, nil
}
