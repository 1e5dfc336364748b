package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"wbanalytics/internal/logger"
	"wbanalytics/internal/models"
)

// Exporter writes debug copies of fetched and shaped data under one directory
// as {prefix}_{date}.{ext}.
type Exporter struct {
	dir    string
	logger *logger.Logger
}

func New(dir string, logger *logger.Logger) *Exporter {
	return &Exporter{
		dir:    dir,
		logger: logger,
	}
}

// SaveJSON writes v as indented JSON.
func (e *Exporter) SaveJSON(prefix string, date time.Time, v interface{}) (string, error) {
	path, err := e.filename("json", prefix, date)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", prefix, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	e.logger.Info("Data saved to %s", path)
	return path, nil
}

// SaveCSV writes a header and rows separated by semicolons.
func (e *Exporter) SaveCSV(prefix string, date time.Time, header []string, rows [][]string) (string, error) {
	path, err := e.filename("csv", prefix, date)
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	e.logger.Info("Data saved to %s", path)
	return path, nil
}

func (e *Exporter) ExportStock(prefix string, date time.Time, records []models.StockRecord) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Date.Format(models.DateLayout),
			r.ProductName,
			strconv.FormatUint(r.ProductID, 10),
			strconv.FormatInt(r.StockCount, 10),
		})
	}
	return e.SaveCSV(prefix, date, []string{"date", "name", "article", "stock"}, rows)
}

func (e *Exporter) ExportSales(prefix string, date time.Time, aggregates []models.SalesAggregate) (string, error) {
	rows := make([][]string, 0, len(aggregates))
	for _, a := range aggregates {
		rows = append(rows, []string{
			a.Date.Format(models.DateLayout),
			strconv.FormatUint(a.ProductID, 10),
			a.AverageDailySales.StringFixed(2),
		})
	}
	return e.SaveCSV(prefix, date, []string{"date", "article", "average"}, rows)
}

func (e *Exporter) filename(ext, prefix string, date time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	return filepath.Join(e.dir, fmt.Sprintf("%s_%s.%s", prefix, date.Format(models.DateLayout), ext)), nil
}
