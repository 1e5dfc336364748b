package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wbanalytics/internal/config"
	connector "wbanalytics/internal/connectors/wildberries"
	"wbanalytics/internal/logger"
	"wbanalytics/internal/models"
	"wbanalytics/internal/worker/processors"
	"wbanalytics/internal/worker/processors/export"
)

var ErrInvalidRange = errors.New("start date is after end date")

// ShopLister returns every shop with a stored token.
type ShopLister interface {
	ListShops(ctx context.Context) ([]string, error)
}

// RangeSyncer runs the fetch-and-persist pipeline for a shop over days.
type RangeSyncer interface {
	SyncRange(ctx context.Context, shop string, dates []time.Time) ([]*connector.DayReport, error)
}

type Worker struct {
	config    *config.Config
	logger    *logger.Logger
	shops     ShopLister
	syncer    RangeSyncer
	exporter  *export.Exporter
	publisher processors.Publisher
	now       func() time.Time
}

// New wires a worker. A nil exporter disables debug export and a nil
// publisher disables events.
func New(cfg *config.Config, logger *logger.Logger, shops ShopLister, syncer RangeSyncer, exporter *export.Exporter, publisher processors.Publisher) *Worker {
	if publisher == nil {
		publisher = processors.NopPublisher{}
	}
	return &Worker{
		config:    cfg,
		logger:    logger,
		shops:     shops,
		syncer:    syncer,
		exporter:  exporter,
		publisher: publisher,
		now:       time.Now,
	}
}

// Run processes every selected shop for every selected day, one shop at a
// time. A failing shop is logged and skipped; the failures are returned
// joined once all shops were attempted.
func (w *Worker) Run(ctx context.Context) error {
	runID := uuid.NewString()

	days, err := w.days()
	if err != nil {
		return err
	}
	shops, err := w.selectShops(ctx)
	if err != nil {
		return err
	}

	w.logger.Info("Run %s: %d shops, %d days (%s .. %s)", runID, len(shops), len(days),
		days[0].Format(models.DateLayout), days[len(days)-1].Format(models.DateLayout))

	var errs []error
	for _, shop := range shops {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		reports, err := w.syncer.SyncRange(ctx, shop, days)
		for _, report := range reports {
			w.afterDay(ctx, runID, report)
		}
		if err != nil {
			w.logger.With("shop", shop).Error("Shop failed, skipping: %v", err)
			w.publish(ctx, processors.Event{
				Type:     processors.EventShopFailed,
				RunID:    runID,
				ShopName: shop,
				Data:     map[string]interface{}{"error": err.Error()},
			})
			errs = append(errs, err)
		}
	}

	w.publish(ctx, processors.Event{
		Type:  processors.EventRunCompleted,
		RunID: runID,
		Data: map[string]interface{}{
			"shops":  len(shops),
			"days":   len(days),
			"failed": len(errs),
		},
	})
	return errors.Join(errs...)
}

func (w *Worker) selectShops(ctx context.Context) ([]string, error) {
	if len(w.config.Shops) > 0 {
		return w.config.Shops, nil
	}
	shops, err := w.shops.ListShops(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	if len(shops) == 0 {
		w.logger.Warn("No shops with stored tokens")
	}
	return shops, nil
}

// days is yesterday, or every day of the configured range inclusive.
func (w *Worker) days() ([]time.Time, error) {
	if !w.config.RangeMode() {
		return []time.Time{models.TruncateDay(w.now().AddDate(0, 0, -1))}, nil
	}

	start, err := models.ParseDate(w.config.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := models.ParseDate(w.config.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, w.config.StartDate, w.config.EndDate)
	}

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

func (w *Worker) afterDay(ctx context.Context, runID string, report *connector.DayReport) {
	if w.exporter != nil {
		w.export(report)
	}
	w.publish(ctx, processors.Event{
		Type:     processors.EventDaySaved,
		RunID:    runID,
		ShopName: report.Shop,
		Date:     report.Date.Format(models.DateLayout),
		Data: map[string]interface{}{
			"products": len(report.Products),
			"stock":    len(report.Stock),
			"sales":    len(report.Sales),
		},
	})
}

// export errors are logged and never fail the day
func (w *Worker) export(report *connector.DayReport) {
	prefix := report.Shop + "_"
	steps := []func() (string, error){
		func() (string, error) { return w.exporter.SaveJSON(prefix+"stocks", report.Date, report.RawStock) },
		func() (string, error) { return w.exporter.SaveJSON(prefix+"avg_sales", report.Date, report.RawSales) },
		func() (string, error) { return w.exporter.ExportStock(prefix+"stocks", report.Date, report.Stock) },
		func() (string, error) { return w.exporter.ExportSales(prefix+"avg_sales", report.Date, report.Sales) },
	}
	for _, step := range steps {
		if _, err := step(); err != nil {
			w.logger.Warn("Export failed for %s: %v", report.Shop, err)
		}
	}
}

func (w *Worker) publish(ctx context.Context, event processors.Event) {
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Warn("Failed to publish event: %v", err)
	}
}
