package wildberries

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"wbanalytics/internal/models"
)

// Transformer turns API payloads into canonical rows. It holds no state.
type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// ShapeStock produces one record per item, dated with the report date.
func (t *Transformer) ShapeStock(items []StockItem, date time.Time) []models.StockRecord {
	day := models.TruncateDay(date)
	records := make([]models.StockRecord, 0, len(items))
	for _, item := range items {
		var stock int64
		if item.Metrics != nil {
			stock = item.Metrics.StockCount
		}
		records = append(records, models.StockRecord{
			Date:        day,
			ProductID:   item.NmID,
			ProductName: cleanName(item.Name),
			StockCount:  stock,
		})
	}
	return records
}

// ShapeSales counts realized, non-cancelled orders per product and divides
// by the window length, rounded to two decimals. Aggregates keep the order
// in which products were first seen.
func (t *Transformer) ShapeSales(orders []Order, date time.Time) []models.SalesAggregate {
	day := models.TruncateDay(date)

	counts := make(map[uint64]int64)
	var order []uint64
	for _, o := range orders {
		if !o.IsRealization || o.IsCancel {
			continue
		}
		if _, seen := counts[o.NmID]; !seen {
			order = append(order, o.NmID)
		}
		counts[o.NmID]++
	}

	window := decimal.NewFromInt(models.SalesWindowDays)
	aggregates := make([]models.SalesAggregate, 0, len(order))
	for _, id := range order {
		aggregates = append(aggregates, models.SalesAggregate{
			Date:              day,
			ProductID:         id,
			AverageDailySales: decimal.NewFromInt(counts[id]).Div(window).Round(2),
		})
	}
	return aggregates
}

// Products lists the product dimension rows for a day: every stocked product,
// then sold products the stock report did not mention, named by their
// supplier article.
func (t *Transformer) Products(stock []models.StockRecord, orders []Order) []models.ProductDimension {
	seen := make(map[uint64]bool, len(stock))
	products := make([]models.ProductDimension, 0, len(stock))
	for _, s := range stock {
		if seen[s.ProductID] {
			continue
		}
		seen[s.ProductID] = true
		products = append(products, models.ProductDimension{Article: s.ProductID, Name: s.ProductName})
	}
	for _, o := range orders {
		if !o.IsRealization || o.IsCancel || seen[o.NmID] {
			continue
		}
		seen[o.NmID] = true
		products = append(products, models.ProductDimension{Article: o.NmID, Name: cleanName(o.SupplierArticle)})
	}
	return products
}

func cleanName(name string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(name), `"`))
}
