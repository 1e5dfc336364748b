package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage layout of report dates.
const DateLayout = "2006-01-02"

// SalesWindowDays is the trailing window the sales average is computed over.
const SalesWindowDays = 14

type StockRecord struct {
	Date        time.Time `json:"date"`
	ProductID   uint64    `json:"product_id"`
	ProductName string    `json:"product_name"`
	StockCount  int64     `json:"stock_count"`
}

type SalesAggregate struct {
	Date              time.Time       `json:"date"`
	ProductID         uint64          `json:"product_id"`
	AverageDailySales decimal.Decimal `json:"average_daily_sales"`
}

type DateDimension struct {
	FullDate  time.Time `json:"full_date"`
	Day       int       `json:"day"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	DayOfWeek int       `json:"day_of_week"` // ISO: Monday=1 .. Sunday=7
}

type ProductDimension struct {
	Article uint64 `json:"article"`
	Name    string `json:"name"`
}

// NewDateDimension splits a calendar day into its dimension columns.
func NewDateDimension(date time.Time) DateDimension {
	day := TruncateDay(date)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return DateDimension{
		FullDate:  day,
		Day:       day.Day(),
		Month:     int(day.Month()),
		Year:      day.Year(),
		DayOfWeek: weekday,
	}
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// TruncateDay drops the clock part, keeping the calendar day in UTC.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
