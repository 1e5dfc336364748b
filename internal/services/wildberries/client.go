package wildberries

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"wbanalytics/internal/logger"
	"wbanalytics/internal/models"
)

const (
	DefaultStocksURL = "https://seller-analytics-api.wildberries.ru/api/v2/stocks-report/products/products"
	DefaultOrdersURL = "https://statistics-api.wildberries.ru/api/v1/supplier/orders"

	DefaultPageLimit = 100
)

var ErrMissingToken = errors.New("api token is required")

// HTTPError is a non-2xx response from the API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API request failed: %d - %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is handled by backoff.
func (e *HTTPError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Pacing holds the fixed delays and retry ceilings of the fetch loops.
// MaxRateLimitRetries of zero retries 429 responses without limit.
type Pacing struct {
	StockPageDelay      time.Duration
	SalesPageDelay      time.Duration
	RateLimitCooldown   time.Duration
	MaxRateLimitRetries int
	MaxServerRetries    int
}

func DefaultPacing() Pacing {
	return Pacing{
		StockPageDelay:    20 * time.Second,
		SalesPageDelay:    60 * time.Second,
		RateLimitCooldown: 60 * time.Second,
		MaxServerRetries:  3,
	}
}

type Client struct {
	token      string
	stocksURL  string
	ordersURL  string
	httpClient *http.Client
	sleep      Sleeper
	pacing     Pacing
	logger     *logger.Logger
}

type Option func(*Client)

func WithBaseURLs(stocksURL, ordersURL string) Option {
	return func(c *Client) {
		c.stocksURL = stocksURL
		c.ordersURL = ordersURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

func WithPacing(p Pacing) Option {
	return func(c *Client) {
		c.pacing = p
	}
}

func NewClient(token string, logger *logger.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	c := &Client{
		token:     token,
		stocksURL: DefaultStocksURL,
		ordersURL: DefaultOrdersURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sleep:  sleepContext,
		pacing: DefaultPacing(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchStockPage requests one page of the stocks report for [start, end].
func (c *Client) FetchStockPage(ctx context.Context, start, end time.Time, offset, limit int) (*StockPage, error) {
	payload := stockRequest{
		StockType: "",
		CurrentPeriod: period{
			Start: start.Format(models.DateLayout),
			End:   end.Format(models.DateLayout),
		},
		SkipDeletedNm:       true,
		OrderBy:             orderBy{Field: "minPrice", Mode: "asc"},
		Limit:               limit,
		Offset:              offset,
		AvailabilityFilters: availabilityFilters,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stock request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.stocksURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var page StockPage
	status, err := c.do(req, &page)
	c.logger.Info("Stock page [%d], limit=%d, offset=%d", status, limit, offset)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchSalesPage requests the orders changed since dateFrom.
func (c *Client) FetchSalesPage(ctx context.Context, dateFrom string) ([]Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ordersURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("dateFrom", dateFrom)
	req.URL.RawQuery = q.Encode()

	var orders []Order
	status, err := c.do(req, &orders)
	c.logger.Info("Sales page [%d], dateFrom=%s", status, dateFrom)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FetchAllStock walks the stocks report by offset until an empty page.
func (c *Client) FetchAllStock(ctx context.Context, start, end time.Time, pageSize int) ([]StockItem, error) {
	defer c.logger.Timed("fetch_all_stock")()

	if pageSize <= 0 {
		pageSize = DefaultPageLimit
	}

	var all []StockItem
	offset := 0
	for {
		var page *StockPage
		err := c.withRetry(ctx, func() error {
			var err error
			page, err = c.FetchStockPage(ctx, start, end, offset, pageSize)
			return err
		})
		if err != nil {
			return nil, err
		}

		if len(page.Data.Items) == 0 {
			c.logger.Info("All stock pages loaded: %d items", len(all))
			return all, nil
		}
		all = append(all, page.Data.Items...)
		offset += pageSize

		if err := c.sleep(ctx, c.pacing.StockPageDelay); err != nil {
			return nil, err
		}
	}
}

// FetchAllSales collects the orders of the trailing window ending at asOf.
// The cursor follows lastChangeDate, so pages may carry records outside the
// window; only records whose date falls inside it are kept.
func (c *Client) FetchAllSales(ctx context.Context, asOf time.Time) ([]Order, error) {
	defer c.logger.Timed("fetch_all_sales")()

	windowEnd := asOf.Format(models.DateLayout)
	windowStart := asOf.AddDate(0, 0, -models.SalesWindowDays).Format(models.DateLayout)

	var all []Order
	cursor := windowStart
	for {
		var page []Order
		err := c.withRetry(ctx, func() error {
			var err error
			page, err = c.FetchSalesPage(ctx, cursor)
			return err
		})
		if err != nil {
			return nil, err
		}

		if len(page) == 0 {
			c.logger.Info("All sales pages loaded: %d orders", len(all))
			return all, nil
		}
		for _, order := range page {
			if day := truncateDate(order.Date); windowStart <= day && day <= windowEnd {
				all = append(all, order)
			}
		}
		cursor = page[len(page)-1].LastChangeDate

		if err := c.sleep(ctx, c.pacing.SalesPageDelay); err != nil {
			return nil, err
		}
	}
}

// withRetry repeats fn while it fails with a retryable status.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	rateLimited, serverFailures := 0, 0
	for {
		err := fn()
		if err == nil {
			return nil
		}

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || !httpErr.Retryable() {
			c.logger.Error("Request failed: %v", err)
			return err
		}

		if httpErr.StatusCode == http.StatusTooManyRequests {
			rateLimited++
			if limit := c.pacing.MaxRateLimitRetries; limit > 0 && rateLimited > limit {
				return fmt.Errorf("rate limited %d times: %w", rateLimited, err)
			}
			c.logger.Warn("Rate limit hit (429), waiting %s", c.pacing.RateLimitCooldown)
		} else {
			serverFailures++
			if serverFailures > c.pacing.MaxServerRetries {
				return fmt.Errorf("gave up after %d retries: %w", c.pacing.MaxServerRetries, err)
			}
			c.logger.Warn("Server error (%d), retry %d/%d in %s",
				httpErr.StatusCode, serverFailures, c.pacing.MaxServerRetries, c.pacing.RateLimitCooldown)
		}

		if err := c.sleep(ctx, c.pacing.RateLimitCooldown); err != nil {
			return err
		}
	}
}

func (c *Client) do(req *http.Request, out interface{}) (int, error) {
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// an empty body is an empty page
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func truncateDate(value string) string {
	if len(value) > len(models.DateLayout) {
		return value[:len(models.DateLayout)]
	}
	return value
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
