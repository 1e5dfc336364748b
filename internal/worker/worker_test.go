package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbanalytics/internal/config"
	connector "wbanalytics/internal/connectors/wildberries"
	"wbanalytics/internal/logger"
	"wbanalytics/internal/models"
	"wbanalytics/internal/worker/processors"
	"wbanalytics/internal/worker/processors/export"
)

type staticShops struct {
	shops []string
	err   error
}

func (s staticShops) ListShops(ctx context.Context) ([]string, error) {
	return s.shops, s.err
}

type fakeSyncer struct {
	calls map[string][]time.Time
	fail  map[string]error
}

func (f *fakeSyncer) SyncRange(ctx context.Context, shop string, dates []time.Time) ([]*connector.DayReport, error) {
	if f.calls == nil {
		f.calls = make(map[string][]time.Time)
	}
	f.calls[shop] = dates
	if err := f.fail[shop]; err != nil {
		return nil, err
	}
	var reports []*connector.DayReport
	for _, d := range dates {
		reports = append(reports, &connector.DayReport{
			Shop:  shop,
			Date:  d,
			Stock: []models.StockRecord{{Date: d, ProductID: 1, ProductName: "One", StockCount: 3}},
		})
	}
	return reports, nil
}

type memoryPublisher struct {
	events []processors.Event
}

func (m *memoryPublisher) Publish(ctx context.Context, e processors.Event) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memoryPublisher) Close() error { return nil }

func (m *memoryPublisher) types() []string {
	var out []string
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func date(s string) time.Time {
	d, _ := models.ParseDate(s)
	return d
}

func TestRun_YesterdayForEveryVaultShop(t *testing.T) {
	syncer := &fakeSyncer{}
	pub := &memoryPublisher{}
	w := New(&config.Config{}, logger.New("error"), staticShops{shops: []string{"acme", "beta"}}, syncer, nil, pub)
	w.now = func() time.Time { return time.Date(2025, 7, 11, 8, 30, 0, 0, time.UTC) }

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, []time.Time{date("2025-07-10")}, syncer.calls["acme"])
	assert.Equal(t, []time.Time{date("2025-07-10")}, syncer.calls["beta"])
	assert.Equal(t, []string{processors.EventDaySaved, processors.EventDaySaved, processors.EventRunCompleted}, pub.types())

	runID := pub.events[0].RunID
	assert.NotEmpty(t, runID)
	for _, e := range pub.events {
		assert.Equal(t, runID, e.RunID)
	}
}

func TestRun_ConfiguredShopsAndRange(t *testing.T) {
	syncer := &fakeSyncer{}
	cfg := &config.Config{Shops: []string{"acme"}, StartDate: "2025-07-01", EndDate: "2025-07-03"}
	w := New(cfg, logger.New("error"), staticShops{err: errors.New("must not be called")}, syncer, nil, nil)

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, []time.Time{date("2025-07-01"), date("2025-07-02"), date("2025-07-03")}, syncer.calls["acme"])
}

func TestRun_InvalidRange(t *testing.T) {
	cfg := &config.Config{StartDate: "2025-07-03", EndDate: "2025-07-01"}
	w := New(cfg, logger.New("error"), staticShops{}, &fakeSyncer{}, nil, nil)

	assert.ErrorIs(t, w.Run(context.Background()), ErrInvalidRange)
}

func TestRun_SkipsFailingShop(t *testing.T) {
	boom := errors.New("token missing")
	syncer := &fakeSyncer{fail: map[string]error{"acme": boom}}
	pub := &memoryPublisher{}
	w := New(&config.Config{Shops: []string{"acme", "beta"}}, logger.New("error"), nil, syncer, nil, pub)

	err := w.Run(context.Background())

	require.ErrorIs(t, err, boom)
	assert.Contains(t, syncer.calls, "beta")
	assert.Equal(t, []string{processors.EventShopFailed, processors.EventDaySaved, processors.EventRunCompleted}, pub.types())
	assert.Equal(t, 1, pub.events[2].Data["failed"])
}

func TestRun_ListShopsError(t *testing.T) {
	w := New(&config.Config{}, logger.New("error"), staticShops{err: errors.New("db down")}, &fakeSyncer{}, nil, nil)

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestRun_Exports(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Shops: []string{"acme"}, StartDate: "2025-07-10", EndDate: "2025-07-10"}
	w := New(cfg, logger.New("error"), nil, &fakeSyncer{}, export.New(dir, logger.New("error")), nil)

	require.NoError(t, w.Run(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"acme_avg_sales_2025-07-10.csv",
		"acme_avg_sales_2025-07-10.json",
		"acme_stocks_2025-07-10.csv",
		"acme_stocks_2025-07-10.json",
	}, names)

	raw, err := os.ReadFile(filepath.Join(dir, "acme_stocks_2025-07-10.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "2025-07-10;One;1;3")
}
