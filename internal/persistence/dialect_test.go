package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"

	"wbanalytics/internal/database"
	"wbanalytics/internal/logger"
)

func TestUpsertSQL(t *testing.T) {
	tests := []struct {
		dialect string
		kind    Kind
		want    string
	}{
		{
			database.DialectMySQL, KindDates,
			"INSERT INTO t (full_date, day, month, year, day_of_week) VALUES (?, ?, ?, ?, ?) ON DUPLICATE KEY UPDATE id = id",
		},
		{
			database.DialectMySQL, KindProducts,
			"INSERT INTO t (article, name) VALUES (?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name)",
		},
		{
			database.DialectMySQL, KindSales,
			"INSERT INTO t (date, article, sale) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE sale = VALUES(sale)",
		},
		{
			database.DialectPostgres, KindDates,
			"INSERT INTO t (full_date, day, month, year, day_of_week) VALUES (?, ?, ?, ?, ?) ON CONFLICT (full_date) DO NOTHING",
		},
		{
			database.DialectPostgres, KindStocks,
			"INSERT INTO t (date, article, stock) VALUES (?, ?, ?) ON CONFLICT (date, article) DO UPDATE SET stock = excluded.stock",
		},
		{
			database.DialectSQLite, KindProducts,
			"INSERT INTO t (article, name) VALUES (?, ?) ON CONFLICT (article) DO UPDATE SET name = excluded.name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, upsertSQL(tt.dialect, "t", specs[tt.kind]))
		})
	}
}

func TestCreateTableSQL(t *testing.T) {
	mysqlDDL := createTableSQL(database.DialectMySQL, KindStocks, "reports_stocks_acme", "catalog_dates_acme", "catalog_products_acme")
	assert.Contains(t, mysqlDDL, "CREATE TABLE IF NOT EXISTS reports_stocks_acme")
	assert.Contains(t, mysqlDDL, "id INT AUTO_INCREMENT PRIMARY KEY")
	assert.Contains(t, mysqlDDL, "stock INT NOT NULL")
	assert.Contains(t, mysqlDDL, "FOREIGN KEY (date) REFERENCES catalog_dates_acme (full_date) ON DELETE CASCADE")
	assert.Contains(t, mysqlDDL, "FOREIGN KEY (article) REFERENCES catalog_products_acme (article) ON DELETE CASCADE")
	assert.Contains(t, mysqlDDL, "ENGINE=InnoDB")

	pgDDL := createTableSQL(database.DialectPostgres, KindSales, "reports_sales_acme", "d", "p")
	assert.Contains(t, pgDDL, "id SERIAL PRIMARY KEY")
	assert.Contains(t, pgDDL, "sale DECIMAL(10,2) NOT NULL")
	assert.NotContains(t, pgDDL, "ENGINE")

	sqliteDDL := createTableSQL(database.DialectSQLite, KindDates, "catalog_dates_acme", "", "")
	assert.Contains(t, sqliteDDL, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, sqliteDDL, "full_date DATE NOT NULL UNIQUE")
	assert.NotContains(t, sqliteDDL, "FOREIGN KEY")
}

func newMySQLMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := database.Open(mysql.New(mysql.Config{Conn: mockDB, SkipInitializeWithVersion: true}), nil)
	require.NoError(t, err)

	log := logger.New("error")
	return NewStore(db, NewRegistry(db, log), log), mock
}

func TestPersistAll_MySQL(t *testing.T) {
	store, mock := newMySQLMockStore(t)

	date := Statement{
		Table: "catalog_dates_acme",
		Query: upsertSQL(database.DialectMySQL, "catalog_dates_acme", specs[KindDates]),
		Args:  []any{day, 10, 7, 2025, 4},
	}
	sales := Statement{
		Table: "reports_sales_acme",
		Query: upsertSQL(database.DialectMySQL, "reports_sales_acme", specs[KindSales]),
		Batch: [][]any{
			{day, int64(1), decimal.RequireFromString("0.36")},
			{day, int64(2), decimal.RequireFromString("0.07")},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(date.Query)).
		WithArgs(sqlmock.AnyArg(), 10, 7, 2025, 4).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(sales.Query)).
		WithArgs(sqlmock.AnyArg(), int64(1), "0.36").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(sales.Query)).
		WithArgs(sqlmock.AnyArg(), int64(2), "0.07").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, store.PersistAll(context.Background(), date, sales))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistAll_MySQLRollback(t *testing.T) {
	store, mock := newMySQLMockStore(t)

	products := Statement{
		Table: "catalog_products_acme",
		Query: upsertSQL(database.DialectMySQL, "catalog_products_acme", specs[KindProducts]),
		Batch: [][]any{{int64(1), "One"}, {int64(2), "Two"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(products.Query)).
		WithArgs(int64(1), "One").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(products.Query)).
		WithArgs(int64(2), "Two").
		WillReturnError(errors.New("deadlock found"))
	mock.ExpectRollback()

	err := store.Persist(context.Background(), products)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
