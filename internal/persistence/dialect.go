package persistence

import (
	"fmt"
	"strings"

	"wbanalytics/internal/database"
)

// tableSpec describes the insert shape of one table kind.
type tableSpec struct {
	category string
	columns  []string
	conflict []string
	update   string // overwritten on conflict; empty keeps the stored row
	fact     bool
}

var specs = map[Kind]tableSpec{
	KindDates: {
		category: CategoryCatalog,
		columns:  []string{"full_date", "day", "month", "year", "day_of_week"},
		conflict: []string{"full_date"},
	},
	KindProducts: {
		category: CategoryCatalog,
		columns:  []string{"article", "name"},
		conflict: []string{"article"},
		update:   "name",
	},
	KindStocks: {
		category: CategoryReports,
		columns:  []string{"date", "article", "stock"},
		conflict: []string{"date", "article"},
		update:   "stock",
		fact:     true,
	},
	KindSales: {
		category: CategoryReports,
		columns:  []string{"date", "article", "sale"},
		conflict: []string{"date", "article"},
		update:   "sale",
		fact:     true,
	},
}

const (
	datesDDL = `CREATE TABLE IF NOT EXISTS %[1]s (
	id %[2]s,
	full_date DATE NOT NULL UNIQUE,
	day INT NOT NULL,
	month INT NOT NULL,
	year INT NOT NULL,
	day_of_week INT NOT NULL
)%[3]s`

	productsDDL = `CREATE TABLE IF NOT EXISTS %[1]s (
	id %[2]s,
	article BIGINT NOT NULL UNIQUE,
	name VARCHAR(255) NOT NULL
)%[3]s`

	factDDL = `CREATE TABLE IF NOT EXISTS %[1]s (
	id %[2]s,
	date DATE NOT NULL,
	article BIGINT NOT NULL,
	%[4]s %[5]s NOT NULL,
	UNIQUE (date, article),
	FOREIGN KEY (date) REFERENCES %[6]s (full_date) ON DELETE CASCADE,
	FOREIGN KEY (article) REFERENCES %[7]s (article) ON DELETE CASCADE
)%[3]s`
)

func primaryKey(dialect string) string {
	switch dialect {
	case database.DialectMySQL:
		return "INT AUTO_INCREMENT PRIMARY KEY"
	case database.DialectPostgres:
		return "SERIAL PRIMARY KEY"
	default:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

func tableOptions(dialect string) string {
	if dialect == database.DialectMySQL {
		return " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	}
	return ""
}

func createTableSQL(dialect string, kind Kind, table, refDates, refProducts string) string {
	pk, opts := primaryKey(dialect), tableOptions(dialect)
	switch kind {
	case KindDates:
		return fmt.Sprintf(datesDDL, table, pk, opts)
	case KindProducts:
		return fmt.Sprintf(productsDDL, table, pk, opts)
	case KindStocks:
		return fmt.Sprintf(factDDL, table, pk, opts, "stock", "INT", refDates, refProducts)
	default:
		return fmt.Sprintf(factDDL, table, pk, opts, "sale", "DECIMAL(10,2)", refDates, refProducts)
	}
}

// upsertSQL builds a single-row insert with the dialect's conflict clause.
func upsertSQL(dialect, table string, spec tableSpec) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(spec.columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(spec.columns, ", "), placeholders)

	if dialect == database.DialectMySQL {
		if spec.update == "" {
			return query + " ON DUPLICATE KEY UPDATE id = id"
		}
		return query + fmt.Sprintf(" ON DUPLICATE KEY UPDATE %[1]s = VALUES(%[1]s)", spec.update)
	}

	conflict := strings.Join(spec.conflict, ", ")
	if spec.update == "" {
		return query + fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", conflict)
	}
	return query + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %[2]s = excluded.%[2]s", conflict, spec.update)
}
