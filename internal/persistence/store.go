package persistence

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"gorm.io/gorm"

	"wbanalytics/internal/database"
	"wbanalytics/internal/logger"
)

type Store struct {
	db       *database.Database
	registry *Registry
	logger   *logger.Logger
}

func NewStore(db *database.Database, registry *Registry, logger *logger.Logger) *Store {
	return &Store{
		db:       db,
		registry: registry,
		logger:   logger,
	}
}

// Persist executes one statement in its own transaction.
func (s *Store) Persist(ctx context.Context, stmt Statement) error {
	return s.PersistAll(ctx, stmt)
}

// PersistAll executes the statements in order inside a single transaction;
// any failure rolls back all of them.
func (s *Store) PersistAll(ctx context.Context, stmts ...Statement) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, stmt := range stmts {
			if err := execute(tx, stmt); err != nil {
				return fmt.Errorf("failed to write %s: %w", stmt.Table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		s.logger.Info("Saved %d rows to %s", stmt.Rows(), stmt.Table)
	}
	return nil
}

func execute(tx *gorm.DB, stmt Statement) error {
	if stmt.Batch != nil {
		for _, args := range stmt.Batch {
			if err := tx.Exec(stmt.Query, args...).Error; err != nil {
				return err
			}
		}
		return nil
	}
	if stmt.Args != nil {
		return tx.Exec(stmt.Query, stmt.Args...).Error
	}
	return nil
}

// Purge deletes every row of the tables flagged true in selection. Rows of
// fact tables referencing a purged dimension go with it through the
// cascading foreign keys.
func (s *Store) Purge(ctx context.Context, selection map[string]bool) error {
	var names []string
	for name, selected := range selection {
		if selected {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	listed, err := s.db.DB.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	for _, name := range names {
		if !slices.Contains(listed, name) {
			s.logger.Error("Table %s does not exist", name)
			return fmt.Errorf("%w: %s", ErrUnknownTable, name)
		}
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, name := range names {
			result := tx.Exec("DELETE FROM " + name)
			if result.Error != nil {
				return fmt.Errorf("failed to purge %s: %w", name, result.Error)
			}
			s.logger.Debug("Table %s purged, %d rows deleted", name, result.RowsAffected)
		}
		return nil
	})
}
