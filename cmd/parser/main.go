package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wbanalytics/internal/config"
	connector "wbanalytics/internal/connectors/wildberries"
	"wbanalytics/internal/database"
	"wbanalytics/internal/logger"
	"wbanalytics/internal/persistence"
	wb "wbanalytics/internal/services/wildberries"
	"wbanalytics/internal/vault"
	"wbanalytics/internal/worker"
	"wbanalytics/internal/worker/processors"
	"wbanalytics/internal/worker/processors/export"
)

func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	// Initialize logger
	logger := logger.NewWithConfig(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = execute(ctx, cfg, logger)

	status, code := "success", 0
	errorType, errorMessage := "", ""
	if err != nil {
		status, code = "failed", 1
		errorType, errorMessage = classify(err), err.Error()
	}
	logger.Infow("run finished",
		"status", status,
		"function", "parser",
		"execution_time", time.Since(start).Round(time.Millisecond).String(),
		"error_type", errorType,
		"error_message", errorMessage,
	)
	return code
}

func execute(ctx context.Context, cfg *config.Config, logger *logger.Logger) error {
	db, err := database.New(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	cipher, err := vault.NewFernetCipher(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	tokens := vault.New(db, cipher, vault.NewTerminalPrompter(), logger)

	registry := persistence.NewRegistry(db, logger)
	store := persistence.NewStore(db, registry, logger)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	newClient := func(token string) (connector.Fetcher, error) {
		client, err := wb.NewClient(token, logger,
			wb.WithBaseURLs(cfg.StocksURL, cfg.OrdersURL),
			wb.WithHTTPClient(httpClient),
			wb.WithPacing(cfg.Pacing()),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	conn := connector.New(tokens, store, newClient, connector.Options{
		PageLimit:     cfg.PageLimit,
		RefreshTokens: cfg.RefreshTokens,
	}, logger)

	var exporter *export.Exporter
	if cfg.ExportDir != "" {
		exporter = export.New(cfg.ExportDir, logger)
	}

	var publisher processors.Publisher = processors.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = processors.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}
	defer publisher.Close()

	w := worker.New(cfg, logger, tokens, conn, exporter, publisher)

	logger.Info("Starting parser...")
	return w.Run(ctx)
}

// classify names the failure family for the final status record.
func classify(err error) string {
	var httpErr *wb.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return fmt.Sprintf("HTTPError(%d)", httpErr.StatusCode)
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, vault.ErrMissingKey):
		return "EnvFileError"
	case errors.Is(err, vault.ErrEmptyToken),
		errors.Is(err, vault.ErrVerification),
		errors.Is(err, vault.ErrTokenSize),
		errors.Is(err, vault.ErrTokenNotFound),
		errors.Is(err, vault.ErrTokenNotBinary),
		errors.Is(err, vault.ErrDecrypt):
		return "TokenError"
	case errors.Is(err, persistence.ErrUnknownKind),
		errors.Is(err, persistence.ErrMissingRefTable),
		errors.Is(err, persistence.ErrUnknownTable),
		errors.Is(err, persistence.ErrInvalidTableName):
		return "SchemaError"
	default:
		return fmt.Sprintf("%T", err)
	}
}
