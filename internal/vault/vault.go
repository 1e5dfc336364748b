package vault

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wbanalytics/internal/database"
	"wbanalytics/internal/logger"
	"wbanalytics/internal/models"
)

var (
	ErrEmptyToken     = errors.New("token is empty")
	ErrVerification   = errors.New("encrypted token failed verification")
	ErrTokenSize      = errors.New("encrypted token exceeds size limit")
	ErrTokenNotFound  = errors.New("no token stored for shop")
	ErrTokenNotBinary = errors.New("stored token is not binary")
	ErrMissingKey     = errors.New("encryption key is missing or malformed")
	ErrDecrypt        = errors.New("failed to decrypt token")
)

type Vault struct {
	db       *database.Database
	cipher   Cipher
	prompter Prompter
	logger   *logger.Logger

	mu    sync.Mutex
	ready bool
}

// New builds a vault. A nil prompter disables interactive provisioning.
func New(db *database.Database, cipher Cipher, prompter Prompter, logger *logger.Logger) *Vault {
	return &Vault{
		db:       db,
		cipher:   cipher,
		prompter: prompter,
		logger:   logger,
	}
}

// EnsureTokenTable creates the tokens table when the store does not list it.
func (v *Vault) EnsureTokenTable(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ready {
		return nil
	}

	migrator := v.db.DB.WithContext(ctx).Migrator()
	if !migrator.HasTable(&models.ShopCredential{}) {
		v.logger.Info("Creating token table")
		if err := migrator.CreateTable(&models.ShopCredential{}); err != nil {
			return fmt.Errorf("failed to create token table: %w", err)
		}
	}
	v.ready = true
	return nil
}

// ListShops returns every shop with a stored token, sorted by name.
func (v *Vault) ListShops(ctx context.Context) ([]string, error) {
	if err := v.EnsureTokenTable(ctx); err != nil {
		return nil, err
	}

	var shops []string
	err := v.db.DB.WithContext(ctx).
		Model(&models.ShopCredential{}).
		Order("shop_name").
		Pluck("shop_name", &shops).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	return shops, nil
}

// Encrypt seals token and stores it for shop, replacing any previous value.
func (v *Vault) Encrypt(ctx context.Context, shop, token string) error {
	if err := models.ValidateShopName(shop); err != nil {
		return err
	}
	if token == "" {
		return ErrEmptyToken
	}

	sealed, err := v.cipher.Encrypt([]byte(token))
	if err != nil {
		return err
	}
	opened, err := v.cipher.Decrypt(sealed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if !bytes.Equal(opened, []byte(token)) {
		return ErrVerification
	}
	if len(sealed) > models.MaxTokenSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrTokenSize, len(sealed), models.MaxTokenSize)
	}

	if err := v.EnsureTokenTable(ctx); err != nil {
		return err
	}

	cred := &models.ShopCredential{ShopName: shop, Token: sealed}
	err = v.db.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"token"}),
		}).Create(cred).Error
	})
	if err != nil {
		return fmt.Errorf("failed to store token for %s: %w", shop, err)
	}

	v.logger.Debug("Stored token for shop %s", shop)
	return nil
}

// Decrypt returns the plaintext token for shop. Unknown shops go through
// EnsureShop first.
func (v *Vault) Decrypt(ctx context.Context, shop string) (string, error) {
	if err := models.ValidateShopName(shop); err != nil {
		return "", err
	}

	shops, err := v.ListShops(ctx)
	if err != nil {
		return "", err
	}
	if !slices.Contains(shops, shop) {
		if err := v.EnsureShop(ctx, shop, ""); err != nil {
			return "", err
		}
	}

	var raw any
	row := v.db.DB.WithContext(ctx).
		Raw("SELECT token FROM tokens WHERE shop_name = ?", shop).
		Row()
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrTokenNotFound, shop)
		}
		return "", fmt.Errorf("failed to read token for %s: %w", shop, err)
	}

	sealed, err := tokenBytes(raw)
	if err != nil {
		return "", err
	}

	plain, err := v.cipher.Decrypt(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return string(plain), nil
}

// EnsureShop stores a token for shop. Without a token the prompter is asked
// for both the shop name and the token.
func (v *Vault) EnsureShop(ctx context.Context, shop, token string) error {
	if token == "" {
		if v.prompter == nil {
			v.logger.Warn("No token for shop %s and no prompter configured", shop)
			return nil
		}
		var err error
		shop, token, err = v.prompter.Prompt(ctx, shop)
		if err != nil {
			return fmt.Errorf("failed to collect token: %w", err)
		}
	}
	return v.Encrypt(ctx, shop, token)
}

func tokenBytes(raw any) ([]byte, error) {
	b, ok := raw.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrTokenNotBinary, raw)
	}
	return b, nil
}
