package models

import (
	"errors"
	"fmt"
	"regexp"
)

// MaxTokenSize bounds the stored ciphertext.
const MaxTokenSize = 1024

var ErrInvalidShopName = errors.New("invalid shop name")

var shopNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ShopCredential is a shop's encrypted marketplace token.
type ShopCredential struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	ShopName string `json:"shop_name" gorm:"size:255;not null;uniqueIndex"`
	Token    []byte `json:"-" gorm:"size:1024;not null"`
}

func (ShopCredential) TableName() string {
	return "tokens"
}

// ValidateShopName rejects names that cannot be embedded in a table identifier.
func ValidateShopName(name string) error {
	if !shopNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidShopName, name)
	}
	return nil
}
