package vault

import (
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

// Cipher is the symmetric primitive the vault seals tokens with.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// tokens never expire at rest
const noExpiry time.Duration = -1

type FernetCipher struct {
	keys []*fernet.Key
}

// NewFernetCipher decodes a url-safe base64 Fernet key.
func NewFernetCipher(key string) (*FernetCipher, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingKey, err)
	}
	return &FernetCipher{keys: []*fernet.Key{k}}, nil
}

func (c *FernetCipher) Encrypt(plaintext []byte) ([]byte, error) {
	tok, err := fernet.EncryptAndSign(plaintext, c.keys[0])
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt token: %w", err)
	}
	return tok, nil
}

func (c *FernetCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	msg := fernet.VerifyAndDecrypt(ciphertext, noExpiry, c.keys)
	if msg == nil {
		return nil, fmt.Errorf("invalid fernet token")
	}
	return msg, nil
}

// GenerateKey returns a fresh encoded key for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return k.Encode(), nil
}
