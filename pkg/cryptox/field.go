package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FieldKeySize is the AES-256 key length expected by NewFieldCipher.
const FieldKeySize = 32

// TestFieldKey is the fixed key used when running with ENV=test so fixtures
// can be decrypted across runs. Never use it anywhere else.
const TestFieldKey = "RVh8MfVcCXM2bZdNUkuXymx5JENC4jxc"

var (
	// ErrCipher is returned for any ciphertext that cannot be decrypted,
	// including ciphertext produced under a different key.
	ErrCipher = errors.New("cryptox: malformed ciphertext")

	ErrFieldKeySize = fmt.Errorf("cryptox: field key must be %d bytes", FieldKeySize)
)

// FieldCipher encrypts single string fields with AES-256-CBC. Each call
// uses a fresh IV and the output is self contained: hex(iv) + ":" + hex(ct).
type FieldCipher struct {
	block cipher.Block
}

// NewFieldCipher builds a cipher from a raw 32 byte key.
func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != FieldKeySize {
		return nil, ErrFieldKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &FieldCipher{block: block}, nil
}

// Encrypt returns "" for an empty plaintext so optional fields stay empty
// in storage.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ct, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt reverses Encrypt. Every failure wraps ErrCipher.
func (c *FieldCipher) Decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}

	ivHex, ctHex, ok := strings.Cut(value, ":")
	if !ok {
		return "", fmt.Errorf("%w: missing iv separator", ErrCipher)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: bad iv", ErrCipher)
	}

	ct, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrCipher)
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrCipher)
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, ct)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("%w: bad padding", ErrCipher)
	}

	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrCipher)
	}

	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrCipher)
		}
	}
	return b[:len(b)-n], nil
}

// SelectFieldKey picks the field encryption key for an environment:
//   - test: the configured key, else TestFieldKey
//   - production: the configured key, required
//   - anything else: the configured key, else a random ephemeral key
//
// The second return value reports whether the key is ephemeral, in which
// case data written with it will be unreadable after a restart.
func SelectFieldKey(env, configured string) ([]byte, bool, error) {
	if configured != "" {
		if len(configured) != FieldKeySize {
			return nil, false, ErrFieldKeySize
		}
		return []byte(configured), false, nil
	}

	switch env {
	case "test":
		return []byte(TestFieldKey), false, nil
	case "production":
		return nil, false, errors.New("cryptox: a field key is required in production")
	}

	key := make([]byte, FieldKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate ephemeral field key: %w", err)
	}
	return key, true, nil
}
