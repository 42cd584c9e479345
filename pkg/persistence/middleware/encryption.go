package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/ports"
)

// EnvelopePrefix marks values written by the encryption middleware.
const EnvelopePrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// ErrKeySize is returned for keys that are not 32 bytes long.
var ErrKeySize = errors.New("encryption key must be 32 bytes (AES-256)")

type encryptionMiddleware struct {
	next   ports.ContentStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts every stored
// value with AES-GCM. Keys are left in clear text so prefix listing keeps
// working.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrKeySize
	}
	for _, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key: %w", ErrKeySize)
		}
	}
	return func(next ports.ContentStore) ports.ContentStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

// KeyFromString turns a configured secret into an AES-256 key. A base64
// string decoding to exactly 32 bytes is used as is; anything else is
// hashed with SHA-256.
func KeyFromString(secret string) []byte {
	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) == 32 {
		return raw
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func (m *encryptionMiddleware) Get(ctx context.Context, key string) (string, error) {
	value, err := m.next.Get(ctx, key)
	if err != nil {
		return "", err
	}

	encoded, ok := strings.CutPrefix(value, EnvelopePrefix)
	if !ok {
		// Plain values are rejected: once encryption is on, everything is.
		return "", fmt.Errorf("%w: %s: value is missing encrypted envelope", domain.ErrPersistence, key)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %s: decode ciphertext: %w", domain.ErrPersistence, key, err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrPersistence, key, err)
	}
	return string(plainText), nil
}

func (m *encryptionMiddleware) Set(ctx context.Context, key, value string) error {
	ciphertext, err := encrypt([]byte(value), m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("%w: %s: encrypt: %w", domain.ErrPersistence, key, err)
	}
	return m.next.Set(ctx, key, EnvelopePrefix+base64.StdEncoding.EncodeToString(ciphertext))
}

func (m *encryptionMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *encryptionMiddleware) Keys(ctx context.Context, prefix string) ([]string, error) {
	return m.next.Keys(ctx, prefix)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
