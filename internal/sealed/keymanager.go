package sealed

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// KeyManager holds the platform's AES-256 key and is the only component
// allowed to open sealed values. Everything else handles opaque bytes.
type KeyManager struct {
	aead cipher.AEAD
}

// NewKeyManager builds a key manager from a hex-encoded 32-byte key.
// An empty string generates a fresh random key, which makes previously
// sealed values unreadable after a restart.
func NewKeyManager(hexKey string) (*KeyManager, error) {
	var key []byte
	if hexKey == "" {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("entropy generation failed: %w", err)
		}
	} else {
		var err error
		key, err = hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("decode sealed key: %w", err)
		}
		if len(key) != 32 {
			return nil, errors.New("sealed key must be 32 bytes")
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &KeyManager{aead: aead}, nil
}
