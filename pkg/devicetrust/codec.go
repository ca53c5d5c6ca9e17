package devicetrust

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/fingerprint"
)

// CharacteristicsCodec seals characteristics snapshots for storage. Stored
// characteristics are encrypted at rest; only the canonical hash is kept in
// the clear for lookups.
type CharacteristicsCodec struct {
	key [32]byte
}

// NewCharacteristicsCodec creates a codec from a 64-character hex-encoded
// 32-byte key.
func NewCharacteristicsCodec(hexKey string) (*CharacteristicsCodec, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode characteristics encryption key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("characteristics encryption key must be 32 bytes, got %d", len(raw))
	}
	codec := &CharacteristicsCodec{}
	copy(codec.key[:], raw)
	return codec, nil
}

// Seal serializes and encrypts a characteristics snapshot. The 24-byte nonce
// is prepended to the ciphertext.
func (c *CharacteristicsCodec) Seal(chars fingerprint.Characteristics) ([]byte, error) {
	plaintext, err := json.Marshal(chars)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal characteristics: %w", err)
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &c.key), nil
}

// Open decrypts and deserializes a sealed characteristics snapshot.
func (c *CharacteristicsCodec) Open(sealed []byte) (fingerprint.Characteristics, error) {
	if len(sealed) < 24 {
		return fingerprint.Characteristics{}, errors.New("sealed characteristics too short")
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &c.key)
	if !ok {
		return fingerprint.Characteristics{}, errors.New("failed to decrypt stored characteristics")
	}

	var chars fingerprint.Characteristics
	if err := json.Unmarshal(plaintext, &chars); err != nil {
		return fingerprint.Characteristics{}, fmt.Errorf("failed to unmarshal characteristics: %w", err)
	}
	return chars, nil
}
