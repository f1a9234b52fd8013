package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	apperrors "github.com/carevault/carevault/pkg/errors"
)

// Envelope layout: IV(12) || TAG(16) || CIPHERTEXT(n). Total length 28 + n.
// Base64 in transit, raw bytes at rest. No padding, no AAD.
const (
	IVSize           = 12
	TagSize          = 16
	EnvelopeOverhead = IVSize + TagSize
)

// Encrypt seals plaintext under a 32-byte key with AES-256-GCM and a fresh
// random IV, returning the envelope bytes.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal appends the 16-byte tag after the ciphertext; the envelope
	// carries the tag between the IV and the ciphertext instead.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	envelope := make([]byte, 0, EnvelopeOverhead+len(ciphertext))
	envelope = append(envelope, iv...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ciphertext...)
	return envelope, nil
}

// Decrypt opens an envelope with the given key. Envelopes shorter than the
// IV+TAG overhead are rejected as MalformedEnvelope before any cryptographic
// work; a tag mismatch surfaces as AuthenticationFailure and no partial
// plaintext is ever returned.
func Decrypt(envelope, key []byte) ([]byte, error) {
	if len(envelope) < EnvelopeOverhead {
		return nil, apperrors.MalformedEnvelope(
			fmt.Sprintf("envelope is %d bytes, minimum is %d", len(envelope), EnvelopeOverhead))
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := envelope[:IVSize]
	tag := envelope[IVSize:EnvelopeOverhead]
	ciphertext := envelope[EnvelopeOverhead:]

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, apperrors.AuthenticationFailure()
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
